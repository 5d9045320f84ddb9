package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"ledger/internal/core"
	"ledger/internal/export"
	applog "ledger/internal/log"
)

const tsvContentType = "text/tab-separated-values; charset=utf-8"

type listResponse struct {
	Items core.Collection `json:"items"`
	Total int             `json:"total"`
}

type deleteResponse struct {
	Deleted int `json:"deleted"`
}

func newListResponse(c core.Collection) listResponse {
	return listResponse{Items: c, Total: len(c)}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	params, err := ParsePageParams(r.URL.Query(), s.pageSize)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	page := s.ledger.Load(r.Context()).Paginate(params.Page, params.Size)
	NewResponse().JSON(page).Write(w)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	draft, err := DecodeDraft(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	e, err := s.ledger.Add(r.Context(), draft)
	if err != nil {
		if !errors.Is(err, core.ErrValidation) {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Expense add failed",
				applog.NewFields().WithOperation(applog.OpAdd).WithError(err).ToSlice()...)
		}
		FromError(err).Write(w)
		return
	}

	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/expenses/"+strconv.FormatInt(e.ID, 10)).
		JSON(e).
		Write(w)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := sanitizeInput(r.URL.Query().Get("q"))
	NewResponse().JSON(newListResponse(s.ledger.Load(r.Context()).SearchByText(q))).Write(w)
}

func (s *Server) handleOnDate(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		BadRequestError("date is required").Write(w)
		return
	}
	NewResponse().JSON(newListResponse(s.ledger.Load(r.Context()).FilterByExactDate(date))).Write(w)
}

func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	if from == "" || to == "" {
		BadRequestError("from and to are required").Write(w)
		return
	}

	view := s.ledger.Load(r.Context()).FilterByDateRange(from, to)
	switch q.Get("format") {
	case "", "json":
		NewResponse().JSON(newListResponse(view)).Write(w)
	case "tsv":
		NewResponse().Text(tsvContentType, export.TSV(view, s.symbol)).Write(w)
	default:
		BadRequestError("format must be json or tsv").Write(w)
	}
}

func (s *Server) handleDeleteMany(w http.ResponseWriter, r *http.Request) {
	req, err := DecodeDeleteRequest(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	var n int
	if req.ByPosition() {
		view := s.ledger.Load(r.Context()).FilterByExactDate(req.Date)
		n, err = s.ledger.DeleteAt(r.Context(), view, req.Indices)
	} else {
		n, err = s.ledger.Delete(r.Context(), req.IDs...)
	}
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Expense delete failed",
			applog.NewFields().WithOperation(applog.OpDelete).WithError(err).ToSlice()...)
		FromError(err).Write(w)
		return
	}
	NewResponse().JSON(deleteResponse{Deleted: n}).Write(w)
}

func (s *Server) handleDeleteOne(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r.PathValue("id"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	n, err := s.ledger.Delete(r.Context(), id)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Expense delete failed",
			applog.NewFields().WithOperation(applog.OpDelete).WithError(err).ToSlice()...)
		FromError(err).Write(w)
		return
	}
	if n == 0 {
		NotFoundError("expense not found").Write(w)
		return
	}
	NewResponse().JSON(deleteResponse{Deleted: n}).Write(w)
}
