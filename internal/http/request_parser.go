// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ledger/internal/core"
)

// maxBodyBytes bounds request bodies accepted by the JSON endpoints.
const maxBodyBytes = 64 << 10

// PageParams holds the parsed page/size query values.
type PageParams struct {
	Page int
	Size int
}

// ParsePageParams reads page and size from the query. Missing values default
// to page 1 and defaultSize; present but non-numeric values are an error.
func ParsePageParams(query url.Values, defaultSize int) (PageParams, error) {
	params := PageParams{Page: 1, Size: defaultSize}

	if v := strings.TrimSpace(query.Get("page")); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return params, fmt.Errorf("invalid page %q", v)
		}
		params.Page = p
	}
	if v := strings.TrimSpace(query.Get("size")); v != "" {
		s, err := strconv.Atoi(v)
		if err != nil || s < 1 {
			return params, fmt.Errorf("invalid size %q", v)
		}
		params.Size = s
	}
	return params, nil
}

// amountField accepts either a JSON string or a JSON number.
type amountField string

func (a *amountField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a string or number")
	}
	*a = amountField(n.String())
	return nil
}

type addRequest struct {
	Date        string      `json:"date"`
	Amount      amountField `json:"amount"`
	Description string      `json:"description"`
}

// DecodeDraft reads a new-expense body. Validation of the values is left to
// the store; only malformed JSON is rejected here.
func DecodeDraft(r *http.Request) (core.Draft, error) {
	var req addRequest
	if err := decodeJSON(r, &req); err != nil {
		return core.Draft{}, err
	}
	return core.Draft{
		Date:        sanitizeInput(req.Date),
		Amount:      sanitizeInput(string(req.Amount)),
		Description: sanitizeInput(req.Description),
	}, nil
}

// DeleteRequest selects expenses either by id or by position in the
// exact-date view for Date.
type DeleteRequest struct {
	IDs     []int64 `json:"ids"`
	Date    string  `json:"date"`
	Indices []int   `json:"indices"`
}

// ByPosition reports whether the request addresses a date view.
func (d DeleteRequest) ByPosition() bool {
	return d.Date != ""
}

func DecodeDeleteRequest(r *http.Request) (DeleteRequest, error) {
	var req DeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		return req, err
	}
	req.Date = strings.TrimSpace(req.Date)
	switch {
	case req.ByPosition() && len(req.IDs) > 0:
		return req, errors.New("use either ids or date with indices, not both")
	case req.ByPosition() && len(req.Indices) == 0:
		return req, errors.New("indices are required with date")
	case !req.ByPosition() && len(req.IDs) == 0:
		return req, errors.New("ids or date with indices are required")
	}
	return req, nil
}

// ParseID parses a path id.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return errors.New("request body too large")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return errors.New("request body is empty")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
