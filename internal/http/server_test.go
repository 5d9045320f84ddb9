package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"ledger/internal/core"
	"ledger/internal/kv"
	"ledger/internal/kv/memory"
	applog "ledger/internal/log"
	"ledger/internal/metrics"
	"ledger/internal/store"
)

type failingStorage struct{ kv.Storage }

func (failingStorage) Set(context.Context, string, []byte) error { return kv.ErrQuotaExceeded }

func newTestServer(t *testing.T, backend kv.Storage) (*Server, *metrics.Ledger) {
	t.Helper()
	m := metrics.New()
	st := store.New(backend, store.WithLogger(applog.Discard()))
	srv := NewServer(":0", st, Options{PageSize: 2, Metrics: m, Logger: applog.Discard()})
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv, m
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func seed(t *testing.T, srv *Server, bodies ...string) []core.Expense {
	t.Helper()
	var out []core.Expense
	for _, b := range bodies {
		rr := do(t, srv, http.MethodPost, "/api/expenses", b)
		if rr.Code != http.StatusCreated {
			t.Fatalf("seed %s: status=%d body=%s", b, rr.Code, rr.Body.String())
		}
		out = append(out, decode[core.Expense](t, rr))
	}
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, memory.New(0))

	rr := do(t, srv, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthz status=%d body=%q", rr.Code, rr.Body.String())
	}

	do(t, srv, http.MethodGet, "/api/expenses", "")
	rr = do(t, srv, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "ledger_http_requests_total") {
		t.Errorf("metrics output missing request counter")
	}
}

func TestAddExpense(t *testing.T) {
	srv, m := newTestServer(t, memory.New(0))

	rr := do(t, srv, http.MethodPost, "/api/expenses", `{"date":"2024-01-05","amount":"12.5","description":" lunch "}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	e := decode[core.Expense](t, rr)
	if e.Description != "LUNCH" || e.Amount != 12.5 || e.ID == 0 {
		t.Errorf("unexpected expense %+v", e)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers not set")
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST /api/expenses", "201")); got != 1 {
		t.Errorf("request counter = %v, want 1", got)
	}

	// Numeric amounts are accepted too.
	rr = do(t, srv, http.MethodPost, "/api/expenses", `{"date":"2024-01-06","amount":3,"description":"tea"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 for numeric amount, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestAddExpenseErrors(t *testing.T) {
	srv, _ := newTestServer(t, memory.New(0))

	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"empty body", "", http.StatusBadRequest, "empty"},
		{"malformed json", `{"date":`, http.StatusBadRequest, "invalid JSON"},
		{"unknown field", `{"date":"2024-01-01","amount":"1","description":"x","category":"y"}`, http.StatusBadRequest, "invalid JSON"},
		{"missing fields", `{"amount":"1"}`, http.StatusUnprocessableEntity, `"fields":["date","description"]`},
		{"bad amount", `{"date":"2024-01-01","amount":"abc","description":"x"}`, http.StatusUnprocessableEntity, "invalid amount"},
		{"overflowing amount", `{"date":"2024-01-01","amount":"1e400","description":"x"}`, http.StatusUnprocessableEntity, "invalid amount"},
		{"bad date", `{"date":"2024-02-30","amount":"1","description":"x"}`, http.StatusUnprocessableEntity, "invalid date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/expenses", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.status, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), tt.want) {
				t.Errorf("body %q missing %q", rr.Body.String(), tt.want)
			}
		})
	}

	rr := do(t, srv, http.MethodGet, "/api/expenses", "")
	if page := decode[core.Page](t, rr); page.Total != 0 {
		t.Errorf("failed adds must not persist, total=%d", page.Total)
	}
}

func TestAddExpenseStorageFailure(t *testing.T) {
	srv, _ := newTestServer(t, failingStorage{memory.New(0)})

	rr := do(t, srv, http.MethodPost, "/api/expenses", `{"date":"2024-01-05","amount":"1","description":"x"}`)
	if rr.Code != http.StatusInsufficientStorage {
		t.Fatalf("expected 507, got %d", rr.Code)
	}
}

func TestListPagination(t *testing.T) {
	srv, _ := newTestServer(t, memory.New(0))
	seed(t, srv,
		`{"date":"2024-01-01","amount":"1","description":"a"}`,
		`{"date":"2024-01-02","amount":"2","description":"b"}`,
		`{"date":"2024-01-03","amount":"3","description":"c"}`,
	)

	page := decode[core.Page](t, do(t, srv, http.MethodGet, "/api/expenses", ""))
	if page.Number != 1 || page.Size != 2 || page.TotalPages != 2 || page.Total != 3 {
		t.Fatalf("unexpected paging %+v", page)
	}
	if len(page.Items) != 2 || page.Items[0].Description != "C" {
		t.Errorf("first page should start with the newest insert, got %+v", page.Items)
	}

	page = decode[core.Page](t, do(t, srv, http.MethodGet, "/api/expenses?page=3", ""))
	if len(page.Items) != 0 {
		t.Errorf("page past the end should be empty, got %d items", len(page.Items))
	}

	if rr := do(t, srv, http.MethodGet, "/api/expenses?page=two", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric page, got %d", rr.Code)
	}
}

func TestQueries(t *testing.T) {
	srv, _ := newTestServer(t, memory.New(0))
	seed(t, srv,
		`{"date":"2024-01-01","amount":"1","description":"coffee"}`,
		`{"date":"2024-01-15","amount":"2","description":"lunch"}`,
		`{"date":"2024-02-01","amount":"3","description":"Coffee beans"}`,
	)

	res := decode[listResponse](t, do(t, srv, http.MethodGet, "/api/expenses/search?q=COFFEE", ""))
	if res.Total != 2 {
		t.Errorf("search total=%d want 2", res.Total)
	}

	res = decode[listResponse](t, do(t, srv, http.MethodGet, "/api/expenses/on?date=2024-01-15", ""))
	if res.Total != 1 || res.Items[0].Description != "LUNCH" {
		t.Errorf("on-date result %+v", res)
	}

	res = decode[listResponse](t, do(t, srv, http.MethodGet, "/api/expenses/range?from=2024-01-01&to=2024-01-31", ""))
	if res.Total != 2 {
		t.Errorf("range total=%d want 2", res.Total)
	}

	res = decode[listResponse](t, do(t, srv, http.MethodGet, "/api/expenses/range?from=2024-03-01&to=2024-02-01", ""))
	if res.Total != 0 || res.Items == nil {
		t.Errorf("inverted range should be an empty list, got %+v", res)
	}

	rr := do(t, srv, http.MethodGet, "/api/expenses/range?from=2024-01-01&to=2024-01-31&format=tsv", "")
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/tab-separated-values") {
		t.Errorf("content type %q", ct)
	}
	want := "Date\tAmount\tDescription\n2024-01-15\t₹2.00\tLUNCH\n2024-01-01\t₹1.00\tCOFFEE\n"
	if rr.Body.String() != want {
		t.Errorf("tsv = %q, want %q", rr.Body.String(), want)
	}

	for _, target := range []string{
		"/api/expenses/on",
		"/api/expenses/range?from=2024-01-01",
		"/api/expenses/range?from=a&to=b&format=xml",
	} {
		if rr := do(t, srv, http.MethodGet, target, ""); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, rr.Code)
		}
	}
}

func TestDeleteEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, memory.New(0))
	added := seed(t, srv,
		`{"date":"2024-01-01","amount":"1","description":"a"}`,
		`{"date":"2024-01-02","amount":"2","description":"b"}`,
		`{"date":"2024-01-01","amount":"3","description":"c"}`,
		`{"date":"2024-01-03","amount":"4","description":"d"}`,
	)

	rr := do(t, srv, http.MethodDelete, "/api/expenses/"+itoa(added[1].ID), "")
	if rr.Code != http.StatusOK || decode[deleteResponse](t, rr).Deleted != 1 {
		t.Fatalf("delete by path: status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr := do(t, srv, http.MethodDelete, "/api/expenses/"+itoa(added[1].ID), ""); rr.Code != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/expenses/abc", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad id: expected 400, got %d", rr.Code)
	}

	// The 2024-01-01 view is [c, a]; position 1 is "a".
	rr = do(t, srv, http.MethodPost, "/api/expenses/delete", `{"date":"2024-01-01","indices":[1,7]}`)
	if rr.Code != http.StatusOK || decode[deleteResponse](t, rr).Deleted != 1 {
		t.Fatalf("delete by position: status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodPost, "/api/expenses/delete", `{"ids":[`+itoa(added[3].ID)+`]}`)
	if rr.Code != http.StatusOK || decode[deleteResponse](t, rr).Deleted != 1 {
		t.Fatalf("delete by ids: status=%d body=%s", rr.Code, rr.Body.String())
	}

	page := decode[core.Page](t, do(t, srv, http.MethodGet, "/api/expenses", ""))
	if page.Total != 1 || page.Items[0].Description != "C" {
		t.Errorf("remaining = %+v", page.Items)
	}

	for _, body := range []string{`{}`, `{"date":"2024-01-01"}`, `{"ids":[1],"date":"2024-01-01","indices":[0]}`} {
		if rr := do(t, srv, http.MethodPost, "/api/expenses/delete", body); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, rr.Code)
		}
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	m := metrics.New()
	st := store.New(memory.New(0), store.WithLogger(applog.Discard()))
	srv := NewServer(":0", st, Options{RateLimit: 2, Metrics: m, Logger: applog.Discard()})
	defer srv.rateLimiter.stop()

	body := `{"date":"2024-01-01","amount":"1","description":"x"}`
	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodPost, "/api/expenses", body); rr.Code != http.StatusCreated {
			t.Fatalf("request %d: status=%d", i, rr.Code)
		}
	}
	rr := do(t, srv, http.MethodPost, "/api/expenses", body)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected 429 with Retry-After, got %d", rr.Code)
	}

	// Reads are not limited.
	if rr := do(t, srv, http.MethodGet, "/api/expenses", ""); rr.Code != http.StatusOK {
		t.Errorf("GET after limit: status=%d", rr.Code)
	}

	if got := testutil.ToFloat64(m.SecurityEvents.WithLabelValues("rate_limited")); got != 1 {
		t.Errorf("rate limited events = %v, want 1", got)
	}
	rr = do(t, srv, http.MethodGet, "/metrics", "")
	if !strings.Contains(rr.Body.String(), `ledger_security_events_total{event="rate_limited"} 1`) {
		t.Errorf("metrics output missing security events")
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	srv, _ := newTestServer(t, memory.New(0))
	for i := 0; i < 2; i++ {
		if err := srv.Shutdown(context.Background()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Fatalf("shutdown %d: %v", i, err)
		}
	}
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
