// Package http serves the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/metrics"
)

// Ledger is what the handlers need from the expense store.
type Ledger interface {
	Load(ctx context.Context) core.Collection
	Add(ctx context.Context, d core.Draft) (core.Expense, error)
	Delete(ctx context.Context, ids ...int64) (int, error)
	DeleteAt(ctx context.Context, view core.Collection, indices []int) (int, error)
}

type Options struct {
	PageSize       int
	CurrencySymbol string
	// RateLimit is the number of mutating requests allowed per client per minute.
	RateLimit int
	Metrics   *metrics.Ledger
	Logger    *applog.Logger
}

type Server struct {
	http.Server
	ledger      Ledger
	pageSize    int
	symbol      string
	metrics     *metrics.Ledger
	logger      *applog.Logger
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, ledger Ledger, opts Options) *Server {
	if opts.PageSize <= 0 {
		opts.PageSize = core.DefaultPageSize
	}
	if opts.CurrencySymbol == "" {
		opts.CurrencySymbol = core.DefaultCurrencySymbol
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		ledger:      ledger,
		pageSize:    opts.PageSize,
		symbol:      opts.CurrencySymbol,
		metrics:     opts.Metrics,
		logger:      opts.Logger.WithComponent(applog.ComponentHTTP),
		rateLimiter: newRateLimiter(opts.RateLimit),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	s.route(mux, "GET /api/expenses", s.handleList)
	s.route(mux, "POST /api/expenses", s.handleAdd)
	s.route(mux, "GET /api/expenses/search", s.handleSearch)
	s.route(mux, "GET /api/expenses/on", s.handleOnDate)
	s.route(mux, "GET /api/expenses/range", s.handleRange)
	s.route(mux, "POST /api/expenses/delete", s.handleDeleteMany)
	s.route(mux, "DELETE /api/expenses/{id}", s.handleDeleteOne)

	s.Handler = applog.Middleware(s.logger, generateRequestID, extractClientIP)(mux)
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// route registers h behind security headers, rate limiting of mutations and
// per-route request counting.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		defer func() {
			s.metrics.Request(pattern, strconv.Itoa(rw.statusCode))
		}()

		setSecurityHeaders(rw.Header())
		clientIP := extractClientIP(r)
		logger := applog.FromContext(r.Context())

		if detectSuspiciousRequest(r, s.metrics) {
			logger.WarnContext(r.Context(), "Suspicious request", applog.FieldClientIP, clientIP,
				applog.FieldPath, r.URL.Path, "user_agent", r.Header.Get("User-Agent"))
		}

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP, s.metrics) {
			logger.WarnContext(r.Context(), "Rate limit exceeded", applog.FieldClientIP, clientIP, applog.FieldMethod, r.Method)
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").
				Header("Retry-After", "60").
				Write(rw)
			return
		}

		h(rw, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
