// Package http exposes the dashboard as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"cardledger/internal/cache"
	applog "cardledger/internal/log"
	"cardledger/internal/middleware/ratelimit"
	"cardledger/internal/services"
)

// Refreshes re-read the whole source, so they get a much tighter limit
// than ordinary reads.
const refreshesPerMinute = 6

type Server struct {
	http.Server
	dashboard *services.Dashboard

	// Rendered responses keyed by path+query; purged on refresh so no
	// response outlives the state it was computed from.
	responses *cache.Cache[[]byte]

	shutdownOnce sync.Once
}

// NewServer configures routes and the response cache, returning a
// ready-to-run server.
func NewServer(addr string, dashboard *services.Dashboard, logger *applog.Logger, cacheSize int, cacheTTL time.Duration) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
		},
		dashboard: dashboard,
		responses: cache.New[[]byte](cacheSize, cacheTTL),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/balances", s.cached(s.handleBalances))
	mux.HandleFunc("GET /api/cards", s.cached(s.handleCards))
	mux.HandleFunc("GET /api/transactions", s.cached(s.handleTransactions))
	mux.HandleFunc("GET /api/rewards", s.cached(s.handleRewards))
	mux.HandleFunc("GET /api/metrics/summary", s.cached(s.handleSummary))
	mux.HandleFunc("GET /api/metrics/categories", s.cached(s.handleCategories))
	mux.HandleFunc("GET /api/metrics/cards", s.cached(s.handleCardBreakdown))
	mux.HandleFunc("GET /api/metrics/max-multiple", s.cached(s.handleMaxMultiple))
	// Snapshot views read from the store, not from served state, so the
	// response cache would hide worker writes; they stay uncached.
	mux.HandleFunc("GET /api/snapshots", s.handleSnapshots)
	mux.HandleFunc("GET /api/balances/history", s.handleHistory)

	mux.HandleFunc("GET /api/validation", s.handleValidation)

	limiter := ratelimit.New(refreshesPerMinute)
	mux.HandleFunc("POST /api/refresh", limiter.Wrap(s.handleRefresh))

	s.Handler = applog.RequestMiddleware(logger)(mux)
	return s
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready only once the first load has completed, so
// load balancers hold traffic until there is state to serve.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if _, err := s.dashboard.RefreshedAt(); err != nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// cached memoizes a handler's successful JSON body per path+query.
func (s *Server) cached(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path + "?" + r.URL.RawQuery
		if body, ok := s.responses.Get(key); ok {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
			return
		}

		rec := &bodyRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		if rec.status == http.StatusOK {
			s.responses.Set(key, rec.body)
		}
	}
}

type bodyRecorder struct {
	http.ResponseWriter
	status int
	body   []byte
}

func (r *bodyRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	if r.status == http.StatusOK {
		r.body = append(r.body, b...)
	}
	return r.ResponseWriter.Write(b)
}
