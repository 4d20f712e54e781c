// Package http exposes the JSON API over the finance store: auth, EMI and
// transaction CRUD, budget, summary, refresh, and export.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/store"
)

// Options tunes server behavior. Zero values fall back to defaults.
type Options struct {
	SummaryCacheTTL   time.Duration
	SummaryCacheSize  int
	RequestsPerMinute int
}

type Server struct {
	http.Server
	auth   *auth.Service
	stores *store.Manager

	limiter *ratelimit.Limiter
	tracer  *trace.Middleware

	// summaryCache holds computed financial summaries keyed by user id,
	// invalidated on every mutation for that user.
	summaryCache *cache.LRUCache[core.FinancialSummary]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, authSvc *auth.Service, stores *store.Manager, opts Options) *Server {
	if opts.SummaryCacheTTL <= 0 {
		opts.SummaryCacheTTL = 30 * time.Second
	}
	if opts.SummaryCacheSize <= 0 {
		opts.SummaryCacheSize = 1000
	}

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		auth:         authSvc,
		stores:       stores,
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		tracer:       trace.NewMiddleware(clientIP),
		summaryCache: cache.NewLRUCache[core.FinancialSummary](opts.SummaryCacheSize, opts.SummaryCacheTTL),
		cacheManager: cache.NewManager(),
	}
	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.withAuth(s.handleLogout))

	mux.HandleFunc("GET /api/emis", s.withAuth(s.handleListEMIs))
	mux.HandleFunc("POST /api/emis", s.withAuth(s.handleAddEMI))
	mux.HandleFunc("PATCH /api/emis/{id}", s.withAuth(s.handleUpdateEMI))
	mux.HandleFunc("DELETE /api/emis/{id}", s.withAuth(s.handleDeleteEMI))

	mux.HandleFunc("GET /api/transactions", s.withAuth(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withAuth(s.handleAddTransaction))
	mux.HandleFunc("PATCH /api/transactions/{id}", s.withAuth(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withAuth(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/budget", s.withAuth(s.handleGetBudget))
	mux.HandleFunc("PUT /api/budget", s.withAuth(s.handleUpdateBudget))

	mux.HandleFunc("GET /api/summary", s.withAuth(s.handleSummary))
	mux.HandleFunc("POST /api/refresh", s.withAuth(s.handleRefresh))
	mux.HandleFunc("GET /api/export", s.withAuth(s.handleExport))

	s.Server.Handler = s.tracer.Middleware(mux)
	return s
}

// Shutdown stops the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// invalidateSummary drops the user's cached summary after a mutation.
func (s *Server) invalidateSummary(userID string) {
	s.summaryCache.Delete(userID)
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
