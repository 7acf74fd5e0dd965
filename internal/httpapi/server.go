// Package httpapi exposes the budget ledger and savings services as a
// JSON API. Handlers stay thin: parsing and status mapping here, all
// semantics in ledger and savings.
package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	applog "monbudget/internal/log"
	"monbudget/internal/savings"
)

// Syncer is the slice of the snapshot syncer the API needs.
type Syncer interface {
	ForceSync(ctx context.Context) error
	Revision() int64
	Suspended() bool
}

type Server struct {
	http.Server
	ledger       Ledger
	savings      *savings.Service
	syncer       Syncer
	logger       *applog.Logger
	httpLog      *applog.HTTPLogger
	rateLimiter  *rateLimiter
	detector     *detector
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, ledger Ledger, sav *savings.Service, sync Syncer, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ledger:      ledger,
		savings:     sav,
		syncer:      sync,
		logger:      logger.WithComponent(applog.ComponentHTTP),
		rateLimiter: newRateLimiter(),
		detector:    newDetector(),
	}
	s.httpLog = applog.NewHTTPLogger(s.logger)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/budgets", s.wrap(s.handleListBudgets))
	mux.HandleFunc("GET /api/budgets/{key}", s.wrap(s.handleGetBudget))
	mux.HandleFunc("GET /api/budgets/{key}/overview", s.wrap(s.handleOverview))
	mux.HandleFunc("PUT /api/budgets/{key}/initial-balance", s.wrap(s.handleInitialBalance))
	mux.HandleFunc("PUT /api/budgets/{key}/monthly-savings", s.wrap(s.handleMonthlySavings))
	mux.HandleFunc("POST /api/budgets/{key}/savings/toggle", s.wrap(s.handleToggleSetAside))
	mux.HandleFunc("POST /api/budgets/{key}/savings/transfer", s.wrap(s.handleTransfer))
	mux.HandleFunc("POST /api/budgets/{key}/savings/distribute", s.wrap(s.handleDistribute))

	mux.HandleFunc("POST /api/budgets/{key}/incomes", s.wrap(s.handleAddIncome))
	mux.HandleFunc("PUT /api/budgets/{key}/incomes/{id}", s.wrap(s.handleUpdateIncome))
	mux.HandleFunc("DELETE /api/budgets/{key}/incomes/{id}", s.wrap(s.handleRemoveIncome))
	mux.HandleFunc("POST /api/budgets/{key}/expenses", s.wrap(s.handleAddExpense))
	mux.HandleFunc("PUT /api/budgets/{key}/expenses/{id}", s.wrap(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/budgets/{key}/expenses/{id}", s.wrap(s.handleRemoveExpense))

	mux.HandleFunc("POST /api/budgets/{key}/transactions", s.wrap(s.handleAddTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.wrap(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/budgets/{key}/transactions/{id}", s.wrap(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/accounts", s.wrap(s.handleListAccountNames))
	mux.HandleFunc("POST /api/accounts", s.wrap(s.handleAddAccountName))
	mux.HandleFunc("GET /api/categories", s.wrap(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.wrap(s.handleAddCategory))

	mux.HandleFunc("GET /api/savings/accounts", s.wrap(s.handleListSavingsAccounts))
	mux.HandleFunc("POST /api/savings/accounts", s.wrap(s.handleCreateSavingsAccount))
	mux.HandleFunc("GET /api/savings/accounts/{id}", s.wrap(s.handleGetSavingsAccount))
	mux.HandleFunc("PUT /api/savings/accounts/{id}", s.wrap(s.handleUpdateSavingsAccount))
	mux.HandleFunc("DELETE /api/savings/accounts/{id}", s.wrap(s.handleDeleteSavingsAccount))
	mux.HandleFunc("GET /api/savings/accounts/{id}/entries", s.wrap(s.handleListEntries))
	mux.HandleFunc("POST /api/savings/accounts/{id}/entries", s.wrap(s.handleRecordEntry))
	mux.HandleFunc("GET /api/savings/projections", s.wrap(s.handleProjections))

	mux.HandleFunc("GET /api/plans/{key}", s.wrap(s.handleGetPlan))
	mux.HandleFunc("PUT /api/plans/{key}", s.wrap(s.handleSavePlan))

	mux.HandleFunc("POST /api/sync", s.wrap(s.handleForceSync))
	mux.HandleFunc("GET /api/sync/status", s.wrap(s.handleSyncStatus))

	return s
}

// wrap adds security headers, rate limiting, request IDs and request
// logging around a handler.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := s.detector.clientIP(r)
		if s.detector.suspicious(r) {
			s.logger.Warn("Suspicious request pattern",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
		}

		requestID := generateRequestID()
		r = r.WithContext(context.WithValue(r.Context(), applog.LoggerContextKey,
			s.logger.With(applog.FieldRequestID, requestID)))

		s.httpLog.LogStart(r.Context(), r, clientIP)

		// Mutations are rate limited per client, reads are not.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.httpLog.LogEnd(r.Context(), r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

// Shutdown stops the rate limiter sweep and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
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

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
