package http

import (
	"context"
	"net/http"
	"time"

	"ledger/internal/cashbook"
	"ledger/internal/ledger"
	"ledger/internal/log"
	"ledger/internal/metrics"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
)

// Deps are the collaborators behind the API. Metrics and Health are
// optional.
type Deps struct {
	Ledger             *ledger.Ledger
	Cashbook           *cashbook.Cashbook
	Metrics            *metrics.Metrics
	Health             func(ctx context.Context) error
	Logger             *log.Logger
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	ledger   *ledger.Ledger
	cashbook *cashbook.Cashbook
	health   func(ctx context.Context) error
	logger   *log.Logger
	limiter  *ratelimit.Limiter
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentHTTP)
	}

	s := &Server{
		ledger:   deps.Ledger,
		cashbook: deps.Cashbook,
		health:   deps.Health,
		logger:   logger.WithComponent(log.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	mux.HandleFunc("GET /api/people", s.handleListPeople)
	mux.HandleFunc("POST /api/people", s.handleAddPerson)
	mux.HandleFunc("DELETE /api/people/{name}", s.handleRemovePerson)
	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleAddExpense)
	mux.HandleFunc("DELETE /api/expenses/{index}", s.handleRemoveExpense)
	mux.HandleFunc("GET /api/incomes", s.handleListIncomes)
	mux.HandleFunc("POST /api/incomes", s.handleAddIncome)
	mux.HandleFunc("DELETE /api/incomes/{index}", s.handleRemoveIncome)
	mux.HandleFunc("GET /api/balances", s.handleBalances)
	mux.HandleFunc("GET /api/settlements", s.handleSettlements)

	mux.HandleFunc("GET /api/cashbook/expenses", s.handleListCashbookExpenses)
	mux.HandleFunc("POST /api/cashbook/expenses", s.handleAddCashbookExpense)
	mux.HandleFunc("DELETE /api/cashbook/expenses/{index}", s.handleRemoveCashbookExpense)
	mux.HandleFunc("GET /api/cashbook/incomes", s.handleListCashbookIncomes)
	mux.HandleFunc("POST /api/cashbook/incomes", s.handleAddCashbookIncome)
	mux.HandleFunc("DELETE /api/cashbook/incomes/{index}", s.handleRemoveCashbookIncome)
	mux.HandleFunc("GET /api/cashbook/summary", s.handleSummary)
	mux.HandleFunc("GET /api/cashbook/report", s.handleMonthlyReport)

	// The metrics middleware must wrap the mux directly: the mux records
	// the matched pattern on the request value it was handed.
	var handler http.Handler = mux
	if deps.Metrics != nil {
		handler = deps.Metrics.Middleware(handler)
	}

	detector := security.NewDetector()
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		if deps.Metrics != nil {
			deps.Metrics.ObserveRateLimited()
		}
		logger.WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, detector.ExtractClientIP(r), log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").
			Header("Retry-After", "60").
			Write(w)
	}
	handler = s.limiter.Middleware(detector.ExtractClientIP, onLimit)(handler)
	handler = log.Middleware(logger, trace.RequestID)(handler)
	handler = detector.Middleware(logger)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(logger, detector.ExtractClientIP).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "Health check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}
