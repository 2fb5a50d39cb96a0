package http

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	appweb "fintrack/web"
)

// Transactions is the transaction service as seen by the handlers.
type Transactions interface {
	ListAll(ctx context.Context) ([]core.Transaction, error)
	Create(ctx context.Context, cmd core.TransactionCommand) (core.Transaction, error)
	GetByID(ctx context.Context, id int64) (core.Transaction, error)
	Update(ctx context.Context, id int64, cmd core.TransactionCommand) (core.Transaction, error)
	Delete(ctx context.Context, id int64) error
	ComputeBalance(ctx context.Context) (core.Balance, error)
}

type Budgets interface {
	Create(ctx context.Context, cmd core.BudgetCommand) (core.Budget, error)
	Statuses(ctx context.Context) ([]core.BudgetStatus, error)
	UpdateLimit(ctx context.Context, id int64, limit core.Money) error
	Delete(ctx context.Context, id int64) error
}

type Savings interface {
	Create(ctx context.Context, cmd core.SavingsGoalCommand) (core.SavingsGoal, error)
	ListAll(ctx context.Context) ([]core.SavingsGoal, error)
	Contribute(ctx context.Context, id int64, amount core.Money) (core.SavingsGoal, error)
	Delete(ctx context.Context, id int64) error
}

type Exporter interface {
	WriteCSV(ctx context.Context, w io.Writer) error
	WritePDF(ctx context.Context, w io.Writer) error
	WriteXLSX(ctx context.Context, w io.Writer) error
}

// Pinger reports store readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies wires the services into the server.
type Dependencies struct {
	Transactions       Transactions
	Budgets            Budgets
	Savings            Savings
	Exports            Exporter
	Store              Pinger
	Logger             *log.Logger
	RateLimitPerMinute int
	TrustedProxies     []string
}

type Server struct {
	http.Server
	templates    *template.Template
	transactions Transactions
	budgets      Budgets
	savings      Savings
	exports      Exporter
	store        Pinger
	logger       *log.Logger
	errors       *log.StructuredLogger

	tracer      *trace.Middleware
	detector    *security.Detector
	rateLimiter *ratelimit.Limiter

	shutdownOnce sync.Once
}

// Metrics is a snapshot of request counters.
type Metrics struct {
	Requests           int64
	ServerErrors       int64
	RateLimited        int64
	SuspiciousRequests int64
}

// NewServer parses the embedded templates and configures routes and middleware.
func NewServer(addr string, deps Dependencies) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	detector := security.NewDetector()
	for _, cidr := range deps.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, fmt.Errorf("configure trusted proxies: %w", err)
		}
	}
	s := &Server{
		templates:    t,
		transactions: deps.Transactions,
		budgets:      deps.Budgets,
		savings:      deps.Savings,
		exports:      deps.Exports,
		store:        deps.Store,
		logger:       logger.WithComponent(log.ComponentHTTP),
		errors:       log.NewStructuredLogger(logger),
		tracer:       trace.NewMiddleware(logger, detector.ExtractClientIP),
		detector:     detector,
		rateLimiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err == nil {
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
			http.StripPrefix("/static/", http.FileServer(http.FS(static)))))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /add", s.handleAddForm)
	mux.HandleFunc("POST /add", s.handleCreateTransaction)
	mux.HandleFunc("GET /edit/{id}", s.handleEditForm)
	mux.HandleFunc("POST /edit/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /delete/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /transaction/{id}", s.handleGetTransaction)

	mux.HandleFunc("GET /export/csv", s.handleExportCSV)
	mux.HandleFunc("GET /export/pdf", s.handleExportPDF)
	mux.HandleFunc("GET /export/xlsx", s.handleExportXLSX)

	mux.HandleFunc("GET /budgeting", s.handleBudgeting)
	mux.HandleFunc("POST /budgeting", s.handleCreateBudget)
	mux.HandleFunc("POST /budgeting/{id}", s.handleUpdateBudget)
	mux.HandleFunc("DELETE /budgeting/{id}", s.handleDeleteBudget)

	mux.HandleFunc("GET /savings", s.handleSavings)
	mux.HandleFunc("POST /savings", s.handleCreateSavingsGoal)
	mux.HandleFunc("POST /savings/{id}/contribute", s.handleContribute)
	mux.HandleFunc("DELETE /savings/{id}", s.handleDeleteSavingsGoal)
}

// middleware wraps h, outermost first: logger, tracing, security headers,
// scanner detection, then rate limiting of mutating requests.
func (s *Server) middleware(h http.Handler) http.Handler {
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		s.logger.WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
	}

	h = s.rateLimiter.Middleware(s.detector.ExtractClientIP, onLimit)(h)
	h = s.detector.Middleware(s.logger)(h)
	h = security.Headers(security.DefaultPolicy())(h)
	h = s.tracer.Middleware(h)
	return log.Middleware(s.logger)(h)
}

func (s *Server) Metrics() Metrics {
	tm := s.tracer.GetMetrics()
	return Metrics{
		Requests:           tm.TotalRequests,
		ServerErrors:       tm.ServerErrors,
		RateLimited:        s.rateLimiter.Limited(),
		SuspiciousRequests: s.detector.GetMetrics().SuspiciousRequests,
	}
}

// Shutdown stops background routines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.errors.LogError(r.Context(), "Readiness check failed", err, log.ComponentStorage, log.OpRead, nil)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
