// Package http serves the ledger as a JSON API.
package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"feeledger/internal/cache"
	"feeledger/internal/core"
	"feeledger/internal/ledger"
	applog "feeledger/internal/log"
	"feeledger/internal/middleware/ratelimit"
	"feeledger/internal/middleware/security"
	"feeledger/internal/middleware/trace"
	"feeledger/internal/services"
)

const (
	statsCacheSize = 32
	statsCacheTTL  = 5 * time.Minute
	janitorEvery   = 10 * time.Minute
	maxBodyBytes   = 1 << 20
	readyTimeout   = 5 * time.Second
)

// Ledger is the service surface the handlers depend on.
type Ledger interface {
	ListStudents(ctx context.Context, activeOnly bool) ([]core.Student, error)
	AddStudent(ctx context.Context, fields core.StudentFields, joined time.Time) (core.Student, error)
	UpdateStudent(ctx context.Context, id string, patch core.StudentPatch) (core.Student, error)
	SetStudentActive(ctx context.Context, id string, active bool) (core.Student, error)
	ToggleStudentActive(ctx context.Context, id string) (core.Student, error)
	DeleteStudent(ctx context.Context, id string) error
	StudentLedger(ctx context.Context, id string) (ledger.Ledger, error)
	StudentDues(ctx context.Context, id string, now time.Time) (services.Dues, error)
	MonthOptions(ctx context.Context, studentID string, now time.Time) ([]ledger.MonthChoice, error)

	Snapshot(ctx context.Context) (ledger.Snapshot, error)
	ListPayments(ctx context.Context) ([]core.Payment, error)
	StudentPayments(ctx context.Context, studentID string) ([]core.Payment, error)
	RecordPayment(ctx context.Context, in services.RecordPaymentInput) (core.Payment, error)
	DeletePayment(ctx context.Context, id string) error
	ResetCurrentMonth(ctx context.Context, now time.Time) (int, error)
	ResetAll(ctx context.Context) (int, error)

	DashboardStats(ctx context.Context, now time.Time) (ledger.DashboardStats, error)
	Dashboard(ctx context.Context, now time.Time) (services.Dashboard, error)
	Ping(ctx context.Context) error
}

var _ Ledger = (*services.LedgerService)(nil)

// Options tune the server. Zero values fall back to defaults.
type Options struct {
	RateLimitPerMinute int
	// Location is the timezone used to decide the current month.
	Location *time.Location
	Logger   *applog.Logger
	// Now overrides the clock; tests use it.
	Now func() time.Time
}

type Server struct {
	http.Server

	ledger     Ledger
	validate   *validator.Validate
	logger     *applog.StructuredLogger
	statsCache *cache.LRUCache[ledger.DashboardStats]
	janitor    *cache.Janitor
	limiter    *ratelimit.Limiter
	tracer     *trace.Middleware
	location   *time.Location
	clock      func() time.Time
	started    time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware into a ready-to-run http.Server.
func NewServer(addr string, l Ledger, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentHTTP, Output: io.Discard})
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	clock := opts.Now
	if clock == nil {
		clock = time.Now
	}

	s := &Server{
		ledger:     l,
		validate:   newValidator(),
		logger:     applog.NewStructuredLogger(logger),
		statsCache: cache.NewLRUCache[ledger.DashboardStats](statsCacheSize, statsCacheTTL),
		janitor:    cache.NewJanitor(logger.WithComponent(applog.ComponentCache).Logger),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			Methods:           ratelimit.WriteMethods(),
		}),
		location: loc,
		clock:    clock,
		started:  time.Now(),
	}
	s.janitor.Register(s.statsCache)
	s.janitor.Start(janitorEvery)

	detector := security.NewDetector()
	s.tracer = trace.NewMiddleware(logger.WithComponent(applog.ComponentTrace), detector.ExtractClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = s.limiter.Middleware(detector.ExtractClientIP, s.handleRateLimited)(h)
	h = detector.Middleware(logger.WithComponent(applog.ComponentSecurity).Logger)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = applog.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(h)
	h = applog.Middleware(logger)(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/students", s.handleListStudents)
	mux.HandleFunc("POST /api/students", s.handleCreateStudent)
	mux.HandleFunc("PUT /api/students/{id}", s.handleUpdateStudent)
	mux.HandleFunc("PATCH /api/students/{id}/active", s.handleSetActive)
	mux.HandleFunc("DELETE /api/students/{id}", s.handleDeleteStudent)
	mux.HandleFunc("GET /api/students/{id}/ledger", s.handleStudentLedger)
	mux.HandleFunc("GET /api/students/{id}/ledger.xlsx", s.handleStudentLedgerXLSX)
	mux.HandleFunc("GET /api/students/{id}/months", s.handleMonthOptions)
	mux.HandleFunc("GET /api/students/{id}/dues", s.handleStudentDues)

	mux.HandleFunc("GET /api/payments", s.handleListPayments)
	mux.HandleFunc("GET /api/payments/student/{studentId}", s.handleStudentPayments)
	mux.HandleFunc("GET /api/payments/export.xlsx", s.handlePaymentsXLSX)
	mux.HandleFunc("POST /api/payments", s.handleRecordPayment)
	mux.HandleFunc("DELETE /api/payments/{id}", s.handleDeletePayment)
	mux.HandleFunc("POST /api/payments/reset/current-month", s.handleResetCurrentMonth)
	mux.HandleFunc("POST /api/payments/reset/all", s.handleResetAll)

	mux.HandleFunc("GET /api/dashboard/stats", s.handleDashboardStats)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
}

// now is the current instant in the configured location.
func (s *Server) now() time.Time {
	return s.clock().In(s.location)
}

// invalidate drops derived data after any ledger mutation.
func (s *Server) invalidate() {
	s.statsCache.Clear()
}

// Shutdown stops background goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.janitor.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// Metrics exposes request counters for the process log.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.ledger.Ping(ctx); err != nil {
		s.logger.LogError(ctx, "Readiness check failed", err, applog.ComponentStorage, applog.OpRead, nil)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"checks": map[string]string{"store": "failed"},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ready",
		"checks":      map[string]string{"store": "ok"},
		"stats_cache": s.statsCache.Size(),
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	slog.WarnContext(r.Context(), "Rate limit exceeded", "method", r.Method, "path", r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded, try again later"})
}
