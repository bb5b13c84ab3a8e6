// Package gateway assembles the HTTP surface of the POS service: the shared
// middleware chain, the resource routers and the server lifecycle.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/vaidhya/pos-api/internal/appointments"
	"github.com/vaidhya/pos-api/internal/patients"
	"github.com/vaidhya/pos-api/internal/sessions"
	"github.com/vaidhya/pos-api/internal/tasks"
	"github.com/vaidhya/pos-api/internal/users"
	"github.com/vaidhya/pos-api/pkg/api"
	"github.com/vaidhya/pos-api/pkg/config"
	"github.com/vaidhya/pos-api/pkg/interfaces"
	"github.com/vaidhya/pos-api/pkg/logger"
	"github.com/vaidhya/pos-api/pkg/monitoring"
	"github.com/vaidhya/pos-api/pkg/types"
)

// Dependencies are the stores and helpers the routes are built from.
// Metrics, Tracing and Health may be nil.
type Dependencies struct {
	Sessions     interfaces.SessionRepository
	Patients     interfaces.PatientRepository
	Appointments interfaces.AppointmentRepository
	Tasks        interfaces.TaskRepository
	Users        interfaces.UserRepository

	Tokens    *sessions.TokenIssuer
	Passwords *users.PasswordManager

	Metrics *monitoring.MetricsCollector
	Tracing *monitoring.TracingManager
	Health  *monitoring.HealthManager
}

// Service is the POS HTTP server
type Service struct {
	config      *config.Config
	deps        Dependencies
	router      *mux.Router
	handler     http.Handler
	server      *http.Server
	rateLimiter *RateLimiter
	responder   *api.Responder
	logger      *logger.Logger
	cleanupCtx  context.Context
	stopCleanup context.CancelFunc
}

// NewService wires the routes and middleware
func NewService(cfg *config.Config, deps Dependencies, log *logger.Logger) *Service {
	var observer api.ErrorObserver
	if deps.Metrics != nil {
		observer = deps.Metrics
	}

	s := &Service{
		config:    cfg,
		deps:      deps,
		router:    mux.NewRouter(),
		responder: api.NewResponder(log, observer),
		logger:    log,
	}

	if cfg.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(cfg.RateLimit.RequestsPerMin, time.Minute, cfg.RateLimit.BurstSize)
	}
	s.cleanupCtx, s.stopCleanup = context.WithCancel(context.Background())

	s.setupRoutes()
	s.handler = s.setupMiddleware(s.router)

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	return s
}

// Handler returns the fully wrapped HTTP handler
func (s *Service) Handler() http.Handler {
	return s.handler
}

func (s *Service) setupRoutes() {
	mon := s.config.Monitoring
	if s.deps.Health != nil {
		s.router.Handle(mon.HealthPath, s.deps.Health.HTTPHandler()).Methods("GET")
	}
	if s.deps.Metrics != nil && mon.Enabled {
		s.router.Handle(mon.MetricsPath, s.deps.Metrics.Handler()).Methods("GET")
	}

	apiRouter := s.router.PathPrefix("/api").Subrouter()
	if s.config.Session.Required {
		apiRouter.Use(sessions.Gate(s.deps.Sessions, s.deps.Tokens, s.responder, s.logger))
	}

	sessions.NewHandlers(s.deps.Sessions, s.responder, s.logger).RegisterRoutes(apiRouter)
	patients.NewHandlers(s.deps.Patients, s.responder, s.logger).RegisterRoutes(apiRouter)
	appointments.NewHandlers(s.deps.Appointments, s.responder, s.logger).RegisterRoutes(apiRouter)
	tasks.NewHandlers(s.deps.Tasks, s.responder, s.logger).RegisterRoutes(apiRouter)
	users.NewHandlers(s.deps.Users, s.deps.Sessions, s.deps.Tokens, s.deps.Passwords, s.responder, s.logger).
		RegisterRoutes(s.router, apiRouter)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.responder.Error(w, r, types.NewNotFoundError(types.ErrCodeRouteNotFound, "Route not found"), "")
	})
	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.responder.Error(w, r, types.NewMethodNotAllowedError(r.Method), "")
	})
	s.router.MethodNotAllowedHandler = methodNotAllowed
	apiRouter.MethodNotAllowedHandler = methodNotAllowed

	s.router.Use(monitoring.NewMonitoringMiddleware(s.deps.Metrics, s.deps.Tracing, s.logger).HTTPMiddleware)
}

// setupMiddleware wraps the router, outermost first: recovery, request ID,
// security headers, CORS, rate limiting
func (s *Service) setupMiddleware(h http.Handler) http.Handler {
	if s.rateLimiter != nil {
		h = s.rateLimitMiddleware(h)
	}
	h = s.corsMiddleware(h)
	h = s.securityHeadersMiddleware(h)
	h = s.requestIDMiddleware(h)
	return s.recoveryMiddleware(h)
}

// Start serves until Stop is called. It returns nil after a clean shutdown.
func (s *Service) Start() error {
	if s.rateLimiter != nil {
		interval := time.Duration(s.config.RateLimit.CleanupInterval) * time.Second
		if interval <= 0 {
			interval = time.Minute
		}
		s.rateLimiter.StartCleanup(s.cleanupCtx, interval)
	}

	s.logger.WithComponent("gateway").WithField("addr", s.server.Addr).Info("Starting POS service")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests within ctx
func (s *Service) Stop(ctx context.Context) error {
	s.stopCleanup()

	s.logger.WithComponent("gateway").Info("Stopping POS service")
	return s.server.Shutdown(ctx)
}
