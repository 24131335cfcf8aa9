package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/sigpesq-core/internal/audit"
	"github.com/nerrad567/sigpesq-core/internal/auth"
	"github.com/nerrad567/sigpesq-core/internal/funding"
	"github.com/nerrad567/sigpesq-core/internal/infrastructure/config"
	"github.com/nerrad567/sigpesq-core/internal/infrastructure/database"
	"github.com/nerrad567/sigpesq-core/internal/infrastructure/logging"
	"github.com/nerrad567/sigpesq-core/internal/participant"
	"github.com/nerrad567/sigpesq-core/internal/production"
	"github.com/nerrad567/sigpesq-core/internal/project"
	"github.com/nerrad567/sigpesq-core/internal/report"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// EventPublisher forwards committed mutations to an external bus.
// *mqtt.Client implements it.
type EventPublisher interface {
	PublishEvent(entity, action string, data any) error
}

// Telemetry records operational measurements. *influxdb.Client implements it.
type Telemetry interface {
	WriteAuthAttempt(kind, outcome string)
	WriteRequest(method, route string, status int, elapsed time.Duration)
	WriteDomainEvent(entity, action string)
}

// Deps holds the dependencies required by the API server.
// Events and Telemetry are optional.
type Deps struct {
	Config       config.APIConfig
	WS           config.WebSocketConfig
	Logger       *logging.Logger
	DB           *database.DB
	Auth         *auth.Service
	Participants participant.Repository
	Projects     project.Repository
	Funding      funding.Repository
	Productions  production.Repository
	Reports      *report.Reporter
	Audit        audit.Repository
	Events       EventPublisher
	Telemetry    Telemetry
	Version      string
}

// Server is the SIGPesq HTTP API server.
type Server struct {
	cfg    config.APIConfig
	wsCfg  config.WebSocketConfig
	logger *logging.Logger

	db           *database.DB
	auth         *auth.Service
	participants participant.Repository
	projects     project.Repository
	funding      funding.Repository
	productions  production.Repository
	reports      *report.Reporter
	auditRepo    audit.Repository
	events       EventPublisher
	telemetry    Telemetry

	version   string
	startTime time.Time

	hub     *Hub
	tickets *ticketStore
	metrics *metrics
	auditCh chan *audit.Entry

	server *http.Server
	cancel context.CancelFunc
	done   chan struct{}
}

// New validates deps and builds a Server. Nothing is started until Start.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger is required")
	case deps.Auth == nil:
		return nil, fmt.Errorf("auth service is required")
	case deps.Participants == nil || deps.Projects == nil || deps.Funding == nil || deps.Productions == nil:
		return nil, fmt.Errorf("all domain repositories are required")
	case deps.Reports == nil:
		return nil, fmt.Errorf("reporter is required")
	}

	s := &Server{
		cfg:          deps.Config,
		wsCfg:        deps.WS,
		logger:       deps.Logger,
		db:           deps.DB,
		auth:         deps.Auth,
		participants: deps.Participants,
		projects:     deps.Projects,
		funding:      deps.Funding,
		productions:  deps.Productions,
		reports:      deps.Reports,
		auditRepo:    deps.Audit,
		events:       deps.Events,
		telemetry:    deps.Telemetry,
		version:      deps.Version,
		startTime:    time.Now(),
		tickets:      newTicketStore(),
		metrics:      newMetrics(),
		hub:          NewHub(deps.WS, deps.Logger),
	}
	s.hub.onCount = func(n int) { s.metrics.wsClients.Set(float64(n)) }
	if s.auditRepo != nil {
		s.auditCh = make(chan *audit.Entry, auditChanSize)
	}

	return s, nil
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start launches the background workers and the HTTP listener.
// Listener errors after startup are logged, not returned.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	// Workers outlive the caller's signal context; only Close stops them.
	srvCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.done = make(chan struct{})

	go s.hub.Run(srvCtx)
	go s.cleanTicketsLoop(srvCtx)
	if s.auditCh != nil {
		go func() {
			defer close(s.done)
			s.drainAuditLog(srvCtx)
		}()
	} else {
		close(s.done)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS", "address", s.server.Addr, "cert", s.cfg.TLS.CertFile)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close stops accepting requests, waits for in-flight ones, then stops the
// background workers and flushes queued audit entries.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	shutdownErr := s.server.Shutdown(ctx)

	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}

	if shutdownErr != nil {
		return fmt.Errorf("shutting down API server: %w", shutdownErr)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
