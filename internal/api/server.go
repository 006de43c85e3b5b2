package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/servo-switch/internal/audit"
	"github.com/nerrad567/servo-switch/internal/device"
	"github.com/nerrad567/servo-switch/internal/infrastructure/config"
	"github.com/nerrad567/servo-switch/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Switch is the hardware surface the handlers drive. *device.Controller
// satisfies it.
type Switch interface {
	SetPower(ctx context.Context, p device.PowerState) error
	GetPower(ctx context.Context) (device.PowerState, error)
	GetEnv(ctx context.Context) (device.EnvSample, error)
}

// StatePublisher pushes state to the message bus. *mqtt.Client satisfies it.
type StatePublisher interface {
	PublishPower(value int, source string) error
	PublishEnv(temperatureC, humidityPercent float64) error
}

// TelemetryWriter records state in a time-series store.
// *influxdb.Client satisfies it.
type TelemetryWriter interface {
	WritePowerState(value int, source string)
	WriteEnvSample(temperatureC, humidityPercent float64)
}

// HealthChecker is a dependency that can report whether it is usable.
// *pigpio.Client, *database.DB, *mqtt.Client and *influxdb.Client
// satisfy it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
//
// MQTT, Telemetry and AuditRepo are optional. Leave them as nil interfaces
// when disabled; a typed nil pointer would be called.
type Deps struct {
	Config    config.APIConfig
	AuthToken string
	Logger    *logging.Logger
	Switch    Switch
	MQTT      StatePublisher
	Telemetry TelemetryWriter
	AuditRepo audit.Repository
	Version   string

	// HealthChecks are reported by GET /api/health, keyed by component.
	HealthChecks map[string]HealthChecker
}

// Server is the HTTP API server.
//
// It is created with New, started with Start and stopped with Close.
type Server struct {
	cfg       config.APIConfig
	auth      *tokenAuthorizer
	logger    *logging.Logger
	sw        Switch
	mqtt      StatePublisher
	telemetry TelemetryWriter
	auditRepo audit.Repository
	version   string

	server *http.Server

	checks map[string]HealthChecker

	auditCh   chan *audit.SwitchEvent
	publishCh chan stateUpdate
	workers   sync.WaitGroup
	cancel    context.CancelFunc
}

// New creates a new API server. It does not listen until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Switch == nil {
		return nil, fmt.Errorf("switch controller is required")
	}

	s := &Server{
		cfg:       deps.Config,
		auth:      newTokenAuthorizer(deps.AuthToken),
		logger:    deps.Logger,
		sw:        deps.Switch,
		mqtt:      deps.MQTT,
		telemetry: deps.Telemetry,
		auditRepo: deps.AuditRepo,
		version:   deps.Version,
		checks:    deps.HealthChecks,
	}
	if s.auditRepo != nil {
		s.auditCh = make(chan *audit.SwitchEvent, auditChanSize)
	}
	if s.mqtt != nil {
		s.publishCh = make(chan stateUpdate, publishChanSize)
	}

	return s, nil
}

// Start launches the background workers and the HTTP listener.
func (s *Server) Start(ctx context.Context) error {
	s.startWorkers(ctx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close stops accepting requests, waits up to 10 seconds for in-flight
// ones, then flushes queued audit events and MQTT publishes.
func (s *Server) Close() error {
	var err error
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		s.logger.Info("API server shutting down")
		err = s.server.Shutdown(ctx)
	}

	// Workers stop only after handlers are done enqueueing.
	s.stopWorkers()

	if err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// startWorkers runs the audit writer and the MQTT publisher, one goroutine
// each, until stopWorkers.
func (s *Server) startWorkers(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	if s.auditCh != nil {
		s.workers.Add(1)
		go func() {
			defer s.workers.Done()
			drain(ctx, s.auditCh, s.writeAuditEvent)
		}()
	}
	if s.publishCh != nil {
		s.workers.Add(1)
		go func() {
			defer s.workers.Done()
			drain(ctx, s.publishCh, s.publishState)
		}()
	}
}

// stopWorkers cancels the workers and waits for them to flush.
func (s *Server) stopWorkers() {
	if s.cancel != nil {
		s.cancel()
	}
	s.workers.Wait()
}

// HealthCheck verifies the API server has been started.
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
