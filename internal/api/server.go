package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/blink-sync-core/internal/audit"
	"github.com/nerrad567/blink-sync-core/internal/cloud"
	"github.com/nerrad567/blink-sync-core/internal/device"
	"github.com/nerrad567/blink-sync-core/internal/fleet"
	"github.com/nerrad567/blink-sync-core/internal/infrastructure/config"
	"github.com/nerrad567/blink-sync-core/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// WebSocket keepalive defaults, in seconds.
const (
	defaultPingInterval = 30
	defaultPongTimeout  = 10
)

// Fleet is the orchestrator surface the API drives. *fleet.Orchestrator
// implements it.
type Fleet interface {
	Registry() *device.Registry
	RefreshData(ctx context.Context, force bool) error
	SetCameraMotionSensorState(ctx context.Context, cameraID int64, enabled bool) error
	RequestCameraThumbnail(ctx context.Context, cameraID int64) error
	RequestCameraClip(ctx context.Context, cameraID int64) error
	LiveViewURL(ctx context.Context, cameraID int64) (string, error)
	CancelCommand(networkID int64) bool

	RefreshCameraThumbnail(ctx context.Context, networkID int64, force bool) error
	RefreshCameraClip(ctx context.Context, networkID int64, force bool) error
	CameraStatus(ctx context.Context, cameraID int64) (map[string]any, error)
	MotionRegions(ctx context.Context, cameraID int64) (*cloud.MotionRegions, error)

	Programs(ctx context.Context, networkID int64) ([]cloud.Program, error)
	SetProgramEnabled(ctx context.Context, networkID, programID int64, enabled bool) error
	DeleteProgram(ctx context.Context, networkID, programID int64) error
	Sirens(ctx context.Context, networkID int64) ([]cloud.Siren, error)
	SetSirensActive(ctx context.Context, networkID int64, active bool) error

	AccountOptions(ctx context.Context) (map[string]any, error)
	NotificationConfig(ctx context.Context) (*cloud.NotificationConfig, error)
	UpdateNotificationConfig(ctx context.Context, cfg cloud.NotificationConfig) error
	DeleteMedia(ctx context.Context, ids []int64) error
}

// JournalReader lists journalled intents.
type JournalReader interface {
	List(ctx context.Context, filter audit.Filter) (*audit.ListResult, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Fleet    Fleet
	Journal  JournalReader       // optional; /commands returns 503 without it
	Metrics  prometheus.Gatherer // optional; /metrics returns 404 without it
	Version  string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	secCfg   config.SecurityConfig
	logger   *logging.Logger
	fleet    Fleet
	registry *device.Registry
	journal  JournalReader
	metrics  prometheus.Gatherer
	version  string
	server   *http.Server
	hub      *Hub
	cancel   context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Fleet == nil {
		return nil, fmt.Errorf("fleet is required")
	}

	ws := deps.WS
	if ws.PingInterval <= 0 {
		ws.PingInterval = defaultPingInterval
	}
	if ws.PongTimeout <= 0 {
		ws.PongTimeout = defaultPongTimeout
	}

	s := &Server{
		cfg:      deps.Config,
		wsCfg:    ws,
		secCfg:   deps.Security,
		logger:   deps.Logger,
		fleet:    deps.Fleet,
		registry: deps.Fleet.Registry(),
		journal:  deps.Journal,
		metrics:  deps.Metrics,
		version:  deps.Version,
		hub:      NewHub(ws, deps.Logger),
	}
	s.hub.SetInitial(ChannelState, func() any { return s.stateSnapshot() })
	return s, nil
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// HandleEvent relays fleet events to WebSocket subscribers. Refreshes go to
// the "state" channel as full entity snapshots, intents to "intent".
func (s *Server) HandleEvent(e fleet.Event) {
	switch e.Kind {
	case fleet.EventRefreshed:
		s.hub.Broadcast(ChannelState, s.stateSnapshot())
	case fleet.EventIntent:
		s.hub.Broadcast(ChannelIntent, e)
	}
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)

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
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
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

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
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
