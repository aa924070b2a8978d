// Package server is the development backend: the auth, task and user HTTP
// API plus the STOMP push endpoint the client subscribes to.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/existflow/taskcore/internal/logger"
)

// Options overrides pieces of the default wiring, mostly for tests
type Options struct {
	Logger    *logger.Logger
	Publisher Publisher // nil uses the built-in STOMP broker
}

// Server is the task API server
type Server struct {
	store  *Store
	tokens *TokenManager
	broker *Broker
	pub    Publisher
	echo   *echo.Echo
	log    *logger.Logger
	now    func() time.Time
}

// New creates a new server
func New(cfg Config, opts Options) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}

	store, err := OpenStore(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	s := &Server{
		store:  store,
		tokens: NewTokenManager(cfg.JWTSecret, cfg.TokenTTL),
		log:    log.Named("server"),
		now:    time.Now,
		pub:    opts.Publisher,
	}

	s.broker, err = NewBroker(s.tokens, s.log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if s.pub == nil {
		s.pub = s.broker
	}

	s.setupEcho()
	return s, nil
}

func (s *Server) setupEcho() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(s.requestLogger)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())

	e.GET("/health", s.handleHealth)
	e.GET("/ws", s.broker.HandleWS)

	api := e.Group("/api")

	// Auth endpoints (public)
	api.POST("/auth/login", s.handleLogin)
	api.POST("/auth/register", s.handleRegister)

	// Protected endpoints
	protected := api.Group("")
	protected.Use(s.authMiddleware)
	protected.GET("/users", s.handleListUsers)
	protected.GET("/tasks", s.handleListTasks)
	protected.POST("/tasks", s.handleCreateTask)
	protected.GET("/tasks/:id", s.handleGetTask)
	protected.PUT("/tasks/:id", s.handleUpdateTask)
	protected.DELETE("/tasks/:id", s.handleDeleteTask)

	s.echo = e
}

// Close stops the broker and closes the database connection
func (s *Server) Close() error {
	_ = s.broker.Close()
	return s.store.Close()
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.echo
}

// Start starts the server
func (s *Server) Start(addr string) error {
	s.log.Info("Server listening", logger.F("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	_ = s.broker.Close()
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	if err := s.store.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func errorJSON(c echo.Context, status int, format string, args ...interface{}) error {
	return c.JSON(status, map[string]string{"error": fmt.Sprintf(format, args...)})
}
