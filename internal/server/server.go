// Package server exposes the HTTP transport: the chat endpoint driving the
// conversation engine, the catalog listing endpoint, and operational routes
// for weather, manual refresh, and health.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/nightowl-app/nightowl/internal/catalog"
	"github.com/nightowl-app/nightowl/internal/chat"
	"github.com/nightowl-app/nightowl/internal/logger"
	"github.com/nightowl-app/nightowl/internal/models"
)

// Server wires the HTTP routes to the application components.
type Server struct {
	echo    *echo.Echo
	engine  *chat.Engine
	store   *catalog.Store
	weather chat.WeatherProvider
	addr    string
}

// New creates the HTTP server. weather may be nil.
func New(addr string, engine *chat.Engine, store *catalog.Store, weather chat.WeatherProvider, readTimeout, writeTimeout time.Duration) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = readTimeout
	e.Server.WriteTimeout = writeTimeout

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(requestLogger)

	s := &Server{
		echo:    e,
		engine:  engine,
		store:   store,
		weather: weather,
		addr:    addr,
	}

	e.POST("/api/chat", s.handleChat)
	e.GET("/api/events", s.handleEvents)
	e.GET("/api/weather", s.handleWeather)
	e.POST("/api/refresh", s.handleRefresh)
	e.GET("/healthz", s.handleHealth)

	return s
}

// Start begins serving and blocks until shutdown.
func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the underlying router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// requestLogger logs each request through the application logger.
func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		logger.Debug("%s %s -> %d (%s)",
			c.Request().Method, c.Request().URL.Path, c.Response().Status, time.Since(start))
		return err
	}
}

// chatRequest is one inbound chat message.
type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message must not be empty")
	}

	resp := s.engine.Handle(c.Request().Context(), req.SessionID, req.Message)
	return c.JSON(http.StatusOK, resp)
}

// eventsResponse is the catalog listing payload.
type eventsResponse struct {
	Events     []models.Event `json:"events"`
	Categories []string       `json:"categories"`
	FetchedAt  *time.Time     `json:"fetched_at,omitempty"`
	Stale      bool           `json:"stale"`
}

func (s *Server) handleEvents(c echo.Context) error {
	// Capture one snapshot and derive everything from it, so a concurrent
	// refresh cannot pair one cycle's events with another cycle's metadata.
	snapshot := s.store.GetOrRefresh(c.Request().Context())

	resp := eventsResponse{
		Events:     []models.Event{},
		Categories: []string{},
	}
	if snapshot != nil {
		resp.Events = catalog.FilterEvents(snapshot.Events, c.QueryParam("category"), c.QueryParam("search"))
		resp.Categories = catalog.DistinctCategories(snapshot.Events)
		fetchedAt := snapshot.FetchedAt
		resp.FetchedAt = &fetchedAt
		resp.Stale = snapshot.IsStale(time.Now(), s.store.StaleAfter())
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleWeather(c echo.Context) error {
	if s.weather == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "weather provider disabled")
	}
	snapshot, err := s.weather.Current(c.Request().Context())
	if err != nil {
		logger.Warn("Weather endpoint failed: %v", err)
		return echo.NewHTTPError(http.StatusBadGateway, "weather provider unavailable")
	}
	return c.JSON(http.StatusOK, snapshot)
}

func (s *Server) handleRefresh(c echo.Context) error {
	if err := s.store.Refresh(c.Request().Context()); err != nil {
		logger.Error("Manual catalog refresh failed: %v", err)
		return echo.NewHTTPError(http.StatusBadGateway, "catalog refresh failed")
	}
	snapshot := s.store.Get()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"events":     len(snapshot.Events),
		"fetched_at": snapshot.FetchedAt,
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	status := map[string]interface{}{
		"status":   "ok",
		"sessions": s.engine.Sessions().Count(),
	}
	if snapshot := s.store.Get(); snapshot != nil {
		status["events"] = len(snapshot.Events)
		status["catalog_fetched_at"] = snapshot.FetchedAt
	}
	return c.JSON(http.StatusOK, status)
}
