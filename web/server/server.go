package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/df07/go-interactive-pathtracer/pkg/log"
	"github.com/df07/go-interactive-pathtracer/pkg/renderer"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Server exposes one interactive render session over HTTP
type Server struct {
	port      int
	staticDir string
	renderer  *renderer.Renderer
	echo      *echo.Echo
	events    *Broadcaster
	console   *ConsoleWriter
	logger    log.Logger
}

// NewServer creates a web server around r. staticDir, if set, is served at /.
func NewServer(r *renderer.Renderer, port int, staticDir string) *Server {
	s := &Server{
		port:      port,
		staticDir: staticDir,
		renderer:  r,
		echo:      echo.New(),
		events:    NewBroadcaster(),
		logger:    log.New("server"),
	}
	s.console = NewConsoleWriter(s.events)

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(corsMiddleware)
	s.echo.Use(s.requestLogger)

	s.routes()
	return s
}

func (s *Server) routes() {
	if s.staticDir != "" {
		s.echo.Static("/", s.staticDir)
	}

	api := s.echo.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/stream", s.handleStream)
	api.GET("/frame", s.handleFrame)
	api.GET("/stats", s.handleStats)

	api.GET("/scenes", s.handlePresets)
	api.GET("/scene", s.handleScene)
	api.POST("/scene", s.handleLoadPreset)
	api.GET("/scene/export", s.handleExport)

	api.PUT("/camera", s.handlePlaceCamera)
	api.POST("/camera/move", s.handleMoveCamera)
	api.POST("/camera/rotate", s.handleRotateCamera)

	api.POST("/primitives", s.handleAddPrimitive)
	api.PUT("/primitives/:index/material", s.handleSetMaterial)
	api.DELETE("/primitives/:index", s.handleDeletePrimitive)

	api.PUT("/skydome", s.handleSkydome)
	api.POST("/resize", s.handleResize)
	api.POST("/restart", s.handleRestart)
	api.GET("/pick", s.handlePick)
}

// Handler returns the HTTP handler, for embedding or testing
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Console returns a writer that forwards log lines to stream subscribers
func (s *Server) Console() *ConsoleWriter {
	return s.console
}

// Start runs the render loop and serves HTTP until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames, errs := s.renderer.RenderProgressive(ctx, renderer.RenderOptions{})
	go s.publishFrames(frames)

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			s.logger.Errorf("Error shutting down server: %v", err)
		}
	}()

	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Noticef("Starting web server on http://localhost%s", addr)

	err := s.echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	cancel()
	if renderErr := <-errs; renderErr != nil && !errors.Is(renderErr, context.Canceled) && err == nil {
		err = renderErr
	}
	return err
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		s.logger.Debugf("%s %s %d %v", c.Request().Method, c.Request().URL.Path, c.Response().Status, time.Since(start))
		return err
	}
}

func corsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Access-Control-Allow-Origin", "*")
		c.Response().Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, DELETE")
		c.Response().Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")

		if c.Request().Method == http.MethodOptions {
			return c.NoContent(http.StatusOK)
		}

		return next(c)
	}
}

func errorJSON(c echo.Context, status int, format string, args ...interface{}) error {
	return c.JSON(status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

func accepted(c echo.Context) error {
	return c.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
}
