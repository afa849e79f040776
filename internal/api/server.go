package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/guitrading/tearsheet/pkg/tearsheet"
)

// Server serves a generated tearsheet over HTTP: the HTML report at the root
// and the underlying numbers as JSON.
type Server struct {
	router *gin.Engine
	sheet  *tearsheet.Tearsheet
	html   []byte
	addr   string
	server *http.Server
}

// Config contains server configuration
type Config struct {
	Host  string
	Port  int
	Sheet *tearsheet.Tearsheet
}

// NewServer creates a new tearsheet server. The HTML report is rendered once
// up front; the sheet is immutable after generation.
func NewServer(config Config) (*Server, error) {
	if config.Sheet == nil {
		return nil, errors.New("no tearsheet to serve")
	}

	html, err := config.Sheet.RenderHTML()
	if err != nil {
		return nil, fmt.Errorf("render tearsheet: %w", err)
	}

	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	server := &Server{
		router: router,
		sheet:  config.Sheet,
		html:   []byte(html),
		addr:   fmt.Sprintf("%s:%d", config.Host, config.Port),
	}

	// Setup routes
	server.setupRoutes()

	return server, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleReport)
	s.router.GET("/api/health", s.handleHealth)
	s.router.GET("/api/metrics", s.handleMetrics)
	s.router.GET("/api/tearsheet", s.handleTearsheet)
}

// handleReport serves the pre-rendered HTML report
func (s *Server) handleReport(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", s.html)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleMetrics returns just the summary statistics
func (s *Server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"strategy":  s.sheet.Strategy,
		"benchmark": s.sheet.Benchmark,
	})
}

// handleTearsheet returns the full tearsheet including derived series
func (s *Server) handleTearsheet(c *gin.Context) {
	c.JSON(http.StatusOK, s.sheet)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("Starting tearsheet server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	log.Info().Msg("Stopping tearsheet server")

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to stop server: %w", err)
		}
	}

	return nil
}

// LoggerMiddleware is a custom logging middleware for Gin
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		// Process request
		c.Next()

		logEvent := log.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP())

		if len(c.Errors) > 0 {
			logEvent.Str("errors", c.Errors.String())
		}

		logEvent.Msg("API request")
	}
}
