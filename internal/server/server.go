// Package server serves the portfolio page and streams each page session's
// greeting screen and counters to the browser.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Zachkp/zach-portfolio/internal/content"
	"github.com/Zachkp/zach-portfolio/internal/greeting"
	"github.com/Zachkp/zach-portfolio/internal/logging"
	"github.com/Zachkp/zach-portfolio/internal/session"
	"github.com/Zachkp/zach-portfolio/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// Store is the persistence the server needs.
type Store interface {
	RecordVisit(ctx context.Context, hashedIP, userAgent, path string) error
	Stats(ctx context.Context) (*store.Stats, error)
	RecentVisitors(ctx context.Context, limit int) ([]store.VisitorMetric, error)
	CleanupVisitors(ctx context.Context) (int64, error)
}

// Sessions is the page-session surface the handlers drive.
type Sessions interface {
	Create() (string, error)
	Start(id string) (<-chan session.Event, error)
	Report(id, region string, ratio float64) (bool, error)
	Snapshot(id string) (session.Snapshot, error)
	Close(id string) error
}

// Options configure the server.
type Options struct {
	Port          int
	Mode          string
	AdminUsername string
	AdminPassword string
	Content       content.Content
	Region        string
	Threshold     float64

	// StaticDir is served under /static when set.
	StaticDir string
}

// Server is the portfolio HTTP server.
type Server struct {
	opts     Options
	engine   *gin.Engine
	sessions Sessions
	store    Store
	admin    *adminAuth
	logger   zerolog.Logger

	// writes tracks visit inserts still running in the background.
	writes sync.WaitGroup
}

// New builds the server and its routes.
func New(opts Options, sessions Sessions, st Store) (*Server, error) {
	if sessions == nil {
		return nil, errors.New("sessions are required")
	}
	if len(opts.Content.Greetings) == 0 {
		return nil, fmt.Errorf("content: %w", greeting.ErrNoEntries)
	}
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"formatTime": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		opts:     opts,
		sessions: sessions,
		store:    st,
		logger:   logging.Component("server"),
	}
	s.admin = newAdminAuth(opts.AdminUsername, opts.AdminPassword, s.logger)

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(gin.Recovery(), requestLogger(s.logger))
	if st != nil {
		r.Use(s.visitorTracking())
	}
	s.engine = r
	s.routes()
	return s, nil
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("portfolio server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info().Msg("portfolio server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Wait blocks until background visit writes have finished.
func (s *Server) Wait() {
	s.writes.Wait()
}

func (s *Server) routes() {
	r := s.engine

	if s.opts.StaticDir != "" {
		r.Static("/static", s.opts.StaticDir)
	}

	r.GET("/", s.handleIndex)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{
			"title": "Privacy Policy",
		})
	})

	sessions := r.Group("/session/:id")
	sessions.GET("", s.handleSnapshot)
	sessions.GET("/events", s.handleEvents)
	sessions.POST("/visibility", s.handleVisibility)
	sessions.POST("/close", s.handleClose)

	s.setupAdminRoutes(r)
}

// requestLogger logs one line per request.
func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		ev := logger.Debug()
		if status >= http.StatusInternalServerError {
			ev = logger.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
