// Package server exposes the status HTTP surface: health and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/danmuck/invokereader/internal/auth"
	"github.com/danmuck/invokereader/internal/observability"
)

const (
	Version         = "0.1.0"
	shutdownTimeout = 5 * time.Second
)

// Status is the session state reported by /health.
type Status struct {
	SessionID string `json:"session_id,omitempty"`
	URL       string `json:"url,omitempty"`
	Connected bool   `json:"connected"`
}

// Options configures the status server. An empty MetricsToken leaves /metrics open.
type Options struct {
	Addr         string
	CORSOrigins  []string
	MetricsToken string
}

type Server struct {
	addr    string
	token   string
	router  *gin.Engine
	logger  zerolog.Logger
	started time.Time
	status  atomic.Pointer[Status]
}

func New(opts Options, logger zerolog.Logger) *Server {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(opts.CORSOrigins),
		AllowMethods: []string{http.MethodGet},
		AllowHeaders: []string{"Origin", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		addr:    opts.Addr,
		token:   opts.MetricsToken,
		router:  r,
		logger:  logger,
		started: time.Now(),
	}
	s.status.Store(&Status{})
	s.registerRoutes()
	return s
}

// SetStatus replaces the session state shown on /health.
func (s *Server) SetStatus(st Status) {
	s.status.Store(&st)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		st := s.status.Load()
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"uptime":     time.Since(s.started).String(),
			"version":    Version,
			"session_id": st.SessionID,
			"url":        st.URL,
			"connected":  st.Connected,
		})
	})
	metrics := []gin.HandlerFunc{gin.WrapH(promhttp.Handler())}
	if s.token != "" {
		metrics = append([]gin.HandlerFunc{auth.RequireBearer(auth.StaticToken{Token: s.token})}, metrics...)
	}
	s.router.GET("/metrics", metrics...)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("server.listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
