package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ytget/synqed/internal/bridge"
)

// DefaultAddr is where the engine listens unless configured otherwise
const DefaultAddr = "127.0.0.1:7861"

// Options configures a Server
type Options struct {
	Addr   string
	Logger *zap.Logger
	// Gatherer backs /metrics; nil disables the endpoint
	Gatherer prometheus.Gatherer
	Debug    bool
}

// Server serves one backend over HTTP
type Server struct {
	backend  bridge.Backend
	commands map[string]command
	log      *zap.Logger
	gin      *gin.Engine
	http     *http.Server
}

// New creates a server for b. Routes are registered immediately.
func New(b bridge.Backend, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	streams, stopStreams := context.WithCancel(context.Background())
	s := &Server{
		backend:  b,
		commands: commands(b),
		log:      opts.Logger.Named("server"),
		gin:      router,
		http: &http.Server{
			Addr:              opts.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return streams },
		},
	}
	// event streams never go idle on their own
	s.http.RegisterOnShutdown(stopStreams)

	router.Use(gin.Recovery())
	router.Use(s.accessLog())
	s.setupRoutes(opts.Gatherer)
	return s
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	api := s.gin.Group("/api")
	{
		api.POST("/invoke/:command", s.Invoke)
		api.GET("/events", s.Events)
	}
	s.gin.GET("/healthz", s.Health)
	if gatherer != nil {
		s.gin.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}

// accessLog logs every request once it has been served
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.http.Addr
}

// Run serves until ctx ends, then shuts down gracefully within timeout
func (s *Server) Run(ctx context.Context, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}
