package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/rpattn/testbed-analytics/internal/config"
	"github.com/rpattn/testbed-analytics/internal/job"
)

const shutdownTimeout = 30 * time.Second

// HTTPServer bundles the HTTP listener and its background jobs.
type HTTPServer struct {
	Engine *gin.Engine
	Logger *zap.Logger
	Config config.Config
	Probe  *job.StoreProbe
}

func NewHTTPServer(engine *gin.Engine, logger *zap.Logger, cfg config.Config, probe *job.StoreProbe) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPServer{Engine: engine, Logger: logger, Config: cfg, Probe: probe}
}

// Handler returns the engine wrapped in the CORS policy.
func (s *HTTPServer) Handler() http.Handler {
	origins := s.Config.HTTP.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Disposition"},
	}).Handler(s.Engine)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen := strings.TrimSpace(s.Config.HTTP.Listen)
	if listen == "" {
		listen = ":8080"
	}
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *HTTPServer) Serve(ctx context.Context, ln net.Listener) error {
	stopProbe := s.Probe.Start(ctx)
	defer stopProbe()

	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.Config.HTTP.ReadTimeout,
		WriteTimeout: s.Config.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("http server starting", zap.String("listen", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	s.Logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.Logger.Info("http server stopped")
	return nil
}
