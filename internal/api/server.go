package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/aaricantto/GraphFS/internal/graphfs"
	"github.com/aaricantto/GraphFS/internal/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds graceful shutdown
const shutdownTimeout = 30 * time.Second

// Server represents the HTTP API server
type Server struct {
	router *chi.Mux
	fs     *graphfs.GraphFS
	config *types.APIConfig
	log    *zap.Logger
}

// NewServer creates a new API server
func NewServer(fs *graphfs.GraphFS, config *types.APIConfig, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	router := NewRouter(fs)

	return &Server{
		router: router.SetupRoutes(),
		fs:     fs,
		config: config,
		log:    log,
	}
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
}

// Run serves until ctx is canceled, then shuts the HTTP server down and
// closes the backend.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:        s.Addr(),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout stays unset: it would cut the event stream.
		IdleTimeout: 60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("starting GraphFS API server",
			zap.String("addr", httpServer.Addr),
			zap.String("api", fmt.Sprintf("http://%s/api/v1/", httpServer.Addr)),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// Closing the backend first ends open event streams.
		if err := s.fs.Close(); err != nil {
			s.log.Error("error closing backend", zap.Error(err))
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// GetRouter returns the configured router
func (s *Server) GetRouter() *chi.Mux {
	return s.router
}
