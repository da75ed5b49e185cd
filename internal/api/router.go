package api

import (
	"time"

	"github.com/aaricantto/GraphFS/internal/api/handlers"
	apimiddleware "github.com/aaricantto/GraphFS/internal/api/middleware"
	"github.com/aaricantto/GraphFS/internal/graphfs"
	"github.com/aaricantto/GraphFS/internal/logging"
	"github.com/aaricantto/GraphFS/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// requestTimeout bounds every route except the event stream
const requestTimeout = 60 * time.Second

// Router represents the HTTP API router
type Router struct {
	fs *graphfs.GraphFS
}

// NewRouter creates a new API router
func NewRouter(fs *graphfs.GraphFS) *Router {
	return &Router{fs: fs}
}

// SetupRoutes configures all API routes using modular handlers
func (r *Router) SetupRoutes() *chi.Mux {
	router := chi.NewRouter()

	// Standard middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logging.Middleware)
	router.Use(metrics.Middleware)
	router.Use(middleware.Recoverer)

	// Custom middleware
	router.Use(apimiddleware.CORS)
	timeout := middleware.Timeout(requestTimeout)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(r.fs)
	sessionHandler := handlers.NewSessionHandler(r.fs)
	rootHandler := handlers.NewRootHandler(r.fs)
	watchHandler := handlers.NewWatchHandler(r.fs)
	fileHandler := handlers.NewFileHandler(r.fs)
	systemHandler := handlers.NewSystemHandler(r.fs)

	// Health check and metrics
	router.Get("/health", healthHandler.HealthCheck)
	router.Handle("/metrics", metrics.Handler())

	router.Route("/api/v1", func(api chi.Router) {
		api.With(timeout).Post("/sessions", sessionHandler.OpenSession)

		// Session-scoped operations
		api.Route("/sessions/{sid}", func(s chi.Router) {
			// The event stream is long-lived and stays outside the timeout.
			s.Get("/events", sessionHandler.Events)

			s.Group(func(s chi.Router) {
				s.Use(timeout)
				s.Delete("/", sessionHandler.CloseSession)

				s.Post("/roots", rootHandler.AddRoot)
				s.Get("/roots", rootHandler.ListRoots)
				s.Delete("/roots", rootHandler.RemoveRoot)
				s.Post("/list", rootHandler.ListDir)

				s.Get("/watch", watchHandler.List)
				s.Post("/watch", watchHandler.Enable)
				s.Delete("/watch", watchHandler.Disable)

				s.Post("/files/read", fileHandler.ReadFiles)
				s.Post("/files/zip", fileHandler.ZipFiles)
			})
		})

		// System operations
		api.Group(func(sys chi.Router) {
			sys.Use(timeout)
			sys.Get("/state", systemHandler.GetState)
			sys.Post("/state/favorites", systemHandler.ToggleFavorite)
			sys.Put("/log-level", systemHandler.SetLogLevel)
			sys.Get("/config", systemHandler.GetConfig)
		})
	})

	return router
}
