package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/T3thr/Vertex-webapp-001-sub006/infrastructure/di"
	"github.com/T3thr/Vertex-webapp-001-sub006/interfaces/http/rest/handlers"
	"github.com/T3thr/Vertex-webapp-001-sub006/interfaces/http/rest/middleware"
	"github.com/T3thr/Vertex-webapp-001-sub006/pkg/auth"
	apperrors "github.com/T3thr/Vertex-webapp-001-sub006/pkg/errors"
)

// Router creates and configures the HTTP router
type Router struct {
	container *di.Container
	logger    *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(container *di.Container) *Router {
	return &Router{
		container: container,
		logger:    container.Logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() (http.Handler, error) {
	cfg := rt.container.Config

	router := chi.NewRouter()

	errorHandler := apperrors.NewErrorHandler(rt.logger, cfg.IsDevelopment())

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(errorHandler.Middleware)
	router.Use(middleware.Logger(rt.logger))

	if cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.vertex-novel.app"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Command-ID", "If-Match"},
			ExposedHeaders:   []string{"X-Request-ID", "ETag"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	validator, err := auth.NewJWTValidator(auth.JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     cfg.JWTSecret,
		Issuer:        cfg.JWTIssuer,
	})
	if err != nil {
		return nil, err
	}

	storyMapHandler := handlers.NewStoryMapHandler(
		rt.container.ApplyHandler,
		rt.container.CreateHandler,
		rt.container.GetHandler,
		rt.container.GetDocumentHandler,
		rt.container.ValidateHandler,
		cfg.MaxRequestBytes,
		rt.logger,
	)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(validator, rt.logger))

		r.Route("/novels/{novelID}/storymap", func(r chi.Router) {
			r.Get("/", storyMapHandler.GetStoryMap)
			r.Post("/commands", storyMapHandler.ApplyCommand)
		})

		r.Post("/storymap/validate", storyMapHandler.ValidateGraph)
		r.Get("/storymap/documents/{documentID}", storyMapHandler.GetDocumentByID)
	})

	return router, nil
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
