// ABOUTME: Huma API server configuration and setup
// ABOUTME: Provides OpenAPI documentation and request/response validation

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"content-fetch-api/api/handlers"
	"content-fetch-api/api/middleware"
	"content-fetch-api/core/fetch"
	"content-fetch-api/core/interfaces"
)

const (
	apiTitle   = "Content Fetch API"
	apiVersion = "1.0.0"
)

// APIConfig holds configuration for the API
type APIConfig struct {
	Logger     interfaces.Logger
	RateLimit  int           // requests per window
	RateWindow time.Duration // rate limit window
}

// Services are the collaborators the handlers expose. Collector may be nil.
type Services struct {
	Runner    fetch.BatchRunner
	Collector handlers.Collector
	Robots    handlers.RobotsInspector
	Policies  handlers.PolicySource
}

// NewAPI creates a bare Huma API on a chi router
func NewAPI() (huma.API, chi.Router) {
	return NewAPIWithMiddleware(APIConfig{})
}

// NewAPIWithMiddleware creates a new API with middleware configured
func NewAPIWithMiddleware(cfg APIConfig) (huma.API, chi.Router) {
	router := chi.NewRouter()

	// CORS must run first so preflight requests are answered before limits apply
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.Logger != nil {
		router.Use(middleware.RequestLoggingMiddleware(cfg.Logger))
	}

	if cfg.RateLimit > 0 && cfg.RateWindow > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
		router.Use(middleware.RateLimitMiddleware(limiter))
	}

	config := huma.DefaultConfig(apiTitle, apiVersion)
	config.Info.Description = "Fetches web pages through escalating strategies while honoring robots.txt and per-domain pacing"

	api := humachi.New(router, config)
	return api, router
}

// NewServer wires every route into a ready http.Handler
func NewServer(cfg APIConfig, svc Services) http.Handler {
	api, router := NewAPIWithMiddleware(cfg)

	handlers.NewFetchHandler(svc.Runner, svc.Collector).RegisterRoutes(api)
	handlers.NewInspectHandler(svc.Robots, svc.Policies).RegisterRoutes(api)

	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"System"},
	}, func(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
		out := &HealthOutput{}
		out.Body.Status = "ok"
		return out, nil
	})

	return router
}

// HealthOutput reports liveness
type HealthOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}
