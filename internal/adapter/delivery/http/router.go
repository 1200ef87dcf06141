// Package http provides the HTTP delivery layer for the URL shortener service.
// It wires the chi router, middleware stack and handlers that translate
// requests into use case calls.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/vadimbarashkov/shortlink/docs"
	"github.com/vadimbarashkov/shortlink/pkg/middleware/recoverer"

	shortlinkmw "github.com/vadimbarashkov/shortlink/pkg/middleware"
)

type routerOptions struct {
	limiter    rateLimiter
	trustProxy bool
}

type RouterOption func(*routerOptions)

// WithRateLimiter enables per-IP rate limiting for every route.
func WithRateLimiter(l rateLimiter) RouterOption {
	return func(o *routerOptions) {
		o.limiter = l
	}
}

// WithTrustProxy makes the rate limiter key clients by the address taken from
// X-Forwarded-For / X-Real-IP. Enable it only behind a proxy that sets them.
func WithTrustProxy(trust bool) RouterOption {
	return func(o *routerOptions) {
		o.trustProxy = trust
	}
}

// NewRouter initializes and returns a new Chi router configured with middleware and routes for the URL shortener API.
// Short URLs returned to clients are built from baseURL.
func NewRouter(logger *httplog.Logger, urlUseCase urlUseCase, baseURL string, opts ...RouterOption) *chi.Mux {
	var o routerOptions
	for _, opt := range opts {
		opt(&o)
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"POST", "GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(rememberPeer)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New(logger.Logger, serverErrorResponse))
	r.Use(shortlinkmw.SecureHeaders())
	if o.limiter != nil {
		r.Use(limitByIP(o.limiter, o.trustProxy))
	}

	r.NotFound(handleNotFound)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(docs.Swagger)
	})

	validate := validator.New()
	h := newURLHandler(urlUseCase, validate, baseURL)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", handlePing)

		r.Route("/shorten", func(r chi.Router) {
			r.Post("/", h.shortenURL)
			r.Get("/{shortCode}/stats", h.getURLStats)
		})
	})

	r.Get("/{shortCode}", h.redirect)

	return r
}
