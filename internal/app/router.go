// Package app assembles the register API's HTTP surface.
package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pos/internal/analytics"
	"github.com/noah-isme/toko-pos/internal/auth"
	"github.com/noah-isme/toko-pos/internal/catalog"
	"github.com/noah-isme/toko-pos/internal/health"
	"github.com/noah-isme/toko-pos/internal/invoice"
	"github.com/noah-isme/toko-pos/internal/obs"
	"github.com/noah-isme/toko-pos/internal/security"
)

// Handlers are the endpoint groups mounted by NewRouter. A nil group is not
// mounted.
type Handlers struct {
	Catalog   *catalog.Handler
	Invoice   *invoice.Handler
	Analytics *analytics.Handler
	Auth      *auth.Handler
	Health    health.Handler
	Metrics   http.Handler
}

// RouterConfig carries the cross-cutting middleware settings.
type RouterConfig struct {
	Handlers     Handlers
	Logger       zerolog.Logger
	HTTPMetrics  *obs.HTTPMetrics
	Tracing      bool
	Headers      security.Headers
	BodyLimit    int64
	CORSOrigins  []string
	APILimiter   func(http.Handler) http.Handler
	LoginLimiter func(http.Handler) http.Handler
	Idempotency  func(http.Handler) http.Handler
}

// NewRouter builds the chi router for the register API.
func NewRouter(cfg RouterConfig) http.Handler {
	h := cfg.Handlers
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Tracing {
		r.Use(obs.Tracing("pos-api"))
	}
	r.Use(obs.HTTPObs{Metrics: cfg.HTTPMetrics, Skip: []string{"/metrics", "/health/live", "/health/ready"}}.Middleware)
	r.Use(obs.RequestLogger{Logger: cfg.Logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins(cfg.CORSOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         300,
	}))
	r.Use(cfg.Headers.Middleware)

	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics)
	}
	r.Get("/health/live", h.Health.Live)
	r.Get("/health/ready", h.Health.Ready)

	r.Group(func(api chi.Router) {
		if cfg.APILimiter != nil {
			api.Use(cfg.APILimiter)
		}
		api.Use(security.BodyLimit{Max: cfg.BodyLimit}.Middleware)
		api.Use(middleware.Timeout(30 * time.Second))

		if c := h.Catalog; c != nil {
			api.Get("/search", c.Search)
			api.Get("/items/{id}", c.Item)
			api.Post("/additem", c.AddItem)
		}
		if inv := h.Invoice; inv != nil {
			api.With(optional(cfg.Idempotency)).Post("/invoice", inv.Save)
			api.Route("/invoices/{invoiceNo}", func(ir chi.Router) {
				ir.Get("/", inv.Get)
				ir.Get("/receipt.pdf", inv.ReceiptPDF)
				ir.Post("/print", inv.Print)
			})
		}
		if a := h.Analytics; a != nil {
			api.Get("/stats", a.Stats)
		}
		if au := h.Auth; au != nil {
			api.Route("/login", func(lr chi.Router) {
				lr.With(optional(cfg.LoginLimiter)).Post("/", au.Login)
				lr.Post("/register", au.Register)
			})
		}
	})
	return r
}

func optional(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}

func origins(configured []string) []string {
	if len(configured) == 0 {
		return []string{"*"}
	}
	return configured
}
