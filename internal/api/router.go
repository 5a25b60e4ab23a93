package api

import (
	"net/http"
	"time"

	"github.com/example/lakehouse-shop/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Handlers       *Handlers
	Logger         *zap.Logger
	CORSOrigins    []string
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logging.Middleware(cfg.Logger))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", SessionHeader},
	}).Handler)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	h := cfg.Handlers

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/catalog", h.GetCatalog)

	r.Group(func(r chi.Router) {
		r.Use(h.withSession)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Get("/overlay", h.GetCartOverlay)
			r.Post("/items", h.AddItem)
			r.Put("/items/{id}", h.SetQuantity)
			r.Delete("/items/{id}", h.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", h.GetCheckout)
			r.Post("/", h.BeginCheckout)
			r.Post("/back", h.BackToCart)
			r.Post("/order", h.PlaceOrder)
			r.Post("/continue", h.ContinueShopping)
		})
	})

	return r
}
