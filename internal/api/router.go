package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	CORSAllowedOrigins []string
}

func NewRouter(cfg RouterConfig, h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(Logging)
	r.Use(middleware.Recoverer)
	r.Use(Metrics)
	r.Use(cors.Handler(CORS(cfg.CORSAllowedOrigins)))

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/messages", h.SendMessage)
		r.Get("/messages", h.ListMessages)
		r.Delete("/messages", h.ClearMessages)
		r.Get("/quota", h.GetQuota)
		r.Get("/health", h.Health)
	})

	return r
}
