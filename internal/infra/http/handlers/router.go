package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/ligue-crm/internal/infra/http/middleware"
)

type RouterConfig struct {
	Dashboard      *DashboardHandler
	Edit           *EditHandler
	Health         *HealthHandler
	Realtime       http.Handler
	AllowedOrigins []string
	AccessLog      bool
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	if cfg.AccessLog {
		r.Use(chimw.Logger)
	}
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	if cfg.Health != nil {
		r.Get("/health", cfg.Health.Handle)
	}
	r.Handle("/metrics", promhttp.Handler())

	if d := cfg.Dashboard; d != nil {
		r.Route("/leads", func(r chi.Router) {
			r.Get("/", d.List)
			r.Get("/page", d.Page)
			r.Get("/kpis", d.KPIs)
			r.Get("/charts", d.Charts)
			r.Get("/kanban", d.Kanban)
			r.Get("/export", d.Export)
			r.Post("/refresh", d.Refresh)
			r.Get("/{id}", d.Lead)
		})
		r.Get("/stages", d.Stages)
	}

	if e := cfg.Edit; e != nil {
		r.Route("/edit", func(r chi.Router) {
			r.Get("/", e.Current)
			r.Patch("/", e.Update)
			r.Delete("/", e.Discard)
			r.Post("/commit", e.Commit)
			r.Post("/{id}", e.Open)
		})
	}

	if cfg.Realtime != nil {
		r.Get("/ws", cfg.Realtime.ServeHTTP)
	}

	return r
}
