package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/FACorreiaa/meu-holerite/pkg/httpx"
)

// NewRouter mounts every handler under /api/v1 behind the shared middleware stack.
func NewRouter(d *Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(httpx.RequestLogger(d.Logger))
	r.Use(httpx.CORS(d.Config.Server.AllowedOrigins))
	r.Use(d.Metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.Success(w, r, map[string]string{"status": "ok"})
	})
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httpx.RateLimit(d.Config.Server.RateLimitPerSecond, d.Config.Server.RateLimitBurst))

		d.ImportHandler.RegisterRoutes(r)
		if d.OverrideHandler != nil {
			d.OverrideHandler.RegisterRoutes(r)
		}
		d.InsightsHandler.RegisterRoutes(r)
		d.ExportHandler.RegisterRoutes(r)
	})

	return r
}
