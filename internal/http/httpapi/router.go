package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"runner/internal/http/handlers"
	"runner/internal/infra"
	"runner/internal/middleware"
)

func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.CORS(cfg.CORSOrigins),
		middleware.RateLimit(cfg.RateLimitPerMin, time.Minute),
	)

	r.Get("/health", app.Health)

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", app.ListProjects)
		r.Post("/", app.CreateProject)
	})

	r.Post("/ask", app.Ask)
	r.Post("/plan", app.Plan)
	r.Post("/approve", app.Approve)
	r.Post("/execute", app.Execute)

	r.Get("/events", app.Events)
	r.Get("/job-status", app.JobStatus)
	r.Route("/jobs", func(r chi.Router) {
		r.Get("/", app.ListJobs)
		r.Get("/{id}", app.GetJob)
		r.Get("/{id}/artifacts.zip", app.JobArtifacts)
	})

	if cfg.WebAppDir != "" {
		fs := http.StripPrefix("/app/", http.FileServer(http.Dir(cfg.WebAppDir)))
		r.Handle("/app/*", fs)
		r.Get("/app", http.RedirectHandler("/app/", http.StatusMovedPermanently).ServeHTTP)
		r.Get("/", http.RedirectHandler("/app/", http.StatusFound).ServeHTTP)
	}

	return r
}
