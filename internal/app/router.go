package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/sipaten-app/sipaten/internal/auth"
	"github.com/sipaten-app/sipaten/internal/observability"
	"github.com/sipaten-app/sipaten/internal/refdata"
	"github.com/sipaten-app/sipaten/internal/shared"
	"github.com/sipaten-app/sipaten/internal/tagihan"
	"github.com/sipaten-app/sipaten/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	AuthHandler    *auth.Handler
	AuthMiddleware *auth.Middleware
	TagihanHandler *tagihan.Handler
	RefdataHandler *refdata.Handler
	JobsHandler    *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter assembles the chi router.
func NewRouter(p RouterParams) http.Handler {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         p.Logger,
		Config:         p.Config,
		SessionManager: p.SessionManager,
		Metrics:        p.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		// Tighter limit on the credential endpoint.
		r.Use(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		p.AuthHandler.MountRoutes(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(p.AuthMiddleware.RequireUser)
		p.TagihanHandler.MountRoutes(r, p.AuthMiddleware)
		p.RefdataHandler.MountRoutes(r)
		if p.JobsHandler != nil {
			r.Route("/jobs", p.JobsHandler.MountRoutes)
		}
	})

	return r
}
