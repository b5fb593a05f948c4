package tagihan

import (
	"github.com/go-chi/chi/v5"

	"github.com/sipaten-app/sipaten/internal/auth"
)

// MountRoutes registers the tagihan endpoints. Role enforcement happens twice:
// the route guards keep the wrong roles out early, and the service re-checks
// on every call.
func (h *Handler) MountRoutes(r chi.Router, mw *auth.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(auth.RoleSKPD))
		r.Post("/tagihan", h.Create)
		r.Put("/tagihan/{id}", h.Update)
		r.Delete("/tagihan/{id}", h.Delete)
		r.Post("/tagihan/{id}/resubmit", h.Resubmit)
		r.Get("/tagihan/next-sequence", h.NextSequence)
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(auth.RoleRegistrar))
		r.Post("/tagihan/{id}/register", h.Register)
		r.Post("/tagihan/{id}/send-back", h.SendBack)
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(auth.RoleVerifier, auth.RoleCorrector))
		r.Post("/tagihan/{id}/lock", h.AcquireLock)
		r.Delete("/tagihan/{id}/lock", h.ReleaseLock)
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(auth.RoleVerifier))
		r.Post("/tagihan/{id}/verify", h.Verify)
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(auth.RoleCorrector))
		r.Post("/tagihan/{id}/correct", h.Correct)
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(auth.RoleDisbursement))
		r.Post("/tagihan/{id}/sp2d", h.RegisterDisbursement)
	})
	r.Get("/tagihan/{id}", h.Show)
	r.Get("/tagihan/{id}/history", h.History)
	r.Get("/antrian/{kind}", h.Queue)
}
