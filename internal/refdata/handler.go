package refdata

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sipaten-app/sipaten/internal/platform/httpx"
)

// Handler serves the reference data lookups.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers refdata routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/refdata/schedules", h.listSchedules)
	r.Get("/refdata/units/{name}", h.getUnit)
}

func (h *Handler) listSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.service.ActiveSchedules(r.Context())
	if err != nil {
		h.logger.Error("list schedules", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": schedules})
}

func (h *Handler) getUnit(w http.ResponseWriter, r *http.Request) {
	unit, err := h.service.Lookup(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown unit")
			return
		}
		h.logger.Error("lookup unit", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, unit)
}
