package tagihan

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sipaten-app/sipaten/internal/audit"
	"github.com/sipaten-app/sipaten/internal/auth"
	"github.com/sipaten-app/sipaten/internal/platform/httpx"
)

// AuditReader lists the recorded transition history of a document.
type AuditReader interface {
	List(ctx context.Context, entity, entityID string) ([]audit.Entry, error)
}

// Handler exposes the lifecycle engine over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
	audits  AuditReader
}

// NewHandler constructs a Handler. audits may be nil; the history endpoint
// then serves an empty list.
func NewHandler(logger *slog.Logger, service *Service, audits AuditReader) *Handler {
	return &Handler{logger: logger, service: service, audits: audits}
}

func (h *Handler) actor(r *http.Request) (auth.Context, bool) {
	return auth.ActorFromContext(r.Context())
}

func (h *Handler) docID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", verr.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrAlreadyLocked):
		httpx.Problem(w, http.StatusConflict, "Locked", err.Error())
	case errors.Is(err, ErrStaleState):
		httpx.Problem(w, http.StatusConflict, "Stale State", err.Error())
	case errors.Is(err, ErrDuplicateSequence):
		httpx.Problem(w, http.StatusConflict, "Duplicate Sequence", err.Error())
	case errors.Is(err, ErrTerminal):
		httpx.Problem(w, http.StatusConflict, "Completed", err.Error())
	case errors.Is(err, ErrRevisionExpired):
		httpx.Problem(w, http.StatusConflict, "Revision Expired", err.Error())
	case errors.Is(err, ErrMissingReferenceData):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Missing Reference Data", err.Error())
	default:
		h.logger.Error("tagihan request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var req CreateTagihanRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	t, err := h.service.Submit(r.Context(), actor, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := h.docID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return
	}
	t, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := h.docID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return
	}
	var req UpdateTagihanRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	t, err := h.service.UpdateDraft(r.Context(), actor, id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := h.docID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return
	}
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor auth.Context, id uuid.UUID) (*Tagihan, error) {
		return h.service.Register(r.Context(), actor, id)
	})
}

type noteRequest struct {
	Note string `json:"note"`
}

func (h *Handler) SendBack(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	h.transition(w, r, func(actor auth.Context, id uuid.UUID) (*Tagihan, error) {
		return h.service.SendBackForRevision(r.Context(), actor, id, req.Note)
	})
}

func (h *Handler) Resubmit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor auth.Context, id uuid.UUID) (*Tagihan, error) {
		return h.service.Resubmit(r.Context(), actor, id)
	})
}

func (h *Handler) AcquireLock(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := h.docID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return
	}
	if err := h.service.AcquireLock(r.Context(), actor, id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "locked"})
}

func (h *Handler) ReleaseLock(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := h.docID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return
	}
	if err := h.service.ReleaseLock(r.Context(), actor, id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	h.transition(w, r, func(actor auth.Context, id uuid.UUID) (*Tagihan, error) {
		return h.service.Verify(r.Context(), actor, id, req)
	})
}

func (h *Handler) Correct(w http.ResponseWriter, r *http.Request) {
	var req CorrectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	h.transition(w, r, func(actor auth.Context, id uuid.UUID) (*Tagihan, error) {
		return h.service.Correct(r.Context(), actor, id, req)
	})
}

func (h *Handler) RegisterDisbursement(w http.ResponseWriter, r *http.Request) {
	var req DisbursementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	h.transition(w, r, func(actor auth.Context, id uuid.UUID) (*Tagihan, error) {
		return h.service.RegisterDisbursement(r.Context(), actor, id, req)
	})
}

func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	kind := QueueKind(chi.URLParam(r, "kind"))
	q := QueueQuery{
		Limit:  parseIntDefault(r.URL.Query().Get("limit"), 50),
		Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := TagihanStatus(v)
		q.Status = &status
	}
	if from := parseDate(r.URL.Query().Get("date_from")); from != nil {
		q.DateFrom = from
	}
	if to := parseDate(r.URL.Query().Get("date_to")); to != nil {
		q.DateTo = to
	}
	docs, err := h.service.Queue(r.Context(), actor, kind, q)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": docs, "count": len(docs)})
}

func (h *Handler) NextSequence(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	schedule := r.URL.Query().Get("schedule")
	year := parseIntDefault(r.URL.Query().Get("year"), time.Now().Year())
	if schedule == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "schedule is required")
		return
	}
	next, err := h.service.NextSPMSequence(r.Context(), actor, schedule, year)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"next_sequence": next})
}

// History serves the audit trail of one document. Visibility follows the same
// rule as Show: owners only see their own unit's documents.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := h.docID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return
	}
	if _, err := h.service.Get(r.Context(), actor, id); err != nil {
		h.respondError(w, err)
		return
	}
	var entries []audit.Entry
	if h.audits != nil {
		entries, err = h.audits.List(r.Context(), "tagihan", id.String())
		if err != nil {
			h.respondError(w, err)
			return
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": entries, "count": len(entries)})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(auth.Context, uuid.UUID) (*Tagihan, error)) {
	actor, ok := h.actor(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := h.docID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return
	}
	t, err := fn(actor, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
