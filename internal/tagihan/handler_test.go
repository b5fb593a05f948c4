package tagihan

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sipaten-app/sipaten/internal/auth"
)

func newTestHandler(t *testing.T) (*Handler, *Service) {
	t.Helper()
	svc, _, _ := newTestService(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(logger, svc, nil), svc
}

// serve runs one request through the mounted routes with the actor already
// resolved, the way RequireUser does in production.
func serve(t *testing.T, h *Handler, actor auth.Context, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.ContextWithActor(req.Context(), actor)))
		})
	})
	h.MountRoutes(r, auth.NewMiddleware(logger, nil))

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

const createBody = `{
"description": "Belanja ATK triwulan I",
"gross_amount": 12500000,
"document_type": "TU",
"claim_type": "BARANG_JASA",
"funding_source": "APBD",
"schedule_code": "GU",
"document_date": "2025-03-10T09:00:00Z"
}`

func TestCreateEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := serve(t, h, owner, http.MethodPost, "/tagihan", createBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), "TU/GU/1.01/03/00001/III/2025")
	require.Contains(t, rec.Body.String(), `"status":"AWAITING_REGISTRATION"`)
}

func TestCreateEndpointRoleGuard(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := serve(t, h, registrar, http.MethodPost, "/tagihan", createBody)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateEndpointBadBody(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := serve(t, h, owner, http.MethodPost, "/tagihan", `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDuplicateSequenceConflict(t *testing.T) {
	h, svc := newTestHandler(t)
	mustSubmit(t, svc)

	body := strings.Replace(createBody, `"gross_amount": 12500000,`,
		`"gross_amount": 12500000, "sequence_number": 1,`, 1)
	rec := serve(t, h, owner, http.MethodPost, "/tagihan", body)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "sequence number")
}

func TestShowUnknownDocument(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := serve(t, h, owner, http.MethodGet, "/tagihan/6e1bd0f4-9071-4f3e-9f7a-0a5a3c6efb01", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLockConflictEndpoint(t *testing.T) {
	h, svc := newTestHandler(t)
	doc := mustSubmit(t, svc)
	mustRegister(t, svc, doc.ID)

	path := fmt.Sprintf("/tagihan/%s/lock", doc.ID)
	rec := serve(t, h, verifier, http.MethodPost, path, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, h, verifierB, http.MethodPost, path, "")
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestQueueForbiddenForWrongRole(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := serve(t, h, owner, http.MethodGet, "/antrian/registrar", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestQueueEndpoint(t *testing.T) {
	h, svc := newTestHandler(t)
	mustSubmit(t, svc)

	rec := serve(t, h, registrar, http.MethodGet, "/antrian/registrar", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"count":1`)
}

func TestNextSequenceEndpoint(t *testing.T) {
	h, svc := newTestHandler(t)
	mustSubmit(t, svc)

	rec := serve(t, h, owner, http.MethodGet, "/tagihan/next-sequence?schedule=GU&year=2025", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"next_sequence":2`)

	rec = serve(t, h, owner, http.MethodGet, "/tagihan/next-sequence", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
