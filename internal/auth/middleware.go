package auth

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sipaten-app/sipaten/internal/platform/httpx"
	"github.com/sipaten-app/sipaten/internal/shared"
)

// Middleware resolves the session user into an explicit actor Context and
// guards routes by role.
type Middleware struct {
	logger  *slog.Logger
	service *Service
}

// NewMiddleware constructs the auth middleware.
func NewMiddleware(logger *slog.Logger, service *Service) *Middleware {
	return &Middleware{logger: logger, service: service}
}

// RequireUser rejects unauthenticated requests and injects the actor Context.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
			return
		}
		userID, err := strconv.ParseInt(sess.User(), 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid session")
			return
		}
		user, err := m.service.GetUser(r.Context(), userID)
		if err != nil {
			m.logger.Warn("session user lookup failed", slog.Int64("user_id", userID), slog.Any("error", err))
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
			return
		}
		ctx := ContextWithActor(r.Context(), ContextFor(user))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows only the listed roles past.
func (m *Middleware) RequireRole(roles ...Role) func(http.Handler) http.Handler {
	allowed := make(map[Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
				return
			}
			if _, ok := allowed[actor.Role]; !ok {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "role not permitted")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
