package http

import (
	"context"
	"net/http"
	"strings"

	"storefront-service/internal/models"
	"storefront-service/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	sessionHeader = "X-Session-ID"
	sessionCookie = "session_id"
	refreshHeader = "X-Refresh-Token"
)

type TokenIntrospector interface {
	Introspect(ctx context.Context, access string) (*service.Claims, error)
}

// bearerToken достаёт access-токен из Authorization: Bearer <token>.
func bearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		return ""
	}
	prefix := "bearer "
	if len(authz) < len(prefix) || !strings.EqualFold(authz[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(authz[len(prefix):])
}

// withAuth кладёт идентичность из access-токена в контекст запроса.
// Без токена запрос проходит дальше как анонимный; требования к роли
// навешивает requireBearer/requireAdminRole.
func withAuth(tokens TokenIntrospector, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access := bearerToken(r)
			if access == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Introspect(r.Context(), access)
			if err != nil || claims.UserID == uuid.Nil {
				log.Debug("invalid access token", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			ctx := service.WithUserID(r.Context(), claims.UserID)
			ctx = service.WithRole(ctx, models.Role(claims.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireBearer отклоняет анонимные запросы.
func requireBearer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := service.UserIDFromContext(r.Context()); !ok {
			writeError(w, service.ErrUnauthorized)
			return
		}
		next(w, r)
	}
}

// requireAdminRole пускает только админов.
func requireAdminRole(next http.HandlerFunc) http.HandlerFunc {
	return requireBearer(func(w http.ResponseWriter, r *http.Request) {
		role, _ := service.RoleFromContext(r.Context())
		if role != models.RoleAdmin {
			writeError(w, service.ErrForbidden)
			return
		}
		next(w, r)
	})
}

// sessionKey достаёт ключ сессии из заголовка либо cookie; при
// отсутствии выдаёт новый и проставляет cookie.
func sessionKey(w http.ResponseWriter, r *http.Request) string {
	if key := r.Header.Get(sessionHeader); key != "" {
		return key
	}
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}

	key := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    key,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return key
}

func storedRefresh(r *http.Request) string {
	return r.Header.Get(refreshHeader)
}
