// Package middleware содержит HTTP middleware сервиса магазина.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mmeshcher/storefront-system/internal/auth"
	"github.com/mmeshcher/storefront-system/internal/model"
)

type contextKey string

const identityKey contextKey = "identity"

// msgCredentials — единое сообщение для всех ошибок аутентификации,
// не раскрывающее причину отказа.
const msgCredentials = "could not validate credentials"

// Identity — проверенная личность владельца запроса.
type Identity struct {
	UserID int64
	Role   model.Role
}

// UserSource описывает доступ к учётным записям, нужный middleware
// для проверки существования владельца токена.
type UserSource interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// AuthMiddleware выполняет проверку аутентификации по bearer-токену.
type AuthMiddleware struct {
	tokens *auth.TokenManager
	users  UserSource
}

// NewAuthMiddleware создаёт middleware с указанным менеджером токенов
// и источником учётных записей.
func NewAuthMiddleware(tokens *auth.TokenManager, users UserSource) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		users:  users,
	}
}

// Middleware проверяет access-токен запроса, убеждается, что его владелец
// всё ещё существует, и добавляет личность в контекст запроса. Токен может
// пережить удаление учётной записи, поэтому поиск пользователя обязателен.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r)
		if !ok {
			http.Error(w, msgCredentials, http.StatusUnauthorized)
			return
		}

		id, err := a.tokens.Verify(tokenString)
		if err != nil || id.Kind != auth.TokenKindAccess {
			http.Error(w, msgCredentials, http.StatusUnauthorized)
			return
		}

		u, err := a.users.GetUserByID(r.Context(), id.UserID)
		if err != nil {
			http.Error(w, msgCredentials, http.StatusUnauthorized)
			return
		}

		identity := Identity{UserID: u.ID, Role: u.Role}
		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}

	return parts[1], true
}

// RequireAdmin пропускает только администраторов.
func RequireAdmin(next http.Handler) http.Handler {
	return requireRole(model.RoleAdmin, next)
}

// RequireUser пропускает только обычных пользователей.
func RequireUser(next http.Handler) http.Handler {
	return requireRole(model.RoleUser, next)
}

// requireRole сверяет роль личности из контекста с требуемой. Несовпадение
// даёт 403 — в отличие от 401, личность здесь уже проверена.
func requireRole(required model.Role, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			http.Error(w, msgCredentials, http.StatusUnauthorized)
			return
		}

		switch identity.Role {
		case required:
			next.ServeHTTP(w, r)
		case model.RoleAdmin, model.RoleUser:
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		default:
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		}
	})
}

// IdentityFromContext извлекает личность пользователя из контекста запроса.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
