package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmeshcher/storefront-system/internal/auth"
	"github.com/mmeshcher/storefront-system/internal/model"
	"github.com/mmeshcher/storefront-system/internal/repository"
)

type stubUserSource struct {
	user *model.User
	err  error
}

func (s *stubUserSource) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return s.user, s.err
}

func newTestAuth(users UserSource) (*AuthMiddleware, *auth.TokenManager) {
	tokens := auth.NewTokenManager("test-secret", 30*time.Minute)
	return NewAuthMiddleware(tokens, users), tokens
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	users := &stubUserSource{user: &model.User{ID: 42, Role: model.RoleUser}}
	m, tokens := newTestAuth(users)

	tok, err := tokens.IssueAccess(42, model.RoleUser)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("identity not in context")
		}
		if identity.UserID != 42 {
			t.Fatalf("identity user id = %d, want 42", identity.UserID)
		}
		if identity.Role != model.RoleUser {
			t.Fatalf("identity role = %q, want user", identity.Role)
		}
	})

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer "+tok)

	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	m, _ := newTestAuth(&stubUserSource{})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)

	m.Middleware(next).ServeHTTP(w, r)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	users := &stubUserSource{user: &model.User{ID: 42, Role: model.RoleUser}}
	tokens := auth.NewTokenManager("test-secret", -1*time.Second)
	m := NewAuthMiddleware(tokens, users)

	tok, err := tokens.IssueAccess(42, model.RoleUser)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer "+tok)

	m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})).ServeHTTP(w, r)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_RefreshTokenRejected(t *testing.T) {
	users := &stubUserSource{user: &model.User{ID: 42, Role: model.RoleUser}}
	m, tokens := newTestAuth(users)

	tok, err := tokens.IssueRefresh(42, model.RoleUser)
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer "+tok)

	m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("refresh token must not authorize requests")
	})).ServeHTTP(w, r)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_DeletedAccount(t *testing.T) {
	users := &stubUserSource{err: repository.ErrUserNotFound}
	m, tokens := newTestAuth(users)

	tok, err := tokens.IssueAccess(42, model.RoleUser)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer "+tok)

	m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("token of a deleted account must not authorize requests")
	})).ServeHTTP(w, r)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		role       model.Role
		gate       func(http.Handler) http.Handler
		wantStatus int
	}{
		{name: "admin passes admin gate", role: model.RoleAdmin, gate: RequireAdmin, wantStatus: http.StatusOK},
		{name: "user fails admin gate", role: model.RoleUser, gate: RequireAdmin, wantStatus: http.StatusForbidden},
		{name: "user passes user gate", role: model.RoleUser, gate: RequireUser, wantStatus: http.StatusOK},
		{name: "admin fails user gate", role: model.RoleAdmin, gate: RequireUser, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/gated", nil)
			ctx := context.WithValue(r.Context(), identityKey, Identity{UserID: 1, Role: tt.role})

			tt.gate(next).ServeHTTP(w, r.WithContext(ctx))

			if w.Result().StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Result().StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestRequireRole_NoIdentity(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/gated", nil)

	RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run without identity")
	})).ServeHTTP(w, r)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}
