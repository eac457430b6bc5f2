package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-hrms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-hrms/internal/shared"
)

// SessionResolver maps a bearer token to a user id.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (int64, error)
}

// PrincipalLoader loads a user together with roles, scope and permissions.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, id int64) (Principal, error)
}

// Middleware wires authentication and RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Sessions   SessionResolver
	Principals PrincipalLoader
	Logger     *slog.Logger
}

// Authenticate resolves the bearer token into a Principal stored on the request context.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := shared.TokenFromRequest(r)
		if token == "" {
			httpx.Fail(w, http.StatusUnauthorized, "Unauthenticated")
			return
		}
		userID, err := m.Sessions.Resolve(r.Context(), token)
		if err != nil {
			if errors.Is(err, shared.ErrUnauthenticated) {
				httpx.Fail(w, http.StatusUnauthorized, "Unauthenticated")
				return
			}
			m.logError("rbac resolve session", err)
			httpx.Fail(w, http.StatusInternalServerError, "Something went wrong")
			return
		}
		principal, err := m.Principals.LoadPrincipal(r.Context(), userID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				httpx.Fail(w, http.StatusUnauthorized, "Unauthenticated")
				return
			}
			m.logError("rbac load principal", err)
			httpx.Fail(w, http.StatusInternalServerError, "Something went wrong")
			return
		}
		ctx := shared.ContextWithUserID(r.Context(), principal.ID)
		ctx = ContextWithPrincipal(ctx, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAny ensures the current principal has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.require(perms, hasAnyPermission)
}

// RequireAll ensures the current principal has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.require(perms, hasAllPermissions)
}

func (m Middleware) require(perms []string, check func(granted, required []string) bool) func(http.Handler) http.Handler {
	normalized := NormalizeNames(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.Fail(w, http.StatusUnauthorized, "Unauthenticated")
				return
			}
			if IsTopAuthority(principal) || check(principal.Permissions, normalized) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.Fail(w, http.StatusForbidden, "This action is unauthorized")
		})
	}
}

func (m Middleware) logError(msg string, err error) {
	if m.Logger != nil {
		m.Logger.Error(msg, slog.Any("error", err))
	}
}
