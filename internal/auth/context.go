package auth

import (
	"context"

	"coursehub.org/internal/user"
)

// Principal is the authenticated identity attached to a request context by
// the session middleware. Downstream gates and handlers receive it
// explicitly typed; nothing past the middleware runs without one.
type Principal struct {
	ID    string
	Name  string
	Email string
	Role  user.Role
}

// PrincipalFromUser builds a Principal from a stored user record.
func PrincipalFromUser(u *user.User) Principal {
	return Principal{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

type principalContextKey struct{}

// ContextWithPrincipal attaches the authenticated principal to the context.
func ContextWithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, &principal)
}

// PrincipalFromContext extracts the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	v, ok := ctx.Value(principalContextKey{}).(*Principal)
	if !ok || v == nil {
		return Principal{}, false
	}
	return *v, true
}
