package httpapi

import (
	"errors"
	"net/http"
	"time"

	"coursehub.org/internal/auth"
	"coursehub.org/internal/user"
)

const sessionCookieName = "token"

// withSession authenticates the request from the session cookie and
// attaches the resolved principal to the context. Absent cookie, bad
// token, wrong token kind and stale principal all collapse into a
// single 401 so the response does not reveal which check failed.
func (a *API) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}

		principalID, kind, err := a.tokens.Verify(cookie.Value)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		if kind != auth.TokenKindSession {
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}

		u, err := a.users.Find(r.Context(), principalID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				writeError(w, r, http.StatusUnauthorized, "authentication required")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), auth.PrincipalFromUser(u))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionCookie builds the session cookie set on register and login.
func (a *API) sessionCookie(token string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteStrictMode,
	}
}

// clearedCookie expires the session cookie immediately.
func (a *API) clearedCookie() *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteStrictMode,
	}
}
