package httpapi

import (
	"context"
	"net/http"

	"coursehub.org/internal/auth"
	"coursehub.org/internal/user"
)

// principal returns the authenticated principal or short-circuits with 401.
// Handlers behind withSession always have one; the check guards against
// mis-registered routes.
func (a *API) principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return auth.Principal{}, false
	}
	return p, true
}

// requireRole short-circuits with 403 unless the principal holds one of
// the given roles.
func (a *API) requireRole(w http.ResponseWriter, r *http.Request, p auth.Principal, roles ...user.Role) bool {
	for _, role := range roles {
		if p.Role == role {
			return true
		}
	}
	writeError(w, r, http.StatusForbidden, "insufficient role")
	return false
}

// requireCourseOwner loads the course and passes iff the principal is
// its instructor or an admin. A missing course is reported as 404, not
// 403, so owners and strangers see the same thing for absent resources.
func (a *API) requireCourseOwner(ctx context.Context, w http.ResponseWriter, r *http.Request, p auth.Principal, courseID string) bool {
	c, err := a.courses.Find(ctx, courseID)
	if err != nil {
		handleDomainError(w, r, err)
		return false
	}
	if p.Role == user.RoleAdmin || c.Instructor == p.ID {
		return true
	}
	writeError(w, r, http.StatusForbidden, "not the course owner")
	return false
}
