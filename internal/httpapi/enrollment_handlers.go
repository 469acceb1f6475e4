package httpapi

import (
	"net/http"

	"coursehub.org/internal/audit"
)

func (a *API) enroll(w http.ResponseWriter, r *http.Request, courseID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if courseID == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	p, ok := a.principal(w, r)
	if !ok {
		return
	}

	if err := a.enrollment.Enroll(r.Context(), p.ID, courseID); err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "enrollment.enroll", map[string]any{
		"course_id": courseID,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "enrolled"})
}

func (a *API) unenroll(w http.ResponseWriter, r *http.Request, courseID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if courseID == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	p, ok := a.principal(w, r)
	if !ok {
		return
	}

	if err := a.enrollment.Unenroll(r.Context(), p.ID, courseID); err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "enrollment.unenroll", map[string]any{
		"course_id": courseID,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "unenrolled"})
}
