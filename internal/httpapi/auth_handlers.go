package httpapi

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"coursehub.org/internal/audit"
	"coursehub.org/internal/auth"
	"coursehub.org/internal/ids"
	"coursehub.org/internal/user"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// profileResponse is the public view of a user. The password hash never
// leaves the store layer in any response shape.
type profileResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Role            user.Role `json:"role"`
	CreatedAt       time.Time `json:"created_at"`
	CoursesEnrolled []string  `json:"courses_enrolled"`
	CoursesCreated  []string  `json:"courses_created"`
}

func profileOf(u *user.User) profileResponse {
	enrolled := u.CoursesEnrolled
	if enrolled == nil {
		enrolled = []string{}
	}
	created := u.CoursesCreated
	if created == nil {
		created = []string{}
	}
	return profileResponse{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            u.Role,
		CreatedAt:       u.CreatedAt,
		CoursesEnrolled: enrolled,
		CoursesCreated:  created,
	}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var fields []fieldError
	name := strings.TrimSpace(req.Name)
	if len(name) < 3 || len(name) > 50 {
		fields = append(fields, fieldError{Field: "name", Message: "must be between 3 and 50 characters"})
	}
	email := normalizeEmail(req.Email)
	if !validEmail(email) {
		fields = append(fields, fieldError{Field: "email", Message: "must be a valid email address"})
	}
	if len(req.Password) < 8 || len(req.Password) > 72 {
		fields = append(fields, fieldError{Field: "password", Message: "must be between 8 and 72 characters"})
	}
	role, err := user.ParseRole(req.Role)
	if err != nil {
		fields = append(fields, fieldError{Field: "role", Message: "must be one of student, instructor, admin"})
	}
	if len(fields) > 0 {
		writeValidationError(w, r, fields)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	u := &user.User{
		ID:           ids.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.users.Create(r.Context(), u); err != nil {
		handleDomainError(w, r, err)
		return
	}

	token, expiresAt, err := a.tokens.IssueSession(u.ID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"user_id": u.ID,
		"email":   u.Email,
		"role":    string(u.Role),
	})

	http.SetCookie(w, a.sessionCookie(token, expiresAt))
	writeJSON(w, http.StatusCreated, profileOf(u))
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	// Unknown email and wrong password produce the same response, so a
	// caller cannot probe which addresses are registered via login.
	u, err := a.users.FindByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			writeError(w, r, http.StatusUnauthorized, "invalid email or password")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		writeError(w, r, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, expiresAt, err := a.tokens.IssueSession(u.ID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id": u.ID,
	})

	http.SetCookie(w, a.sessionCookie(token, expiresAt))
	writeJSON(w, http.StatusOK, profileOf(u))
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		_ = audit.LogEvent(r.Context(), "auth.logout", map[string]any{
			"user_id": p.ID,
		})
	}

	http.SetCookie(w, a.clearedCookie())
	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	p, ok := a.principal(w, r)
	if !ok {
		return
	}

	u, err := a.users.Find(r.Context(), p.ID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileOf(u))
}

func (a *API) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	email := normalizeEmail(req.Email)
	if !validEmail(email) {
		writeValidationError(w, r, []fieldError{{Field: "email", Message: "must be a valid email address"}})
		return
	}

	if err := a.reset.RequestReset(r.Context(), email); err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.reset.request", map[string]any{
		"email": email,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "reset_email_sent"})
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	token := strings.TrimPrefix(r.URL.Path, "/api/auth/reset-password/")
	if token == "" || strings.Contains(token, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Password) < 8 || len(req.Password) > 72 {
		writeValidationError(w, r, []fieldError{{Field: "password", Message: "must be between 8 and 72 characters"}})
		return
	}

	if err := a.reset.ConsumeReset(r.Context(), token, req.Password); err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.reset.consume", nil)
	writeJSON(w, http.StatusOK, map[string]any{"status": "password_updated"})
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
