package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"coursehub.org/internal/auth"
	"coursehub.org/internal/course"
	"coursehub.org/internal/enrollment"
	"coursehub.org/internal/obs"
	"coursehub.org/internal/user"
)

// ReadyProbe pings the backing database when one is configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer. It owns routing and translates domain errors
// into response codes; all business rules live below it.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	users      user.Store
	courses    course.Store
	enrollment *enrollment.Coordinator
	tokens     *auth.TokenService
	reset      *auth.ResetFlow

	// secureCookies toggles the Secure attribute on session cookies.
	secureCookies bool
}

// Config carries the collaborators the API needs.
type Config struct {
	ReadyProbe    ReadyProbe
	Version       string
	Users         user.Store
	Courses       course.Store
	Enrollment    *enrollment.Coordinator
	Tokens        *auth.TokenService
	Reset         *auth.ResetFlow
	SecureCookies bool
}

func New(cfg Config) *API {
	a := &API{
		mux:           http.NewServeMux(),
		readyProbe:    cfg.ReadyProbe,
		version:       cfg.Version,
		users:         cfg.Users,
		courses:       cfg.Courses,
		enrollment:    cfg.Enrollment,
		tokens:        cfg.Tokens,
		reset:         cfg.Reset,
		secureCookies: cfg.SecureCookies,
	}

	resetLimiter := FixedWindowLimit(resetWindow, resetWindowMax)

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/api/auth/register", a.handleRegister)
	a.mux.HandleFunc("/api/auth/login", a.handleLogin)
	a.mux.Handle("/api/auth/logout", a.withSession(http.HandlerFunc(a.handleLogout)))
	a.mux.Handle("/api/auth/profile", a.withSession(http.HandlerFunc(a.handleProfile)))
	a.mux.Handle("/api/auth/forgot-password", resetLimiter(http.HandlerFunc(a.handleForgotPassword)))
	a.mux.Handle("/api/auth/reset-password/", resetLimiter(http.HandlerFunc(a.handleResetPassword)))

	a.mux.HandleFunc("/api/courses", a.handleCoursesCollection)
	a.mux.HandleFunc("/api/courses/", a.handleCourseResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	return a
}

// Handler returns the API wrapped with request metrics.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.mux)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "coursehub-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

// fieldError is a single failed input field in a validation response.
type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeValidationError(w http.ResponseWriter, r *http.Request, fields []fieldError) {
	payload := map[string]any{
		"error":  "validation failed",
		"fields": fields,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, http.StatusBadRequest, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleDomainError maps sentinel errors from the layers below onto the
// response taxonomy. Everything unrecognised is a masked 500.
func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, user.ErrNotFound), errors.Is(err, course.ErrNotFound), errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, user.ErrAlreadyExists), errors.Is(err, course.ErrSlugTaken):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, enrollment.ErrAlreadyEnrolled), errors.Is(err, enrollment.ErrNotEnrolled):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, course.ErrInvalidFilter):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, auth.ErrTokenExpired):
		writeError(w, r, http.StatusUnauthorized, "invalid or expired token")
	case errors.Is(err, auth.ErrDeliveryFailure):
		writeError(w, r, http.StatusBadGateway, "could not deliver reset email")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
