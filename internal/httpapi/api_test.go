package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"coursehub.org/internal/auth"
	"coursehub.org/internal/enrollment"
	"coursehub.org/internal/store/memory"
)

// testEnv bundles an API over the in-memory store with a capture mailer.
type testEnv struct {
	api    *API
	store  *memory.Store
	tokens *auth.TokenService
	mailer *captureMailer
}

type captureMailer struct {
	lastBody string
	fail     bool
}

func (m *captureMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.fail {
		return context.DeadlineExceeded
	}
	m.lastBody = body
	return nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	tokens, err := auth.NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	mailer := &captureMailer{}
	reset, err := auth.NewResetFlow(tokens, store.Users(), mailer, "http://localhost:8080")
	if err != nil {
		t.Fatalf("NewResetFlow: %v", err)
	}
	api := New(Config{
		Version:    "test",
		Users:      store.Users(),
		Courses:    store.Courses(),
		Enrollment: enrollment.NewCoordinator(store.Users(), store.Courses(), store.Members()),
		Tokens:     tokens,
		Reset:      reset,
	})
	return &testEnv{api: api, store: store, tokens: tokens, mailer: mailer}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	e.api.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return body
}

func sessionCookieFrom(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func (e *testEnv) register(t *testing.T, name, email, role string) *http.Cookie {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"name": name, "email": email, "password": "secret123", "role": role,
	}, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d: %s", email, rr.Code, rr.Body.String())
	}
	return sessionCookieFrom(t, rr)
}

func TestRegisterSetsCookieAndHidesHash(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"name": "Alice", "email": "a@x.com", "password": "secret123",
	}, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	cookie := sessionCookieFrom(t, rr)
	if !cookie.HttpOnly {
		t.Fatal("session cookie must be HttpOnly")
	}
	if cookie.SameSite != http.SameSiteStrictMode {
		t.Fatal("session cookie must be SameSite=Strict")
	}

	body := decodeBody(t, rr)
	if body["email"] != "a@x.com" {
		t.Fatalf("unexpected email: %v", body["email"])
	}
	if body["role"] != "student" {
		t.Fatalf("expected default role student, got %v", body["role"])
	}
	if strings.Contains(rr.Body.String(), "hash") || strings.Contains(rr.Body.String(), "$2a$") {
		t.Fatalf("response leaks password material: %s", rr.Body.String())
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"name": "Al", "email": "not-an-email", "password": "short", "role": "wizard",
	}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["error"] != "validation failed" {
		t.Fatalf("unexpected error: %v", body["error"])
	}
	fields, ok := body["fields"].([]any)
	if !ok || len(fields) != 4 {
		t.Fatalf("expected 4 field errors, got %v", body["fields"])
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Alice", "a@x.com", "")
	rr := env.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"name": "Alice Again", "email": "a@x.com", "password": "secret123",
	}, nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestLoginScenarios(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Alice", "a@x.com", "")

	rr := env.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email": "a@x.com", "password": "secret123",
	}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	sessionCookieFrom(t, rr)
	body := decodeBody(t, rr)
	if body["name"] != "Alice" {
		t.Fatalf("unexpected profile: %v", body)
	}
	if strings.Contains(rr.Body.String(), "$2a$") {
		t.Fatal("login response leaks password hash")
	}

	// Wrong password and unknown email must be indistinguishable.
	wrongPass := env.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email": "a@x.com", "password": "wrong",
	}, nil)
	unknown := env.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email": "ghost@x.com", "password": "secret123",
	}, nil)
	if wrongPass.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrongPass.Code, unknown.Code)
	}
	if decodeBody(t, wrongPass)["error"] != decodeBody(t, unknown)["error"] {
		t.Fatal("login failures must share one message")
	}
}

func TestProfileRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/api/auth/profile", nil, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	cookie := env.register(t, "Alice", "a@x.com", "")
	rr = env.do(t, http.MethodGet, "/api/auth/profile", nil, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if _, ok := body["courses_enrolled"]; !ok {
		t.Fatalf("profile missing derived sets: %v", body)
	}
}

func TestSessionRejectsGarbageAndResetTokens(t *testing.T) {
	env := newTestEnv(t)
	cookie := &http.Cookie{Name: sessionCookieName, Value: "garbage"}
	rr := env.do(t, http.MethodGet, "/api/auth/profile", nil, cookie)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: expected 401, got %d", rr.Code)
	}

	env.register(t, "Alice", "a@x.com", "")
	u, err := env.store.Users().FindByEmail(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	resetToken, _, err := env.tokens.IssueReset(u.ID)
	if err != nil {
		t.Fatalf("IssueReset: %v", err)
	}
	rr = env.do(t, http.MethodGet, "/api/auth/profile", nil, &http.Cookie{Name: sessionCookieName, Value: resetToken})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("reset token as session: expected 401, got %d", rr.Code)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "Alice", "a@x.com", "")

	rr := env.do(t, http.MethodPost, "/api/auth/logout", nil, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	cleared := sessionCookieFrom(t, rr)
	if cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Fatalf("cookie not cleared: value=%q maxage=%d", cleared.Value, cleared.MaxAge)
	}
}

func TestPasswordResetRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Alice", "a@x.com", "")

	rr := env.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]any{"email": "a@x.com"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("forgot-password: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	const prefix = "/api/auth/reset-password/"
	idx := strings.Index(env.mailer.lastBody, prefix)
	if idx < 0 {
		t.Fatalf("no reset link in mail body: %s", env.mailer.lastBody)
	}
	token := strings.Fields(env.mailer.lastBody[idx+len(prefix):])[0]

	rr = env.do(t, http.MethodPost, prefix+token, map[string]any{"password": "brandnew1"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("reset-password: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	login := env.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email": "a@x.com", "password": "brandnew1",
	}, nil)
	if login.Code != http.StatusOK {
		t.Fatalf("login with new password: expected 200, got %d", login.Code)
	}
	old := env.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email": "a@x.com", "password": "secret123",
	}, nil)
	if old.Code != http.StatusUnauthorized {
		t.Fatalf("login with old password: expected 401, got %d", old.Code)
	}
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]any{"email": "ghost@x.com"}, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestForgotPasswordDeliveryFailure(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Alice", "a@x.com", "")
	env.mailer.fail = true

	rr := env.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]any{"email": "a@x.com"}, nil)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestResetPasswordBadToken(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodPost, "/api/auth/reset-password/garbage", map[string]any{"password": "brandnew1"}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestCourseLifecycle(t *testing.T) {
	env := newTestEnv(t)
	instructor := env.register(t, "Bob", "b@x.com", "instructor")

	rr := env.do(t, http.MethodPost, "/api/courses", map[string]any{
		"title": "Go Basics", "description": "An introduction.", "price": 1000, "difficulty": "beginner",
	}, instructor)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	created := decodeBody(t, rr)
	if created["slug"] != "go-basics" {
		t.Fatalf("expected derived slug, got %v", created["slug"])
	}
	courseID := created["id"].(string)

	get := env.do(t, http.MethodGet, "/api/courses/go-basics", nil, nil)
	if get.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", get.Code)
	}

	list := env.do(t, http.MethodGet, "/api/courses?difficulty=beginner", nil, nil)
	if list.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", list.Code)
	}
	items, ok := decodeBody(t, list)["items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("expected one listed course, got %v", items)
	}

	update := env.do(t, http.MethodPut, "/api/courses/"+courseID, map[string]any{
		"price": 2000,
	}, instructor)
	if update.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", update.Code, update.Body.String())
	}
	if decodeBody(t, update)["price"].(float64) != 2000 {
		t.Fatal("price not updated")
	}

	del := env.do(t, http.MethodDelete, "/api/courses/"+courseID, nil, instructor)
	if del.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", del.Code)
	}
	if env.do(t, http.MethodGet, "/api/courses/go-basics", nil, nil).Code != http.StatusNotFound {
		t.Fatal("deleted course still resolves")
	}
}

func TestCourseCreateRequiresInstructor(t *testing.T) {
	env := newTestEnv(t)
	student := env.register(t, "Alice", "a@x.com", "")

	rr := env.do(t, http.MethodPost, "/api/courses", map[string]any{
		"title": "Sneaky Course", "price": 0,
	}, student)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestCourseMutationRequiresOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "Bob", "b@x.com", "instructor")
	rival := env.register(t, "Eve", "e@x.com", "instructor")
	admin := env.register(t, "Root", "r@x.com", "admin")

	rr := env.do(t, http.MethodPost, "/api/courses", map[string]any{
		"title": "Go Basics", "price": 1000,
	}, owner)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", rr.Code)
	}
	courseID := decodeBody(t, rr)["id"].(string)

	if got := env.do(t, http.MethodPut, "/api/courses/"+courseID, map[string]any{"price": 1}, rival); got.Code != http.StatusForbidden {
		t.Fatalf("rival update: expected 403, got %d", got.Code)
	}
	if got := env.do(t, http.MethodDelete, "/api/courses/"+courseID, nil, rival); got.Code != http.StatusForbidden {
		t.Fatalf("rival delete: expected 403, got %d", got.Code)
	}
	if got := env.do(t, http.MethodPut, "/api/courses/"+courseID, map[string]any{"price": 1}, admin); got.Code != http.StatusOK {
		t.Fatalf("admin update: expected 200, got %d", got.Code)
	}
	if got := env.do(t, http.MethodDelete, "/api/courses/ghost", nil, owner); got.Code != http.StatusNotFound {
		t.Fatalf("missing course: expected 404, got %d", got.Code)
	}
}

func TestDuplicateSlugConflict(t *testing.T) {
	env := newTestEnv(t)
	instructor := env.register(t, "Bob", "b@x.com", "instructor")

	first := env.do(t, http.MethodPost, "/api/courses", map[string]any{"title": "Go Basics", "price": 0}, instructor)
	if first.Code != http.StatusCreated {
		t.Fatalf("first create: expected 201, got %d", first.Code)
	}
	second := env.do(t, http.MethodPost, "/api/courses", map[string]any{"title": "Go Basics", "price": 0}, instructor)
	if second.Code != http.StatusConflict {
		t.Fatalf("second create: expected 409, got %d", second.Code)
	}
}

func TestEnrollUnenrollFlow(t *testing.T) {
	env := newTestEnv(t)
	instructor := env.register(t, "Bob", "b@x.com", "instructor")
	student := env.register(t, "Alice", "a@x.com", "")

	rr := env.do(t, http.MethodPost, "/api/courses", map[string]any{"title": "Go Basics", "price": 0}, instructor)
	courseID := decodeBody(t, rr)["id"].(string)

	if got := env.do(t, http.MethodPost, "/api/courses/"+courseID+"/enroll", nil, nil); got.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous enroll: expected 401, got %d", got.Code)
	}

	if got := env.do(t, http.MethodPost, "/api/courses/"+courseID+"/enroll", nil, student); got.Code != http.StatusOK {
		t.Fatalf("enroll: expected 200, got %d: %s", got.Code, got.Body.String())
	}
	if got := env.do(t, http.MethodPost, "/api/courses/"+courseID+"/enroll", nil, student); got.Code != http.StatusConflict {
		t.Fatalf("duplicate enroll: expected 409, got %d", got.Code)
	}

	profile := env.do(t, http.MethodGet, "/api/auth/profile", nil, student)
	enrolled, ok := decodeBody(t, profile)["courses_enrolled"].([]any)
	if !ok || len(enrolled) != 1 || enrolled[0] != courseID {
		t.Fatalf("profile does not reflect enrollment: %v", enrolled)
	}

	if got := env.do(t, http.MethodPost, "/api/courses/"+courseID+"/unenroll", nil, student); got.Code != http.StatusOK {
		t.Fatalf("unenroll: expected 200, got %d", got.Code)
	}
	if got := env.do(t, http.MethodPost, "/api/courses/"+courseID+"/unenroll", nil, student); got.Code != http.StatusConflict {
		t.Fatalf("repeat unenroll: expected 409, got %d", got.Code)
	}
	if got := env.do(t, http.MethodPost, "/api/courses/ghost/enroll", nil, student); got.Code != http.StatusNotFound {
		t.Fatalf("enroll in missing course: expected 404, got %d", got.Code)
	}
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)
	if got := env.do(t, http.MethodGet, "/healthz", nil, nil); got.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", got.Code)
	}
	if got := env.do(t, http.MethodGet, "/readyz", nil, nil); got.Code != http.StatusOK {
		t.Fatalf("readyz: expected 200, got %d", got.Code)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email": "a@x.com", "password": "x", "extra": true,
	}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodDelete, "/api/auth/login", nil, nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
	if rr.Header().Get("Allow") == "" {
		t.Fatal("expected Allow header")
	}
}

func TestSessionCookieAttributes(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "Alice", "a@x.com", "")
	if cookie.MaxAge <= 0 {
		t.Fatalf("expected positive MaxAge, got %d", cookie.MaxAge)
	}
	if got := time.Until(cookie.Expires); got < 29*24*time.Hour {
		t.Fatalf("session cookie expires too soon: %v", got)
	}
}
