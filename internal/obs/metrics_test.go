package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                   "/",
		"/metrics":                           "/metrics",
		"/api/auth/login":                    "/api/auth/login",
		"/api/auth/reset-password/abc.def.g": "/api/auth/reset-password/:token",
		"/api/auth/reset-password/":          "/api/auth/reset-password/",
		"/api/courses":                       "/api/courses",
		"/api/courses/01ABCDEF":              "/api/courses/:id",
		"/api/courses/01ABCDEF/enroll":       "/api/courses/:id/enroll",
		"/api/courses/01ABCDEF/unenroll":     "/api/courses/:id/unenroll",
		"/api/courses/a/b/enroll":            "/api/courses/a/b/enroll",
		"/api/courses?difficulty=beginner":   "/api/courses",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
