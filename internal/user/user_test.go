package user

import "testing"

func TestParseRole(t *testing.T) {
	cases := []struct {
		raw  string
		want Role
		ok   bool
	}{
		{"", RoleStudent, true},
		{"student", RoleStudent, true},
		{" Instructor ", RoleInstructor, true},
		{"ADMIN", RoleAdmin, true},
		{"superuser", "", false},
	}
	for _, tc := range cases {
		got, err := ParseRole(tc.raw)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("ParseRole(%q) = %v, %v; want %v", tc.raw, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("ParseRole(%q): expected error", tc.raw)
		}
	}
}
