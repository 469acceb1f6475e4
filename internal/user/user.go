// Package user defines the principal model and its persistence contract.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("user: not found")
	ErrAlreadyExists = errors.New("user: already exists")
)

// Role is the closed set of principal roles. Unknown values are rejected
// at the boundary rather than stored.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// ParseRole validates a role supplied by a client. An empty value
// defaults to student.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.TrimSpace(strings.ToLower(raw))) {
	case "":
		return RoleStudent, nil
	case RoleStudent:
		return RoleStudent, nil
	case RoleInstructor:
		return RoleInstructor, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// User is a registered principal. PasswordHash is only ever mutated by the
// password-reset flow; CoursesEnrolled only by the enrollment coordinator.
// Both course sets are derived from the membership source of truth and are
// populated on reads that ask for them.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`

	CoursesEnrolled []string `json:"courses_enrolled,omitempty"`
	CoursesCreated  []string `json:"courses_created,omitempty"`
}

// Store describes persistence operations for users. Email uniqueness is
// enforced by the store; Create returns ErrAlreadyExists on duplicates.
type Store interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}
