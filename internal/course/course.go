// Package course defines the course model and its persistence contract.
package course

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("course: not found")
	ErrSlugTaken     = errors.New("course: slug already exists")
	ErrInvalidFilter = errors.New("course: invalid filter")
)

// Difficulty is the closed set of course difficulty levels.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// ParseDifficulty validates a client-supplied difficulty. Empty defaults
// to beginner.
func ParseDifficulty(raw string) (Difficulty, error) {
	switch Difficulty(strings.TrimSpace(strings.ToLower(raw))) {
	case "":
		return DifficultyBeginner, nil
	case DifficultyBeginner:
		return DifficultyBeginner, nil
	case DifficultyIntermediate:
		return DifficultyIntermediate, nil
	case DifficultyAdvanced:
		return DifficultyAdvanced, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", raw)
	}
}

// Course is a published course. StudentsEnrolled is derived from the
// membership source of truth and only mutated through the enrollment
// coordinator; Instructor is the owning principal.
type Course struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	Price       int64      `json:"price"`
	Difficulty  Difficulty `json:"difficulty"`
	Instructor  string     `json:"instructor"`
	CreatedAt   time.Time  `json:"created_at"`

	StudentsEnrolled []string `json:"students_enrolled,omitempty"`
}

// Update carries optional field changes for a course. Nil fields are left
// untouched.
type Update struct {
	Title       *string
	Slug        *string
	Description *string
	Price       *int64
	Difficulty  *Difficulty
}

// Filter narrows and orders course listings.
type Filter struct {
	Search     string
	Difficulty Difficulty
	MinPrice   *int64
	MaxPrice   *int64
	Sort       string // newest | priceAsc | priceDesc
}

// Store describes persistence operations for courses. Slug uniqueness is
// enforced by the store; Create and Update return ErrSlugTaken on
// duplicates.
type Store interface {
	Create(ctx context.Context, c *Course) error
	Find(ctx context.Context, id string) (*Course, error)
	FindBySlug(ctx context.Context, slug string) (*Course, error)
	List(ctx context.Context, f Filter) ([]*Course, error)
	Update(ctx context.Context, id string, upd Update) (*Course, error)
	Delete(ctx context.Context, id string) error
}
