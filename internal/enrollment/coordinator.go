// Package enrollment coordinates course membership. A course is in a
// user's enrolled set exactly when the user is in the course's student
// set; that symmetry holds because each backend keeps one storage-level
// source of truth and mutates it atomically.
package enrollment

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"coursehub.org/internal/course"
	"coursehub.org/internal/user"
)

var (
	// ErrAlreadyEnrolled is returned when the membership pair already exists.
	ErrAlreadyEnrolled = errors.New("enrollment: already enrolled")

	// ErrNotEnrolled is returned when unenrolling a pair that does not exist.
	ErrNotEnrolled = errors.New("enrollment: not enrolled")
)

// Store mutates the membership source of truth. Both operations are
// atomic with respect to concurrent readers of either derived set, and
// Add is dedup-safe at the storage layer (composite key or set
// semantics), not via a caller-side existence check.
type Store interface {
	Add(ctx context.Context, userID, courseID string) error
	Remove(ctx context.Context, userID, courseID string) error
}

// Coordinator performs enroll/unenroll operations against the membership
// store after validating that both entities exist. Transient store
// failures are retried here, at the operation boundary, so an enroll is
// never reported failed with the membership half-applied.
type Coordinator struct {
	users   user.Store
	courses course.Store
	members Store
	backoff func() retry.Backoff
}

// NewCoordinator wires a Coordinator from its collaborators.
func NewCoordinator(users user.Store, courses course.Store, members Store) *Coordinator {
	return &Coordinator{
		users:   users,
		courses: courses,
		members: members,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(2, retry.NewConstant(50*time.Millisecond))
		},
	}
}

// Enroll adds the user to the course. Either entity missing fails with the
// package sentinel of the absent entity; an existing membership fails with
// ErrAlreadyEnrolled. Two concurrent calls for the same pair produce
// exactly one success and one membership entry.
func (c *Coordinator) Enroll(ctx context.Context, userID, courseID string) error {
	if _, err := c.users.Find(ctx, userID); err != nil {
		return err
	}
	if _, err := c.courses.Find(ctx, courseID); err != nil {
		return err
	}
	return c.mutate(ctx, func(ctx context.Context) error {
		return c.members.Add(ctx, userID, courseID)
	})
}

// Unenroll removes the user from the course, symmetric to Enroll. A pair
// that is not enrolled fails with ErrNotEnrolled.
func (c *Coordinator) Unenroll(ctx context.Context, userID, courseID string) error {
	if _, err := c.users.Find(ctx, userID); err != nil {
		return err
	}
	if _, err := c.courses.Find(ctx, courseID); err != nil {
		return err
	}
	return c.mutate(ctx, func(ctx context.Context) error {
		return c.members.Remove(ctx, userID, courseID)
	})
}

// mutate runs a membership mutation with bounded retries on transient
// errors. Domain outcomes (duplicate, missing) are final and returned
// as-is; the mutation itself is idempotent, so a retry after an ambiguous
// failure cannot double-apply.
func (c *Coordinator) mutate(ctx context.Context, fn func(context.Context) error) error {
	return retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrAlreadyEnrolled),
			errors.Is(err, ErrNotEnrolled),
			errors.Is(err, user.ErrNotFound),
			errors.Is(err, course.ErrNotFound):
			return err
		default:
			return retry.RetryableError(err)
		}
	})
}
