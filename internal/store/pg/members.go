package pg

import (
	"context"
	"database/sql"

	"github.com/jackc/pgerrcode"

	"coursehub.org/internal/course"
	"coursehub.org/internal/enrollment"
	"coursehub.org/internal/user"
)

type memberStore struct{ db *sql.DB }

var _ enrollment.Store = (*memberStore)(nil)

// Add inserts the membership pair. A single-row insert into the one
// source-of-truth table is atomic to concurrent readers of either derived
// set, and the composite primary key makes double-insert impossible even
// when two requests race past the coordinator's existence check.
func (s *memberStore) Add(ctx context.Context, userID, courseID string) error {
	res, err := s.db.ExecContext(ctx, `
		insert into enrollments(user_id, course_id)
		values ($1,$2)
		on conflict (user_id, course_id) do nothing
	`, userID, courseID)
	if err != nil {
		if code, constraint := pgErrCode(err); code == pgerrcode.ForeignKeyViolation {
			if constraint == "enrollments_course_id_fkey" {
				return course.ErrNotFound
			}
			return user.ErrNotFound
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return enrollment.ErrAlreadyEnrolled
	}
	return nil
}

// Remove deletes the membership pair.
func (s *memberStore) Remove(ctx context.Context, userID, courseID string) error {
	res, err := s.db.ExecContext(ctx, `
		delete from enrollments where user_id=$1 and course_id=$2
	`, userID, courseID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return enrollment.ErrNotEnrolled
	}
	return nil
}
