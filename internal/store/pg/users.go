package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"coursehub.org/internal/ids"
	"coursehub.org/internal/user"
)

type userStore struct{ db *sql.DB }

var _ user.Store = (*userStore)(nil)

func (s *userStore) Create(ctx context.Context, u *user.User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	u.Email = strings.ToLower(u.Email)
	err := s.db.QueryRowContext(ctx, `
		insert into users(id, name, email, password_hash, role)
		values ($1,$2,$3,$4,$5)
		returning created_at
	`, u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role)).Scan(&u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *userStore) Find(ctx context.Context, id string) (*user.User, error) {
	return s.find(ctx, `where id=$1`, id)
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.find(ctx, `where email=$1`, strings.ToLower(email))
}

func (s *userStore) find(ctx context.Context, where string, arg any) (*user.User, error) {
	var (
		u    user.User
		role string
	)
	err := s.db.QueryRowContext(ctx,
		`select id, name, email, password_hash, role, created_at from users `+where, arg,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Role = user.Role(role)

	// Both course sets derive from single sources of truth: the
	// enrollments table and courses.instructor_id.
	u.CoursesEnrolled, err = scanIDs(s.db.QueryContext(ctx,
		`select course_id from enrollments where user_id=$1 order by course_id`, u.ID))
	if err != nil {
		return nil, err
	}
	u.CoursesCreated, err = scanIDs(s.db.QueryContext(ctx,
		`select id from courses where instructor_id=$1 order by id`, u.ID))
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *userStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set password_hash=$2 where id=$1`, id, passwordHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func scanIDs(rows *sql.Rows, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
