// Package pg implements the user, course and enrollment stores on
// PostgreSQL. Membership lives in a single enrollments table with a
// composite primary key; both derived sets are read from it, so the
// symmetry invariant cannot be observed half-applied and duplicate
// enrollment is rejected by the constraint, not by callers.
package pg

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"coursehub.org/internal/course"
	"coursehub.org/internal/enrollment"
	"coursehub.org/internal/user"
)

// Store wraps the connection pool and exposes per-entity views.
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL with pool defaults tuned for the API.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing handle (used by tests with sqlmock).
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the handle for readiness probes and migrations.
func (s *Store) DB() *sql.DB { return s.db }

// Users returns the user.Store view.
func (s *Store) Users() user.Store { return &userStore{db: s.db} }

// Courses returns the course.Store view.
func (s *Store) Courses() course.Store { return &courseStore{db: s.db} }

// Members returns the enrollment.Store view.
func (s *Store) Members() enrollment.Store { return &memberStore{db: s.db} }

// pgErrCode extracts the PostgreSQL error code, if any.
func pgErrCode(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

func isUniqueViolation(err error) bool {
	code, _ := pgErrCode(err)
	return code == pgerrcode.UniqueViolation
}
