package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"coursehub.org/internal/course"
	"coursehub.org/internal/ids"
)

type courseStore struct{ db *sql.DB }

var _ course.Store = (*courseStore)(nil)

const courseColumns = `id, title, slug, description, price, difficulty, instructor_id, created_at`

func (s *courseStore) Create(ctx context.Context, c *course.Course) error {
	if c.ID == "" {
		c.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx, `
		insert into courses(id, title, slug, description, price, difficulty, instructor_id)
		values ($1,$2,$3,$4,$5,$6,$7)
		returning created_at
	`, c.ID, c.Title, c.Slug, c.Description, c.Price, string(c.Difficulty), c.Instructor).Scan(&c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return course.ErrSlugTaken
		}
		return err
	}
	return nil
}

func (s *courseStore) Find(ctx context.Context, id string) (*course.Course, error) {
	return s.find(ctx, `where id=$1`, id)
}

func (s *courseStore) FindBySlug(ctx context.Context, slug string) (*course.Course, error) {
	return s.find(ctx, `where slug=$1`, slug)
}

func (s *courseStore) find(ctx context.Context, where string, arg any) (*course.Course, error) {
	c, err := scanCourse(s.db.QueryRowContext(ctx,
		`select `+courseColumns+` from courses `+where, arg))
	if err != nil {
		return nil, err
	}
	c.StudentsEnrolled, err = scanIDs(s.db.QueryContext(ctx,
		`select user_id from enrollments where course_id=$1 order by user_id`, c.ID))
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *courseStore) List(ctx context.Context, f course.Filter) ([]*course.Course, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		p := arg("%" + search + "%")
		conds = append(conds, fmt.Sprintf("(title ilike %s or description ilike %s)", p, p))
	}
	if f.Difficulty != "" {
		conds = append(conds, "difficulty = "+arg(string(f.Difficulty)))
	}
	if f.MinPrice != nil {
		conds = append(conds, "price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, "price <= "+arg(*f.MaxPrice))
	}

	query := `select ` + courseColumns + ` from courses`
	if len(conds) > 0 {
		query += " where " + strings.Join(conds, " and ")
	}
	switch f.Sort {
	case "priceAsc":
		query += " order by price asc"
	case "priceDesc":
		query += " order by price desc"
	default:
		query += " order by created_at desc"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []*course.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (s *courseStore) Update(ctx context.Context, id string, upd course.Update) (*course.Course, error) {
	var (
		sets []string
		args = []any{id}
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if upd.Title != nil {
		sets = append(sets, "title = "+arg(*upd.Title))
	}
	if upd.Slug != nil {
		sets = append(sets, "slug = "+arg(*upd.Slug))
	}
	if upd.Description != nil {
		sets = append(sets, "description = "+arg(*upd.Description))
	}
	if upd.Price != nil {
		sets = append(sets, "price = "+arg(*upd.Price))
	}
	if upd.Difficulty != nil {
		sets = append(sets, "difficulty = "+arg(string(*upd.Difficulty)))
	}
	if len(sets) == 0 {
		return s.Find(ctx, id)
	}

	c, err := scanCourse(s.db.QueryRowContext(ctx,
		`update courses set `+strings.Join(sets, ", ")+` where id=$1 returning `+courseColumns,
		args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, course.ErrSlugTaken
		}
		return nil, err
	}
	c.StudentsEnrolled, err = scanIDs(s.db.QueryContext(ctx,
		`select user_id from enrollments where course_id=$1 order by user_id`, c.ID))
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *courseStore) Delete(ctx context.Context, id string) error {
	// Enrollments reference the course with on delete cascade, so the
	// membership rows disappear in the same statement's transaction.
	res, err := s.db.ExecContext(ctx, `delete from courses where id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return course.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourse(row rowScanner) (*course.Course, error) {
	var (
		c          course.Course
		difficulty string
	)
	err := row.Scan(&c.ID, &c.Title, &c.Slug, &c.Description, &c.Price, &difficulty, &c.Instructor, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, course.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Difficulty = course.Difficulty(difficulty)
	return &c, nil
}
