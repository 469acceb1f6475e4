// Package memory provides an in-process store used by tests and local
// development. A single lock guards users, courses and membership, so the
// two derived membership sets can never be observed out of sync.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"coursehub.org/internal/course"
	"coursehub.org/internal/enrollment"
	"coursehub.org/internal/ids"
	"coursehub.org/internal/user"
)

type memberKey struct {
	userID   string
	courseID string
}

// Store holds all state behind one mutex and exposes per-entity views.
type Store struct {
	mu            sync.RWMutex
	users         map[string]*user.User
	usersByEmail  map[string]string
	courses       map[string]*course.Course
	coursesBySlug map[string]string
	members       map[memberKey]time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:         make(map[string]*user.User),
		usersByEmail:  make(map[string]string),
		courses:       make(map[string]*course.Course),
		coursesBySlug: make(map[string]string),
		members:       make(map[memberKey]time.Time),
	}
}

// Users returns the user.Store view.
func (s *Store) Users() user.Store { return &userView{s} }

// Courses returns the course.Store view.
func (s *Store) Courses() course.Store { return &courseView{s} }

// Members returns the enrollment.Store view.
func (s *Store) Members() enrollment.Store { return &memberView{s} }

// Users ---------------------------------------------------------------

type userView struct{ s *Store }

var _ user.Store = (*userView)(nil)

func (v *userView) Create(ctx context.Context, u *user.User) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, ok := s.usersByEmail[email]; ok {
		return user.ErrAlreadyExists
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	cp := *u
	s.users[cp.ID] = &cp
	s.usersByEmail[email] = cp.ID
	return nil
}

func (v *userView) Find(ctx context.Context, id string) (*user.User, error) {
	s := v.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return s.userCopy(u), nil
}

func (v *userView) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	s := v.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, user.ErrNotFound
	}
	return s.userCopy(s.users[id]), nil
}

func (v *userView) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return user.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

// userCopy derives both course sets; callers hold at least a read lock.
func (s *Store) userCopy(u *user.User) *user.User {
	cp := *u
	cp.CoursesEnrolled = nil
	cp.CoursesCreated = nil
	for key := range s.members {
		if key.userID == u.ID {
			cp.CoursesEnrolled = append(cp.CoursesEnrolled, key.courseID)
		}
	}
	for id, c := range s.courses {
		if c.Instructor == u.ID {
			cp.CoursesCreated = append(cp.CoursesCreated, id)
		}
	}
	sort.Strings(cp.CoursesEnrolled)
	sort.Strings(cp.CoursesCreated)
	return &cp
}

// Courses -------------------------------------------------------------

type courseView struct{ s *Store }

var _ course.Store = (*courseView)(nil)

func (v *courseView) Create(ctx context.Context, c *course.Course) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.coursesBySlug[c.Slug]; ok {
		return course.ErrSlugTaken
	}
	if c.ID == "" {
		c.ID = ids.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	cp := *c
	s.courses[cp.ID] = &cp
	s.coursesBySlug[cp.Slug] = cp.ID
	return nil
}

func (v *courseView) Find(ctx context.Context, id string) (*course.Course, error) {
	s := v.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, course.ErrNotFound
	}
	return s.courseCopy(c), nil
}

func (v *courseView) FindBySlug(ctx context.Context, slug string) (*course.Course, error) {
	s := v.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.coursesBySlug[slug]
	if !ok {
		return nil, course.ErrNotFound
	}
	return s.courseCopy(s.courses[id]), nil
}

func (v *courseView) List(ctx context.Context, f course.Filter) ([]*course.Course, error) {
	s := v.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := []*course.Course{}
	search := strings.ToLower(strings.TrimSpace(f.Search))
	for _, c := range s.courses {
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Title), search) &&
			!strings.Contains(strings.ToLower(c.Description), search) {
			continue
		}
		if f.Difficulty != "" && c.Difficulty != f.Difficulty {
			continue
		}
		if f.MinPrice != nil && c.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && c.Price > *f.MaxPrice {
			continue
		}
		res = append(res, s.courseCopy(c))
	}

	switch f.Sort {
	case "priceAsc":
		sort.Slice(res, func(i, j int) bool { return res[i].Price < res[j].Price })
	case "priceDesc":
		sort.Slice(res, func(i, j int) bool { return res[i].Price > res[j].Price })
	default: // newest first
		sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	}
	return res, nil
}

func (v *courseView) Update(ctx context.Context, id string, upd course.Update) (*course.Course, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, course.ErrNotFound
	}
	if upd.Slug != nil && *upd.Slug != c.Slug {
		if _, taken := s.coursesBySlug[*upd.Slug]; taken {
			return nil, course.ErrSlugTaken
		}
		delete(s.coursesBySlug, c.Slug)
		c.Slug = *upd.Slug
		s.coursesBySlug[c.Slug] = id
	}
	if upd.Title != nil {
		c.Title = *upd.Title
	}
	if upd.Description != nil {
		c.Description = *upd.Description
	}
	if upd.Price != nil {
		c.Price = *upd.Price
	}
	if upd.Difficulty != nil {
		c.Difficulty = *upd.Difficulty
	}
	return s.courseCopy(c), nil
}

func (v *courseView) Delete(ctx context.Context, id string) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[id]
	if !ok {
		return course.ErrNotFound
	}
	delete(s.coursesBySlug, c.Slug)
	delete(s.courses, id)
	for key := range s.members {
		if key.courseID == id {
			delete(s.members, key)
		}
	}
	return nil
}

func (s *Store) courseCopy(c *course.Course) *course.Course {
	cp := *c
	cp.StudentsEnrolled = nil
	for key := range s.members {
		if key.courseID == c.ID {
			cp.StudentsEnrolled = append(cp.StudentsEnrolled, key.userID)
		}
	}
	sort.Strings(cp.StudentsEnrolled)
	return &cp
}

// Membership ----------------------------------------------------------

type memberView struct{ s *Store }

var _ enrollment.Store = (*memberView)(nil)

// Add inserts the membership pair. The pair set is the single source of
// truth for both derived sets, so the insert is atomic to any reader and
// a duplicate insert is impossible regardless of caller races.
func (v *memberView) Add(ctx context.Context, userID, courseID string) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return user.ErrNotFound
	}
	if _, ok := s.courses[courseID]; !ok {
		return course.ErrNotFound
	}
	key := memberKey{userID: userID, courseID: courseID}
	if _, ok := s.members[key]; ok {
		return enrollment.ErrAlreadyEnrolled
	}
	s.members[key] = time.Now().UTC()
	return nil
}

// Remove deletes the membership pair.
func (v *memberView) Remove(ctx context.Context, userID, courseID string) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey{userID: userID, courseID: courseID}
	if _, ok := s.members[key]; !ok {
		return enrollment.ErrNotEnrolled
	}
	delete(s.members, key)
	return nil
}
