package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"coursehub.org/internal/audit"
	"coursehub.org/internal/course"
	"coursehub.org/internal/ids"
	"coursehub.org/internal/user"
)

type createCourseRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Difficulty  string `json:"difficulty"`
}

type updateCourseRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Price       *int64  `json:"price"`
	Difficulty  *string `json:"difficulty"`
}

type listCoursesResponse struct {
	Items []*course.Course `json:"items"`
	AsOf  time.Time        `json:"as_of"`
}

func (a *API) handleCoursesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.withSession(http.HandlerFunc(a.createCourse)).ServeHTTP(w, r)
	case http.MethodGet:
		a.listCourses(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleCourseResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/courses/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if id, ok := strings.CutSuffix(path, "/enroll"); ok {
		a.withSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a.enroll(w, r, id)
		})).ServeHTTP(w, r)
		return
	}
	if id, ok := strings.CutSuffix(path, "/unenroll"); ok {
		a.withSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a.unenroll(w, r, id)
		})).ServeHTTP(w, r)
		return
	}
	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getCourse(w, r, path)
	case http.MethodPut:
		a.withSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a.updateCourse(w, r, path)
		})).ServeHTTP(w, r)
	case http.MethodDelete:
		a.withSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a.deleteCourse(w, r, path)
		})).ServeHTTP(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) createCourse(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	if !a.requireRole(w, r, p, user.RoleInstructor, user.RoleAdmin) {
		return
	}

	var req createCourseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var fields []fieldError
	title := strings.TrimSpace(req.Title)
	if len(title) < 3 || len(title) > 100 {
		fields = append(fields, fieldError{Field: "title", Message: "must be between 3 and 100 characters"})
	}
	if req.Price < 0 {
		fields = append(fields, fieldError{Field: "price", Message: "must not be negative"})
	}
	difficulty, err := course.ParseDifficulty(req.Difficulty)
	if err != nil {
		fields = append(fields, fieldError{Field: "difficulty", Message: "must be one of beginner, intermediate, advanced"})
	}
	if len(fields) > 0 {
		writeValidationError(w, r, fields)
		return
	}

	c := &course.Course{
		ID:          ids.New(),
		Title:       title,
		Slug:        course.Slugify(title),
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Difficulty:  difficulty,
		Instructor:  p.ID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := a.courses.Create(r.Context(), c); err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "course.create", map[string]any{
		"course_id": c.ID,
		"slug":      c.Slug,
	})

	w.Header().Set("Location", "/api/courses/"+c.Slug)
	writeJSON(w, http.StatusCreated, c)
}

func (a *API) listCourses(w http.ResponseWriter, r *http.Request) {
	f, err := parseCourseFilter(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	items, err := a.courses.List(r.Context(), f)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []*course.Course{}
	}
	writeJSON(w, http.StatusOK, listCoursesResponse{
		Items: items,
		AsOf:  time.Now().UTC(),
	})
}

func (a *API) getCourse(w http.ResponseWriter, r *http.Request, slug string) {
	c, err := a.courses.FindBySlug(r.Context(), slug)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) updateCourse(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	if !a.requireRole(w, r, p, user.RoleInstructor, user.RoleAdmin) {
		return
	}
	if !a.requireCourseOwner(r.Context(), w, r, p, id) {
		return
	}

	var req updateCourseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var upd course.Update
	var fields []fieldError
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if len(title) < 3 || len(title) > 100 {
			fields = append(fields, fieldError{Field: "title", Message: "must be between 3 and 100 characters"})
		} else {
			slug := course.Slugify(title)
			upd.Title = &title
			upd.Slug = &slug
		}
	}
	if req.Description != nil {
		desc := strings.TrimSpace(*req.Description)
		upd.Description = &desc
	}
	if req.Price != nil {
		if *req.Price < 0 {
			fields = append(fields, fieldError{Field: "price", Message: "must not be negative"})
		} else {
			upd.Price = req.Price
		}
	}
	if req.Difficulty != nil {
		difficulty, err := course.ParseDifficulty(*req.Difficulty)
		if err != nil {
			fields = append(fields, fieldError{Field: "difficulty", Message: "must be one of beginner, intermediate, advanced"})
		} else {
			upd.Difficulty = &difficulty
		}
	}
	if len(fields) > 0 {
		writeValidationError(w, r, fields)
		return
	}

	c, err := a.courses.Update(r.Context(), id, upd)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "course.update", map[string]any{
		"course_id": c.ID,
	})
	writeJSON(w, http.StatusOK, c)
}

func (a *API) deleteCourse(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	if !a.requireRole(w, r, p, user.RoleInstructor, user.RoleAdmin) {
		return
	}
	if !a.requireCourseOwner(r.Context(), w, r, p, id) {
		return
	}

	if err := a.courses.Delete(r.Context(), id); err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "course.delete", map[string]any{
		"course_id": id,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

func parseCourseFilter(r *http.Request) (course.Filter, error) {
	q := r.URL.Query()
	f := course.Filter{
		Search: strings.TrimSpace(q.Get("search")),
	}
	if raw := strings.TrimSpace(q.Get("difficulty")); raw != "" {
		difficulty, err := course.ParseDifficulty(raw)
		if err != nil {
			return course.Filter{}, err
		}
		f.Difficulty = difficulty
	}
	var err error
	if f.MinPrice, err = parsePriceParam(q.Get("min_price")); err != nil {
		return course.Filter{}, err
	}
	if f.MaxPrice, err = parsePriceParam(q.Get("max_price")); err != nil {
		return course.Filter{}, err
	}
	switch sort := strings.TrimSpace(q.Get("sort")); sort {
	case "", "newest", "priceAsc", "priceDesc":
		f.Sort = sort
	default:
		return course.Filter{}, course.ErrInvalidFilter
	}
	return f, nil
}

func parsePriceParam(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return nil, course.ErrInvalidFilter
	}
	return &v, nil
}
