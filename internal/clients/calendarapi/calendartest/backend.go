// Package calendartest provides an in-memory calendar backend for tests.
package calendartest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tazhate/calclient/internal/domain"
)

const Password = "secret"

type failure struct {
	status  int
	message any
}

// Backend is a fake calendar REST backend
type Backend struct {
	Server *httptest.Server

	mu        sync.Mutex
	nextID    int
	users     map[string]*domain.User // by login
	calendars map[string]*domain.Calendar
	order     []string                  // calendar ids in creation order
	owners    map[string]string         // calendar id -> login
	events    map[string][]domain.Event // calendar id -> events
	failures  map[string]failure        // "METHOD /path" -> injected failure
	holds     map[string]chan struct{}  // calendar id -> gate for event listing
	requests  []string
}

// New starts a backend with a single user "alice"
func New() *Backend {
	b := &Backend{
		users:     map[string]*domain.User{},
		calendars: map[string]*domain.Calendar{},
		owners:    map[string]string{},
		events:    map[string][]domain.Event{},
		failures:  map[string]failure{},
		holds:     map[string]chan struct{}{},
	}
	b.AddUser("alice", "Alice Liddell")

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", b.login)
	mux.HandleFunc("GET /api/user/me", b.auth(b.me))
	mux.HandleFunc("GET /api/calendar/my-calendars", b.auth(b.myCalendars))
	mux.HandleFunc("GET /api/calendar/shared-calendars", b.auth(b.sharedCalendars))
	mux.HandleFunc("POST /api/calendar", b.auth(b.createCalendar))
	mux.HandleFunc("GET /api/calendar/{id}", b.auth(b.getCalendar))
	mux.HandleFunc("PATCH /api/calendar/{id}", b.auth(b.updateCalendar))
	mux.HandleFunc("DELETE /api/calendar/{id}", b.auth(b.deleteCalendar))
	mux.HandleFunc("GET /api/calendar/{id}/events", b.auth(b.listEvents))
	mux.HandleFunc("POST /api/calendar/{id}/event", b.auth(b.createEvent))
	mux.HandleFunc("DELETE /api/calendar/{id}/event/{eventId}", b.auth(b.deleteEvent))
	mux.HandleFunc("POST /api/calendar/{id}/share", b.auth(b.share))
	mux.HandleFunc("POST /api/calendar/{id}/visitor", b.auth(b.addVisitor))
	mux.HandleFunc("DELETE /api/calendar/{id}/visitor", b.auth(b.removeVisitor))

	b.Server = httptest.NewServer(b.intercept(mux))
	return b
}

func (b *Backend) URL() string { return b.Server.URL }

func (b *Backend) Close() {
	b.mu.Lock()
	for id, ch := range b.holds {
		close(ch)
		delete(b.holds, id)
	}
	b.mu.Unlock()
	b.Server.Close()
}

// Token returns the access token the backend issues for login
func Token(login string) string { return "access-" + login }

func (b *Backend) AddUser(login, fullName string) *domain.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	u := &domain.User{
		ID:        int64(len(b.users) + 1),
		Login:     login,
		FullName:  fullName,
		Email:     login + "@example.com",
		Verified:  true,
		Role:      "user",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	b.users[login] = u
	return u
}

// AddCalendar creates a calendar owned by login
func (b *Backend) AddCalendar(login, title string) domain.Calendar {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addCalendarLocked(login, title, "")
}

func (b *Backend) addCalendarLocked(login, title, description string) domain.Calendar {
	b.nextID++
	cal := &domain.Calendar{
		ID:          fmt.Sprintf("cal-%d", b.nextID),
		Title:       title,
		Description: description,
		Owner:       b.users[login],
	}
	b.calendars[cal.ID] = cal
	b.owners[cal.ID] = login
	b.order = append(b.order, cal.ID)
	return *cal
}

// AddEvent stores an event directly
func (b *Backend) AddEvent(calendarID string, e domain.Event) domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	e.ID = fmt.Sprintf("evt-%d", b.nextID)
	b.events[calendarID] = append(b.events[calendarID], e)
	return e
}

func (b *Backend) Events(calendarID string) []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Event(nil), b.events[calendarID]...)
}

// Fail makes every following request matching "METHOD /path" fail
func (b *Backend) Fail(route string, status int, message any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = failure{status: status, message: message}
}

func (b *Backend) ClearFailures() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = map[string]failure{}
}

// Hold blocks event listing for a calendar until the returned func is called
func (b *Backend) Hold(calendarID string) (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.holds[calendarID] = ch
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.holds[calendarID] == ch {
				delete(b.holds, calendarID)
				close(ch)
			}
			b.mu.Unlock()
		})
	}
}

// Requests returns the "METHOD /path?query" lines received so far
func (b *Backend) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

func (b *Backend) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path
		b.mu.Lock()
		line := route
		if r.URL.RawQuery != "" {
			line += "?" + r.URL.RawQuery
		}
		b.requests = append(b.requests, line)
		f, failing := b.failures[route]
		b.mu.Unlock()
		if failing {
			writeJSON(w, f.status, map[string]any{"statusCode": f.status, "message": f.message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, user *domain.User)

func (b *Backend) auth(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		b.mu.Lock()
		user := b.users[strings.TrimPrefix(token, "access-")]
		b.mu.Unlock()
		if token == "" || user == nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		h(w, r, user)
	}
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	_, ok := b.users[req.Login]
	b.mu.Unlock()
	if !ok || req.Password != Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"accessToken":  Token(req.Login),
		"refreshToken": "refresh-" + req.Login,
	})
}

func (b *Backend) me(w http.ResponseWriter, _ *http.Request, user *domain.User) {
	writeJSON(w, http.StatusOK, user)
}

func (b *Backend) myCalendars(w http.ResponseWriter, _ *http.Request, user *domain.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []domain.UserInCalendar{}
	for _, id := range b.order {
		if b.owners[id] == user.Login {
			out = append(out, domain.UserInCalendar{
				ID:       "uic-" + id,
				Calendar: *b.calendars[id],
				User:     *user,
				Role:     domain.RoleOwner,
			})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) sharedCalendars(w http.ResponseWriter, _ *http.Request, user *domain.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []domain.Calendar{}
	for _, id := range b.order {
		cal := b.calendars[id]
		if b.owners[id] != user.Login && cal.HasVisitor(user.ID) {
			out = append(out, *cal)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) createCalendar(w http.ResponseWriter, r *http.Request, user *domain.User) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeError(w, http.StatusBadRequest, "title should not be empty")
		return
	}
	b.mu.Lock()
	cal := b.addCalendarLocked(user.Login, req.Title, req.Description)
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, cal)
}

func (b *Backend) calendar(w http.ResponseWriter, r *http.Request) (*domain.Calendar, bool) {
	b.mu.Lock()
	cal, ok := b.calendars[r.PathValue("id")]
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Calendar not found")
	}
	return cal, ok
}

func (b *Backend) getCalendar(w http.ResponseWriter, r *http.Request, _ *domain.User) {
	if cal, ok := b.calendar(w, r); ok {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, http.StatusOK, cal)
	}
}

func (b *Backend) updateCalendar(w http.ResponseWriter, r *http.Request, _ *domain.User) {
	cal, ok := b.calendar(w, r)
	if !ok {
		return
	}
	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if req.Title != nil {
		cal.Title = *req.Title
	}
	if req.Description != nil {
		cal.Description = *req.Description
	}
	writeJSON(w, http.StatusOK, cal)
}

func (b *Backend) deleteCalendar(w http.ResponseWriter, r *http.Request, _ *domain.User) {
	cal, ok := b.calendar(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.calendars, cal.ID)
	delete(b.owners, cal.ID)
	delete(b.events, cal.ID)
	for i, id := range b.order {
		if id == cal.ID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (b *Backend) listEvents(w http.ResponseWriter, r *http.Request, _ *domain.User) {
	cal, ok := b.calendar(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	hold := b.holds[cal.ID]
	b.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	search := strings.ToLower(q.Get("search"))

	b.mu.Lock()
	all := make([]domain.Event, 0, len(b.events[cal.ID]))
	for _, e := range b.events[cal.ID] {
		if search == "" || strings.Contains(strings.ToLower(e.Title), search) {
			all = append(all, e)
		}
	}
	b.mu.Unlock()

	if q.Get("sortField") == "startTime" {
		desc := q.Get("sortDirection") == string(domain.SortDesc)
		sort.SliceStable(all, func(i, j int) bool {
			if desc {
				return all[i].StartTime.After(all[j].StartTime)
			}
			return all[i].StartTime.Before(all[j].StartTime)
		})
	}

	start := (page - 1) * limit
	end := start + limit
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}
	writeJSON(w, http.StatusOK, domain.Page[domain.Event]{Items: all[start:end], Total: len(all)})
}

func (b *Backend) createEvent(w http.ResponseWriter, r *http.Request, user *domain.User) {
	cal, ok := b.calendar(w, r)
	if !ok {
		return
	}
	var req struct {
		Title       string                 `json:"title"`
		Description string                 `json:"description"`
		StartTime   time.Time              `json:"startTime"`
		EndTime     *time.Time             `json:"endTime"`
		Type        domain.EventType       `json:"type"`
		Recurrence  domain.EventRecurrence `json:"recurrence"`
		Color       string                 `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	var problems []string
	if len(req.Title) < 3 {
		problems = append(problems, "title must be longer than or equal to 3 characters")
	}
	if req.StartTime.IsZero() {
		problems = append(problems, "startTime must be a Date instance")
	}
	if len(problems) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"statusCode": 400, "message": problems, "error": "Bad Request"})
		return
	}
	event := b.AddEvent(cal.ID, domain.Event{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Type:        req.Type,
		Recurrence:  req.Recurrence,
		Creator:     user,
		Color:       req.Color,
	})
	writeJSON(w, http.StatusCreated, event)
}

func (b *Backend) deleteEvent(w http.ResponseWriter, r *http.Request, _ *domain.User) {
	cal, ok := b.calendar(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.events[cal.ID]
	for i, e := range events {
		if e.ID == r.PathValue("eventId") {
			b.events[cal.ID] = append(events[:i], events[i+1:]...)
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Event not found")
}

func (b *Backend) share(w http.ResponseWriter, r *http.Request, _ *domain.User) {
	cal, ok := b.calendar(w, r)
	if !ok {
		return
	}
	var req struct {
		UserID string          `json:"userId"`
		Role   domain.UserRole `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Role.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}
	id, _ := strconv.ParseInt(req.UserID, 10, 64)
	if !b.addVisitorByID(cal, id) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (b *Backend) addVisitor(w http.ResponseWriter, r *http.Request, _ *domain.User) {
	cal, ok := b.calendar(w, r)
	if !ok {
		return
	}
	var req struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	id := req.ID
	if req.Email != "" {
		b.mu.Lock()
		for _, u := range b.users {
			if u.Email == req.Email {
				id = u.ID
			}
		}
		b.mu.Unlock()
	}
	if !b.addVisitorByID(cal, id) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (b *Backend) addVisitorByID(cal *domain.Calendar, id int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.ID == id {
			if !cal.HasVisitor(id) {
				cal.Visitors = append(cal.Visitors, *u)
			}
			return true
		}
	}
	return false
}

func (b *Backend) removeVisitor(w http.ResponseWriter, r *http.Request, _ *domain.User) {
	cal, ok := b.calendar(w, r)
	if !ok {
		return
	}
	var req struct {
		VisitorID string `json:"visitorId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, v := range cal.Visitors {
		if strconv.FormatInt(v.ID, 10) == req.VisitorID {
			cal.Visitors = append(cal.Visitors[:i], cal.Visitors[i+1:]...)
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Visitor not found")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"statusCode": status, "message": msg})
}
