package view

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tazhate/calclient/internal/clients/calendarapi"
	"github.com/tazhate/calclient/internal/domain"
	"github.com/tazhate/calclient/internal/form"
	"github.com/tazhate/calclient/internal/logger"
	"github.com/tazhate/calclient/internal/notify"
)

type Status string

const (
	StatusNoCalendar Status = "no_calendar_selected"
	StatusLoading    Status = "loading"
	StatusReady      Status = "ready"
)

// API is the part of the calendar client the controller drives
type API interface {
	ListMyCalendars(ctx context.Context) ([]domain.UserInCalendar, error)
	ListSharedCalendars(ctx context.Context) ([]domain.Calendar, error)
	ListAllEvents(ctx context.Context, calendarID string, pageSize int) ([]domain.Event, error)
	CreateEvent(ctx context.Context, calendarID string, req calendarapi.CreateEventRequest) (*domain.Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
	DeleteCalendar(ctx context.Context, id string) error
}

// Confirmer asks the user to confirm a destructive action
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

var (
	AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, string) bool { return true })
	NeverConfirm  Confirmer = ConfirmFunc(func(context.Context, string) bool { return false })
)

// State is a snapshot of the controller
type State struct {
	Status     Status            `json:"status"`
	Calendar   *domain.Calendar  `json:"calendar"`
	Calendars  []domain.Calendar `json:"calendars"`
	Events     []domain.Event    `json:"events"`
	Generation uint64            `json:"generation"`
}

type Options struct {
	PageSize int
	Location *time.Location
	// OnSelect is called with the new selection ("" for none)
	OnSelect func(calendarID string)
}

// Controller owns the selected calendar and its event list. Every event load
// carries a generation; a load that finishes after a newer one started is
// discarded and its caller gets domain.ErrCanceled.
type Controller struct {
	api       API
	notifier  notify.Notifier
	validator *form.Validator
	opts      Options

	mu        sync.Mutex
	calendars []domain.Calendar
	roles     map[string]domain.UserRole // own memberships only
	selected  *domain.Calendar
	status    Status
	events    []domain.Event
	gen       uint64
	cancel    context.CancelFunc
}

func NewController(api API, notifier notify.Notifier, validator *form.Validator, opts Options) *Controller {
	if notifier == nil {
		notifier = notify.Discard
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if validator == nil {
		validator = form.NewValidator(opts.Location)
	}
	return &Controller{
		api:       api,
		notifier:  notifier,
		validator: validator,
		opts:      opts,
		status:    StatusNoCalendar,
	}
}

// State returns a copy of the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := State{
		Status:     c.status,
		Calendars:  append([]domain.Calendar{}, c.calendars...),
		Events:     append([]domain.Event{}, c.events...),
		Generation: c.gen,
	}
	if c.selected != nil {
		cal := *c.selected
		s.Calendar = &cal
	}
	return s
}

// Items returns the widget feed for the selected calendar. It is empty
// unless the events are loaded.
func (c *Controller) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusReady {
		return []Item{}
	}
	return Items(c.events, c.opts.Location)
}

// Event returns a loaded event by id
func (c *Controller) Event(id string) (domain.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if e.ID == id {
			return e, true
		}
	}
	return domain.Event{}, false
}

// LoadCalendars fetches own and shared calendars. If preferredID is in the
// list it is selected; otherwise the current selection is kept when still
// present, else the first calendar is selected.
func (c *Controller) LoadCalendars(ctx context.Context, preferredID string) error {
	calendars, err := c.refresh(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	current := ""
	if c.selected != nil {
		current = c.selected.ID
	}
	c.mu.Unlock()

	next := ""
	switch {
	case preferredID != "" && domain.IndexCalendar(calendars, preferredID) >= 0:
		next = preferredID
	case current != "" && domain.IndexCalendar(calendars, current) >= 0:
		next = current
	case len(calendars) > 0:
		next = calendars[0].ID
	}
	if next == "" {
		c.clearSelection()
		return nil
	}
	return c.Select(ctx, next)
}

// OpenCalendar fetches the calendar list and selects calendarID. An id that
// is not in the list fails with domain.ErrNotFound and nothing is selected
// in its place.
func (c *Controller) OpenCalendar(ctx context.Context, calendarID string) error {
	calendars, err := c.refresh(ctx)
	if err != nil {
		return err
	}
	if domain.IndexCalendar(calendars, calendarID) < 0 {
		return fmt.Errorf("calendar %s: %w", calendarID, domain.ErrNotFound)
	}
	return c.Select(ctx, calendarID)
}

// RefreshCalendars refetches the calendar list and roles without touching
// the selection
func (c *Controller) RefreshCalendars(ctx context.Context) error {
	_, err := c.refresh(ctx)
	return err
}

// refresh stores own calendars followed by shared ones not already listed
func (c *Controller) refresh(ctx context.Context) ([]domain.Calendar, error) {
	memberships, err := c.api.ListMyCalendars(ctx)
	if err != nil {
		return nil, err
	}
	shared, err := c.api.ListSharedCalendars(ctx)
	if err != nil {
		return nil, err
	}
	calendars := domain.Calendars(memberships)
	roles := make(map[string]domain.UserRole, len(memberships))
	for _, m := range memberships {
		if m.Role != "" {
			roles[m.Calendar.ID] = m.Role
		}
	}
	for _, cal := range shared {
		if domain.IndexCalendar(calendars, cal.ID) < 0 {
			calendars = append(calendars, cal)
		}
	}

	c.mu.Lock()
	c.calendars = calendars
	c.roles = roles
	c.mu.Unlock()
	return calendars, nil
}

// Role returns the user's role in a calendar. Calendars that are only
// shared with the user have no known role.
func (c *Controller) Role(calendarID string) (domain.UserRole, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	role, ok := c.roles[calendarID]
	return role, ok
}

// Authorize fails with domain.ErrForbidden when the user's known role in the
// calendar does not pass allowed. Without a known role the backend decides.
func (c *Controller) Authorize(calendarID string, allowed func(domain.UserRole) bool) error {
	role, ok := c.Role(calendarID)
	if !ok || allowed(role) {
		return nil
	}
	return fmt.Errorf("calendar %s as %s: %w", calendarID, role, domain.ErrForbidden)
}

func (c *Controller) authorize(calendarID string, allowed func(domain.UserRole) bool) error {
	err := c.Authorize(calendarID, allowed)
	if err != nil {
		notify.Error(c.notifier, "You do not have permission to do that")
	}
	return err
}

func isOwner(r domain.UserRole) bool { return r.Includes(domain.RoleOwner) }

// Select switches to a calendar. The previous event list is discarded before
// the new one is fetched and any in-flight load is canceled.
func (c *Controller) Select(ctx context.Context, calendarID string) error {
	if err := c.Authorize(calendarID, domain.UserRole.CanView); err != nil {
		return err
	}
	c.mu.Lock()
	idx := domain.IndexCalendar(c.calendars, calendarID)
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("select calendar %s: %w", calendarID, domain.ErrNotFound)
	}
	cal := c.calendars[idx]
	changed := c.selected == nil || c.selected.ID != cal.ID
	c.selected = &cal
	c.mu.Unlock()

	if changed && c.opts.OnSelect != nil {
		c.opts.OnSelect(cal.ID)
	}
	return c.load(ctx)
}

// Reload refetches the selected calendar's events
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	selected := c.selected != nil
	c.mu.Unlock()
	if !selected {
		return domain.ErrNoCalendar
	}
	return c.load(ctx)
}

func (c *Controller) load(ctx context.Context) error {
	log := logger.FromContext(ctx)

	c.mu.Lock()
	if c.selected == nil {
		c.mu.Unlock()
		return domain.ErrNoCalendar
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	calendarID := c.selected.ID
	c.status = StatusLoading
	c.events = nil
	loadCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	pending := notify.Begin(c.notifier, "Loading events...")
	events, err := c.api.ListAllEvents(notify.WithPending(loadCtx, pending), calendarID, c.opts.PageSize)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		pending.Dismiss()
		log.Debug("discarding stale events", "calendar", calendarID, "generation", gen, "current", c.gen)
		return fmt.Errorf("load events for %s: %w", calendarID, domain.ErrCanceled)
	}
	c.cancel = nil
	if err != nil {
		// the list stays empty; a backend failure already resolved pending
		pending.Fail("Failed to load events")
		c.status = StatusReady
		return err
	}
	pending.Succeed("Events loaded")
	c.events = events
	c.status = StatusReady
	log.Debug("events loaded", "calendar", calendarID, "count", len(events), "generation", gen)
	return nil
}

func (c *Controller) clearSelection() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	hadSelection := c.selected != nil
	c.selected = nil
	c.events = nil
	c.status = StatusNoCalendar
	c.mu.Unlock()

	if hadSelection && c.opts.OnSelect != nil {
		c.opts.OnSelect("")
	}
}

func (c *Controller) selectedID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return ""
	}
	return c.selected.ID
}

// SelectRange handles a selection of an empty range in the widget and
// returns the event form prefilled with it. All-day ranges have an exclusive
// end date, which is turned into the last included day.
func (c *Controller) SelectRange(ctx context.Context, start, end string, allDay bool) (form.EventForm, error) {
	if c.selectedID() == "" {
		notify.Error(c.notifier, "Please select a calendar")
		return form.EventForm{}, domain.ErrNoCalendar
	}

	f := form.NewEventForm()
	f.AllDay = allDay
	f.Start, f.End = start, end

	loc := c.opts.Location
	startT, startErr := form.ParseTimestamp(start, loc)
	endT, endErr := form.ParseTimestamp(end, loc)
	if allDay {
		if startErr == nil {
			f.Start = startT.In(loc).Format(time.DateOnly)
		}
		if endErr == nil {
			last := endT.In(loc).AddDate(0, 0, -1)
			if startErr == nil && last.Before(startT) {
				last = startT
			}
			f.End = last.Format(time.DateOnly)
		}
		return f, nil
	}
	if startErr == nil {
		f.Start = startT.In(loc).Format("2006-01-02T15:04")
	}
	if endErr == nil {
		f.End = endT.In(loc).Format("2006-01-02T15:04")
	}
	return f, nil
}

// Submit validates the form, creates the event in the selected calendar and
// reloads the list. Validation failures are returned as form.FieldErrors and
// never reach the backend.
func (c *Controller) Submit(ctx context.Context, f form.EventForm) (*domain.Event, error) {
	calendarID := c.selectedID()
	if calendarID == "" {
		notify.Error(c.notifier, "Please select a calendar")
		return nil, domain.ErrNoCalendar
	}

	if err := c.authorize(calendarID, domain.UserRole.CanEditEvents); err != nil {
		return nil, err
	}

	req, err := c.validator.Event(f)
	if err != nil {
		return nil, err
	}

	pending := notify.Begin(c.notifier, "Creating event...")
	event, err := c.api.CreateEvent(notify.WithPending(ctx, pending), calendarID, req)
	if err != nil {
		pending.Fail("Failed to create event")
		return nil, err
	}
	pending.Succeed("Event created successfully")

	if c.selectedID() == calendarID {
		if err := c.Reload(ctx); err != nil && !errors.Is(err, domain.ErrCanceled) {
			logger.FromContext(ctx).Warn("reload after create failed", "calendar", calendarID, "error", err)
		}
	}
	return event, nil
}

// ActivateEvent handles a click on an event: after confirmation the event is
// deleted and the list reloaded. It reports whether the event was deleted.
func (c *Controller) ActivateEvent(ctx context.Context, eventID string, confirm Confirmer) (bool, error) {
	calendarID := c.selectedID()
	if calendarID == "" {
		return false, domain.ErrNoCalendar
	}
	if confirm == nil {
		confirm = NeverConfirm
	}
	if err := c.authorize(calendarID, domain.UserRole.CanEditEvents); err != nil {
		return false, err
	}
	event, ok := c.Event(eventID)
	if !ok {
		return false, fmt.Errorf("event %s: %w", eventID, domain.ErrNotFound)
	}
	if !confirm.Confirm(ctx, fmt.Sprintf("Are you sure you want to delete the event '%s'?", event.Title)) {
		return false, nil
	}

	if err := c.api.DeleteEvent(ctx, calendarID, eventID); err != nil {
		return false, err
	}
	notify.Success(c.notifier, "Event deleted")

	if c.selectedID() == calendarID {
		if err := c.Reload(ctx); err != nil && !errors.Is(err, domain.ErrCanceled) {
			logger.FromContext(ctx).Warn("reload after delete failed", "calendar", calendarID, "error", err)
		}
	}
	return true, nil
}

// DeleteCalendar deletes a calendar after confirmation. When it was the
// selected one, the first remaining calendar is selected, or none.
func (c *Controller) DeleteCalendar(ctx context.Context, calendarID string, confirm Confirmer) (bool, error) {
	if confirm == nil {
		confirm = NeverConfirm
	}
	c.mu.Lock()
	idx := domain.IndexCalendar(c.calendars, calendarID)
	var title string
	if idx >= 0 {
		title = c.calendars[idx].Title
	}
	c.mu.Unlock()
	if idx < 0 {
		return false, fmt.Errorf("calendar %s: %w", calendarID, domain.ErrNotFound)
	}
	if err := c.authorize(calendarID, isOwner); err != nil {
		return false, err
	}
	if !confirm.Confirm(ctx, fmt.Sprintf("Are you sure you want to delete the calendar '%s'?", title)) {
		return false, nil
	}

	if err := c.api.DeleteCalendar(ctx, calendarID); err != nil {
		return false, err
	}
	notify.Success(c.notifier, "Calendar deleted")

	c.mu.Lock()
	if i := domain.IndexCalendar(c.calendars, calendarID); i >= 0 {
		c.calendars = append(c.calendars[:i:i], c.calendars[i+1:]...)
	}
	wasSelected := c.selected != nil && c.selected.ID == calendarID
	next := ""
	if len(c.calendars) > 0 {
		next = c.calendars[0].ID
	}
	c.mu.Unlock()

	if !wasSelected {
		return true, nil
	}
	if next == "" {
		c.clearSelection()
		return true, nil
	}
	if err := c.Select(ctx, next); err != nil && !errors.Is(err, domain.ErrCanceled) {
		return true, err
	}
	return true, nil
}
