package calendarapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tazhate/calclient/internal/domain"
	"github.com/tazhate/calclient/internal/logger"
	"github.com/tazhate/calclient/internal/notify"
)

// Client is the HTTP client for the calendar backend. Every failed call is
// reported to the notifier and returned to the caller as *domain.APIError.
// Calls are never retried.
type Client struct {
	http     *resty.Client
	notifier notify.Notifier

	mu          sync.RWMutex
	accessToken string
}

// NewClient creates a new calendar backend client
func NewClient(baseURL string, timeout time.Duration, notifier notify.Notifier) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if notifier == nil {
		notifier = notify.Discard
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:     httpClient,
		notifier: notifier,
	}
}

// SetAccessToken sets the bearer token sent with every request; "" clears it
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

// call describes one backend request
type call struct {
	op      string // operation name used in errors and logs
	failMsg string // message shown to the user on failure
	method  string
	path    string
	params  map[string]string
	query   map[string]string
	body    any
	result  any
}

func (c *Client) do(ctx context.Context, rc call) error {
	log := logger.FromContext(ctx)

	c.mu.RLock()
	token := c.accessToken
	c.mu.RUnlock()

	errBody := &errorBody{}
	req := c.http.R().SetContext(ctx).SetError(errBody)
	if token != "" {
		req.SetAuthToken(token)
	}
	if rc.params != nil {
		req.SetPathParams(rc.params)
	}
	if rc.query != nil {
		req.SetQueryParams(rc.query)
	}
	if rc.body != nil {
		req.SetBody(rc.body)
	}
	if rc.result != nil {
		req.SetResult(rc.result)
	}

	resp, err := req.Execute(rc.method, rc.path)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Debug("request canceled", "op", rc.op)
			return &domain.APIError{Op: rc.op, Kind: domain.ErrCanceled, Err: err}
		}
		apiErr := &domain.APIError{Op: rc.op, Kind: domain.ErrNetwork, Err: err}
		if resp != nil && resp.StatusCode() != 0 {
			apiErr.Status = resp.StatusCode()
		}
		c.fail(ctx, log, rc, apiErr)
		return apiErr
	}

	if resp.IsError() {
		apiErr := &domain.APIError{
			Op:      rc.op,
			Kind:    kindForStatus(resp.StatusCode()),
			Status:  resp.StatusCode(),
			Message: errBody.text(),
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode())
		}
		c.fail(ctx, log, rc, apiErr)
		return apiErr
	}

	log.Debug("API request completed", "op", rc.op, "method", rc.method, "path", rc.path, "status", resp.StatusCode())
	return nil
}

func (c *Client) fail(ctx context.Context, log logger.Logger, rc call, apiErr *domain.APIError) {
	log.Warn("API request failed", "op", rc.op, "method", rc.method, "path", rc.path, "status", apiErr.Status, "error", apiErr)
	msg := rc.failMsg
	if apiErr.Message != "" {
		msg += ": " + apiErr.Message
	}
	notify.Fail(ctx, c.notifier, msg)
}

func kindForStatus(status int) error {
	switch status {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.ErrValidation
	default:
		return domain.ErrRejected
	}
}

// Login exchanges credentials for a token pair
func (c *Client) Login(ctx context.Context, req LoginRequest) (*Tokens, error) {
	var tokens Tokens
	err := c.do(ctx, call{
		op: "login", failMsg: "Failed to log in",
		method: http.MethodPost, path: "/api/auth/login",
		body: req, result: &tokens,
	})
	if err != nil {
		return nil, err
	}
	return &tokens, nil
}

// GetMyProfile returns the user the access token belongs to
func (c *Client) GetMyProfile(ctx context.Context) (*domain.User, error) {
	var user domain.User
	err := c.do(ctx, call{
		op: "get profile", failMsg: "Failed to fetch profile",
		method: http.MethodGet, path: "/api/user/me",
		result: &user,
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListMyCalendars returns the memberships of the current user
func (c *Client) ListMyCalendars(ctx context.Context) ([]domain.UserInCalendar, error) {
	var out []domain.UserInCalendar
	err := c.do(ctx, call{
		op: "list my calendars", failMsg: "Failed to fetch calendars",
		method: http.MethodGet, path: "/api/calendar/my-calendars",
		result: &out,
	})
	return out, err
}

// ListSharedCalendars returns calendars other users shared with the current user
func (c *Client) ListSharedCalendars(ctx context.Context) ([]domain.Calendar, error) {
	var out []domain.Calendar
	err := c.do(ctx, call{
		op: "list shared calendars", failMsg: "Failed to fetch shared calendars",
		method: http.MethodGet, path: "/api/calendar/shared-calendars",
		result: &out,
	})
	return out, err
}

// GetCalendar returns a single calendar
func (c *Client) GetCalendar(ctx context.Context, id string) (*domain.Calendar, error) {
	var cal domain.Calendar
	err := c.do(ctx, call{
		op: "get calendar", failMsg: "Failed to fetch calendar",
		method: http.MethodGet, path: "/api/calendar/{id}",
		params: map[string]string{"id": id},
		result: &cal,
	})
	if err != nil {
		return nil, err
	}
	return &cal, nil
}

// CreateCalendar creates a calendar owned by the current user
func (c *Client) CreateCalendar(ctx context.Context, req CreateCalendarRequest) (*domain.Calendar, error) {
	var cal domain.Calendar
	err := c.do(ctx, call{
		op: "create calendar", failMsg: "Failed to create calendar",
		method: http.MethodPost, path: "/api/calendar",
		body: req, result: &cal,
	})
	if err != nil {
		return nil, err
	}
	return &cal, nil
}

// UpdateCalendar patches title and/or description
func (c *Client) UpdateCalendar(ctx context.Context, id string, req UpdateCalendarRequest) (*domain.Calendar, error) {
	var cal domain.Calendar
	err := c.do(ctx, call{
		op: "update calendar", failMsg: "Failed to update calendar",
		method: http.MethodPatch, path: "/api/calendar/{id}",
		params: map[string]string{"id": id},
		body:   req, result: &cal,
	})
	if err != nil {
		return nil, err
	}
	return &cal, nil
}

// DeleteCalendar deletes a calendar
func (c *Client) DeleteCalendar(ctx context.Context, id string) error {
	return c.do(ctx, call{
		op: "delete calendar", failMsg: "Failed to delete calendar",
		method: http.MethodDelete, path: "/api/calendar/{id}",
		params: map[string]string{"id": id},
	})
}

// ListEvents returns one page of a calendar's events
func (c *Client) ListEvents(ctx context.Context, calendarID string, opts domain.PageOptions) (*domain.Page[domain.Event], error) {
	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	query := map[string]string{
		"page":  strconv.Itoa(opts.Page),
		"limit": strconv.Itoa(opts.Limit),
	}
	if opts.SortField != "" {
		query["sortField"] = opts.SortField
		if opts.SortDirection != "" {
			query["sortDirection"] = string(opts.SortDirection)
		}
	}
	if opts.Search != "" {
		query["search"] = opts.Search
	}

	var page domain.Page[domain.Event]
	err := c.do(ctx, call{
		op: "list events", failMsg: "Failed to fetch events",
		method: http.MethodGet, path: "/api/calendar/{id}/events",
		params: map[string]string{"id": calendarID},
		query:  query, result: &page,
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// ListAllEvents walks every page of a calendar's events
func (c *Client) ListAllEvents(ctx context.Context, calendarID string, pageSize int) ([]domain.Event, error) {
	if pageSize <= 0 {
		pageSize = 100
	}
	events := make([]domain.Event, 0)
	for page := 1; ; page++ {
		p, err := c.ListEvents(ctx, calendarID, domain.PageOptions{
			Page:          page,
			Limit:         pageSize,
			SortField:     "startTime",
			SortDirection: domain.SortAsc,
		})
		if err != nil {
			return nil, err
		}
		events = append(events, p.Items...)
		if len(p.Items) == 0 || len(events) >= p.Total {
			return events, nil
		}
	}
}

// CreateEvent creates an event in a calendar
func (c *Client) CreateEvent(ctx context.Context, calendarID string, req CreateEventRequest) (*domain.Event, error) {
	var event domain.Event
	err := c.do(ctx, call{
		op: "create event", failMsg: "Failed to create event",
		method: http.MethodPost, path: "/api/calendar/{id}/event",
		params: map[string]string{"id": calendarID},
		body:   req, result: &event,
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// DeleteEvent deletes an event from a calendar
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	return c.do(ctx, call{
		op: "delete event", failMsg: "Failed to delete event",
		method: http.MethodDelete, path: "/api/calendar/{id}/event/{eventId}",
		params: map[string]string{"id": calendarID, "eventId": eventID},
	})
}

// ShareCalendar grants a user a role in a calendar. Ownership cannot be shared.
func (c *Client) ShareCalendar(ctx context.Context, calendarID, userID string, role domain.UserRole) error {
	if !role.IsValid() || role == domain.RoleOwner {
		return &domain.APIError{
			Op:      "share calendar",
			Kind:    domain.ErrValidation,
			Message: fmt.Sprintf("role %q cannot be granted", string(role)),
		}
	}
	return c.do(ctx, call{
		op: "share calendar", failMsg: "Failed to share calendar",
		method: http.MethodPost, path: "/api/calendar/{id}/share",
		params: map[string]string{"id": calendarID},
		body:   ShareRequest{UserID: userID, Role: role},
	})
}

// AddVisitor adds a visitor to a calendar
func (c *Client) AddVisitor(ctx context.Context, calendarID string, req AddVisitorRequest) error {
	return c.do(ctx, call{
		op: "add visitor", failMsg: "Failed to add visitor",
		method: http.MethodPost, path: "/api/calendar/{id}/visitor",
		params: map[string]string{"id": calendarID},
		body:   req,
	})
}

// RemoveVisitor removes a visitor from a calendar
func (c *Client) RemoveVisitor(ctx context.Context, calendarID, visitorID string) error {
	return c.do(ctx, call{
		op: "remove visitor", failMsg: "Failed to remove visitor",
		method: http.MethodDelete, path: "/api/calendar/{id}/visitor",
		params: map[string]string{"id": calendarID},
		body:   RemoveVisitorRequest{VisitorID: visitorID},
	})
}
