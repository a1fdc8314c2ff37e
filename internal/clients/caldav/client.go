package caldav

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"

	"github.com/tazhate/calclient/internal/domain"
	"github.com/tazhate/calclient/internal/ics"
	"github.com/tazhate/calclient/internal/logger"
)

const (
	// Apple iCloud CalDAV endpoint
	DefaultiCloudURL = "https://caldav.icloud.com"
)

// objectStore is the subset of *caldav.Client used for mirroring
type objectStore interface {
	PutCalendarObject(ctx context.Context, path string, cal *ical.Calendar) (*caldav.CalendarObject, error)
	RemoveAll(ctx context.Context, path string) error
	QueryCalendar(ctx context.Context, path string, query *caldav.CalendarQuery) ([]caldav.CalendarObject, error)
}

// Client mirrors calendar events into one CalDAV collection
type Client struct {
	baseURL      string
	username     string
	password     string
	calendarPath string

	client *caldav.Client
	store  objectStore
}

// NewClient creates a new CalDAV client
func NewClient(baseURL, username, password, calendarPath string) *Client {
	if baseURL == "" {
		baseURL = DefaultiCloudURL
	}
	return &Client{
		baseURL:      baseURL,
		username:     username,
		password:     password,
		calendarPath: calendarPath,
	}
}

// IsConfigured returns true if the client has credentials
func (c *Client) IsConfigured() bool {
	return c.username != "" && c.password != ""
}

// SetCalendarPath sets the collection events are mirrored into
func (c *Client) SetCalendarPath(path string) {
	c.calendarPath = path
}

// connect establishes connection to CalDAV server
func (c *Client) connect() (*caldav.Client, error) {
	if c.client != nil {
		return c.client, nil
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			username: c.username,
			password: c.password,
		},
		Timeout: 30 * time.Second,
	}

	client, err := caldav.NewClient(httpClient, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
	}

	c.client = client
	return client, nil
}

func (c *Client) objects() (objectStore, error) {
	if c.store != nil {
		return c.store, nil
	}
	client, err := c.connect()
	if err != nil {
		return nil, err
	}
	return client, nil
}

// basicAuthTransport adds Basic Auth to HTTP requests
type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

// DiscoverCalendars returns all calendars for the user
func (c *Client) DiscoverCalendars(ctx context.Context) ([]Calendar, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}

	result := make([]Calendar, 0, len(cals))
	for _, cal := range cals {
		result = append(result, Calendar{
			Path:        cal.Path,
			DisplayName: cal.Name,
			Description: cal.Description,
		})
	}
	return result, nil
}

func (c *Client) objectPath(eventID string) (string, error) {
	if c.calendarPath == "" {
		return "", fmt.Errorf("calendar path not specified")
	}
	path := c.calendarPath
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path + eventID + ".ics", nil
}

// PutEvent writes one event as <id>.ics; PUT replaces an existing object
func (c *Client) PutEvent(ctx context.Context, e domain.Event) error {
	store, err := c.objects()
	if err != nil {
		return err
	}
	path, err := c.objectPath(e.ID)
	if err != nil {
		return err
	}
	cal, err := ics.Calendar(e, time.Now())
	if err != nil {
		return err
	}
	if _, err := store.PutCalendarObject(ctx, path, cal); err != nil {
		return fmt.Errorf("put event %s: %w", e.ID, err)
	}
	return nil
}

// DeleteEvent removes a mirrored event
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	store, err := c.objects()
	if err != nil {
		return err
	}
	path, err := c.objectPath(eventID)
	if err != nil {
		return err
	}
	if err := store.RemoveAll(ctx, path); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// ListMirrored returns the events this client wrote that start in [from, to).
// Zero bounds list the whole collection. Objects created by other clients
// are ignored.
func (c *Client) ListMirrored(ctx context.Context, from, to time.Time) ([]domain.Event, error) {
	store, err := c.objects()
	if err != nil {
		return nil, err
	}
	if c.calendarPath == "" {
		return nil, fmt.Errorf("calendar path not specified")
	}

	query := &caldav.CalendarQuery{
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{
				{
					Name:  "VEVENT",
					Start: from,
					End:   to,
				},
			},
		},
	}

	objects, err := store.QueryCalendar(ctx, c.calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}

	var events []domain.Event
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		events = append(events, ics.Events(obj.Data)...)
	}
	return events, nil
}

// Mirror writes every event into the collection and removes the objects
// this client wrote earlier whose event no longer exists. An empty list
// clears every mirrored event from the collection.
func (c *Client) Mirror(ctx context.Context, events []domain.Event) (MirrorResult, error) {
	log := logger.FromContext(ctx)
	var result MirrorResult

	keep := make(map[string]bool, len(events))
	for _, e := range events {
		if err := c.PutEvent(ctx, e); err != nil {
			return result, err
		}
		result.Put++
		keep[e.ID] = true
	}

	existing, err := c.ListMirrored(ctx, time.Time{}, time.Time{})
	if err != nil {
		return result, err
	}
	for _, e := range existing {
		if keep[e.ID] {
			continue
		}
		if err := c.DeleteEvent(ctx, e.ID); err != nil {
			log.Warn("remove stale mirrored event", "event", e.ID, "error", err)
			continue
		}
		result.Removed++
	}

	log.Info("mirrored events", "calendar", c.calendarPath, "put", result.Put, "removed", result.Removed)
	return result, nil
}
