package service

import (
	"context"
	"fmt"
	"io"

	"github.com/tazhate/calclient/internal/clients/caldav"
	"github.com/tazhate/calclient/internal/clients/calendarapi"
	"github.com/tazhate/calclient/internal/domain"
	"github.com/tazhate/calclient/internal/form"
	"github.com/tazhate/calclient/internal/ics"
	"github.com/tazhate/calclient/internal/logger"
)

// CalendarAPI is the part of the calendar client used for export, import and mirroring
type CalendarAPI interface {
	GetCalendar(ctx context.Context, id string) (*domain.Calendar, error)
	ListAllEvents(ctx context.Context, calendarID string, pageSize int) ([]domain.Event, error)
	CreateEvent(ctx context.Context, calendarID string, req calendarapi.CreateEventRequest) (*domain.Event, error)
}

// Mirror receives a calendar's events
type Mirror interface {
	IsConfigured() bool
	Mirror(ctx context.Context, events []domain.Event) (caldav.MirrorResult, error)
}

// CalendarService exports calendars and mirrors them to CalDAV
type CalendarService struct {
	api      CalendarAPI
	mirror   Mirror
	pageSize int
}

// NewCalendarService creates a new calendar service; mirror may be nil
func NewCalendarService(api CalendarAPI, mirror Mirror, pageSize int) *CalendarService {
	return &CalendarService{api: api, mirror: mirror, pageSize: pageSize}
}

// IsMirrorConfigured returns true if a CalDAV target is configured
func (s *CalendarService) IsMirrorConfigured() bool {
	return s.mirror != nil && s.mirror.IsConfigured()
}

// Export writes a calendar with all its events as iCalendar data
func (s *CalendarService) Export(ctx context.Context, calendarID string, w io.Writer) error {
	cal, err := s.api.GetCalendar(ctx, calendarID)
	if err != nil {
		return err
	}
	events, err := s.api.ListAllEvents(ctx, calendarID, s.pageSize)
	if err != nil {
		return err
	}
	return ics.Export(w, cal, events)
}

// MirrorCalendar copies every event of a calendar to the CalDAV target
func (s *CalendarService) MirrorCalendar(ctx context.Context, calendarID string) (caldav.MirrorResult, error) {
	if !s.IsMirrorConfigured() {
		return caldav.MirrorResult{}, fmt.Errorf("CalDAV not configured")
	}
	events, err := s.api.ListAllEvents(ctx, calendarID, s.pageSize)
	if err != nil {
		return caldav.MirrorResult{}, err
	}
	return s.mirror.Mirror(ctx, events)
}

// ImportResult counts the events read from an iCalendar file
type ImportResult struct {
	Created int
	Skipped int
}

// Import creates the events found in an export in calendarID. Events that
// fail validation are skipped; a backend failure stops the import.
func (s *CalendarService) Import(ctx context.Context, calendarID string, r io.Reader, v *form.Validator) (ImportResult, error) {
	log := logger.FromContext(ctx)
	var result ImportResult

	events, err := ics.Decode(r)
	if err != nil {
		return result, err
	}
	for _, e := range events {
		req, err := v.Event(form.FromEvent(e))
		if err != nil {
			log.Warn("skipping imported event", "event", e.ID, "title", e.Title, "error", err)
			result.Skipped++
			continue
		}
		if _, err := s.api.CreateEvent(ctx, calendarID, req); err != nil {
			return result, err
		}
		result.Created++
	}
	log.Info("imported events", "calendar", calendarID, "created", result.Created, "skipped", result.Skipped)
	return result, nil
}
