package form

import (
	"time"

	"github.com/tazhate/calclient/internal/clients/calendarapi"
	"github.com/tazhate/calclient/internal/domain"
)

// EventForm is the event creation form. Start and End take a datetime-local
// value (or RFC 3339); alternatively the date and time halves can be given
// separately.
type EventForm struct {
	Title       string                 `json:"title" validate:"required,min=3,max=100"`
	Description string                 `json:"description" validate:"max=500"`
	Start       string                 `json:"start" validate:"required,timestamp"`
	End         string                 `json:"end" validate:"required_without=AllDay,omitempty,timestamp"`
	StartDate   string                 `json:"startDate,omitempty" validate:"-"`
	StartTime   string                 `json:"startTime,omitempty" validate:"-"`
	EndDate     string                 `json:"endDate,omitempty" validate:"-"`
	EndTime     string                 `json:"endTime,omitempty" validate:"-"`
	AllDay      bool                   `json:"allDay"`
	Type        domain.EventType       `json:"type" validate:"required,event_type"`
	Recurrence  domain.EventRecurrence `json:"recurrence" validate:"required,recurrence"`
	Color       string                 `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// NewEventForm returns a form with the default type and recurrence
func NewEventForm() EventForm {
	return EventForm{Type: domain.EventArrangement, Recurrence: domain.RecurrenceNone}
}

func joinDateTime(date, clock string) string {
	if date == "" {
		return ""
	}
	if clock == "" {
		return date
	}
	return date + "T" + clock
}

// FromEvent fills a form from an existing event, keeping its exact instants.
// Open-ended events become instant events.
func FromEvent(e domain.Event) EventForm {
	f := NewEventForm()
	f.Title = e.Title
	f.Description = e.Description
	f.Start = e.StartTime.UTC().Format(time.RFC3339)
	f.End = f.Start
	if !e.IsOpenEnded() {
		f.End = e.EndTime.UTC().Format(time.RFC3339)
	}
	if e.Type != "" {
		f.Type = e.Type
	}
	if e.Recurrence != "" {
		f.Recurrence = e.Recurrence
	}
	f.Color = e.Color
	return f
}

// Normalize merges split date/time fields into Start and End
func (f EventForm) Normalize() EventForm {
	if f.Start == "" {
		f.Start = joinDateTime(f.StartDate, f.StartTime)
	}
	if f.End == "" {
		f.End = joinDateTime(f.EndDate, f.EndTime)
	}
	return f
}

// Event validates the form and builds the creation payload with UTC
// timestamps. All-day events run from 00:00 on the start day to 23:59 on
// the end day. End may equal start but never precede it.
func (v *Validator) Event(f EventForm) (calendarapi.CreateEventRequest, error) {
	f = f.Normalize()
	if errs := v.check(f); errs != nil {
		return calendarapi.CreateEventRequest{}, errs
	}

	start, _ := parseTimestamp(f.Start, v.loc)
	end := start
	if f.End != "" {
		end, _ = parseTimestamp(f.End, v.loc)
	}
	if f.AllDay {
		start = dayStart(start, v.loc)
		end = dayStart(end, v.loc).Add(23*time.Hour + 59*time.Minute)
	}
	if end.Before(start) {
		return calendarapi.CreateEventRequest{}, FieldErrors{"end": "End must not be before start"}
	}

	startUTC := start.UTC()
	endUTC := end.UTC()
	return calendarapi.CreateEventRequest{
		Title:       f.Title,
		Description: optional(f.Description),
		StartTime:   startUTC,
		EndTime:     &endUTC,
		Type:        f.Type,
		Recurrence:  f.Recurrence,
		Color:       optional(f.Color),
	}, nil
}

func dayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
