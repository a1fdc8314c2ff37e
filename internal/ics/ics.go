// Package ics renders calendars and events as iCalendar data.
package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/tazhate/calclient/internal/domain"
)

const (
	ProductID = "-//calclient//EN"
	uidSuffix = "@calclient"

	propEventType = "X-CALCLIENT-TYPE"
	propCalName   = "X-WR-CALNAME"
	propCalDesc   = "X-WR-CALDESC"
)

// UID returns the iCalendar UID of an event
func UID(e domain.Event) string {
	return e.ID + uidSuffix
}

// EventID returns the event id encoded in a UID, false for foreign UIDs
func EventID(uid string) (string, bool) {
	id, ok := strings.CutSuffix(uid, uidSuffix)
	return id, ok && id != ""
}

// setExtText stores escaped text in an X- property without a VALUE param
func setExtText(props ical.Props, name, text string) {
	props.Set(extText(name, text))
}

func extText(name, text string) *ical.Prop {
	prop := ical.NewProp(name)
	prop.SetText(strings.ReplaceAll(text, "\r", ""))
	prop.Params.Del(ical.ParamValue)
	return prop
}

func newCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	return cal
}

// Event builds the VEVENT for an event. The recurrence tag becomes an RRULE;
// instances are never expanded.
func Event(e domain.Event, stamp time.Time) (*ical.Event, error) {
	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, UID(e))
	vevent.Props.SetText(ical.PropSummary, e.Title)
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())

	if e.Description != "" {
		vevent.Props.SetText(ical.PropDescription, e.Description)
	}
	vevent.Props.SetDateTime(ical.PropDateTimeStart, e.StartTime.UTC())
	if !e.IsOpenEnded() {
		vevent.Props.SetDateTime(ical.PropDateTimeEnd, e.EndTime.UTC())
	}

	rule, err := e.Recurrence.ROption()
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", e.ID, err)
	}
	if rule != nil {
		vevent.Props.SetRecurrenceRule(rule)
	}
	if e.Type != "" {
		setExtText(vevent.Props, propEventType, string(e.Type))
	}
	if e.Color != "" {
		vevent.Props.SetText(ical.PropColor, e.Color)
	}
	return vevent, nil
}

// Calendar wraps a single event in a VCALENDAR, as stored on CalDAV servers
func Calendar(e domain.Event, stamp time.Time) (*ical.Calendar, error) {
	vevent, err := Event(e, stamp)
	if err != nil {
		return nil, err
	}
	cal := newCalendar()
	cal.Children = append(cal.Children, vevent.Component)
	return cal, nil
}

// Export writes all events of a calendar as one VCALENDAR
func Export(w io.Writer, calendar *domain.Calendar, events []domain.Event) error {
	cal := newCalendar()
	if calendar != nil {
		setExtText(cal.Props, propCalName, calendar.Title)
		if calendar.Description != "" {
			setExtText(cal.Props, propCalDesc, calendar.Description)
		}
	}

	stamp := time.Now()
	for _, e := range events {
		vevent, err := Event(e, stamp)
		if err != nil {
			return err
		}
		cal.Children = append(cal.Children, vevent.Component)
	}
	if len(cal.Children) == 0 {
		// a VCALENDAR must hold at least one component
		return writeEmpty(w, calendar)
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

func writeEmpty(w io.Writer, calendar *domain.Calendar) error {
	lines := []string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:" + ProductID}
	if calendar != nil {
		lines = append(lines, propCalName+":"+extText(propCalName, calendar.Title).Value)
	}
	lines = append(lines, "END:VCALENDAR", "")
	_, err := io.WriteString(w, strings.Join(lines, "\r\n"))
	return err
}

// Decode reads the events back from iCalendar data. Only events written by
// Event are recognized; others are skipped.
func Decode(r io.Reader) ([]domain.Event, error) {
	cal, err := ical.NewDecoder(r).Decode()
	if err != nil {
		return nil, fmt.Errorf("decode calendar: %w", err)
	}
	return Events(cal), nil
}

// Events extracts the events from a decoded calendar
func Events(cal *ical.Calendar) []domain.Event {
	var events []domain.Event
	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		prop := comp.Props.Get(ical.PropUID)
		if prop == nil {
			continue
		}
		id, ok := EventID(prop.Value)
		if !ok {
			continue
		}
		e := domain.Event{ID: id, Recurrence: domain.RecurrenceNone}
		e.Title, _ = comp.Props.Text(ical.PropSummary)
		e.Description, _ = comp.Props.Text(ical.PropDescription)
		if p := comp.Props.Get(ical.PropDateTimeStart); p != nil {
			if t, err := p.DateTime(time.UTC); err == nil {
				e.StartTime = t.UTC()
			}
		}
		if p := comp.Props.Get(ical.PropDateTimeEnd); p != nil {
			if t, err := p.DateTime(time.UTC); err == nil {
				end := t.UTC()
				e.EndTime = &end
			}
		}
		if rule, err := comp.Props.RecurrenceRule(); err == nil {
			e.Recurrence = domain.RecurrenceFromROption(rule)
		}
		typ, _ := comp.Props.Text(propEventType)
		e.Type = domain.EventType(typ)
		e.Color, _ = comp.Props.Text(ical.PropColor)
		events = append(events, e)
	}
	return events
}
