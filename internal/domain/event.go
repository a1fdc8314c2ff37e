package domain

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

type EventType string

const (
	EventArrangement EventType = "arrangement"
	EventReminder    EventType = "reminder"
	EventTask        EventType = "task"
)

// EventTypes lists every accepted event type in display order
var EventTypes = []EventType{EventArrangement, EventReminder, EventTask}

func (t EventType) IsValid() bool {
	switch t {
	case EventArrangement, EventReminder, EventTask:
		return true
	}
	return false
}

// EventRecurrence is a repeat-cadence tag. It is stored with the event and
// exported as an RRULE, but never expanded into instances here.
type EventRecurrence string

const (
	RecurrenceNone     EventRecurrence = "none"
	RecurrenceDaily    EventRecurrence = "daily"
	RecurrenceWeekly   EventRecurrence = "weekly"
	RecurrenceBiweekly EventRecurrence = "biweekly"
	RecurrenceMonthly  EventRecurrence = "monthly"
	RecurrenceYearly   EventRecurrence = "yearly"
)

// Recurrences is the canonical recurrence set shared by the model and forms
var Recurrences = []EventRecurrence{
	RecurrenceNone,
	RecurrenceDaily,
	RecurrenceWeekly,
	RecurrenceBiweekly,
	RecurrenceMonthly,
	RecurrenceYearly,
}

func (r EventRecurrence) IsValid() bool {
	for _, v := range Recurrences {
		if r == v {
			return true
		}
	}
	return false
}

// ROption returns the recurrence rule for the tag, nil for none
func (r EventRecurrence) ROption() (*rrule.ROption, error) {
	opt := &rrule.ROption{}
	switch r {
	case RecurrenceNone, "":
		return nil, nil
	case RecurrenceDaily:
		opt.Freq = rrule.DAILY
	case RecurrenceWeekly:
		opt.Freq = rrule.WEEKLY
	case RecurrenceBiweekly:
		opt.Freq = rrule.WEEKLY
		opt.Interval = 2
	case RecurrenceMonthly:
		opt.Freq = rrule.MONTHLY
	case RecurrenceYearly:
		opt.Freq = rrule.YEARLY
	default:
		return nil, fmt.Errorf("unknown recurrence: %q", string(r))
	}
	return opt, nil
}

// RecurrenceFromROption maps a rule to a recurrence tag. Frequency and
// interval pairs outside the canonical set map to none.
func RecurrenceFromROption(opt *rrule.ROption) EventRecurrence {
	if opt == nil {
		return RecurrenceNone
	}
	interval := opt.Interval
	if interval == 0 {
		interval = 1
	}
	switch {
	case opt.Freq == rrule.DAILY && interval == 1:
		return RecurrenceDaily
	case opt.Freq == rrule.WEEKLY && interval == 1:
		return RecurrenceWeekly
	case opt.Freq == rrule.WEEKLY && interval == 2:
		return RecurrenceBiweekly
	case opt.Freq == rrule.MONTHLY && interval == 1:
		return RecurrenceMonthly
	case opt.Freq == rrule.YEARLY && interval == 1:
		return RecurrenceYearly
	}
	return RecurrenceNone
}

// Event is the read model of a scheduled item
type Event struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	StartTime   time.Time       `json:"startTime"`
	EndTime     *time.Time      `json:"endTime,omitempty"`
	Type        EventType       `json:"type"`
	Recurrence  EventRecurrence `json:"recurrence"`
	Creator     *User           `json:"creator,omitempty"`
	Tags        []Tag           `json:"tags,omitempty"`
	Calendar    *Calendar       `json:"calendar,omitempty"`
	Color       string          `json:"color,omitempty"`
}

// IsOpenEnded reports whether the event has no end timestamp
func (e *Event) IsOpenEnded() bool {
	return e.EndTime == nil || e.EndTime.IsZero()
}

// FormatTime returns the time range in HH:MM form
func (e *Event) FormatTime(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	start := e.StartTime.In(loc).Format("15:04")
	if e.IsOpenEnded() {
		return start
	}
	return start + "-" + e.EndTime.In(loc).Format("15:04")
}

// FormatDateTime returns the start date and time range
func (e *Event) FormatDateTime(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return e.StartTime.In(loc).Format("2006-01-02") + " " + e.FormatTime(loc)
}

// TypeEmoji returns a marker for the event type
func (e *Event) TypeEmoji() string {
	switch e.Type {
	case EventArrangement:
		return "📅"
	case EventReminder:
		return "🔔"
	case EventTask:
		return "📋"
	default:
		return "•"
	}
}
