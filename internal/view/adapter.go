// Package view drives the calendar screen: which calendar is selected, its
// events, and the feed consumed by the calendar widget.
package view

import (
	"time"

	"github.com/tazhate/calclient/internal/domain"
)

// DefaultColor is used for events without a color
const DefaultColor = "#3788d8"

// Item is one drawable entry in FullCalendar's event input format
type Item struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Start         string `json:"start"`
	End           string `json:"end,omitempty"`
	AllDay        bool   `json:"allDay"`
	Color         string `json:"color"`
	ExtendedProps Props  `json:"extendedProps"`
}

// Props is the metadata bag used for custom rendering
type Props struct {
	Description string                 `json:"description"`
	Type        domain.EventType       `json:"type"`
	Recurrence  domain.EventRecurrence `json:"recurrence"`
	Color       string                 `json:"color"`
	Label       string                 `json:"label"`
}

// Label is the rendered title: a colored dot followed by the title
func (i Item) Label() string {
	return "● " + i.Title
}

// ToItem converts an event. Open-ended events have no end. An event running
// from 00:00 on one day to 23:59 on the same or a later day in loc is drawn
// as all-day.
func ToItem(e domain.Event, loc *time.Location) Item {
	if loc == nil {
		loc = time.UTC
	}
	color := e.Color
	if color == "" {
		color = DefaultColor
	}
	item := Item{
		ID:     e.ID,
		Title:  e.Title,
		Start:  e.StartTime.In(loc).Format(time.RFC3339),
		AllDay: isAllDay(e, loc),
		Color:  color,
		ExtendedProps: Props{
			Description: e.Description,
			Type:        e.Type,
			Recurrence:  e.Recurrence,
			Color:       color,
		},
	}
	item.ExtendedProps.Label = item.Label()
	if !e.IsOpenEnded() {
		item.End = e.EndTime.In(loc).Format(time.RFC3339)
	}
	if item.AllDay {
		item.Start = e.StartTime.In(loc).Format(time.DateOnly)
		// widget end dates are exclusive
		item.End = e.EndTime.In(loc).AddDate(0, 0, 1).Format(time.DateOnly)
	}
	return item
}

// Items converts a list of events; the result is never nil
func Items(events []domain.Event, loc *time.Location) []Item {
	out := make([]Item, 0, len(events))
	for _, e := range events {
		out = append(out, ToItem(e, loc))
	}
	return out
}

func isAllDay(e domain.Event, loc *time.Location) bool {
	if e.IsOpenEnded() {
		return false
	}
	start := e.StartTime.In(loc)
	end := e.EndTime.In(loc)
	if start.Hour() != 0 || start.Minute() != 0 || end.Hour() != 23 || end.Minute() != 59 {
		return false
	}
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return !endDay.Before(startDay)
}
