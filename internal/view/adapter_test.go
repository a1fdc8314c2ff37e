package view

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazhate/calclient/internal/domain"
)

func TestToItem(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	t.Run("Should map identity, times and metadata", func(t *testing.T) {
		item := ToItem(domain.Event{
			ID: "e1", Title: "Standup", Description: "daily sync",
			StartTime: start, EndTime: &end,
			Type: domain.EventArrangement, Recurrence: domain.RecurrenceDaily, Color: "#ff0000",
		}, time.UTC)

		assert.Equal(t, "e1", item.ID)
		assert.Equal(t, "2024-05-01T09:00:00Z", item.Start)
		assert.Equal(t, "2024-05-01T09:30:00Z", item.End)
		assert.False(t, item.AllDay)
		assert.Equal(t, "#ff0000", item.Color)
		assert.Equal(t, Props{
			Description: "daily sync", Type: domain.EventArrangement,
			Recurrence: domain.RecurrenceDaily, Color: "#ff0000",
			Label: "● Standup",
		}, item.ExtendedProps)
		assert.Equal(t, "● Standup", item.Label())
	})

	t.Run("Should fall back to the default color", func(t *testing.T) {
		item := ToItem(domain.Event{ID: "e1", Title: "x", StartTime: start}, nil)
		assert.Equal(t, DefaultColor, item.Color)
		assert.Equal(t, DefaultColor, item.ExtendedProps.Color)
	})

	t.Run("Should leave open-ended events without an end", func(t *testing.T) {
		item := ToItem(domain.Event{ID: "e1", Title: "x", StartTime: start}, time.UTC)
		assert.Empty(t, item.End)

		raw, err := json.Marshal(item)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), `"end"`)
		assert.Contains(t, string(raw), `"extendedProps"`)
	})

	t.Run("Should render in the display location", func(t *testing.T) {
		loc := time.FixedZone("UTC+2", 2*60*60)
		item := ToItem(domain.Event{ID: "e1", Title: "x", StartTime: start, EndTime: &end}, loc)
		assert.Equal(t, "2024-05-01T11:00:00+02:00", item.Start)
	})

	t.Run("Should draw whole-day events as all-day", func(t *testing.T) {
		dayStart := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
		dayEnd := time.Date(2024, 7, 1, 23, 59, 0, 0, time.UTC)
		item := ToItem(domain.Event{ID: "h", Title: "Holiday", StartTime: dayStart, EndTime: &dayEnd}, time.UTC)
		assert.True(t, item.AllDay)
		assert.Equal(t, "2024-07-01", item.Start)
		assert.Equal(t, "2024-07-02", item.End)
	})

	t.Run("Should draw multi-day whole-day events as all-day", func(t *testing.T) {
		first := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		last := time.Date(2024, 5, 3, 23, 59, 0, 0, time.UTC)
		item := ToItem(domain.Event{ID: "t", Title: "Trip", StartTime: first, EndTime: &last}, time.UTC)
		assert.True(t, item.AllDay)
		assert.Equal(t, "2024-05-01", item.Start)
		assert.Equal(t, "2024-05-04", item.End)
	})

	t.Run("Should keep a 23:59 end before the start day as timed", func(t *testing.T) {
		first := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
		last := time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC)
		item := ToItem(domain.Event{ID: "x", Title: "Odd", StartTime: first, EndTime: &last}, time.UTC)
		assert.False(t, item.AllDay)
	})
}

func TestItems(t *testing.T) {
	t.Run("Should return an empty non-nil list for no events", func(t *testing.T) {
		items := Items(nil, time.UTC)
		require.NotNil(t, items)
		assert.Empty(t, items)

		raw, err := json.Marshal(items)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(raw))
	})
}
