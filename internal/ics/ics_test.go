package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazhate/calclient/internal/domain"
)

func sampleEvents() []domain.Event {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	return []domain.Event{
		{
			ID: "e1", Title: "Standup", Description: "daily sync",
			StartTime: start, EndTime: &end,
			Type: domain.EventArrangement, Recurrence: domain.RecurrenceBiweekly, Color: "#ff0000",
		},
		{ID: "e2", Title: "Pay rent", StartTime: start.AddDate(0, 0, 1), Type: domain.EventTask, Recurrence: domain.RecurrenceNone},
	}
}

func TestExport(t *testing.T) {
	t.Run("Should write one VEVENT per event with RRULE tags", func(t *testing.T) {
		var buf bytes.Buffer
		err := Export(&buf, &domain.Calendar{ID: "c1", Title: "Work"}, sampleEvents())
		require.NoError(t, err)

		out := buf.String()
		assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
		assert.Contains(t, out, "UID:e1@calclient")
		assert.Contains(t, out, "RRULE:FREQ=WEEKLY;INTERVAL=2")
		assert.Contains(t, out, "X-WR-CALNAME:Work")
		assert.Equal(t, 1, strings.Count(out, "RRULE"))
	})

	t.Run("Should write an empty calendar", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Export(&buf, &domain.Calendar{Title: "Empty"}, nil))
		assert.Contains(t, buf.String(), "BEGIN:VCALENDAR")
		assert.NotContains(t, buf.String(), "VEVENT")
	})

	t.Run("Should escape calendar names with separators", func(t *testing.T) {
		title := "Team; ops, on-call\nrota"
		for _, events := range [][]domain.Event{nil, sampleEvents()} {
			var buf bytes.Buffer
			require.NoError(t, Export(&buf, &domain.Calendar{Title: title, Description: "a,b"}, events))
			out := buf.String()
			assert.Contains(t, out, `X-WR-CALNAME:Team\; ops\, on-call\nrota`)
			assert.NotContains(t, out, "X-WR-CALNAME;VALUE=TEXT")
			for _, line := range strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n") {
				assert.NotContains(t, line, "\n")
			}
		}
	})

	t.Run("Should reject an unknown recurrence", func(t *testing.T) {
		events := sampleEvents()
		events[0].Recurrence = "hourly"
		err := Export(&bytes.Buffer{}, nil, events)
		assert.Error(t, err)
	})
}

func TestDecode(t *testing.T) {
	t.Run("Should read back exported events", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Export(&buf, nil, sampleEvents()))

		events, err := Decode(&buf)
		require.NoError(t, err)
		require.Len(t, events, 2)

		first := events[0]
		assert.Equal(t, "e1", first.ID)
		assert.Equal(t, "Standup", first.Title)
		assert.Equal(t, "daily sync", first.Description)
		assert.True(t, first.StartTime.Equal(sampleEvents()[0].StartTime))
		require.NotNil(t, first.EndTime)
		assert.Equal(t, domain.RecurrenceBiweekly, first.Recurrence)
		assert.Equal(t, domain.EventArrangement, first.Type)
		assert.Equal(t, "#ff0000", first.Color)

		assert.True(t, events[1].IsOpenEnded())
		assert.Equal(t, domain.EventTask, events[1].Type)
	})

	t.Run("Should unescape text with separators", func(t *testing.T) {
		events := sampleEvents()
		events[0].Title = "Lunch; pizza, salad"
		events[0].Description = "line one\nline two"
		var buf bytes.Buffer
		require.NoError(t, Export(&buf, nil, events))
		assert.Contains(t, buf.String(), `SUMMARY:Lunch\; pizza\, salad`)

		decoded, err := Decode(&buf)
		require.NoError(t, err)
		require.Len(t, decoded, 2)
		assert.Equal(t, "Lunch; pizza, salad", decoded[0].Title)
		assert.Equal(t, "line one\nline two", decoded[0].Description)
		assert.Equal(t, domain.RecurrenceBiweekly, decoded[0].Recurrence)
		assert.Equal(t, domain.RecurrenceNone, decoded[1].Recurrence)
	})
}

func TestEventID(t *testing.T) {
	id, ok := EventID("abc@calclient")
	assert.True(t, ok)
	assert.Equal(t, "abc", id)

	_, ok = EventID("123@icloud.com")
	assert.False(t, ok)
	_, ok = EventID("@calclient")
	assert.False(t, ok)
}
