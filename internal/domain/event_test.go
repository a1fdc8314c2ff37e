package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"
)

func rruleText(t *testing.T, r EventRecurrence) string {
	t.Helper()
	opt, err := r.ROption()
	require.NoError(t, err)
	if opt == nil {
		return ""
	}
	return opt.RRuleString()
}

func fromText(rule string) EventRecurrence {
	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return RecurrenceNone
	}
	return RecurrenceFromROption(opt)
}

func TestEventRecurrence_ROption(t *testing.T) {
	tests := []struct {
		in   EventRecurrence
		want string
	}{
		{RecurrenceNone, ""},
		{RecurrenceDaily, "FREQ=DAILY"},
		{RecurrenceWeekly, "FREQ=WEEKLY"},
		{RecurrenceBiweekly, "FREQ=WEEKLY;INTERVAL=2"},
		{RecurrenceMonthly, "FREQ=MONTHLY"},
		{RecurrenceYearly, "FREQ=YEARLY"},
	}
	for _, tt := range tests {
		t.Run("Should map "+string(tt.in), func(t *testing.T) {
			got := rruleText(t, tt.in)
			assert.Equal(t, tt.want, got)
			if tt.want != "" {
				assert.Equal(t, tt.in, fromText(got))
			}
		})
	}

	t.Run("Should reject unknown tags", func(t *testing.T) {
		_, err := EventRecurrence("hourly").ROption()
		assert.Error(t, err)
		assert.False(t, EventRecurrence("hourly").IsValid())
	})

	t.Run("Should map foreign rules to none", func(t *testing.T) {
		assert.Equal(t, RecurrenceNone, fromText("FREQ=HOURLY"))
		assert.Equal(t, RecurrenceNone, fromText("FREQ=DAILY;INTERVAL=3"))
		assert.Equal(t, RecurrenceNone, RecurrenceFromROption(nil))
		assert.Equal(t, RecurrenceWeekly, fromText("FREQ=WEEKLY;INTERVAL=1"))
	})
}

func TestEventType(t *testing.T) {
	for _, typ := range EventTypes {
		assert.True(t, typ.IsValid())
	}
	assert.False(t, EventType("meeting").IsValid())
	assert.False(t, EventType("").IsValid())
}

func TestEvent_JSON(t *testing.T) {
	t.Run("Should decode the backend shape", func(t *testing.T) {
		raw := `{"id":"e1","title":"Standup","startTime":"2024-05-01T09:00:00.000Z",
			"endTime":null,"type":"arrangement","recurrence":"biweekly",
			"creator":{"id":3,"login":"alice","full_name":"Alice"}}`
		var e Event
		require.NoError(t, json.Unmarshal([]byte(raw), &e))
		assert.True(t, e.IsOpenEnded())
		assert.Equal(t, RecurrenceBiweekly, e.Recurrence)
		assert.Equal(t, "Alice", e.Creator.DisplayName())
		assert.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), e.StartTime.UTC())
	})
}

func TestEvent_Format(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	e := Event{StartTime: start, EndTime: &end, Type: EventReminder}
	assert.Equal(t, "09:00-10:30", e.FormatTime(nil))
	assert.Equal(t, "2024-05-01 11:00-12:30", e.FormatDateTime(time.FixedZone("X", 2*3600)))
	assert.Equal(t, "🔔", e.TypeEmoji())

	e.EndTime = nil
	assert.Equal(t, "09:00", e.FormatTime(time.UTC))
}
