package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPending(t *testing.T) {
	t.Run("Should resolve loading notification once with the same ID", func(t *testing.T) {
		rec := NewRecorder(10)
		p := Begin(rec, "Creating event...")
		p.Succeed("Event created successfully")
		p.Fail("ignored")

		all := rec.All()
		require.Len(t, all, 2)
		assert.Equal(t, LevelLoading, all[0].Level)
		assert.Equal(t, LevelSuccess, all[1].Level)
		assert.Equal(t, p.ID(), all[0].ID)
		assert.Equal(t, p.ID(), all[1].ID)
	})

	t.Run("Should tolerate nil notifier", func(t *testing.T) {
		p := Begin(nil, "loading")
		p.Dismiss()
		Error(nil, "boom")
	})

	t.Run("Should resolve the pending notification carried by the context", func(t *testing.T) {
		rec := NewRecorder(10)
		p := Begin(rec, "Loading events...")
		ctx := WithPending(context.Background(), p)

		Fail(ctx, rec, "Failed to fetch events: boom")
		p.Succeed("ignored")

		all := rec.All()
		require.Len(t, all, 2)
		assert.Equal(t, LevelError, all[1].Level)
		assert.Equal(t, p.ID(), all[1].ID)
		assert.Equal(t, "Failed to fetch events: boom", all[1].Message)
	})

	t.Run("Should send a new error without a pending notification", func(t *testing.T) {
		rec := NewRecorder(10)
		Fail(context.Background(), rec, "Failed to log in")
		all := rec.All()
		require.Len(t, all, 1)
		assert.Equal(t, LevelError, all[0].Level)
		assert.NotEmpty(t, all[0].ID)
	})
}

func TestRecorder(t *testing.T) {
	t.Run("Should keep only the most recent notifications", func(t *testing.T) {
		rec := NewRecorder(2)
		Error(rec, "one")
		Error(rec, "two")
		Success(rec, "three")
		assert.Equal(t, []string{"two"}, rec.Messages(LevelError))
		assert.Equal(t, []string{"three"}, rec.Messages(LevelSuccess))
	})

	t.Run("Should clear on drain", func(t *testing.T) {
		rec := NewRecorder(0)
		Success(rec, "done")
		assert.Len(t, rec.Drain(), 1)
		assert.Empty(t, rec.Drain())
	})
}

type fakeSender struct {
	chatID int64
	texts  []string
	err    error
}

func (f *fakeSender) SendMessage(chatID int64, text string) error {
	f.chatID = chatID
	f.texts = append(f.texts, text)
	return f.err
}

func TestTelegram(t *testing.T) {
	t.Run("Should forward only resolved notifications", func(t *testing.T) {
		sender := &fakeSender{}
		tg := NewTelegram(sender, 42)
		p := Begin(tg, "Removing calendar...")
		p.Fail("Failed to remove calendar")
		Success(tg, "Calendar updated successfully")

		assert.Equal(t, int64(42), sender.chatID)
		assert.Equal(t, []string{"❌ Failed to remove calendar", "✅ Calendar updated successfully"}, sender.texts)
	})

	t.Run("Should swallow send errors", func(t *testing.T) {
		sender := &fakeSender{err: errors.New("offline")}
		Multi{NewTelegram(sender, 1), Discard}.Notify(Notification{Level: LevelError, Message: "x"})
		assert.Len(t, sender.texts, 1)
	})
}
