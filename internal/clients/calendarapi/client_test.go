package calendarapi_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazhate/calclient/internal/clients/calendarapi"
	"github.com/tazhate/calclient/internal/clients/calendarapi/calendartest"
	"github.com/tazhate/calclient/internal/domain"
	"github.com/tazhate/calclient/internal/notify"
)

func newClient(t *testing.T) (*calendarapi.Client, *calendartest.Backend, *notify.Recorder) {
	t.Helper()
	backend := calendartest.New()
	t.Cleanup(backend.Close)
	rec := notify.NewRecorder(50)
	client := calendarapi.NewClient(backend.URL(), 5*time.Second, rec)
	client.SetAccessToken(calendartest.Token("alice"))
	return client, backend, rec
}

func TestClient_Login(t *testing.T) {
	t.Run("Should return the token pair for valid credentials", func(t *testing.T) {
		client, _, _ := newClient(t)
		client.SetAccessToken("")

		tokens, err := client.Login(context.Background(), calendarapi.LoginRequest{Login: "alice", Password: calendartest.Password})
		require.NoError(t, err)
		assert.Equal(t, calendartest.Token("alice"), tokens.AccessToken)
		assert.Equal(t, "refresh-alice", tokens.RefreshToken)
	})

	t.Run("Should reject wrong password and notify", func(t *testing.T) {
		client, _, rec := newClient(t)
		_, err := client.Login(context.Background(), calendarapi.LoginRequest{Login: "alice", Password: "nope"})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrRejected)
		assert.Equal(t, []string{"Failed to log in: Invalid credentials"}, rec.Messages(notify.LevelError))
	})
}

func TestClient_GetMyProfile(t *testing.T) {
	t.Run("Should return the current user", func(t *testing.T) {
		client, _, _ := newClient(t)
		user, err := client.GetMyProfile(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Login)
		assert.Equal(t, "Alice Liddell", user.DisplayName())
	})

	t.Run("Should fail without a token", func(t *testing.T) {
		client, _, _ := newClient(t)
		client.SetAccessToken("")
		_, err := client.GetMyProfile(context.Background())
		var apiErr *domain.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	})
}

func TestClient_Calendars(t *testing.T) {
	t.Run("Should list own calendars as memberships", func(t *testing.T) {
		client, backend, _ := newClient(t)
		backend.AddCalendar("alice", "Work")
		backend.AddCalendar("alice", "Home")

		memberships, err := client.ListMyCalendars(context.Background())
		require.NoError(t, err)
		require.Len(t, memberships, 2)
		assert.Equal(t, domain.RoleOwner, memberships[0].Role)
		assert.Equal(t, []string{"Work", "Home"}, []string{
			domain.Calendars(memberships)[0].Title,
			domain.Calendars(memberships)[1].Title,
		})
	})

	t.Run("Should list calendars shared with the user", func(t *testing.T) {
		client, backend, _ := newClient(t)
		backend.AddUser("bob", "Bob")
		cal := backend.AddCalendar("bob", "Bob's")
		require.NoError(t, client.AddVisitor(context.Background(), cal.ID, calendarapi.AddVisitorRequest{Email: "alice@example.com"}))

		shared, err := client.ListSharedCalendars(context.Background())
		require.NoError(t, err)
		require.Len(t, shared, 1)
		assert.Equal(t, "Bob's", shared[0].Title)
	})

	t.Run("Should create, update and delete a calendar", func(t *testing.T) {
		client, _, _ := newClient(t)
		ctx := context.Background()
		desc := "team stuff"
		cal, err := client.CreateCalendar(ctx, calendarapi.CreateCalendarRequest{Title: "Team", Description: &desc})
		require.NoError(t, err)
		assert.NotEmpty(t, cal.ID)

		title := "Team A"
		updated, err := client.UpdateCalendar(ctx, cal.ID, calendarapi.UpdateCalendarRequest{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "Team A", updated.Title)
		assert.Equal(t, "team stuff", updated.Description)

		require.NoError(t, client.DeleteCalendar(ctx, cal.ID))
		_, err = client.GetCalendar(ctx, cal.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestClient_ListEvents(t *testing.T) {
	t.Run("Should send paging parameters", func(t *testing.T) {
		client, backend, _ := newClient(t)
		cal := backend.AddCalendar("alice", "Work")

		_, err := client.ListEvents(context.Background(), cal.ID, domain.PageOptions{
			Page: 2, Limit: 5, SortField: "startTime", SortDirection: domain.SortDesc, Search: "sync",
		})
		require.NoError(t, err)
		last := backend.Requests()[len(backend.Requests())-1]
		assert.True(t, strings.HasPrefix(last, "GET /api/calendar/"+cal.ID+"/events?"))
		for _, part := range []string{"page=2", "limit=5", "sortField=startTime", "sortDirection=DESC", "search=sync"} {
			assert.Contains(t, last, part)
		}
	})

	t.Run("Should return an empty page for a calendar without events", func(t *testing.T) {
		client, backend, _ := newClient(t)
		cal := backend.AddCalendar("alice", "Empty")
		page, err := client.ListEvents(context.Background(), cal.ID, domain.PageOptions{})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.Equal(t, 0, page.Total)
	})

	t.Run("Should walk all pages in start order", func(t *testing.T) {
		client, backend, _ := newClient(t)
		cal := backend.AddCalendar("alice", "Work")
		base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
		for i := 4; i >= 0; i-- {
			backend.AddEvent(cal.ID, domain.Event{Title: "event", StartTime: base.AddDate(0, 0, i), Type: domain.EventTask})
		}

		events, err := client.ListAllEvents(context.Background(), cal.ID, 2)
		require.NoError(t, err)
		require.Len(t, events, 5)
		for i := 1; i < len(events); i++ {
			assert.True(t, events[i-1].StartTime.Before(events[i].StartTime))
		}
	})
}

func TestClient_CreateEvent(t *testing.T) {
	t.Run("Should create an event and return it with an id", func(t *testing.T) {
		client, backend, rec := newClient(t)
		cal := backend.AddCalendar("alice", "Work")
		start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
		end := start.Add(15 * time.Minute)

		event, err := client.CreateEvent(context.Background(), cal.ID, calendarapi.CreateEventRequest{
			Title: "Standup", StartTime: start, EndTime: &end,
			Type: domain.EventArrangement, Recurrence: domain.RecurrenceDaily,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, event.ID)
		assert.Equal(t, "Standup", event.Title)
		assert.True(t, event.StartTime.Equal(start))
		assert.Len(t, backend.Events(cal.ID), 1)
		assert.Empty(t, rec.Messages(notify.LevelError))
	})

	t.Run("Should surface backend validation messages", func(t *testing.T) {
		client, backend, rec := newClient(t)
		cal := backend.AddCalendar("alice", "Work")

		_, err := client.CreateEvent(context.Background(), cal.ID, calendarapi.CreateEventRequest{
			Title: "ab", StartTime: time.Now(), Type: domain.EventTask, Recurrence: domain.RecurrenceNone,
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.ErrorIs(t, err, domain.ErrRejected)
		assert.Equal(t, "title must be longer than or equal to 3 characters", domain.UserMessage(err))
		assert.Equal(t, []string{"Failed to create event: title must be longer than or equal to 3 characters"}, rec.Messages(notify.LevelError))
	})
}

func TestClient_DeleteEvent(t *testing.T) {
	t.Run("Should delete an existing event", func(t *testing.T) {
		client, backend, _ := newClient(t)
		cal := backend.AddCalendar("alice", "Work")
		event := backend.AddEvent(cal.ID, domain.Event{Title: "Gone", StartTime: time.Now()})

		require.NoError(t, client.DeleteEvent(context.Background(), cal.ID, event.ID))
		assert.Empty(t, backend.Events(cal.ID))
	})

	t.Run("Should report a missing event as not found", func(t *testing.T) {
		client, backend, _ := newClient(t)
		cal := backend.AddCalendar("alice", "Work")
		err := client.DeleteEvent(context.Background(), cal.ID, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestClient_Sharing(t *testing.T) {
	t.Run("Should refuse to share ownership without a request", func(t *testing.T) {
		client, backend, rec := newClient(t)
		cal := backend.AddCalendar("alice", "Work")
		before := len(backend.Requests())

		err := client.ShareCalendar(context.Background(), cal.ID, "2", domain.RoleOwner)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Len(t, backend.Requests(), before)
		assert.Empty(t, rec.All())
	})

	t.Run("Should share with an editor and remove the visitor", func(t *testing.T) {
		client, backend, _ := newClient(t)
		bob := backend.AddUser("bob", "Bob")
		cal := backend.AddCalendar("alice", "Work")
		ctx := context.Background()

		require.NoError(t, client.ShareCalendar(ctx, cal.ID, "2", domain.RoleEditor))
		got, err := client.GetCalendar(ctx, cal.ID)
		require.NoError(t, err)
		assert.True(t, got.HasVisitor(bob.ID))

		require.NoError(t, client.RemoveVisitor(ctx, cal.ID, "2"))
		got, err = client.GetCalendar(ctx, cal.ID)
		require.NoError(t, err)
		assert.False(t, got.HasVisitor(bob.ID))
	})
}

func TestClient_Failures(t *testing.T) {
	t.Run("Should notify once and return a rejected error", func(t *testing.T) {
		client, backend, rec := newClient(t)
		backend.Fail("GET /api/calendar/my-calendars", http.StatusInternalServerError, "boom")

		_, err := client.ListMyCalendars(context.Background())
		assert.ErrorIs(t, err, domain.ErrRejected)
		assert.NotErrorIs(t, err, domain.ErrNetwork)
		assert.Equal(t, []string{"Failed to fetch calendars: boom"}, rec.Messages(notify.LevelError))
	})

	t.Run("Should join list messages", func(t *testing.T) {
		client, backend, _ := newClient(t)
		backend.Fail("POST /api/calendar", http.StatusBadRequest, []string{"a", "b"})
		_, err := client.CreateCalendar(context.Background(), calendarapi.CreateCalendarRequest{Title: "x"})
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, "a; b", domain.UserMessage(err))
	})

	t.Run("Should classify an unreachable backend as a network failure", func(t *testing.T) {
		backend := calendartest.New()
		url := backend.URL()
		backend.Close()
		rec := notify.NewRecorder(10)
		client := calendarapi.NewClient(url, time.Second, rec)

		_, err := client.ListMyCalendars(context.Background())
		assert.ErrorIs(t, err, domain.ErrNetwork)
		assert.Len(t, rec.Messages(notify.LevelError), 1)
	})

	t.Run("Should not notify when the caller cancels", func(t *testing.T) {
		client, backend, rec := newClient(t)
		cal := backend.AddCalendar("alice", "Work")
		release := backend.Hold(cal.ID)
		defer release()

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			_, err := client.ListEvents(ctx, cal.ID, domain.PageOptions{})
			done <- err
		}()
		time.Sleep(50 * time.Millisecond)
		cancel()

		err := <-done
		assert.True(t, errors.Is(err, domain.ErrCanceled))
		assert.Empty(t, rec.All())
	})
}
