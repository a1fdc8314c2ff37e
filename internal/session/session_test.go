package session_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazhate/calclient/internal/clients/calendarapi"
	"github.com/tazhate/calclient/internal/clients/calendarapi/calendartest"
	"github.com/tazhate/calclient/internal/domain"
	"github.com/tazhate/calclient/internal/session"
	"github.com/tazhate/calclient/internal/storage"
)

type fixture struct {
	backend *calendartest.Backend
	store   *storage.Storage
	client  *calendarapi.Client
}

func setup(t *testing.T) *fixture {
	t.Helper()
	backend := calendartest.New()
	t.Cleanup(backend.Close)
	store, err := storage.New(filepath.Join(t.TempDir(), "calclient.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return &fixture{
		backend: backend,
		store:   store,
		client:  calendarapi.NewClient(backend.URL(), 5*time.Second, nil),
	}
}

// authenticated reports whether the client's token is accepted by the backend
func authenticated(client *calendarapi.Client) bool {
	_, err := client.GetMyProfile(context.Background())
	return err == nil
}

func TestSession_Open(t *testing.T) {
	t.Run("Should stay anonymous without stored tokens", func(t *testing.T) {
		f := setup(t)
		s := session.New(f.store, f.client)
		require.NoError(t, s.Open(context.Background()))
		assert.False(t, s.Present())
		assert.False(t, authenticated(f.client))
		_, err := s.Require()
		assert.ErrorIs(t, err, session.ErrNotLoggedIn)
	})

	t.Run("Should restore the user from stored tokens", func(t *testing.T) {
		f := setup(t)
		require.NoError(t, f.store.SaveTokens(calendartest.Token("alice"), "refresh"))

		s := session.New(f.store, f.client)
		require.NoError(t, s.Open(context.Background()))
		require.True(t, s.Present())
		assert.Equal(t, "alice", s.User().Login)
		assert.True(t, authenticated(f.client))
	})

	t.Run("Should not fetch the profile when the refresh token is missing", func(t *testing.T) {
		f := setup(t)
		require.NoError(t, f.store.SaveTokens(calendartest.Token("alice"), ""))

		s := session.New(f.store, f.client)
		require.NoError(t, s.Open(context.Background()))
		assert.False(t, s.Present())
		assert.Empty(t, f.backend.Requests())
	})

	t.Run("Should keep the cached profile when the backend is unavailable", func(t *testing.T) {
		f := setup(t)
		require.NoError(t, f.store.SaveTokens("stale", "refresh"))
		require.NoError(t, f.store.SaveProfile(&domain.User{ID: 1, Login: "alice"}))

		s := session.New(f.store, f.client)
		require.NoError(t, s.Open(context.Background()))
		require.True(t, s.Present())
		assert.Equal(t, "alice", s.User().Login)
	})
}

func TestSession_LoginLogout(t *testing.T) {
	t.Run("Should persist tokens on login and clear them on logout", func(t *testing.T) {
		f := setup(t)
		ctx := context.Background()
		s := session.New(f.store, f.client)

		user, err := s.Login(ctx, "alice", calendartest.Password)
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Login)

		tokens, err := f.store.GetTokens()
		require.NoError(t, err)
		assert.Equal(t, calendartest.Token("alice"), tokens.AccessToken)

		reopened := session.New(f.store, calendarapi.NewClient(f.backend.URL(), time.Second, nil))
		require.NoError(t, reopened.Open(ctx))
		assert.True(t, reopened.Present())

		require.NoError(t, s.Logout(ctx))
		assert.False(t, s.Present())
		assert.False(t, authenticated(f.client))
		tokens, err = f.store.GetTokens()
		require.NoError(t, err)
		assert.Nil(t, tokens)
		profile, err := f.store.GetProfile()
		require.NoError(t, err)
		assert.Nil(t, profile)
	})

	t.Run("Should not store anything when login fails", func(t *testing.T) {
		f := setup(t)
		s := session.New(f.store, f.client)
		_, err := s.Login(context.Background(), "alice", "wrong")
		assert.ErrorIs(t, err, domain.ErrRejected)
		tokens, err := f.store.GetTokens()
		require.NoError(t, err)
		assert.Nil(t, tokens)
		assert.False(t, s.Present())
	})

	t.Run("Should return a copy of the user", func(t *testing.T) {
		f := setup(t)
		s := session.New(f.store, f.client)
		_, err := s.Login(context.Background(), "alice", calendartest.Password)
		require.NoError(t, err)
		u := s.User()
		u.Login = "mallory"
		assert.Equal(t, "alice", s.User().Login)
	})
}
