// Package session holds the signed-in user and token lifecycle.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tazhate/calclient/internal/clients/calendarapi"
	"github.com/tazhate/calclient/internal/domain"
	"github.com/tazhate/calclient/internal/logger"
	"github.com/tazhate/calclient/internal/storage"
)

// ErrNotLoggedIn is returned by operations that need a session
var ErrNotLoggedIn = errors.New("not logged in")

// Store persists tokens and the cached profile
type Store interface {
	SaveTokens(accessToken, refreshToken string) error
	GetTokens() (*storage.Tokens, error)
	ClearTokens() error
	SaveProfile(u *domain.User) error
	GetProfile() (*domain.User, error)
	ClearProfile() error
}

// API is the part of the calendar client the session needs
type API interface {
	Login(ctx context.Context, req calendarapi.LoginRequest) (*calendarapi.Tokens, error)
	GetMyProfile(ctx context.Context) (*domain.User, error)
	SetAccessToken(token string)
}

type Session struct {
	store Store
	api   API

	mu   sync.RWMutex
	user *domain.User
}

func New(store Store, api API) *Session {
	return &Session{store: store, api: api}
}

// Open restores a stored session. When both tokens are present the access
// token is installed and the profile refreshed; if the refresh fails the
// cached profile is kept. Without tokens the session stays anonymous.
func (s *Session) Open(ctx context.Context) error {
	log := logger.FromContext(ctx)

	tokens, err := s.store.GetTokens()
	if err != nil {
		return fmt.Errorf("read tokens: %w", err)
	}
	if !tokens.Present() {
		log.Debug("no stored session")
		return nil
	}
	s.api.SetAccessToken(tokens.AccessToken)

	cached, err := s.store.GetProfile()
	if err != nil {
		log.Warn("read cached profile", "error", err)
	}
	s.setUser(cached)

	user, err := s.api.GetMyProfile(ctx)
	if err != nil {
		log.Warn("profile refresh failed", "error", err)
		return nil
	}
	s.setUser(user)
	if err := s.store.SaveProfile(user); err != nil {
		log.Warn("cache profile", "error", err)
	}
	log.Info("session restored", "user", user.Login)
	return nil
}

// Login exchanges credentials for tokens, persists them and loads the profile
func (s *Session) Login(ctx context.Context, login, password string) (*domain.User, error) {
	tokens, err := s.api.Login(ctx, calendarapi.LoginRequest{Login: login, Password: password})
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveTokens(tokens.AccessToken, tokens.RefreshToken); err != nil {
		return nil, fmt.Errorf("save tokens: %w", err)
	}
	s.api.SetAccessToken(tokens.AccessToken)

	user, err := s.api.GetMyProfile(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveProfile(user); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	s.setUser(user)
	logger.FromContext(ctx).Info("logged in", "user", user.Login)
	return user, nil
}

// Logout clears stored tokens and the cached user
func (s *Session) Logout(ctx context.Context) error {
	s.api.SetAccessToken("")
	s.setUser(nil)
	if err := s.store.ClearTokens(); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	if err := s.store.ClearProfile(); err != nil {
		return fmt.Errorf("clear profile: %w", err)
	}
	logger.FromContext(ctx).Info("logged out")
	return nil
}

// Present reports whether a user is signed in
func (s *Session) Present() bool {
	return s.User() != nil
}

// User returns the current user, nil when anonymous
func (s *Session) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Require returns the current user or ErrNotLoggedIn
func (s *Session) Require() (*domain.User, error) {
	if u := s.User(); u != nil {
		return u, nil
	}
	return nil, ErrNotLoggedIn
}

func (s *Session) setUser(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
}
