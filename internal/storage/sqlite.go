package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tazhate/calclient/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

// Tokens is the persisted session token pair
type Tokens struct {
	AccessToken  string
	RefreshToken string
	UpdatedAt    time.Time
}

// Present reports whether both tokens are set
func (t *Tokens) Present() bool {
	return t != nil && t.AccessToken != "" && t.RefreshToken != ""
}

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// :memory: databases are per connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		// Single-row tables: id is always 1
		`CREATE TABLE IF NOT EXISTS tokens (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS profile (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			user_id INTEGER NOT NULL,
			data TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL DEFAULT ''
		)`,
		`ALTER TABLE profile ADD COLUMN login TEXT NOT NULL DEFAULT ''`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}
	return nil
}

// === Tokens ===

func (s *Storage) SaveTokens(accessToken, refreshToken string) error {
	_, err := s.db.Exec(
		`INSERT INTO tokens (id, access_token, refresh_token, updated_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET access_token = excluded.access_token,
		 refresh_token = excluded.refresh_token, updated_at = excluded.updated_at`,
		accessToken, refreshToken, time.Now().UTC(),
	)
	return err
}

// GetTokens returns nil, nil when no session was stored
func (s *Storage) GetTokens() (*Tokens, error) {
	t := &Tokens{}
	err := s.db.QueryRow(
		`SELECT access_token, refresh_token, updated_at FROM tokens WHERE id = 1`,
	).Scan(&t.AccessToken, &t.RefreshToken, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Storage) ClearTokens() error {
	_, err := s.db.Exec(`DELETE FROM tokens`)
	return err
}

// === Profile ===

func (s *Storage) SaveProfile(u *domain.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO profile (id, user_id, login, data, updated_at) VALUES (1, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id, login = excluded.login,
		 data = excluded.data, updated_at = excluded.updated_at`,
		u.ID, u.Login, string(data), time.Now().UTC(),
	)
	return err
}

// GetProfile returns the cached profile, nil if none
func (s *Storage) GetProfile() (*domain.User, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM profile WHERE id = 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u := &domain.User{}
	if err := json.Unmarshal([]byte(data), u); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	return u, nil
}

func (s *Storage) ClearProfile() error {
	_, err := s.db.Exec(`DELETE FROM profile`)
	return err
}

// === Settings ===

const KeySelectedCalendar = "selected_calendar"

func (s *Storage) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// GetSetting returns "" for unknown keys
func (s *Storage) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (s *Storage) DeleteSetting(key string) error {
	_, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	return err
}
