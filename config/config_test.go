package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Should require API URL", func(t *testing.T) {
		t.Setenv("CALCLIENT_API_URL", "")
		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CALCLIENT_API_URL")
	})

	t.Run("Should apply defaults", func(t *testing.T) {
		t.Setenv("CALCLIENT_API_URL", "http://localhost:3000/")
		for _, key := range []string{"CALCLIENT_TIMEOUT", "CALCLIENT_PAGE_SIZE", "CALCLIENT_LISTEN", "TIMEZONE", "TELEGRAM_BOT_TOKEN", "CALDAV_USERNAME"} {
			t.Setenv(key, "")
		}
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:3000", cfg.APIURL)
		assert.Equal(t, 30*time.Second, cfg.Timeout)
		assert.Equal(t, 100, cfg.PageSize)
		assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
		assert.Equal(t, time.UTC, cfg.Timezone)
		assert.False(t, cfg.TelegramEnabled())
		assert.False(t, cfg.CalDAVEnabled())
	})

	t.Run("Should read values from env file without overriding environment", func(t *testing.T) {
		dir := t.TempDir()
		envFile := filepath.Join(dir, ".env")
		content := "CALCLIENT_API_URL=http://from-file:3000\nCALCLIENT_PAGE_SIZE=25\n"
		require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))
		t.Setenv("CALCLIENT_API_URL", "http://from-env:3000")
		t.Setenv("CALCLIENT_PAGE_SIZE", "")
		require.NoError(t, os.Unsetenv("CALCLIENT_PAGE_SIZE"))

		cfg, err := Load(envFile)
		require.NoError(t, err)
		assert.Equal(t, "http://from-env:3000", cfg.APIURL)
		assert.Equal(t, 25, cfg.PageSize)
	})

	t.Run("Should reject relative API URL", func(t *testing.T) {
		t.Setenv("CALCLIENT_API_URL", "localhost")
		_, err := Load("")
		require.Error(t, err)
	})

	t.Run("Should reject bad page size", func(t *testing.T) {
		t.Setenv("CALCLIENT_API_URL", "http://localhost:3000")
		t.Setenv("CALCLIENT_PAGE_SIZE", "0")
		_, err := Load("")
		require.Error(t, err)
	})
}
