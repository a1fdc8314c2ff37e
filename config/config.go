package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIURL       string
	DatabasePath string
	Timeout      time.Duration
	PageSize     int
	Listen       string
	RefreshCron  string
	Timezone     *time.Location
	LogLevel     string
	LogJSON      bool

	TelegramToken  string
	TelegramChatID int64

	CalDAVURL      string
	CalDAVUsername string
	CalDAVPassword string
	CalDAVCalendar string
}

// Load reads the configuration from the environment. Values from envFile,
// when it exists, are applied first without overriding the real environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("load %s: %w", envFile, err)
			}
		}
	}

	apiURL := strings.TrimRight(os.Getenv("CALCLIENT_API_URL"), "/")
	if apiURL == "" {
		return nil, fmt.Errorf("CALCLIENT_API_URL is required")
	}
	u, err := url.Parse(apiURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("CALCLIENT_API_URL must be an absolute URL, got %q", apiURL)
	}

	dbPath := os.Getenv("CALCLIENT_DB_PATH")
	if dbPath == "" {
		dbPath = "./data/calclient.db"
	}

	timeout := 30 * time.Second
	if v := os.Getenv("CALCLIENT_TIMEOUT"); v != "" {
		timeout, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CALCLIENT_TIMEOUT: %w", err)
		}
	}

	pageSize := 100
	if v := os.Getenv("CALCLIENT_PAGE_SIZE"); v != "" {
		pageSize, err = strconv.Atoi(v)
		if err != nil || pageSize <= 0 {
			return nil, fmt.Errorf("CALCLIENT_PAGE_SIZE must be a positive number")
		}
	}

	listen := os.Getenv("CALCLIENT_LISTEN")
	if listen == "" {
		listen = "127.0.0.1:8080"
	}

	tzName := os.Getenv("TIMEZONE")
	if tzName == "" {
		tzName = "UTC"
	}
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logJSON, _ := strconv.ParseBool(os.Getenv("LOG_JSON"))

	var chatID int64
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		chatID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID must be a number")
		}
	}

	return &Config{
		APIURL:         apiURL,
		DatabasePath:   dbPath,
		Timeout:        timeout,
		PageSize:       pageSize,
		Listen:         listen,
		RefreshCron:    os.Getenv("CALCLIENT_REFRESH_CRON"),
		Timezone:       tz,
		LogLevel:       logLevel,
		LogJSON:        logJSON,
		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID: chatID,
		CalDAVURL:      os.Getenv("CALDAV_URL"),
		CalDAVUsername: os.Getenv("CALDAV_USERNAME"),
		CalDAVPassword: os.Getenv("CALDAV_PASSWORD"),
		CalDAVCalendar: os.Getenv("CALDAV_CALENDAR"),
	}, nil
}

// TelegramEnabled reports whether notifications should be mirrored to Telegram
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// CalDAVEnabled reports whether a CalDAV mirror target is configured
func (c *Config) CalDAVEnabled() bool {
	return c.CalDAVUsername != "" && c.CalDAVPassword != "" && c.CalDAVCalendar != ""
}
