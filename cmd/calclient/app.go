package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tazhate/calclient/config"
	"github.com/tazhate/calclient/internal/clients/caldav"
	"github.com/tazhate/calclient/internal/clients/calendarapi"
	"github.com/tazhate/calclient/internal/domain"
	"github.com/tazhate/calclient/internal/form"
	"github.com/tazhate/calclient/internal/logger"
	"github.com/tazhate/calclient/internal/notify"
	"github.com/tazhate/calclient/internal/service"
	"github.com/tazhate/calclient/internal/session"
	"github.com/tazhate/calclient/internal/storage"
	"github.com/tazhate/calclient/internal/view"
)

type globalFlags struct {
	envFile  string
	logLevel string
	logJSON  bool
}

// app holds the wired components shared by every command
type app struct {
	cfg        *config.Config
	log        logger.Logger
	store      *storage.Storage
	recorder   *notify.Recorder
	client     *calendarapi.Client
	session    *session.Session
	validator  *form.Validator
	controller *view.Controller
	dashboard  *service.DashboardService
	calendars  *service.CalendarService
	mirror     *caldav.Client
}

func newApp(cmd *cobra.Command, flags *globalFlags) (*app, error) {
	cfg, err := config.Load(flags.envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.LogLevel
	if cmd.Flags().Changed("log-level") {
		level = flags.logLevel
	}
	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.LogLevel(level)
	logCfg.JSON = cfg.LogJSON || flags.logJSON
	logger.Init(logCfg)
	log := logger.Default()

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	a := &app{cfg: cfg, log: log, store: store, recorder: notify.NewRecorder(0)}

	notifiers := notify.Multi{notify.Log{Logger: log}, a.recorder}
	if cfg.TelegramEnabled() {
		sender, err := notify.NewBotSender(cfg.TelegramToken)
		if err != nil {
			log.Warn("telegram notifications disabled", "error", err)
		} else {
			notifiers = append(notifiers, notify.NewTelegram(sender, cfg.TelegramChatID))
		}
	}

	a.client = calendarapi.NewClient(cfg.APIURL, cfg.Timeout, notifiers)
	a.session = session.New(store, a.client)
	a.validator = form.NewValidator(cfg.Timezone)
	a.controller = view.NewController(a.client, notifiers, a.validator, view.Options{
		PageSize: cfg.PageSize,
		Location: cfg.Timezone,
		OnSelect: a.rememberSelection,
	})
	a.dashboard = service.NewDashboardService(a.client, 0)
	a.mirror = caldav.NewClient(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword, cfg.CalDAVCalendar)
	a.calendars = service.NewCalendarService(a.client, a.mirror, cfg.PageSize)

	ctx := logger.WithContext(cmd.Context(), log)
	cmd.SetContext(ctx)
	if err := a.session.Open(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("open session: %w", err)
	}
	return a, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("close storage", "error", err)
	}
}

func (a *app) rememberSelection(calendarID string) {
	var err error
	if calendarID == "" {
		err = a.store.DeleteSetting(storage.KeySelectedCalendar)
	} else {
		err = a.store.SetSetting(storage.KeySelectedCalendar, calendarID)
	}
	if err != nil {
		a.log.Warn("persist selected calendar", "calendar", calendarID, "error", err)
	}
}

// loadCalendars loads the calendar list and selects calendarID. Without an
// explicit id the calendar selected last time is preferred, falling back to
// the first one when it is gone.
func (a *app) loadCalendars(ctx context.Context, calendarID string) error {
	if _, err := a.session.Require(); err != nil {
		return err
	}
	if calendarID != "" {
		return a.controller.OpenCalendar(ctx, calendarID)
	}
	stored, err := a.store.GetSetting(storage.KeySelectedCalendar)
	if err != nil {
		return fmt.Errorf("read selected calendar: %w", err)
	}
	return a.controller.LoadCalendars(ctx, stored)
}

// authorize refreshes the user's roles and checks one calendar against allowed
func (a *app) authorize(ctx context.Context, calendarID string, allowed func(domain.UserRole) bool) error {
	if _, err := a.session.Require(); err != nil {
		return err
	}
	if err := a.controller.RefreshCalendars(ctx); err != nil {
		return err
	}
	return a.controller.Authorize(calendarID, allowed)
}

// run builds the app, runs fn and closes the app afterwards
func run(flags *globalFlags, fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, flags)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return err
		}
		defer a.Close()
		if err := fn(cmd, a, args); err != nil {
			a.log.Error(err.Error())
			return err
		}
		return nil
	}
}
