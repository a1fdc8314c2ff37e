package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/tazhate/calclient/internal/scheduler"
	"github.com/tazhate/calclient/internal/session"
	"github.com/tazhate/calclient/internal/web"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calendar web screen",
		RunE: run(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := a.loadCalendars(ctx, ""); err != nil {
				if !errors.Is(err, session.ErrNotLoggedIn) {
					return err
				}
				a.log.Warn("not logged in, run calclient login first")
			}

			if a.cfg.RefreshCron != "" {
				sched := scheduler.New(a.cfg.RefreshCron, a.cfg.Timezone, a.controller, a.log)
				if a.calendars.IsMirrorConfigured() {
					sched.AfterRefresh = a.mirrorSelected
				}
				go func() {
					if err := sched.Start(ctx); err != nil {
						a.log.Error("scheduler error", "error", err)
					}
				}()
				defer sched.Stop()
			}

			if a.cfg.LogLevel != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			srv := web.NewServer(web.Deps{
				Controller:    a.controller,
				Validator:     a.validator,
				Calendars:     a.client,
				Dashboard:     a.dashboard,
				Export:        a.calendars,
				Session:       a.session,
				Notifications: a.recorder,
				Logger:        a.log,
			})
			addr := a.cfg.Listen
			if listen != "" {
				addr = listen
			}
			return srv.Run(ctx, addr)
		}),
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default CALCLIENT_LISTEN)")
	return cmd
}

func (a *app) mirrorSelected(ctx context.Context) {
	cal := a.controller.State().Calendar
	if cal == nil {
		return
	}
	result, err := a.calendars.MirrorCalendar(ctx, cal.ID)
	if err != nil {
		a.log.Warn("mirror after refresh failed", "calendar", cal.ID, "error", err)
		return
	}
	a.log.Debug("calendar mirrored", "calendar", cal.ID, "put", result.Put, "removed", result.Removed)
}
