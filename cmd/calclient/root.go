package main

import (
	"github.com/spf13/cobra"
)

func rootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "calclient",
		Short:         "Client for the shared calendar service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "env file to load before reading the environment")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&flags.logJSON, "log-json", false, "write logs as JSON")

	root.AddCommand(
		loginCmd(flags),
		logoutCmd(flags),
		whoamiCmd(flags),
		calendarsCmd(flags),
		createCalendarCmd(flags),
		deleteCalendarCmd(flags),
		shareCmd(flags),
		unshareCmd(flags),
		inviteCmd(flags),
		eventsCmd(flags),
		createEventCmd(flags),
		deleteEventCmd(flags),
		exportCmd(flags),
		importCmd(flags),
		mirrorCmd(flags),
		caldavCalendarsCmd(flags),
		serveCmd(flags),
	)
	return root
}
