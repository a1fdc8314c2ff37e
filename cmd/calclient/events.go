package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tazhate/calclient/internal/domain"
	"github.com/tazhate/calclient/internal/form"
)

func eventsCmd(flags *globalFlags) *cobra.Command {
	var calendarID string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List the events of the selected calendar",
		RunE: run(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			if err := a.loadCalendars(cmd.Context(), calendarID); err != nil {
				return err
			}
			state := a.controller.State()
			if state.Calendar == nil {
				return domain.ErrNoCalendar
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tWHEN\tTYPE\tREPEATS\tTITLE")
			for _, e := range state.Events {
				fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\t%s\n",
					e.ID, e.FormatDateTime(a.cfg.Timezone), e.TypeEmoji(), e.Type, e.Recurrence, e.Title)
			}
			return w.Flush()
		}),
	}
	cmd.Flags().StringVarP(&calendarID, "calendar", "c", "", "calendar id (defaults to the last selected)")
	return cmd
}

func createEventCmd(flags *globalFlags) *cobra.Command {
	var calendarID string
	f := form.NewEventForm()
	var eventType, recurrence string
	cmd := &cobra.Command{
		Use:   "create-event",
		Short: "Create an event in the selected calendar",
		RunE: run(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			ctx := cmd.Context()
			if err := a.loadCalendars(ctx, calendarID); err != nil {
				return err
			}
			f.Type = domain.EventType(eventType)
			f.Recurrence = domain.EventRecurrence(recurrence)
			event, err := a.controller.Submit(ctx, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", event.Title, event.ID)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&calendarID, "calendar", "c", "", "calendar id (defaults to the last selected)")
	cmd.Flags().StringVar(&f.Title, "title", "", "event title")
	cmd.Flags().StringVar(&f.Description, "description", "", "event description")
	cmd.Flags().StringVar(&f.Start, "start", "", "start, e.g. 2024-05-01T09:00 or 2024-05-01 for all-day")
	cmd.Flags().StringVar(&f.End, "end", "", "end, e.g. 2024-05-01T09:30")
	cmd.Flags().BoolVar(&f.AllDay, "all-day", false, "all-day event")
	cmd.Flags().StringVar(&eventType, "type", string(domain.EventArrangement), "arrangement, reminder or task")
	cmd.Flags().StringVar(&recurrence, "recurrence", string(domain.RecurrenceNone), "none, daily, weekly, biweekly, monthly or yearly")
	cmd.Flags().StringVar(&f.Color, "color", "", "hex color, e.g. #3788d8")
	return cmd
}

func deleteEventCmd(flags *globalFlags) *cobra.Command {
	var calendarID string
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete-event EVENT_ID",
		Short: "Delete an event after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: run(flags, func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			if err := a.loadCalendars(ctx, calendarID); err != nil {
				return err
			}
			deleted, err := a.controller.ActivateEvent(ctx, args[0], stdinConfirmer(cmd, yes))
			if err != nil {
				return err
			}
			if !deleted {
				fmt.Fprintln(cmd.OutOrStdout(), "Canceled")
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&calendarID, "calendar", "c", "", "calendar id (defaults to the last selected)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func exportCmd(flags *globalFlags) *cobra.Command {
	var calendarID, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a calendar as iCalendar",
		RunE: run(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			ctx := cmd.Context()
			if err := a.loadCalendars(ctx, calendarID); err != nil {
				return err
			}
			cal := a.controller.State().Calendar
			if cal == nil {
				return domain.ErrNoCalendar
			}
			if output == "" || output == "-" {
				return a.calendars.Export(ctx, cal.ID, cmd.OutOrStdout())
			}
			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := a.calendars.Export(ctx, cal.ID, file); err != nil {
				file.Close()
				return err
			}
			return file.Close()
		}),
	}
	cmd.Flags().StringVarP(&calendarID, "calendar", "c", "", "calendar id (defaults to the last selected)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func importCmd(flags *globalFlags) *cobra.Command {
	var calendarID string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Create the events of an exported iCalendar file in a calendar",
		Args:  cobra.ExactArgs(1),
		RunE: run(flags, func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			if err := a.loadCalendars(ctx, calendarID); err != nil {
				return err
			}
			cal := a.controller.State().Calendar
			if cal == nil {
				return domain.ErrNoCalendar
			}
			if err := a.controller.Authorize(cal.ID, domain.UserRole.CanEditEvents); err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open %s: %w", args[0], err)
				}
				defer file.Close()
				in = file
			}
			result, err := a.calendars.Import(ctx, cal.ID, in, a.validator)
			if err != nil {
				return err
			}
			if err := a.controller.Reload(ctx); err != nil {
				a.log.Warn("reload after import failed", "calendar", cal.ID, "error", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported into %s: %d created, %d skipped\n", cal.Title, result.Created, result.Skipped)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&calendarID, "calendar", "c", "", "calendar id (defaults to the last selected)")
	return cmd
}

func mirrorCmd(flags *globalFlags) *cobra.Command {
	var calendarID, collection string
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Copy a calendar's events to the CalDAV server",
		RunE: run(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			ctx := cmd.Context()
			if err := a.loadCalendars(ctx, calendarID); err != nil {
				return err
			}
			cal := a.controller.State().Calendar
			if cal == nil {
				return domain.ErrNoCalendar
			}
			if collection != "" {
				a.mirror.SetCalendarPath(collection)
			}
			result, err := a.calendars.MirrorCalendar(ctx, cal.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Mirrored %s: %d written, %d removed\n", cal.Title, result.Put, result.Removed)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&calendarID, "calendar", "c", "", "calendar id (defaults to the last selected)")
	cmd.Flags().StringVar(&collection, "collection", "", "CalDAV collection path (see caldav-calendars); overrides the configured one")
	return cmd
}

func caldavCalendarsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "caldav-calendars",
		Short: "List calendars on the CalDAV server",
		RunE: run(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			calendars, err := a.mirror.DiscoverCalendars(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tNAME")
			for _, c := range calendars {
				fmt.Fprintf(w, "%s\t%s\n", c.Path, c.DisplayName)
			}
			return w.Flush()
		}),
	}
}
