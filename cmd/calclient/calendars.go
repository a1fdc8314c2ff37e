package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tazhate/calclient/internal/domain"
	"github.com/tazhate/calclient/internal/form"
	"github.com/tazhate/calclient/internal/view"
)

func calendarsCmd(flags *globalFlags) *cobra.Command {
	var selectID string
	cmd := &cobra.Command{
		Use:   "calendars",
		Short: "List own and shared calendars",
		RunE: run(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			ctx := cmd.Context()
			if err := a.loadCalendars(ctx, ""); err != nil {
				return err
			}
			if selectID != "" {
				if err := a.controller.Select(ctx, selectID); err != nil {
					return err
				}
			}
			state := a.controller.State()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "\tID\tTITLE\tOWNER")
			for _, c := range state.Calendars {
				mark := ""
				if state.Calendar != nil && state.Calendar.ID == c.ID {
					mark = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", mark, c.ID, c.Title, c.Owner.DisplayName())
			}
			return w.Flush()
		}),
	}
	cmd.Flags().StringVar(&selectID, "select", "", "select this calendar for later commands")
	return cmd
}

func createCalendarCmd(flags *globalFlags) *cobra.Command {
	var f form.CalendarForm
	cmd := &cobra.Command{
		Use:   "create-calendar",
		Short: "Create a calendar",
		RunE: run(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			if _, err := a.session.Require(); err != nil {
				return err
			}
			req, err := a.validator.CreateCalendar(f)
			if err != nil {
				return err
			}
			cal, err := a.client.CreateCalendar(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created calendar %s (%s)\n", cal.Title, cal.ID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&f.Title, "title", "", "calendar title")
	cmd.Flags().StringVar(&f.Description, "description", "", "calendar description")
	return cmd
}

// stdinConfirmer asks on the terminal unless assumeYes is set
func stdinConfirmer(cmd *cobra.Command, assumeYes bool) view.Confirmer {
	if assumeYes {
		return view.AlwaysConfirm
	}
	in := bufio.NewReader(cmd.InOrStdin())
	return view.ConfirmFunc(func(_ context.Context, question string) bool {
		answer, err := prompt(cmd.OutOrStdout(), in, question+" [y/N] ")
		if err != nil {
			return false
		}
		answer = strings.ToLower(answer)
		return answer == "y" || answer == "yes"
	})
}

func deleteCalendarCmd(flags *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete-calendar CALENDAR_ID",
		Short: "Delete a calendar after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: run(flags, func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			if err := a.loadCalendars(ctx, ""); err != nil {
				return err
			}
			deleted, err := a.controller.DeleteCalendar(ctx, args[0], stdinConfirmer(cmd, yes))
			if err != nil {
				return err
			}
			if !deleted {
				fmt.Fprintln(cmd.OutOrStdout(), "Canceled")
			}
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func shareCmd(flags *globalFlags) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "share CALENDAR_ID USER_ID",
		Short: "Grant a user a role in a calendar",
		Args:  cobra.ExactArgs(2),
		RunE: run(flags, func(cmd *cobra.Command, a *app, args []string) error {
			r, err := domain.ParseUserRole(role)
			if err != nil {
				return err
			}
			grant := func(mine domain.UserRole) bool { return mine.CanGrant(r) }
			if err := a.authorize(cmd.Context(), args[0], grant); err != nil {
				return err
			}
			return a.client.ShareCalendar(cmd.Context(), args[0], args[1], r)
		}),
	}
	cmd.Flags().StringVar(&role, "role", string(domain.RoleVisitor), "visitor, editor or admin")
	return cmd
}

func unshareCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "unshare CALENDAR_ID USER_ID",
		Short: "Remove a visitor from a calendar",
		Args:  cobra.ExactArgs(2),
		RunE: run(flags, func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.authorize(cmd.Context(), args[0], domain.UserRole.CanManageCalendar); err != nil {
				return err
			}
			return a.client.RemoveVisitor(cmd.Context(), args[0], args[1])
		}),
	}
}

func inviteCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "invite CALENDAR_ID EMAIL",
		Short: "Add a visitor to a calendar by email",
		Args:  cobra.ExactArgs(2),
		RunE: run(flags, func(cmd *cobra.Command, a *app, args []string) error {
			req, err := a.validator.Invite(form.InviteForm{Email: args[1]})
			if err != nil {
				return err
			}
			if err := a.authorize(cmd.Context(), args[0], domain.UserRole.CanManageCalendar); err != nil {
				return err
			}
			return a.client.AddVisitor(cmd.Context(), args[0], req)
		}),
	}
}
