package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func loginCmd(flags *globalFlags) *cobra.Command {
	var login, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: run(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			if login == "" {
				v, err := prompt(cmd.OutOrStdout(), in, "Login: ")
				if err != nil {
					return err
				}
				login = v
			}
			if password == "" {
				password = os.Getenv("CALCLIENT_PASSWORD")
			}
			if password == "" {
				v, err := readPassword(cmd, in)
				if err != nil {
					return err
				}
				password = v
			}
			user, err := a.session.Login(cmd.Context(), login, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", user.DisplayName())
			return nil
		}),
	}
	cmd.Flags().StringVarP(&login, "login", "l", "", "account login")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (or CALCLIENT_PASSWORD)")
	return cmd
}

func prompt(w io.Writer, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func readPassword(cmd *cobra.Command, in *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if cmd.InOrStdin() != os.Stdin || !term.IsTerminal(fd) {
		return prompt(cmd.OutOrStdout(), in, "Password: ")
	}
	fmt.Fprint(cmd.OutOrStdout(), "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func logoutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: run(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			return a.session.Logout(cmd.Context())
		}),
	}
}

func whoamiCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and a calendar summary",
		RunE: run(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			user, err := a.session.Require()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.loadCalendars(ctx, ""); err != nil {
				return err
			}
			calendarID := ""
			if cal := a.controller.State().Calendar; cal != nil {
				calendarID = cal.ID
			}
			d, err := a.dashboard.Load(ctx, user, calendarID, time.Now())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", user.DisplayName(), user.Email)
			fmt.Fprintf(out, "Own calendars: %d, shared with you: %d\n", len(d.OwnCalendars), len(d.SharedCalendars))
			if calendarID != "" {
				fmt.Fprintf(out, "Events in selected calendar: %d\n", d.EventCount)
			}
			for _, e := range d.Upcoming {
				fmt.Fprintf(out, "  %s %s %s\n", e.TypeEmoji(), e.FormatDateTime(a.cfg.Timezone), e.Title)
			}
			return nil
		}),
	}
}
