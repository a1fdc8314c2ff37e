package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd(t *testing.T) {
	t.Run("Should register every command", func(t *testing.T) {
		root := rootCmd()
		var names []string
		for _, c := range root.Commands() {
			names = append(names, c.Name())
		}
		for _, want := range []string{
			"login", "logout", "whoami", "calendars", "events", "create-event",
			"delete-calendar", "export", "import", "mirror", "serve",
		} {
			assert.Contains(t, names, want)
		}
	})

	t.Run("Should let mirror pick a collection", func(t *testing.T) {
		cmd, _, err := rootCmd().Find([]string{"mirror"})
		require.NoError(t, err)
		assert.NotNil(t, cmd.Flags().Lookup("collection"))
	})

	t.Run("Should fail without an API URL", func(t *testing.T) {
		t.Setenv("CALCLIENT_API_URL", "")
		root := rootCmd()
		root.SetArgs([]string{"logout", "--env-file", ""})
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		err := root.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CALCLIENT_API_URL is required")
	})
}

func TestStdinConfirmer(t *testing.T) {
	ask := func(input string) bool {
		cmd := &cobra.Command{}
		cmd.SetIn(strings.NewReader(input))
		cmd.SetOut(&bytes.Buffer{})
		return stdinConfirmer(cmd, false).Confirm(context.Background(), "Delete?")
	}

	t.Run("Should accept yes answers", func(t *testing.T) {
		assert.True(t, ask("y\n"))
		assert.True(t, ask("YES\n"))
	})

	t.Run("Should refuse anything else", func(t *testing.T) {
		assert.False(t, ask("n\n"))
		assert.False(t, ask(""))
	})

	t.Run("Should skip the question when assumed", func(t *testing.T) {
		cmd := &cobra.Command{}
		assert.True(t, stdinConfirmer(cmd, true).Confirm(context.Background(), "Delete?"))
	})
}
