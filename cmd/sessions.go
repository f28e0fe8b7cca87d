package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"claudeweb/internal/output"
	"claudeweb/internal/types"
)

var ui = output.New()

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"ls"},
	Short:   "List the workspace's sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionsListRun(cmd)
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a session's messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionsShowRun(cmd, args[0])
	},
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Create an empty session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionsNewRun(cmd, strings.Join(args, " "))
	},
}

var sessionsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionsRmRun(cmd, args[0])
	},
}

func init() {
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 0, "Show at most N sessions")
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsNewCmd)
	sessionsCmd.AddCommand(sessionsRmCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func sessionsListRun(cmd *cobra.Command) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	sessions, err := a.adapter.ListSessions(cmd.Context())
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		ui.Info("No sessions in %s (%s mode).", a.cfg.Workspace, output.ModeColor(string(a.adapter.Mode())))
		return nil
	}
	if sessionsLimit > 0 && len(sessions) > sessionsLimit {
		sessions = sessions[:sessionsLimit]
	}

	now := time.Now()
	table := ui.Table([]string{"ID", "Title", "Messages", "Updated"})
	for _, s := range sessions {
		_ = table.Append([]string{
			output.Cyan(s.ID),
			s.Title,
			fmt.Sprintf("%d", s.MessageCount),
			output.Ago(s.UpdatedAt, now),
		})
	}
	return table.Render()
}

func sessionsShowRun(cmd *cobra.Command, id string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	session, err := a.adapter.GetSession(cmd.Context(), id)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("session %s not found", id)
	}
	messages, err := a.adapter.GetMessages(cmd.Context(), id)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s  %s\n\n", output.Cyan(session.ID), session.Title)
	for _, m := range messages {
		label := string(m.Role)
		switch m.Role {
		case types.RoleUser:
			label = output.Green(label)
		case types.RoleAssistant:
			label = output.Yellow(label)
		}
		fmt.Fprintf(ui.Out, "%s  %s\n%s\n\n", label, m.Timestamp, m.Content)
	}
	return nil
}

func sessionsNewRun(cmd *cobra.Command, title string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	session, err := a.adapter.CreateSession(cmd.Context(), title)
	if err != nil {
		return err
	}
	ui.Success("Created session %s (%s)", output.Cyan(session.ID), session.Title)
	return nil
}

func sessionsRmRun(cmd *cobra.Command, id string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.adapter.DeleteSession(cmd.Context(), id); err != nil {
		return err
	}
	ui.Success("Deleted session %s", id)
	return nil
}
