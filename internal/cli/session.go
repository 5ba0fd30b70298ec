package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lazypower/focusdrift/internal/client"
	"github.com/lazypower/focusdrift/internal/topic"
)

var (
	sessionTopic  string
	sessionID     string
	snoozeMinutes  int
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage live sessions on a running server",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a live session from a topic file",
	Args:  cobra.NoArgs,
	RunE:  runSessionStart,
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status <session-id>",
	Short: "Show a live session's drift status",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionStatus,
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset <session-id>",
	Short: "Clear a session's drift window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := serverClient()
		if err != nil {
			return err
		}
		if err := c.Reset(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reset %s\n", args[0])
		return nil
	},
}

var sessionSnoozeCmd = &cobra.Command{
	Use:   "snooze <session-id>",
	Short: "Reset a session and snooze its nudges",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := serverClient()
		if err != nil {
			return err
		}
		until, err := c.Snooze(args[0], snoozeMinutes)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Snoozed %s until %s\n", args[0], until.Local().Format(time.Kitchen))
		return nil
	},
}

var sessionEndCmd = &cobra.Command{
	Use:   "end <session-id>",
	Short: "End a live session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := serverClient()
		if err != nil {
			return err
		}
		if err := c.End(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Ended %s\n", args[0])
		return nil
	},
}

func init() {
	sessionStartCmd.Flags().StringVarP(&sessionTopic, "topic", "t", "", "topic file (YAML or JSON)")
	sessionStartCmd.Flags().StringVar(&sessionID, "id", "", "session id (server assigns one when empty)")
	sessionStartCmd.MarkFlagRequired("topic")
	sessionSnoozeCmd.Flags().IntVarP(&snoozeMinutes, "minutes", "m", 0, "snooze length in minutes (default 5)")

	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionStatusCmd)
	sessionCmd.AddCommand(sessionResetCmd)
	sessionCmd.AddCommand(sessionSnoozeCmd)
	sessionCmd.AddCommand(sessionEndCmd)
}

func serverClient() (*client.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return client.New(cfg.ServerURL()), nil
}

func runSessionStart(cmd *cobra.Command, args []string) error {
	fs, err := topic.LoadFile(sessionTopic)
	if err != nil {
		return err
	}
	c, err := serverClient()
	if err != nil {
		return err
	}
	created, err := c.StartSession(sessionID, fs)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), created.SessionID)
	return nil
}

func runSessionStatus(cmd *cobra.Command, args []string) error {
	c, err := serverClient()
	if err != nil {
		return err
	}
	st, err := c.Status(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	state := okColor.Sprint(st.State.String())
	if st.IsDrifting {
		state = driftColor.Sprint(st.State.String())
	}
	fmt.Fprintf(out, "session: %s\n", st.SessionID)
	if st.Topic.Title != "" {
		fmt.Fprintf(out, "topic:   %s\n", st.Topic.Title)
	}
	fmt.Fprintf(out, "started: %s\n", humanize.Time(st.StartedAt))
	fmt.Fprintf(out, "state:   %s  (%d low of %d in window)\n", state, st.LowCount, st.WindowSize)
	fmt.Fprintf(out, "missing: %s\n", formatMissing(st.Missing))
	if st.SnoozedUntil != nil && st.SnoozedUntil.After(time.Now()) {
		fmt.Fprintf(out, "snoozed: until %s\n", st.SnoozedUntil.Local().Format(time.Kitchen))
	}
	return nil
}
