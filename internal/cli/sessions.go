package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lazypower/focusdrift/internal/store"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent focus sessions from the local database",
	Args:  cobra.NoArgs,
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 20, "number of sessions to show")
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	list, err := db.RecentFocusSessions(sessionsLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No sessions recorded.")
		return nil
	}
	for _, s := range list {
		fmt.Fprintln(out, formatSessionLine(s))
	}
	return nil
}

func formatSessionLine(s store.FocusSession) string {
	title := s.Title
	if title == "" {
		title = dimColor.Sprint("(untitled)")
	}
	status := s.Status
	if s.Status == store.StatusActive {
		status = okColor.Sprint(s.Status)
	}
	drifts := fmt.Sprintf("%d drifts", s.DriftCount)
	if s.DriftCount > 0 {
		drifts = driftColor.Sprint(drifts)
	}
	return fmt.Sprintf("%-36s  %-8s  %-9s  %s evals  %s  %s  %s",
		s.SessionID,
		status,
		s.Source,
		humanize.Comma(int64(s.EvalCount)),
		drifts,
		dimColor.Sprint(humanize.Time(time.UnixMilli(s.StartedAt))),
		title,
	)
}
