package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lazypower/focusdrift/internal/client"
)

var checkCmd = &cobra.Command{
	Use:   "check <session-id> [file|-]",
	Short: "Send a page snapshot to a running server",
	Long:  "Post page text (a file, or stdin) to a live session and print the evaluation. A drifting session prints the nudge.",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	text, err := readInput(firstArg(args[1:]))
	if err != nil {
		return err
	}
	return checkSnapshot(cmd.OutOrStdout(), client.New(cfg.ServerURL()), args[0], text)
}

// checkSnapshot posts text to a live session and prints the evaluation,
// coloured against the session's own low threshold.
func checkSnapshot(w io.Writer, c *client.Client, id, text string) error {
	st, err := c.Status(id)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	eval, err := c.Snapshot(id, text)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	printEvaluation(w, "", *eval, st.Rules.MinWeightedScore)
	if eval.IsDrifting && !eval.Snoozed {
		printNudge(w, eval.Missing)
	}
	return nil
}
