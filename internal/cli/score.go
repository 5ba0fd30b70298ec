package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lazypower/focusdrift/internal/scoring"
	"github.com/lazypower/focusdrift/internal/topic"
)

var (
	scoreTopic string
	scoreJSON  bool
)

var scoreCmd = &cobra.Command{
	Use:   "score [file|-]",
	Short: "Score one snapshot against a topic",
	Long:  "Score page text (a file, or stdin when omitted or -) against a topic file without a server.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScore,
}

func init() {
	scoreCmd.Flags().StringVarP(&scoreTopic, "topic", "t", "", "topic file (YAML or JSON)")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "print the full result as JSON")
	scoreCmd.MarkFlagRequired("topic")
}

func runScore(cmd *cobra.Command, args []string) error {
	fs, err := topic.LoadFile(scoreTopic)
	if err != nil {
		return err
	}
	text, err := readInput(firstArg(args))
	if err != nil {
		return err
	}

	rules := fs.Rules()
	res := scoring.Score(fs.Topic, rules, text)
	out := cmd.OutOrStdout()

	if scoreJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(out, "score:   %s\n", scoreColor(res.Score, rules.MinWeightedScore).Sprintf("%.3f", res.Score))
	fmt.Fprintf(out, "weights: %.2f / %.2f matched\n", res.MatchedWeight, res.TotalWeight)
	if res.TitleBoosted {
		fmt.Fprintf(out, "boost:   title x%.2f\n", rules.TitleBoost)
	}
	if res.ShortContent {
		dimColor.Fprintln(out, "short content: keyword overlap fallback applied")
	}
	fmt.Fprintf(out, "missing: %s\n", formatMissing(res.Missing))
	if res.Score < rules.MinWeightedScore {
		lowColor.Fprintf(out, "below threshold %.2f\n", rules.MinWeightedScore)
	}
	return nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
