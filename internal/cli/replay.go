package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lazypower/focusdrift/internal/session"
	"github.com/lazypower/focusdrift/internal/topic"
)

var (
	replayTopic  string
	replayWindow time.Duration
	replayLows   int
)

var replayCmd = &cobra.Command{
	Use:   "replay script.yaml",
	Short: "Replay a timed sequence of snapshots through a drift monitor",
	Long: `Replay feeds each step of a script through a session using the script's
timestamps instead of the wall clock. A step has an offset and either text,
a file, or an action (reset, snooze):

  steps:
    - at: 0s
      text: "Rust ownership and the borrow checker"
    - at: 3s
      file: pasta.txt
    - at: 12s
      action: reset`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVarP(&replayTopic, "topic", "t", "", "topic file (YAML or JSON)")
	replayCmd.Flags().DurationVar(&replayWindow, "window", 0, "drift window (default 30s)")
	replayCmd.Flags().IntVar(&replayLows, "lows", 0, "low samples needed to drift (default 3)")
	replayCmd.MarkFlagRequired("topic")
}

// replayScript is the YAML document replay reads.
type replayScript struct {
	Steps []replayStep `yaml:"steps"`
}

type replayStep struct {
	At     time.Duration `yaml:"at"`
	Text   string        `yaml:"text"`
	File   string        `yaml:"file"`
	Action string        `yaml:"action"`
}

func loadReplayScript(path string) (replayScript, error) {
	var script replayScript
	data, err := os.ReadFile(path)
	if err != nil {
		return script, fmt.Errorf("read script: %w", err)
	}
	if err := yaml.Unmarshal(data, &script); err != nil {
		return script, fmt.Errorf("parse script %s: %w", path, err)
	}
	for i, st := range script.Steps {
		if i > 0 && st.At < script.Steps[i-1].At {
			return script, fmt.Errorf("step %d: offset %v is earlier than the previous step", i+1, st.At)
		}
		switch st.Action {
		case "", "reset", "snooze":
		default:
			return script, fmt.Errorf("step %d: unknown action %q", i+1, st.Action)
		}
	}
	return script, nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	fs, err := topic.LoadFile(replayTopic)
	if err != nil {
		return err
	}
	script, err := loadReplayScript(args[0])
	if err != nil {
		return err
	}

	base := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	var offset time.Duration
	sess, err := session.New("replay", fs, session.Options{
		Clock:  func() time.Time { return base.Add(offset) },
		Window: replayWindow,
		Lows:   replayLows,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	threshold := sess.Rules().MinWeightedScore
	wasDrifting := false

	for _, st := range script.Steps {
		offset = st.At
		prefix := fmt.Sprintf("%8s  ", st.At)

		switch st.Action {
		case "reset":
			sess.Reset()
			wasDrifting = false
			fmt.Fprintf(out, "%s%s\n", prefix, dimColor.Sprint("reset"))
			continue
		case "snooze":
			until := sess.Snooze(0)
			wasDrifting = false
			fmt.Fprintf(out, "%s%s\n", prefix, dimColor.Sprintf("snoozed until +%s", until.Sub(base)))
			continue
		}

		text := st.Text
		if st.File != "" {
			if text, err = readInput(st.File); err != nil {
				return err
			}
		}

		eval, err := sess.EvaluateSnapshot(text)
		if err != nil {
			return err
		}
		printEvaluation(out, prefix, eval, threshold)
		if eval.IsDrifting && !wasDrifting && !eval.Snoozed {
			printNudge(out, eval.Missing)
		}
		wasDrifting = eval.IsDrifting
	}
	return nil
}
