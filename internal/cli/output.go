package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/lazypower/focusdrift/internal/session"
)

var (
	okColor    = color.New(color.FgGreen)
	lowColor   = color.New(color.FgYellow)
	driftColor = color.New(color.FgRed, color.Bold)
	dimColor   = color.New(color.Faint)
)

// readInput returns the named file's contents, or stdin for "" and "-".
func readInput(name string) (string, error) {
	if name == "" || name == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), nil
}

// scoreColor picks the colour for a score relative to the low threshold.
func scoreColor(score, threshold float64) *color.Color {
	if score < threshold {
		return lowColor
	}
	return okColor
}

func formatMissing(missing []string) string {
	if len(missing) == 0 {
		return "-"
	}
	return strings.Join(missing, ", ")
}

// printEvaluation writes one evaluation line: score, low count, state and
// the missing terms.
func printEvaluation(w io.Writer, prefix string, eval session.Evaluation, threshold float64) {
	state := okColor.Sprint(eval.State.String())
	if eval.IsDrifting {
		state = driftColor.Sprint(eval.State.String())
	}
	snoozed := ""
	if eval.Snoozed {
		snoozed = dimColor.Sprint(" (snoozed)")
	}
	fmt.Fprintf(w, "%s%s  lows=%d  %s%s  missing: %s\n",
		prefix,
		scoreColor(eval.Score, threshold).Sprintf("%.2f", eval.Score),
		eval.LowCount,
		state,
		snoozed,
		formatMissing(eval.Missing),
	)
}

// printNudge writes the drift notice with the terms the page is missing.
func printNudge(w io.Writer, missing []string) {
	driftColor.Fprintln(w, "You seem to have drifted off-topic.")
	if len(missing) > 0 {
		fmt.Fprintf(w, "  missing: %s\n", formatMissing(missing))
	}
}
