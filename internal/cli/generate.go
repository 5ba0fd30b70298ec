package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lazypower/focusdrift/internal/engine"
	"github.com/lazypower/focusdrift/internal/llm"
)

var generateTimeout time.Duration

var generateCmd = &cobra.Command{
	Use:   "generate [description|-]",
	Short: "Generate a topic file from a free-text description",
	Long: "Ask the configured LLM to turn a description into keywords, phrases and matching rules. " +
		"The result is printed as YAML, ready for score, replay or session start.",
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().DurationVar(&generateTimeout, "timeout", 90*time.Second, "give up on the LLM after this long")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	var source string
	if len(args) == 1 && args[0] != "-" {
		source = args[0]
	} else if source, err = readInput(""); err != nil {
		return err
	}

	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return fmt.Errorf("llm: %w", err)
	}

	eng := engine.New(nil, client, engine.Options{Logger: log})
	defer eng.Stop()

	ctx, cancel := context.WithTimeout(cmd.Context(), generateTimeout)
	defer cancel()

	fs, err := eng.GenerateTopic(ctx, strings.TrimSpace(source))
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(fs)
	if err != nil {
		return fmt.Errorf("encode topic: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
