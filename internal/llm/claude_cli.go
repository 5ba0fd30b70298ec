package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ClaudeCLI runs the claude binary in print mode, one process per prompt.
type ClaudeCLI struct {
	bin     string
	model   string
	timeout time.Duration
}

// NewClaudeCLI returns a client for the claude binary on PATH.
func NewClaudeCLI(model string) *ClaudeCLI {
	return &ClaudeCLI{
		bin:     "claude",
		model:   model,
		timeout: 60 * time.Second,
	}
}

// cliResult is the document printed by --output-format json.
type cliResult struct {
	Result  string `json:"result"`
	IsError bool   `json:"is_error"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete pipes prompt to the binary and returns the reply text. Output
// that is not the JSON envelope is returned as-is.
func (c *ClaudeCLI) Complete(ctx context.Context, prompt string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := []string{"-p", "--output-format", "json", "--max-turns", "1"}
	if c.model != "" {
		args = append(args, "--model", c.model)
	}
	cmd := exec.CommandContext(ctx, c.bin, args...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w (stderr: %s)", c.bin, err, strings.TrimSpace(stderr.String()))
	}

	out := bytes.TrimSpace(stdout.Bytes())
	var res cliResult
	if err := json.Unmarshal(out, &res); err != nil {
		return &Response{Content: string(out), Provider: ProviderClaudeCLI}, nil
	}
	if res.IsError {
		return nil, fmt.Errorf("%s: %s", c.bin, res.Result)
	}
	return &Response{
		Content:    strings.TrimSpace(res.Result),
		Provider:   ProviderClaudeCLI,
		TokensUsed: res.Usage.InputTokens + res.Usage.OutputTokens,
	}, nil
}
