package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/lazypower/focusdrift/internal/config"
)

// ErrDisabled is returned by NewClient when no provider is configured.
var ErrDisabled = errors.New("llm disabled")

// Providers accepted in llm.provider.
const (
	ProviderClaudeCLI = "claude-cli"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// defaultModels is used when llm.model is empty.
var defaultModels = map[string]string{
	ProviderClaudeCLI: "haiku",
	ProviderAnthropic: "claude-haiku-4-5-20251001",
	ProviderOllama:    "llama3.2",
}

const defaultOllamaURL = "http://localhost:11434"

// Client generates text for a prompt. Topic generation is its only caller.
type Client interface {
	Complete(ctx context.Context, prompt string) (*Response, error)
}

// Response is one completion.
type Response struct {
	Content    string
	Provider   string
	TokensUsed int
}

// ResolveModel returns the model cfg will use.
func ResolveModel(cfg config.LLMConfig) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	return defaultModels[cfg.Provider]
}

// NewClient builds the client for cfg.Provider.
func NewClient(cfg config.LLMConfig) (Client, error) {
	model := ResolveModel(cfg)
	switch cfg.Provider {
	case "", "none":
		return nil, ErrDisabled
	case ProviderClaudeCLI:
		c := NewClaudeCLI(model)
		if cfg.ClaudeBin != "" {
			c.bin = cfg.ClaudeBin
		}
		return c, nil
	case ProviderAnthropic:
		if cfg.AnthropicKey == "" {
			return nil, fmt.Errorf("%s provider needs ANTHROPIC_API_KEY or llm.anthropic_key", ProviderAnthropic)
		}
		return NewAnthropic(cfg.AnthropicKey, model), nil
	case ProviderOllama:
		url := cfg.OllamaURL
		if url == "" {
			url = defaultOllamaURL
		}
		return NewOllama(url, model), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
