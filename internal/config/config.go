package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all focusdrift configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Drift    DriftConfig    `yaml:"drift"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path      string        `yaml:"path"`
	Retention time.Duration `yaml:"retention"` // evaluation rows older than this are pruned
}

// LLMConfig selects the topic generator. An empty Model lets the provider
// pick its own default.
type LLMConfig struct {
	Provider     string `yaml:"provider"` // "claude-cli", "anthropic", "ollama", "" or "none" (disabled)
	Model        string `yaml:"model"`
	ClaudeBin    string `yaml:"claude_bin"`
	OllamaURL    string `yaml:"ollama_url"`
	AnthropicKey string `yaml:"anthropic_key"`
}

type DriftConfig struct {
	Window  time.Duration `yaml:"window"`
	Lows    int           `yaml:"lows"`
	IdleTTL time.Duration `yaml:"idle_ttl"` // live sessions untouched this long are dropped
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // optional rotated JSON log
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37778,
		},
		Database: DatabaseConfig{
			Path:      "", // resolved at runtime via store.DefaultDBPath()
			Retention: 30 * 24 * time.Hour,
		},
		LLM: LLMConfig{
			Provider: "claude-cli",
		},
		Drift: DriftConfig{
			Window:  30 * time.Second,
			Lows:    3,
			IdleTTL: 2 * time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the default config file path: ~/.focusdrift/config.yaml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".focusdrift", "config.yaml"), nil
}

// Load builds the configuration: defaults, then the YAML file at path (a
// missing file is fine), then a .env file in the working directory, then
// FOCUSDRIFT_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	// godotenv never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("FOCUSDRIFT_BIND", &c.Server.Bind)
	str("FOCUSDRIFT_DB", &c.Database.Path)
	str("FOCUSDRIFT_LLM_PROVIDER", &c.LLM.Provider)
	str("FOCUSDRIFT_LLM_MODEL", &c.LLM.Model)
	str("FOCUSDRIFT_CLAUDE_BIN", &c.LLM.ClaudeBin)
	str("FOCUSDRIFT_OLLAMA_URL", &c.LLM.OllamaURL)
	str("FOCUSDRIFT_LOG_LEVEL", &c.Log.Level)
	str("FOCUSDRIFT_LOG_FILE", &c.Log.File)

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.Provider = "anthropic"
		c.LLM.AnthropicKey = key
	}

	if v := os.Getenv("FOCUSDRIFT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FOCUSDRIFT_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("FOCUSDRIFT_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FOCUSDRIFT_WINDOW: %w", err)
		}
		c.Drift.Window = d
	}
	if v := os.Getenv("FOCUSDRIFT_LOWS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FOCUSDRIFT_LOWS: %w", err)
		}
		c.Drift.Lows = n
	}
	return nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// ServerURL returns the base URL CLI commands use to reach the server.
func (c *Config) ServerURL() string {
	host := c.Server.Bind
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Server.Port)
}
