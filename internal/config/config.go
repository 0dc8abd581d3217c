// Package config loads events-today settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Registry  string       `yaml:"registry"`
	OutputDir string       `yaml:"output_dir"`
	Timezone  string       `yaml:"timezone"`
	Workers   int          `yaml:"workers"`
	LogLevel  string       `yaml:"log_level"`
	Fetch     FetchConfig  `yaml:"fetch"`
	LLM       LLMConfig    `yaml:"llm"`
	Notify    NotifyConfig `yaml:"notify"`
}

// FetchConfig controls the HTTP provider.
type FetchConfig struct {
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	Delay     time.Duration `yaml:"delay"`
	// CaptureDir, when set, reads pages saved by an external browser step instead of fetching.
	CaptureDir string `yaml:"capture_dir"`
}

// LLMConfig configures the cleanup step.
type LLMConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"-"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// NotifyConfig configures digest delivery.
type NotifyConfig struct {
	TelegramBotToken string `yaml:"-"`
	TelegramChatID   string `yaml:"telegram_chat_id"`
}

// Load reads the YAML file at path (optional: an empty path uses defaults only), then
// applies environment overrides. A .env file in the working directory is honoured.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Registry == "" {
		c.Registry = "sources.csv"
	}
	if c.OutputDir == "" {
		c.OutputDir = "~/.local/share/events-today"
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	// A negative delay disables the pause between requests.
	if c.Fetch.Delay == 0 {
		c.Fetch.Delay = 2 * time.Second
	} else if c.Fetch.Delay < 0 {
		c.Fetch.Delay = 0
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 8192
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 2 * time.Minute
	}
}

func (c *Config) applyEnv() error {
	c.Registry = getEnv("EVENTS_REGISTRY", c.Registry)
	c.OutputDir = getEnv("EVENTS_OUTPUT_DIR", c.OutputDir)
	c.Timezone = getEnv("EVENTS_TIMEZONE", c.Timezone)
	c.LogLevel = getEnv("EVENTS_LOG_LEVEL", c.LogLevel)
	c.Fetch.CaptureDir = getEnv("EVENTS_CAPTURE_DIR", c.Fetch.CaptureDir)
	c.LLM.APIKey = getEnv("EVENTS_LLM_API_KEY", c.LLM.APIKey)
	c.LLM.Model = getEnv("EVENTS_LLM_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("EVENTS_LLM_BASE_URL", c.LLM.BaseURL)
	c.Notify.TelegramBotToken = getEnv("EVENTS_TELEGRAM_BOT_TOKEN", c.Notify.TelegramBotToken)
	c.Notify.TelegramChatID = getEnv("EVENTS_TELEGRAM_CHAT_ID", c.Notify.TelegramChatID)

	if workers := os.Getenv("EVENTS_WORKERS"); workers != "" {
		n, err := strconv.Atoi(workers)
		if err != nil {
			return fmt.Errorf("parse EVENTS_WORKERS: %w", err)
		}
		c.Workers = n
	}

	if delay := os.Getenv("EVENTS_FETCH_DELAY"); delay != "" {
		d, err := time.ParseDuration(delay)
		if err != nil {
			return fmt.Errorf("parse EVENTS_FETCH_DELAY: %w", err)
		}
		c.Fetch.Delay = d
	}

	return nil
}

// Location resolves the configured timezone; empty means the local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ErrMissingAPIKey is returned by RequireLLM when no API key is configured.
var ErrMissingAPIKey = errors.New("EVENTS_LLM_API_KEY is not set")

// RequireLLM checks that the cleanup step can run.
func (c *Config) RequireLLM() error {
	if c.LLM.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// ErrMissingTelegram is returned by RequireTelegram when the bot token or chat ID is unset.
var ErrMissingTelegram = errors.New("EVENTS_TELEGRAM_BOT_TOKEN and EVENTS_TELEGRAM_CHAT_ID must be set")

// RequireTelegram checks that the digest can be posted.
func (c *Config) RequireTelegram() error {
	if c.Notify.TelegramBotToken == "" || c.Notify.TelegramChatID == "" {
		return ErrMissingTelegram
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
