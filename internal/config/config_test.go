package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Registry != "sources.csv" || cfg.Workers != 4 || cfg.Fetch.Timeout != 30*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Fetch.Delay != 2*time.Second {
		t.Errorf("Fetch.Delay = %v, want 2s", cfg.Fetch.Delay)
	}
	if cfg.LLM.MaxTokens != 8192 || cfg.LLM.Model == "" {
		t.Errorf("unexpected LLM defaults: %+v", cfg.LLM)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
registry: data/sources.csv
output_dir: /tmp/events
timezone: America/Los_Angeles
workers: 8
fetch:
  delay: 3s
  user_agent: test-agent
llm:
  model: small-model
  temperature: 0.1
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Registry != "data/sources.csv" || cfg.OutputDir != "/tmp/events" || cfg.Workers != 8 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Fetch.Delay != 3*time.Second || cfg.Fetch.UserAgent != "test-agent" {
		t.Errorf("fetch values not applied: %+v", cfg.Fetch)
	}
	if cfg.LLM.Model != "small-model" || cfg.LLM.Temperature != 0.1 {
		t.Errorf("llm values not applied: %+v", cfg.LLM)
	}

	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("Location() error: %v", err)
	}
	if loc.String() != "America/Los_Angeles" {
		t.Errorf("Location() = %s", loc)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "registry: from-file.csv\nworkers: 2\n")
	t.Setenv("EVENTS_REGISTRY", "from-env.csv")
	t.Setenv("EVENTS_WORKERS", "6")
	t.Setenv("EVENTS_FETCH_DELAY", "500ms")
	t.Setenv("EVENTS_LLM_API_KEY", "secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Registry != "from-env.csv" || cfg.Workers != 6 || cfg.Fetch.Delay != 500*time.Millisecond {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if err := cfg.RequireLLM(); err != nil {
		t.Errorf("RequireLLM() = %v, want nil", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}

	if _, err := Load(writeConfig(t, "workers: [not a number\n")); err == nil {
		t.Error("Load() of invalid YAML should fail")
	}

	t.Setenv("EVENTS_WORKERS", "many")
	if _, err := Load(""); err == nil {
		t.Error("Load() with invalid EVENTS_WORKERS should fail")
	}
}

func TestRequireLLM(t *testing.T) {
	t.Setenv("EVENTS_LLM_API_KEY", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.RequireLLM(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("RequireLLM() = %v, want ErrMissingAPIKey", err)
	}
}

func TestLocation_Invalid(t *testing.T) {
	cfg := &Config{Timezone: "Mars/Olympus_Mons"}
	if _, err := cfg.Location(); err == nil {
		t.Error("Location() with an unknown zone should fail")
	}
	cfg.Timezone = ""
	if loc, err := cfg.Location(); err != nil || loc != time.Local {
		t.Errorf("empty timezone = %v, %v; want Local", loc, err)
	}
}

func TestRequireTelegram(t *testing.T) {
	t.Setenv("EVENTS_TELEGRAM_BOT_TOKEN", "")
	t.Setenv("EVENTS_TELEGRAM_CHAT_ID", "")

	cfg, err := Load(writeConfig(t, "notify:\n  telegram_chat_id: \"-100123\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Notify.TelegramChatID != "-100123" {
		t.Errorf("TelegramChatID = %q", cfg.Notify.TelegramChatID)
	}
	if err := cfg.RequireTelegram(); !errors.Is(err, ErrMissingTelegram) {
		t.Errorf("RequireTelegram() = %v, want ErrMissingTelegram", err)
	}

	t.Setenv("EVENTS_TELEGRAM_BOT_TOKEN", "123:abc")
	cfg, err = Load("")
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.RequireTelegram(); !errors.Is(err, ErrMissingTelegram) {
		t.Errorf("RequireTelegram() without chat = %v", err)
	}

	t.Setenv("EVENTS_TELEGRAM_CHAT_ID", "42")
	cfg, err = Load("")
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		t.Errorf("RequireTelegram() = %v, want nil", err)
	}
}
