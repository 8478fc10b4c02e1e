package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Name != "Lio" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.Timezone != "Asia/Taipei" || cfg.Language != "zh-TW" {
		t.Errorf("locale defaults = %q %q", cfg.Timezone, cfg.Language)
	}
	if cfg.Pipeline.MaxTurns != 20 || cfg.Pipeline.MaxAttempts != 2 {
		t.Errorf("pipeline defaults = %#v", cfg.Pipeline)
	}
	if cfg.Scheduler.PollInterval != time.Minute {
		t.Errorf("poll interval = %s", cfg.Scheduler.PollInterval)
	}
	if cfg.LLM.Model == "" || cfg.LLM.SpeechModel == "" || cfg.LLM.ImageModel == "" {
		t.Errorf("model defaults missing: %#v", cfg.LLM)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
name: Momo
language: en
pipeline:
  max_turns: 8
  history_window: 12
scheduler:
  enabled: false
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Name != "Momo" || cfg.Language != "en" {
		t.Errorf("overrides lost: %q %q", cfg.Name, cfg.Language)
	}
	if cfg.Pipeline.MaxTurns != 8 || cfg.Pipeline.HistoryWindow != 12 {
		t.Errorf("pipeline = %#v", cfg.Pipeline)
	}
	if cfg.Scheduler.Enabled {
		t.Error("scheduler should be disabled")
	}
	// Untouched fields keep their defaults.
	if cfg.Timezone != "Asia/Taipei" || cfg.Pipeline.MaxAttempts != 2 {
		t.Errorf("defaults lost: %q %d", cfg.Timezone, cfg.Pipeline.MaxAttempts)
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("line: [")); err == nil {
		t.Fatal("malformed YAML must fail")
	}
}

func TestLoadFileExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_LIO_TOKEN", "tok-123")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "line:\n  channel_token: ${TEST_LIO_TOKEN}\n  channel_secret: $TEST_LIO_TOKEN\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.LINE.ChannelToken != "tok-123" || cfg.LINE.ChannelSecret != "tok-123" {
		t.Errorf("env expansion failed: %#v", cfg.LINE)
	}
}

func TestResolveSecretsFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LINE_CHANNEL_SECRET", "secret")
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "token")

	cfg := Default()
	resolveSecrets(cfg)

	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("APIKey = %q", cfg.LLM.APIKey)
	}
	if cfg.LINE.ChannelSecret != "secret" || cfg.LINE.ChannelToken != "token" {
		t.Errorf("LINE secrets = %#v", cfg.LINE)
	}
}

func TestResolveSecretsKeepsExplicitValues(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg := Default()
	cfg.LLM.APIKey = "sk-explicit"
	resolveSecrets(cfg)

	if cfg.LLM.APIKey != "sk-explicit" {
		t.Errorf("explicit key overwritten: %q", cfg.LLM.APIKey)
	}
}
