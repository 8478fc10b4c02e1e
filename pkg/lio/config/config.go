// Package config defines all configuration structures for the Lio assistant.
package config

import "time"

// Config holds all assistant configuration.
type Config struct {
	// Name is the assistant name used in prompts.
	Name string `yaml:"name"`

	// Timezone is the locale used when rendering wall-clock time in prompts
	// (e.g. "Asia/Taipei").
	Timezone string `yaml:"timezone"`

	// Language is the preferred response language (e.g. "zh-TW").
	Language string `yaml:"language"`

	// LINE configures the messaging platform channel.
	LINE LINEConfig `yaml:"line"`

	// LLM configures the language model provider.
	LLM LLMConfig `yaml:"llm"`

	// Storage configures persistence and blob storage.
	Storage StorageConfig `yaml:"storage"`

	// Pipeline configures the reply orchestration pipeline.
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Scheduler configures the reminder runner.
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`
}

// LINEConfig holds LINE Messaging API credentials and webhook settings.
type LINEConfig struct {
	// ChannelSecret signs inbound webhook payloads.
	ChannelSecret string `yaml:"channel_secret"`

	// ChannelToken authenticates outbound Messaging API calls.
	ChannelToken string `yaml:"channel_token"`

	// ListenAddr is the webhook listen address (e.g. ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// WebhookPath is the HTTP path LINE delivers events to.
	WebhookPath string `yaml:"webhook_path"`
}

// LLMConfig holds the LLM provider settings.
// Works with OpenAI and any OpenAI-compatible endpoint.
type LLMConfig struct {
	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates API calls.
	APIKey string `yaml:"api_key"`

	// Model is the chat model used for planning and generation.
	Model string `yaml:"model"`

	// SearchModel is the search-grounded model used by the searchWeb tool.
	SearchModel string `yaml:"search_model"`

	// SpeechModel is the TTS model (default: tts-1).
	SpeechModel string `yaml:"speech_model"`

	// ImageModel is the image generation model (default: gpt-image-1).
	ImageModel string `yaml:"image_model"`
}

// StorageConfig configures the database and blob storage.
type StorageConfig struct {
	// DatabasePath is the SQLite database file path.
	DatabasePath string `yaml:"database_path"`

	// Blob configures the blob uploader used for media artifacts.
	Blob BlobConfig `yaml:"blob"`
}

// BlobConfig holds Supabase Storage settings for uploaded media.
type BlobConfig struct {
	// ProjectURL is the Supabase project URL (e.g. https://xyz.supabase.co).
	ProjectURL string `yaml:"project_url"`

	// ServiceKey authenticates storage uploads.
	ServiceKey string `yaml:"service_key"`

	// Bucket is the public bucket media artifacts are uploaded into.
	Bucket string `yaml:"bucket"`
}

// PipelineConfig holds the reply pipeline knobs.
type PipelineConfig struct {
	// MaxTurns is the tool loop ceiling per generation run.
	MaxTurns int `yaml:"max_turns"`

	// MaxAttempts is how many generation runs are allowed per incoming
	// message before falling back to the apology reply.
	MaxAttempts int `yaml:"max_attempts"`

	// HistoryWindow is how many recent conversation rows enter the context.
	HistoryWindow int `yaml:"history_window"`

	// TurnTimeoutSeconds is the timeout for a single LLM call.
	TurnTimeoutSeconds int `yaml:"turn_timeout_seconds"`
}

// SchedulerConfig configures the reminder runner.
type SchedulerConfig struct {
	// Enabled turns the reminder runner on.
	Enabled bool `yaml:"enabled"`

	// PollInterval is how often due jobs are checked.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Name:     "Lio",
		Timezone: "Asia/Taipei",
		Language: "zh-TW",
		LINE: LINEConfig{
			ListenAddr:  ":8080",
			WebhookPath: "/webhook",
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			SearchModel: "gpt-4o-mini-search-preview",
			SpeechModel: "tts-1",
			ImageModel:  "gpt-image-1",
		},
		Storage: StorageConfig{
			DatabasePath: "./data/lio.db",
			Blob: BlobConfig{
				Bucket: "media",
			},
		},
		Pipeline: PipelineConfig{
			MaxTurns:           20,
			MaxAttempts:        2,
			HistoryWindow:      30,
			TurnTimeoutSeconds: 60,
		},
		Scheduler: SchedulerConfig{
			Enabled:      true,
			PollInterval: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
