// Package config – loader.go loads configuration from YAML files with
// credential resolution via environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} or $VAR_NAME in config values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Z_][A-Z0-9_]*)`)

// LoadFile reads and parses a YAML configuration file.
// .env files are loaded first and ${VAR} references are expanded before
// parsing, so secrets never need to live in the YAML itself.
func LoadFile(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg, err := Parse([]byte(expanded))
	if err != nil {
		return nil, err
	}

	resolveSecrets(cfg)
	return cfg, nil
}

// Load returns the default config overlaid with environment values.
// Used when no config file is given.
func Load() *Config {
	loadEnvFiles()
	cfg := Default()
	resolveSecrets(cfg)
	return cfg
}

// Parse parses YAML bytes into a Config, starting from defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	return cfg, nil
}

// loadEnvFiles loads .env files from the working directory.
// godotenv.Load does NOT overwrite existing env vars, so real environment
// variables always win over .env contents.
func loadEnvFiles() {
	for _, f := range []string{".env.local", ".env"} {
		_ = godotenv.Load(f)
	}
}

// expandEnvVars replaces ${VAR} and $VAR references with their values.
// Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(m string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(m, "${"), "}")
		name = strings.TrimPrefix(name, "$")
		return os.Getenv(name)
	})
}

// resolveSecrets fills empty credential fields from well-known env vars.
func resolveSecrets(cfg *Config) {
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.LINE.ChannelSecret == "" {
		cfg.LINE.ChannelSecret = os.Getenv("LINE_CHANNEL_SECRET")
	}
	if cfg.LINE.ChannelToken == "" {
		cfg.LINE.ChannelToken = os.Getenv("LINE_CHANNEL_ACCESS_TOKEN")
	}
	if cfg.Storage.Blob.ProjectURL == "" {
		cfg.Storage.Blob.ProjectURL = os.Getenv("SUPABASE_URL")
	}
	if cfg.Storage.Blob.ServiceKey == "" {
		cfg.Storage.Blob.ServiceKey = os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	}
}
