// Package config loads and validates the gateway configuration.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds kalkan configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Audit      AuditConfig      `yaml:"audit"`
	Limits     LimitsConfig     `yaml:"limits"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"` // HTTP listen address, e.g. ":8080"
}

// ClassifierConfig selects the external classification provider. When
// Provider is empty the gateway runs pattern-only: every classifier
// call resolves to the local fallback verdict.
type ClassifierConfig struct {
	Provider  string `yaml:"provider"`    // "openai" | "anthropic" | ""
	Model     string `yaml:"model"`       // e.g. "gpt-4o-mini"
	APIKeyEnv string `yaml:"api_key_env"` // env var holding the key
	TimeoutMs int    `yaml:"timeout_ms"`  // bound on the external call
}

// Timeout returns the classifier call bound as a duration.
func (c ClassifierConfig) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

type AuditConfig struct {
	Dir       string       `yaml:"dir"` // JSONL files, one per day
	Sinks     []SinkConfig `yaml:"sinks"`
	QueueSize int          `yaml:"queue_size"`
	Workers   int          `yaml:"workers"`
}

type SinkConfig struct {
	Type    string            `yaml:"type"` // "webhook"
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
	// AllowPrivateNetworks disables the SSRF guard for this sink.
	AllowPrivateNetworks bool `yaml:"allow_private_networks"`
}

type LimitsConfig struct {
	MaxInputBytes int `yaml:"max_input_bytes"`
	PreviewChars  int `yaml:"preview_chars"`
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Protocol string `yaml:"protocol"` // grpc | http
}

// Load reads configuration from a YAML file. If the file doesn't
// exist, it returns the default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Classifier.TimeoutMs <= 0 {
		cfg.Classifier.TimeoutMs = 5000
	}
	if cfg.Classifier.Model == "" {
		cfg.Classifier.Model = "gpt-4o-mini"
	}
	if cfg.Audit.Dir == "" {
		cfg.Audit.Dir = "audit"
	}
	if cfg.Audit.QueueSize <= 0 {
		cfg.Audit.QueueSize = 1000
	}
	if cfg.Audit.Workers <= 0 {
		cfg.Audit.Workers = 1
	}
	if cfg.Limits.MaxInputBytes <= 0 {
		cfg.Limits.MaxInputBytes = 64 * 1024
	}
	if cfg.Limits.PreviewChars <= 0 {
		cfg.Limits.PreviewChars = 120
	}
}
