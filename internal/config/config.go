// Package config provides the configuration structure for the voice-gateway.
package config

import (
	"errors"
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// Default values applied when optional settings are omitted.
const (
	DefaultHTTPPort       = 8080
	DefaultTimeoutSeconds = 60
)

// Static validation errors.
var (
	ErrCloudBaseURLEmpty = errors.New("cloud base URL cannot be empty")
	ErrCloudAPIKeyEmpty  = errors.New("cloud API key cannot be empty")
	ErrRegistryPathEmpty = errors.New("voice registry path cannot be empty")
	ErrPortOutOfRange    = errors.New("http port must be between 1 and 65535")
)

// HTTPConfig holds the configuration for the gateway's own HTTP listener.
type HTTPConfig struct {
	Port        int    `toml:"port"`
	BearerToken string `toml:"bearer_token"`
}

// CloudConfig holds the configuration for the upstream cloud voice API.
type CloudConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                      string `toml:"url"`
	SampleObjectStoreBucket  string `toml:"sample_object_store_bucket"`
	VoiceCloneCreatedSubject string `toml:"voice_clone_created_subject"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir       string `toml:"base_logs_dir"`
	VoiceRegistryFile string `toml:"voice_registry_file"`
}

// Config is the root configuration structure.
type Config struct {
	HTTP  HTTPConfig  `toml:"http"`
	Cloud CloudConfig `toml:"cloud"`
	NATS  NATSConfig  `toml:"nats"`
	Paths PathsConfig `toml:"paths"`
}

// Load loads the configuration for the voice-gateway.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.applyDefaults()

	validationErr := cfg.Validate()
	if validationErr != nil {
		return nil, validationErr
	}

	return &cfg, nil
}

// applyDefaults fills optional settings that were omitted from the TOML file.
func (c *Config) applyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultHTTPPort
	}

	if c.Cloud.TimeoutSeconds == 0 {
		c.Cloud.TimeoutSeconds = DefaultTimeoutSeconds
	}
}

// Validate checks that required configuration values are set and in range.
func (c *Config) Validate() error {
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return ErrPortOutOfRange
	}

	if c.Cloud.BaseURL == "" {
		return ErrCloudBaseURLEmpty
	}

	if c.Cloud.APIKey == "" {
		return ErrCloudAPIKeyEmpty
	}

	if c.Paths.VoiceRegistryFile == "" {
		return ErrRegistryPathEmpty
	}

	return nil
}

// AuthDisabled reports whether bearer-token authentication is disabled.
func (c *Config) AuthDisabled() bool {
	return c.HTTP.BearerToken == ""
}
