// Package config loads server configuration: built-in defaults, then an
// optional config.yaml, then SAFEWALK_ environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the complete server configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Feed        FeedConfig        `koanf:"feed"`
	Google      GoogleConfig      `koanf:"google"`
	Assistant   AssistantConfig   `koanf:"assistant"`
	Correlation CorrelationConfig `koanf:"correlation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int      `koanf:"port"`
	CorsOrigins []string `koanf:"cors_origins"`
}

// FeedConfig holds the 911-call feed settings. Timezone is the dataset's
// local time, used to interpret the feed's zone-less timestamps.
type FeedConfig struct {
	BaseURL         string        `koanf:"base_url"`
	Dataset         string        `koanf:"dataset"`
	Limit           int           `koanf:"limit"`
	RefreshInterval time.Duration `koanf:"refresh_interval"`
	FetchTimeout    time.Duration `koanf:"fetch_timeout"`
	Timezone        string        `koanf:"timezone"`
}

// GoogleConfig holds Directions API settings.
type GoogleConfig struct {
	APIKey       string        `koanf:"api_key"`
	BaseURL      string        `koanf:"base_url"`
	Mode         string        `koanf:"mode"`
	Alternatives bool          `koanf:"alternatives"`
	Timeout      time.Duration `koanf:"timeout"`
}

// AssistantConfig holds the completion service settings.
type AssistantConfig struct {
	APIKey          string        `koanf:"api_key"`
	Model           string        `koanf:"model"`
	Timeout         time.Duration `koanf:"timeout"`
	FallbackMessage string        `koanf:"fallback_message"`
}

// CorrelationConfig tunes the route-incident correlator.
type CorrelationConfig struct {
	BufferMeters float64 `koanf:"buffer_meters"`
	SampleStride int     `koanf:"sample_stride"`
}

// Defaults returns the built-in configuration.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.port":                5000,
		"server.cors_origins":        []string{"*"},
		"feed.base_url":              "https://data.sfgov.org",
		"feed.dataset":               "gnap-fj3t",
		"feed.limit":                 1000,
		"feed.refresh_interval":      "5m",
		"feed.fetch_timeout":         "30s",
		"feed.timezone":              "America/Los_Angeles",
		"google.base_url":            "https://maps.googleapis.com",
		"google.mode":                "walking",
		"google.alternatives":        true,
		"google.timeout":             "30s",
		"assistant.model":            "gpt-4o-mini",
		"assistant.timeout":          "45s",
		"assistant.fallback_message": "Sorry, the route assistant is unavailable right now. Your route and nearby report data are still shown on the map.",
		"correlation.buffer_meters":  321.869,
		"correlation.sample_stride":  5,
	}
}

// Load builds the configuration from defaults, an optional YAML file at
// path (skipped when absent), SAFEWALK_ env vars (double underscore nests,
// e.g. SAFEWALK_FEED__REFRESH_INTERVAL), and finally the conventional
// GOOGLE_API_KEY / OPENAI_API_KEY secrets.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("loading %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider("SAFEWALK_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "SAFEWALK_")
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// API keys follow the upstream providers' conventional variable names.
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		cfg.Google.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Assistant.APIKey = v
	}

	return &cfg, nil
}
