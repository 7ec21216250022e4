// Package config provides the configuration schema, loader, and provider registry
// for the scribecast caption generator.
package config

import (
	"fmt"
	"strings"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for scribecast.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Output    OutputConfig    `yaml:"output"`
	Caption   CaptionConfig   `yaml:"caption"`
}

// ServerConfig holds logging and admin listener settings.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// AdminAddr is the TCP address of the optional admin listener serving
	// /metrics, /healthz and /readyz (e.g., ":9090"). Empty disables it.
	AdminAddr string `yaml:"admin_addr"`
}

// ProvidersConfig declares which provider implementation to use. The STT
// entry selects a named provider registered in the [Registry].
type ProvidersConfig struct {
	STT ProviderEntry `yaml:"stt"`
}

// ProviderEntry is the configuration block of a provider.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "deepgram", "openai").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "nova-2", "whisper-1").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// OptionString returns the string option key, or "" when it is absent or not
// a string.
func (e ProviderEntry) OptionString(key string) string {
	s, _ := e.Options[key].(string)
	return s
}

// OptionBool returns the boolean option key, or def when it is absent.
// The strings "true" and "false" are accepted as well.
func (e ProviderEntry) OptionBool(key string, def bool) (bool, error) {
	v, ok := e.Options[key]
	if !ok || v == nil {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		switch strings.ToLower(b) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return def, fmt.Errorf("option %q: want a boolean, got %v", key, v)
}

// OutputConfig controls which files are written and where.
type OutputConfig struct {
	// Formats lists the renderings to produce: vtt, srt, txt, json, or all.
	Formats []string `yaml:"formats"`

	// Dir is the output directory. Empty selects the input file's directory.
	Dir string `yaml:"dir"`

	// Source is the generation source named in the WEBVTT NOTE block. Empty
	// derives it from the STT provider name.
	Source string `yaml:"source"`
}

// CaptionConfig tunes utterance segmentation.
type CaptionConfig struct {
	// MaxGapSeconds is the silence that must be exceeded to split an utterance.
	// Zero selects the default of 2 seconds.
	MaxGapSeconds float64 `yaml:"max_gap_seconds"`

	// MaxWords is the utterance length that must be exceeded before a split is
	// forced. Zero selects the default of 20.
	MaxWords int `yaml:"max_words"`

	// PunctuatedWords uses smart-formatted tokens in VTT and SRT cues when the
	// provider supplied them.
	PunctuatedWords bool `yaml:"punctuated_words"`
}

// sourceNames maps provider names to the display name used in caption headers.
var sourceNames = map[string]string{
	"deepgram": "Deepgram",
	"openai":   "OpenAI",
}

// SourceName returns the generation source for caption headers: Output.Source
// when set, otherwise the display name of the configured STT provider.
func (c *Config) SourceName() string {
	if c.Output.Source != "" {
		return c.Output.Source
	}
	if name, ok := sourceNames[c.Providers.STT.Name]; ok {
		return name
	}
	return c.Providers.STT.Name
}
