package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/scribecast/internal/caption"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt": {"deepgram", "openai"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault behaves like [Load] but returns [Default] when path is empty
// or names a file that does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("config file not found, using defaults", "path", path)
		return Default(), nil
	}
	return cfg, err
}

// LoadFromReader decodes a YAML config from r, expands $VAR and ${VAR}
// references from the environment, applies defaults and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(strings.NewReader(os.ExpandEnv(string(raw))))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation: warn for unknown provider names.
	validateProviderName("stt", cfg.Providers.STT.Name)

	for _, key := range []string{"diarize", "smart_format", "utterances", "punctuate"} {
		if _, err := cfg.Providers.STT.OptionBool(key, true); err != nil {
			errs = append(errs, fmt.Errorf("providers.stt.options: %w", err))
		}
	}
	if cfg.Providers.STT.Name == "openai" && cfg.Caption.PunctuatedWords {
		slog.Warn("caption.punctuated_words has no effect with the openai provider")
	}

	// Output
	if _, err := caption.ParseFormats(cfg.Output.Formats...); err != nil {
		errs = append(errs, fmt.Errorf("output.formats: %w", err))
	}

	// Caption
	if cfg.Caption.MaxGapSeconds < 0 {
		errs = append(errs, fmt.Errorf("caption.max_gap_seconds %.2f must not be negative", cfg.Caption.MaxGapSeconds))
	}
	if cfg.Caption.MaxWords < 0 {
		errs = append(errs, fmt.Errorf("caption.max_words %d must not be negative", cfg.Caption.MaxWords))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
