package config_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/MrWong99/scribecast/internal/config"
	"github.com/MrWong99/scribecast/pkg/provider/stt"
	"github.com/MrWong99/scribecast/pkg/types"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const sampleYAML = `
server:
  log_level: debug
  admin_addr: ":9090"

providers:
  stt:
    name: deepgram
    api_key: dg-test
    model: nova-2
    options:
      language: de
      diarize: true
      smart_format: "false"

output:
  formats: [vtt, srt]
  dir: /tmp/captions
  source: Acme

caption:
  max_gap_seconds: 1.5
  max_words: 12
  punctuated_words: true
`

// ── LoadFromReader ───────────────────────────────────────────────────────────

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("log_level: got %q, want %q", cfg.Server.LogLevel, config.LogDebug)
	}
	if cfg.Server.AdminAddr != ":9090" {
		t.Errorf("admin_addr: got %q", cfg.Server.AdminAddr)
	}
	entry := cfg.Providers.STT
	if entry.Name != "deepgram" || entry.APIKey != "dg-test" || entry.Model != "nova-2" {
		t.Errorf("providers.stt: got %+v", entry)
	}
	if got := entry.OptionString("language"); got != "de" {
		t.Errorf("options.language: got %q, want %q", got, "de")
	}
	if got, err := entry.OptionBool("smart_format", true); err != nil || got {
		t.Errorf("options.smart_format: got %v, %v; want false", got, err)
	}
	if got, err := entry.OptionBool("utterances", true); err != nil || !got {
		t.Errorf("options.utterances default: got %v, %v; want true", got, err)
	}
	if strings.Join(cfg.Output.Formats, ",") != "vtt,srt" {
		t.Errorf("output.formats: got %v", cfg.Output.Formats)
	}
	if cfg.Caption.MaxGapSeconds != 1.5 || cfg.Caption.MaxWords != 12 || !cfg.Caption.PunctuatedWords {
		t.Errorf("caption: got %+v", cfg.Caption)
	}
	if got := cfg.SourceName(); got != "Acme" {
		t.Errorf("SourceName: got %q, want %q", got, "Acme")
	}
}

func TestLoadFromReader_EmptyAppliesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("empty config should be valid, got: %v", err)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log_level: got %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Providers.STT.Name != "deepgram" || cfg.Providers.STT.Model != "nova-2" {
		t.Errorf("providers.stt: got %+v", cfg.Providers.STT)
	}
	if got := cfg.Providers.STT.OptionString("language"); got != "en-US" {
		t.Errorf("language: got %q, want en-US", got)
	}
	if strings.Join(cfg.Output.Formats, ",") != "vtt" {
		t.Errorf("output.formats: got %v", cfg.Output.Formats)
	}
	if got := cfg.SourceName(); got != "Deepgram" {
		t.Errorf("SourceName: got %q, want Deepgram", got)
	}
}

func TestLoadFromReader_OpenAIKeepsOwnDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader("providers:\n  stt:\n    name: openai\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Providers.STT.Model != "" {
		t.Errorf("model: got %q, want empty", cfg.Providers.STT.Model)
	}
	if got := cfg.SourceName(); got != "OpenAI" {
		t.Errorf("SourceName: got %q, want OpenAI", got)
	}
}

func TestLoadFromReader_ExpandsEnv(t *testing.T) {
	t.Setenv("SCRIBECAST_TEST_KEY", "from-env")
	cfg, err := config.LoadFromReader(strings.NewReader("providers:\n  stt:\n    api_key: ${SCRIBECAST_TEST_KEY}\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Providers.STT.APIKey != "from-env" {
		t.Errorf("api_key: got %q, want from-env", cfg.Providers.STT.APIKey)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("output:\n  format: vtt\n"))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestLoadFromReader_ReadError(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(io.MultiReader(strings.NewReader("server:"), errReader{}))
	if err == nil {
		t.Fatal("expected read error, got nil")
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

// ── SourceName ───────────────────────────────────────────────────────────────

func TestSourceName_UnknownProvider(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{Providers: config.ProvidersConfig{STT: config.ProviderEntry{Name: "acme-stt"}}}
	if got := cfg.SourceName(); got != "acme-stt" {
		t.Errorf("SourceName: got %q, want acme-stt", got)
	}
}

// ── Registry ─────────────────────────────────────────────────────────────────

func TestRegistry_NotRegistered(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	_, err := reg.CreateSTT(config.ProviderEntry{Name: "nonexistent"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got %v", err)
	}
}

func TestRegistry_RegisteredSTT(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	want := &stubSTT{}
	reg.RegisterSTT("stub", func(e config.ProviderEntry) (stt.Provider, error) {
		return want, nil
	})
	got, err := reg.CreateSTT(config.ProviderEntry{Name: "stub"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Error("returned provider is not the expected instance")
	}
}

func TestRegistry_FactoryReceivesEntry(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	var seen config.ProviderEntry
	reg.RegisterSTT("stub", func(e config.ProviderEntry) (stt.Provider, error) {
		seen = e
		return &stubSTT{}, nil
	})
	if _, err := reg.CreateSTT(config.ProviderEntry{Name: "stub", APIKey: "k", Model: "m"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen.APIKey != "k" || seen.Model != "m" {
		t.Errorf("factory saw %+v", seen)
	}
}

func TestRegistry_FactoryError(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	wantErr := errors.New("factory boom")
	reg.RegisterSTT("broken", func(e config.ProviderEntry) (stt.Provider, error) {
		return nil, wantErr
	})
	_, err := reg.CreateSTT(config.ProviderEntry{Name: "broken"})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected factory error %v, got %v", wantErr, err)
	}
}

func TestRegistry_STTNames(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	factory := func(config.ProviderEntry) (stt.Provider, error) { return &stubSTT{}, nil }
	reg.RegisterSTT("openai", factory)
	reg.RegisterSTT("deepgram", factory)
	if got := strings.Join(reg.STTNames(), ","); got != "deepgram,openai" {
		t.Errorf("STTNames: got %q", got)
	}
}

// ── Stub implementations (satisfy interfaces for the compiler) ────────────────

// stubSTT implements stt.Provider.
type stubSTT struct{}

func (s *stubSTT) Transcribe(_ context.Context, _ io.Reader, _ stt.Request) (*types.Response, error) {
	return &types.Response{}, nil
}
