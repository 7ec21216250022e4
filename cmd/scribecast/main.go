// Command scribecast turns word-level speech recognition results into
// WebVTT, SRT, plain-text and JSON transcripts.
//
// It either transcribes a media file through the configured STT provider
// (-input) or renders a previously saved provider response (-response).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/MrWong99/scribecast/internal/app"
	"github.com/MrWong99/scribecast/internal/caption"
	"github.com/MrWong99/scribecast/internal/config"
	"github.com/MrWong99/scribecast/internal/health"
	"github.com/MrWong99/scribecast/internal/observe"
	"github.com/MrWong99/scribecast/pkg/provider/stt"
	"github.com/MrWong99/scribecast/pkg/provider/stt/deepgram"
	"github.com/MrWong99/scribecast/pkg/provider/stt/openai"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// options holds the parsed command line. Empty strings mean "not given".
type options struct {
	configPath string
	input      string
	response   string
	format     string
	outputDir  string
	apiKey     string
	model      string
	language   string
	provider   string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("scribecast", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "path to the YAML configuration file (optional)")
	fs.StringVar(&o.input, "input", "", "media file to transcribe")
	fs.StringVar(&o.response, "response", "", "saved Deepgram or OpenAI verbose_json response to render instead of transcribing")
	fs.StringVar(&o.format, "format", "", "output format: vtt, srt, txt, json, all, or a comma list (default vtt)")
	fs.StringVar(&o.outputDir, "output-dir", "", "output directory (default: next to the input)")
	fs.StringVar(&o.apiKey, "api-key", "", "STT provider API key (default: $DEEPGRAM_API_KEY or $OPENAI_API_KEY)")
	fs.StringVar(&o.model, "model", "", "STT model (default nova-2 for deepgram, whisper-1 for openai)")
	fs.StringVar(&o.language, "language", "", "recognition language (default en-US)")
	fs.StringVar(&o.provider, "provider", "", "STT provider: deepgram or openai (default deepgram)")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "scribecast: %v\n", err)
		return 2
	}
	if opts.input == "" && opts.response == "" {
		fmt.Fprintln(stderr, "scribecast: one of -input or -response is required")
		return 2
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "scribecast: %v\n", err)
		return 1
	}
	applyFlags(cfg, opts)
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(stderr, "scribecast: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	slog.SetDefault(newLogger(stderr, cfg.Server.LogLevel))
	slog.Debug("scribecast starting",
		"version", version,
		"config", opts.configPath,
		"provider", cfg.Providers.STT.Name,
		"formats", cfg.Output.Formats,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	tel, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer shutdownWithTimeout("telemetry", tel.Shutdown)

	// ── Provider ──────────────────────────────────────────────────────────────
	appOpts := []app.Option{app.WithMetrics(tel.Metrics)}
	if opts.input != "" {
		reg := config.NewRegistry()
		registerBuiltinProviders(reg)
		p, err := reg.CreateSTT(cfg.Providers.STT)
		if err != nil {
			slog.Error("failed to create STT provider", "provider", cfg.Providers.STT.Name, "err", err)
			return 1
		}
		appOpts = append(appOpts, app.WithProvider(cfg.Providers.STT.Name, p))
	}

	// ── Admin listener (optional) ─────────────────────────────────────────────
	checks := []health.Checker{health.DirWritable("output_dir", outputDirFor(cfg, opts))}
	if opts.input != "" {
		checks = append(checks, health.Configured("api_key", cfg.Providers.STT.APIKey))
	}
	hc := health.New(checks...)
	appOpts = append(appOpts, app.WithHealth(hc))
	if cfg.Server.AdminAddr != "" {
		admin := observe.NewAdminServer(cfg.Server.AdminAddr, tel.Metrics, tel.Registry, hc)
		if err := admin.Start(); err != nil {
			slog.Error("failed to start admin listener", "addr", cfg.Server.AdminAddr, "err", err)
			return 1
		}
		defer shutdownWithTimeout("admin listener", admin.Shutdown)
	}

	// ── Run job ───────────────────────────────────────────────────────────────
	application, err := app.New(cfg, appOpts...)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	formats, err := caption.ParseFormats(cfg.Output.Formats...)
	if err != nil {
		slog.Error("invalid formats", "err", err)
		return 1
	}

	sum, err := application.Run(ctx, app.Job{
		Input:        opts.input,
		ResponsePath: opts.response,
		Formats:      formats,
		OutputDir:    opts.outputDir,
	})
	if sum != nil {
		printSummary(stdout, sum)
	}
	if err != nil {
		slog.Error("job failed", "err", err)
		return 1
	}
	return 0
}

// applyFlags overrides cfg with the values given on the command line.
// Switching provider drops the model and credentials configured for the
// previous one.
func applyFlags(cfg *config.Config, o options) {
	entry := &cfg.Providers.STT
	if o.provider != "" && o.provider != entry.Name {
		*entry = config.ProviderEntry{Name: o.provider, Options: entry.Options}
		if entry.Name != "deepgram" && entry.OptionString("language") == config.DefaultLanguage {
			delete(entry.Options, "language")
		}
	}
	if o.model != "" {
		entry.Model = o.model
	}
	if o.language != "" {
		if entry.Options == nil {
			entry.Options = make(map[string]any)
		}
		entry.Options["language"] = o.language
	}
	if o.apiKey != "" {
		entry.APIKey = o.apiKey
	}
	if entry.APIKey == "" {
		if env := config.APIKeyEnv(entry.Name); env != "" {
			entry.APIKey = os.Getenv(env)
		}
	}
	if o.format != "" {
		cfg.Output.Formats = []string{o.format}
	}
	if o.outputDir != "" {
		cfg.Output.Dir = o.outputDir
	}
	config.ApplyDefaults(cfg)
}

// outputDirFor mirrors the directory choice of app.Run for the readiness
// check.
func outputDirFor(cfg *config.Config, o options) string {
	if cfg.Output.Dir != "" {
		return cfg.Output.Dir
	}
	src := o.input
	if src == "" {
		src = o.response
	}
	return filepath.Dir(src)
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires the built-in STT factories into reg. Each
// factory receives a config.ProviderEntry and constructs the provider from
// the real implementation package.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		features, err := deepgramFeatures(entry)
		if err != nil {
			return nil, err
		}
		opts := []deepgram.Option{deepgram.WithFeatures(features)}
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := entry.OptionString("language"); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithBaseURL(entry.BaseURL))
		}
		p, err := deepgram.New(entry.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []openai.Option
		if lang := entry.OptionString("language"); lang != "" {
			opts = append(opts, openai.WithLanguage(lang))
		}
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		p, err := openai.New(entry.APIKey, entry.Model, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	for _, name := range reg.STTNames() {
		slog.Debug("registered provider", "kind", "stt", "name", name)
	}
}

// deepgramFeatures reads the Deepgram processing toggles from entry.Options.
// Absent toggles stay enabled.
func deepgramFeatures(entry config.ProviderEntry) (deepgram.Features, error) {
	f := deepgram.DefaultFeatures()
	var errs []error
	for key, dst := range map[string]*bool{
		"smart_format": &f.SmartFormat,
		"utterances":   &f.Utterances,
		"punctuate":    &f.Punctuate,
		"diarize":      &f.Diarize,
	} {
		v, err := entry.OptionBool(key, *dst)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*dst = v
	}
	if err := errors.Join(errs...); err != nil {
		return f, fmt.Errorf("deepgram: %w", err)
	}
	return f, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// printSummary writes the files produced and the transcript statistics.
func printSummary(w io.Writer, sum *app.Summary) {
	for _, out := range sum.Outputs {
		fmt.Fprintf(w, "%s saved to: %s\n", out.Format, out.Path)
	}
	fmt.Fprintf(w, "Total words: %d\n", sum.WordCount)
	if sum.SpeakerCount > 0 {
		fmt.Fprintf(w, "Speakers detected: %d\n", sum.SpeakerCount)
	}
}

// shutdownWithTimeout runs fn with a bounded context and logs failures.
func shutdownWithTimeout(what string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		slog.Warn("shutdown error", "component", what, "err", err)
	}
}

// newLogger creates a text slog.Logger at the requested level.
func newLogger(w io.Writer, level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
