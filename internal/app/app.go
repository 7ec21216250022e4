// Package app wires the scribecast subsystems into a caption job.
//
// An App holds what stays fixed across jobs: the STT provider, the render
// options derived from config, metrics, the clock, and the optional health
// handler. [App.Run] executes one [Job]: it obtains a recognition result
// (from a saved response file or by transcribing a media file), renders every
// requested format concurrently, writes the files, and returns a [Summary].
//
// For testing, inject doubles via functional options (WithProvider,
// WithClock, WithMetrics).
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/scribecast/internal/caption"
	"github.com/MrWong99/scribecast/internal/config"
	"github.com/MrWong99/scribecast/internal/health"
	"github.com/MrWong99/scribecast/internal/observe"
	"github.com/MrWong99/scribecast/pkg/provider/stt"
	"github.com/MrWong99/scribecast/pkg/types"
)

var (
	// ErrNoInput is returned when a job names neither a media file nor a
	// saved response.
	ErrNoInput = errors.New("app: job needs an input file or a response file")

	// ErrAmbiguousInput is returned when a job names both a media file and a
	// saved response.
	ErrAmbiguousInput = errors.New("app: job takes either an input file or a response file, not both")

	// ErrNoProvider is returned when a media file must be transcribed but no
	// STT provider is configured.
	ErrNoProvider = errors.New("app: no STT provider configured")

	// ErrOverwriteInput is returned when an output path would replace the
	// response file the job reads from.
	ErrOverwriteInput = errors.New("app: output would overwrite the input response")
)

// Job describes one caption run.
type Job struct {
	// Input is the media file to transcribe. Mutually exclusive with
	// ResponsePath.
	Input string

	// ResponsePath is a previously saved provider response (JSON). Mutually
	// exclusive with Input.
	ResponsePath string

	// Formats lists the renderings to produce. Empty selects the formats
	// from config.
	Formats []caption.Format

	// OutputDir is where files are written. Empty selects the configured
	// directory, then the directory of the input.
	OutputDir string
}

// Output describes one written file.
type Output struct {
	Format caption.Format
	Path   string
	Bytes  int
}

// Summary reports what a job produced.
type Summary struct {
	// Outputs lists the written files in the order the formats were requested.
	Outputs []Output

	// WordCount is the number of whitespace-separated words in the flat
	// transcript.
	WordCount int

	// SpeakerCount is the number of distinct speakers among the provider
	// utterances. Zero when the provider supplied none.
	SpeakerCount int

	// Utterances is the number of utterances produced by local segmentation.
	Utterances int
}

// App owns the long-lived collaborators of caption jobs.
type App struct {
	provider     stt.Provider
	providerName string
	language     string

	formats   []caption.Format
	outputDir string
	render    caption.RenderOptions

	metrics *observe.Metrics
	clock   clock.Clock
	health  *health.Handler
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithProvider sets the STT provider used for media input. name labels
// metrics and logs.
func WithProvider(name string, p stt.Provider) Option {
	return func(a *App) {
		a.providerName = name
		a.provider = p
	}
}

// WithMetrics replaces [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithClock replaces the wall clock. Caption headers and latency samples read
// time only through it.
func WithClock(c clock.Clock) Option {
	return func(a *App) { a.clock = c }
}

// WithHealth attaches a health handler whose phase tracks job progress.
func WithHealth(h *health.Handler) Option {
	return func(a *App) { a.health = h }
}

// New creates an App from cfg. cfg must have passed [config.Validate].
func New(cfg *config.Config, opts ...Option) (*App, error) {
	formats, err := caption.ParseFormats(cfg.Output.Formats...)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a := &App{
		providerName: cfg.Providers.STT.Name,
		language:     cfg.Providers.STT.OptionString("language"),
		formats:      formats,
		outputDir:    cfg.Output.Dir,
		render: caption.RenderOptions{
			Source: cfg.SourceName(),
			Segmenter: caption.Segmenter{
				MaxGap:   cfg.Caption.MaxGapSeconds,
				MaxWords: cfg.Caption.MaxWords,
			},
			PunctuatedWords: cfg.Caption.PunctuatedWords,
		},
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.clock == nil {
		a.clock = clock.New()
	}
	a.render.Clock = a.clock
	return a, nil
}

// Run executes job. On a render or write failure the files of the other
// formats are still written; all failures are returned joined.
func (a *App) Run(ctx context.Context, job Job) (sum *Summary, err error) {
	if err := job.validate(); err != nil {
		return nil, err
	}

	ctx, span := observe.StartSpan(ctx, "app.Run", trace.WithAttributes(
		attribute.String("input", job.source()),
	))
	defer func() { observe.EndSpan(span, err) }()

	a.metrics.ActiveJobs.Add(ctx, 1)
	defer a.metrics.ActiveJobs.Add(ctx, -1)
	defer func() {
		if err != nil {
			a.setPhase(health.PhaseFailed)
		} else {
			a.setPhase(health.PhaseDone)
		}
	}()

	log := observe.Logger(ctx)

	resp, err := a.load(ctx, job)
	if err != nil {
		return nil, err
	}

	formats := job.Formats
	if len(formats) == 0 {
		formats = a.formats
	}

	dir := job.OutputDir
	if dir == "" {
		dir = a.outputDir
	}
	if dir == "" {
		dir = filepath.Dir(job.source())
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("app: create output dir: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(job.source()), filepath.Ext(job.source()))
	paths := make([]string, len(formats))
	for i, f := range formats {
		paths[i] = filepath.Join(dir, base+f.Extension())
		if job.ResponsePath != "" && samePath(paths[i], job.ResponsePath) {
			return nil, fmt.Errorf("%w: %s", ErrOverwriteInput, paths[i])
		}
	}

	a.setPhase(health.PhaseRendering)
	utterances := len(caption.Utterances(resp, a.render))
	a.metrics.RecordUtterances(ctx, utterances)

	outputs, err := a.writeAll(ctx, resp, formats, paths)
	sum = &Summary{
		Outputs:      outputs,
		WordCount:    len(strings.Fields(resp.Transcript())),
		SpeakerCount: countSpeakers(resp),
		Utterances:   utterances,
	}
	if err != nil {
		return sum, err
	}

	log.Info("captions written",
		"input", job.source(),
		"formats", len(outputs),
		"words", sum.WordCount,
		"utterances", sum.Utterances,
	)
	return sum, nil
}

// load returns the recognition result for job, either decoded from the saved
// response or freshly transcribed.
func (a *App) load(ctx context.Context, job Job) (*types.Response, error) {
	if job.ResponsePath != "" {
		data, err := os.ReadFile(job.ResponsePath)
		if err != nil {
			return nil, fmt.Errorf("app: read response: %w", err)
		}
		resp, err := types.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		return resp, nil
	}
	return a.transcribe(ctx, job.Input)
}

// transcribe sends the media file at path to the STT provider.
func (a *App) transcribe(ctx context.Context, path string) (*types.Response, error) {
	if a.provider == nil {
		return nil, ErrNoProvider
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("app: open input: %w", err)
	}
	defer f.Close()

	a.setPhase(health.PhaseTranscribing)
	ctx, span := observe.StartSpan(ctx, "stt.Transcribe", trace.WithAttributes(
		attribute.String("provider", a.providerName),
	))
	observe.Logger(ctx).Info("transcribing", "input", path, "provider", a.providerName)

	start := a.clock.Now()
	resp, err := a.provider.Transcribe(ctx, f, stt.Request{
		Filename: filepath.Base(path),
		Language: a.language,
	})
	a.metrics.RecordSTT(ctx, a.providerName, a.clock.Since(start))
	observe.EndSpan(span, err)
	if err != nil {
		a.metrics.RecordProviderRequest(ctx, a.providerName, "stt", "error")
		a.metrics.RecordProviderError(ctx, a.providerName, "stt")
		return nil, fmt.Errorf("app: transcribe %q: %w", path, err)
	}
	a.metrics.RecordProviderRequest(ctx, a.providerName, "stt", "ok")
	return resp, nil
}

// writeAll renders and writes every format concurrently. The group carries
// no context, so one failure does not cancel the others; every failure is
// kept and returned joined.
func (a *App) writeAll(ctx context.Context, resp *types.Response, formats []caption.Format, paths []string) ([]Output, error) {
	results := make([]*Output, len(formats))
	errs := make([]error, len(formats))

	var g errgroup.Group
	for i, f := range formats {
		g.Go(func() error {
			out, err := a.writeOne(ctx, resp, f, paths[i])
			results[i], errs[i] = out, err
			return err
		})
	}

	outputs := make([]Output, 0, len(formats))
	if err := g.Wait(); err != nil {
		err = errors.Join(errs...)
		for _, o := range results {
			if o != nil {
				outputs = append(outputs, *o)
			}
		}
		return outputs, err
	}
	for _, o := range results {
		outputs = append(outputs, *o)
	}
	return outputs, nil
}

func (a *App) writeOne(ctx context.Context, resp *types.Response, f caption.Format, path string) (*Output, error) {
	start := a.clock.Now()
	data, err := caption.Render(f, resp, a.render)
	a.metrics.RecordRender(ctx, string(f), a.clock.Since(start))
	if err != nil {
		return nil, fmt.Errorf("app: render %s: %w", f, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("app: write %s: %w", f, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("app: write %s: %w", f, err)
	}
	a.metrics.RecordCaptionWritten(ctx, string(f))
	observe.Logger(ctx).Debug("caption file written", "format", string(f), "path", path, "bytes", len(data))
	return &Output{Format: f, Path: path, Bytes: len(data)}, nil
}

func (a *App) setPhase(phase string) {
	if a.health != nil {
		a.health.SetPhase(phase)
	}
}

func (j Job) validate() error {
	switch {
	case j.Input == "" && j.ResponsePath == "":
		return ErrNoInput
	case j.Input != "" && j.ResponsePath != "":
		return ErrAmbiguousInput
	}
	return nil
}

// source is the file the job reads from.
func (j Job) source() string {
	if j.Input != "" {
		return j.Input
	}
	return j.ResponsePath
}

// countSpeakers returns the number of distinct speakers among the provider
// utterances of resp.
func countSpeakers(resp *types.Response) int {
	utts, ok := resp.ProviderUtterances()
	if !ok {
		return 0
	}
	seen := make(map[int]struct{}, 4)
	for _, u := range utts {
		seen[u.Speaker] = struct{}{}
	}
	return len(seen)
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
