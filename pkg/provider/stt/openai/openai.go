// Package openai provides an STT provider backed by the OpenAI audio
// transcription API. Word timestamps are requested through the verbose_json
// response format. The service does not diarize, so every word is attributed
// to speaker 0 and no provider utterances are reported.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MrWong99/scribecast/pkg/provider/stt"
	"github.com/MrWong99/scribecast/pkg/types"
)

// DefaultModel is the default OpenAI transcription model. It is the only
// model that supports word timestamps.
const DefaultModel = oai.AudioModelWhisper1

// Ensure Provider implements the stt.Provider interface.
var _ stt.Provider = (*Provider)(nil)

// Provider implements stt.Provider using the OpenAI API.
type Provider struct {
	client   oai.Client
	model    string
	language string
}

// config holds optional configuration for the provider.
type config struct {
	baseURL    string
	language   string
	httpClient option.HTTPClient
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithLanguage sets the default recognition language. BCP-47 tags such as
// "en-US" are reduced to their primary subtag because the API expects
// ISO-639-1 codes.
func WithLanguage(language string) Option {
	return func(c *config) {
		c.language = language
	}
}

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(client option.HTTPClient) Option {
	return func(c *config) {
		c.httpClient = client
	}
}

// New constructs a new OpenAI STT Provider.
// If model is empty, DefaultModel (whisper-1) is used.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai stt: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// Failed uploads are reported, never retried.
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.httpClient))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: model, language: cfg.language}, nil
}

// Transcribe implements stt.Provider.
func (p *Provider) Transcribe(ctx context.Context, audio io.Reader, req stt.Request) (*types.Response, error) {
	data, err := stt.ReadAudio(audio)
	if err != nil {
		return nil, fmt.Errorf("openai stt: %w", err)
	}

	filename := req.Filename
	if filename == "" {
		filename = "audio"
	}
	params := oai.AudioTranscriptionNewParams{
		File:                   oai.File(bytes.NewReader(data), filename, req.ContentType()),
		Model:                  p.model,
		ResponseFormat:         oai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"word"},
	}
	lang := req.Language
	if lang == "" {
		lang = p.language
	}
	if lang = primarySubtag(lang); lang != "" {
		params.Language = oai.String(lang)
	}

	tr, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai stt: transcribe: %w", err)
	}
	resp, err := convert([]byte(tr.RawJSON()), p.model)
	if err != nil {
		return nil, fmt.Errorf("openai stt: %w", err)
	}
	return resp, nil
}

// convert decodes a verbose_json payload into the shared response shape and
// records the model that produced it.
func convert(raw []byte, model string) (*types.Response, error) {
	resp, err := types.Decode(raw)
	if err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return nil, fmt.Errorf("decode verbose transcription: payload has no text")
	}
	resp.Metadata.Models = []string{model}
	return resp, nil
}

// primarySubtag returns the language part of a BCP-47 tag ("en-US" → "en").
func primarySubtag(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}
