// Package deepgram provides a Deepgram-backed STT provider using the Deepgram
// prerecorded /v1/listen REST API. It implements the stt.Provider interface.
package deepgram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/MrWong99/scribecast/pkg/provider/stt"
	"github.com/MrWong99/scribecast/pkg/types"
)

const (
	deepgramEndpoint = "https://api.deepgram.com"
	listenPath       = "/v1/listen"
	defaultModel     = "nova-2"
	defaultLanguage  = "en-US"

	// maxErrorBody caps how much of a failed response body is quoted in errors.
	maxErrorBody = 512
)

// Features selects the optional Deepgram processing passes. The zero value
// disables all of them; [DefaultFeatures] enables all of them.
type Features struct {
	SmartFormat bool
	Utterances  bool
	Punctuate   bool
	Diarize     bool
}

// DefaultFeatures returns the feature set used when no WithFeatures option is
// given: smart formatting, utterance grouping, punctuation and diarization.
func DefaultFeatures() Features {
	return Features{SmartFormat: true, Utterances: true, Punctuate: true, Diarize: true}
}

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-2", "base").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the BCP-47 language code for recognition (e.g., "en-US", "de").
func WithLanguage(language string) Option {
	return func(p *Provider) {
		p.language = language
	}
}

// WithBaseURL points the provider at a different API host, e.g. a self-hosted
// Deepgram deployment or a test server.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.client = c
	}
}

// WithFeatures selects which optional processing passes are requested.
func WithFeatures(f Features) Option {
	return func(p *Provider) {
		p.features = f
	}
}

// Provider implements stt.Provider backed by the Deepgram prerecorded API.
type Provider struct {
	apiKey   string
	baseURL  string
	model    string
	language string
	features Features
	client   *http.Client
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:   apiKey,
		baseURL:  deepgramEndpoint,
		model:    defaultModel,
		language: defaultLanguage,
		features: DefaultFeatures(),
		client:   http.DefaultClient,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe uploads the media read from audio and returns Deepgram's result.
// req.Language, when set, overrides the provider-level language.
func (p *Provider) Transcribe(ctx context.Context, audio io.Reader, req stt.Request) (*types.Response, error) {
	data, err := stt.ReadAudio(audio)
	if err != nil {
		return nil, fmt.Errorf("deepgram: %w", err)
	}

	listenURL, err := p.buildURL(req)
	if err != nil {
		return nil, fmt.Errorf("deepgram: build URL: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, listenURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("deepgram: new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Token "+p.apiKey)
	httpReq.Header.Set("Content-Type", req.ContentType())
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("deepgram: listen: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("deepgram: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("deepgram: listen: status %d: %s", resp.StatusCode, excerpt(body))
	}

	out, err := types.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("deepgram: %w", err)
	}
	return out, nil
}

// buildURL constructs the listen endpoint URL for the given request.
func (p *Provider) buildURL(req stt.Request) (string, error) {
	u, err := url.Parse(p.baseURL + listenPath)
	if err != nil {
		return "", err
	}

	lang := req.Language
	if lang == "" {
		lang = p.language
	}

	q := u.Query()
	q.Set("model", p.model)
	if lang != "" {
		q.Set("language", lang)
	}
	setFlag(q, "smart_format", p.features.SmartFormat)
	setFlag(q, "utterances", p.features.Utterances)
	setFlag(q, "punctuate", p.features.Punctuate)
	setFlag(q, "diarize", p.features.Diarize)

	u.RawQuery = q.Encode()
	return u.String(), nil
}

func setFlag(q url.Values, key string, on bool) {
	if on {
		q.Set(key, strconv.FormatBool(on))
	}
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)
