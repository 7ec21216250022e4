// Package mock provides a test double for the stt.Provider interface.
//
// Use Provider to return a canned Response (or error) and to verify which
// audio and Request the caller handed over.
//
// Example:
//
//	p := &mock.Provider{Response: resp}
//	got, _ := p.Transcribe(ctx, strings.NewReader("audio"), stt.Request{Filename: "a.wav"})
//	_ = p.Calls()[0].Req.Filename // "a.wav"
package mock

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/MrWong99/scribecast/pkg/provider/stt"
	"github.com/MrWong99/scribecast/pkg/types"
)

// TranscribeCall records a single invocation of Provider.Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Audio is a copy of every byte read from the audio reader.
	Audio []byte
	// Req is the Request passed to Transcribe.
	Req stt.Request
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Response is returned by Transcribe when Err is nil.
	Response *types.Response

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	calls []TranscribeCall
}

// Transcribe drains audio, records the call and returns Response, Err. Like
// the real providers it returns stt.ErrEmptyAudio for an empty reader.
func (p *Provider) Transcribe(ctx context.Context, audio io.Reader, req stt.Request) (*types.Response, error) {
	data, readErr := stt.ReadAudio(audio)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, TranscribeCall{Ctx: ctx, Audio: data, Req: req})

	if readErr != nil {
		return nil, fmt.Errorf("mock: %w", readErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Response, nil
}

// Calls returns a copy of the recorded calls. Thread-safe.
func (p *Provider) Calls() []TranscribeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]TranscribeCall, len(p.calls))
	copy(out, p.calls)
	return out
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)
