// Package stt defines the Provider interface for prerecorded Speech-to-Text
// backends.
//
// An STT provider wraps a batch transcription service (e.g., Deepgram's
// /v1/listen endpoint or OpenAI's audio transcription API) and returns the
// complete recognition result for one media file as a [types.Response]. The
// response carries word-level timings and, where the service supports it,
// speaker labels and provider-side utterance grouping.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/MrWong99/scribecast/pkg/types"
)

// ErrEmptyAudio is returned by Transcribe when the audio reader yields no bytes.
var ErrEmptyAudio = errors.New("stt: empty audio")

// Request describes the media handed to a provider.
type Request struct {
	// Filename is the base name of the media file. Providers use it to derive
	// the upload content type and multipart file name.
	Filename string

	// MIMEType overrides the content type derived from Filename.
	MIMEType string

	// Language is the BCP-47 language tag for recognition (e.g., "en-US").
	// An empty string selects the provider-level default.
	Language string
}

// mediaTypes covers the common recording containers. The system MIME table
// is consulted for anything else.
var mediaTypes = map[string]string{
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
	".ogg":  "audio/ogg",
	".opus": "audio/ogg",
	".wav":  "audio/wav",
	".webm": "video/webm",
}

// ContentType returns MIMEType, the type known for the Filename extension, or
// "application/octet-stream".
func (r Request) ContentType() string {
	if r.MIMEType != "" {
		return r.MIMEType
	}
	ext := strings.ToLower(filepath.Ext(r.Filename))
	if ct, ok := mediaTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Provider is the abstraction over any batch STT backend.
type Provider interface {
	// Transcribe uploads the media read from audio and returns the provider's
	// recognition result. The returned response keeps the provider payload in
	// Raw so that it can be passed through unchanged.
	//
	// Returns ErrEmptyAudio if audio yields no bytes, or a wrapped transport or
	// service error. Transcribe does not retry.
	Transcribe(ctx context.Context, audio io.Reader, req Request) (*types.Response, error)
}

// ReadAudio drains r into memory. It returns ErrEmptyAudio when r yields no
// bytes.
func ReadAudio(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, ErrEmptyAudio
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("stt: read audio: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}
	return data, nil
}
