// Package types defines the recognition result shared by STT providers, the
// caption renderers, and the application layer.
//
// The shape mirrors a prerecorded Deepgram /v1/listen response because that is
// the richest format scribecast consumes: per-channel alternatives carrying a
// flat transcript and word-level timings, optional diarization, and optional
// provider-side utterance grouping. Providers that return less (no speakers, no
// utterances) simply leave those fields at their zero values.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Response is a complete recognition result for one media file.
//
// Every nested level is optional. Consumers must treat missing results,
// channels, or alternatives as "no data" rather than as an error.
type Response struct {
	// Metadata describes the request as reported by the provider.
	Metadata *Metadata `json:"metadata,omitempty"`

	// Results holds the recognised content.
	Results *Results `json:"results,omitempty"`

	// Raw is the payload exactly as received from the provider. It is kept so
	// that the JSON rendering can pass the provider's structure through
	// untouched, including fields this package does not model. Nil when the
	// response was built in code.
	Raw json.RawMessage `json:"-"`
}

// Metadata carries request-level information returned by the provider.
type Metadata struct {
	RequestID string   `json:"request_id,omitempty"`
	Created   string   `json:"created,omitempty"`
	Duration  float64  `json:"duration,omitempty"`
	Channels  int      `json:"channels,omitempty"`
	Models    []string `json:"models,omitempty"`
}

// Results groups per-channel recognition output.
type Results struct {
	Channels []Channel `json:"channels"`

	// Utterances is Deepgram's result-level utterance list. Each entry names
	// the channel it belongs to.
	Utterances []ProviderUtterance `json:"utterances,omitempty"`
}

// Channel is the recognition output for one audio channel.
type Channel struct {
	Alternatives []Alternative `json:"alternatives"`

	// Utterances is a channel-scoped provider segmentation. When present it
	// takes precedence over Results.Utterances.
	Utterances []ProviderUtterance `json:"utterances,omitempty"`
}

// Alternative is one recognition hypothesis for a channel.
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence,omitempty"`
	Words      []Word  `json:"words,omitempty"`
}

// Word is a single recognised token with timings in seconds.
type Word struct {
	// Word is the raw token. Deepgram fills this field.
	Word string `json:"word,omitempty"`

	// Text is the token for providers that name the field "text".
	Text string `json:"text,omitempty"`

	// PunctuatedWord is the smart-formatted token when smart formatting is on.
	PunctuatedWord string `json:"punctuated_word,omitempty"`

	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence,omitempty"`

	// Speaker is the diarized speaker id; 0 when diarization is off.
	Speaker           int     `json:"speaker"`
	SpeakerConfidence float64 `json:"speaker_confidence,omitempty"`
}

// Token returns the display text of w. Word is preferred over Text. When
// punctuated is true and a smart-formatted token exists, that is used instead.
func (w Word) Token(punctuated bool) string {
	if punctuated && w.PunctuatedWord != "" {
		return w.PunctuatedWord
	}
	if w.Word != "" {
		return w.Word
	}
	return w.Text
}

// ProviderUtterance is a provider-native speaker turn.
type ProviderUtterance struct {
	ID         string  `json:"id,omitempty"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence,omitempty"`
	Channel    int     `json:"channel"`
	Transcript string  `json:"transcript"`
	Speaker    int     `json:"speaker"`
	Words      []Word  `json:"words,omitempty"`
}

// Decode parses a provider payload into a [Response] and retains a copy of
// the original bytes in Response.Raw.
//
// Two shapes are understood: the Deepgram-style results tree and OpenAI's
// verbose_json transcription (top-level text and words). The latter is mapped
// onto a single channel with one alternative, every word spoken by speaker 0.
func Decode(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("types: decode response: %w", err)
	}
	if resp.Results == nil {
		if err := resp.decodeVerbose(data); err != nil {
			return nil, err
		}
	}
	resp.Raw = bytes.Clone(data)
	return &resp, nil
}

// verboseTranscription is the subset of OpenAI's verbose_json payload used
// for captions.
type verboseTranscription struct {
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Text     *string `json:"text"`
	Words    []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"words"`
}

// decodeVerbose fills r from a verbose_json payload. Payloads without a
// top-level text field are left untouched.
func (r *Response) decodeVerbose(data []byte) error {
	var vt verboseTranscription
	if err := json.Unmarshal(data, &vt); err != nil {
		return fmt.Errorf("types: decode verbose transcription: %w", err)
	}
	if vt.Text == nil {
		return nil
	}

	words := make([]Word, 0, len(vt.Words))
	for _, w := range vt.Words {
		words = append(words, Word{
			Word:  strings.TrimSpace(w.Word),
			Start: w.Start,
			End:   w.End,
		})
	}
	if r.Metadata == nil {
		r.Metadata = &Metadata{}
	}
	r.Metadata.Duration = vt.Duration
	r.Metadata.Channels = 1
	r.Results = &Results{Channels: []Channel{{
		Alternatives: []Alternative{{
			Transcript: strings.TrimSpace(*vt.Text),
			Words:      words,
		}},
	}}}
	return nil
}

// FirstChannel returns the first channel of r, or false when r carries no
// results or no channels.
func (r *Response) FirstChannel() (*Channel, bool) {
	if r == nil || r.Results == nil || len(r.Results.Channels) == 0 {
		return nil, false
	}
	return &r.Results.Channels[0], true
}

// FirstAlternative returns the top hypothesis of the first channel.
func (r *Response) FirstAlternative() (*Alternative, bool) {
	ch, ok := r.FirstChannel()
	if !ok || len(ch.Alternatives) == 0 {
		return nil, false
	}
	return &ch.Alternatives[0], true
}

// Words returns the word list of the top hypothesis, or nil.
func (r *Response) Words() []Word {
	alt, ok := r.FirstAlternative()
	if !ok {
		return nil
	}
	return alt.Words
}

// Transcript returns the flat transcript of the top hypothesis, or "".
func (r *Response) Transcript() string {
	alt, ok := r.FirstAlternative()
	if !ok {
		return ""
	}
	return alt.Transcript
}

// ProviderUtterances returns the provider-native utterances for the first
// channel. Channel-scoped utterances win; otherwise result-level entries
// belonging to channel 0 are returned. The boolean reports whether the
// provider supplied an utterance list at all, which is distinct from the list
// being empty.
//
// Deepgram places utterances at results.utterances, so unlike a lookup that
// only checks the channel, a real Deepgram payload yields its speaker turns
// here rather than nothing.
func (r *Response) ProviderUtterances() ([]ProviderUtterance, bool) {
	ch, ok := r.FirstChannel()
	if !ok {
		return nil, false
	}
	if ch.Utterances != nil {
		return ch.Utterances, true
	}
	if r.Results.Utterances == nil {
		return nil, false
	}
	out := make([]ProviderUtterance, 0, len(r.Results.Utterances))
	for _, u := range r.Results.Utterances {
		if u.Channel == 0 {
			out = append(out, u)
		}
	}
	return out, true
}
