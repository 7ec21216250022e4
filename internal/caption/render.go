package caption

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/MrWong99/scribecast/pkg/types"
)

// DefaultSource is the generation source named in the WEBVTT NOTE block when
// RenderOptions.Source is empty.
const DefaultSource = "Deepgram"

// textRuleWidth is the width of the "=" rule under the plain-text header.
const textRuleWidth = 50

// RenderOptions controls the renderers. The zero value is usable: it reads
// the wall clock, names [DefaultSource], and segments with the default
// thresholds.
type RenderOptions struct {
	// Clock supplies the creation timestamp written into headers. Tests should
	// pass a *clock.Mock.
	Clock clock.Clock

	// Source is the generation source written into the WEBVTT NOTE block.
	Source string

	// Segmenter holds the utterance split thresholds.
	Segmenter Segmenter

	// PunctuatedWords selects smart-formatted tokens where available.
	PunctuatedWords bool
}

func (o RenderOptions) created() string {
	clk := o.Clock
	if clk == nil {
		clk = clock.New()
	}
	return clk.Now().UTC().Format(time.RFC3339)
}

func (o RenderOptions) source() string {
	if o.Source == "" {
		return DefaultSource
	}
	return o.Source
}

// Utterances segments the first-channel words of resp according to opts.
func Utterances(resp *types.Response, opts RenderOptions) []Utterance {
	return opts.Segmenter.Segment(WordsFromResponse(resp, opts.PunctuatedWords))
}

// RenderVTT renders resp as a WEBVTT document with one voice-tagged cue per
// utterance. A response without words yields only the header and NOTE block.
func RenderVTT(resp *types.Response, opts RenderOptions) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString("WEBVTT\n\n")
	b.WriteString("NOTE\n")
	fmt.Fprintf(&b, "Transcription provided by %s\n", opts.source())
	fmt.Fprintf(&b, "Created: %s\n\n", opts.created())

	for _, u := range Utterances(resp, opts) {
		start, err := FormatTimestamp(u.Start)
		if err != nil {
			return nil, fmt.Errorf("caption: vtt: %w", err)
		}
		end, err := FormatTimestamp(u.End)
		if err != nil {
			return nil, fmt.Errorf("caption: vtt: %w", err)
		}
		fmt.Fprintf(&b, "%s --> %s\n", start, end)
		fmt.Fprintf(&b, "<v Speaker %d>%s\n\n", u.Speaker, u.Text)
	}
	return b.Bytes(), nil
}

// RenderSRT renders resp as SubRip cues numbered from 1. A response without
// words yields an empty document.
func RenderSRT(resp *types.Response, opts RenderOptions) ([]byte, error) {
	var b bytes.Buffer
	for i, u := range Utterances(resp, opts) {
		start, err := FormatSRTTimestamp(u.Start)
		if err != nil {
			return nil, fmt.Errorf("caption: srt: cue %d: %w", i+1, err)
		}
		end, err := FormatSRTTimestamp(u.End)
		if err != nil {
			return nil, fmt.Errorf("caption: srt: cue %d: %w", i+1, err)
		}
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", start, end)
		fmt.Fprintf(&b, "Speaker %d: %s\n\n", u.Speaker, u.Text)
	}
	return b.Bytes(), nil
}

// RenderText renders resp as a plain-text transcript.
//
// When the provider supplied its own utterance list, each entry is written as
// "[start] Speaker N: transcript". Otherwise the flat transcript of the top
// hypothesis is written as is. Local segmentation is not used here.
func RenderText(resp *types.Response, opts RenderOptions) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Transcription created: %s\n", opts.created())
	b.WriteString(strings.Repeat("=", textRuleWidth))
	b.WriteString("\n\n")

	alt, ok := resp.FirstAlternative()
	if !ok {
		return b.Bytes(), nil
	}

	if utts, ok := resp.ProviderUtterances(); ok {
		for _, u := range utts {
			ts, err := FormatTimestamp(u.Start)
			if err != nil {
				return nil, fmt.Errorf("caption: txt: %w", err)
			}
			fmt.Fprintf(&b, "[%s] Speaker %d: %s\n\n", ts, u.Speaker, u.Transcript)
		}
		return b.Bytes(), nil
	}

	b.WriteString(alt.Transcript)
	return b.Bytes(), nil
}

// RenderJSON pretty-prints the provider payload of resp with two-space
// indentation. Non-ASCII and HTML characters are written unescaped and
// numbers keep their original spelling; object keys come out sorted. When
// resp carries no raw payload the typed structure is encoded instead.
func RenderJSON(resp *types.Response) ([]byte, error) {
	var v any = resp
	if resp != nil && len(resp.Raw) > 0 {
		dec := json.NewDecoder(bytes.NewReader(resp.Raw))
		dec.UseNumber()
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("caption: json: decode raw payload: %w", err)
		}
		v = raw
	}

	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("caption: json: encode: %w", err)
	}
	return b.Bytes(), nil
}
