// Package caption groups word-level recognition output into caption-sized
// utterances and renders them as WEBVTT, SRT, plain text, or JSON.
//
// Segmentation is a greedy single forward pass over the words in recognition
// order. A word opens a new utterance when the speaker changes, when the
// silence since the previous word exceeds [DefaultMaxGap], or when the open
// utterance already holds more than [DefaultMaxWords] words. Earlier boundary
// decisions are never revisited.
//
// Everything in this package is synchronous and free of shared state.
// Renderers read the current time only through [RenderOptions.Clock].
package caption

import (
	"strings"

	"github.com/MrWong99/scribecast/pkg/types"
)

const (
	// DefaultMaxGap is the silence, in seconds, that must be exceeded between
	// the end of one word and the start of the next to force a new utterance.
	DefaultMaxGap = 2.0

	// DefaultMaxWords is the utterance length that must be exceeded before the
	// next word is forced into a new utterance. An utterance therefore holds at
	// most DefaultMaxWords+1 words.
	DefaultMaxWords = 20
)

// Word is a single recognised token as seen by the segmenter.
type Word struct {
	Text    string
	Start   float64
	End     float64
	Speaker int
}

// Utterance is a contiguous run of words attributed to one speaker.
type Utterance struct {
	// Words is never empty.
	Words []Word

	// Speaker is the speaker of the first word.
	Speaker int

	// Start is Words[0].Start; End is the End of the last word.
	Start float64
	End   float64

	// Text is the word texts joined by single spaces.
	Text string
}

func newUtterance(words []Word, speaker int) Utterance {
	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = w.Text
	}
	return Utterance{
		Words:   words,
		Speaker: speaker,
		Start:   words[0].Start,
		End:     words[len(words)-1].End,
		Text:    strings.Join(texts, " "),
	}
}

// Segmenter holds the split thresholds. The zero value uses [DefaultMaxGap]
// and [DefaultMaxWords].
type Segmenter struct {
	// MaxGap is the silence threshold in seconds. Zero or negative selects
	// DefaultMaxGap.
	MaxGap float64

	// MaxWords is the length threshold. Zero or negative selects
	// DefaultMaxWords.
	MaxWords int
}

func (s Segmenter) limits() (float64, int) {
	gap, words := s.MaxGap, s.MaxWords
	if gap <= 0 {
		gap = DefaultMaxGap
	}
	if words <= 0 {
		words = DefaultMaxWords
	}
	return gap, words
}

// Segment partitions words into utterances. Concatenating the Words of every
// returned utterance reproduces the input exactly. An empty input yields nil.
func (s Segmenter) Segment(words []Word) []Utterance {
	maxGap, maxWords := s.limits()

	var (
		out     []Utterance
		open    []Word
		speaker int
		lastEnd float64
	)
	for _, w := range words {
		split := len(open) == 0 ||
			w.Speaker != speaker ||
			w.Start-lastEnd > maxGap ||
			len(open) > maxWords
		if split {
			if len(open) > 0 {
				out = append(out, newUtterance(open, speaker))
			}
			open = []Word{w}
			speaker = w.Speaker
		} else {
			open = append(open, w)
		}
		lastEnd = w.End
	}
	if len(open) > 0 {
		out = append(out, newUtterance(open, speaker))
	}
	return out
}

// Segment partitions words using the default thresholds.
func Segment(words []Word) []Utterance {
	return Segmenter{}.Segment(words)
}

// WordsFromResponse extracts the top-hypothesis words of the first channel of
// resp. Missing nested fields yield nil. When punctuated is true the
// smart-formatted token is used where the provider supplied one.
func WordsFromResponse(resp *types.Response, punctuated bool) []Word {
	src := resp.Words()
	if len(src) == 0 {
		return nil
	}
	out := make([]Word, len(src))
	for i, w := range src {
		out[i] = Word{
			Text:    w.Token(punctuated),
			Start:   w.Start,
			End:     w.End,
			Speaker: w.Speaker,
		}
	}
	return out
}
