package caption

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/scribecast/pkg/types"
)

// ErrUnknownFormat is returned for format names other than vtt, srt, txt,
// json, and all.
var ErrUnknownFormat = errors.New("caption: unknown format")

// Format names an output rendering.
type Format string

const (
	FormatVTT  Format = "vtt"
	FormatSRT  Format = "srt"
	FormatText Format = "txt"
	FormatJSON Format = "json"
)

// formatAll expands to every format in [AllFormats].
const formatAll = "all"

// AllFormats lists every supported format in output order.
var AllFormats = []Format{FormatVTT, FormatSRT, FormatText, FormatJSON}

// IsValid reports whether f is a supported format.
func (f Format) IsValid() bool {
	switch f {
	case FormatVTT, FormatSRT, FormatText, FormatJSON:
		return true
	}
	return false
}

// Extension returns the file extension for f including the leading dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ParseFormats turns format names into a de-duplicated list in first-seen
// order. Each argument may itself be a comma-separated list. "all" expands to
// [AllFormats]. Names are case-insensitive and surrounding space is ignored.
func ParseFormats(names ...string) ([]Format, error) {
	var out []Format
	seen := make(map[Format]bool)
	add := func(f Format) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, arg := range names {
		for _, name := range strings.Split(arg, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			if name == formatAll {
				for _, f := range AllFormats {
					add(f)
				}
				continue
			}
			f := Format(name)
			if !f.IsValid() {
				return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
			}
			add(f)
		}
	}
	return out, nil
}

// Render produces the f rendering of resp.
func Render(f Format, resp *types.Response, opts RenderOptions) ([]byte, error) {
	switch f {
	case FormatVTT:
		return RenderVTT(resp, opts)
	case FormatSRT:
		return RenderSRT(resp, opts)
	case FormatText:
		return RenderText(resp, opts)
	case FormatJSON:
		return RenderJSON(resp)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}
