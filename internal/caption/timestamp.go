package caption

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidTimestamp is returned for negative, NaN, infinite, or
// unrepresentably large second values.
var ErrInvalidTimestamp = errors.New("caption: invalid timestamp")

// maxSeconds keeps the millisecond count inside int64.
const maxSeconds = 9e15

// FormatTimestamp renders seconds as HH:MM:SS.mmm. Hours are not wrapped at
// 24 and grow beyond two digits when needed.
func FormatTimestamp(seconds float64) (string, error) {
	return formatTimestamp(seconds, '.')
}

// FormatSRTTimestamp renders seconds as HH:MM:SS,mmm.
func FormatSRTTimestamp(seconds float64) (string, error) {
	return formatTimestamp(seconds, ',')
}

func formatTimestamp(seconds float64, sep byte) (string, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 || seconds > maxSeconds {
		return "", fmt.Errorf("%w: %v", ErrInvalidTimestamp, seconds)
	}
	// Round once on the total so the seconds field never reads 60.
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	frac := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, frac), nil
}
