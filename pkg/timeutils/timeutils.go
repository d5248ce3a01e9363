package timeutils

import (
	"encoding"
	"math"
	"time"

	"github.com/spf13/pflag"
)

// ParseableDuration represents a time.Duration that can be parsed from text,
// whether from a JSON document or from a command line flag.
type ParseableDuration time.Duration

var _ encoding.TextUnmarshaler = (*ParseableDuration)(nil)
var _ encoding.TextMarshaler = ParseableDuration(0)
var _ pflag.Value = (*ParseableDuration)(nil)

// UnmarshalText allows us a convenient way to unmarshal durations.
func (d *ParseableDuration) UnmarshalText(text []byte) error {
	dur, err := time.ParseDuration(string(text))
	if err == nil {
		*d = ParseableDuration(dur)
	}
	return err
}

// MarshalText renders the duration in the same form UnmarshalText accepts.
func (d ParseableDuration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Duration is a convenience method for converting this parseable duration into
// a standard time.Duration instance.
func (d ParseableDuration) Duration() time.Duration {
	return time.Duration(d)
}

func (d ParseableDuration) String() string {
	return time.Duration(d).String()
}

// Set implements pflag.Value.
func (d *ParseableDuration) Set(s string) error {
	return d.UnmarshalText([]byte(s))
}

// Type implements pflag.Value.
func (d *ParseableDuration) Type() string {
	return "duration"
}

// MaxSeconds is the largest number of seconds a time.Duration can hold.
const MaxSeconds = float64(math.MaxInt64) / float64(time.Second)

// Seconds converts a (possibly fractional) number of seconds into a duration.
// Negative values and NaN are clamped to zero, values too large for a
// time.Duration saturate at its maximum.
func Seconds(s float64) time.Duration {
	if math.IsNaN(s) || s <= 0 {
		return 0
	}
	d := s * float64(time.Second)
	if d >= float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}
