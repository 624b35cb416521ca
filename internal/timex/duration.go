// Package timex provides a time.Duration that every configuration layer
// can read: JSON and YAML files, environment variables and pflag flags.
package timex

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Duration accepts Go duration strings ("30s", "1m30s") or a bare integer
// meaning seconds, in every layer including JSON numbers.
type Duration time.Duration

// D returns the standard library value.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// Set implements pflag.Value.
func (d *Duration) Set(s string) error {
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	*d = Duration(v)
	return nil
}

// Type implements pflag.Value.
func (d *Duration) Type() string { return "duration" }

// SetValue implements cleanenv.Setter.
func (d *Duration) SetValue(s string) error { return d.Set(s) }

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Duration) UnmarshalText(b []byte) error { return d.Set(string(b)) }

func (d *Duration) UnmarshalJSON(b []byte) error {
	var secs int64
	if err := json.Unmarshal(b, &secs); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string or whole seconds: %w", err)
	}
	return d.Set(s)
}
