// Package pattern binds a marker codec to one user-supplied pattern
// configuration and produces the video frames and audio samples of each
// sync cycle.
package pattern

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Default pattern values, used for keys a spec leaves out.
const (
	DefaultFlashFrames   = 2
	DefaultToneFrequency = 442
)

// ErrInvalidSpec is wrapped by every *SpecError.
var ErrInvalidSpec = errors.New("pattern: invalid spec")

// Config is one pattern's settings. A zero CycleCount is derived from the
// other fields and the timebase.
type Config struct {
	FlashFrames   int64 `yaml:"q" json:"q"`
	ToneFrequency int64 `yaml:"f" json:"f"`
	CycleCount    int64 `yaml:"c" json:"c"`
}

// DefaultConfig returns q=2,f=442,c=0.
func DefaultConfig() Config {
	return Config{FlashFrames: DefaultFlashFrames, ToneFrequency: DefaultToneFrequency}
}

// String renders the config in spec form.
func (c Config) String() string {
	return fmt.Sprintf("q=%d,f=%d,c=%d", c.FlashFrames, c.ToneFrequency, c.CycleCount)
}

// Validate checks the per-key ranges: q and f positive, c not negative.
func (c Config) Validate() error {
	switch {
	case c.FlashFrames <= 0:
		return &SpecError{Spec: c.String(), Key: "q", Reason: "must be positive"}
	case c.ToneFrequency <= 0:
		return &SpecError{Spec: c.String(), Key: "f", Reason: "must be positive"}
	case c.CycleCount < 0:
		return &SpecError{Spec: c.String(), Key: "c", Reason: "must not be negative"}
	}
	return nil
}

// SpecError describes a pattern spec that could not be parsed.
type SpecError struct {
	Spec   string
	Key    string
	Reason string
}

func (e *SpecError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("pattern %q: %s", e.Spec, e.Reason)
	}
	return fmt.Sprintf("pattern %q: key %q: %s", e.Spec, e.Key, e.Reason)
}

func (e *SpecError) Unwrap() error {
	return ErrInvalidSpec
}

// ParseSpec parses a comma separated list of key=value pairs. Recognized
// keys are q (flash frames), f (tone frequency in Hz) and c (cycles per
// symbol, 0 derives it). Missing keys keep their defaults; a repeated key
// takes the last value.
func ParseSpec(spec string) (Config, error) {
	cfg := DefaultConfig()
	for _, kv := range strings.Split(spec, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return Config{}, &SpecError{Spec: spec, Reason: fmt.Sprintf("malformed pair %q", kv)}
		}
		k = strings.TrimSpace(k)
		var dst *int64
		switch k {
		case "q":
			dst = &cfg.FlashFrames
		case "f":
			dst = &cfg.ToneFrequency
		case "c":
			dst = &cfg.CycleCount
		default:
			return Config{}, &SpecError{Spec: spec, Key: k, Reason: "unknown key"}
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return Config{}, &SpecError{Spec: spec, Key: k, Reason: fmt.Sprintf("invalid value %q", v)}
		}
		*dst = n
	}
	if err := cfg.Validate(); err != nil {
		var se *SpecError
		if errors.As(err, &se) {
			se.Spec = spec
		}
		return Config{}, err
	}
	return cfg, nil
}
