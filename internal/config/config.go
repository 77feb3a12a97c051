// Package config holds the generator settings: defaults, an optional
// YAML file, and eager validation.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zsiec/syncgen/internal/marker"
	"github.com/zsiec/syncgen/internal/mux"
	"github.com/zsiec/syncgen/internal/pattern"
	"github.com/zsiec/syncgen/internal/timebase"
)

var (
	// ErrInvalid is wrapped by every validation failure.
	ErrInvalid = errors.New("config: invalid")
	// ErrNoPatterns is returned when no pattern spec is configured.
	ErrNoPatterns = fmt.Errorf("%w: at least one pattern is required", ErrInvalid)
)

// SRT configures the optional push of the finished clip.
type SRT struct {
	Address  string `yaml:"address"`
	StreamID string `yaml:"stream_id"`
	Loops    int    `yaml:"loops"`
}

// Config is the full set of generator settings.
type Config struct {
	WorkDir     string `yaml:"workdir"`
	FrameRate   string `yaml:"frame_rate"`
	SampleRate  int64  `yaml:"sample_rate"`
	DryRun      bool   `yaml:"dryrun"`
	Duration    int64  `yaml:"duration"`
	MaxDuration int64  `yaml:"max_duration"`
	Output      string `yaml:"output"`

	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	Amplitude float64 `yaml:"amplitude"`
	Centered  bool    `yaml:"centered"`
	Rectangle bool    `yaml:"rectangle"`
	// Amplitude in [0,1] of full scale; 0 writes silent bursts.
	// Smoothing in [0,0.5] is the fraction of a symbol ramped at phase
	// changes; 0 disables the ramp.
	Smoothing float64 `yaml:"smoothing"`
	// CoverageUnits tunes the automatic duration; 0 keeps the default.
	CoverageUnits int64 `yaml:"coverage_units"`

	Patterns []string `yaml:"patterns"`
	SRT      SRT      `yaml:"srt"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		WorkDir:     ".",
		FrameRate:   "30",
		SampleRate:  48000,
		MaxDuration: 600,
		Output:      "output.mp4",
		Width:       1280,
		Height:      720,
		Amplitude:   marker.DefaultAmplitude,
		Smoothing:   marker.DefaultSmoothingFraction,
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse %s: %v", ErrInvalid, path, err)
	}
	return cfg, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

// Validate checks every setting, including each pattern spec, so that
// nothing is written for a configuration that cannot be generated.
func (c Config) Validate() error {
	if _, err := c.Timebase(); err != nil {
		return err
	}
	switch {
	case c.Duration < 0:
		return invalid("duration %d must not be negative", c.Duration)
	case c.MaxDuration <= 0:
		return invalid("max duration %d must be positive", c.MaxDuration)
	case c.Output == "":
		return invalid("output is required")
	case c.Width < 2 || c.Height < 2 || c.Width%2 != 0 || c.Height%2 != 0:
		return invalid("frame size %dx%d must be even and at least 2x2", c.Width, c.Height)
	case c.Amplitude < 0 || c.Amplitude > 1:
		return invalid("amplitude %g outside [0,1]", c.Amplitude)
	case c.Smoothing < 0 || c.Smoothing > 0.5:
		return invalid("smoothing %g outside [0,0.5]", c.Smoothing)
	case c.CoverageUnits < 0:
		return invalid("coverage units %d must not be negative", c.CoverageUnits)
	case c.SRT.Loops < 0:
		return invalid("srt loops %d must not be negative", c.SRT.Loops)
	case c.SRT.Address != "" && !mux.IsTransportStream(c.Output):
		return invalid("srt push needs an MPEG-TS output, got %q", c.Output)
	}
	_, err := c.PatternConfigs()
	return err
}

// Timebase parses the frame rate and pairs it with the sample rate.
func (c Config) Timebase() (timebase.Timebase, error) {
	fr, err := timebase.ParseRational(c.FrameRate)
	if err != nil {
		return timebase.Timebase{}, fmt.Errorf("config: frame rate: %w", err)
	}
	tb, err := timebase.New(fr, c.SampleRate)
	if err != nil {
		return timebase.Timebase{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return tb, nil
}

// PatternConfigs parses every pattern spec.
func (c Config) PatternConfigs() ([]pattern.Config, error) {
	if len(c.Patterns) == 0 {
		return nil, ErrNoPatterns
	}
	out := make([]pattern.Config, 0, len(c.Patterns))
	for _, s := range c.Patterns {
		pc, err := pattern.ParseSpec(s)
		if err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, nil
}

// MarkerParams returns the codec settings shared by every pattern.
func (c Config) MarkerParams(tb timebase.Timebase) marker.Params {
	p := marker.DefaultParams(tb)
	p.Amplitude = c.Amplitude
	p.SmoothingFraction = c.Smoothing
	if c.Centered {
		p.Flags &^= marker.TypeAudioStartAtSync
	}
	if c.Rectangle {
		p.Flags |= marker.TypeRectangle
	}
	return p
}
