package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/syncgen/internal/marker"
	"github.com/zsiec/syncgen/internal/pattern"
	"github.com/zsiec/syncgen/internal/timebase"
)

func validConfig() Config {
	cfg := Default()
	cfg.Patterns = []string{"q=2,f=442,c=0"}
	return cfg
}

func TestDefaultNeedsPatterns(t *testing.T) {
	t.Parallel()
	err := Default().Validate()
	assert.ErrorIs(t, err, ErrNoPatterns)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.NoError(t, validConfig().Validate())
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
		is     error
	}{
		{"bad frame rate", func(c *Config) { c.FrameRate = "30/0" }, timebase.ErrMalformedRational},
		{"zero frame rate", func(c *Config) { c.FrameRate = "0" }, timebase.ErrMalformedRational},
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }, ErrInvalid},
		{"negative duration", func(c *Config) { c.Duration = -1 }, ErrInvalid},
		{"zero max duration", func(c *Config) { c.MaxDuration = 0 }, ErrInvalid},
		{"no output", func(c *Config) { c.Output = "" }, ErrInvalid},
		{"odd width", func(c *Config) { c.Width = 1279 }, ErrInvalid},
		{"negative amplitude", func(c *Config) { c.Amplitude = -0.1 }, ErrInvalid},
		{"amplitude too high", func(c *Config) { c.Amplitude = 1.1 }, ErrInvalid},
		{"smoothing too high", func(c *Config) { c.Smoothing = 0.6 }, ErrInvalid},
		{"negative smoothing", func(c *Config) { c.Smoothing = -0.1 }, ErrInvalid},
		{"negative loops", func(c *Config) { c.SRT.Loops = -1 }, ErrInvalid},
		{"srt push needs ts", func(c *Config) { c.SRT.Address = "127.0.0.1:6000" }, ErrInvalid},
		{"unknown pattern key", func(c *Config) { c.Patterns = []string{"q=2,x=1"} }, pattern.ErrInvalidSpec},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.is), "got %v", err)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "syncgen.yaml")
	data := `frame_rate: 30000/1001
sample_rate: 44100
duration: 60
output: clip.ts
centered: true
patterns:
  - q=2,f=442
  - q=3,f=1000,c=4
srt:
  address: 127.0.0.1:6000
  stream_id: live/sync
  loops: 2
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "30000/1001", cfg.FrameRate)
	assert.Equal(t, int64(44100), cfg.SampleRate)
	assert.Equal(t, int64(600), cfg.MaxDuration, "unset keys keep defaults")
	assert.Equal(t, 1280, cfg.Width)
	assert.True(t, cfg.Centered)
	assert.Equal(t, "live/sync", cfg.SRT.StreamID)
	assert.Equal(t, 2, cfg.SRT.Loops)

	pcs, err := cfg.PatternConfigs()
	require.NoError(t, err)
	assert.Equal(t, []pattern.Config{{FlashFrames: 2, ToneFrequency: 442}, {FlashFrames: 3, ToneFrequency: 1000, CycleCount: 4}}, pcs)

	tb, err := cfg.Timebase()
	require.NoError(t, err)
	assert.Equal(t, timebase.FrameRate29_97, tb.FrameRate)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("framerate: 30\n"), 0o644))
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMarkerParams(t *testing.T) {
	t.Parallel()
	tb, err := timebase.New(timebase.FrameRate30, 48000)
	require.NoError(t, err)

	cfg := validConfig()
	p := cfg.MarkerParams(tb)
	assert.Equal(t, marker.TypeAudioStartAtSync, p.Flags)
	assert.Equal(t, 0.25, p.SmoothingFraction)

	cfg.Centered, cfg.Rectangle, cfg.Smoothing = true, true, 0
	p = cfg.MarkerParams(tb)
	assert.Equal(t, marker.TypeRectangle, p.Flags)
	assert.Equal(t, 0.0, p.SmoothingFraction)

	cfg.Amplitude = 0
	require.NoError(t, cfg.Validate(), "a silent marker is a valid request")
	p = cfg.MarkerParams(tb)
	assert.Equal(t, 0.0, p.Amplitude)
	p.FlashFrames, p.ToneFrequency = 2, 442
	_, err = marker.NewCodec(p)
	assert.NoError(t, err)
}
