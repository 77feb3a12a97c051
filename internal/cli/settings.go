package cli

import (
	"github.com/spf13/cobra"

	"github.com/zsiec/syncgen/internal/config"
)

// settings collects flag values. Only flags the user set override the
// defaults or the --config file.
type settings struct {
	path string
	v    config.Config
}

func newSettings() *settings {
	return &settings{v: config.Default()}
}

// addMarkerFlags registers the flags that shape patterns and their
// audio, shared by every command.
func (s *settings) addMarkerFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&s.path, "config", "", "YAML settings file")
	fs.StringVar(&s.v.FrameRate, "vr", s.v.FrameRate, "video frame rate, N or N/D")
	fs.Int64Var(&s.v.SampleRate, "ar", s.v.SampleRate, "audio sample rate in Hz")
	fs.Float64Var(&s.v.Amplitude, "amplitude", s.v.Amplitude, "tone amplitude in [0,1], 0 is silent")
	fs.BoolVar(&s.v.Centered, "centered", false, "center the tone burst on the sync instant")
	fs.BoolVar(&s.v.Rectangle, "rectangle", false, "square-wave carrier")
	fs.Float64Var(&s.v.Smoothing, "smoothing", s.v.Smoothing, "fraction of a symbol ramped at phase changes, 0 disables")
}

// addPlanFlags registers the flags that shape the schedule.
func (s *settings) addPlanFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Int64Var(&s.v.Duration, "duration", 0, "clip duration in seconds, 0 picks one")
	fs.Int64Var(&s.v.MaxDuration, "max-duration", s.v.MaxDuration, "maximum clip duration in seconds")
	fs.Int64Var(&s.v.CoverageUnits, "coverage-units", 0, "cycles the automatic duration aims to cover, 0 keeps the default")
	fs.StringVarP(&s.v.Output, "output", "o", s.v.Output, "output file; .ts selects MPEG-TS")
	fs.IntVar(&s.v.Width, "width", s.v.Width, "frame width")
	fs.IntVar(&s.v.Height, "height", s.v.Height, "frame height")
}

// addOutputFlags registers the flags only generate uses.
func (s *settings) addOutputFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&s.v.WorkDir, "workdir", "w", s.v.WorkDir, "directory for scratch files")
	fs.BoolVar(&s.v.DryRun, "dryrun", false, "validate and plan without writing anything")
	fs.StringVar(&s.v.SRT.Address, "srt-addr", "", "push the clip to this SRT listener (host:port)")
	fs.StringVar(&s.v.SRT.StreamID, "srt-stream-id", "", "SRT stream ID, default live/<output name>")
	fs.IntVar(&s.v.SRT.Loops, "srt-loops", 0, "times to send the pushed clip, 0 sends it once")
}

// resolve layers defaults, the --config file, the flags the user set and
// the positional pattern specs.
func (s *settings) resolve(cmd *cobra.Command, patterns []string) (config.Config, error) {
	cfg := config.Default()
	if s.path != "" {
		var err error
		if cfg, err = config.Load(s.path); err != nil {
			return config.Config{}, err
		}
	}

	fs := cmd.Flags()
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("vr", func() { cfg.FrameRate = s.v.FrameRate })
	set("ar", func() { cfg.SampleRate = s.v.SampleRate })
	set("amplitude", func() { cfg.Amplitude = s.v.Amplitude })
	set("centered", func() { cfg.Centered = s.v.Centered })
	set("rectangle", func() { cfg.Rectangle = s.v.Rectangle })
	set("smoothing", func() { cfg.Smoothing = s.v.Smoothing })
	set("duration", func() { cfg.Duration = s.v.Duration })
	set("max-duration", func() { cfg.MaxDuration = s.v.MaxDuration })
	set("coverage-units", func() { cfg.CoverageUnits = s.v.CoverageUnits })
	set("output", func() { cfg.Output = s.v.Output })
	set("width", func() { cfg.Width = s.v.Width })
	set("height", func() { cfg.Height = s.v.Height })
	set("workdir", func() { cfg.WorkDir = s.v.WorkDir })
	set("dryrun", func() { cfg.DryRun = s.v.DryRun })
	set("srt-addr", func() { cfg.SRT.Address = s.v.SRT.Address })
	set("srt-stream-id", func() { cfg.SRT.StreamID = s.v.SRT.StreamID })
	set("srt-loops", func() { cfg.SRT.Loops = s.v.SRT.Loops })

	if len(patterns) > 0 {
		cfg.Patterns = patterns
	}
	return cfg, nil
}
