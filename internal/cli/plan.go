package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zsiec/syncgen/internal/pattern"
	"github.com/zsiec/syncgen/internal/pipeline"
	"github.com/zsiec/syncgen/internal/schedule"
)

// PatternSummary describes one pattern after its cycle count is derived.
type PatternSummary struct {
	FlashFrames   int64 `json:"q"`
	ToneFrequency int64 `json:"f"`
	CycleCount    int64 `json:"c"`
	Flags         uint8 `json:"t"`
	FlashMillis   int64 `json:"flashMillis"`
	BurstSamples  int64 `json:"burstSamples"`
	SyncSamples   int64 `json:"syncSamples"`
}

// PlanSummary is the output of plan and generate --dryrun.
type PlanSummary struct {
	FrameRate    string           `json:"frameRate"`
	SampleRate   int64            `json:"sampleRate"`
	Patterns     []PatternSummary `json:"patterns"`
	UnitFrames   int64            `json:"unitFrames"`
	Unit         string           `json:"unit"`
	Repeats      int64            `json:"repeats"`
	Duration     string           `json:"duration"`
	DurationSec  float64          `json:"durationSec"`
	VideoFrames  int64            `json:"videoFrames"`
	AudioSamples int64            `json:"audioSamples"`
}

func newPlanSummary(plan *schedule.Plan, patterns []*pattern.Pattern) PlanSummary {
	s := PlanSummary{
		FrameRate:    plan.Timebase.FrameRate.String(),
		SampleRate:   plan.Timebase.SampleRate,
		UnitFrames:   plan.UnitFrames,
		Unit:         plan.Unit.String(),
		Repeats:      plan.Repeats,
		Duration:     plan.Duration.String(),
		DurationSec:  plan.Duration.Float64(),
		VideoFrames:  plan.FrameCount(),
		AudioSamples: plan.SampleCount(),
	}
	for _, p := range patterns {
		codec := p.Codec()
		s.Patterns = append(s.Patterns, PatternSummary{
			FlashFrames:   p.Config().FlashFrames,
			ToneFrequency: p.Config().ToneFrequency,
			CycleCount:    codec.CycleCount(),
			Flags:         uint8(codec.Params().Flags),
			FlashMillis:   codec.FlashMillis(),
			BurstSamples:  codec.BurstSamples(),
			SyncSamples:   codec.SyncSamples(),
		})
	}
	return s
}

func (s PlanSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "timebase:  %s fps, %d Hz\n", s.FrameRate, s.SampleRate)
	for i, p := range s.Patterns {
		fmt.Fprintf(&b, "pattern %d: q=%d f=%d c=%d t=%d flash=%dms burst=%d sync=%d\n",
			i, p.FlashFrames, p.ToneFrequency, p.CycleCount, p.Flags, p.FlashMillis, p.BurstSamples, p.SyncSamples)
	}
	fmt.Fprintf(&b, "cycle:     %d frames, %s s\n", s.UnitFrames, s.Unit)
	fmt.Fprintf(&b, "repeats:   %d\n", s.Repeats)
	fmt.Fprintf(&b, "duration:  %s s (%.3f s)\n", s.Duration, s.DurationSec)
	fmt.Fprintf(&b, "video:     %d frames\n", s.VideoFrames)
	fmt.Fprintf(&b, "audio:     %d samples", s.AudioSamples)
	return b.String()
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	s := newSettings()
	cmd := &cobra.Command{
		Use:   "plan [flags] PATTERN...",
		Short: "Show the derived cycle counts, repeats and durations",
		Long: `Validate the settings and print what generate would produce
without rendering or writing anything.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			cfg, err := s.resolve(cmd, args)
			if err != nil {
				return classify("load settings", err)
			}
			p, err := pipeline.Prepare(cfg, pipeline.Options{})
			if err != nil {
				return classify("plan", err)
			}
			return out.Success(newPlanSummary(p.Plan(), p.Patterns()))
		},
	}
	s.addMarkerFlags(cmd)
	s.addPlanFlags(cmd)
	return cmd
}
