package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zsiec/syncgen/internal/manifest"
	"github.com/zsiec/syncgen/internal/pipeline"
	"github.com/zsiec/syncgen/internal/push"
)

// GenerateSummary is the output of a finished generate run.
type GenerateSummary struct {
	RunID        string      `json:"runId"`
	Output       string      `json:"output"`
	Manifest     string      `json:"manifest"`
	Duration     string      `json:"duration"`
	Repeats      int64       `json:"repeats"`
	Frames       int         `json:"frames"`
	Images       int         `json:"images"`
	AudioSamples int64       `json:"audioSamples"`
	Push         *push.Stats `json:"push,omitempty"`
}

func (s GenerateSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "wrote %s: %d frames from %d images, %d samples, %s s in %d repeats\n",
		s.Output, s.Frames, s.Images, s.AudioSamples, s.Duration, s.Repeats)
	fmt.Fprintf(&b, "manifest %s (run %s)", s.Manifest, s.RunID)
	if s.Push != nil {
		fmt.Fprintf(&b, "\npushed %d bytes in %d chunks, %d loops", s.Push.Bytes, s.Push.Chunks, s.Push.Loops)
	}
	return b.String()
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	s := newSettings()
	cmd := &cobra.Command{
		Use:   "generate [flags] PATTERN...",
		Short: "Generate a sync calibration clip",
		Long: `Render the flash and alignment frames, write the matching tone
bursts, and mux both into the output with ffmpeg. A JSON manifest is
written next to the output. With --srt-addr and a .ts output the clip
is then pushed to an SRT listener in real time.

Patterns may also come from the --config file.`,
		Example: `  syncgen generate q=2,f=442
  syncgen generate --vr 30000/1001 --ar 44100 -o sync.ts q=2,f=442 q=1,f=2000
  syncgen generate --dryrun --duration 60 q=3,f=1000,c=4`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, rootOpts, s, args)
		},
	}
	s.addMarkerFlags(cmd)
	s.addPlanFlags(cmd)
	s.addOutputFlags(cmd)
	return cmd
}

func runGenerate(cmd *cobra.Command, opts *RootOptions, s *settings, args []string) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	cfg, err := s.resolve(cmd, args)
	if err != nil {
		return classify("load settings", err)
	}
	p, err := pipeline.Prepare(cfg, pipeline.Options{})
	if err != nil {
		return classify("generate", err)
	}
	if cfg.DryRun {
		return out.Success(newPlanSummary(p.Plan(), p.Patterns()))
	}

	res, err := p.Run(cmd.Context())
	if err != nil {
		return classify("generate", err)
	}
	return out.Success(GenerateSummary{
		RunID:        res.Manifest.RunID,
		Output:       cfg.Output,
		Manifest:     manifest.Path(cfg.Output),
		Duration:     res.Manifest.Duration,
		Repeats:      res.Manifest.Repeats,
		Frames:       res.Frames,
		Images:       res.Images,
		AudioSamples: res.AudioSamples,
		Push:         res.Push,
	})
}
