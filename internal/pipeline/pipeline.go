// Package pipeline orchestrates one generator run: validate and plan,
// render frames, multiplex video and audio, mux the container, then
// optionally push the result over SRT.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/syncgen/internal/config"
	"github.com/zsiec/syncgen/internal/frame"
	"github.com/zsiec/syncgen/internal/manifest"
	"github.com/zsiec/syncgen/internal/mux"
	"github.com/zsiec/syncgen/internal/pattern"
	"github.com/zsiec/syncgen/internal/push"
	"github.com/zsiec/syncgen/internal/schedule"
	"github.com/zsiec/syncgen/internal/timebase"
)

// Muxer is the subset of mux.FFmpeg the pipeline uses. Accepting an
// interface keeps the pipeline testable without ffmpeg installed.
type Muxer interface {
	Mux(ctx context.Context, in mux.Input) error
}

// Pusher is the subset of push.Pusher the pipeline uses.
type Pusher interface {
	Push(ctx context.Context, req push.Request) (push.Stats, error)
}

// Options supplies collaborators. Nil fields select the production
// implementations.
type Options struct {
	Muxer    Muxer
	Pusher   Pusher
	Renderer frame.Renderer
	Logger   *slog.Logger
}

// Result summarizes a finished run.
type Result struct {
	Frames       int
	Images       int
	AudioSamples int64
	Manifest     manifest.Manifest
	Push         *push.Stats
}

// Pipeline is a validated, planned run.
type Pipeline struct {
	log      *slog.Logger
	cfg      config.Config
	tb       timebase.Timebase
	patterns []*pattern.Pattern
	plan     *schedule.Plan
	workdir  string

	muxer    Muxer
	pusher   Pusher
	renderer frame.Renderer
}

// Prepare validates cfg and derives the plan. Every configuration and
// infeasibility error surfaces here; nothing is written to disk.
func Prepare(cfg config.Config, opts Options) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	tb, err := cfg.Timebase()
	if err != nil {
		return nil, err
	}
	pcs, err := cfg.PatternConfigs()
	if err != nil {
		return nil, err
	}
	workdir, err := filepath.Abs(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("pipeline: workdir: %w", err)
	}

	p := &Pipeline{
		log:      log,
		cfg:      cfg,
		tb:       tb,
		workdir:  workdir,
		muxer:    opts.Muxer,
		pusher:   opts.Pusher,
		renderer: opts.Renderer,
	}
	if p.muxer == nil {
		p.muxer = &mux.FFmpeg{Logger: log}
	}
	if p.pusher == nil {
		p.pusher = &push.Pusher{Logger: log}
	}

	base := cfg.MarkerParams(tb)
	sources := make([]schedule.Source, 0, len(pcs))
	for _, pc := range pcs {
		pat, err := pattern.New(pc, base, nil)
		if err != nil {
			return nil, err
		}
		log.Debug("pattern ready", "spec", pat.Config().String(),
			"burst_samples", pat.Codec().BurstSamples(), "sync_samples", pat.Codec().SyncSamples())
		p.patterns = append(p.patterns, pat)
		sources = append(sources, pat)
	}

	policy := schedule.Policy{CoverageUnits: cfg.CoverageUnits}
	p.plan, err = schedule.NewPlan(tb, sources,
		timebase.NewRational(cfg.Duration, 1), timebase.NewRational(cfg.MaxDuration, 1), policy, log)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Plan returns the derived plan.
func (p *Pipeline) Plan() *schedule.Plan {
	return p.plan
}

// Patterns returns the validated patterns with derived cycle counts.
func (p *Pipeline) Patterns() []*pattern.Pattern {
	return p.patterns
}

// Manifest describes the clip this pipeline would produce.
func (p *Pipeline) Manifest() manifest.Manifest {
	return manifest.Build(p.plan, p.patterns, p.cfg.Output, p.cfg.Width, p.cfg.Height)
}

// Run generates the clip. Scratch images, the linked frame sequence and
// the PCM file are removed on every exit path.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	store, err := frame.NewStore(p.workdir, frame.Options{
		Width:    p.cfg.Width,
		Height:   p.cfg.Height,
		Renderer: p.renderer,
		Logger:   p.log,
	})
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			p.log.Warn("scratch cleanup failed", "error", err)
		}
	}()

	bound := make([]*pattern.Pattern, len(p.patterns))
	sources := make([]schedule.Source, len(p.patterns))
	renderables := make([]schedule.Renderable, len(p.patterns))
	for i, pat := range p.patterns {
		bound[i] = pat.Bind(store)
		sources[i], renderables[i] = bound[i], bound[i]
	}
	plan, err := p.plan.WithSources(sources)
	if err != nil {
		return Result{}, err
	}

	if _, err := store.AlignmentA(); err != nil {
		return Result{}, err
	}
	if _, err := store.AlignmentB(); err != nil {
		return Result{}, err
	}
	if err := schedule.Prerender(ctx, renderables, plan.Repeats); err != nil {
		return Result{}, err
	}
	p.log.Info("frames rendered", "images", store.Rendered(), "elapsed", time.Since(start).Round(time.Millisecond))

	framesDir := filepath.Join(p.workdir, "i0")
	pcmPath := filepath.Join(p.workdir, "i1.pcm")
	defer os.RemoveAll(framesDir)
	defer os.Remove(pcmPath)

	// Video and audio are independent streams; each is multiplexed
	// sequentially on its own goroutine.
	var (
		res          Result
		framePattern string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		frames, err := plan.Video(gctx)
		if err != nil {
			return err
		}
		res.Frames = len(frames)
		framePattern, err = frame.Link(frames, framesDir)
		return err
	})
	g.Go(func() error {
		st, err := p.writeAudio(gctx, plan, pcmPath)
		res.AudioSamples = st.AudioSamples
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	res.Images = store.Rendered()
	p.log.Info("streams written", "frames", res.Frames, "samples", res.AudioSamples)

	err = p.muxer.Mux(ctx, mux.Input{
		FramePattern: framePattern,
		FrameRate:    p.tb.FrameRate,
		PCMPath:      pcmPath,
		SampleRate:   p.tb.SampleRate,
		Output:       p.cfg.Output,
	})
	if err != nil {
		return Result{}, err
	}

	res.Manifest = manifest.Build(plan, bound, p.cfg.Output, p.cfg.Width, p.cfg.Height)
	if err := manifest.Write(manifest.Path(p.cfg.Output), res.Manifest); err != nil {
		return Result{}, err
	}

	if p.cfg.SRT.Address != "" {
		st, err := p.pushClip(ctx, plan)
		if err != nil {
			return res, err
		}
		res.Push = &st
	}
	p.log.Info("clip generated", "output", p.cfg.Output, "elapsed", time.Since(start).Round(time.Millisecond))
	return res, nil
}

func (p *Pipeline) writeAudio(ctx context.Context, plan *schedule.Plan, path string) (schedule.State, error) {
	f, err := os.Create(path)
	if err != nil {
		return schedule.State{}, fmt.Errorf("pipeline: %w", err)
	}
	st, err := plan.Audio(ctx, f, func(st schedule.State) {
		if st.Repeat == 0 {
			p.log.Debug("pattern audio start", "pattern", st.Pattern,
				"video_frames", st.VideoFrames, "audio_samples", st.AudioSamples)
		}
	})
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("pipeline: %w", cerr)
	}
	return st, err
}

func (p *Pipeline) pushClip(ctx context.Context, plan *schedule.Plan) (push.Stats, error) {
	data, err := os.ReadFile(p.cfg.Output)
	if err != nil {
		return push.Stats{}, fmt.Errorf("pipeline: read clip: %w", err)
	}
	streamID := p.cfg.SRT.StreamID
	if streamID == "" {
		base := filepath.Base(p.cfg.Output)
		streamID = "live/" + base[:len(base)-len(filepath.Ext(base))]
	}
	d := plan.Duration
	return p.pusher.Push(ctx, push.Request{
		Address:  p.cfg.SRT.Address,
		StreamID: streamID,
		Data:     data,
		Duration: time.Duration(d.Num) * time.Second / time.Duration(d.Den),
		Loops:    p.cfg.SRT.Loops,
	})
}
