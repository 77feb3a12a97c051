// Package schedule decides how many times the sync cycle repeats and
// multiplexes every pattern's frames and samples into one video frame
// sequence and one PCM stream that stay aligned to within a sample.
package schedule

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/zsiec/syncgen/internal/media"
	"github.com/zsiec/syncgen/internal/timebase"
)

// ErrDurationTooShort is returned when not even one super-cycle fits in
// the maximum duration.
var ErrDurationTooShort = errors.New("schedule: maximum duration shorter than one cycle")

// DefaultCoverageUnits is the number of super-cycles the automatic
// duration tries to reach, enough for every 8-bit sequence index to
// appear once.
const DefaultCoverageUnits = 256

// Source is one pattern as seen by the scheduler.
type Source interface {
	FrameCount() int64
	VideoFrames(n int) ([]media.Frame, error)
	AudioSamples(n int, startOffset int64) ([]byte, error)
}

// Policy tunes the automatic duration heuristic.
type Policy struct {
	// CoverageUnits is the super-cycle count the automatic duration grows
	// toward; 0 selects DefaultCoverageUnits.
	CoverageUnits int64
}

// Plan is the outcome of repeat-count derivation for a set of patterns.
type Plan struct {
	Timebase timebase.Timebase
	Sources  []Source

	// UnitFrames is the video frame count of one super-cycle: every
	// pattern's cycle once.
	UnitFrames int64
	// Unit is the super-cycle duration in seconds.
	Unit timebase.Rational
	// Repeats is how many times each pattern's cycle is emitted.
	Repeats int64
	// Duration is Repeats*Unit, the exact clip length in seconds.
	Duration timebase.Rational

	log *slog.Logger
}

// NewPlan derives the repeat count. A zero duration selects one
// automatically; otherwise the duration is rounded up to whole
// super-cycles. Either way the result is clamped to maxDuration.
func NewPlan(tb timebase.Timebase, sources []Source, duration, maxDuration timebase.Rational, policy Policy, log *slog.Logger) (*Plan, error) {
	if len(sources) == 0 {
		return nil, errors.New("schedule: no patterns")
	}
	duration, maxDuration = duration.Reduce(), maxDuration.Reduce()
	if duration.Num < 0 || maxDuration.Num < 0 {
		return nil, fmt.Errorf("schedule: negative duration %s or max %s", duration, maxDuration)
	}
	if policy.CoverageUnits <= 0 {
		policy.CoverageUnits = DefaultCoverageUnits
	}
	if log == nil {
		log = slog.Default()
	}
	p := &Plan{
		Timebase: tb,
		Sources:  sources,
		log:      log.With("component", "scheduler"),
	}
	for _, s := range sources {
		p.UnitFrames += s.FrameCount()
	}
	p.Unit = tb.Duration(p.UnitFrames)

	if duration.IsZero() {
		duration = p.autoDuration(maxDuration, policy)
	}

	// ceil(duration / unit)
	p.Repeats = duration.Mul(timebase.NewRational(p.Unit.Den, p.Unit.Num)).Ceil()
	if p.Unit.MulInt(p.Repeats).Cmp(maxDuration) > 0 {
		p.Repeats = maxDuration.Mul(timebase.NewRational(p.Unit.Den, p.Unit.Num)).Floor()
	}
	if p.Repeats <= 0 {
		return nil, fmt.Errorf("%w: cycle %s s, max %s s", ErrDurationTooShort, p.Unit, maxDuration)
	}
	p.Duration = p.Unit.MulInt(p.Repeats)
	p.log.Info("generating clip", "duration", p.Duration.String(), "seconds", p.Duration.Float64(), "loops", p.Repeats)
	return p, nil
}

// autoDuration picks the shortest duration after which frame and sample
// boundaries coincide. When that exceeds the maximum it falls back to
// CoverageUnits super-cycles, then doubles toward CoverageUnits while
// staying under the maximum.
func (p *Plan) autoDuration(maxDuration timebase.Rational, policy Policy) timebase.Rational {
	sr := p.Timebase.SampleRate
	d := timebase.NewRational(timebase.LCM(p.Unit.Num, sr*p.Unit.Den), 1)
	coverage := p.Unit.MulInt(policy.CoverageUnits)
	if d.Cmp(maxDuration) > 0 {
		d = coverage
	}
	for d.Cmp(coverage) < 0 && d.MulInt(2).Cmp(maxDuration) < 0 {
		p.log.Info("multiplying duration", "duration", d.String())
		d = d.MulInt(2)
	}
	p.log.Info("automatic duration", "duration", d.String(), "seconds", d.Float64())
	return d
}

// FrameCount returns the total number of video frames the plan emits.
func (p *Plan) FrameCount() int64 {
	return p.UnitFrames * p.Repeats
}

// SampleCount returns the total number of audio samples the plan emits.
func (p *Plan) SampleCount() int64 {
	return p.Timebase.SamplesCeil(p.FrameCount())
}

// WithSources returns a copy of the plan emitting from sources, which must
// have the same per-cycle frame counts as the plan's own.
func (p *Plan) WithSources(sources []Source) (*Plan, error) {
	if len(sources) != len(p.Sources) {
		return nil, fmt.Errorf("schedule: %d sources, plan has %d", len(sources), len(p.Sources))
	}
	for i, s := range sources {
		if s.FrameCount() != p.Sources[i].FrameCount() {
			return nil, fmt.Errorf("schedule: source %d has %d frames per cycle, want %d",
				i, s.FrameCount(), p.Sources[i].FrameCount())
		}
	}
	cp := *p
	cp.Sources = sources
	return &cp, nil
}
