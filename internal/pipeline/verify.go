package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zsiec/syncgen/internal/config"
	"github.com/zsiec/syncgen/internal/media"
	"github.com/zsiec/syncgen/internal/pattern"
)

// Failure is one burst that did not decode to its expected index.
type Failure struct {
	Pattern int    `json:"pattern"`
	Repeat  int    `json:"repeat"`
	Sample  int64  `json:"sample"`
	Want    int    `json:"want"`
	Got     int    `json:"got"`
	Error   string `json:"error,omitempty"`
}

// Report is the outcome of Verify.
type Report struct {
	Repeats  int64     `json:"repeats"`
	Cycles   int       `json:"cycles"`
	Passed   int       `json:"passed"`
	Failures []Failure `json:"failures,omitempty"`
}

// OK reports whether every burst decoded to its expected index.
func (r Report) OK() bool {
	return r.Cycles > 0 && len(r.Failures) == 0
}

func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "verified %d cycles (%d repeats): %d passed, %d failed",
		r.Cycles, r.Repeats, r.Passed, len(r.Failures))
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "\n  pattern %d repeat %d at sample %d: want %d", f.Pattern, f.Repeat, f.Sample, f.Want)
		if f.Error != "" {
			fmt.Fprintf(&b, ", %s", f.Error)
		} else {
			fmt.Fprintf(&b, ", got %d", f.Got)
		}
	}
	return b.String()
}

// Verify demodulates every burst of a PCM stream generated with cfg's
// timebase, patterns and marker options. The repeat count is inferred
// from the stream length; cfg's durations are ignored.
func Verify(ctx context.Context, cfg config.Config, pcm []byte) (Report, error) {
	tb, err := cfg.Timebase()
	if err != nil {
		return Report{}, err
	}
	pcs, err := cfg.PatternConfigs()
	if err != nil {
		return Report{}, err
	}
	base := cfg.MarkerParams(tb)
	var patterns []*pattern.Pattern
	var unitFrames int64
	for _, pc := range pcs {
		p, err := pattern.New(pc, base, nil)
		if err != nil {
			return Report{}, err
		}
		patterns = append(patterns, p)
		unitFrames += p.FrameCount()
	}

	samples := media.SampleCount(pcm)
	rep := Report{Repeats: tb.ToFrames(samples) / unitFrames}
	if rep.Repeats == 0 {
		return rep, errors.New("pipeline: audio shorter than one cycle")
	}

	var video int64
	for pi, p := range patterns {
		codec := p.Codec()
		for n := 0; n < int(rep.Repeats); n++ {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
			start := tb.ToSamples(video) + codec.SyncSamples() - codec.BeforeSamples()
			end := start + codec.BurstSamples()
			video += p.FrameCount()
			rep.Cycles++

			want := n & 0xFF
			if end > samples {
				rep.Failures = append(rep.Failures, Failure{Pattern: pi, Repeat: n, Sample: start, Want: want, Got: -1, Error: "truncated"})
				continue
			}
			got, err := codec.Demodulate(pcm[start*media.BytesPerSample : end*media.BytesPerSample])
			switch {
			case err != nil:
				rep.Failures = append(rep.Failures, Failure{Pattern: pi, Repeat: n, Sample: start, Want: want, Got: -1, Error: err.Error()})
			case got != want:
				rep.Failures = append(rep.Failures, Failure{Pattern: pi, Repeat: n, Sample: start, Want: want, Got: got})
			default:
				rep.Passed++
			}
		}
	}
	return rep, nil
}
