package pattern

import (
	"fmt"

	"github.com/zsiec/syncgen/internal/marker"
	"github.com/zsiec/syncgen/internal/media"
)

// FrameSource supplies the images of a sync cycle. *frame.Store is the
// production implementation.
type FrameSource interface {
	Flash(index int, payload string) (media.Frame, error)
	AlignmentA() (media.Frame, error)
	AlignmentB() (media.Frame, error)
}

// Pattern produces the frames and samples of one sync cycle for any
// repeat index. It holds no per-cycle state: the index is passed in by
// the caller and wrapped to 8 bits here.
type Pattern struct {
	cfg    Config
	codec  *marker.Codec
	frames FrameSource
}

// New validates cfg against the timebase and styling in base and returns
// the bound Pattern. Infeasible tone settings fail here with a
// *marker.InfeasibleError, before anything is rendered.
func New(cfg Config, base marker.Params, frames FrameSource) (*Pattern, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base.FlashFrames = cfg.FlashFrames
	base.ToneFrequency = cfg.ToneFrequency
	base.CycleCount = cfg.CycleCount
	codec, err := marker.NewCodec(base)
	if err != nil {
		return nil, fmt.Errorf("pattern %s: %w", cfg, err)
	}
	cfg.CycleCount = codec.CycleCount()
	return &Pattern{cfg: cfg, codec: codec, frames: frames}, nil
}

// Config returns the effective configuration with the derived cycle count.
func (p *Pattern) Config() Config {
	return p.cfg
}

// Codec returns the pattern's marker codec.
func (p *Pattern) Codec() *marker.Codec {
	return p.codec
}

// FrameCount returns the number of video frames in one cycle, 3q.
func (p *Pattern) FrameCount() int64 {
	return 3 * p.cfg.FlashFrames
}

// Flash returns the flash frame for repeat n.
func (p *Pattern) Flash(n int) (media.Frame, error) {
	i := n % marker.IndexModulo
	return p.frames.Flash(i, p.codec.Payload(i))
}

// VideoFrames returns the 3q frames of repeat n: the flash image, then
// alignment image A, then alignment image B, q frames each.
func (p *Pattern) VideoFrames(n int) ([]media.Frame, error) {
	flash, err := p.Flash(n)
	if err != nil {
		return nil, err
	}
	a, err := p.frames.AlignmentA()
	if err != nil {
		return nil, err
	}
	b, err := p.frames.AlignmentB()
	if err != nil {
		return nil, err
	}
	q := int(p.cfg.FlashFrames)
	out := make([]media.Frame, 0, 3*q)
	for _, fr := range [...]media.Frame{flash, a, b} {
		for range q {
			out = append(out, fr)
		}
	}
	return out, nil
}

// AudioSamples returns the PCM of repeat n with the leading silence
// shortened by startOffset samples.
func (p *Pattern) AudioSamples(n int, startOffset int64) ([]byte, error) {
	return p.codec.Audio(n, startOffset)
}

// Bind returns a copy of p that renders frames with frames. The codec and
// its memoized bursts are shared.
func (p *Pattern) Bind(frames FrameSource) *Pattern {
	return &Pattern{cfg: p.cfg, codec: p.codec, frames: frames}
}
