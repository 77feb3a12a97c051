package schedule

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/zsiec/syncgen/internal/media"
)

// State is the running position of the multiplexer after one pattern
// repeat has been emitted.
type State struct {
	Pattern      int
	Repeat       int
	VideoFrames  int64
	AudioSamples int64
	// StartOffset is the leading-silence reduction passed to the pattern
	// for this repeat.
	StartOffset int64
	// Padding is the number of silent samples appended after the burst to
	// catch audio up with video.
	Padding int64
}

// Observer receives the multiplexer state after every pattern repeat.
type Observer func(State)

// Video returns the full frame sequence. Patterns are emitted
// pattern-major: every repeat of the first pattern, then every repeat of
// the next.
func (p *Plan) Video(ctx context.Context) ([]media.Frame, error) {
	out := make([]media.Frame, 0, p.FrameCount())
	for pi, src := range p.Sources {
		for n := 0; n < int(p.Repeats); n++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			frames, err := src.VideoFrames(n)
			if err != nil {
				return nil, fmt.Errorf("schedule: pattern %d repeat %d: %w", pi, n, err)
			}
			out = append(out, frames...)
		}
	}
	return out, nil
}

// Audio writes the PCM stream to w in the same order as Video. Before each
// repeat the audio position is compared with the exact sample position of
// the video so far, and the burst's leading silence is shortened by the
// excess. After each repeat silence is appended until audio has caught up
// with video, so the two never drift apart by a sample or more. obs may be
// nil. Audio returns the final state.
func (p *Plan) Audio(ctx context.Context, w io.Writer, obs Observer) (State, error) {
	tb := p.Timebase
	bw := bufio.NewWriterSize(w, 1<<16)
	var st State
	for pi, src := range p.Sources {
		for n := 0; n < int(p.Repeats); n++ {
			if err := ctx.Err(); err != nil {
				return st, err
			}
			st.Pattern, st.Repeat = pi, n
			st.StartOffset = st.AudioSamples - tb.ToSamples(st.VideoFrames)
			buf, err := src.AudioSamples(n, st.StartOffset)
			if err != nil {
				return st, fmt.Errorf("schedule: pattern %d repeat %d: %w", pi, n, err)
			}
			if _, err := bw.Write(buf); err != nil {
				return st, fmt.Errorf("schedule: write audio: %w", err)
			}
			st.AudioSamples += media.SampleCount(buf)
			st.VideoFrames += src.FrameCount()

			st.Padding = 0
			for tb.AudioBehind(st.AudioSamples, st.VideoFrames) {
				st.Padding++
				st.AudioSamples++
			}
			if st.Padding > 0 {
				if _, err := bw.Write(media.Silence(st.Padding)); err != nil {
					return st, fmt.Errorf("schedule: write audio: %w", err)
				}
			}
			if obs != nil {
				obs(st)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return st, fmt.Errorf("schedule: write audio: %w", err)
	}
	return st, nil
}
