package timebase

import "fmt"

// Timebase pairs a video frame rate with an audio sample rate.
type Timebase struct {
	FrameRate  Rational
	SampleRate int64
}

// New returns a Timebase with the frame rate reduced to lowest terms.
func New(frameRate Rational, sampleRate int64) (Timebase, error) {
	if frameRate.Num <= 0 || frameRate.Den <= 0 {
		return Timebase{}, fmt.Errorf("%w: frame rate %s", ErrMalformedRational, frameRate)
	}
	if sampleRate <= 0 {
		return Timebase{}, fmt.Errorf("timebase: sample rate %d must be positive", sampleRate)
	}
	return Timebase{FrameRate: frameRate.Reduce(), SampleRate: sampleRate}, nil
}

// ToSamples returns floor(frames * sampleRate * den / num): the number of
// whole audio samples that fit before the given frame boundary.
func (tb Timebase) ToSamples(frames int64) int64 {
	return frames * tb.SampleRate * tb.FrameRate.Den / tb.FrameRate.Num
}

// SamplesCeil returns ceil(frames * sampleRate * den / num).
func (tb Timebase) SamplesCeil(frames int64) int64 {
	n := frames * tb.SampleRate * tb.FrameRate.Den
	q := n / tb.FrameRate.Num
	if n%tb.FrameRate.Num != 0 {
		q++
	}
	return q
}

// ToFrames returns floor(samples * num / (den * sampleRate)).
func (tb Timebase) ToFrames(samples int64) int64 {
	return samples * tb.FrameRate.Num / (tb.FrameRate.Den * tb.SampleRate)
}

// Duration returns the exact length of the given number of frames in seconds.
func (tb Timebase) Duration(frames int64) Rational {
	return NewRational(frames*tb.FrameRate.Den, tb.FrameRate.Num)
}

// SampleDuration returns the exact length of the given number of samples in
// seconds.
func (tb Timebase) SampleDuration(samples int64) Rational {
	return NewRational(samples, tb.SampleRate)
}

// AudioBehind reports whether an audio position of samples is strictly
// earlier than the video position of frames. It compares
// samples/sampleRate with frames*den/num by cross-multiplication.
func (tb Timebase) AudioBehind(samples, frames int64) bool {
	return samples*tb.FrameRate.Num < frames*tb.FrameRate.Den*tb.SampleRate
}

// Milliseconds returns floor(frames * 1000 * den / num).
func (tb Timebase) Milliseconds(frames int64) int64 {
	return frames * 1000 * tb.FrameRate.Den / tb.FrameRate.Num
}

func (tb Timebase) String() string {
	return fmt.Sprintf("%sfps@%dHz", tb.FrameRate, tb.SampleRate)
}
