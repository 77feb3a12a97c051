package marker

import (
	"errors"
	"fmt"

	"github.com/zsiec/syncgen/internal/timebase"
)

// Sentinel errors for marker encoding and decoding. Use errors.Is to
// distinguish failure modes.
var (
	ErrInfeasible     = errors.New("marker: audio marker does not fit in video marker")
	ErrOffsetOverflow = errors.New("marker: start offset exceeds leading silence")
	ErrCRCMismatch    = errors.New("marker: CRC-4 mismatch")
	ErrBadTag         = errors.New("marker: payload tag mismatch")
	ErrShortBurst     = errors.New("marker: burst too short")
	ErrUndecodable    = errors.New("marker: decoders would reject this marker")
)

// InfeasibleError reports a tone configuration whose audio burst cannot fit
// in the video time available after the sync instant. When no cycle count
// works at all, MinFrequency holds the lowest tone frequency that would.
// Otherwise AudioDuration and VideoDuration describe the mismatch.
type InfeasibleError struct {
	FlashFrames   int64
	ToneFrequency int64
	CycleCount    int64
	MinFrequency  int64
	AudioDuration timebase.Rational
	VideoDuration timebase.Rational
}

func (e *InfeasibleError) Error() string {
	if e.MinFrequency > 0 {
		return fmt.Sprintf("marker: audio frequency %d Hz is too slow for %d flash frames, required at least %d Hz",
			e.ToneFrequency, e.FlashFrames, e.MinFrequency)
	}
	return fmt.Sprintf("marker: too short video; video marker duration %.6g second, audio marker duration %.6g second",
		e.VideoDuration.Float64(), e.AudioDuration.Float64())
}

func (e *InfeasibleError) Unwrap() error {
	return ErrInfeasible
}

// OffsetOverflowError indicates the scheduler asked to shorten a burst's
// leading silence by more samples than it has. With validated
// configurations this is a defect.
type OffsetOverflowError struct {
	Offset int64
	Limit  int64
}

func (e *OffsetOverflowError) Error() string {
	return fmt.Sprintf("marker: too large start offset %d, expect <= %d", e.Offset, e.Limit)
}

func (e *OffsetOverflowError) Unwrap() error {
	return ErrOffsetOverflow
}
