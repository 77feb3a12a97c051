// Package media defines the frame and sample types that flow from the
// pattern generators through the scheduler to the output sinks.
package media

import "fmt"

// PCM layout of every audio buffer produced by the generator: mono,
// 16-bit signed little-endian.
const (
	BytesPerSample = 2
	Channels       = 1
	SampleFormat   = "s16le"
)

// FrameKind identifies which image of a sync cycle a Frame shows.
type FrameKind uint8

const (
	FrameFlash FrameKind = iota
	FrameAlignmentA
	FrameAlignmentB
)

func (k FrameKind) String() string {
	switch k {
	case FrameFlash:
		return "flash"
	case FrameAlignmentA:
		return "alignment-a"
	case FrameAlignmentB:
		return "alignment-b"
	default:
		return fmt.Sprintf("FrameKind(%d)", uint8(k))
	}
}

// Frame references one saved video image. The same Frame is returned for
// every repetition of an identical image, so comparing Path is enough to
// detect reuse.
type Frame struct {
	Path string
	Kind FrameKind
	// Index is the wrapped sequence index for flash frames.
	Index int
}

// Silence returns n silent samples.
func Silence(n int64) []byte {
	if n <= 0 {
		return nil
	}
	return make([]byte, n*BytesPerSample)
}

// SampleCount returns the number of whole samples in buf.
func SampleCount(buf []byte) int64 {
	return int64(len(buf) / BytesPerSample)
}
