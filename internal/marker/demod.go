package marker

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Demodulate recovers the sequence index from a tone burst produced by
// Burst. burst must start at the first tone sample. It returns
// ErrCRCMismatch when the recovered word fails its check, and ErrBadTag
// when the tag nibble is wrong.
func (c *Codec) Demodulate(burst []byte) (int, error) {
	if int64(len(burst)) < 2*c.burstSamples {
		return 0, fmt.Errorf("%w: %d bytes, want %d", ErrShortBurst, len(burst), 2*c.burstSamples)
	}
	var syms [SymbolCount]uint8
	var inPhase, quad [SymbolCount]float64
	for i := int64(0); i < c.burstSamples; i++ {
		x := float64(int16(binary.LittleEndian.Uint16(burst[2*i:])))
		k := c.symbolAt(i)
		ph := c.phase(i)
		inPhase[k] += x * math.Sin(ph)
		quad[k] += x * math.Cos(ph)
	}
	for k := range syms {
		syms[k] = decide(inPhase[k], quad[k])
	}

	word20 := Join(syms)
	if CheckCRC4(word20) != 0 {
		return 0, fmt.Errorf("%w: word 0x%05X", ErrCRCMismatch, word20)
	}
	word := uint16(word20 >> 4)
	if word&0xFF00 != WordTag {
		return 0, fmt.Errorf("%w: word 0x%04X", ErrBadTag, word)
	}
	return int(word & 0xFF), nil
}

// decide picks the quadrant whose carrier best matches the correlations.
func decide(i, q float64) uint8 {
	if math.Abs(i) >= math.Abs(q) {
		if i >= 0 {
			return 0
		}
		return 3
	}
	if q >= 0 {
		return 1
	}
	return 2
}
