package marker

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/zsiec/syncgen/internal/timebase"
)

// Word layout: a fixed tag nibble, a reserved zero nibble, the 8-bit
// sequence index, then four CRC bits.
const (
	WordTag     = 0xF000
	WordBits    = 20
	SymbolBits  = 2
	SymbolCount = WordBits / SymbolBits

	// IndexModulo is the wrap point of the sequence index.
	IndexModulo = 256

	// centeredSymbolsBefore is how many symbols precede the sync instant
	// when the burst is centered on it.
	centeredSymbolsBefore = SymbolCount / 2
)

// TypeFlags is the format byte carried in the visual payload so a decoder
// knows how the audio burst was laid out.
type TypeFlags uint8

const (
	// TypeAudioStartAtSync places the first tone sample at the sync
	// instant. Without it the sync instant falls mid-burst.
	TypeAudioStartAtSync TypeFlags = 1 << iota
	// TypeRectangle clips the carrier to a square wave.
	TypeRectangle
	// TypeQuadrant marks the two-bit quadrant symbol layout.
	TypeQuadrant
)

// Defaults applied by DefaultParams.
const (
	DefaultAmplitude         = 0.8
	DefaultSmoothingFraction = 0.25
	DefaultFlags             = TypeAudioStartAtSync
)

// Params configures one marker codec. Every field is used as given; start
// from DefaultParams for the usual amplitude, smoothing and layout.
type Params struct {
	Timebase      timebase.Timebase
	FlashFrames   int64
	ToneFrequency int64
	// CycleCount is the number of tone periods per symbol; 0 derives the
	// largest count that fits.
	CycleCount int64
	// Amplitude in [0,1] of full scale. 0 writes a silent burst.
	Amplitude float64
	Flags     TypeFlags
	// SmoothingFraction in [0,0.5] of a symbol is ramped at differing
	// symbol edges. 0 disables the ramp.
	SmoothingFraction float64
}

// DefaultParams returns the parameters the generator uses unless told
// otherwise. Pattern fields are left for the caller.
func DefaultParams(tb timebase.Timebase) Params {
	return Params{
		Timebase:          tb,
		Amplitude:         DefaultAmplitude,
		Flags:             DefaultFlags,
		SmoothingFraction: DefaultSmoothingFraction,
	}
}

// Codec encodes a sequence index into a QR payload string and a PCM tone
// burst. A Codec is safe for concurrent use.
type Codec struct {
	p Params

	symbolsAfter  int64
	syncSamples   int64
	beforeSamples int64
	burstSamples  int64

	mu     sync.Mutex
	bursts [IndexModulo][]byte
}

// NewCodec validates p, derives the cycle count when unset, and returns a
// ready codec. Configurations whose burst cannot fit after the sync instant
// fail with an *InfeasibleError.
func NewCodec(p Params) (*Codec, error) {
	if p.FlashFrames <= 0 {
		return nil, fmt.Errorf("marker: flash frames %d must be positive", p.FlashFrames)
	}
	if p.ToneFrequency <= 0 {
		return nil, fmt.Errorf("marker: tone frequency %d must be positive", p.ToneFrequency)
	}
	if p.CycleCount < 0 {
		return nil, fmt.Errorf("marker: cycle count %d must not be negative", p.CycleCount)
	}
	if p.Timebase.SampleRate <= 0 || p.Timebase.FrameRate.Num <= 0 || p.Timebase.FrameRate.Den <= 0 {
		return nil, fmt.Errorf("marker: invalid timebase %s", p.Timebase)
	}
	if p.Amplitude < 0 || p.Amplitude > 1 {
		return nil, fmt.Errorf("marker: amplitude %g outside [0,1]", p.Amplitude)
	}
	if p.SmoothingFraction < 0 || p.SmoothingFraction > 0.5 {
		return nil, fmt.Errorf("marker: smoothing fraction %g outside [0,0.5]", p.SmoothingFraction)
	}
	if 2*p.ToneFrequency >= p.Timebase.SampleRate {
		return nil, fmt.Errorf("%w: tone frequency %d Hz is not below the Nyquist limit of %d Hz audio",
			ErrUndecodable, p.ToneFrequency, p.Timebase.SampleRate)
	}
	p.Flags |= TypeQuadrant

	c := &Codec{p: p, symbolsAfter: SymbolCount}
	if p.Flags&TypeAudioStartAtSync == 0 {
		c.symbolsAfter = SymbolCount - centeredSymbolsBefore
	}
	if err := c.fit(); err != nil {
		return nil, err
	}

	tb := p.Timebase
	sr, f, cc := tb.SampleRate, c.p.ToneFrequency, c.p.CycleCount
	c.syncSamples = tb.ToSamples(2 * p.FlashFrames)
	c.burstSamples = SymbolCount * cc * sr / f
	if p.Flags&TypeAudioStartAtSync == 0 {
		n := centeredSymbolsBefore * cc * sr
		c.beforeSamples = (n + f - 1) / f
	}

	// A decoder rejects the whole clip if the visual payload is out of
	// its accepted ranges.
	if err := c.payload(0).Check(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return c, nil
}

// fit derives or checks the cycle count against the inequality
// q*f*den >= c*symbolsAfter*num, i.e. the symbols after the sync instant
// last no longer than the flash segment.
func (c *Codec) fit() error {
	fr := c.p.Timebase.FrameRate
	q, f := c.p.FlashFrames, c.p.ToneFrequency
	budget := q * f * fr.Den
	perCycle := c.symbolsAfter * fr.Num

	if c.p.CycleCount == 0 {
		c.p.CycleCount = budget / perCycle
		if c.p.CycleCount <= 0 {
			minF := (perCycle + q*fr.Den - 1) / (q * fr.Den)
			return &InfeasibleError{FlashFrames: q, ToneFrequency: f, MinFrequency: minF}
		}
		return nil
	}
	if budget < c.p.CycleCount*perCycle {
		return &InfeasibleError{
			FlashFrames:   q,
			ToneFrequency: f,
			CycleCount:    c.p.CycleCount,
			AudioDuration: timebase.NewRational(c.symbolsAfter*c.p.CycleCount, f),
			VideoDuration: c.p.Timebase.Duration(q),
		}
	}
	return nil
}

// Params returns the effective parameters, including the derived cycle
// count and the TypeQuadrant flag.
func (c *Codec) Params() Params {
	return c.p
}

// CycleCount returns the number of tone periods per symbol.
func (c *Codec) CycleCount() int64 {
	return c.p.CycleCount
}

// BurstSamples returns the length of the tone burst in samples.
func (c *Codec) BurstSamples() int64 {
	return c.burstSamples
}

// SyncSamples returns the offset of the sync instant from the start of a
// cycle, in samples.
func (c *Codec) SyncSamples() int64 {
	return c.syncSamples
}

// BeforeSamples returns how many burst samples precede the sync instant.
func (c *Codec) BeforeSamples() int64 {
	return c.beforeSamples
}

// FlashMillis returns the flash segment duration in whole milliseconds.
func (c *Codec) FlashMillis() int64 {
	return c.p.Timebase.Milliseconds(c.p.FlashFrames)
}

// Word returns the 16-bit payload word for a sequence index.
func Word(index int) uint16 {
	return WordTag | uint16(index&0xFF)
}

// Payload returns the QR text for a sequence index.
func (c *Codec) Payload(index int) string {
	return c.payload(index).String()
}

func (c *Codec) payload(index int) Payload {
	return Payload{
		FlashMillis:   c.FlashMillis(),
		Index:         index & 0xFF,
		ToneFrequency: c.p.ToneFrequency,
		CycleCount:    c.p.CycleCount,
		Flags:         c.p.Flags,
	}
}

// LeadingSilence returns the number of silent samples that precede the
// burst of a cycle once startOffset samples have already been emitted
// past the cycle start.
func (c *Codec) LeadingSilence(startOffset int64) (int64, error) {
	limit := c.syncSamples - c.beforeSamples
	if startOffset > limit {
		return 0, &OffsetOverflowError{Offset: startOffset, Limit: limit}
	}
	return limit - startOffset, nil
}

// Audio returns the PCM for one cycle: leading silence followed by the
// tone burst for index. The result is 16-bit signed little-endian mono.
func (c *Codec) Audio(index int, startOffset int64) ([]byte, error) {
	silence, err := c.LeadingSilence(startOffset)
	if err != nil {
		return nil, err
	}
	burst := c.Burst(index)
	buf := make([]byte, 2*silence+int64(len(burst)))
	copy(buf[2*silence:], burst)
	return buf, nil
}

// Burst returns the tone burst for index. Bursts are memoized per wrapped
// index; callers must not modify the returned slice.
func (c *Codec) Burst(index int) []byte {
	i := index & 0xFF
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bursts[i] == nil {
		c.bursts[i] = c.render(Symbols(Authenticate(Word(i))))
	}
	return c.bursts[i]
}

func (c *Codec) render(syms [SymbolCount]uint8) []byte {
	buf := make([]byte, 2*c.burstSamples)
	scale := 32767 * c.p.Amplitude
	for i := int64(0); i < c.burstSamples; i++ {
		k := c.symbolAt(i)
		s := carrier(syms[k], c.phase(i))
		if c.p.Flags&TypeRectangle != 0 {
			s = math.Copysign(1, s)
		} else {
			s *= c.gain(i, k, syms)
		}
		v := int16(math.Round(s * scale))
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(v))
	}
	return buf
}

// symbolAt returns the symbol index covering burst sample i.
func (c *Codec) symbolAt(i int64) int64 {
	k := i * c.p.ToneFrequency / (c.p.Timebase.SampleRate * c.p.CycleCount)
	if k >= SymbolCount {
		k = SymbolCount - 1
	}
	return k
}

// phase returns the carrier phase of burst sample i in radians. The modulo
// keeps the argument small so long bursts do not lose precision.
func (c *Codec) phase(i int64) float64 {
	sr := c.p.Timebase.SampleRate
	return 2 * math.Pi * float64(i*c.p.ToneFrequency%sr) / float64(sr)
}

// carrier maps a symbol to one of the four quadrant phases.
func carrier(sym uint8, phase float64) float64 {
	switch sym & 3 {
	case 0:
		return math.Sin(phase)
	case 1:
		return math.Cos(phase)
	case 2:
		return -math.Cos(phase)
	default:
		return -math.Sin(phase)
	}
}

// gain applies a raised-cosine ramp near symbol edges whose neighbour
// differs. The burst's outer edges border silence and always ramp.
func (c *Codec) gain(i, k int64, syms [SymbolCount]uint8) float64 {
	width := c.p.SmoothingFraction * float64(c.p.CycleCount)
	if width <= 0 {
		return 1
	}
	sr, f := c.p.Timebase.SampleRate, c.p.ToneFrequency
	pos := float64(i*f-k*c.p.CycleCount*sr) / float64(sr)
	rem := float64(c.p.CycleCount) - pos

	g := 1.0
	if (k == 0 || syms[k-1] != syms[k]) && pos < width {
		g *= raisedCosine(pos / width)
	}
	if (k == SymbolCount-1 || syms[k+1] != syms[k]) && rem < width {
		g *= raisedCosine(rem / width)
	}
	return g
}

func raisedCosine(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	return 0.5 - 0.5*math.Cos(math.Pi*x)
}
