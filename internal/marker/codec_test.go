package marker

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/zsiec/syncgen/internal/timebase"
)

func testParams(t *testing.T, fr timebase.Rational, sr int64, q, f, c int64) Params {
	t.Helper()
	tb, err := timebase.New(fr, sr)
	if err != nil {
		t.Fatal(err)
	}
	p := DefaultParams(tb)
	p.FlashFrames, p.ToneFrequency, p.CycleCount = q, f, c
	return p
}

func mustCodec(t *testing.T, p Params) *Codec {
	t.Helper()
	c, err := NewCodec(p)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func TestNewCodecDerivesCycleCount(t *testing.T) {
	t.Parallel()
	c := mustCodec(t, testParams(t, timebase.FrameRate30, 48000, 2, 442, 0))
	if c.CycleCount() != 2 {
		t.Errorf("CycleCount: got %d, want 2", c.CycleCount())
	}
	if c.BurstSamples() != 2171 {
		t.Errorf("BurstSamples: got %d, want 2171", c.BurstSamples())
	}
	if c.SyncSamples() != 6400 {
		t.Errorf("SyncSamples: got %d, want 6400", c.SyncSamples())
	}
	if c.BeforeSamples() != 0 {
		t.Errorf("BeforeSamples: got %d, want 0", c.BeforeSamples())
	}
}

func TestNewCodecCentered(t *testing.T) {
	t.Parallel()
	p := testParams(t, timebase.FrameRate30, 48000, 2, 442, 0)
	p.Flags = 0
	c := mustCodec(t, p)
	if c.CycleCount() != 5 {
		t.Errorf("CycleCount: got %d, want 5", c.CycleCount())
	}
	if c.BeforeSamples() != 2715 {
		t.Errorf("BeforeSamples: got %d, want 2715", c.BeforeSamples())
	}
	if c.BurstSamples() != 5429 {
		t.Errorf("BurstSamples: got %d, want 5429", c.BurstSamples())
	}
	if c.Params().Flags&TypeAudioStartAtSync != 0 {
		t.Error("centered codec must not carry TypeAudioStartAtSync")
	}
}

func TestNewCodecInfeasibleMinFrequency(t *testing.T) {
	t.Parallel()
	_, err := NewCodec(testParams(t, timebase.FrameRate60, 48000, 1, 1, 0))
	if !errors.Is(err, ErrInfeasible) {
		t.Fatalf("got %v, want ErrInfeasible", err)
	}
	var ie *InfeasibleError
	if !errors.As(err, &ie) {
		t.Fatalf("got %T, want *InfeasibleError", err)
	}
	if ie.MinFrequency != 600 {
		t.Errorf("MinFrequency: got %d, want 600", ie.MinFrequency)
	}
	// The reported minimum must itself be feasible.
	if _, err := NewCodec(testParams(t, timebase.FrameRate60, 48000, 1, ie.MinFrequency, 0)); err != nil {
		t.Errorf("minimum frequency %d rejected: %v", ie.MinFrequency, err)
	}
}

func TestNewCodecInfeasibleExplicitCycles(t *testing.T) {
	t.Parallel()
	_, err := NewCodec(testParams(t, timebase.FrameRate30, 48000, 2, 442, 3))
	var ie *InfeasibleError
	if !errors.As(err, &ie) {
		t.Fatalf("got %v, want *InfeasibleError", err)
	}
	if ie.MinFrequency != 0 {
		t.Errorf("MinFrequency: got %d, want 0", ie.MinFrequency)
	}
	if ie.AudioDuration != timebase.NewRational(30, 442) {
		t.Errorf("AudioDuration: got %v", ie.AudioDuration)
	}
	if ie.VideoDuration != timebase.NewRational(1, 15) {
		t.Errorf("VideoDuration: got %v", ie.VideoDuration)
	}
	if _, err := NewCodec(testParams(t, timebase.FrameRate30, 48000, 2, 442, 2)); err != nil {
		t.Errorf("c=2 should fit: %v", err)
	}
}

func TestNewCodecRejectsBadInput(t *testing.T) {
	t.Parallel()
	bad := []Params{
		testParams(t, timebase.FrameRate30, 48000, 0, 442, 0),
		testParams(t, timebase.FrameRate30, 48000, 2, 0, 0),
		testParams(t, timebase.FrameRate30, 48000, 2, 442, -1),
	}
	p := testParams(t, timebase.FrameRate30, 48000, 2, 442, 0)
	p.Amplitude = 1.5
	bad = append(bad, p)
	p = testParams(t, timebase.FrameRate30, 48000, 2, 442, 0)
	p.SmoothingFraction = 0.75
	bad = append(bad, p)
	p = testParams(t, timebase.FrameRate30, 48000, 2, 442, 0)
	p.SmoothingFraction = -0.1
	bad = append(bad, p)
	p = testParams(t, timebase.FrameRate30, 48000, 2, 442, 0)
	p.Amplitude = -0.5
	bad = append(bad, p)
	for i, p := range bad {
		if _, err := NewCodec(p); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestPayload(t *testing.T) {
	t.Parallel()
	c := mustCodec(t, testParams(t, timebase.FrameRate30, 48000, 2, 442, 0))
	if got, want := c.Payload(0), "q=66,i=0,f=442,c=2,t=5"; got != want {
		t.Errorf("Payload(0) = %q, want %q", got, want)
	}
	if got, want := c.Payload(300), "q=66,i=44,f=442,c=2,t=5"; got != want {
		t.Errorf("Payload(300) = %q, want %q", got, want)
	}
}

func TestAudioLength(t *testing.T) {
	t.Parallel()
	c := mustCodec(t, testParams(t, timebase.FrameRate30, 48000, 2, 442, 0))
	for _, off := range []int64{0, 1, 17} {
		buf, err := c.Audio(7, off)
		if err != nil {
			t.Fatal(err)
		}
		want := 2 * (6400 - off + 10*2*48000/442)
		if int64(len(buf)) != want {
			t.Errorf("offset %d: len %d, want %d", off, len(buf), want)
		}
		for i := int64(0); i < 2*(6400-off); i++ {
			if buf[i] != 0 {
				t.Fatalf("offset %d: leading silence not silent at byte %d", off, i)
			}
		}
	}
}

func TestLeadingSilenceOverflow(t *testing.T) {
	t.Parallel()
	c := mustCodec(t, testParams(t, timebase.FrameRate30, 48000, 2, 442, 0))
	if n, err := c.LeadingSilence(6400); err != nil || n != 0 {
		t.Errorf("LeadingSilence(6400) = %d, %v; want 0, nil", n, err)
	}
	_, err := c.Audio(0, 6401)
	var oe *OffsetOverflowError
	if !errors.As(err, &oe) {
		t.Fatalf("got %v, want *OffsetOverflowError", err)
	}
	if oe.Limit != 6400 || oe.Offset != 6401 {
		t.Errorf("got offset %d limit %d", oe.Offset, oe.Limit)
	}
	if !errors.Is(err, ErrOffsetOverflow) {
		t.Error("errors.Is ErrOffsetOverflow failed")
	}
}

func TestBurstWraparound(t *testing.T) {
	t.Parallel()
	c := mustCodec(t, testParams(t, timebase.FrameRate30, 48000, 2, 442, 0))
	b0, b256 := c.Burst(0), c.Burst(256)
	if &b0[0] != &b256[0] {
		t.Error("Burst(256) should reuse the memoized Burst(0)")
	}
	if c.Payload(255) == c.Payload(256) {
		t.Error("payload 255 and 256 must differ")
	}
	if c.Payload(0) != c.Payload(256) {
		t.Error("payload 0 and 256 must match")
	}
	got, err := c.Demodulate(c.Burst(256))
	if err != nil || got != 0 {
		t.Errorf("Demodulate(Burst(256)) = %d, %v; want 0", got, err)
	}
}

func TestDemodulateRoundTrip(t *testing.T) {
	t.Parallel()
	variants := map[string]func(*Params){
		"start-at-sync": func(p *Params) {},
		"centered":      func(p *Params) { p.Flags = 0 },
		"rectangle":     func(p *Params) { p.Flags |= TypeRectangle },
		"no-smoothing":  func(p *Params) { p.SmoothingFraction = 0 },
	}
	for name, mod := range variants {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			p := testParams(t, timebase.FrameRate29_97, 44100, 2, 442, 0)
			mod(&p)
			c := mustCodec(t, p)
			for i := 0; i < IndexModulo; i++ {
				got, err := c.Demodulate(c.Burst(i))
				if err != nil {
					t.Fatalf("index %d: %v", i, err)
				}
				if got != i {
					t.Fatalf("index %d: demodulated %d", i, got)
				}
			}
		})
	}
}

func TestDemodulateDetectsCorruption(t *testing.T) {
	t.Parallel()
	c := mustCodec(t, testParams(t, timebase.FrameRate30, 48000, 2, 442, 0))
	burst := append([]byte(nil), c.Burst(0xA5)...)
	// Negating the last symbol moves it to the opposite quadrant.
	for i := int64(0); i < c.BurstSamples(); i++ {
		if c.symbolAt(i) != SymbolCount-1 {
			continue
		}
		v := int16(binary.LittleEndian.Uint16(burst[2*i:]))
		binary.LittleEndian.PutUint16(burst[2*i:], uint16(-v))
	}
	if _, err := c.Demodulate(burst); !errors.Is(err, ErrCRCMismatch) {
		t.Errorf("got %v, want ErrCRCMismatch", err)
	}
	if _, err := c.Demodulate(burst[:10]); !errors.Is(err, ErrShortBurst) {
		t.Errorf("got %v, want ErrShortBurst", err)
	}
}

func TestBurstEnvelope(t *testing.T) {
	t.Parallel()
	c := mustCodec(t, testParams(t, timebase.FrameRate30, 48000, 2, 442, 0))
	burst := c.Burst(0)
	if first := int16(binary.LittleEndian.Uint16(burst)); first != 0 {
		t.Errorf("first sample %d, want 0 (ramp starts at zero)", first)
	}
	for i := 0; i < len(burst); i += 2 {
		v := int16(binary.LittleEndian.Uint16(burst[i:]))
		if v > 26214 || v < -26214 {
			t.Fatalf("sample %d = %d exceeds amplitude", i/2, v)
		}
	}
}

func TestRectangleClips(t *testing.T) {
	t.Parallel()
	p := testParams(t, timebase.FrameRate30, 48000, 2, 442, 0)
	p.Flags |= TypeRectangle
	c := mustCodec(t, p)
	burst := c.Burst(3)
	for i := 0; i < len(burst); i += 2 {
		v := int16(binary.LittleEndian.Uint16(burst[i:]))
		if v != 26214 && v != -26214 {
			t.Fatalf("sample %d = %d, want +-26214", i/2, v)
		}
	}
	if c.Payload(0) != "q=66,i=0,f=442,c=2,t=7" {
		t.Errorf("Payload = %q", c.Payload(0))
	}
}

func TestGainIdenticalNeighbours(t *testing.T) {
	t.Parallel()
	c := mustCodec(t, testParams(t, timebase.FrameRate30, 48000, 2, 442, 0))
	syms := Symbols(Authenticate(Word(0))) // 3 3 0 0 0 0 0 0 3 1
	sr, f, cc := int64(48000), int64(442), c.CycleCount()
	start := func(k int64) int64 { return (k*cc*sr + f - 1) / f }

	// Symbol 4 sits between identical neighbours: no ramp anywhere.
	for i := start(4); i < start(5); i++ {
		if g := c.gain(i, 4, syms); g != 1 {
			t.Fatalf("sample %d: gain %g, want 1", i, g)
		}
	}
	// Symbol 2 follows a different symbol: its first sample is ramped.
	if g := c.gain(start(2), 2, syms); g >= 1 {
		t.Errorf("gain at start of symbol 2 = %g, want < 1", g)
	}
}

func TestNewCodecRejectsUndecodable(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		p    Params
	}{
		// 40 frames at 30 fps is a 1333 ms flash; decoders accept up to 1000.
		{"flash too long", testParams(t, timebase.FrameRate30, 48000, 40, 442, 0)},
		{"above nyquist", testParams(t, timebase.FrameRate30, 48000, 2, 40000, 0)},
		{"at nyquist", testParams(t, timebase.FrameRate30, 48000, 2, 24000, 0)},
		// Fits the audio, but decoders cap f at 32000.
		{"tone above decoder range", testParams(t, timebase.FrameRate30, 96000, 2, 33000, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewCodec(tt.p)
			if !errors.Is(err, ErrUndecodable) {
				t.Fatalf("got %v, want ErrUndecodable", err)
			}
		})
	}

	// The longest accepted flash at 30 fps decodes.
	c := mustCodec(t, testParams(t, timebase.FrameRate30, 48000, 30, 442, 0))
	if _, err := ParsePayload(c.Payload(0)); err != nil {
		t.Errorf("q=30 payload %q: %v", c.Payload(0), err)
	}
}

func TestSilentBurst(t *testing.T) {
	t.Parallel()
	p := testParams(t, timebase.FrameRate30, 48000, 2, 442, 0)
	p.Amplitude = 0
	c := mustCodec(t, p)
	for i, b := range c.Burst(3) {
		if b != 0 {
			t.Fatalf("byte %d = %d, want silence", i, b)
		}
	}
	if int64(len(c.Burst(3))) != 2*c.BurstSamples() {
		t.Errorf("burst length %d, want %d", len(c.Burst(3)), 2*c.BurstSamples())
	}
}
