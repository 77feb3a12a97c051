package marker

import (
	"fmt"
	"strconv"
	"strings"
)

// Payload is the metadata carried by the flash image's QR code.
type Payload struct {
	FlashMillis   int64
	Index         int
	IndexMax      int
	ToneFrequency int64
	CycleCount    int64
	Flags         TypeFlags
}

// String renders the payload as "q=<ms>,i=<index>,f=<Hz>,c=<cycles>,t=<flags>".
// IndexMax is written only when it differs from IndexModulo.
func (p Payload) String() string {
	s := fmt.Sprintf("q=%d,i=%d,f=%d,c=%d,t=%d", p.FlashMillis, p.Index, p.ToneFrequency, p.CycleCount, p.Flags)
	if p.IndexMax != 0 && p.IndexMax != IndexModulo {
		s += fmt.Sprintf(",I=%d", p.IndexMax)
	}
	return s
}

// ParsePayload decodes a QR payload string. Unknown single-letter keys are
// ignored so newer generators stay readable; keys longer than one letter
// and pairs without '=' are rejected.
func ParsePayload(s string) (Payload, error) {
	p := Payload{Index: -1, IndexMax: IndexModulo}
	for _, kv := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || len(k) != 1 {
			return Payload{}, fmt.Errorf("marker: malformed payload field %q", kv)
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Payload{}, fmt.Errorf("marker: payload field %q: %w", kv, err)
		}
		switch k {
		case "q":
			p.FlashMillis = n
		case "i":
			p.Index = int(n)
		case "I":
			p.IndexMax = int(n)
		case "f":
			p.ToneFrequency = n
		case "c":
			p.CycleCount = n
		case "t":
			p.Flags = TypeFlags(n)
		}
	}
	return p, p.Check()
}

// Check validates the ranges a decoder accepts.
func (p Payload) Check() error {
	if p.ToneFrequency < 10 || p.ToneFrequency > 32000 {
		return fmt.Errorf("marker: f out of range: %d", p.ToneFrequency)
	}
	if p.CycleCount < 1 || p.CycleCount > p.ToneFrequency {
		return fmt.Errorf("marker: c out of range: %d", p.CycleCount)
	}
	if p.FlashMillis < 1 || p.FlashMillis > 1000 {
		return fmt.Errorf("marker: q out of range: %d", p.FlashMillis)
	}
	if p.Index < 0 || p.Index&^0xFF != 0 {
		return fmt.Errorf("marker: i out of range: %d", p.Index)
	}
	return nil
}
