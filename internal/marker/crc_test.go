package marker

import "testing"

// crc4Bitwise is a straightforward long-division reference.
func crc4Bitwise(v uint32, bits int) uint8 {
	reg := uint32(0)
	for i := bits - 1; i >= 0; i-- {
		reg = reg<<1 | (v>>uint(i))&1
		if reg&0x10 != 0 {
			reg ^= crc4Poly
		}
	}
	for i := 0; i < 4; i++ {
		reg <<= 1
		if reg&0x10 != 0 {
			reg ^= crc4Poly
		}
	}
	return uint8(reg & 0x0F)
}

func TestCRC4KnownValues(t *testing.T) {
	t.Parallel()
	tests := []struct {
		word uint16
		want uint8
	}{
		{0x0000, 0x0},
		{0xF000, 0xD},
		{0xF001, 0xE},
		{0xF0A5, 0x6},
	}
	for _, tt := range tests {
		if got := CRC4(tt.word); got != tt.want {
			t.Errorf("CRC4(0x%04X) = 0x%X, want 0x%X", tt.word, got, tt.want)
		}
	}
}

func TestCRC4MatchesBitwise(t *testing.T) {
	t.Parallel()
	for w := 0; w <= 0xFFFF; w++ {
		if got, want := CRC4(uint16(w)), crc4Bitwise(uint32(w), 16); got != want {
			t.Fatalf("CRC4(0x%04X) = 0x%X, bitwise 0x%X", w, got, want)
		}
	}
}

func TestCRC4RoundTrip(t *testing.T) {
	t.Parallel()
	for _, w := range []uint16{0x0000, 0xFFFF, 0xF0A5, 0xF000, 0xF0FF, 0x1234} {
		word20 := Authenticate(w)
		if word20>>4 != uint32(w) {
			t.Errorf("Authenticate(0x%04X) lost the payload: 0x%05X", w, word20)
		}
		if rem := CheckCRC4(word20); rem != 0 {
			t.Errorf("CheckCRC4(0x%05X) = 0x%X, want 0", word20, rem)
		}
	}
}

func TestCRC4DetectsSingleBitErrors(t *testing.T) {
	t.Parallel()
	word20 := Authenticate(0xF0A5)
	for bit := 0; bit < WordBits; bit++ {
		if CheckCRC4(word20^(1<<uint(bit))) == 0 {
			t.Errorf("flip of bit %d not detected", bit)
		}
	}
}
