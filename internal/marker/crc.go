package marker

// CRC-4/ITU with polynomial 0x13 (x^4 + x + 1), processed MSB-first with a
// zero initial value and no final XOR.
const crc4Poly = 0x13

var crc4Table [16]uint8

func init() {
	for i := 0; i < 16; i++ {
		crc := uint8(i)
		for j := 0; j < 4; j++ {
			crc <<= 1
			if crc&0x10 != 0 {
				crc ^= crc4Poly
			}
		}
		crc4Table[i] = crc & 0x0F
	}
}

// crc4 computes the CRC-4 remainder of the low nibbles*4 bits of v, with
// four zero bits appended.
func crc4(v uint32, nibbles int) uint8 {
	var crc uint8
	for i := nibbles - 1; i >= 0; i-- {
		n := uint8(v>>(4*uint(i))) & 0x0F
		crc = crc4Table[crc^n]
	}
	return crc
}

// CRC4 returns the 4-bit check value of a 16-bit payload word.
func CRC4(word uint16) uint8 {
	return crc4(uint32(word), 4)
}

// Authenticate appends the CRC-4 of word, producing a 20-bit value.
func Authenticate(word uint16) uint32 {
	return uint32(word)<<4 | uint32(CRC4(word))
}

// CheckCRC4 returns the CRC-4 remainder over a full 20-bit authenticated
// word. It is zero for every value produced by Authenticate.
func CheckCRC4(word20 uint32) uint8 {
	return crc4(word20&0xFFFFF, 5)
}
