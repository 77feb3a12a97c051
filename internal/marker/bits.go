package marker

const symbolMask = 1<<SymbolBits - 1

// Symbols splits a 20-bit authenticated word into SymbolCount two-bit
// symbols, most significant first.
func Symbols(word20 uint32) [SymbolCount]uint8 {
	var syms [SymbolCount]uint8
	for i := range syms {
		shift := WordBits - SymbolBits*(i+1)
		syms[i] = uint8(word20 >> shift & symbolMask)
	}
	return syms
}

// Join is the inverse of Symbols. Only the low two bits of each symbol
// are used.
func Join(syms [SymbolCount]uint8) uint32 {
	var word20 uint32
	for _, s := range syms {
		word20 = word20<<SymbolBits | uint32(s&symbolMask)
	}
	return word20
}
