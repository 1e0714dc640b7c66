package scan

// Ones returns n true bits: the TDI filler that keeps bypassed devices
// loaded with the all-ones bypass opcode.
func Ones(n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	return out
}

// Bits expands the low width bits of v, LSB first, matching shift order on
// the wire.
func Bits(v uint32, width int) []bool {
	out := make([]bool, width)
	for i := range out {
		out[i] = v&(1<<uint(i)) != 0
	}
	return out
}

// BitsToUint32 folds up to 32 LSB-first bits back into a value.
func BitsToUint32(bits []bool) uint32 {
	var v uint32
	for i, bit := range bits {
		if i == 32 {
			break
		}
		if bit {
			v |= 1 << uint(i)
		}
	}
	return v
}

func boolsToBytes(bits []bool) []byte {
	if len(bits) == 0 {
		return nil
	}
	out := make([]byte, (len(bits)+7)/8)
	for i, bit := range bits {
		if bit {
			out[i/8] |= 1 << (uint(i) % 8)
		}
	}
	return out
}

func bytesToBools(buf []byte, bits int) []bool {
	out := make([]bool, bits)
	for i := 0; i < bits; i++ {
		if i/8 < len(buf) && buf[i/8]&(1<<(uint(i)%8)) != 0 {
			out[i] = true
		}
	}
	return out
}
