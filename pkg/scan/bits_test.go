package scan

import "testing"

func TestBitsLSBFirst(t *testing.T) {
	got := Bits(0x2A, 6)
	want := []bool{false, true, false, true, false, true}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bit %d = %v, want %v", i, got[i], want[i])
		}
	}
	if BitsToUint32(got) != 0x2A {
		t.Fatalf("round trip = 0x%X", BitsToUint32(got))
	}
}

func TestOnes(t *testing.T) {
	for i, bit := range Ones(7) {
		if !bit {
			t.Fatalf("bit %d not set", i)
		}
	}
	if len(Ones(0)) != 0 {
		t.Fatalf("Ones(0) not empty")
	}
}

func TestBytePacking(t *testing.T) {
	bits := Bits(0x1B3, 9)
	packed := boolsToBytes(bits)
	if len(packed) != 2 || packed[0] != 0xB3 || packed[1] != 0x01 {
		t.Fatalf("packed = % X", packed)
	}
	back := bytesToBools(packed, 9)
	for i := range bits {
		if back[i] != bits[i] {
			t.Fatalf("bit %d lost in packing", i)
		}
	}

	// Short buffers read as zeros past the end.
	padded := bytesToBools([]byte{0xFF}, 12)
	if !padded[7] || padded[8] {
		t.Fatalf("short buffer padding wrong: %v", padded)
	}
}
