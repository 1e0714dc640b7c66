package jtag

import (
	"testing"

	"github.com/OpenTraceLab/OpenTraceICEPick/pkg/tap"
)

func driveChain(t *testing.T, cs *ChainSim, tms, tdi []bool) []bool {
	t.Helper()
	bits := len(tms)
	tmsB := make([]byte, (bits+7)/8)
	tdiB := make([]byte, (bits+7)/8)
	for i := range tms {
		if tms[i] {
			setBit(tmsB, i)
		}
	}
	for i := range tdi {
		if tdi[i] {
			setBit(tdiB, i)
		}
	}
	tdo, err := cs.ShiftIR(tmsB, tdiB, bits)
	if err != nil {
		t.Fatalf("shift failed: %v", err)
	}
	out := make([]bool, bits)
	for i := range out {
		out[i] = bitAt(tdo, i)
	}
	return out
}

func lsbBits(v uint32, width int) []bool {
	out := make([]bool, width)
	for i := range out {
		out[i] = v&(1<<uint(i)) != 0
	}
	return out
}

func TestChainSimLatchesAddressedInstruction(t *testing.T) {
	cs, err := NewChainSim([]SimDevice{
		{IRLength: 4},
		{IRLength: 6, Router: true, Code: 0x1234B3D5},
		{IRLength: 4},
	})
	if err != nil {
		t.Fatalf("NewChainSim failed: %v", err)
	}

	if err := cs.ResetTAP(false); err != nil {
		t.Fatalf("ResetTAP failed: %v", err)
	}
	driveChain(t, cs, []bool{false}, nil)                    // -> Run-Test/Idle
	driveChain(t, cs, []bool{true, true, false, false}, nil) // -> Shift-IR
	if cs.State() != tap.StateShiftIR {
		t.Fatalf("state = %s, want ShiftIR", cs.State())
	}

	// 4 bypass ones, the 6-bit 0x05 opcode, 4 bypass ones; exit on the
	// final postscan bit.
	var tdi []bool
	tdi = append(tdi, lsbBits(0xF, 4)...)
	tdi = append(tdi, lsbBits(0x05, 6)...)
	tdi = append(tdi, lsbBits(0xF, 4)...)
	tms := make([]bool, 14)
	tms[13] = true
	driveChain(t, cs, tms, tdi)
	if cs.State() != tap.StateExit1IR {
		t.Fatalf("state = %s, want Exit1IR", cs.State())
	}

	driveChain(t, cs, []bool{true}, nil) // -> Update-IR
	if cs.State() != tap.StateUpdateIR {
		t.Fatalf("state = %s, want UpdateIR", cs.State())
	}

	got := cs.LatchedIR(1)
	want := lsbBits(0x05, 6)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("router IR bit %d = %v, want %v", i, got[i], want[i])
		}
	}
	for _, idx := range []int{0, 2} {
		for i, bit := range cs.LatchedIR(idx) {
			if !bit {
				t.Fatalf("device %d IR bit %d not bypass", idx, i)
			}
		}
	}
}

func TestChainSimServesControllerCode(t *testing.T) {
	const code = 0x1234B3D5
	cs, err := NewChainSim([]SimDevice{
		{IRLength: 4},
		{IRLength: 6, Router: true, Code: code},
		{IRLength: 4},
	})
	if err != nil {
		t.Fatalf("NewChainSim failed: %v", err)
	}

	cs.ResetTAP(false)
	driveChain(t, cs, []bool{false}, nil)
	driveChain(t, cs, []bool{true, true, false, false}, nil)

	var tdi []bool
	tdi = append(tdi, lsbBits(0xF, 4)...)
	tdi = append(tdi, lsbBits(0x05, 6)...)
	tdi = append(tdi, lsbBits(0xF, 4)...)
	tms := make([]bool, 14)
	tms[13] = true
	driveChain(t, cs, tms, tdi)
	driveChain(t, cs, []bool{true}, nil) // -> Update-IR

	// Update-IR -> Select-DR -> Capture-DR -> Shift-DR.
	driveChain(t, cs, []bool{true, false, false}, nil)
	if cs.State() != tap.StateShiftDR {
		t.Fatalf("state = %s, want ShiftDR", cs.State())
	}

	// DR path: one bypass bit, the 32-bit code register, one bypass bit.
	tms = make([]bool, 34)
	tms[33] = true
	tdo := driveChain(t, cs, tms, make([]bool, 34))

	if tdo[0] {
		t.Fatalf("leading bypass bit high")
	}
	var got uint32
	for i := 0; i < 32; i++ {
		if tdo[1+i] {
			got |= 1 << uint(i)
		}
	}
	if got != code {
		t.Fatalf("controller code = 0x%08X, want 0x%08X", got, code)
	}
}

func TestChainSimBypassWithoutRouterInstruction(t *testing.T) {
	cs, err := NewChainSim([]SimDevice{
		{IRLength: 4},
		{IRLength: 6, Router: true, Code: 0x1234B3D5},
	})
	if err != nil {
		t.Fatalf("NewChainSim failed: %v", err)
	}

	// Straight to Shift-DR from reset: every device still holds bypass.
	cs.ResetTAP(false)
	driveChain(t, cs, []bool{false}, nil)
	driveChain(t, cs, []bool{true, false, false}, nil)
	if cs.State() != tap.StateShiftDR {
		t.Fatalf("state = %s, want ShiftDR", cs.State())
	}

	tms := make([]bool, 2)
	tms[1] = true
	tdo := driveChain(t, cs, tms, []bool{false, false})
	if tdo[0] || tdo[1] {
		t.Fatalf("bypass DR should capture zeros, got %v", tdo)
	}
}

func TestChainSimRejectsShortIR(t *testing.T) {
	if _, err := NewChainSim([]SimDevice{{IRLength: 1}}); err == nil {
		t.Fatalf("IR length 1 should be rejected")
	}
	if _, err := NewChainSim(nil); err == nil {
		t.Fatalf("empty chain should be rejected")
	}
}
