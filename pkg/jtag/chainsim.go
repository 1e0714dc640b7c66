package jtag

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceICEPick/pkg/tap"
)

// ICEPick controller-identification opcode (SPRUH35). A simulated router
// serves its code register on the DR path while this instruction is latched.
const icePickCodeOpcode = 0x05

// SimDevice describes one TAP in a simulated scan chain.
type SimDevice struct {
	IRLength int
	Router   bool
	Code     uint32 // 32-bit controller code, Router devices only
}

// ChainSim is a bit-exact simulation of a scan chain behind an adapter. It is
// driven purely by the per-bit TMS/TDI streams, running its own TAP state
// machine, so it exercises the same last-bit timing a real chain would see.
//
// Register model: the IR shift path is the concatenation of all device IRs
// with index 0 closest to TDO. The DR path is composed at Capture-DR from the
// latched instructions: one bypass bit per device, except a router whose
// latched IR equals the controller-identification opcode, which contributes
// its 32-bit code register.
type ChainSim struct {
	devices []SimDevice
	fsm     *tap.Machine

	irShift []bool
	drShift []bool
	latched [][]bool
}

// NewChainSim builds a simulator for the given devices.
func NewChainSim(devices []SimDevice) (*ChainSim, error) {
	if len(devices) == 0 {
		return nil, fmt.Errorf("jtag: chain simulator needs at least one device")
	}
	total := 0
	for i, dev := range devices {
		if dev.IRLength < 2 {
			return nil, fmt.Errorf("jtag: device %d IR length %d below IEEE minimum of 2", i, dev.IRLength)
		}
		total += dev.IRLength
	}
	cs := &ChainSim{
		devices: append([]SimDevice(nil), devices...),
		fsm:     tap.NewMachine(),
		irShift: make([]bool, total),
		latched: make([][]bool, len(devices)),
	}
	cs.resetInstructions()
	return cs, nil
}

// resetInstructions forces every device into bypass, as Test-Logic-Reset does.
func (cs *ChainSim) resetInstructions() {
	for i, dev := range cs.devices {
		ir := make([]bool, dev.IRLength)
		for j := range ir {
			ir[j] = true
		}
		cs.latched[i] = ir
	}
}

// LatchedIR returns the instruction last latched into device i, LSB-first.
func (cs *ChainSim) LatchedIR(i int) []bool {
	return append([]bool(nil), cs.latched[i]...)
}

// State reports the simulated TAP controller state.
func (cs *ChainSim) State() tap.State {
	return cs.fsm.State()
}

func (cs *ChainSim) Info() (AdapterInfo, error) {
	return AdapterInfo{
		Name:         "Scan Chain Simulator",
		Vendor:       "OpenTraceLab",
		Model:        fmt.Sprintf("chainsim-%d", len(cs.devices)),
		MinFrequency: 1,
		MaxFrequency: 10_000_000,
	}, nil
}

func (cs *ChainSim) ShiftIR(tms, tdi []byte, bits int) ([]byte, error) {
	return cs.clockBits(tms, tdi, bits)
}

func (cs *ChainSim) ShiftDR(tms, tdi []byte, bits int) ([]byte, error) {
	return cs.clockBits(tms, tdi, bits)
}

func (cs *ChainSim) ResetTAP(hard bool) error {
	for i := 0; i < 5; i++ {
		cs.clock(true, false)
	}
	return nil
}

func (cs *ChainSim) SetSpeed(hz int) error {
	if hz <= 0 {
		return fmt.Errorf("jtag: invalid speed %dHz", hz)
	}
	return nil
}

func (cs *ChainSim) clockBits(tms, tdi []byte, bits int) ([]byte, error) {
	required, err := ValidateShiftBuffers(tms, tdi, bits)
	if err != nil {
		return nil, err
	}
	tdo := make([]byte, required)
	for i := 0; i < bits; i++ {
		if cs.clock(bitAt(tms, i), bitAt(tdi, i)) {
			setBit(tdo, i)
		}
	}
	return tdo, nil
}

// clock advances the chain one TCK cycle: shift registers move while the
// controller sits in a shift state, then the state machine steps on TMS.
func (cs *ChainSim) clock(tms, tdi bool) bool {
	var tdo bool
	switch cs.fsm.State() {
	case tap.StateShiftIR:
		tdo = cs.irShift[0]
		copy(cs.irShift, cs.irShift[1:])
		cs.irShift[len(cs.irShift)-1] = tdi
	case tap.StateShiftDR:
		if len(cs.drShift) > 0 {
			tdo = cs.drShift[0]
			copy(cs.drShift, cs.drShift[1:])
			cs.drShift[len(cs.drShift)-1] = tdi
		}
	}

	switch cs.fsm.Clock(tms) {
	case tap.StateTestLogicReset:
		cs.resetInstructions()
	case tap.StateCaptureIR:
		cs.captureIR()
	case tap.StateUpdateIR:
		cs.latchIR()
	case tap.StateCaptureDR:
		cs.captureDR()
	}
	return tdo
}

// captureIR loads the fixed 01 pattern into the low bits of every device's
// IR, as IEEE 1149.1 requires.
func (cs *ChainSim) captureIR() {
	offset := 0
	for _, dev := range cs.devices {
		for j := 0; j < dev.IRLength; j++ {
			cs.irShift[offset+j] = j == 0
		}
		offset += dev.IRLength
	}
}

func (cs *ChainSim) latchIR() {
	offset := 0
	for i, dev := range cs.devices {
		cs.latched[i] = append([]bool(nil), cs.irShift[offset:offset+dev.IRLength]...)
		offset += dev.IRLength
	}
}

// captureDR rebuilds the DR shift path from the latched instructions.
func (cs *ChainSim) captureDR() {
	cs.drShift = cs.drShift[:0]
	for i, dev := range cs.devices {
		if dev.Router && irValue(cs.latched[i]) == icePickCodeOpcode {
			for j := 0; j < 32; j++ {
				cs.drShift = append(cs.drShift, dev.Code&(1<<uint(j)) != 0)
			}
			continue
		}
		// Bypass (or any unmodeled register): a single bit capturing 0.
		cs.drShift = append(cs.drShift, false)
	}
}

func irValue(bits []bool) uint32 {
	var v uint32
	for i, bit := range bits {
		if bit {
			v |= 1 << uint(i)
		}
	}
	return v
}
