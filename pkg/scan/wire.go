package scan

import (
	"errors"
	"fmt"

	"github.com/OpenTraceLab/OpenTraceICEPick/pkg/jtag"
	"github.com/OpenTraceLab/OpenTraceICEPick/pkg/tap"
)

// Sequencer is everything the addressing layer needs from a chain transport:
// reach Shift-IR, stream instruction bits, latch them, and run one framed DR
// read. Implementations other than Wire exist only in tests, where a
// recording sequencer checks call sequences instead of wire traffic.
type Sequencer interface {
	// Reset forces every TAP on the chain into Test-Logic-Reset.
	Reset() error

	// EnterShiftIR walks the state machine to Shift-IR.
	EnterShiftIR() error

	// ShiftIR clocks tdi through the instruction path, LSB first. When
	// final is set the last bit is clocked with TMS high, leaving the
	// chain in Exit1-IR.
	ShiftIR(final bool, tdi []bool) error

	// UpdateIR latches the shifted instruction from Exit1-IR and then
	// idles for the given number of Run-Test/Idle cycles.
	UpdateIR(idle int) error

	// ReadDR runs one Capture-DR..Update-DR pass and returns the bits
	// captured from the device framed by prescan and postscan bypass bits.
	ReadDR(prescan, postscan, bits int) ([]bool, error)
}

// Wire drives a jtag.Adapter while mirroring the chain's TAP state in a local
// machine, so every TMS pattern it emits is derived rather than hard-coded.
type Wire struct {
	adapter jtag.Adapter
	fsm     *tap.Machine
}

// NewWire wraps an adapter. The tracked state starts at Test-Logic-Reset;
// call Reset before the first operation to make the hardware agree.
func NewWire(adapter jtag.Adapter) *Wire {
	return &Wire{
		adapter: adapter,
		fsm:     tap.NewMachine(),
	}
}

// State reports the tracked TAP controller state.
func (w *Wire) State() tap.State {
	return w.fsm.State()
}

// Reset asks the adapter for a TAP reset and replays the five TMS=1 cycles on
// the wire as well, so adapters whose ResetTAP is a no-op still end up in
// Test-Logic-Reset.
func (w *Wire) Reset() error {
	if err := w.adapter.ResetTAP(false); err != nil && !errors.Is(err, jtag.ErrNotImplemented) {
		return fmt.Errorf("scan: reset: %w", err)
	}
	_, err := w.shift(w.fsm.Reset(), nil)
	return err
}

// EnterShiftIR walks the tracked machine to Shift-IR and replays the path.
func (w *Wire) EnterShiftIR() error {
	return w.goTo(tap.StateShiftIR)
}

// ShiftIR streams instruction bits. Calling it outside Shift-IR is a
// programming error in the caller's phase sequencing.
func (w *Wire) ShiftIR(final bool, tdi []bool) error {
	if len(tdi) == 0 {
		return nil
	}
	if w.fsm.State() != tap.StateShiftIR {
		panic(fmt.Sprintf("scan: ShiftIR called in %s", w.fsm.State()))
	}
	tms := make([]bool, len(tdi))
	if final {
		tms[len(tms)-1] = true
	}
	_, err := w.shift(tms, tdi)
	return err
}

// UpdateIR latches the instruction from Exit1-IR with a single TMS=1 cycle,
// then clocks idle cycles with TMS low.
func (w *Wire) UpdateIR(idle int) error {
	if w.fsm.State() != tap.StateExit1IR {
		panic(fmt.Sprintf("scan: UpdateIR called in %s", w.fsm.State()))
	}
	tms := make([]bool, 1+idle)
	tms[0] = true
	_, err := w.shift(tms, nil)
	return err
}

// ReadDR captures one data register framed by bypass bits. The shifted-in
// TDI is all ones so bypassed devices keep a benign value, and the pass ends
// in Update-DR.
func (w *Wire) ReadDR(prescan, postscan, bits int) ([]bool, error) {
	if bits <= 0 {
		return nil, fmt.Errorf("scan: DR read of %d bits", bits)
	}
	if err := w.goTo(tap.StateShiftDR); err != nil {
		return nil, err
	}

	if prescan > 0 {
		if _, err := w.shift(make([]bool, prescan), Ones(prescan)); err != nil {
			return nil, err
		}
	}

	tms := make([]bool, bits)
	if postscan == 0 {
		tms[bits-1] = true
	}
	tdo, err := w.shift(tms, Ones(bits))
	if err != nil {
		return nil, err
	}

	if postscan > 0 {
		post := make([]bool, postscan)
		post[postscan-1] = true
		if _, err := w.shift(post, Ones(postscan)); err != nil {
			return nil, err
		}
	}

	// Exit1-DR -> Update-DR.
	if _, err := w.shift([]bool{true}, nil); err != nil {
		return nil, err
	}
	return bytesToBools(tdo, bits), nil
}

// goTo replays the shortest TMS path to target. No-op when already there.
func (w *Wire) goTo(target tap.State) error {
	region := w.fsm.State()
	tms, err := w.fsm.PathTo(target)
	if err != nil {
		return err
	}
	if len(tms) == 0 {
		return nil
	}
	_, err = w.dispatch(region, tms, nil)
	return err
}

// shift clocks the tracked machine along tms and sends the pattern through
// the adapter, returning the packed TDO capture.
func (w *Wire) shift(tms, tdi []bool) ([]byte, error) {
	if len(tms) == 0 {
		return nil, nil
	}
	region := w.fsm.State()
	for _, bit := range tms {
		w.fsm.Clock(bit)
	}
	return w.dispatch(region, tms, tdi)
}

// dispatch routes a pattern to the adapter's IR or DR entry point based on
// the state the chain was in when the first bit goes out.
func (w *Wire) dispatch(region tap.State, tms, tdi []bool) ([]byte, error) {
	tmsB := boolsToBytes(tms)
	tdiB := boolsToBytes(tdi)
	if tdiB == nil {
		tdiB = make([]byte, len(tmsB))
	}
	if region.InstructionColumn() {
		return w.adapter.ShiftIR(tmsB, tdiB, len(tms))
	}
	return w.adapter.ShiftDR(tmsB, tdiB, len(tms))
}
