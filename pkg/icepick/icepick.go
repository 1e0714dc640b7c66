// Package icepick addresses a TI ICEPick router TAP on a multi-device scan
// chain: chain-wide instruction writes that bypass every other device, and
// identification of the router through its 32-bit controller code register.
package icepick

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceICEPick/pkg/scan"
)

// Router TAP instruction opcodes.
const (
	IRRouter      uint32 = 0x02
	IRICEPickCode uint32 = 0x05
	IRConnect     uint32 = 0x07
)

// Variant selects which router family a controller code must belong to.
type Variant uint16

const (
	TypeC Variant = 0x1cc0
	TypeD Variant = 0xb3d0
)

func (v Variant) String() string {
	switch v {
	case TypeC:
		return "type-C"
	case TypeD:
		return "type-D"
	}
	return fmt.Sprintf("type(0x%04x)", uint16(v))
}

// Controller code layout: major and minor version in the top byte, the
// variant in bits 15:4.
const (
	typeMask   = 0xfff0
	majorShift = 28
	minorShift = 24
	nibble     = 0xf
)

// Ident is a decoded controller identification register.
type Ident struct {
	Variant Variant
	Major   uint8
	Minor   uint8
	Raw     uint32
}

func (id Ident) String() string {
	return fmt.Sprintf("ICEPick %s v%d.%d (0x%08X)", id.Variant, id.Major, id.Minor, id.Raw)
}

// MismatchError reports a controller code whose variant field disagrees with
// the one the caller asked for.
type MismatchError struct {
	Code uint32
	Want Variant
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("icepick: controller code 0x%08X is not a %s router", e.Code, e.Want)
}

// WriteIR performs one chain-wide instruction register write that loads ir
// into dev and the all-ones bypass opcode into every other device. The
// device table's CurrentIR fields are rewritten to match what was latched.
//
// dev must be an entry of ch's table and ir must fit in dev's instruction
// register; violating either is a programming error and panics.
func WriteIR(ch *scan.Chain, dev *scan.Device, ir uint32) error {
	if !ch.Contains(dev) {
		panic(fmt.Sprintf("icepick: device %q is not on chain %q", dev.Name, ch.Name()))
	}
	if dev.IRLength < 32 && ir>>uint(dev.IRLength) != 0 {
		panic(fmt.Sprintf("icepick: instruction 0x%X does not fit %d-bit IR of %q", ir, dev.IRLength, dev.Name))
	}

	for _, other := range ch.Devices() {
		other.CurrentIR = scan.BypassIR
	}
	dev.CurrentIR = ir

	seq := ch.Sequencer()
	if err := seq.EnterShiftIR(); err != nil {
		return err
	}
	if dev.IRPrescan > 0 {
		if err := seq.ShiftIR(false, scan.Ones(dev.IRPrescan)); err != nil {
			return err
		}
	}
	if err := seq.ShiftIR(dev.IRPostscan == 0, scan.Bits(ir, dev.IRLength)); err != nil {
		return err
	}
	if dev.IRPostscan > 0 {
		if err := seq.ShiftIR(true, scan.Ones(dev.IRPostscan)); err != nil {
			return err
		}
	}
	return seq.UpdateIR(0)
}

// Identify loads the ICEPICKCODE instruction into dev, reads the 32-bit
// controller code through the bypass frame the rest of the chain contributes,
// and decodes it. A code whose variant field is not want yields a
// *MismatchError carrying the raw value.
func Identify(ch *scan.Chain, dev *scan.Device, want Variant) (Ident, error) {
	if err := WriteIR(ch, dev, IRICEPickCode); err != nil {
		return Ident{}, err
	}

	bits, err := ch.Sequencer().ReadDR(dev.DRPrescan, dev.DRPostscan, 32)
	if err != nil {
		return Ident{}, err
	}
	code := scan.BitsToUint32(bits)

	if code&typeMask != uint32(want) {
		return Ident{}, &MismatchError{Code: code, Want: want}
	}
	return Ident{
		Variant: want,
		Major:   uint8(code >> majorShift & nibble),
		Minor:   uint8(code >> minorShift & nibble),
		Raw:     code,
	}, nil
}
