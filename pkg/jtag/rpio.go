package jtag

import (
	"fmt"

	rpio "github.com/stianeikeland/go-rpio/v4"
)

// RPiPins assigns BCM GPIO numbers to the four JTAG signals.
type RPiPins struct {
	TCK uint8
	TMS uint8
	TDI uint8
	TDO uint8
}

// RPiAdapter bitbangs JTAG over Raspberry Pi GPIO lines. TDO is sampled
// before the rising TCK edge, matching the falling-edge output timing of
// IEEE 1149.1 TAPs.
type RPiAdapter struct {
	pins RPiPins
	open bool
}

// NewRPiAdapter claims the GPIO block and configures the pin directions.
func NewRPiAdapter(pins RPiPins) (*RPiAdapter, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("jtag: gpio open: %w", err)
	}
	a := &RPiAdapter{pins: pins, open: true}

	for _, p := range []uint8{pins.TCK, pins.TMS, pins.TDI} {
		pin := rpio.Pin(p)
		pin.Output()
		pin.Low()
	}
	rpio.Pin(pins.TDO).Input()
	return a, nil
}

func (a *RPiAdapter) Info() (AdapterInfo, error) {
	return AdapterInfo{
		Name:   "Raspberry Pi GPIO bitbang",
		Vendor: "Raspberry Pi",
		Model: fmt.Sprintf("TCK=%d TMS=%d TDI=%d TDO=%d",
			a.pins.TCK, a.pins.TMS, a.pins.TDI, a.pins.TDO),
		MinFrequency: 1,
		MaxFrequency: 100_000,
	}, nil
}

func (a *RPiAdapter) ShiftIR(tms, tdi []byte, bits int) ([]byte, error) {
	return a.shift(tms, tdi, bits)
}

func (a *RPiAdapter) ShiftDR(tms, tdi []byte, bits int) ([]byte, error) {
	return a.shift(tms, tdi, bits)
}

func (a *RPiAdapter) shift(tms, tdi []byte, bits int) ([]byte, error) {
	required, err := ValidateShiftBuffers(tms, tdi, bits)
	if err != nil {
		return nil, err
	}
	if !a.open {
		return nil, fmt.Errorf("jtag: adapter closed")
	}

	tdo := make([]byte, required)
	for i := 0; i < bits; i++ {
		writePin(a.pins.TMS, bitAt(tms, i))
		writePin(a.pins.TDI, bitAt(tdi, i))
		if rpio.Pin(a.pins.TDO).Read() == rpio.High {
			setBit(tdo, i)
		}
		rpio.Pin(a.pins.TCK).High()
		rpio.Pin(a.pins.TCK).Low()
	}
	return tdo, nil
}

// ResetTAP clocks five TMS=1 cycles; there is no dedicated reset line.
func (a *RPiAdapter) ResetTAP(hard bool) error {
	if !a.open {
		return fmt.Errorf("jtag: adapter closed")
	}
	tms := []byte{0x1F}
	_, err := a.shift(tms, nil, 5)
	return err
}

// SetSpeed is not supported; the bitbang rate is bounded by syscall latency.
func (a *RPiAdapter) SetSpeed(hz int) error {
	return ErrNotImplemented
}

// Close releases the GPIO block.
func (a *RPiAdapter) Close() error {
	if !a.open {
		return nil
	}
	a.open = false
	return rpio.Close()
}

func writePin(p uint8, high bool) {
	if high {
		rpio.Pin(p).High()
	} else {
		rpio.Pin(p).Low()
	}
}
