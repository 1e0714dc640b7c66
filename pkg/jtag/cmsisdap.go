package jtag

import (
	"fmt"
	"sync"
)

// CMSISDAPAdapter drives a CMSIS-DAP probe over USB. Both shift operations
// translate the per-bit TMS stream of the Adapter contract into
// DAP_JTAG_Sequence segments, which carry a single TMS level each.
type CMSISDAPAdapter struct {
	transport *usbTransport
	info      AdapterInfo
	speedHz   int
	connected bool

	mu sync.Mutex
}

// NewCMSISDAPAdapter opens the probe with the given VID/PID, connects its
// JTAG port and applies a 1 MHz default clock.
func NewCMSISDAPAdapter(vid, pid uint16) (*CMSISDAPAdapter, error) {
	transport, err := openUSBTransport(vid, pid)
	if err != nil {
		return nil, err
	}

	a := &CMSISDAPAdapter{transport: transport, speedHz: 1_000_000}
	if err := a.queryInfo(); err != nil {
		transport.Close()
		return nil, fmt.Errorf("jtag: probe info query: %w", err)
	}
	if err := a.connect(); err != nil {
		transport.Close()
		return nil, err
	}
	if err := a.SetSpeed(a.speedHz); err != nil {
		transport.Close()
		return nil, err
	}
	return a, nil
}

func (a *CMSISDAPAdapter) queryInfo() error {
	get := func(id byte) string {
		resp, err := a.transport.roundTrip(encodeInfo(id))
		if err != nil {
			return ""
		}
		s, _ := decodeInfoString(resp)
		return s
	}

	a.info = AdapterInfo{
		Name:         "CMSIS-DAP Probe",
		Vendor:       get(infoVendorID),
		Model:        get(infoProductID),
		SerialNumber: get(infoSerialNum),
		Firmware:     get(infoFirmwareVer),
		MinFrequency: 1_000,
		MaxFrequency: 10_000_000,
		SupportsSRST: true,
	}
	return nil
}

func (a *CMSISDAPAdapter) connect() error {
	resp, err := a.transport.roundTrip(encodeConnect(portJTAG))
	if err != nil {
		return err
	}
	port, err := decodeConnect(resp)
	if err != nil {
		return err
	}
	if port != portJTAG {
		return fmt.Errorf("jtag: probe connected port %d, wanted JTAG", port)
	}
	a.connected = true
	return nil
}

func (a *CMSISDAPAdapter) Info() (AdapterInfo, error) {
	return a.info, nil
}

func (a *CMSISDAPAdapter) ShiftIR(tms, tdi []byte, bits int) ([]byte, error) {
	return a.shift(tms, tdi, bits)
}

func (a *CMSISDAPAdapter) ShiftDR(tms, tdi []byte, bits int) ([]byte, error) {
	return a.shift(tms, tdi, bits)
}

func (a *CMSISDAPAdapter) shift(tms, tdi []byte, bits int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := ValidateShiftBuffers(tms, tdi, bits); err != nil {
		return nil, err
	}

	seqs := splitSequences(tms, tdi, bits)
	resp, err := a.transport.roundTrip(encodeJTAGSequence(seqs))
	if err != nil {
		return nil, fmt.Errorf("jtag: shift failed: %w", err)
	}
	tdoSegs, err := decodeJTAGSequence(resp, seqs)
	if err != nil {
		return nil, err
	}

	// Stitch the per-segment TDO bytes back into one LSB-first stream.
	tdo := make([]byte, (bits+7)/8)
	pos := 0
	for i, seq := range seqs {
		for j := 0; j < seq.tckCount() && pos < bits; j++ {
			if bitAt(tdoSegs[i], j) {
				setBit(tdo, pos)
			}
			pos++
		}
	}
	return tdo, nil
}

// splitSequences cuts the shift into segments of constant TMS, each at most
// 64 clocks, re-packing the TDI bits to each segment's origin.
func splitSequences(tms, tdi []byte, bits int) []dapSequence {
	var seqs []dapSequence
	pos := 0
	for pos < bits {
		level := bitAt(tms, pos)
		n := 0
		for pos+n < bits && n < 64 && bitAt(tms, pos+n) == level {
			n++
		}

		segTDI := make([]byte, (n+7)/8)
		for j := 0; j < n; j++ {
			if bitAt(tdi, pos+j) {
				setBit(segTDI, j)
			}
		}
		seqs = append(seqs, newDAPSequence(n, level, true, segTDI))
		pos += n
	}
	return seqs
}

// ResetTAP issues either a target reset (hard) or five TMS=1 clocks (soft).
func (a *CMSISDAPAdapter) ResetTAP(hard bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if hard {
		resp, err := a.transport.roundTrip(encodeResetTarget())
		if err != nil {
			return fmt.Errorf("jtag: target reset: %w", err)
		}
		return decodeStatus(resp, cmdResetTarget)
	}

	seq := newDAPSequence(5, true, false, []byte{0x00})
	resp, err := a.transport.roundTrip(encodeJTAGSequence([]dapSequence{seq}))
	if err != nil {
		return fmt.Errorf("jtag: TAP reset: %w", err)
	}
	return decodeStatus(resp, cmdJTAGSequence)
}

func (a *CMSISDAPAdapter) SetSpeed(hz int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if hz < a.info.MinFrequency || hz > a.info.MaxFrequency {
		return fmt.Errorf("jtag: frequency %d Hz outside [%d, %d]", hz, a.info.MinFrequency, a.info.MaxFrequency)
	}
	resp, err := a.transport.roundTrip(encodeSetClock(uint32(hz)))
	if err != nil {
		return fmt.Errorf("jtag: set clock: %w", err)
	}
	if err := decodeStatus(resp, cmdSWJClock); err != nil {
		return err
	}
	a.speedHz = hz
	return nil
}

// Close disconnects the probe and releases the USB device.
func (a *CMSISDAPAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.connected {
		if resp, err := a.transport.roundTrip(encodeDisconnect()); err == nil {
			_ = decodeStatus(resp, cmdDisconnect)
		}
		a.connected = false
	}
	return a.transport.Close()
}
