package jtag

import (
	"encoding/binary"
	"fmt"
)

// CMSIS-DAP command IDs.
const (
	cmdInfo         = 0x00
	cmdConnect      = 0x02
	cmdDisconnect   = 0x03
	cmdResetTarget  = 0x0A
	cmdSWJClock     = 0x11
	cmdJTAGSequence = 0x14
)

// DAP_Info identifiers.
const (
	infoVendorID    = 0x01
	infoProductID   = 0x02
	infoSerialNum   = 0x03
	infoFirmwareVer = 0x04
	infoPacketSize  = 0xFF
)

// DAP_Connect port selection.
const (
	portDefault = 0
	portSWD     = 1
	portJTAG    = 2
)

const dapStatusOK = 0x00

// DAP_JTAG_Sequence info byte layout.
const (
	seqTCKMask    = 0x3F // bits [5:0], 0 means 64 clocks
	seqTMSFlag    = 0x40
	seqCaptureTDO = 0x80
)

// dapSequence is one segment of a DAP_JTAG_Sequence command: up to 64 TCK
// cycles with a single TMS level.
type dapSequence struct {
	info byte
	tdi  []byte
}

func newDAPSequence(tckCount int, tms, captureTDO bool, tdi []byte) dapSequence {
	info := byte(tckCount & seqTCKMask)
	if tms {
		info |= seqTMSFlag
	}
	if captureTDO {
		info |= seqCaptureTDO
	}
	return dapSequence{info: info, tdi: tdi}
}

func (s dapSequence) tckCount() int {
	n := int(s.info & seqTCKMask)
	if n == 0 {
		return 64
	}
	return n
}

func (s dapSequence) capturesTDO() bool {
	return s.info&seqCaptureTDO != 0
}

func encodeInfo(id byte) []byte {
	return []byte{cmdInfo, id}
}

// decodeInfoString parses a DAP_Info response carrying a string value.
func decodeInfoString(resp []byte) (string, error) {
	if err := checkResponse(resp, cmdInfo); err != nil {
		return "", err
	}
	n := int(resp[1])
	if len(resp) < 2+n {
		return "", fmt.Errorf("jtag: truncated DAP_Info string")
	}
	s := resp[2 : 2+n]
	// Probes commonly NUL-terminate the string inside the declared length.
	if n > 0 && s[n-1] == 0 {
		s = s[:n-1]
	}
	return string(s), nil
}

func encodeConnect(port byte) []byte {
	return []byte{cmdConnect, port}
}

func decodeConnect(resp []byte) (byte, error) {
	if err := checkResponse(resp, cmdConnect); err != nil {
		return 0, err
	}
	if resp[1] == portDefault {
		return 0, fmt.Errorf("jtag: probe refused connection")
	}
	return resp[1], nil
}

func encodeDisconnect() []byte {
	return []byte{cmdDisconnect}
}

func encodeSetClock(hz uint32) []byte {
	cmd := make([]byte, 5)
	cmd[0] = cmdSWJClock
	binary.LittleEndian.PutUint32(cmd[1:], hz)
	return cmd
}

func decodeStatus(resp []byte, cmd byte) error {
	if err := checkResponse(resp, cmd); err != nil {
		return err
	}
	if resp[1] != dapStatusOK {
		return fmt.Errorf("jtag: DAP command 0x%02X failed (status 0x%02X)", cmd, resp[1])
	}
	return nil
}

func encodeResetTarget() []byte {
	return []byte{cmdResetTarget}
}

// encodeJTAGSequence builds a DAP_JTAG_Sequence command from segments:
// [cmd][count]([info][tdi...])*.
func encodeJTAGSequence(seqs []dapSequence) []byte {
	size := 2
	for _, s := range seqs {
		size += 1 + len(s.tdi)
	}
	cmd := make([]byte, 0, size)
	cmd = append(cmd, cmdJTAGSequence, byte(len(seqs)))
	for _, s := range seqs {
		cmd = append(cmd, s.info)
		cmd = append(cmd, s.tdi...)
	}
	return cmd
}

// decodeJTAGSequence extracts the TDO bytes for every capturing segment.
func decodeJTAGSequence(resp []byte, seqs []dapSequence) ([][]byte, error) {
	if err := decodeStatus(resp, cmdJTAGSequence); err != nil {
		return nil, err
	}
	var out [][]byte
	offset := 2
	for _, s := range seqs {
		if !s.capturesTDO() {
			continue
		}
		n := (s.tckCount() + 7) / 8
		if offset+n > len(resp) {
			return nil, fmt.Errorf("jtag: truncated TDO data in DAP_JTAG_Sequence response")
		}
		out = append(out, append([]byte(nil), resp[offset:offset+n]...))
		offset += n
	}
	return out, nil
}

func checkResponse(resp []byte, cmd byte) error {
	if len(resp) < 2 {
		return fmt.Errorf("jtag: DAP response too short")
	}
	if resp[0] != cmd {
		return fmt.Errorf("jtag: DAP response for command 0x%02X, expected 0x%02X", resp[0], cmd)
	}
	return nil
}
