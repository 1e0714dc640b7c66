package jtag

import (
	"fmt"
	"time"

	"github.com/google/gousb"
)

const (
	// Default probe: Raspberry Pi Debug Probe / Picoprobe in CMSIS-DAP mode.
	VendorIDRaspberryPi = 0x2E8A
	ProductIDCMSISDAP   = 0x000C

	defaultPacketSize = 64
	defaultUSBTimeout = 5 * time.Second
)

// usbTransport exchanges fixed-size CMSIS-DAP packets over USB bulk endpoints.
type usbTransport struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	intf *gousb.Interface

	epOut *gousb.OutEndpoint
	epIn  *gousb.InEndpoint

	packetSize int
}

func openUSBTransport(vid, pid uint16) (*usbTransport, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("jtag: USB open failed: %w", err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("jtag: probe not found (VID:0x%04X PID:0x%04X)", vid, pid)
	}

	// Detach kernel drivers where the platform requires it; failure is
	// non-fatal elsewhere.
	_ = dev.SetAutoDetach(true)

	t := &usbTransport{
		ctx:        ctx,
		dev:        dev,
		packetSize: defaultPacketSize,
	}
	if err := t.claim(); err != nil {
		dev.Close()
		ctx.Close()
		return nil, err
	}
	return t, nil
}

// claim locates the vendor-class interface and its bulk endpoint pair.
func (t *usbTransport) claim() error {
	cfg, err := t.dev.Config(1)
	if err != nil {
		return fmt.Errorf("jtag: USB config: %w", err)
	}

	intfNum := 0
	for _, intf := range cfg.Desc.Interfaces {
		if len(intf.AltSettings) > 0 && intf.AltSettings[0].Class == gousb.ClassVendorSpec {
			intfNum = intf.Number
			break
		}
	}

	intf, err := cfg.Interface(intfNum, 0)
	if err != nil {
		return fmt.Errorf("jtag: claim interface %d: %w", intfNum, err)
	}
	t.intf = intf

	var outNum, inNum int
	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		switch ep.Direction {
		case gousb.EndpointDirectionOut:
			if outNum == 0 {
				outNum = ep.Number
			}
		case gousb.EndpointDirectionIn:
			if inNum == 0 {
				inNum = ep.Number
				t.packetSize = ep.MaxPacketSize
			}
		}
	}
	if outNum == 0 || inNum == 0 {
		intf.Close()
		return fmt.Errorf("jtag: CMSIS-DAP bulk endpoints not found")
	}

	if t.epOut, err = intf.OutEndpoint(outNum); err != nil {
		intf.Close()
		return fmt.Errorf("jtag: open OUT endpoint: %w", err)
	}
	if t.epIn, err = intf.InEndpoint(inNum); err != nil {
		intf.Close()
		return fmt.Errorf("jtag: open IN endpoint: %w", err)
	}
	return nil
}

// roundTrip sends one command packet and reads the response packet. CMSIS-DAP
// packets are fixed size; commands are zero-padded.
func (t *usbTransport) roundTrip(cmd []byte) ([]byte, error) {
	if len(cmd) > t.packetSize {
		return nil, fmt.Errorf("jtag: command of %d bytes exceeds %d-byte packet", len(cmd), t.packetSize)
	}
	packet := make([]byte, t.packetSize)
	copy(packet, cmd)
	if _, err := t.epOut.Write(packet); err != nil {
		return nil, fmt.Errorf("jtag: USB write: %w", err)
	}

	resp := make([]byte, t.packetSize)
	n, err := t.epIn.Read(resp)
	if err != nil {
		return nil, fmt.Errorf("jtag: USB read: %w", err)
	}
	return resp[:n], nil
}

func (t *usbTransport) Close() error {
	if t.intf != nil {
		t.intf.Close()
		t.intf = nil
	}
	if t.dev != nil {
		t.dev.Close()
		t.dev = nil
	}
	if t.ctx != nil {
		t.ctx.Close()
		t.ctx = nil
	}
	return nil
}

// ProbeInfo describes a connected CMSIS-DAP capable USB device.
type ProbeInfo struct {
	VID          uint16
	PID          uint16
	SerialNumber string
	Description  string
}

// EnumerateProbes lists connected CMSIS-DAP probes matching the known VID/PID.
func EnumerateProbes() ([]ProbeInfo, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == VendorIDRaspberryPi && desc.Product == ProductIDCMSISDAP
	})
	if err != nil && err != gousb.ErrorAccess {
		return nil, fmt.Errorf("jtag: USB enumeration: %w", err)
	}

	probes := make([]ProbeInfo, 0, len(devs))
	for _, dev := range devs {
		serial, _ := dev.SerialNumber()
		manufacturer, _ := dev.Manufacturer()
		product, _ := dev.Product()
		probes = append(probes, ProbeInfo{
			VID:          uint16(dev.Desc.Vendor),
			PID:          uint16(dev.Desc.Product),
			SerialNumber: serial,
			Description:  fmt.Sprintf("%s %s", manufacturer, product),
		})
		dev.Close()
	}
	return probes, nil
}
