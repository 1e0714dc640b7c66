package scan

import "fmt"

// BypassIR is the reserved current-instruction value that marks a device as
// bypassed on the next chain-wide IR write.
const BypassIR uint32 = 0xFFFFFFFF

// Device describes one TAP on the scan chain. The offsets are fixed when the
// chain is assembled; only CurrentIR changes afterwards, rewritten by every
// addressing operation.
type Device struct {
	Name   string
	Index  int
	Router bool

	// IRLength is the width of this device's instruction register.
	// IRPrescan/IRPostscan count the other devices' IR bits shifted
	// before/after this device's own bits in one chain-wide IR operation.
	IRLength   int
	IRPrescan  int
	IRPostscan int

	// DRPrescan/DRPostscan count the single bypass bits contributed by the
	// other devices around this device's data register.
	DRPrescan  int
	DRPostscan int

	CurrentIR uint32
}

// Chain is the explicit device-table context every addressing operation works
// against. It owns nothing but the table ordering; the devices themselves are
// shared with the caller.
type Chain struct {
	name    string
	seq     Sequencer
	devices []*Device
}

// New assembles a chain from an ordered device table and the sequencer that
// drives it. The table layout is validated up front: for every device the
// prescan, IR length and postscan must tile the full chain width, and the DR
// offsets must count one bypass bit per other device.
func New(name string, seq Sequencer, devices []*Device) (*Chain, error) {
	if seq == nil {
		return nil, fmt.Errorf("scan: sequencer is nil")
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("scan: chain has no devices")
	}

	total := 0
	for _, d := range devices {
		total += d.IRLength
	}

	pre := 0
	for i, d := range devices {
		if d.IRLength < 2 {
			return nil, fmt.Errorf("scan: device %q IR length %d below IEEE minimum of 2", d.Name, d.IRLength)
		}
		if d.IRPrescan != pre || d.IRPostscan != total-pre-d.IRLength {
			return nil, fmt.Errorf("scan: device %q IR offsets %d+%d+%d do not tile the %d-bit chain",
				d.Name, d.IRPrescan, d.IRLength, d.IRPostscan, total)
		}
		if d.DRPrescan != i || d.DRPostscan != len(devices)-1-i {
			return nil, fmt.Errorf("scan: device %q DR offsets %d/%d disagree with position %d of %d",
				d.Name, d.DRPrescan, d.DRPostscan, i, len(devices))
		}
		d.Index = i
		pre += d.IRLength
	}

	return &Chain{
		name:    name,
		seq:     seq,
		devices: append([]*Device(nil), devices...),
	}, nil
}

// Name returns the chain's label from the topology description.
func (c *Chain) Name() string {
	return c.name
}

// Devices returns the table in chain order. The slice is a copy, the entries
// are not.
func (c *Chain) Devices() []*Device {
	out := make([]*Device, len(c.devices))
	copy(out, c.devices)
	return out
}

// Device returns the named device.
func (c *Chain) Device(name string) (*Device, bool) {
	for _, d := range c.devices {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// Router returns the first device flagged as a router TAP.
func (c *Chain) Router() (*Device, bool) {
	for _, d := range c.devices {
		if d.Router {
			return d, true
		}
	}
	return nil, false
}

// Contains reports whether d is an entry of this chain's table.
func (c *Chain) Contains(d *Device) bool {
	for _, entry := range c.devices {
		if entry == d {
			return true
		}
	}
	return false
}

// TotalIRBits is the summed instruction register width of the whole chain.
func (c *Chain) TotalIRBits() int {
	total := 0
	for _, d := range c.devices {
		total += d.IRLength
	}
	return total
}

// Sequencer exposes the transport the chain was assembled with.
func (c *Chain) Sequencer() Sequencer {
	return c.seq
}
