package chainfile

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceICEPick/pkg/scan"
)

// BuildDevices turns a chain declaration into a scan device table with the
// IR and DR offsets computed from list order. Every device starts in bypass.
func BuildDevices(decl *ChainDecl) ([]*scan.Device, error) {
	if len(decl.Devices) == 0 {
		return nil, fmt.Errorf("chainfile: chain %q declares no devices", decl.Name)
	}

	total := 0
	names := make(map[string]bool, len(decl.Devices))
	for _, d := range decl.Devices {
		if d.IRLength < 2 {
			return nil, fmt.Errorf("chainfile: device %q IR length %d below IEEE minimum of 2", d.Name, d.IRLength)
		}
		if names[d.Name] {
			return nil, fmt.Errorf("chainfile: duplicate device %q in chain %q", d.Name, decl.Name)
		}
		names[d.Name] = true
		total += d.IRLength
	}

	devices := make([]*scan.Device, len(decl.Devices))
	pre := 0
	for i, d := range decl.Devices {
		devices[i] = &scan.Device{
			Name:       d.Name,
			Index:      i,
			Router:     d.Router,
			IRLength:   d.IRLength,
			IRPrescan:  pre,
			IRPostscan: total - pre - d.IRLength,
			DRPrescan:  i,
			DRPostscan: len(decl.Devices) - 1 - i,
			CurrentIR:  scan.BypassIR,
		}
		pre += d.IRLength
	}
	return devices, nil
}

// BuildChain assembles a scan.Chain from a declaration and the sequencer
// that will drive it.
func BuildChain(decl *ChainDecl, seq scan.Sequencer) (*scan.Chain, error) {
	devices, err := BuildDevices(decl)
	if err != nil {
		return nil, err
	}
	return scan.New(decl.Name, seq, devices)
}
