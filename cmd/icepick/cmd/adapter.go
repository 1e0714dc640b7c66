package cmd

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceICEPick/pkg/chainfile"
	"github.com/OpenTraceLab/OpenTraceICEPick/pkg/jtag"
)

var (
	adapterType  string
	adapterSpeed int
	simCode      uint32

	// Raspberry Pi GPIO bitbang pins (BCM numbering)
	pinTCK uint8
	pinTMS uint8
	pinTDI uint8
	pinTDO uint8
)

// createAdapter builds the selected JTAG backend. The simulator models the
// declared chain itself, with simCode served as the router's controller code.
func createAdapter(decl *chainfile.ChainDecl) (jtag.Adapter, error) {
	switch adapterType {
	case "sim", "simulator":
		devices := make([]jtag.SimDevice, len(decl.Devices))
		for i, d := range decl.Devices {
			devices[i] = jtag.SimDevice{IRLength: d.IRLength, Router: d.Router, Code: simCode}
		}
		return jtag.NewChainSim(devices)

	case "cmsisdap":
		return jtag.NewCMSISDAPAdapter(jtag.VendorIDRaspberryPi, jtag.ProductIDCMSISDAP)

	case "rpi":
		return jtag.NewRPiAdapter(jtag.RPiPins{TCK: pinTCK, TMS: pinTMS, TDI: pinTDI, TDO: pinTDO})

	default:
		return nil, fmt.Errorf("unknown adapter type %q (sim, cmsisdap, rpi)", adapterType)
	}
}
