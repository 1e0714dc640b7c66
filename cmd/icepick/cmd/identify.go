package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/OpenTraceLab/OpenTraceICEPick/pkg/chainfile"
	"github.com/OpenTraceLab/OpenTraceICEPick/pkg/icepick"
	"github.com/OpenTraceLab/OpenTraceICEPick/pkg/jtag"
	"github.com/OpenTraceLab/OpenTraceICEPick/pkg/scan"
	"github.com/spf13/cobra"
)

var (
	chainFilePath string
	chainName     string
	deviceName    string
	routerType    string
)

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Identify the ICEPick router on the chain",
	Long: `Load the ICEPICKCODE instruction into the router TAP, bypassing every
other device on the chain, read the 32-bit controller code register and
check it against the expected router family.

Examples:
  # Identify on hardware via a CMSIS-DAP probe
  icepick identify --file boards/am335x.chain --adapter cmsisdap

  # Dry run against the built-in chain simulator
  icepick identify --file boards/am335x.chain --adapter sim --sim-code 0x2100B3D5

  # Bitbang over Raspberry Pi GPIO with custom pins
  icepick identify --adapter rpi --tck 11 --tms 25 --tdi 10 --tdo 9`,
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)

	identifyCmd.Flags().StringVarP(&chainFilePath, "file", "f", "icepick.chain",
		"chain description file")
	identifyCmd.Flags().StringVarP(&chainName, "chain", "c", "",
		"chain name (default: first chain in the file)")
	identifyCmd.Flags().StringVarP(&deviceName, "device", "d", "",
		"router device name (default: the device flagged router)")
	identifyCmd.Flags().StringVarP(&routerType, "type", "t", "d",
		"expected router family (c or d)")
	identifyCmd.Flags().StringVarP(&adapterType, "adapter", "a", "sim",
		"JTAG adapter type (sim, cmsisdap, rpi)")
	identifyCmd.Flags().IntVar(&adapterSpeed, "speed", 1_000_000,
		"TCK speed in Hz")
	identifyCmd.Flags().Uint32Var(&simCode, "sim-code", 0x2100B3D5,
		"simulator: controller code the router serves")
	identifyCmd.Flags().Uint8Var(&pinTCK, "tck", 11, "rpi: TCK GPIO pin (BCM)")
	identifyCmd.Flags().Uint8Var(&pinTMS, "tms", 25, "rpi: TMS GPIO pin (BCM)")
	identifyCmd.Flags().Uint8Var(&pinTDI, "tdi", 10, "rpi: TDI GPIO pin (BCM)")
	identifyCmd.Flags().Uint8Var(&pinTDO, "tdo", 9, "rpi: TDO GPIO pin (BCM)")
}

func runIdentify(cmd *cobra.Command, args []string) error {
	var want icepick.Variant
	switch routerType {
	case "c", "C":
		want = icepick.TypeC
	case "d", "D":
		want = icepick.TypeD
	default:
		return fmt.Errorf("unknown router family %q (use c or d)", routerType)
	}

	decl, err := loadChainDecl()
	if err != nil {
		return err
	}

	adapter, err := createAdapter(decl)
	if err != nil {
		return fmt.Errorf("failed to create adapter: %w", err)
	}
	defer closeAdapter(adapter)

	if err := adapter.SetSpeed(adapterSpeed); err != nil && !errors.Is(err, jtag.ErrNotImplemented) {
		return fmt.Errorf("failed to set speed: %w", err)
	}
	if verbose {
		if info, err := adapter.Info(); err == nil && info.Name != "" {
			fmt.Printf("Adapter: %s %s\n", info.Vendor, info.Name)
		}
	}

	wire := scan.NewWire(adapter)
	ch, err := chainfile.BuildChain(decl, wire)
	if err != nil {
		return err
	}

	dev, err := pickRouter(ch)
	if err != nil {
		return err
	}
	if verbose {
		fmt.Printf("Chain %s: %d devices, %d IR bits; addressing %q (prescan %d, postscan %d)\n",
			ch.Name(), len(ch.Devices()), ch.TotalIRBits(), dev.Name, dev.IRPrescan, dev.IRPostscan)
	}

	if err := wire.Reset(); err != nil {
		return fmt.Errorf("TAP reset: %w", err)
	}

	id, err := icepick.Identify(ch, dev, want)
	if err != nil {
		var mismatch *icepick.MismatchError
		if errors.As(err, &mismatch) {
			return fmt.Errorf("device %q on chain %q: %w", dev.Name, ch.Name(), mismatch)
		}
		return fmt.Errorf("identify: %w", err)
	}

	fmt.Println(id)
	return nil
}

// loadChainDecl parses the chain file and selects the requested chain.
func loadChainDecl() (*chainfile.ChainDecl, error) {
	p, err := chainfile.NewParser()
	if err != nil {
		return nil, err
	}
	file, err := p.ParseFile(chainFilePath)
	if err != nil {
		return nil, err
	}

	if chainName == "" {
		return file.Chains[0], nil
	}
	decl, ok := file.Chain(chainName)
	if !ok {
		return nil, fmt.Errorf("chain %q not found in %s", chainName, chainFilePath)
	}
	return decl, nil
}

// pickRouter selects the device to address: the named one, or the chain's
// router entry when no name was given.
func pickRouter(ch *scan.Chain) (*scan.Device, error) {
	if deviceName != "" {
		dev, ok := ch.Device(deviceName)
		if !ok {
			return nil, fmt.Errorf("device %q not found on chain %q", deviceName, ch.Name())
		}
		return dev, nil
	}
	dev, ok := ch.Router()
	if !ok {
		return nil, fmt.Errorf("chain %q has no device flagged router; use --device", ch.Name())
	}
	return dev, nil
}

func closeAdapter(adapter jtag.Adapter) {
	if closer, ok := adapter.(io.Closer); ok {
		closer.Close()
	}
}
