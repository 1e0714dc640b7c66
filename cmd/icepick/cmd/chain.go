package cmd

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceICEPick/pkg/chainfile"
	"github.com/spf13/cobra"
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Show the scan chain layout from a chain file",
	Long: `Parse a chain description file and print every chain it declares with
the per-device IR widths and the prescan/postscan offsets derived from
list order. Devices are listed nearest-TDO first.

Examples:
  icepick chain --file boards/am335x.chain`,
	RunE: runChain,
}

func init() {
	rootCmd.AddCommand(chainCmd)

	chainCmd.Flags().StringVarP(&chainFilePath, "file", "f", "icepick.chain",
		"chain description file")
}

func runChain(cmd *cobra.Command, args []string) error {
	p, err := chainfile.NewParser()
	if err != nil {
		return err
	}
	file, err := p.ParseFile(chainFilePath)
	if err != nil {
		return err
	}

	for _, decl := range file.Chains {
		devices, err := chainfile.BuildDevices(decl)
		if err != nil {
			return err
		}
		total := 0
		for _, d := range devices {
			total += d.IRLength
		}

		fmt.Printf("chain %s (%d devices, %d IR bits)\n", decl.Name, len(devices), total)
		for _, d := range devices {
			role := ""
			if d.Router {
				role = "  router"
			}
			fmt.Printf("  %d: %-12s ir %2d  prescan %2d  postscan %2d%s\n",
				d.Index, d.Name, d.IRLength, d.IRPrescan, d.IRPostscan, role)
		}
	}
	return nil
}
