package cmd

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceICEPick/pkg/jtag"
	"github.com/spf13/cobra"
)

var probesCmd = &cobra.Command{
	Use:   "probes",
	Short: "List connected CMSIS-DAP probes",
	Long: `Scan the USB bus for CMSIS-DAP probes and print a summary of the
detected devices. Use this to verify connectivity before running identify.`,
	RunE: runProbes,
}

func init() {
	rootCmd.AddCommand(probesCmd)
}

func runProbes(cmd *cobra.Command, args []string) error {
	probes, err := jtag.EnumerateProbes()
	if err != nil {
		return fmt.Errorf("enumerate probes: %w", err)
	}

	if len(probes) == 0 {
		fmt.Println("No probes found.")
		return nil
	}

	fmt.Println("Detected CMSIS-DAP probes:")
	for _, p := range probes {
		fmt.Printf("  - %s (VID:PID %04X:%04X, serial %s)\n",
			p.Description, p.VID, p.PID, p.SerialNumber)
	}
	return nil
}
