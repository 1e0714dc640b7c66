package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "icepick",
	Short: "ICEPick router TAP addressing tool",
	Long: `Address a TI ICEPick router TAP on a multi-device JTAG scan chain:
load instructions into one device while bypassing the rest, and identify
the router through its 32-bit controller code register.

Examples:
  icepick identify --file boards/am335x.chain                # Identify on hardware
  icepick identify --adapter sim --sim-code 0x2100B3D5       # Dry run on the simulator
  icepick chain --file boards/am335x.chain                   # Show the chain layout`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
