package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "spread",
		Short: "Stochastic simulation of invasive spread along road networks",
		Long: `spread simulates human-mediated dispersal of an invasive species over a
weighted spatial graph of map cells and road connections.

Each repetition starts from a single introduction point. Every iteration,
occupied cells emit jumps that travel a self-avoiding random walk along the
road network and found new populations where they stop. The final simulated
prevalence is scored against field observations; the "<empty> <score>" line
on stdout is what an optimizer reads.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.spread/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug, or trace (overrides config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newSampleCmd(),
		newGraphCmd(),
		newRunsCmd(),
		newConfigCmd(),
	)
	return rootCmd
}
