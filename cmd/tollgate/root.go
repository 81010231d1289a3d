package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "tollgate",
	Short: "Tollgate - usage-budget admission control for metered AI backends",
	Long: `Tollgate meters calls to pay-per-use AI providers against per-user
budgets and rate limits.

It provides:
  - Pre-call cost estimation from provider pricing tables
  - Admission control against daily/monthly budgets and request rates
  - Usage recording with durable history
  - Threshold alerts as users approach their limits
  - Cost analytics and optimization suggestions`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "tollgate.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
