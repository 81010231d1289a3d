package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tollgate-hq/tollgate/pkg/config"
	"tollgate-hq/tollgate/pkg/meter/pricing"
)

var validateFlags struct {
	pricingFile string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check a tollgate configuration file for errors.

All validation problems are reported together, so a misconfigured file
can be fixed in one pass. With --pricing the referenced pricing file is
checked too.

Examples:
  # Validate the default config file
  tollgate validate

  # Validate a specific file plus its pricing table
  tollgate validate --config prod.yaml --pricing prices.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.pricingFile, "pricing", "", "pricing file to validate (defaults to the configured path)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: invalid\n\n", cfgFile)
			for _, fe := range verr.Errors {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", fe.Error())
			}
			return fmt.Errorf("%d configuration errors", len(verr.Errors))
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", cfgFile)
	if verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "  default daily limit:   $%.2f\n", cfg.Budget.DailyLimit)
		fmt.Fprintf(cmd.OutOrStdout(), "  default monthly limit: $%.2f\n", cfg.Budget.MonthlyLimit)
		fmt.Fprintf(cmd.OutOrStdout(), "  user overrides:        %d\n", len(cfg.Overrides))
		fmt.Fprintf(cmd.OutOrStdout(), "  storage backend:       %s\n", cfg.Storage.Backend)
	}

	pricingFile := validateFlags.pricingFile
	if pricingFile == "" {
		pricingFile = cfg.Pricing.FilePath
	}
	if pricingFile != "" {
		table := pricing.NewTable(nil)
		if err := table.LoadFile(pricingFile); err != nil {
			return fmt.Errorf("pricing file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (%d providers)\n", pricingFile, len(table.Providers()))
	}

	return nil
}
