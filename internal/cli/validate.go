package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate -f FILENAME [flags]",
	Short: "Validate component records without storing them",
	Long: `Validate component records from a manifest file without storing them.
Each record is checked locally for required fields and then sent to the
backend's test endpoint. Every document is checked; the command fails if any
of them is invalid.

Example:
  vaultctl validate -f satellites.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ignoreErrors = false
		return runManifestCommand(cmd, "Valid", validateManifests)
	},
}

// validateManifests checks every record; it never stops early.
func validateManifests(ctx context.Context, b recordBackend, ms []Manifest, _ bool) []outcome {
	outcomes := make([]outcome, 0, len(ms))
	for _, m := range ms {
		rec, err := checkRecord(m)
		if err != nil {
			outcomes = append(outcomes, failed(m, err))
			continue
		}
		res, err := b.Test(ctx, rec)
		if err != nil {
			outcomes = append(outcomes, failed(m, err))
			continue
		}
		outcomes = append(outcomes, succeeded(m, res.Message))
	}
	return outcomes
}

func init() {
	validateCmd.Flags().StringP("filename", "f", "", "Manifest file to validate, - for stdin")
	validateCmd.MarkFlagRequired("filename")

	rootCmd.AddCommand(validateCmd)
}
