package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tansive/vaultconsole/internal/metadata"
	"github.com/tansive/vaultconsole/internal/vaultapi"
)

var ignoreErrors bool

// recordBackend is the part of the backend client used by the manifest commands.
type recordBackend interface {
	List(ctx context.Context, k metadata.Kind) ([]metadata.Record, error)
	Test(ctx context.Context, rec metadata.Record) (*vaultapi.Result, error)
	Create(ctx context.Context, rec metadata.Record) (*vaultapi.Result, error)
	UpdateRecord(ctx context.Context, rec metadata.Record, changed []string) (*vaultapi.Result, error)
}

var _ recordBackend = (*vaultapi.Client)(nil)

// createCmd represents the create command
var createCmd = &cobra.Command{
	Use:   "create -f FILENAME [flags]",
	Short: "Create component records from a manifest file",
	Long: `Create component records from a manifest file. Each YAML document names a
kind and carries the record under spec. Every record is checked locally for
required fields, then validated by the backend, then created. Processing stops
at the first failure unless --ignore-errors is given.

Values of the form {{ .ENV.NAME }} are replaced from the environment or a .env
file next to the manifest.

Examples:
  # Create the hubs of a project
  vaultctl create -f hubs.yaml

  # Read the manifest from stdin and keep going past failures
  cat links.yaml | vaultctl create -f - -i`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runManifestCommand(cmd, "Created", createManifests)
	},
}

// manifestFunc applies manifests against the backend and reports each one.
type manifestFunc func(ctx context.Context, b recordBackend, ms []Manifest, ignoreErrors bool) []outcome

// runManifestCommand loads the -f manifests, applies fn and prints the report.
func runManifestCommand(cmd *cobra.Command, verb string, fn manifestFunc) error {
	filename, err := cmd.Flags().GetString("filename")
	if err != nil {
		return err
	}
	if filename == "" {
		return fmt.Errorf("filename is required")
	}
	manifests, err := LoadManifests(filename)
	if err != nil {
		return err
	}
	if len(manifests) == 0 {
		return fmt.Errorf("%s contains no records", filename)
	}
	backend, err := newBackend()
	if err != nil {
		return err
	}

	outcomes := fn(cmd.Context(), backend, manifests, ignoreErrors)
	printOutcomes(outcomes, verb, ignoreErrors)
	if hasFailures(outcomes) && !ignoreErrors {
		return ErrAlreadyHandled
	}
	return nil
}

// checkRecord decodes and locally validates a manifest's record.
func checkRecord(m Manifest) (metadata.Record, error) {
	rec, err := m.Record()
	if err != nil {
		return nil, err
	}
	if err := metadata.Validate(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// createManifests validates then creates each record in order.
func createManifests(ctx context.Context, b recordBackend, ms []Manifest, ignoreErrors bool) []outcome {
	var outcomes []outcome
	for _, m := range ms {
		if m.ID != 0 {
			outcomes = append(outcomes, failed(m, fmt.Errorf("manifest carries id %d; use update", m.ID)))
		} else if msg, err := createOne(ctx, b, m); err != nil {
			outcomes = append(outcomes, failed(m, err))
		} else {
			outcomes = append(outcomes, succeeded(m, msg))
			continue
		}
		if !ignoreErrors {
			break
		}
	}
	return outcomes
}

func createOne(ctx context.Context, b recordBackend, m Manifest) (string, error) {
	rec, err := checkRecord(m)
	if err != nil {
		return "", err
	}
	if _, err := b.Test(ctx, rec); err != nil {
		return "", err
	}
	res, err := b.Create(ctx, rec)
	if err != nil {
		return "", err
	}
	return res.Message, nil
}

func init() {
	createCmd.Flags().StringP("filename", "f", "", "Manifest file to create records from, - for stdin")
	createCmd.MarkFlagRequired("filename")
	createCmd.Flags().BoolVarP(&ignoreErrors, "ignore-errors", "i", false, "Ignore errors and continue with the next record")

	rootCmd.AddCommand(createCmd)
}
