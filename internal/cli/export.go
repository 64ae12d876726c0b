package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tansive/vaultconsole/internal/console/export"
	"github.com/tansive/vaultconsole/internal/metadata"
)

var (
	exportFlags  tableFlags
	exportOutput string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export KIND [flags]",
	Short: "Export filtered records of a kind as CSV",
	Long: `Export every record of a kind that passes the filters, across all pages, as
CSV. The file is named after the kind's backend path and the current time
unless -o is given; -o - writes to stdout.

Examples:
  vaultctl export dh --filter projectshortname=p1
  vaultctl export ds -q customer -o satellites.csv`,
	Args: cobra.ExactArgs(1),
	RunE: exportRecords,
}

func exportRecords(cmd *cobra.Command, args []string) error {
	k, err := metadata.ParseKind(args[0])
	if err != nil {
		return err
	}
	view := metadata.View(k)
	st, err := exportFlags.state(view.Columns)
	if err != nil {
		return err
	}

	backend, err := newBackend()
	if err != nil {
		return err
	}
	records, err := backend.List(cmd.Context(), k)
	if err != nil {
		return err
	}

	filtered := view.Filter(records, st.Filter)
	rows := make([]json.RawMessage, 0, len(filtered))
	for _, rec := range filtered {
		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("unable to encode record: %w", err)
		}
		rows = append(rows, raw)
	}
	name, data := export.CSV(rows, k.Path(), time.Now())

	if exportOutput == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if exportOutput != "" {
		name = exportOutput
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return fmt.Errorf("unable to write %s: %w", name, err)
	}

	abs, _ := filepath.Abs(name)
	if jsonOutput {
		printJSON(map[string]any{
			"result": 1,
			"file":   abs,
			"rows":   len(rows),
		})
		return nil
	}
	okLabel.Printf("✓ Exported %d %s rows\n", len(rows), k.Label())
	fmt.Printf("File: %s\n", abs)
	return nil
}

func init() {
	exportFlags.bind(exportCmd, false)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file, - for stdout")

	rootCmd.AddCommand(exportCmd)
}
