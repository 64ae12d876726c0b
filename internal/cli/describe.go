package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tansive/vaultconsole/internal/console/form"
	"github.com/tansive/vaultconsole/internal/metadata"
)

// describeCmd represents the describe command
var describeCmd = &cobra.Command{
	Use:   "describe KIND",
	Short: "Describe the columns and required fields of a kind",
	Long: `Describe a record kind: its backend path, table columns, the fields a
manifest must set and, for component kinds, the collections its form draws
options from.

Example:
  vaultctl describe ds`,
	Args: cobra.ExactArgs(1),
	RunE: describeKind,
}

type kindDescription struct {
	Kind      string   `json:"kind"`
	Path      string   `json:"path"`
	Label     string   `json:"label"`
	Component bool     `json:"component"`
	MultiRow  bool     `json:"multi_row"`
	Columns   []string `json:"columns"`
	Required  []string `json:"required"`
	Fields    []string `json:"form_fields,omitempty"`
	Sources   []string `json:"sources,omitempty"`
}

func describe(k metadata.Kind) kindDescription {
	d := kindDescription{
		Kind:      string(k),
		Path:      k.Path(),
		Label:     k.Label(),
		Component: k.IsComponent(),
		MultiRow:  k.IsMultiRow(),
		Required:  metadata.RequiredFields(k),
	}
	for _, c := range metadata.Columns(k) {
		d.Columns = append(d.Columns, c.Key)
	}
	if spec, err := form.SpecFor(k); err == nil {
		d.Fields = spec.Fields()
		for _, src := range spec.Sources() {
			d.Sources = append(d.Sources, string(src))
		}
	}
	return d
}

func describeKind(cmd *cobra.Command, args []string) error {
	k, err := metadata.ParseKind(args[0])
	if err != nil {
		return err
	}
	d := describe(k)
	if jsonOutput {
		printJSON(map[string]any{"result": 1, "value": d})
		return nil
	}
	fmt.Printf("Kind:      %s\n", d.Kind)
	fmt.Printf("Label:     %s\n", d.Label)
	fmt.Printf("Path:      %s\n", d.Path)
	fmt.Printf("Component: %t\n", d.Component)
	if d.MultiRow {
		fmt.Println("Rows:      one record per row")
	}
	fmt.Printf("Columns:   %s\n", strings.Join(d.Columns, ", "))
	fmt.Printf("Required:  %s\n", strings.Join(d.Required, ", "))
	if len(d.Fields) > 0 {
		fmt.Printf("Form:      %s\n", strings.Join(d.Fields, ", "))
	}
	if len(d.Sources) > 0 {
		fmt.Printf("Sources:   %s\n", strings.Join(d.Sources, ", "))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
