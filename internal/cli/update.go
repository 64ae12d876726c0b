package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/tansive/vaultconsole/internal/metadata"
)

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update -f FILENAME [flags]",
	Short: "Update existing component records from a manifest file",
	Long: `Update existing component records from a manifest file. Each document names
the record with id and lists only the fields to change under spec. The fields
are merged onto the stored record, the result is checked for required fields
and only the changed fields, plus any names derived from them, are sent.

Example:
  # update.yaml
  kind: ds
  id: 42
  spec:
    satlattr: [name, email, phone]

  vaultctl update -f update.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runManifestCommand(cmd, "Updated", updateManifests)
	},
}

// updateManifests merges and sends each update in order. Collections are
// fetched once per kind.
func updateManifests(ctx context.Context, b recordBackend, ms []Manifest, ignoreErrors bool) []outcome {
	current := map[metadata.Kind][]metadata.Record{}
	var outcomes []outcome
	for _, m := range ms {
		msg, err := updateOne(ctx, b, m, current)
		if err == nil {
			outcomes = append(outcomes, succeeded(m, msg))
			continue
		}
		outcomes = append(outcomes, failed(m, err))
		if !ignoreErrors {
			break
		}
	}
	return outcomes
}

func updateOne(ctx context.Context, b recordBackend, m Manifest, current map[metadata.Kind][]metadata.Record) (string, error) {
	if m.ID == 0 {
		return "", fmt.Errorf("manifest has no id; use create for new records")
	}
	recs, ok := current[m.Kind]
	if !ok {
		var err error
		if recs, err = b.List(ctx, m.Kind); err != nil {
			return "", err
		}
		current[m.Kind] = recs
	}
	var stored metadata.Record
	for _, r := range recs {
		if r.RecordID() == m.ID {
			stored = r
			break
		}
	}
	if stored == nil {
		return "", fmt.Errorf("no %s with id %d", m.Kind.Label(), m.ID)
	}

	merged, err := mergeSpec(stored, m.Spec)
	if err != nil {
		return "", err
	}
	rec, err := metadata.Decode(m.Kind, merged)
	if err != nil {
		return "", err
	}
	if err := metadata.Validate(rec); err != nil {
		return "", err
	}
	res, err := b.UpdateRecord(ctx, rec, m.Fields())
	if err != nil {
		return "", err
	}
	return res.Message, nil
}

// mergeSpec overlays the top-level fields of spec onto the stored record.
func mergeSpec(stored metadata.Record, spec json.RawMessage) ([]byte, error) {
	base, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("unable to encode stored record: %w", err)
	}
	var setErr error
	gjson.ParseBytes(spec).ForEach(func(key, value gjson.Result) bool {
		base, setErr = sjson.SetRawBytes(base, gjson.Escape(key.String()), []byte(value.Raw))
		return setErr == nil
	})
	if setErr != nil {
		return nil, fmt.Errorf("unable to merge spec: %w", setErr)
	}
	return base, nil
}

func init() {
	updateCmd.Flags().StringP("filename", "f", "", "Manifest file with the updates, - for stdin")
	updateCmd.MarkFlagRequired("filename")
	updateCmd.Flags().BoolVarP(&ignoreErrors, "ignore-errors", "i", false, "Ignore errors and continue with the next record")

	rootCmd.AddCommand(updateCmd)
}
