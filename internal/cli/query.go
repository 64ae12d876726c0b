package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tansive/vaultconsole/internal/console/querypanel"
)

// envQueryDSN is read when neither --dsn nor the config file names a warehouse.
const envQueryDSN = "VAULT_QUERY_DSN"

var (
	queryDSN     string
	queryTable   string
	queryLimit   int
	queryTimeout time.Duration
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query [SQL] [flags]",
	Short: "Run a read-only query against the warehouse",
	Long: `Run a single SELECT or WITH statement against the warehouse inside a
read-only transaction, or preview a table with --table. Results are cut off
at the row limit.

The warehouse is taken from --dsn, then $` + envQueryDSN + `, then query_dsn in
the config file.

Examples:
  vaultctl query "SELECT hub_key, load_ts FROM raw_vault.h_customer LIMIT 5"
  vaultctl query --table raw_vault.h_customer`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

// resolveDSN applies the flag, environment and config file precedence.
func resolveDSN() string {
	if queryDSN != "" {
		return queryDSN
	}
	if dsn := os.Getenv(envQueryDSN); dsn != "" {
		return dsn
	}
	if cfg, err := readConfig(configFile); err == nil {
		return cfg.QueryDSN
	}
	return ""
}

func runQuery(cmd *cobra.Command, args []string) error {
	if (len(args) == 0) == (queryTable == "") {
		return fmt.Errorf("give either a SQL statement or --table")
	}
	var schema, table string
	if queryTable != "" {
		var ok bool
		schema, table, ok = strings.Cut(queryTable, ".")
		if !ok {
			return fmt.Errorf("--table must be schema.table")
		}
	}

	dsn := resolveDSN()
	if dsn == "" {
		return fmt.Errorf("no warehouse configured. Use --dsn or set %s", envQueryDSN)
	}
	ctx := cmd.Context()
	panel, err := querypanel.Open(ctx, querypanel.Config{
		DSN:              dsn,
		StatementTimeout: queryTimeout,
		RowLimit:         queryLimit,
	})
	if err != nil {
		return err
	}
	defer panel.Close()

	var res *querypanel.Result
	if queryTable != "" {
		res, err = panel.Preview(ctx, schema, table)
	} else {
		res, err = panel.Run(ctx, args[0])
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]any{"result": 1, "value": res})
		return nil
	}
	rows := make([][]string, 0, len(res.Rows))
	for _, r := range res.Rows {
		row := make([]string, 0, len(r))
		for _, v := range r {
			row = append(row, sqlCell(v))
		}
		rows = append(rows, row)
	}
	printRows(res.Columns, rows)
	fmt.Println()
	fmt.Printf("%d row(s) in %d ms\n", len(res.Rows), res.ElapsedMs)
	if res.Truncated {
		warnLabel.Println("Result truncated at the row limit")
	}
	return nil
}

func sqlCell(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return t.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

func init() {
	queryCmd.Flags().StringVar(&queryDSN, "dsn", "", "Warehouse connection string")
	queryCmd.Flags().StringVarP(&queryTable, "table", "t", "", "Preview schema.table instead of running SQL")
	queryCmd.Flags().IntVar(&queryLimit, "limit", querypanel.DefaultRowLimit, "Maximum rows to return")
	queryCmd.Flags().DurationVar(&queryTimeout, "timeout", querypanel.DefaultStatementTimeout, "Statement timeout")

	rootCmd.AddCommand(queryCmd)
}
