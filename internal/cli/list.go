package cli

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tansive/vaultconsole/internal/console/table"
	"github.com/tansive/vaultconsole/internal/metadata"
)

var listFlags tableFlags

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list KIND [flags]",
	Short: "List records of a kind, one page at a time",
	Long: `List records of a kind, one page of ten at a time. KIND is a kind name such
as dh, ds or project, or its backend path such as rdvcompdh. "vaultctl list
kinds" shows every kind.

Filters combine: a record is listed only when it matches the search text,
lies within the date range and equals every --filter value.

Examples:
  # First page of hubs
  vaultctl list dh

  # Satellites of project p1 mentioning "customer"
  vaultctl list ds -q customer --filter projectshortname=p1

  # Third page of links created in March, showing two columns
  vaultctl list dl --from 2024-03-01 --to 2024-03-31 -p 3 --columns compname,version`,
	Args: cobra.ExactArgs(1),
	RunE: listRecords,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listFlags.bind(listCmd, true)
}

// listRecords handles listing records of a specific kind
// It fetches the collection and renders the requested page locally
func listRecords(cmd *cobra.Command, args []string) error {
	if strings.EqualFold(args[0], "kinds") {
		printKinds()
		return nil
	}
	k, err := metadata.ParseKind(args[0])
	if err != nil {
		return err
	}
	view := metadata.View(k)
	st, err := listFlags.state(view.Columns)
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

	page := view.Render(records, st)
	if jsonOutput {
		printJSON(map[string]any{
			"result": 1,
			"kind":   string(k),
			"value":  page,
		})
		return nil
	}
	fmt.Printf("%s:\n", cases.Title(language.English).String(k.Label()))
	printPage(page)
	return nil
}

func printKinds() {
	if jsonOutput {
		kinds := []map[string]any{}
		for _, k := range metadata.AllKinds() {
			kinds = append(kinds, map[string]any{
				"kind":      string(k),
				"path":      k.Path(),
				"label":     k.Label(),
				"component": k.IsComponent(),
			})
		}
		printJSON(map[string]any{"result": 1, "value": kinds})
		return
	}
	rows := [][]string{}
	for _, k := range metadata.AllKinds() {
		kind := "reference"
		if k.IsComponent() {
			kind = "component"
		}
		rows = append(rows, []string{string(k), k.Path(), k.Label(), kind})
	}
	printRows([]string{"KIND", "PATH", "LABEL", "TYPE"}, rows)
}

// printPage prints the visible cells of one page followed by its footer.
func printPage(page table.Page[metadata.Record]) {
	if len(page.Headers) == 0 {
		fmt.Println("No columns selected")
	} else {
		headers := make([]string, 0, len(page.Headers))
		for _, h := range page.Headers {
			headers = append(headers, strings.ToUpper(h.Label))
		}
		printRows(headers, page.Cells)
	}
	fmt.Println()
	fmt.Println(page.Footer)
	if page.TotalPages > 1 {
		fmt.Printf("Page %d of %d\n", page.Page, page.TotalPages)
	}
}

// maxCellWidth truncates long cells so rows stay on one line.
const maxCellWidth = 40

// printRows prints headers and rows as left-aligned padded columns.
func printRows(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	clipped := make([][]string, len(rows))
	for r, row := range rows {
		clipped[r] = make([]string, len(row))
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			cell = clip(cell)
			clipped[r][i] = cell
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}
	printLine(headers, widths)
	for _, row := range clipped {
		printLine(row, widths)
	}
}

func printLine(cells []string, widths []int) {
	var b strings.Builder
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		if i == len(widths)-1 {
			b.WriteString(cell)
			break
		}
		b.WriteString(cell)
		b.WriteString(strings.Repeat(" ", w-utf8.RuneCountInString(cell)+2))
	}
	fmt.Println(strings.TrimRight(b.String(), " "))
}

func clip(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if utf8.RuneCountInString(s) <= maxCellWidth {
		return s
	}
	r := []rune(s)
	return string(r[:maxCellWidth-3]) + "..."
}
