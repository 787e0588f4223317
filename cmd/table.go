package cmd

import (
	"github.com/pterm/pterm"
)

// PrintTableNoPad renders tableData without pterm's default left padding so
// rows line up with the surrounding printer output.
func PrintTableNoPad(tableData pterm.TableData, hasHeader bool) {
	table := pterm.DefaultTable.
		WithHasHeader(hasHeader).
		WithLeftAlignment().
		WithData(tableData)
	if err := table.Render(); err != nil {
		pterm.Error.Printf("failed to render table: %v\n", err)
	}
}
