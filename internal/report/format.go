// Package report renders optimizer responses for people: a plain-text
// summary and an HTML chart.
package report

import (
	"fmt"
	"strings"

	"cauldron-optimizer/internal/service"
)

const (
	gridRows = 3
	gridCols = 4
)

// Format produces the text summary of a response: the allocation, the
// score and the effects with a non-zero probability.
func Format(resp service.Response) string {
	var b strings.Builder

	if resp.Version != "" {
		fmt.Fprintf(&b, "Dataset: %s\n", resp.Version)
	}
	fmt.Fprintf(&b, "Score: %.2f\n", resp.Score)

	b.WriteString("Allocation:\n")
	if len(resp.Allocation) == gridRows*gridCols {
		for r := 0; r < gridRows; r++ {
			row := resp.Allocation[r*gridCols : (r+1)*gridCols]
			cells := make([]string, len(row))
			for i, a := range row {
				cells[i] = fmt.Sprintf("%2d", a)
			}
			fmt.Fprintf(&b, "  [%s]\n", strings.Join(cells, " "))
		}
	}
	for j, a := range resp.Allocation {
		if a == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %-20s x%d\n", itemName(resp, j), a)
	}

	b.WriteString("Effects:\n")
	if len(resp.Effects) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, e := range resp.Effects {
		fmt.Fprintf(&b, "  %-20s %6.2f%%  weight %.2f\n", e.Name, e.Value, e.Weight)
	}
	return b.String()
}

func itemName(resp service.Response, j int) string {
	if j < len(resp.ItemNames) && resp.ItemNames[j] != "" {
		return resp.ItemNames[j]
	}
	return fmt.Sprintf("item-%d", j+1)
}
