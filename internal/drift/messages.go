package drift

import (
	"fmt"
	"strings"
)

// FormatComparison renders a comparison for CLI output, e.g. the schema
// change a plan would make.
func FormatComparison(c *Comparison) string {
	if c == nil {
		return "No comparison available."
	}
	if c.Match {
		return fmt.Sprintf("No schema change  %s\n", ShortHash(c.BeforeRoot))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Schema change  %s -> %s\n", ShortHash(c.BeforeRoot), ShortHash(c.AfterRoot))

	for _, name := range c.Added {
		fmt.Fprintf(&b, "  + %s\n", name)
	}
	for _, name := range c.Removed {
		fmt.Fprintf(&b, "  - %s\n", name)
	}
	for _, name := range c.ModifiedTables() {
		fmt.Fprintf(&b, "  ~ %s\n", name)
		formatTableDiff(&b, c.TableDiffs[name], "      ")
	}
	return b.String()
}

// formatTableDiff writes the differences for a single table.
func formatTableDiff(b *strings.Builder, diff *TableDiff, indent string) {
	groups := []struct {
		label string
		mark  string
		names []string
	}{
		{"column", "+", diff.AddedColumns},
		{"column", "-", diff.RemovedColumns},
		{"column", "~", diff.ModifiedColumns},
		{"index", "+", diff.AddedIndexes},
		{"index", "-", diff.RemovedIndexes},
		{"index", "~", diff.ModifiedIndexes},
		{"foreign key", "+", diff.AddedFKs},
		{"foreign key", "-", diff.RemovedFKs},
		{"foreign key", "~", diff.ModifiedFKs},
	}
	for _, g := range groups {
		for _, name := range g.names {
			fmt.Fprintf(b, "%s%s %s %s\n", indent, g.mark, g.label, name)
		}
	}
}

// Summary returns a one-line count of a comparison.
func Summary(c *Comparison) string {
	if c == nil || c.Match {
		return "no schema change"
	}
	var parts []string
	if n := len(c.Added); n > 0 {
		parts = append(parts, fmt.Sprintf("%d added", n))
	}
	if n := len(c.Removed); n > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", n))
	}
	if n := len(c.TableDiffs); n > 0 {
		parts = append(parts, fmt.Sprintf("%d modified", n))
	}
	return strings.Join(parts, ", ")
}

// ShortHash returns the first 12 characters of a hash for display.
func ShortHash(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:12]
}
