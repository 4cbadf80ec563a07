package alerr

import "sort"

// NewUnknownTableError creates an ErrUnknownTableReference for table, with a
// "did you mean" hint drawn from the tables that do exist.
func NewUnknownTableError(table string, known []string) *Error {
	return New(ErrUnknownTableReference, "table does not exist").
		WithTable(table).
		WithHelp(SuggestSimilar(table, sortedCopy(known)))
}

// NewUnknownColumnError creates an ErrUnknownColumnReference for table.column.
func NewUnknownColumnError(table, column string, known []string) *Error {
	return New(ErrUnknownColumnReference, "column does not exist").
		WithTable(table).
		WithColumn(column).
		WithHelp(SuggestSimilar(column, sortedCopy(known)))
}

// NewUnsupportedError creates an ErrUnsupportedFeature naming the dialect and feature.
func NewUnsupportedError(dialect, feature string) *Error {
	return Newf(ErrUnsupportedFeature, "%s does not support %s", dialect, feature).
		With("dialect", dialect)
}

// sortedCopy makes suggestions independent of map iteration order.
func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
