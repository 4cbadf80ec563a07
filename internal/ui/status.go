// Package ui implements the interactive migration status browser shown by
// "hisdb migrate status --tui".
package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/hlop3z/hisdb/internal/ast"
	"github.com/hlop3z/hisdb/internal/cli"
	"github.com/hlop3z/hisdb/internal/drift"
	"github.com/hlop3z/hisdb/internal/engine"
	"github.com/hlop3z/hisdb/internal/engine/state"
)

// MigrationItem is one row of the history tab.
type MigrationItem struct {
	ID         string
	Name       string
	Status     string // applied, pending, orphaned
	AppliedAt  string
	Operations []string // Up operations, described
}

// ColumnItem is one column of a table in the schema tab.
type ColumnItem struct {
	Name     string
	Type     string
	Nullable bool
	PK       bool
	Default  string
}

// TableItem is one table of the applied schema.
type TableItem struct {
	Name        string
	Columns     []ColumnItem
	Indexes     []string
	ForeignKeys []string
}

// StatusData holds everything the status browser displays.
type StatusData struct {
	Dialect     string
	Fingerprint string
	LockHolder  string

	Migrations []MigrationItem
	Tables     []TableItem
}

// NewStatusData collects browser data from a status listing, the registry
// (for operation lists) and the schema implied by applied history.
func NewStatusData(statuses []engine.MigrationStatus, registry []engine.Migration, schema *state.Schema) StatusData {
	ops := make(map[string][]string, len(registry))
	for _, m := range registry {
		descs := make([]string, len(m.Up))
		for i, op := range m.Up {
			descs[i] = ast.Describe(op)
		}
		ops[m.ID] = descs
	}

	var data StatusData
	for _, s := range statuses {
		item := MigrationItem{
			ID:         s.ID,
			Name:       s.Name,
			Status:     cli.StatusLabel(s),
			Operations: ops[s.ID],
		}
		if !s.AppliedAt.IsZero() {
			item.AppliedAt = s.AppliedAt.UTC().Format(cli.TimeDisplay)
		}
		data.Migrations = append(data.Migrations, item)
	}

	if schema != nil {
		for _, name := range schema.TableNames() {
			data.Tables = append(data.Tables, tableItem(schema.Table(name)))
		}
	}
	return data
}

func tableItem(t *state.Table) TableItem {
	pk := make(map[string]bool, len(t.PrimaryKey))
	for _, c := range t.PrimaryKey {
		pk[c] = true
	}

	item := TableItem{Name: t.Name}
	for _, c := range t.Columns {
		item.Columns = append(item.Columns, ColumnItem{
			Name:     c.Name,
			Type:     columnType(c),
			Nullable: c.Nullable,
			PK:       pk[c.Name],
			Default:  c.Default,
		})
	}
	for _, idx := range t.Indexes {
		item.Indexes = append(item.Indexes, indexLabel(idx))
	}
	for _, fk := range t.ForeignKeys {
		item.ForeignKeys = append(item.ForeignKeys, fmt.Sprintf("%s: %s -> %s.%s ON DELETE %s",
			fk.Name, fk.Column, fk.RefTable, fk.RefColumn, fk.OnDelete))
	}
	return item
}

func columnType(c *ast.ColumnDef) string {
	switch {
	case c.Type == ast.TypeDecimal:
		return fmt.Sprintf("%s(%d,%d)", c.Type, c.Precision, c.Scale)
	case c.MaxLength > 0:
		return fmt.Sprintf("%s(%d)", c.Type, c.MaxLength)
	}
	return c.Type.String()
}

func indexLabel(idx *ast.IndexDef) string {
	kind := "index"
	if idx.Unique {
		kind = "unique"
	}
	s := fmt.Sprintf("%s (%s) %s", idx.Name, strings.Join(idx.Columns, ", "), kind)
	if idx.Filter != "" {
		s += " WHERE " + idx.Filter
	}
	return s
}

// -----------------------------------------------------------------------------
// Browser
// -----------------------------------------------------------------------------

// ShowStatus runs the status browser until the user quits.
func ShowStatus(data StatusData) error {
	app := tview.NewApplication()
	layout, focus := buildStatusLayout(app, data)
	return app.SetRoot(layout, true).SetFocus(focus).EnableMouse(true).Run()
}

// statusView holds the widgets of the browser so key handling and tests can
// reach them.
type statusView struct {
	pages   *tview.Pages
	tabBar  *tview.TextView
	panels  map[string][]tview.Primitive
	current string
	panel   int
}

func buildStatusLayout(app *tview.Application, data StatusData) (tview.Primitive, tview.Primitive) {
	v := &statusView{
		pages:   tview.NewPages(),
		panels:  make(map[string][]tview.Primitive),
		current: tabHistory,
	}

	history, historyPanels := newHistoryTab(data)
	schema, schemaPanels := newSchemaTab(data)
	v.panels[tabHistory] = historyPanels
	v.panels[tabSchema] = schemaPanels
	v.pages.AddPage(tabHistory, history, true, true)
	v.pages.AddPage(tabSchema, schema, true, false)

	header := tview.NewTextView().
		SetText(headerText(data)).
		SetTextColor(Theme.Text)
	header.SetBackgroundColor(Theme.Primary)

	v.tabBar = tview.NewTextView().SetDynamicColors(true)
	v.tabBar.SetBackgroundColor(Theme.Background)
	v.tabBar.SetText(tabBarText(v.current))

	hints := tview.NewTextView().
		SetText(hintsStatus).
		SetTextColor(Theme.TextDim).
		SetTextAlign(tview.AlignCenter)
	hints.SetBackgroundColor(Theme.Background)

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(header, 1, 0, false).
		AddItem(v.tabBar, 1, 0, false).
		AddItem(v.pages, 0, 1, true).
		AddItem(hints, 1, 0, false)
	layout.SetBackgroundColor(Theme.Background)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEscape:
			app.Stop()
			return nil
		case tcell.KeyTab:
			app.SetFocus(v.nextPanel())
			return nil
		}
		switch event.Rune() {
		case 'q':
			app.Stop()
			return nil
		case '1':
			app.SetFocus(v.switchTo(tabHistory))
			return nil
		case '2':
			app.SetFocus(v.switchTo(tabSchema))
			return nil
		case 'j':
			return tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone)
		case 'k':
			return tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone)
		case 'g':
			return tcell.NewEventKey(tcell.KeyHome, 0, tcell.ModNone)
		case 'G':
			return tcell.NewEventKey(tcell.KeyEnd, 0, tcell.ModNone)
		}
		return event
	})

	return layout, historyPanels[0]
}

func (v *statusView) switchTo(tab string) tview.Primitive {
	v.current = tab
	v.panel = 0
	v.pages.SwitchToPage(tab)
	v.tabBar.SetText(tabBarText(tab))
	return v.panels[tab][0]
}

func (v *statusView) nextPanel() tview.Primitive {
	panels := v.panels[v.current]
	v.panel = (v.panel + 1) % len(panels)
	return panels[v.panel]
}

func headerText(data StatusData) string {
	var applied, pending int
	for _, m := range data.Migrations {
		switch m.Status {
		case "applied":
			applied++
		case "pending":
			pending++
		}
	}
	parts := []string{" hisdb", data.Dialect, fmt.Sprintf("%d applied, %d pending", applied, pending)}
	if data.Fingerprint != "" {
		parts = append(parts, "schema "+drift.ShortHash(data.Fingerprint))
	}
	if data.LockHolder != "" {
		parts = append(parts, "locked by "+data.LockHolder)
	}
	return strings.Join(parts, "  |  ")
}

func tabBarText(active string) string {
	var b strings.Builder
	b.WriteString(" ")
	for _, tab := range []struct{ id, label string }{
		{tabHistory, "1 History"},
		{tabSchema, "2 Schema"},
	} {
		if tab.id == active {
			fmt.Fprintf(&b, "%s %s %s ", tagSelected, tab.label, tagEnd)
		} else {
			fmt.Fprintf(&b, " %s  ", tab.label)
		}
	}
	return b.String()
}

// framed gives a widget the browser's bordered panel look.
func framed(box *tview.Box, title string) {
	box.SetBackgroundColor(Theme.Background)
	box.SetBorder(true)
	box.SetBorderColor(Theme.Border)
	box.SetTitle(" " + title + " ")
	box.SetTitleColor(Theme.Accent)
}

// -----------------------------------------------------------------------------
// History tab
// -----------------------------------------------------------------------------

func newHistoryTab(data StatusData) (tview.Primitive, []tview.Primitive) {
	table := newHistoryTable(data.Migrations)
	details := tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	framed(details.Box, "Operations")

	show := func(row int) {
		details.Clear()
		if row < 1 || row > len(data.Migrations) {
			return
		}
		details.SetText(migrationDetails(data.Migrations[row-1]))
		details.ScrollToBeginning()
	}
	table.SetSelectionChangedFunc(func(row, _ int) { show(row) })
	if len(data.Migrations) > 0 {
		table.Select(1, 0)
		show(1)
	}

	flex := tview.NewFlex().
		AddItem(table, 0, 3, true).
		AddItem(details, 0, 2, false)
	return flex, []tview.Primitive{table, details}
}

func newHistoryTable(items []MigrationItem) *tview.Table {
	table := tview.NewTable().
		SetFixed(1, 0).
		SetSelectable(true, false).
		SetSelectedStyle(tcell.StyleDefault.Foreground(Theme.Highlight).Background(Theme.Selection))
	framed(table.Box, "History")

	for col, h := range []string{"ID", "NAME", "STATUS", "APPLIED AT"} {
		table.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(Theme.Accent).
			SetSelectable(false))
	}
	for i, m := range items {
		row := i + 1
		table.SetCell(row, 0, tview.NewTableCell(m.ID).SetTextColor(Theme.Text))
		table.SetCell(row, 1, tview.NewTableCell(m.Name).SetTextColor(Theme.Text).SetExpansion(1))
		table.SetCell(row, 2, tview.NewTableCell(m.Status).SetTextColor(statusColor(m.Status)))
		table.SetCell(row, 3, tview.NewTableCell(m.AppliedAt).SetTextColor(Theme.TextDim))
	}
	return table
}

func statusColor(status string) tcell.Color {
	switch status {
	case "applied":
		return Theme.Success
	case "pending":
		return Theme.Warning
	}
	return Theme.Error
}

func migrationDetails(m MigrationItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%sID:%s %s\n", tagLabel, tagReset, m.ID)
	fmt.Fprintf(&b, "%sName:%s %s\n", tagLabel, tagReset, m.Name)
	fmt.Fprintf(&b, "%sStatus:%s %s\n\n", tagLabel, tagReset, statusTag(m.Status)+m.Status+tagReset)
	if m.Status == "orphaned" {
		b.WriteString(tagError + "Recorded in history but missing from the registry." + tagReset + "\n")
		return b.String()
	}
	for i, op := range m.Operations {
		fmt.Fprintf(&b, "%s%2d%s %s\n", tagMuted, i, tagReset, tview.Escape(op))
	}
	return b.String()
}

func statusTag(status string) string {
	switch status {
	case "applied":
		return tagSuccess
	case "pending":
		return tagWarning
	}
	return tagError
}

// -----------------------------------------------------------------------------
// Schema tab
// -----------------------------------------------------------------------------

func newSchemaTab(data StatusData) (tview.Primitive, []tview.Primitive) {
	if len(data.Tables) == 0 {
		empty := tview.NewTextView().
			SetDynamicColors(true).
			SetTextAlign(tview.AlignCenter).
			SetText("\n\n" + tagMuted + "No tables. Apply migrations to build the schema." + tagReset)
		framed(empty.Box, "Schema")
		return empty, []tview.Primitive{empty}
	}

	list := tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true).
		SetSelectedBackgroundColor(Theme.Selection).
		SetSelectedFocusOnly(false).
		SetMainTextColor(Theme.Text)
	framed(list.Box, "Tables")

	columns := tview.NewTable().SetFixed(1, 0).SetSelectable(true, false)
	framed(columns.Box, "Columns")

	details := tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	framed(details.Box, "Keys")

	show := func(i int) {
		if i < 0 || i >= len(data.Tables) {
			return
		}
		t := data.Tables[i]
		fillColumns(columns, t)
		details.SetText(tableDetails(t))
		details.ScrollToBeginning()
	}
	for _, t := range data.Tables {
		list.AddItem(t.Name, "", 0, nil)
	}
	list.SetChangedFunc(func(i int, _, _ string, _ rune) { show(i) })
	show(0)

	flex := tview.NewFlex().
		AddItem(list, 0, 1, true).
		AddItem(columns, 0, 2, false).
		AddItem(details, 0, 2, false)
	return flex, []tview.Primitive{list, columns, details}
}

func fillColumns(table *tview.Table, t TableItem) {
	table.Clear()
	for col, h := range []string{"COLUMN", "TYPE", "NULL", "DEFAULT"} {
		table.SetCell(0, col, tview.NewTableCell(h).SetTextColor(Theme.Accent).SetSelectable(false))
	}
	for i, c := range t.Columns {
		name := c.Name
		if c.PK {
			name += " (pk)"
		}
		null := ""
		if c.Nullable {
			null = "yes"
		}
		row := i + 1
		table.SetCell(row, 0, tview.NewTableCell(name).SetTextColor(Theme.Text))
		table.SetCell(row, 1, tview.NewTableCell(c.Type).SetTextColor(Theme.Accent))
		table.SetCell(row, 2, tview.NewTableCell(null).SetTextColor(Theme.TextDim))
		table.SetCell(row, 3, tview.NewTableCell(c.Default).SetTextColor(Theme.TextDim))
	}
}

func tableDetails(t TableItem) string {
	var b strings.Builder
	b.WriteString(tagLabel + "Indexes" + tagReset + "\n")
	if len(t.Indexes) == 0 {
		b.WriteString(tagMuted + "  none" + tagReset + "\n")
	}
	for _, idx := range t.Indexes {
		b.WriteString("  " + tview.Escape(idx) + "\n")
	}
	b.WriteString("\n" + tagLabel + "Foreign keys" + tagReset + "\n")
	if len(t.ForeignKeys) == 0 {
		b.WriteString(tagMuted + "  none" + tagReset + "\n")
	}
	for _, fk := range t.ForeignKeys {
		b.WriteString("  " + tview.Escape(fk) + "\n")
	}
	return b.String()
}
