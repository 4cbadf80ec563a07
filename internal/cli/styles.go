package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	badgeApplied = lipgloss.NewStyle().
			Background(colorSuccess).
			Foreground(lipgloss.Color("0")).
			Padding(0, 1).
			Bold(true)

	badgePending = lipgloss.NewStyle().
			Background(colorWarning).
			Foreground(lipgloss.Color("0")).
			Padding(0, 1).
			Bold(true)

	badgeError = lipgloss.NewStyle().
			Background(colorError).
			Foreground(colorWhite).
			Padding(0, 1).
			Bold(true)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite).
			Background(colorPrimary).
			Padding(0, 2)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

// RenderBadge renders a status badge, or "[TEXT]" without colors.
func RenderBadge(text string, style lipgloss.Style) string {
	if !EnableColors() {
		return "[" + text + "]"
	}
	return style.Render(text)
}

func RenderAppliedBadge() string  { return RenderBadge("APPLIED", badgeApplied) }
func RenderPendingBadge() string  { return RenderBadge("PENDING", badgePending) }
func RenderOrphanedBadge() string { return RenderBadge("ORPHANED", badgeError) }

// RenderTitle renders a section title.
func RenderTitle(text string) string {
	if !EnableColors() {
		return "== " + text + " =="
	}
	return titleStyle.Render(text)
}

// RenderPanel renders content in a bordered panel tinted by color. Without
// colors the title is printed above the content.
func RenderPanel(title, content string, color lipgloss.Color) string {
	if !EnableColors() {
		return title + "\n" + content
	}
	head := lipgloss.NewStyle().Bold(true).Foreground(color).Render(title)
	return panelStyle.BorderForeground(color).Render(head + "\n\n" + content)
}

func RenderSuccessPanel(title, content string) string {
	return RenderPanel("✓ "+title, content, colorSuccess)
}

func RenderWarningPanel(title, content string) string {
	return RenderPanel("⚠ "+title, content, colorWarning)
}

func RenderErrorPanel(title, content string) string {
	return RenderPanel("✗ "+title, content, colorError)
}

// -----------------------------------------------------------------------------
// Tables
// -----------------------------------------------------------------------------

// StyledTable renders rows with a rounded border on a terminal and as
// space-aligned columns otherwise.
type StyledTable struct {
	headers []string
	rows    [][]string
	widths  []int
}

// NewStyledTable creates a table with the given column headers.
func NewStyledTable(headers ...string) *StyledTable {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	return &StyledTable{headers: headers, widths: widths}
}

// AddRow appends a row; missing cells are blank and extra cells dropped.
func (t *StyledTable) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	for i, cell := range row {
		if w := lipgloss.Width(cell); w > t.widths[i] {
			t.widths[i] = w
		}
	}
	t.rows = append(t.rows, row)
}

// Len returns the number of rows.
func (t *StyledTable) Len() int { return len(t.rows) }

func (t *StyledTable) String() string {
	if len(t.headers) == 0 {
		return ""
	}
	if !EnableColors() {
		return t.renderPlain()
	}
	return t.renderStyled()
}

func (t *StyledTable) renderPlain() string {
	var b strings.Builder
	writeLine := func(cells []string) {
		for i, c := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(padRight(c, t.widths[i]))
		}
		b.WriteString("\n")
	}

	writeLine(t.headers)
	seps := make([]string, len(t.widths))
	for i, w := range t.widths {
		seps[i] = strings.Repeat("-", w)
	}
	writeLine(seps)
	for _, row := range t.rows {
		writeLine(row)
	}
	return b.String()
}

func (t *StyledTable) renderStyled() string {
	var b strings.Builder
	border := lipgloss.NewStyle().Foreground(colorMuted)
	head := lipgloss.NewStyle().Bold(true).Foreground(colorHighlight)

	total := -1
	for _, w := range t.widths {
		total += w + 3
	}
	rule := strings.Repeat("─", total+2)

	writeLine := func(cells []string, style *lipgloss.Style) {
		b.WriteString(border.Render("│") + " ")
		for i, c := range cells {
			if i > 0 {
				b.WriteString(border.Render(" │ "))
			}
			cell := padRight(c, t.widths[i])
			if style != nil {
				cell = style.Render(cell)
			}
			b.WriteString(cell)
		}
		b.WriteString(" " + border.Render("│") + "\n")
	}

	b.WriteString(border.Render("╭"+rule+"╮") + "\n")
	writeLine(t.headers, &head)
	b.WriteString(border.Render("├"+rule+"┤") + "\n")
	for _, row := range t.rows {
		writeLine(row, nil)
	}
	b.WriteString(border.Render("╰"+rule+"╯") + "\n")
	return b.String()
}

// padRight pads s to width display cells, ignoring ANSI sequences.
func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
