package cli

import "github.com/charmbracelet/lipgloss"

// ANSI 256 palette, Cargo/rustc flavored.
var (
	colorPrimary   = lipgloss.Color("12")
	colorSuccess   = lipgloss.Color("10")
	colorWarning   = lipgloss.Color("11")
	colorError     = lipgloss.Color("9")
	colorMuted     = lipgloss.Color("8")
	colorHighlight = lipgloss.Color("14")
	colorWhite     = lipgloss.Color("15")
)

var (
	styleError   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	styleNote    = lipgloss.NewStyle().Foreground(colorHighlight).Bold(true)
	styleHelp    = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleCode    = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	stylePipe    = lipgloss.NewStyle().Foreground(colorPrimary)
	styleHeader  = lipgloss.NewStyle().Bold(true)
	styleDim     = lipgloss.NewStyle().Foreground(colorMuted)
	styleAccent  = lipgloss.NewStyle().Foreground(colorHighlight)
	styleAdded   = lipgloss.NewStyle().Foreground(colorSuccess)
	styleRemoved = lipgloss.NewStyle().Foreground(colorError)
	styleChanged = lipgloss.NewStyle().Foreground(colorWarning)
)

func render(style lipgloss.Style, s string) string {
	if !EnableColors() {
		return s
	}
	return style.Render(s)
}

func Error(s string) string     { return render(styleError, s) }
func Warning(s string) string   { return render(styleWarning, s) }
func Note(s string) string      { return render(styleNote, s) }
func Help(s string) string      { return render(styleHelp, s) }
func Success(s string) string   { return render(styleSuccess, s) }
func Code(s string) string      { return render(styleCode, s) }
func Header(s string) string    { return render(styleHeader, s) }
func Dim(s string) string       { return render(styleDim, s) }
func Highlight(s string) string { return render(styleAccent, s) }

// Pipe returns the gutter character used by diagnostics.
func Pipe() string { return render(stylePipe, "|") }

// Arrow returns the location arrow used by diagnostics.
func Arrow() string { return render(stylePipe, "-->") }

// Marker colors a leading +, - or ~ change marker.
func Marker(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '+':
		return render(styleAdded, s)
	case '-':
		return render(styleRemoved, s)
	case '~':
		return render(styleChanged, s)
	}
	return s
}
