package ui

import "github.com/gdamore/tcell/v2"

// Theme is the color scheme of the status browser.
var Theme = struct {
	Primary    tcell.Color
	Accent     tcell.Color
	Success    tcell.Color
	Warning    tcell.Color
	Error      tcell.Color
	Text       tcell.Color
	TextDim    tcell.Color
	Border     tcell.Color
	Selection  tcell.Color
	Highlight  tcell.Color
	Background tcell.Color
}{
	Primary:    tcell.ColorBlue,
	Accent:     tcell.ColorAqua,
	Success:    tcell.ColorGreen,
	Warning:    tcell.ColorYellow,
	Error:      tcell.ColorRed,
	Text:       tcell.ColorWhite,
	TextDim:    tcell.ColorGray,
	Border:     tcell.ColorGray,
	Selection:  tcell.ColorTeal,
	Highlight:  tcell.ColorWhite,
	Background: tcell.ColorBlack,
}

// tview dynamic color tags.
const (
	tagLabel    = "[yellow]"
	tagSuccess  = "[green]"
	tagWarning  = "[yellow]"
	tagError    = "[red]"
	tagMuted    = "[gray]"
	tagReset    = "[-]"
	tagEnd      = "[-:-]"
	tagSelected = "[black:white]"
)

const (
	tabHistory = "history"
	tabSchema  = "schema"

	hintsStatus = " q quit  1/2 tabs  tab panels  j/k navigate  g/G top/bottom "
)
