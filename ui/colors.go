package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"github.com/anilkmeesala/db-sense-editor/complete"
)

// Theme color names used by the completion dropdown and the explorer. A theme
// that does not define them falls back to the foreground color.
const (
	ColorNameKeyword  fyne.ThemeColorName = "sqlKeyword"
	ColorNameFunction fyne.ThemeColorName = "sqlFunction"
	ColorNameTable    fyne.ThemeColorName = "sqlTable"
	ColorNameColumn   fyne.ThemeColorName = "sqlColumn"
)

func kindColorName(k complete.Kind) fyne.ThemeColorName {
	switch k {
	case complete.KindKeyword:
		return ColorNameKeyword
	case complete.KindFunction:
		return ColorNameFunction
	case complete.KindTable:
		return ColorNameTable
	default:
		return ColorNameColumn
	}
}

func themeColor(th fyne.Theme, name fyne.ThemeColorName, v fyne.ThemeVariant) color.Color {
	c := th.Color(name, v)
	if c == nil {
		return th.Color(theme.ColorNameForeground, v)
	}
	if _, _, _, a := c.RGBA(); a == 0 {
		return th.Color(theme.ColorNameForeground, v)
	}
	return c
}
