package main

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"github.com/anilkmeesala/db-sense-editor/ui"
)

// settingThemeVariant is the store key holding "dark" or "light".
const settingThemeVariant = "theme_variant"

var appTheme = &editorTheme{}

// editorTheme switches between two palettes at runtime and adds the colors
// used for completion kinds.
type editorTheme struct {
	mu      sync.RWMutex
	variant fyne.ThemeVariant
}

func (d *editorTheme) Variant() fyne.ThemeVariant {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.variant
}

func (d *editorTheme) SetVariant(v fyne.ThemeVariant) {
	d.mu.Lock()
	d.variant = v
	d.mu.Unlock()
}

// variantName and parseVariant convert to and from the stored setting.
func variantName(v fyne.ThemeVariant) string {
	if v == theme.VariantLight {
		return "light"
	}
	return "dark"
}

func parseVariant(s string) fyne.ThemeVariant {
	if s == "light" {
		return theme.VariantLight
	}
	return theme.VariantDark
}

func rgb(r, g, b uint8) color.NRGBA {
	return color.NRGBA{R: r, G: g, B: b, A: 0xFF}
}

func rgba(r, g, b, a uint8) color.NRGBA {
	return color.NRGBA{R: r, G: g, B: b, A: a}
}

var darkColors = map[fyne.ThemeColorName]color.Color{
	theme.ColorNameBackground:          rgb(0x1B, 0x1E, 0x24),
	theme.ColorNameButton:              rgb(0x2C, 0x31, 0x3A),
	theme.ColorNameDisabledButton:      rgb(0x23, 0x27, 0x2E),
	theme.ColorNameDisabled:            rgb(0x5C, 0x63, 0x70),
	theme.ColorNameError:               rgb(0xE0, 0x6C, 0x75),
	theme.ColorNameFocus:               rgb(0x61, 0xAF, 0xEF),
	theme.ColorNameForeground:          rgb(0xDC, 0xDF, 0xE4),
	theme.ColorNameForegroundOnPrimary: rgb(0x10, 0x12, 0x16),
	theme.ColorNameHeaderBackground:    rgb(0x23, 0x27, 0x2E),
	theme.ColorNameHover:               rgb(0x2C, 0x31, 0x3A),
	theme.ColorNameInputBackground:     rgb(0x21, 0x25, 0x2B),
	theme.ColorNameInputBorder:         rgb(0x3E, 0x44, 0x51),
	theme.ColorNameMenuBackground:      rgb(0x28, 0x2C, 0x34),
	theme.ColorNameOverlayBackground:   rgb(0x28, 0x2C, 0x34),
	theme.ColorNamePlaceHolder:         rgb(0x7F, 0x84, 0x8E),
	theme.ColorNamePressed:             rgb(0x3E, 0x44, 0x51),
	theme.ColorNamePrimary:             rgb(0x61, 0xAF, 0xEF),
	theme.ColorNameScrollBar:           rgb(0x4B, 0x52, 0x63),
	theme.ColorNameSelection:           rgba(0x61, 0xAF, 0xEF, 0x40),
	theme.ColorNameSeparator:           rgb(0x32, 0x37, 0x41),
	theme.ColorNameShadow:              rgba(0x00, 0x00, 0x00, 0x66),
	theme.ColorNameSuccess:             rgb(0x98, 0xC3, 0x79),
	theme.ColorNameWarning:             rgb(0xE5, 0xC0, 0x7B),

	ui.ColorNameKeyword:  rgb(0xC6, 0x78, 0xDD),
	ui.ColorNameFunction: rgb(0x61, 0xAF, 0xEF),
	ui.ColorNameTable:    rgb(0xE5, 0xC0, 0x7B),
	ui.ColorNameColumn:   rgb(0x98, 0xC3, 0x79),
}

var lightColors = map[fyne.ThemeColorName]color.Color{
	theme.ColorNameBackground:          rgb(0xFA, 0xFA, 0xFA),
	theme.ColorNameButton:              rgb(0xEA, 0xEA, 0xEB),
	theme.ColorNameDisabledButton:      rgb(0xF0, 0xF0, 0xF1),
	theme.ColorNameDisabled:            rgb(0xA0, 0xA1, 0xA7),
	theme.ColorNameError:               rgb(0xE4, 0x56, 0x49),
	theme.ColorNameFocus:               rgb(0x40, 0x78, 0xF2),
	theme.ColorNameForeground:          rgb(0x38, 0x3A, 0x42),
	theme.ColorNameForegroundOnPrimary: rgb(0xFF, 0xFF, 0xFF),
	theme.ColorNameHeaderBackground:    rgb(0xEE, 0xF1, 0xF8),
	theme.ColorNameHover:               rgb(0xEA, 0xEA, 0xEB),
	theme.ColorNameInputBackground:     rgb(0xFF, 0xFF, 0xFF),
	theme.ColorNameInputBorder:         rgb(0xD3, 0xD4, 0xD8),
	theme.ColorNameMenuBackground:      rgb(0xFF, 0xFF, 0xFF),
	theme.ColorNameOverlayBackground:   rgb(0xFF, 0xFF, 0xFF),
	theme.ColorNamePlaceHolder:         rgb(0x69, 0x6C, 0x77),
	theme.ColorNamePressed:             rgb(0xD6, 0xE2, 0xFC),
	theme.ColorNamePrimary:             rgb(0x40, 0x78, 0xF2),
	theme.ColorNameScrollBar:           rgb(0xC2, 0xC3, 0xC7),
	theme.ColorNameSelection:           rgba(0x40, 0x78, 0xF2, 0x33),
	theme.ColorNameSeparator:           rgb(0xDB, 0xDB, 0xDC),
	theme.ColorNameShadow:              rgba(0x00, 0x00, 0x00, 0x40),
	theme.ColorNameSuccess:             rgb(0x50, 0xA1, 0x4F),
	theme.ColorNameWarning:             rgb(0xC1, 0x84, 0x01),

	ui.ColorNameKeyword:  rgb(0xA6, 0x26, 0xA4),
	ui.ColorNameFunction: rgb(0x40, 0x78, 0xF2),
	ui.ColorNameTable:    rgb(0x98, 0x68, 0x01),
	ui.ColorNameColumn:   rgb(0x50, 0xA1, 0x4F),
}

func (d *editorTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	v := d.Variant()
	colors := darkColors
	if v == theme.VariantLight {
		colors = lightColors
	}
	if c, ok := colors[name]; ok {
		return c
	}
	return theme.DefaultTheme().Color(name, v)
}

func (d *editorTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (d *editorTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (d *editorTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameInputRadius:
		return 6
	case theme.SizeNameSelectionRadius:
		return 4
	case theme.SizeNameText:
		return 13
	}
	return theme.DefaultTheme().Size(name)
}
