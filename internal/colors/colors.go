// Package colors provides the CLI color palette.
//
// Colors are disabled automatically when stdout is not a terminal; Init
// overrides the detected setting from the --color flag.
package colors

import "github.com/fatih/color"

// Init overrides the auto-detected color setting. A nil value keeps it.
func Init(forceColor *bool) {
	if forceColor != nil {
		color.NoColor = !*forceColor
	}
}

// Enabled returns true if colors are currently enabled.
func Enabled() bool {
	return !color.NoColor
}

func Bold() *color.Color        { return color.New(color.Bold) }
func Faint() *color.Color       { return color.New(color.Faint) }
func BoldHiRed() *color.Color   { return color.New(color.Bold, color.FgHiRed) }
func BoldYellow() *color.Color  { return color.New(color.Bold, color.FgYellow) }
func FaintHiBlue() *color.Color { return color.New(color.Faint, color.FgHiBlue) }
func HiMagenta() *color.Color   { return color.New(color.FgHiMagenta) }

// Region returns the color used for a region or segment name.
func Region(name string) *color.Color {
	switch name {
	case "TEXT":
		return color.New(color.Bold, color.FgHiGreen)
	case "CONST":
		return color.New(color.Bold, color.FgHiCyan)
	case "DATA":
		return color.New(color.Bold, color.FgHiBlue)
	case "BSS":
		return color.New(color.Bold, color.FgHiMagenta)
	default:
		return color.New(color.Bold, color.FgHiRed)
	}
}
