// Package theme maps content style names to their badge colors.
package theme

import (
	"sort"

	"github.com/samber/lo"
)

// DefaultStyle is used when no preference has been stored yet.
const DefaultStyle = "blue-gray"

// Material Design primary palette.
var colors = map[string]string{
	"red":         "#F44336",
	"pink":        "#E91E63",
	"purple":      "#9C27B0",
	"deep-purple": "#673AB7",
	"indigo":      "#3F51B5",
	"blue":        "#2196F3",
	"light-blue":  "#03A9F4",
	"cyan":        "#00BCD4",
	"teal":        "#009688",
	"green":       "#4CAF50",
	"light-green": "#8BC34A",
	"lime":        "#CDDC39",
	"yellow":      "#FFEB3B",
	"amber":       "#FFC107",
	"orange":      "#FF9800",
	"deep-orange": "#FF5722",
	"brown":       "#795548",
	"gray":        "#9E9E9E",
	"blue-gray":   "#607D8B",
}

// Color returns the hex color of the given style.
// Unknown styles are returned unchanged so a raw color can be used as a style.
func Color(style string) string {
	if c, ok := colors[style]; ok {
		return c
	}
	return style
}

// Known reports whether style is one of the palette names.
func Known(style string) bool {
	_, ok := colors[style]
	return ok
}

// Names returns the recognized style names in alphabetical order.
func Names() []string {
	names := lo.Keys(colors)
	sort.Strings(names)
	return names
}
