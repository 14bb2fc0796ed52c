package theme_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"reddot-watch/feedsreader/internal/theme"
)

func TestColor(t *testing.T) {
	tests := []struct {
		style    string
		expected string
	}{
		{"red", "#F44336"},
		{"pink", "#E91E63"},
		{"purple", "#9C27B0"},
		{"deep-purple", "#673AB7"},
		{"indigo", "#3F51B5"},
		{"blue", "#2196F3"},
		{"light-blue", "#03A9F4"},
		{"cyan", "#00BCD4"},
		{"teal", "#009688"},
		{"green", "#4CAF50"},
		{"light-green", "#8BC34A"},
		{"lime", "#CDDC39"},
		{"yellow", "#FFEB3B"},
		{"amber", "#FFC107"},
		{"orange", "#FF9800"},
		{"deep-orange", "#FF5722"},
		{"brown", "#795548"},
		{"gray", "#9E9E9E"},
		{"blue-gray", "#607D8B"},
	}

	for _, tt := range tests {
		t.Run(tt.style, func(t *testing.T) {
			assert.Equal(t, tt.expected, theme.Color(tt.style))
			assert.True(t, theme.Known(tt.style))
		})
	}
}

func TestColorUnknownPassesThrough(t *testing.T) {
	for _, style := range []string{"", "magenta", "#123456", "Blue"} {
		assert.Equal(t, style, theme.Color(style))
		assert.False(t, theme.Known(style))
	}
}

func TestNames(t *testing.T) {
	names := theme.Names()
	assert.Len(t, names, 19)
	assert.IsNonDecreasing(t, names)
	assert.Contains(t, names, theme.DefaultStyle)
}
