// Package ui holds the state of the toolbar button and its panel.
package ui

import (
	"fmt"
	"strconv"
	"sync"
)

// Title is shown on the first line of the button label.
const Title = "Feeds Reader"

// Badge values that are not counts.
const (
	BadgeStarting = "*"
	BadgeLoading  = "-"
	BadgeError    = "!"
)

// ButtonState is a snapshot of the toolbar button.
type ButtonState struct {
	Badge      string          `json:"badge"`
	BadgeColor string          `json:"badge_color"`
	Label      string          `json:"label"`
	Disabled   bool            `json:"disabled"`
	Checked    map[string]bool `json:"checked,omitempty"`
}

// Text returns the full tooltip text of the button.
func (s ButtonState) Text() string {
	return Title + "\n" + s.Label
}

// Button is the toolbar toggle button. It is safe for concurrent use.
type Button struct {
	mu    sync.Mutex
	state ButtonState
}

// NewButton returns a disabled button showing the starting badge.
func NewButton(badgeColor string) *Button {
	return &Button{state: ButtonState{
		Badge:      BadgeStarting,
		BadgeColor: badgeColor,
		Disabled:   true,
		Checked:    make(map[string]bool),
	}}
}

// State returns a copy of the current state.
func (b *Button) State() ButtonState {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.state
	s.Checked = make(map[string]bool, len(b.state.Checked))
	for w, c := range b.state.Checked {
		s.Checked[w] = c
	}
	return s
}

// Set replaces badge and label.
func (b *Button) Set(badge, label string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Badge = badge
	b.state.Label = label
}

// SetDisabled enables or disables the button.
func (b *Button) SetDisabled(disabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Disabled = disabled
}

// SetBadgeColor changes the badge color.
func (b *Button) SetBadgeColor(color string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.BadgeColor = color
}

// SetChecked records the toggle state of the button in window.
func (b *Button) SetChecked(window string, checked bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Checked[window] = checked
}

// Checked reports the toggle state of the button in window.
func (b *Button) Checked(window string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.Checked[window]
}

// AddUnread adds delta to the unread count shown on the badge, updates the
// label and enables the button. It returns the new count.
// A badge that is not a number counts as zero.
func (b *Button) AddUnread(delta int) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	count, err := strconv.Atoi(b.state.Badge)
	if err != nil {
		count = 0
	}
	count += delta

	b.state.Badge = strconv.Itoa(count)
	b.state.Label = UnreadLabel(count)
	b.state.Disabled = false
	return count
}

// UnreadLabel returns the label describing count unread items.
func UnreadLabel(count int) string {
	switch count {
	case 0:
		return "There are no unread items!"
	case 1:
		return "There is one unread item!"
	default:
		return fmt.Sprintf("There is %d unread items!", count)
	}
}
