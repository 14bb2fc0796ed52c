package ui

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Panel events.
const (
	EventShow  = "show"
	EventHide  = "hide"
	EventStyle = "style"
)

// Event is a message sent to the panel.
type Event struct {
	Name  string `json:"name"`
	Style string `json:"style,omitempty"`
}

// Panel is the document attached to the button. The last received style
// is the CSS class of its body.
type Panel struct {
	mu      sync.Mutex
	visible bool
	style   string
	events  []Event
}

// NewPanel creates a hidden panel.
func NewPanel() *Panel {
	return &Panel{}
}

// Emit delivers an event to the panel.
func (p *Panel) Emit(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	log.Debug().Str("event", ev.Name).Str("style", ev.Style).Msg("Panel event")
	p.events = append(p.events, ev)

	switch ev.Name {
	case EventShow:
		p.visible = true
		p.setStyle(ev.Style)
	case EventHide:
		p.visible = false
	case EventStyle:
		p.setStyle(ev.Style)
	default:
		log.Warn().Str("event", ev.Name).Msg("Unknown panel event")
	}
}

func (p *Panel) setStyle(style string) {
	if style != "" {
		p.style = style
	}
}

// Visible reports whether the panel is shown.
func (p *Panel) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}

// BodyClass returns the class applied to the panel body.
func (p *Panel) BodyClass() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.style
}

// Events returns the events received so far.
func (p *Panel) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}
