package models

import "time"

// Entry is a single item of a parsed feed.
type Entry struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Summary string `json:"summary,omitempty"`
	Content string `json:"content,omitempty"`
}

// Body returns the summary, or the content when the entry has no summary.
func (e Entry) Body() string {
	if e.Summary != "" {
		return e.Summary
	}
	return e.Content
}

// Document is a parsed feed ready to be rendered.
type Document struct {
	ID        string    `json:"id"`
	SourceURL string    `json:"source_url"`
	Title     string    `json:"title"`
	Entries   []Entry   `json:"entries"`
	ParsedAt  time.Time `json:"parsed_at"`
}
