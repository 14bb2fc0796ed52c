// Package render turns parsed feeds into simple HTML listings and keeps
// them on display surfaces.
package render

import (
	"html/template"
	"io"

	"github.com/microcosm-cc/bluemonday"

	"reddot-watch/feedsreader/internal/models"
)

var policy = bluemonday.UGCPolicy()

var listingTmpl = template.Must(template.New("listing").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Feed: {{.Title}}</title></head>
<body class="{{.Style}}">
<h1>{{.Title}}</h1>
{{- if not .Entries}}
<p><i>No news is good news!</i></p>
{{- else}}
{{- range .Entries}}
<p><b><a href="{{.Link}}">{{.Title}}</a></b><br>
<blockquote>{{.Body}}<hr></blockquote></p>
{{- end}}
{{- end}}
</body></html>
`))

type listingEntry struct {
	Title string
	Link  string
	Body  template.HTML
}

type listing struct {
	Title   string
	Style   string
	Entries []listingEntry
}

// Listing writes doc as an HTML page: the feed title followed by every entry
// link and its summary, or content when the entry has no summary.
func Listing(w io.Writer, doc *models.Document, style string) error {
	l := listing{Title: doc.Title, Style: style}
	for _, e := range doc.Entries {
		l.Entries = append(l.Entries, listingEntry{
			Title: e.Title,
			Link:  e.Link,
			// Feed markup is untrusted.
			Body: template.HTML(policy.Sanitize(e.Body())),
		})
	}
	return listingTmpl.Execute(w, l)
}
