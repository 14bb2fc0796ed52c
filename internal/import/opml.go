package importfeeds

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"reddot-watch/feedsreader/internal/models"
)

type opmlDocument struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    opmlHead `xml:"head"`
	Body    opmlBody `xml:"body"`
}

type opmlHead struct {
	Title       string `xml:"title,omitempty"`
	DateCreated string `xml:"dateCreated,omitempty"`
}

type opmlBody struct {
	Outlines []opmlOutline `xml:"outline"`
}

type opmlOutline struct {
	Text     string        `xml:"text,attr"`
	Title    string        `xml:"title,attr,omitempty"`
	Type     string        `xml:"type,attr,omitempty"`
	XMLURL   string        `xml:"xmlUrl,attr,omitempty"`
	HTMLURL  string        `xml:"htmlUrl,attr,omitempty"`
	Outlines []opmlOutline `xml:"outline,omitempty"`
}

func (o opmlOutline) name() string {
	if o.Title != "" {
		return o.Title
	}
	return o.Text
}

// ParseOPML reads the subscriptions of an OPML document. Top-level outlines
// without an xmlUrl are categories; nested folders are flattened into their
// top-level category. Feeds outside any folder get an empty category.
func ParseOPML(r io.Reader) ([]Subscription, error) {
	var doc opmlDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode opml: %w", err)
	}

	var subs []Subscription
	var walk func(outlines []opmlOutline, category string)
	walk = func(outlines []opmlOutline, category string) {
		for _, o := range outlines {
			if o.XMLURL != "" {
				subs = append(subs, Subscription{
					Category: category,
					Title:    strings.TrimSpace(o.name()),
					Type:     o.Type,
					HTMLURL:  o.HTMLURL,
					XMLURL:   strings.TrimSpace(o.XMLURL),
				})
				continue
			}
			folder := category
			if folder == "" {
				folder = strings.TrimSpace(o.name())
			}
			walk(o.Outlines, folder)
		}
	}
	walk(doc.Body.Outlines, "")

	return subs, nil
}

// WriteOPML writes the catalogue as an OPML 2.0 document with one folder
// per category. Feeds of the default category are written at the top level.
func WriteOPML(w io.Writer, title string, categories []models.Category, feeds []models.Feed) error {
	doc := opmlDocument{
		Version: "2.0",
		Head: opmlHead{
			Title:       title,
			DateCreated: time.Now().Format(time.RFC1123Z),
		},
	}

	byCategory := make(map[int64][]opmlOutline)
	for _, f := range feeds {
		byCategory[f.CategoryID] = append(byCategory[f.CategoryID], opmlOutline{
			Text:    f.Title,
			Title:   f.Title,
			Type:    f.Type,
			XMLURL:  f.XMLURL,
			HTMLURL: f.HTMLURL,
		})
	}

	doc.Body.Outlines = append(doc.Body.Outlines, byCategory[models.DefaultCategoryID]...)
	for _, c := range categories {
		if c.ID == models.DefaultCategoryID || len(byCategory[c.ID]) == 0 {
			continue
		}
		doc.Body.Outlines = append(doc.Body.Outlines, opmlOutline{
			Text:     c.Title,
			Title:    c.Title,
			Outlines: byCategory[c.ID],
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode opml: %w", err)
	}
	return enc.Close()
}
