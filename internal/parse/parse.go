// Package parse hands fetched feed XML to gofeed and shows the result on a
// display surface.
package parse

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"

	"reddot-watch/feedsreader/internal/models"
	"reddot-watch/feedsreader/internal/render"
)

// ErrParse is returned when the feed XML cannot be parsed.
var ErrParse = errors.New("error parsing feed")

// Adapter parses feeds and renders them to a surface. It is safe for
// concurrent use: every call gets its own gofeed.Parser, which keeps
// per-document state.
type Adapter struct {
	surface render.Surface
}

// NewAdapter creates an adapter rendering to surface. A nil surface only parses.
func NewAdapter(surface render.Surface) *Adapter {
	return &Adapter{surface: surface}
}

// Parse parses xml fetched from feedURL and shows the resulting document.
// Empty input is not an error: it yields a nil document.
func (a *Adapter) Parse(ctx context.Context, feedURL, xml string) (*models.Document, error) {
	log.Debug().
		Str("url", feedURL).
		Int("length", len(xml)).
		Msg("Parsing feed")

	if len(xml) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().ParseString(xml)
	if err != nil {
		log.Warn().Err(err).Str("url", feedURL).Msg("Error parsing feed")
		return nil, fmt.Errorf("%w %s: %v", ErrParse, feedURL, err)
	}

	doc := toDocument(feedURL, feed)

	if a.surface != nil {
		if err := a.surface.Show(doc); err != nil {
			log.Error().Err(err).Str("url", feedURL).Msg("Failed to show feed")
			return doc, err
		}
	}

	log.Debug().
		Str("url", feedURL).
		Str("title", doc.Title).
		Int("entries", len(doc.Entries)).
		Msg("Feed parsed")

	return doc, nil
}

func toDocument(feedURL string, feed *gofeed.Feed) *models.Document {
	base, _ := url.Parse(feedURL)

	doc := &models.Document{
		ID:        uuid.NewString(),
		SourceURL: feedURL,
		Title:     strings.TrimSpace(feed.Title),
		Entries:   make([]models.Entry, 0, len(feed.Items)),
		ParsedAt:  time.Now(),
	}
	if doc.Title == "" {
		doc.Title = feedURL
	}

	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		doc.Entries = append(doc.Entries, models.Entry{
			Title:   strings.TrimSpace(item.Title),
			Link:    resolve(base, item.Link),
			Summary: item.Description,
			Content: item.Content,
		})
	}

	return doc
}

// resolve makes link absolute relative to the feed URL.
func resolve(base *url.URL, link string) string {
	link = strings.TrimSpace(link)
	if base == nil || link == "" {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	return base.ResolveReference(ref).String()
}
