// Package importfeeds loads subscription lists into the feed catalogue.
package importfeeds

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"reddot-watch/feedsreader/internal/database"
	"reddot-watch/feedsreader/internal/fetch"
	"reddot-watch/feedsreader/internal/models"
)

// Format of a subscription list.
type Format string

const (
	FormatOPML Format = "opml"
	FormatCSV  Format = "csv"
)

// Subscription is one feed read from a subscription list.
type Subscription struct {
	Line     int
	ID       int64
	Category string
	Title    string
	Type     string
	HTMLURL  string
	XMLURL   string
}

// Summary reports the outcome of an import.
type Summary struct {
	Total      int      `json:"total"`
	Imported   int      `json:"imported"`
	Duplicates int      `json:"duplicates"`
	Skipped    int      `json:"skipped"`
	Errors     []string `json:"errors,omitempty"`
}

// Importer handles the feed import process
type Importer struct {
	storage *database.Storage
	fetcher *fetch.Fetcher
}

// NewImporter creates a new feed importer. fetcher is used for remote
// sources and may be nil when only local files are imported.
func NewImporter(storage *database.Storage, fetcher *fetch.Fetcher) *Importer {
	return &Importer{storage: storage, fetcher: fetcher}
}

// Prepare makes sure the catalogue schema exists. With replace set, the
// existing schema and every stored feed are dropped first.
func (i *Importer) Prepare(ctx context.Context, replace bool) error {
	version, err := i.storage.StorageVersion(ctx)
	if err != nil {
		return err
	}

	if replace && version > 0 {
		if err := i.storage.DropSchema(ctx); err != nil {
			return err
		}
		log.Info().Str("path", i.storage.Path()).Msg("Existing catalogue dropped")
		version = 0
	}

	if version < 1 {
		return i.storage.CreateSchema(ctx)
	}
	return nil
}

// Import reads the subscription list at source, a file path or an http(s)
// URL. The format is guessed from the extension when format is empty.
func (i *Importer) Import(ctx context.Context, source string, format Format) (Summary, error) {
	log.Info().Str("source", source).Msg("Starting feed import")

	if format == "" {
		format = DetectFormat(source)
	}

	r, err := i.open(ctx, source)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to open %s: %w", source, err)
	}
	defer r.Close()

	switch format {
	case FormatOPML:
		return i.ImportOPML(ctx, r)
	case FormatCSV:
		return i.ImportCSV(ctx, r)
	default:
		return Summary{}, fmt.Errorf("unsupported import format %q", format)
	}
}

// ImportOPML imports the feeds of an OPML document.
func (i *Importer) ImportOPML(ctx context.Context, r io.Reader) (Summary, error) {
	subs, err := ParseOPML(r)
	if err != nil {
		return Summary{}, err
	}
	return i.store(ctx, subs, nil)
}

// ImportCSV imports the feeds of a CSV file.
func (i *Importer) ImportCSV(ctx context.Context, r io.Reader) (Summary, error) {
	subs, lineErrors, err := ParseCSV(r)
	if err != nil {
		return Summary{}, err
	}
	return i.store(ctx, subs, lineErrors)
}

// DetectFormat guesses the format of source from its extension.
func DetectFormat(source string) Format {
	ext := strings.ToLower(filepath.Ext(source))
	if i := strings.IndexAny(ext, "?#"); i >= 0 {
		ext = ext[:i]
	}
	switch ext {
	case ".csv":
		return FormatCSV
	default:
		return FormatOPML
	}
}

func (i *Importer) open(ctx context.Context, source string) (io.ReadCloser, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		log.Info().Str("path", source).Msg("Using local file")
		return os.Open(source)
	}

	if i.fetcher == nil {
		return nil, fmt.Errorf("remote sources are not supported")
	}

	log.Info().Str("url", source).Msg("Downloading subscription list")
	body, err := i.fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("bytes", len(body)).Str("url", source).Msg("Downloaded subscription list")
	return io.NopCloser(strings.NewReader(body)), nil
}

// store inserts subs in a single transaction. Duplicates, rows without an
// XML URL and rows the database rejects are skipped and reported.
func (i *Importer) store(ctx context.Context, subs []Subscription, lineErrors []string) (Summary, error) {
	summary := Summary{
		Total:   len(subs) + len(lineErrors),
		Skipped: len(lineErrors),
		Errors:  append([]string(nil), lineErrors...),
	}

	err := i.storage.InTx(ctx, func(tx *database.Tx) error {
		categories := make(map[string]int64)

		for n, sub := range subs {
			where := sub.where(n + 1)
			logger := log.With().Str("entry", where).Str("url", sub.XMLURL).Logger()

			if sub.XMLURL == "" {
				logger.Warn().Msg("Skipping feed with empty URL")
				summary.Skipped++
				summary.Errors = append(summary.Errors, where+": empty URL")
				continue
			}

			// Folders are kept even when all their feeds are duplicates.
			categoryID := models.DefaultCategoryID
			if sub.Category != "" {
				id, ok := categories[sub.Category]
				if !ok {
					var err error
					id, err = tx.EnsureCategory(sub.Category)
					if err != nil {
						return err
					}
					categories[sub.Category] = id
				}
				categoryID = id
			}

			exists, err := tx.FeedExists(sub.XMLURL)
			if err != nil {
				return err
			}
			if exists {
				logger.Warn().Msg("Duplicate URL")
				summary.Duplicates++
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: duplicate URL: %s", where, sub.XMLURL))
				continue
			}

			if _, err := tx.InsertFeed(sub.feed(categoryID)); err != nil {
				logger.Error().Err(err).Msg("Failed to insert feed")
				summary.Skipped++
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", where, err))
				continue
			}

			summary.Imported++
			logger.Debug().Msg("Feed inserted successfully")
		}
		return nil
	})
	if err != nil {
		return Summary{}, fmt.Errorf("failed to import feeds: %w", err)
	}

	log.Info().
		Int("total", summary.Total).
		Int("imported", summary.Imported).
		Int("duplicates", summary.Duplicates).
		Int("skipped", summary.Skipped).
		Msg("Import summary")

	return summary, nil
}

func (s Subscription) where(n int) string {
	if s.Line > 0 {
		return fmt.Sprintf("line %d", s.Line)
	}
	return fmt.Sprintf("outline %d", n)
}

func (s Subscription) feed(categoryID int64) models.Feed {
	title := s.Title
	if title == "" {
		title = s.XMLURL
	}
	f := models.NewFeed(categoryID, title, s.XMLURL).
		WithID(s.ID).
		WithHTMLURL(s.HTMLURL)
	if s.Type != "" {
		f.Type = strings.ToLower(s.Type)
	}
	return f
}
