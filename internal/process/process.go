package process

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"reddot-watch/feedsreader/internal/metrics"
	"reddot-watch/feedsreader/internal/models"
)

// Stage names the step of a feed task that failed.
type Stage string

const (
	StageFetch Stage = "fetch"
	StageParse Stage = "parse"
)

// Fetcher downloads a feed document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Parser turns a feed document into a rendered Document.
type Parser interface {
	Parse(ctx context.Context, url, xml string) (*models.Document, error)
}

// DocumentHandler is called for every successfully parsed feed. It may be
// called from several goroutines at once.
type DocumentHandler func(feed models.Feed, doc *models.Document)

// FeedError records the failure of one feed task.
type FeedError struct {
	FeedID int64
	URL    string
	Stage  Stage
	Err    error
}

func (e FeedError) Error() string {
	return fmt.Sprintf("%s feed %d (%s): %v", e.Stage, e.FeedID, e.URL, e.Err)
}

func (e FeedError) Unwrap() error {
	return e.Err
}

// Report summarizes one batch.
type Report struct {
	Feeds    int
	Fetched  int
	Parsed   int
	Entries  int
	Failures []FeedError
	Duration time.Duration
}

// Err joins the collected failures, or returns nil when every task succeeded.
func (r Report) Err() error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

// Processor runs one independent fetch+parse task per feed on a bounded
// number of goroutines.
type Processor struct {
	fetcher     Fetcher
	parser      Parser
	metrics     *metrics.Metrics
	WorkerCount int

	// Counters for the batch in progress
	activeWorkers atomic.Int32
	fetched       atomic.Int64
	parsed        atomic.Int64
	entries       atomic.Int64

	progressInterval time.Duration
}

// NewProcessor creates a processor. workerCount <= 0 means runtime.NumCPU().
func NewProcessor(fetcher Fetcher, parser Parser, workerCount int, m *metrics.Metrics) *Processor {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	return &Processor{
		fetcher:          fetcher,
		parser:           parser,
		metrics:          m,
		WorkerCount:      workerCount,
		progressInterval: time.Minute,
	}
}

// Run processes feeds and waits for every task. A failing task never stops
// the others: failures are collected into the report. Batches on the same
// Processor must not overlap.
func (p *Processor) Run(ctx context.Context, feeds []models.Feed, onDocument DocumentHandler) Report {
	start := time.Now()
	p.fetched.Store(0)
	p.parsed.Store(0)
	p.entries.Store(0)

	progressCtx, stopProgress := context.WithCancel(ctx)
	defer stopProgress()
	go p.logProgress(progressCtx, len(feeds))

	// Buffered for every feed so tasks never block on reporting.
	errorQueue := make(chan FeedError, len(feeds))

	var g errgroup.Group
	g.SetLimit(p.WorkerCount)

	log.Info().
		Int("feeds", len(feeds)).
		Int("worker_count", p.WorkerCount).
		Msg("Processing feeds")

	for _, feed := range feeds {
		feed := feed
		g.Go(func() error {
			if ferr := p.processFeed(ctx, feed, onDocument); ferr != nil {
				errorQueue <- *ferr
			}
			return nil
		})
	}

	_ = g.Wait()
	close(errorQueue)

	report := Report{
		Feeds:    len(feeds),
		Fetched:  int(p.fetched.Load()),
		Parsed:   int(p.parsed.Load()),
		Entries:  int(p.entries.Load()),
		Duration: time.Since(start),
	}
	for ferr := range errorQueue {
		report.Failures = append(report.Failures, ferr)
	}

	log.Info().
		Int("feeds", report.Feeds).
		Int("fetched", report.Fetched).
		Int("parsed", report.Parsed).
		Int("entries", report.Entries).
		Int("failures", len(report.Failures)).
		Dur("duration", report.Duration).
		Msg("Feeds processed")

	return report
}

func (p *Processor) processFeed(ctx context.Context, feed models.Feed, onDocument DocumentHandler) *FeedError {
	p.activeWorkers.Add(1)
	defer p.activeWorkers.Add(-1)

	logger := log.With().
		Int64("feed_id", feed.ID).
		Str("url", feed.XMLURL).
		Logger()

	if err := ctx.Err(); err != nil {
		return &FeedError{FeedID: feed.ID, URL: feed.XMLURL, Stage: StageFetch, Err: err}
	}

	body, err := p.fetcher.Fetch(ctx, feed.XMLURL)
	p.metrics.ObserveFetch(err)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to fetch feed")
		return &FeedError{FeedID: feed.ID, URL: feed.XMLURL, Stage: StageFetch, Err: err}
	}
	p.fetched.Add(1)

	doc, err := p.parser.Parse(ctx, feed.XMLURL, body)
	if err != nil {
		p.metrics.ObserveParse(0, err)
		logger.Warn().Err(err).Msg("Failed to parse feed")
		return &FeedError{FeedID: feed.ID, URL: feed.XMLURL, Stage: StageParse, Err: err}
	}
	if doc == nil {
		logger.Debug().Msg("Empty feed document, nothing to parse")
		return nil
	}

	p.metrics.ObserveParse(len(doc.Entries), nil)
	p.parsed.Add(1)
	p.entries.Add(int64(len(doc.Entries)))

	logger.Info().
		Str("title", doc.Title).
		Int("entries", len(doc.Entries)).
		Msg("Feed processed successfully")

	if onDocument != nil {
		onDocument(feed, doc)
	}
	return nil
}

func (p *Processor) logProgress(ctx context.Context, total int) {
	ticker := time.NewTicker(p.progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			log.Info().
				Int("feeds", total).
				Int64("fetched", p.fetched.Load()).
				Int64("parsed", p.parsed.Load()).
				Int32("active_workers", p.activeWorkers.Load()).
				Msg("Processing progress")
		case <-ctx.Done():
			return
		}
	}
}
