package process

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reddot-watch/feedsreader/internal/fetch"
	"reddot-watch/feedsreader/internal/metrics"
	"reddot-watch/feedsreader/internal/models"
)

type stubFetcher struct {
	bodies map[string]string
}

func (f stubFetcher) Fetch(_ context.Context, url string) (string, error) {
	body, ok := f.bodies[url]
	if !ok {
		return "", &fetch.StatusError{Code: 404, Status: "Not Found"}
	}
	return body, nil
}

var errBadXML = errors.New("bad xml")

type stubParser struct{}

func (stubParser) Parse(_ context.Context, url, xml string) (*models.Document, error) {
	switch xml {
	case "":
		return nil, nil
	case "broken":
		return nil, errBadXML
	}
	entries := make([]models.Entry, len(xml))
	return &models.Document{ID: url, SourceURL: url, Title: url, Entries: entries}, nil
}

func TestRunCollectsFailures(t *testing.T) {
	fetcher := stubFetcher{bodies: map[string]string{
		"https://a.example/feed": "aaa",
		"https://b.example/feed": "bb",
		"https://c.example/feed": "broken",
		"https://d.example/feed": "",
	}}
	feeds := []models.Feed{
		{ID: 1, XMLURL: "https://a.example/feed"},
		{ID: 2, XMLURL: "https://b.example/feed"},
		{ID: 3, XMLURL: "https://c.example/feed"},
		{ID: 4, XMLURL: "https://d.example/feed"},
		{ID: 5, XMLURL: "https://missing.example/feed"},
	}

	var mu sync.Mutex
	seen := map[int64]int{}
	p := NewProcessor(fetcher, stubParser{}, 2, metrics.New())

	report := p.Run(context.Background(), feeds, func(feed models.Feed, doc *models.Document) {
		mu.Lock()
		defer mu.Unlock()
		seen[feed.ID] = len(doc.Entries)
	})

	assert.Equal(t, 5, report.Feeds)
	assert.Equal(t, 4, report.Fetched)
	assert.Equal(t, 2, report.Parsed)
	assert.Equal(t, 5, report.Entries)
	assert.Equal(t, map[int64]int{1: 3, 2: 2}, seen)

	require.Len(t, report.Failures, 2)
	stages := map[int64]Stage{}
	for _, f := range report.Failures {
		stages[f.FeedID] = f.Stage
	}
	assert.Equal(t, map[int64]Stage{3: StageParse, 5: StageFetch}, stages)

	err := report.Err()
	assert.ErrorIs(t, err, errBadXML)
	var statusErr *fetch.StatusError
	assert.ErrorAs(t, err, &statusErr)
}

func TestRunNoFeeds(t *testing.T) {
	report := NewProcessor(stubFetcher{}, stubParser{}, 0, nil).Run(context.Background(), nil, nil)
	assert.Zero(t, report.Feeds)
	assert.Empty(t, report.Failures)
	assert.NoError(t, report.Err())
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	feeds := []models.Feed{{ID: 1, XMLURL: "https://a.example/feed"}}
	report := NewProcessor(stubFetcher{bodies: map[string]string{"https://a.example/feed": "a"}}, stubParser{}, 1, nil).
		Run(ctx, feeds, nil)

	require.Len(t, report.Failures, 1)
	assert.ErrorIs(t, report.Failures[0], context.Canceled)
}

func TestNewProcessorDefaultsWorkers(t *testing.T) {
	p := NewProcessor(stubFetcher{}, stubParser{}, 0, nil)
	assert.Positive(t, p.WorkerCount)
}
