package importfeeds

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reddot-watch/feedsreader/internal/database"
	"reddot-watch/feedsreader/internal/fetch"
	"reddot-watch/feedsreader/internal/models"
)

const testOPML = `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
  <head><title>Subscriptions</title></head>
  <body>
    <outline text="Loose feed" type="rss" xmlUrl="https://loose.example/rss" htmlUrl="https://loose.example"/>
    <outline text="Linux">
      <outline text="LWN" type="rss" xmlUrl="https://lwn.net/headlines/rss" htmlUrl="https://lwn.net"/>
      <outline text="Nested">
        <outline title="Kernel" text="ignored" type="atom" xmlUrl="https://kernel.example/atom.xml"/>
      </outline>
    </outline>
    <outline text="Empty folder"/>
    <outline text="News">
      <outline text="Duplicate" xmlUrl="https://lwn.net/headlines/rss"/>
    </outline>
  </body>
</opml>`

func newTestImporter(t *testing.T) (*Importer, *database.Storage) {
	t.Helper()

	cfg := database.NewConfig(filepath.Join(t.TempDir(), "feeds-reader.sqlite"))
	cfg.SeedDemo = false
	storage, err := database.NewStorage(cfg)
	require.NoError(t, err)

	i := NewImporter(storage, fetch.NewFetcher(0))
	require.NoError(t, i.Prepare(context.Background(), false))
	return i, storage
}

func TestParseOPML(t *testing.T) {
	subs, err := ParseOPML(strings.NewReader(testOPML))
	require.NoError(t, err)
	require.Len(t, subs, 4)

	assert.Equal(t, Subscription{Title: "Loose feed", Type: "rss", HTMLURL: "https://loose.example", XMLURL: "https://loose.example/rss"}, subs[0])
	assert.Equal(t, "Linux", subs[1].Category)
	assert.Equal(t, Subscription{Category: "Linux", Title: "Kernel", Type: "atom", XMLURL: "https://kernel.example/atom.xml"}, subs[2])
	assert.Equal(t, "News", subs[3].Category)
}

func TestParseOPMLInvalid(t *testing.T) {
	_, err := ParseOPML(strings.NewReader("<opml><body>"))
	assert.Error(t, err)
}

func TestImportOPML(t *testing.T) {
	ctx := context.Background()
	i, storage := newTestImporter(t)

	summary, err := i.ImportOPML(ctx, strings.NewReader(testOPML))
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 3, summary.Imported)
	assert.Equal(t, 1, summary.Duplicates)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "duplicate URL")

	categories, err := storage.Categories(ctx)
	require.NoError(t, err)
	titles := make(map[string]int64)
	for _, c := range categories {
		titles[c.Title] = c.ID
	}
	require.Contains(t, titles, "Linux")
	assert.NotContains(t, titles, "Empty folder")

	// A folder holding only duplicates still becomes a category.
	require.Contains(t, titles, "News")
	news, err := storage.FeedsByCategory(ctx, titles["News"])
	require.NoError(t, err)
	assert.Empty(t, news)

	linux, err := storage.FeedsByCategory(ctx, titles["Linux"])
	require.NoError(t, err)
	assert.Len(t, linux, 2)

	loose, err := storage.FeedsByCategory(ctx, models.DefaultCategoryID)
	require.NoError(t, err)
	require.Len(t, loose, 1)
	assert.Equal(t, "https://loose.example", loose[0].HTMLURL)

	// Importing again only finds duplicates.
	summary, err = i.ImportOPML(ctx, strings.NewReader(testOPML))
	require.NoError(t, err)
	assert.Zero(t, summary.Imported)
	assert.Equal(t, 4, summary.Duplicates)

	again, err := storage.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, again, len(categories))
}

func TestImportCSV(t *testing.T) {
	ctx := context.Background()
	i, storage := newTestImporter(t)

	data := "category,title,type,html_url,xml_url,id\n" +
		"Go,The Go Blog,RSS,https://go.dev/blog,https://go.dev/blog/feed.atom,11\n" +
		",No category,,,https://plain.example/rss,\n" +
		"Go,Missing URL,rss,https://nourl.example,,\n" +
		"Go,Bad id,rss,,https://badid.example/rss,abc\n" +
		"Go,Repeated,rss,,https://go.dev/blog/feed.atom,\n"

	summary, err := i.ImportCSV(ctx, strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 1, summary.Duplicates)
	assert.Equal(t, 2, summary.Skipped)
	assert.Len(t, summary.Errors, 3)

	feeds, err := storage.Feeds(ctx)
	require.NoError(t, err)
	require.Len(t, feeds, 2)

	var goBlog models.Feed
	for _, f := range feeds {
		if f.ID == 11 {
			goBlog = f
		}
	}
	assert.Equal(t, "The Go Blog", goBlog.Title)
	assert.Equal(t, "rss", goBlog.Type)
	assert.NotEqual(t, models.DefaultCategoryID, goBlog.CategoryID)
}

func TestImportCSVRequiresURLColumn(t *testing.T) {
	i, _ := newTestImporter(t)

	_, err := i.ImportCSV(context.Background(), strings.NewReader("category,title\nGo,Blog\n"))
	assert.ErrorContains(t, err, "xml_url")
}

func TestExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src, storage := newTestImporter(t)
	_, err := src.ImportOPML(ctx, strings.NewReader(testOPML))
	require.NoError(t, err)

	categories, err := storage.Categories(ctx)
	require.NoError(t, err)
	feeds, err := storage.Feeds(ctx)
	require.NoError(t, err)

	var csvOut, opmlOut bytes.Buffer
	require.NoError(t, WriteCSV(&csvOut, categories, feeds))
	require.NoError(t, WriteOPML(&opmlOut, "Feeds Reader", categories, feeds))

	fromCSV, _ := newTestImporter(t)
	summary, err := fromCSV.ImportCSV(ctx, &csvOut)
	require.NoError(t, err)
	assert.Equal(t, len(feeds), summary.Imported)

	fromOPML, opmlStorage := newTestImporter(t)
	summary, err = fromOPML.ImportOPML(ctx, &opmlOut)
	require.NoError(t, err)
	assert.Equal(t, len(feeds), summary.Imported)

	imported, err := opmlStorage.Feeds(ctx)
	require.NoError(t, err)
	urls := func(fs []models.Feed) []string {
		out := make([]string, 0, len(fs))
		for _, f := range fs {
			out = append(out, f.XMLURL)
		}
		return out
	}
	assert.ElementsMatch(t, urls(feeds), urls(imported))
}

func TestImportFromFileAndURL(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "title,xml_url\nRemote,https://remote.example/rss\n")
	}))
	defer srv.Close()

	i, storage := newTestImporter(t)

	path := filepath.Join(t.TempDir(), "subscriptions.opml")
	require.NoError(t, os.WriteFile(path, []byte(testOPML), 0o644))

	summary, err := i.Import(ctx, path, "")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Imported)

	summary, err = i.Import(ctx, srv.URL+"/feeds.csv", "")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)

	feeds, err := storage.Feeds(ctx)
	require.NoError(t, err)
	assert.Len(t, feeds, 4)

	_, err = i.Import(ctx, filepath.Join(t.TempDir(), "missing.csv"), "")
	assert.Error(t, err)

	_, err = i.Import(ctx, path, "yaml")
	assert.ErrorContains(t, err, "unsupported")
}

func TestPrepareReplace(t *testing.T) {
	ctx := context.Background()
	i, storage := newTestImporter(t)

	_, err := i.ImportOPML(ctx, strings.NewReader(testOPML))
	require.NoError(t, err)

	require.NoError(t, i.Prepare(ctx, false))
	feeds, err := storage.Feeds(ctx)
	require.NoError(t, err)
	assert.Len(t, feeds, 3)

	require.NoError(t, i.Prepare(ctx, true))
	feeds, err = storage.Feeds(ctx)
	require.NoError(t, err)
	assert.Empty(t, feeds)

	version, err := storage.StorageVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatCSV, DetectFormat("feeds.CSV"))
	assert.Equal(t, FormatCSV, DetectFormat("https://example.com/feeds.csv?raw=1"))
	assert.Equal(t, FormatOPML, DetectFormat("subscriptions.opml"))
	assert.Equal(t, FormatOPML, DetectFormat("export.xml"))
}
