package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reddot-watch/feedsreader/internal/fetch"
)

func TestObserve(t *testing.T) {
	m := New()

	m.ObserveFetch(nil)
	m.ObserveFetch(&fetch.StatusError{Code: 404, Status: "Not Found"})
	m.ObserveFetch(errors.New("connection refused"))
	m.ObserveParse(3, nil)
	m.ObserveParse(0, errors.New("bad xml"))
	m.SetUnread(3)
	m.IncRefresh()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("status")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("network")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.parses.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.entries))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.unread))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveFetch(nil)
		m.ObserveParse(1, nil)
		m.SetUnread(1)
		m.IncRefresh()
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.IncRefresh()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "feedsreader_refreshes_total 1")
}
