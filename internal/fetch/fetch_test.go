package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte("<rss></rss>"))
	}))
	defer srv.Close()

	body, err := NewFetcher(0).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<rss></rss>", body)
}

func TestFetchStatusError(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		status string
	}{
		{"not found", http.StatusNotFound, "Not Found"},
		{"server error", http.StatusInternalServerError, "Internal Server Error"},
		{"no content is not ok", http.StatusNoContent, "No Content"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
			}))
			defer srv.Close()

			body, err := NewFetcher(0).Fetch(context.Background(), srv.URL)
			assert.Empty(t, body)

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.code, statusErr.Code)
			assert.Equal(t, tt.status, err.Error())
		})
	}
}

func TestFetchNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewFetcher(time.Second).Fetch(context.Background(), url)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestFetchInvalidURL(t *testing.T) {
	_, err := NewFetcherWithClient(nil).Fetch(context.Background(), "::not a url")
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestFetchCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFetcher(0).Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, ErrNetwork)
}
