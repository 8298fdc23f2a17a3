package ultimateguitar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func TestClientTopList(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		require.Equal(t, "/top/tabs", r.URL.Path)
		require.Equal(t, OrderHits, r.URL.Query().Get("order"))
		require.Equal(t, "tabs", r.URL.Query().Get("type"))
		w.Write([]byte(topListPage))
	}))
	defer server.Close()

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true))
	require.NoError(t, err)
	defer db.Close()

	client, err := NewClient(context.Background(), ClientOptions{
		BaseUrl:         server.URL,
		Cache:           db,
		RequestInterval: time.Millisecond,
	})
	require.NoError(t, err)

	html, err := client.TopList(context.Background(), "tab", OrderHits)
	require.NoError(t, err)
	require.Equal(t, topListPage, html)

	// second read comes out of the page cache
	html, err = client.TopList(context.Background(), "tab", OrderHits)
	require.NoError(t, err)
	require.Equal(t, topListPage, html)
	require.Equal(t, int64(1), requests.Load())
}

func TestClientTopListUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("captcha required " + strings.Repeat("x", 400)))
	}))
	defer server.Close()

	client, err := NewClient(context.Background(), ClientOptions{
		BaseUrl:         server.URL,
		RequestInterval: time.Millisecond,
	})
	require.NoError(t, err)

	_, err = client.TopList(context.Background(), "chords", OrderHits)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected status 429")
	require.Contains(t, err.Error(), "captcha required")
	// bodies are cut down to an excerpt
	require.True(t, strings.HasSuffix(err.Error(), "..."))
}

func TestClientTopListUnknownType(t *testing.T) {
	client, err := NewClient(context.Background(), ClientOptions{
		BaseUrl: "https://www.ultimate-guitar.com",
	})
	require.NoError(t, err)

	_, err = client.TopList(context.Background(), "mandolin", OrderHits)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown list type")
}

func TestClientTabURL(t *testing.T) {
	client, err := NewClient(context.Background(), ClientOptions{})
	require.NoError(t, err)
	require.Equal(t, "https://tabs.ultimate-guitar.com/tab/100", client.TabURL(100))
}
