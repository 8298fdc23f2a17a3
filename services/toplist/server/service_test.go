package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ugtop-backend/lib/scrapers/ultimateguitar"
	"ugtop-backend/lib/testutil"
	"ugtop-backend/services/toplist"
	"ugtop-backend/services/toplist/db"
	"ugtop-backend/services/toplist/scraper"

	"github.com/stretchr/testify/require"
)

var listPage = fmt.Sprintf(
	`<!DOCTYPE html>
<html>
<body>
<h1>Top 100 tabs, the most popular tab and chord lists on the site</h1>
<div class="js-store" data-content="%s"></div>
<table>
<tr><td><a href="/artist/10">Metallica</a></td><td>1,200,000 views - tab</td></tr>
</table>
<footer>About Site Map TOS Privacy Support and a bit more filler text</footer>
</body>
</html>`,
	html.EscapeString(`{"store":{"page":{"data":{"tabs":[{"id":100,"artist_name":"Metallica","song_name":"Nothing Else Matters","rating":4.8,"votes":15000}],"hits":[{"id":100,"hits":1200000}]}}}}`),
)

func getJson(t *testing.T, url string, status int, out any) *http.Response {
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Equal(t, status, res.StatusCode, string(body))

	if out != nil {
		err = json.Unmarshal(body, out)
		require.NoError(t, err)
	}
	return res
}

func TestService(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/toplist/server",
		DbSchema: db.Schema,
	})
	defer cleanup()
	store := toplist.NewStore(setup.DB)

	var requests atomic.Int64
	var fail atomic.Bool
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if fail.Load() {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("blocked"))
			return
		}
		w.Write([]byte(listPage))
	}))
	defer upstream.Close()

	client, err := ultimateguitar.NewClient(context.Background(), ultimateguitar.ClientOptions{
		BaseUrl:         upstream.URL,
		RequestInterval: time.Millisecond,
	})
	require.NoError(t, err)

	service := NewService(store, scraper.NewScraper(client, store, scraper.Options{
		Types: []string{"tab"},
	}))
	mux := http.NewServeMux()
	service.Register(mux)
	api := httptest.NewServer(mux)
	defer api.Close()

	{
		// nothing scraped yet
		var body map[string]string
		res := getJson(t, api.URL+"/data/top.json", http.StatusNotFound, &body)
		require.Equal(t, "no cached data yet", body["error"])
		require.Equal(t, "no-store", res.Header.Get("Cache-Control"))
	}

	{
		var body scrapeResponse
		getJson(t, api.URL+"/scrape", http.StatusOK, &body)
		require.True(t, body.Ok)
		require.Equal(t, int64(1), body.RowCount)
		require.Equal(t, int64(2), requests.Load())
	}

	{
		var body topPayload
		res := getJson(t, api.URL+"/data/top.json", http.StatusOK, &body)
		require.Equal(t, "application/json; charset=utf-8", res.Header.Get("Content-Type"))
		require.Equal(t, "no-store", res.Header.Get("Cache-Control"))
		require.Equal(t, int64(1), body.Meta.RowCount)
		require.Len(t, body.Rows, 1)
		require.Equal(t, "Metallica", body.Rows[0].Artist)
		require.Equal(t, int64(1_200_000), body.Rows[0].Hits)
		if body.Rows[0].Rating == nil {
			t.Fatal("expected a rating from the rating-ordered list")
		}
		require.Equal(t, 4.8, *body.Rows[0].Rating)
	}

	{
		var body artistsPayload
		getJson(t, api.URL+"/data/artists.json", http.StatusOK, &body)
		require.Len(t, body.Records, 1)
		require.Equal(t, "Metallica", body.Records[0].Artist)
		require.Equal(t, "/artist/10", body.Records[0].ArtistRef)
		require.Equal(t, "tab", body.Records[0].Type)
	}

	{
		// fresh data is served without hitting the upstream again
		var body scrapeResponse
		getJson(t, api.URL+"/scrape", http.StatusOK, &body)
		require.True(t, body.Ok)
		require.Equal(t, int64(2), requests.Load())
	}

	{
		// a failing scrape reports the error and keeps the stored data
		fail.Store(true)
		var body errorResponse
		getJson(t, api.URL+"/scrape?force=1", http.StatusInternalServerError, &body)
		require.False(t, body.Ok)
		require.Equal(t, "scrape failed", body.Error)
		require.Contains(t, body.Details, "unexpected status 403")

		var top topPayload
		getJson(t, api.URL+"/data/top.json", http.StatusOK, &top)
		require.Len(t, top.Rows, 1)
	}

	{
		req, err := http.NewRequest(http.MethodDelete, api.URL+"/scrape", nil)
		require.NoError(t, err)
		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		res.Body.Close()
		require.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
	}
}
