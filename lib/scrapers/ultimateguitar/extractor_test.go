package ultimateguitar

import (
	"context"
	"testing"

	"ugtop-backend/lib/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const topListPage = `<!DOCTYPE html>
<html>
<head><title>Top 100 tabs</title><script>window.__noise = "1,999,999 tab";</script></head>
<body>
<header><nav>Explore Articles Forum Publish Pro trial for 7 days</nav></header>
<main>
<h1>Top 100 tabs sorted by hits</h1>
<table>
<tr><td>1</td><td><a href="/artist/1">Metallica</a> <a href="/tab/100">Nothing Else Matters</a></td><td>1,200,000 views - tab</td></tr>
<tr><td>2</td><td><a href="/artist/2">Passenger</a> <a href="/tab/200">Let Her Go</a></td><td>980,500 views - chords</td></tr>
<tr><td>3</td><td><a href="/artist/3">Led Zeppelin</a> <a href="/tab/300">Stairway To Heaven</a></td><td>794301 views - Guitar Pro</td></tr>
<tr><td>4</td><td><a href="/artist/4">Radiohead</a> <a href="/tab/400">Creep</a></td><td>500,000 views - TABS</td></tr>
<tr><td>5</td><td><a href="/artist/5">Israel Kamakawiwoole</a> <a href="/tab/500">Over The Rainbow</a></td><td>500,000 views - ukulele</td></tr>
<tr><td>6</td><td><a href="/artist/6">Obscure Act</a> <a href="/tab/600">Deep Cut</a></td><td>99,999 views - chords</td></tr>
<tr><td>7</td><td><a href="/artist/7">No Count Band</a> <a href="/tab/700">Quiet Song</a></td><td>42 views - chords</td></tr>
<tr><td>8</td><td><a href="/artist/8">Typeless Group</a> <a href="/tab/800">Mystery Song</a></td><td>2,500,000 views</td></tr>
<tr><td>9</td><td><a href="/artist/1">Metallica</a> <a href="/tab/101">Nothing Else Matters (ver 2)</a></td><td>1,200,000 views - tab</td></tr>
</table>
</main>
<footer>About Site Map TOS Privacy Support</footer>
</body>
</html>`

func TestExtract(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/ultimateguitar")
	defer cleanup()

	extractor := NewExtractor(ExtractorOptions{})
	records := extractor.Extract(context.Background(), topListPage)

	expected := []Record{
		{Artist: "Metallica", ArtistRef: "/artist/1", Hits: 1_200_000, Type: "tab"},
		{Artist: "Passenger", ArtistRef: "/artist/2", Hits: 980_500, Type: "chords"},
		{Artist: "Led Zeppelin", ArtistRef: "/artist/3", Hits: 794_301, Type: "guitar pro"},
		{Artist: "Radiohead", ArtistRef: "/artist/4", Hits: 500_000, Type: "tab"},
		{Artist: "Israel Kamakawiwoole", ArtistRef: "/artist/5", Hits: 500_000, Type: "ukulele"},
	}
	diff := cmp.Diff(expected, records)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestExtractRowSemantics(t *testing.T) {
	extractor := NewExtractor(ExtractorOptions{MinTextLength: 1})

	testCases := []struct {
		name   string
		html   string
		expect []Record
	}{
		{
			name: "hits and type read from the enclosing row",
			html: `<table><tr><td><a href="/artist/1">Metallica</a></td><td>1,200,000 views - tab</td></tr></table>`,
			expect: []Record{
				{Artist: "Metallica", ArtistRef: "/artist/1", Hits: 1_200_000, Type: "tab"},
			},
		},
		{
			name: "parent is the window when there is no row",
			html: `<ul><li><a href="/artist/9">Nirvana</a> 850,000 views - chords</li></ul>`,
			expect: []Record{
				{Artist: "Nirvana", ArtistRef: "/artist/9", Hits: 850_000, Type: "chords"},
			},
		},
		{
			name:   "no digit run of four or more",
			html:   `<div><a href="/artist/7">No Count Band</a> 42 views - chords</div>`,
			expect: nil,
		},
		{
			name:   "no type in the window",
			html:   `<div><a href="/artist/8">Typeless Group</a> 2,500,000 views</div>`,
			expect: nil,
		},
		{
			name:   "hits below the threshold",
			html:   `<div><a href="/artist/6">Obscure Act</a> 99,999 views - chords</div>`,
			expect: nil,
		},
		{
			name: "hits exactly at the threshold",
			html: `<div><a href="/artist/6">Obscure Act</a> 100,000 views - chords</div>`,
			expect: []Record{
				{Artist: "Obscure Act", ArtistRef: "/artist/6", Hits: 100_000, Type: "chords"},
			},
		},
		{
			name: "plain digit runs parse without separators",
			html: `<div><a href="/artist/3">Led Zeppelin</a> 794301 views - tab</div>`,
			expect: []Record{
				{Artist: "Led Zeppelin", ArtistRef: "/artist/3", Hits: 794_301, Type: "tab"},
			},
		},
		{
			name: "tabs label collapses into tab",
			html: `<div><a href="/artist/4">Radiohead</a> 500,000 views - tabs</div>`,
			expect: []Record{
				{Artist: "Radiohead", ArtistRef: "/artist/4", Hits: 500_000, Type: "tab"},
			},
		},
		{
			name: "type casing is normalized",
			html: `<div><a href="/artist/5">Israel K</a> 500,000 views - UKULELE</div>`,
			expect: []Record{
				{Artist: "Israel K", ArtistRef: "/artist/5", Hits: 500_000, Type: "ukulele"},
			},
		},
		{
			name: "first type mention wins",
			html: `<div><a href="/artist/2">Passenger</a> 980,500 views - chords (also available as tab)</div>`,
			expect: []Record{
				{Artist: "Passenger", ArtistRef: "/artist/2", Hits: 980_500, Type: "chords"},
			},
		},
		{
			name:   "anchor with empty label is skipped",
			html:   `<div><a href="/artist/1"> </a> 1,200,000 views - tab</div>`,
			expect: nil,
		},
		{
			name:   "non-artist anchors are ignored",
			html:   `<div><a href="/tab/100">Nothing Else Matters</a> 1,200,000 views - tab</div>`,
			expect: nil,
		},
		{
			name: "unclosed markup still parses",
			html: `<table><tr><td><a href="/artist/1">Metallica</a> 1,200,000 views - tab<tr><td>broken`,
			expect: []Record{
				{Artist: "Metallica", ArtistRef: "/artist/1", Hits: 1_200_000, Type: "tab"},
			},
		},
	}

	for _, test := range testCases {
		records := extractor.Extract(context.Background(), test.html)
		diff := cmp.Diff(test.expect, records)
		if diff != "" {
			t.Fatalf("%s: %s", test.name, diff)
		}
	}
}

func TestExtractDeduplicates(t *testing.T) {
	extractor := NewExtractor(ExtractorOptions{MinTextLength: 1})

	html := `<table>
<tr><td><a href="/artist/1">Metallica</a></td><td>1,200,000 views - tab</td></tr>
<tr><td><a href="/artist/1?src=featured">Metallica</a></td><td>1,200,000 views - tab</td></tr>
</table>`
	records := extractor.Extract(context.Background(), html)

	require.Len(t, records, 1)
	require.Equal(t, "/artist/1", records[0].ArtistRef)
}

func TestExtractOrdering(t *testing.T) {
	extractor := NewExtractor(ExtractorOptions{MinTextLength: 1})

	html := `<table>
<tr><td><a href="/artist/1">Low</a></td><td>300,000 views - tab</td></tr>
<tr><td><a href="/artist/2">Tie A</a></td><td>500,000 views - chords</td></tr>
<tr><td><a href="/artist/3">Tie B</a></td><td>500,000 views - tab</td></tr>
<tr><td><a href="/artist/4">High</a></td><td>900,000 views - chords</td></tr>
</table>`
	records := extractor.Extract(context.Background(), html)

	require.Len(t, records, 4)
	require.Equal(t, "High", records[0].Artist)
	// equal hit counts keep their discovery order
	require.Equal(t, "Tie A", records[1].Artist)
	require.Equal(t, "Tie B", records[2].Artist)
	require.Equal(t, "Low", records[3].Artist)
}

func TestExtractDegeneratePage(t *testing.T) {
	extractor := NewExtractor(ExtractorOptions{})

	// challenge pages render almost no visible text
	challenge := `<html><head><script>location.reload()</script></head><body>Checking your browser</body></html>`
	records := extractor.Extract(context.Background(), challenge)
	require.Len(t, records, 0)
}

func TestExtractIdempotent(t *testing.T) {
	extractor := NewExtractor(ExtractorOptions{})

	first := extractor.Extract(context.Background(), topListPage)
	second := extractor.Extract(context.Background(), topListPage)
	diff := cmp.Diff(first, second)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestExtractCustomOptions(t *testing.T) {
	extractor := NewExtractor(ExtractorOptions{
		MinHits:        1000,
		MinTextLength:  1,
		TypeVocabulary: []string{"banjo"},
	})

	html := `<div><a href="/artist/1">Folk Act</a> 1,500 plays - banjo</div>`
	records := extractor.Extract(context.Background(), html)

	require.Len(t, records, 1)
	require.Equal(t, int64(1500), records[0].Hits)
	require.Equal(t, "banjo", records[0].Type)
}
