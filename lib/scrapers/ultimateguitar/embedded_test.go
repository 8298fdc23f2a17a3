package ultimateguitar

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// the page stores its payload html-escaped inside the data-content attribute
const embeddedPage = `<!DOCTYPE html>
<html>
<body>
<div class="js-store" data-content="{&quot;store&quot;:{&quot;page&quot;:{&quot;data&quot;:{&quot;tabs&quot;:[{&quot;id&quot;:100,&quot;artist_name&quot;:&quot;Metallica&quot;,&quot;song_name&quot;:&quot;Nothing Else Matters&quot;,&quot;rating&quot;:4.8,&quot;votes&quot;:15000},{&quot;id&quot;:200,&quot;artist_name&quot;:&quot;Passenger&quot;,&quot;song_name&quot;:&quot;Let Her Go&quot;,&quot;rating&quot;:4.6,&quot;votes&quot;:9000}],&quot;hits&quot;:[{&quot;id&quot;:100,&quot;hits&quot;:1200000},{&quot;id&quot;:200,&quot;hits&quot;:980500}]}}}}"></div>
</body>
</html>`

func TestParseEmbeddedList(t *testing.T) {
	list, ok := ParseEmbeddedList(embeddedPage)
	require.True(t, ok)

	expected := EmbeddedList{
		Tabs: []EmbeddedTab{
			{ID: 100, ArtistName: "Metallica", SongName: "Nothing Else Matters", Rating: 4.8, Votes: 15000},
			{ID: 200, ArtistName: "Passenger", SongName: "Let Her Go", Rating: 4.6, Votes: 9000},
		},
		HitsByID: map[int64]int64{
			100: 1_200_000,
			200: 980_500,
		},
	}
	diff := cmp.Diff(expected, list)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestParseEmbeddedListMissing(t *testing.T) {
	testCases := []struct {
		name string
		html string
	}{
		{
			name: "no data-content attribute",
			html: `<html><body><div class="js-store"></div></body></html>`,
		},
		{
			name: "attribute holds no json",
			html: `<html><body><div data-content="not json"></div></body></html>`,
		},
		{
			name: "empty document",
			html: ``,
		},
	}

	for _, test := range testCases {
		_, ok := ParseEmbeddedList(test.html)
		if ok {
			t.Fatalf("%s: expected no embedded list", test.name)
		}
	}
}
