package ultimateguitar

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// EmbeddedTab is a tab object from the page's embedded JSON store.
type EmbeddedTab struct {
	ID         int64   `json:"id"`
	ArtistName string  `json:"artist_name"`
	SongName   string  `json:"song_name"`
	Rating     float64 `json:"rating"`
	Votes      int64   `json:"votes"`
}

// EmbeddedList is the song-level payload a fully rendered top-list page
// carries in its data-content attribute.
type EmbeddedList struct {
	Tabs     []EmbeddedTab
	HitsByID map[int64]int64
}

type embeddedStore struct {
	Store struct {
		Page struct {
			Data struct {
				Tabs []EmbeddedTab `json:"tabs"`
				Hits []struct {
					ID   int64 `json:"id"`
					Hits int64 `json:"hits"`
				} `json:"hits"`
			} `json:"data"`
		} `json:"page"`
	} `json:"store"`
}

// ParseEmbeddedList reads the JSON store out of the first data-content
// attribute in the document. The second return is false when the marker is
// missing or its payload does not parse, which is how pages that were never
// fully rendered look.
func ParseEmbeddedList(html string) (EmbeddedList, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return EmbeddedList{}, false
	}

	// attribute values come back html-unescaped from the parser
	content, exists := doc.Find("[data-content]").First().Attr("data-content")
	if !exists {
		return EmbeddedList{}, false
	}

	var store embeddedStore
	err = json.Unmarshal([]byte(content), &store)
	if err != nil {
		return EmbeddedList{}, false
	}

	list := EmbeddedList{
		Tabs:     store.Store.Page.Data.Tabs,
		HitsByID: map[int64]int64{},
	}
	for _, h := range store.Store.Page.Data.Hits {
		list.HitsByID[h.ID] = h.Hits
	}
	return list, true
}
