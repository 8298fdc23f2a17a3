package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"ugtop-backend/lib/scrapers/ultimateguitar"
	"ugtop-backend/services/toplist"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/toplist/scraper")

const DefaultMaxAge = time.Hour * 24

type Options struct {
	// MaxAge defaults to DefaultMaxAge
	MaxAge time.Duration
	// Types defaults to ultimateguitar.TypeKeys
	Types []string
}

type Scraper struct {
	client    *ultimateguitar.Client
	extractor ultimateguitar.Extractor
	store     toplist.Store
	types     []string
	maxAge    time.Duration
}

func NewScraper(client *ultimateguitar.Client, store toplist.Store, opts Options) Scraper {
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if len(opts.Types) == 0 {
		opts.Types = ultimateguitar.TypeKeys
	}
	return Scraper{
		client:    client,
		extractor: ultimateguitar.NewExtractor(ultimateguitar.ExtractorOptions{}),
		store:     store,
		types:     opts.Types,
		maxAge:    opts.MaxAge,
	}
}

type recordId struct {
	artist string
	hits   int64
	kind   string
}

// Run scrapes every configured list type and atomically replaces the
// stored rows, artist records and meta. Unless force is set, a stored
// scrape younger than the max age is returned untouched. Any failure
// aborts the run before the store is written, so the previous scrape
// survives.
func (s Scraper) Run(ctx context.Context, force bool) (toplist.Meta, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	runId, err := random.String(8)
	if err != nil {
		return toplist.Meta{}, err
	}
	span.SetAttributes(
		attribute.String("run_id", runId),
		attribute.Bool("force", force),
	)

	if !force {
		meta, fresh, err := s.store.Fresh(ctx, s.maxAge)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to check scrape freshness")
			return toplist.Meta{}, err
		}
		if fresh {
			slog.InfoContext(ctx, "skipping scrape, stored data is fresh", "run_id", runId, "scraped_at", meta.ScrapedAt)
			return meta, nil
		}
	}

	all := map[string]*toplist.TabRow{}
	var urls []string
	var records []ultimateguitar.Record

	for i, typeKey := range s.types {
		slog.InfoContext(
			ctx, "fetching type lists",
			"run_id", runId,
			"type", typeKey,
			"progress", fmt.Sprintf("%d/%d", i+1, len(s.types)),
		)

		typeRows, typeRecords, err := s.scrapeType(ctx, typeKey)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to scrape type")
			return toplist.Meta{}, fmt.Errorf("scrape %s: %w", typeKey, err)
		}
		records = append(records, typeRecords...)

		for _, row := range typeRows {
			existing, ok := all[row.URL]
			if !ok {
				r := row
				all[row.URL] = &r
				urls = append(urls, row.URL)
				continue
			}
			// the same tab can show up under several types, prefer
			// the higher hit count and fill in missing fields
			if row.Hits > existing.Hits {
				existing.Hits = row.Hits
			}
			if row.Rating != nil {
				existing.Rating = row.Rating
			}
			if row.Votes != nil {
				existing.Votes = row.Votes
			}
		}
	}

	list := make([]toplist.TabRow, len(urls))
	for i, url := range urls {
		list[i] = *all[url]
	}
	slices.SortStableFunc(list, func(a, b toplist.TabRow) int {
		if a.Hits != b.Hits {
			if a.Hits > b.Hits {
				return -1
			}
			return 1
		}
		ar := ratingValue(a.Rating)
		br := ratingValue(b.Rating)
		if ar != br {
			if ar > br {
				return -1
			}
			return 1
		}
		return 0
	})

	merged := dedupeRecords(records)
	slices.SortStableFunc(merged, func(a, b ultimateguitar.Record) int {
		if a.Hits == b.Hits {
			return 0
		}
		if a.Hits > b.Hits {
			return -1
		}
		return 1
	})

	meta := toplist.Meta{
		ScrapedAt: time.Now().UTC().Truncate(time.Second),
		Types:     s.types,
		RowCount:  int64(len(list)),
	}
	err = s.store.Replace(ctx, list, merged, meta)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to replace stored scrape")
		return toplist.Meta{}, err
	}

	span.SetAttributes(
		attribute.Int("row_count", len(list)),
		attribute.Int("record_count", len(merged)),
	)
	slog.InfoContext(
		ctx, "scrape complete",
		"run_id", runId,
		"rows", len(list),
		"records", len(merged),
	)
	return meta, nil
}

// scrapeType fetches the hits-ordered and rating-ordered lists of one
// type and merges them into rows keyed by tab URL, in discovery order.
// Both pages also run through the heuristic artist extractor.
func (s Scraper) scrapeType(ctx context.Context, typeKey string) ([]toplist.TabRow, []ultimateguitar.Record, error) {
	ctx, span := tracer.Start(ctx, "scrapeType")
	defer span.End()
	span.SetAttributes(attribute.String("type", typeKey))

	hitsHtml, err := s.client.TopList(ctx, typeKey, ultimateguitar.OrderHits)
	if err != nil {
		return nil, nil, err
	}
	ratingHtml, err := s.client.TopList(ctx, typeKey, ultimateguitar.OrderRating)
	if err != nil {
		return nil, nil, err
	}

	rows := map[string]*toplist.TabRow{}
	var order []string

	hitsList, ok := ultimateguitar.ParseEmbeddedList(hitsHtml)
	if !ok {
		// no payload on the hits page means the list itself is gone,
		// likely a challenge page, abort instead of storing nothing
		return nil, nil, fmt.Errorf("no embedded tab data in the %s hits list", typeKey)
	}
	for _, tab := range hitsList.Tabs {
		artist := strings.TrimSpace(tab.ArtistName)
		song := strings.TrimSpace(tab.SongName)
		if artist == "" || song == "" {
			continue
		}

		url := s.client.TabURL(tab.ID)
		hits := hitsList.HitsByID[tab.ID]

		existing, ok := rows[url]
		if ok {
			if hits > existing.Hits {
				existing.Hits = hits
			}
			continue
		}
		rows[url] = &toplist.TabRow{
			Artist: artist,
			Song:   song,
			Type:   typeKey,
			URL:    url,
			Hits:   hits,
		}
		order = append(order, url)
	}

	ratingList, ok := ultimateguitar.ParseEmbeddedList(ratingHtml)
	if !ok {
		slog.WarnContext(ctx, "no embedded tab data in rating list", "type", typeKey)
	}
	for _, tab := range ratingList.Tabs {
		url := s.client.TabURL(tab.ID)

		var rating *float64
		var votes *int64
		if tab.Rating != 0 {
			r := tab.Rating
			rating = &r
		}
		if tab.Votes != 0 {
			v := tab.Votes
			votes = &v
		}

		existing, ok := rows[url]
		if ok {
			if rating != nil {
				existing.Rating = rating
			}
			if votes != nil {
				existing.Votes = votes
			}
			continue
		}

		artist := strings.TrimSpace(tab.ArtistName)
		song := strings.TrimSpace(tab.SongName)
		if artist == "" || song == "" {
			continue
		}
		rows[url] = &toplist.TabRow{
			Artist: artist,
			Song:   song,
			Type:   typeKey,
			URL:    url,
			Hits:   0,
			Rating: rating,
			Votes:  votes,
		}
		order = append(order, url)
	}

	out := make([]toplist.TabRow, len(order))
	for i, url := range order {
		out[i] = *rows[url]
	}

	var records []ultimateguitar.Record
	records = append(records, s.extractor.Extract(ctx, hitsHtml)...)
	records = append(records, s.extractor.Extract(ctx, ratingHtml)...)

	return out, records, nil
}

func ratingValue(r *float64) float64 {
	if r == nil {
		return 0
	}
	return *r
}

func dedupeRecords(records []ultimateguitar.Record) []ultimateguitar.Record {
	seen := map[recordId]bool{}
	var out []ultimateguitar.Record
	for _, r := range records {
		id := recordId{artist: r.Artist, hits: r.Hits, kind: r.Type}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, r)
	}
	return out
}
