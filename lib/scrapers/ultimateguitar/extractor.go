package ultimateguitar

import (
	"context"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"ugtop-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Record is one top-list entry attributed to an artist.
type Record struct {
	Artist    string `json:"artist"`
	ArtistRef string `json:"artist_ref,omitempty"`
	Hits      int64  `json:"hits"`
	Type      string `json:"type"`
}

const artistLinkSelector = `a[href*="/artist/"]`
const rowContainerSelector = "tr"

const DefaultMinHits = 100_000
const DefaultMinTextLength = 100

// DefaultTypeVocabulary lists the arrangement labels recognized in row text.
// Matches are lowercased and "tabs" collapses into "tab".
var DefaultTypeVocabulary = []string{
	"chords",
	"tab",
	"tabs",
	"bass",
	"ukulele",
	"power",
	"guitar pro",
	"pro",
	"drums",
}

type ExtractorOptions struct {
	// MinHits drops records whose hit count is below it, 0 means
	// DefaultMinHits. Small counters (pagination, vote widgets) never
	// reach the default threshold.
	MinHits int64
	// MinTextLength is the least visible text (in runes) a document must
	// have to be considered rendered content rather than a challenge or
	// interstitial page, 0 means DefaultMinTextLength.
	MinTextLength int
	// TypeVocabulary overrides DefaultTypeVocabulary when non-empty.
	TypeVocabulary []string
}

// Extractor derives Records from the raw HTML of a top-list page. It is
// immutable and safe for concurrent use.
type Extractor struct {
	minHits       int64
	minTextLength int
	typePattern   *regexp.Regexp
}

// first run of 4+ digits, allowing comma thousands separators. both
// alternatives guarantee at least 4 digits so short counters like "999"
// and decimal ratings like "4.656" never match.
var hitsPattern = regexp.MustCompile(`\d{1,3}(?:,\d{3})+|\d{4,}`)

func buildTypePattern(vocabulary []string) *regexp.Regexp {
	terms := slices.Clone(vocabulary)
	// longest first so "tabs" and "guitar pro" win over their prefixes
	slices.SortStableFunc(terms, func(a, b string) int {
		return len(b) - len(a)
	})
	for i, t := range terms {
		terms[i] = regexp.QuoteMeta(t)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(terms, "|") + `)\b`)
}

func NewExtractor(opts ExtractorOptions) Extractor {
	if opts.MinHits == 0 {
		opts.MinHits = DefaultMinHits
	}
	if opts.MinTextLength == 0 {
		opts.MinTextLength = DefaultMinTextLength
	}
	if len(opts.TypeVocabulary) == 0 {
		opts.TypeVocabulary = DefaultTypeVocabulary
	}
	return Extractor{
		minHits:       opts.MinHits,
		minTextLength: opts.MinTextLength,
		typePattern:   buildTypePattern(opts.TypeVocabulary),
	}
}

// Extract derives the records present in the given HTML. It is a pure
// function of its input: malformed markup degrades to fewer or zero
// records, it never fails.
//
// A record is produced for every anchor whose href contains "/artist/",
// reading the hit count and arrangement type out of the text of the
// nearest enclosing table row (the anchor's parent when there is no row).
// Records below the hits threshold are dropped, duplicates by
// (artist, hits, type) keep their first occurrence, and the result is
// ordered by hits descending with ties in discovery order.
func (e Extractor) Extract(ctx context.Context, html string) []Record {
	ctx, span := tracer.Start(ctx, "Extract")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil
	}

	text := htmlutil.DocumentText(doc)
	if utf8.RuneCountInString(text) < e.minTextLength {
		span.AddEvent("document below minimum visible text length", trace.WithAttributes(
			attribute.Int("text_length", utf8.RuneCountInString(text)),
		))
		return nil
	}

	var records []Record
	seen := map[recordKey]bool{}

	doc.Find(artistLinkSelector).Each(func(_ int, link *goquery.Selection) {
		anchor := htmlutil.AnchorOf(link)
		if anchor.Name == "" {
			return
		}

		window := containerText(link)
		hits, ok := findHits(window)
		if !ok {
			return
		}
		recordType, ok := e.findType(window)
		if !ok {
			return
		}
		if hits < e.minHits {
			return
		}

		key := recordKey{artist: anchor.Name, hits: hits, recordType: recordType}
		if seen[key] {
			return
		}
		seen[key] = true

		records = append(records, Record{
			Artist:    anchor.Name,
			ArtistRef: anchor.Href,
			Hits:      hits,
			Type:      recordType,
		})
	})

	slices.SortStableFunc(records, func(a, b Record) int {
		if a.Hits > b.Hits {
			return -1
		}
		if a.Hits < b.Hits {
			return 1
		}
		return 0
	})

	span.SetAttributes(attribute.Int("record_count", len(records)))
	return records
}

type recordKey struct {
	artist     string
	hits       int64
	recordType string
}

// containerText returns the cleaned visible text of the anchor's row, or
// of its immediate parent when the anchor sits outside any table row.
func containerText(link *goquery.Selection) string {
	container := link.Closest(rowContainerSelector)
	if len(container.Nodes) == 0 {
		container = link.Parent()
	}
	if len(container.Nodes) == 0 {
		return ""
	}
	return htmlutil.Clean(htmlutil.Text(container.Nodes[0]))
}

func findHits(window string) (int64, bool) {
	match := hitsPattern.FindString(window)
	if match == "" {
		return 0, false
	}
	hits, err := strconv.ParseInt(strings.ReplaceAll(match, ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return hits, true
}

func (e Extractor) findType(window string) (string, bool) {
	match := e.typePattern.FindString(window)
	if match == "" {
		return "", false
	}
	match = strings.ToLower(match)
	if match == "tabs" {
		match = "tab"
	}
	return match, true
}
