package toplist

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"ugtop-backend/lib/scrapers/ultimateguitar"
)

// TabRow is one merged list entry, uniquely keyed by URL. Rating and
// Votes stay nil when the rating-ordered list never mentioned the tab.
type TabRow struct {
	Artist string   `json:"artist"`
	Song   string   `json:"song"`
	Type   string   `json:"type"`
	URL    string   `json:"url"`
	Hits   int64    `json:"hits"`
	Rating *float64 `json:"rating"`
	Votes  *int64   `json:"votes"`
}

type Meta struct {
	ScrapedAt time.Time `json:"scraped_at"`
	Types     []string  `json:"types"`
	RowCount  int64     `json:"row_count"`
}

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

// Replace swaps out all rows, artist records and meta in one transaction,
// so readers never observe a half-written scrape.
func (s Store) Replace(ctx context.Context, rows []TabRow, records []ultimateguitar.Record, meta Meta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `DELETE FROM tab_rows`)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM artist_records`)
	if err != nil {
		return err
	}

	for i, r := range rows {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO tab_rows (ord, url, artist, song, type, hits, rating, votes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			i, r.URL, r.Artist, r.Song, r.Type, r.Hits, r.Rating, r.Votes,
		)
		if err != nil {
			return err
		}
	}
	for i, r := range records {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO artist_records (ord, artist, artist_ref, hits, type)
			VALUES (?, ?, ?, ?, ?)`,
			i, r.Artist, r.ArtistRef, r.Hits, r.Type,
		)
		if err != nil {
			return err
		}
	}

	typesJson, err := json.Marshal(meta.Types)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO scrape_meta (id, scraped_at, types, row_count)
		VALUES (0, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			scraped_at = excluded.scraped_at,
			types = excluded.types,
			row_count = excluded.row_count`,
		meta.ScrapedAt.Unix(), string(typesJson), meta.RowCount,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s Store) Rows(ctx context.Context) ([]TabRow, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT artist, song, type, url, hits, rating, votes
		FROM tab_rows
		ORDER BY hits DESC, COALESCE(rating, 0) DESC, ord`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TabRow
	for rows.Next() {
		var r TabRow
		err := rows.Scan(&r.Artist, &r.Song, &r.Type, &r.URL, &r.Hits, &r.Rating, &r.Votes)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s Store) Records(ctx context.Context) ([]ultimateguitar.Record, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT artist, artist_ref, hits, type
		FROM artist_records
		ORDER BY hits DESC, ord`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ultimateguitar.Record
	for rows.Next() {
		var r ultimateguitar.Record
		err := rows.Scan(&r.Artist, &r.ArtistRef, &r.Hits, &r.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s Store) Meta(ctx context.Context) (Meta, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT scraped_at, types, row_count FROM scrape_meta WHERE id = 0`,
	)

	var scrapedAt int64
	var typesJson string
	var meta Meta
	err := row.Scan(&scrapedAt, &typesJson, &meta.RowCount)
	if err == sql.ErrNoRows {
		return Meta{}, false, nil
	}
	if err != nil {
		return Meta{}, false, err
	}

	meta.ScrapedAt = time.Unix(scrapedAt, 0).UTC()
	err = json.Unmarshal([]byte(typesJson), &meta.Types)
	if err != nil {
		return Meta{}, false, err
	}
	return meta, true, nil
}

// Fresh reports whether the stored scrape is younger than maxAge. The
// meta is returned either way so callers can surface its age.
func (s Store) Fresh(ctx context.Context, maxAge time.Duration) (Meta, bool, error) {
	meta, ok, err := s.Meta(ctx)
	if err != nil || !ok {
		return Meta{}, false, err
	}
	if time.Since(meta.ScrapedAt) > maxAge {
		return meta, false, nil
	}
	return meta, true, nil
}
