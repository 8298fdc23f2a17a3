package commands

import (
	"context"
	"log/slog"
	"time"

	"ugtop-backend/lib/restyutil"
	"ugtop-backend/lib/scrapers/ultimateguitar"
	"ugtop-backend/lib/serviceutil"
	"ugtop-backend/lib/sqliteutil"
	"ugtop-backend/services/toplist"
	"ugtop-backend/services/toplist/db"
	"ugtop-backend/services/toplist/scraper"

	"github.com/dgraph-io/badger/v4"
	"github.com/spf13/cobra"
)

var scrapeDb *string
var scrapeForce *bool
var scrapeCacheDir *string

func init() {
	scrapeDb = scrapeCmd.Flags().String("db", "results.db", "The database to write scrape results to.")
	scrapeForce = scrapeCmd.Flags().Bool("force", false, "Scrape even when the stored data is still fresh.")
	scrapeCacheDir = scrapeCmd.Flags().String("cache-dir", "", "Badger directory for caching fetched pages.")
	rootCmd.AddCommand(scrapeCmd)
}

func createClient(cacheDir string) (*ultimateguitar.Client, func()) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	ultimateguitar.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/ultimateguitar"))

	opts := ultimateguitar.ClientOptions{}
	cleanup := func() {}
	if cacheDir != "" {
		cache, err := badger.Open(badger.DefaultOptions(cacheDir))
		if err != nil {
			serviceutil.Fatal("failed to open page cache", err)
		}
		opts.Cache = cache
		cleanup = func() {
			cache.Close()
		}
	}

	client, err := ultimateguitar.NewClient(ctx, opts)
	if err != nil {
		serviceutil.Fatal("failed to initialize ultimate guitar client", err)
	}
	return client, cleanup
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--db <path/to/results.db>] [--force] [--cache-dir <dir>]",
	Short: "Scrapes the top lists of every type and writes them to a database.",
	Run: func(cmd *cobra.Command, args []string) {
		client, cleanup := createClient(*scrapeCacheDir)
		defer cleanup()

		out, err := sqliteutil.OpenDB(db.Schema, *scrapeDb)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer out.Close()

		store := toplist.NewStore(out)
		scr := scraper.NewScraper(client, store, scraper.Options{})

		t1 := time.Now()
		meta, err := scr.Run(cmd.Context(), *scrapeForce)
		if err != nil {
			serviceutil.Fatal("scrape failed", err)
		}
		t2 := time.Now()

		slog.Info("scraping time", "seconds", t2.Sub(t1).Seconds())
		slog.Info("scraped", "rows", meta.RowCount, "scraped_at", meta.ScrapedAt)
	},
}
