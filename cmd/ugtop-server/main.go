package main

import (
	"flag"
	"log/slog"
	"net/http"
	"time"

	"ugtop-backend/lib/configutil"
	"ugtop-backend/lib/scrapers/ultimateguitar"
	"ugtop-backend/lib/serviceutil"
	"ugtop-backend/lib/sqliteutil"
	"ugtop-backend/services/toplist"
	"ugtop-backend/services/toplist/db"
	"ugtop-backend/services/toplist/scraper"
	"ugtop-backend/services/toplist/server"

	"github.com/dgraph-io/badger/v4"
)

type ScraperConfig struct {
	// BaseUrl and TabsBaseUrl fall back to the production site
	BaseUrl     string `json:"base_url"`
	TabsBaseUrl string `json:"tabs_base_url"`
	// PageCacheDir enables the badger page cache when set
	PageCacheDir string `json:"page_cache_dir"`
	// MaxAgeHours is the scrape freshness window, 24h when unset
	MaxAgeHours float64 `json:"max_age_hours"`
	// RescrapeCron re-runs the scraper on a schedule, stale data only
	RescrapeCron string `json:"rescrape_cron"`
}

type Config struct {
	Port     int           `json:"port"`
	Database string        `json:"database"`
	Scraper  ScraperConfig `json:"scraper"`
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	initialScrape := flag.Bool("scrape", false, "Trigger scraping immediately on run.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	InitTelemetry(ctx, *verbose)

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	if cfg.Port == 0 {
		cfg.Port = 5177
	}

	database, err := sqliteutil.OpenDB(db.Schema, cfg.Database)
	if err != nil {
		serviceutil.Fatal("open database", err)
	}
	store := toplist.NewStore(database)

	opts := ultimateguitar.ClientOptions{
		BaseUrl:     cfg.Scraper.BaseUrl,
		TabsBaseUrl: cfg.Scraper.TabsBaseUrl,
	}
	if cfg.Scraper.PageCacheDir != "" {
		cache, err := badger.Open(badger.DefaultOptions(cfg.Scraper.PageCacheDir))
		if err != nil {
			serviceutil.Fatal("open page cache", err)
		}
		defer cache.Close()
		opts.Cache = cache
	}
	client, err := ultimateguitar.NewClient(ctx, opts)
	if err != nil {
		serviceutil.Fatal("init ultimate guitar client", err)
	}

	scr := scraper.NewScraper(client, store, scraper.Options{
		MaxAge: time.Duration(cfg.Scraper.MaxAgeHours * float64(time.Hour)),
	})

	if *initialScrape {
		slog.Info("scraping on start")
		go func() {
			_, err := scr.Run(ctx, false)
			if err != nil {
				slog.ErrorContext(ctx, "initial scrape failed", "err", err)
			}
		}()
	}
	err = InitRescrapeCron(ctx, cfg.Scraper.RescrapeCron, scr)
	if err != nil {
		serviceutil.Fatal("init rescrape cron", err)
	}

	mux := http.NewServeMux()
	server.NewService(store, scr).Register(mux)

	go serviceutil.StartHttpServer(cfg.Port, mux)
	<-ctx.Done()
}
