package main

import (
	"context"
	"fmt"
	"log/slog"

	"ugtop-backend/services/toplist/scraper"

	"github.com/robfig/cron/v3"
)

// InitRescrapeCron schedules non-forced scrape runs. A run only hits the
// upstream once the stored data outlives the freshness window, so tight
// schedules are harmless.
func InitRescrapeCron(ctx context.Context, spec string, scr scraper.Scraper) error {
	if spec == "" {
		return nil
	}

	cronner := cron.New(cron.WithLogger(cronLogger{}))
	_, err := cronner.AddFunc(spec, func() {
		_, err := scr.Run(ctx, false)
		if err != nil {
			slog.ErrorContext(ctx, "scheduled scrape failed", "err", err)
		}
	})
	if err != nil {
		return err
	}
	cronner.Start()

	go func() {
		<-ctx.Done()
		cronner.Stop()
	}()
	return nil
}

type cronLogger struct{}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug(fmt.Sprintf("cron: %s", msg), keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error(fmt.Sprintf("cron: %s", msg), append([]any{"err", err}, keysAndValues...)...)
}
