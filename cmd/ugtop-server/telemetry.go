package main

import (
	"context"
	"log/slog"
	"os"

	"ugtop-backend/lib/restyutil"
	"ugtop-backend/lib/scrapers/ultimateguitar"
	"ugtop-backend/lib/serviceutil"
	"ugtop-backend/lib/telemetry"
)

func InitTelemetry(ctx context.Context, verbose bool) {
	telemetry.InitSlog(verbose)

	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	tel, err := telemetry.SetupFromEnv(ctx, "ugtop-server")
	if os.IsNotExist(err) {
		slog.WarnContext(ctx, "no telemetry.json5 found, otlp export disabled")
	} else if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	} else {
		go func() {
			<-ctx.Done()
			tel.Shutdown(context.Background())
		}()
	}
	telemetry.InstrumentPerfStats(ctx)

	if !verbose {
		return
	}

	ultimateguitar.SetRestyInstrumentOutput(
		restyutil.NewFilesystemOutput(".dev/resty/ultimateguitar"),
	)
}
