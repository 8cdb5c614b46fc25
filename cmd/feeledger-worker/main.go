package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"feeledger/internal/amqp"
	"feeledger/internal/cli"
	applog "feeledger/internal/log"
	"feeledger/internal/sheets"
	gsheet "feeledger/internal/sheets/google"
	"feeledger/internal/sheets/memory"
	"feeledger/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentWorker)
	if err := cfg.ValidateWorker(); err != nil {
		cli.Fatal(logger, "Worker configuration validation failed", err)
	}
	logger.Info("Starting feeledger-worker", "spreadsheet_id", cfg.GoogleSpreadsheetID, "queue", cfg.AMQPQueue)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	res := cli.OpenBackend(ctx, logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	var mirror sheets.PaymentMirror
	if cfg.GoogleSpreadsheetID == "" {
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, mirroring payments in memory only")
		mirror = memory.New()
	} else {
		gs, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
		}
		mirror = gs
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer client.Close()

	w := worker.NewMirrorWorker(mirror, res.Store, cfg.Location())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Catch up on payments recorded while the worker was down.
		if err := w.StartupSync(gctx); err != nil {
			logger.Error("Startup sync failed", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		return client.ConsumePaymentEvents(gctx, w.HandleEvent)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
