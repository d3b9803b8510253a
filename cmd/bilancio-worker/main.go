package main

import (
	"context"
	"errors"
	"os"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/cli"
	"bilancio/internal/config"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
	gsheet "bilancio/internal/sheets/google"
	"bilancio/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentWorker, (*config.Config).ValidateWorker)
	logger.Info("Starting bilancio-worker")

	// Read side of the database the server writes
	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	ctx, cancel := cli.ShutdownContext(context.Background(), logger)
	defer cancel()

	sheetsClient, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID: cfg.GoogleSpreadsheetID,
		BudgetSheet:   cfg.GoogleBudgetSheetName,
		ActualsSheet:  cfg.GoogleActualsSheetName,
		Logger:        logger,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(sqliteRepo, sheetsClient, logger)

	// The first pass runs at once and recovers messages missed while the
	// worker was down.
	processor := services.NewSyncProcessor(syncWorker, services.SyncProcessorConfig{
		Interval:  cfg.SyncInterval,
		YearsBack: cfg.SyncYearsBack,
	}, logger)
	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start sync processor", applog.FieldError, err)
		os.Exit(1)
	}

	go func() {
		if err := amqpClient.ConsumeValuesChanged(ctx, syncWorker.HandleValuesChanged); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", applog.FieldError, err)
			}
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down worker...", applog.FieldOperation, applog.OpShutdown)
	if err := processor.Stop(shutdownCtx); err != nil {
		logger.Warn("Sync processor stop failed", applog.FieldError, err)
	}
	logger.Info("Worker shutdown complete")
}
