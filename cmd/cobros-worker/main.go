package main

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"
	_ "time/tzdata"

	"cobros/internal/amqp"
	"cobros/internal/backend"
	"cobros/internal/cli"
	"cobros/internal/config"
	applog "cobros/internal/log"
	"cobros/internal/report"
	"cobros/internal/report/google"
	"cobros/internal/report/memory"
	"cobros/internal/services"
	"cobros/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentWorker)
	logger.Info("Starting cobros-worker")

	ctx, stop := cli.ShutdownContext()
	defer stop()

	// The worker only reads; it never publishes.
	result := cli.InitBackend(ctx, cfg, logger, func(c *backend.Config) { c.AMQPURL = "" })
	defer result.Close()

	writer, err := reportWriter(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize report writer", applog.FieldError, err.Error())
		os.Exit(1)
	}

	dashboard := services.NewDashboardService(result.Backend, services.DashboardOptions{
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
		Strict:    cfg.StrictMode,
		Location:  cfg.Location(),
	}, logger)
	reports := worker.NewReportWorker(dashboard, writer, cfg.ReportInterval, logger)

	var wg sync.WaitGroup

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
			os.Exit(1)
		}
		defer client.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := client.ConsumePaymentRecorded(ctx, reports.HandlePaymentRecorded); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", applog.FieldError, err.Error())
				stop()
			}
		}()
	} else {
		logger.Info("AMQP disabled, refreshing on the interval only")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		reports.Run(ctx)
	}()

	<-ctx.Done()
	logger.Info("Shutting down worker...")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("Worker shutdown complete")
	case <-time.After(30 * time.Second):
		logger.Warn("Shutdown timeout reached")
	}
}

// reportWriter exports to Google Sheets when a spreadsheet is configured
// and keeps the report in memory otherwise.
func reportWriter(ctx context.Context, cfg *config.Config, logger *applog.Logger) (report.Writer, error) {
	if !cfg.ReportEnabled() {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
		return memory.New(), nil
	}
	client, err := google.New(ctx, google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleReportSheetName,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
		CredentialsFile: cfg.GoogleCredentialsFile,
		OAuthClientJSON: cfg.GoogleOAuthClientJSON,
		OAuthClientFile: cfg.GoogleOAuthClientFile,
		OAuthTokenJSON:  cfg.GoogleOAuthTokenJSON,
		OAuthTokenFile:  cfg.GoogleOAuthTokenFile,
	}, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets report enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleReportSheetName)
	return client, nil
}
