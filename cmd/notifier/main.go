// Command notifier sends the next-working-day itinerary with a forecast for
// each event's location. It runs on a cron schedule and serves health,
// metrics, manual-run and debug endpoints; with -once it builds and sends a
// single report and exits.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/adapter/gcal"
	httpadapter "github.com/couchcryptid/itinerary-weather-notifier/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/itinerary-weather-notifier/internal/adapter/kafka"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/adapter/line"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/app"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/config"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/itinerary"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/observability"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/scheduler"
)

func main() {
	once := flag.Bool("once", false, "build and send one report, then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	calendar, err := gcal.New(ctx, gcal.Config{
		Credentials: cfg.GoogleCredentials,
		CalendarID:  cfg.CalendarID,
		Timeout:     cfg.HTTPTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to create calendar client", "error", err)
		os.Exit(1)
	}

	chain, err := app.Chain(cfg, metrics, logger)
	if err != nil {
		logger.Error("failed to build forecast chain", "error", err)
		os.Exit(1)
	}

	reporter := itinerary.NewReporter(itinerary.Config{
		Calendar:         calendar,
		Geocoder:         app.Geocoder(cfg, metrics, logger),
		Chain:            chain,
		Location:         cfg.Location,
		GeocodeCacheSize: cfg.GeocodeCacheSize,
		Metrics:          metrics,
		Logger:           logger,
	})

	notifiers := []domain.Notifier{
		line.NewNotifier(line.Config{
			Token:           cfg.LineToken,
			Timeout:         cfg.HTTPTimeout,
			BreakerFailures: cfg.BreakerFailures,
		}, metrics, logger),
	}
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		notifiers = append(notifiers, writer)
		logger.Info("kafka report sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	job := itinerary.NewJob(reporter, notifiers, cfg.GroupID, logger, metrics)

	if *once {
		code := 0
		if _, err := job.RunOnce(ctx); err != nil {
			code = 1
		}
		closeWriter(writer, logger)
		stop()
		os.Exit(code)
	}

	if cfg.ReadyWithoutRun {
		job.MarkReady()
	}

	sched, err := scheduler.New(cfg.Schedule, cfg.Location, job, logger)
	if err != nil {
		logger.Error("invalid schedule", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, job, job, reporter, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start scheduler.
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		if err := sched.Start(ctx); err != nil {
			logger.Error("scheduler error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-schedDone:
	case <-shutdownCtx.Done():
		logger.Warn("scheduled run still in progress at shutdown")
	}
	closeWriter(writer, logger)

	logger.Info("shutdown complete")
}

func closeWriter(w *kafkaadapter.Writer, logger *slog.Logger) {
	if w == nil {
		return
	}
	if err := w.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
}
