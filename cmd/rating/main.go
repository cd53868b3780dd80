package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/city-weather-rating/internal/adapter/csvreport"
	"github.com/couchcryptid/city-weather-rating/internal/adapter/filestore"
	"github.com/couchcryptid/city-weather-rating/internal/adapter/forecast"
	"github.com/couchcryptid/city-weather-rating/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/city-weather-rating/internal/adapter/kafka"
	"github.com/couchcryptid/city-weather-rating/internal/config"
	"github.com/couchcryptid/city-weather-rating/internal/domain"
	"github.com/couchcryptid/city-weather-rating/internal/observability"
	"github.com/couchcryptid/city-weather-rating/internal/pipeline"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	store := filestore.NewCachedStore(filestore.New(cfg.DataDir), len(cfg.Cities))
	report := csvreport.New(cfg.ReportPath)
	defer report.Close()
	source := forecast.NewClient(cfg.ForecastTimeout, metrics, logger)

	// Publishing is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var publisher pipeline.RatingPublisher
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, metrics, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		publisher = writer
		logger.Info("ratings publishing enabled", "topic", cfg.KafkaRatingsTopic)
	}

	p := pipeline.New(pipeline.SettingsFromConfig(cfg), source, store, report, publisher, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer shutdownServer(srv, cfg, logger)
	}

	top, err := p.Run(ctx)
	if err != nil {
		return err
	}
	printTop(os.Stdout, top)
	logger.Info("report written", "path", report.Path())

	// Keep serving readiness, metrics and the ranking until interrupted.
	if srv != nil {
		<-ctx.Done()
		logger.Info("shutting down")
	}
	return nil
}

func shutdownServer(srv *httpadapter.Server, cfg *config.Config, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
}

func printTop(w io.Writer, top []domain.CityRating) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tCITY\tAVG TEMP\tGOOD HOURS\tSCORE")
	for _, r := range top {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			r.Rank, r.City,
			domain.FormatNumber(r.AvgTemp),
			domain.FormatNumber(r.AvgGoodHours),
			domain.FormatNumber(r.Score),
		)
	}
	tw.Flush()
}
