// Command stationcode assigns codes to newly registered rainfall stations.
//
// With -source and -out it performs one run and prints the report as JSON.
// Without them it serves the HTTP API until interrupted.
//
// Usage:
//
//	stationcode -source intake.sqlite -out coded.xlsx
//	stationcode
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/rain-station-coding/internal/adapter/geojson"
	httpadapter "github.com/couchcryptid/rain-station-coding/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/rain-station-coding/internal/adapter/kafka"
	"github.com/couchcryptid/rain-station-coding/internal/adapter/postgres"
	"github.com/couchcryptid/rain-station-coding/internal/adapter/source"
	"github.com/couchcryptid/rain-station-coding/internal/adapter/sqlitefile"
	"github.com/couchcryptid/rain-station-coding/internal/adapter/xlsx"
	"github.com/couchcryptid/rain-station-coding/internal/config"
	"github.com/couchcryptid/rain-station-coding/internal/observability"
	"github.com/couchcryptid/rain-station-coding/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		slog.Error("stationcode failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	src := flag.String("source", "", "intake file (.sqlite, .db, .csv, .xlsx) for a one-shot run")
	out := flag.String("out", "", "export destination (.xlsx, .sqlite, .db) for a one-shot run")
	flag.Parse()

	if (*src == "") != (*out == "") {
		flag.Usage()
		return errors.New("-source and -out must be given together")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := postgres.New(pool, postgres.Options{
		Table:       cfg.StationTable,
		IntakeTable: cfg.IntakeTable,
		Category:    cfg.StationCategory,
	}, logger)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	// Boundary layers are optional; an empty path disables the layer.
	boundaries, err := geojson.LoadIndex(
		cfg.SubBasinGeoJSON, geojson.Properties{Name: cfg.SubBasinNameProp, Code: cfg.SubBasinCodeProp, Parent: cfg.BasinCodeProp},
		cfg.MunicipalityGeoJSON, geojson.Properties{Name: cfg.MunicipalityNameProp, Code: cfg.MunicipalityCodeProp, Parent: cfg.StateCodeProp},
		logger,
	)
	if err != nil {
		return err
	}
	if boundaries == nil {
		logger.Info("boundary enrichment disabled")
	}

	templateSink := sqlitefile.NewTemplateSink(cfg.ExportTemplatePath, logger)
	exporter := pipeline.NewExporter(map[string]pipeline.Sink{
		".xlsx":   xlsx.NewSink(),
		".sqlite": templateSink,
		".db":     templateSink,
	}, logger, metrics)

	opts := pipeline.ManagerOptions{
		Opener: source.Opener(source.Options{Table: cfg.SourceTable}),
	}
	if cfg.PersistStations {
		opts.Saver = store
	}
	if cfg.PublishEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		opts.Publisher = writer
		logger.Info("publishing coded stations", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	importer := pipeline.NewImporter(store, boundaries, cfg.StationCategory, logger, metrics)
	manager := pipeline.NewManager(importer, exporter, opts, logger, metrics)

	if *src != "" {
		return runOnce(ctx, manager, *src, *out)
	}
	serve(ctx, cfg, store, manager, logger)
	return nil
}

func runOnce(ctx context.Context, manager *pipeline.Manager, src, out string) error {
	report, err := manager.RunLocation(ctx, src, out)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func serve(ctx context.Context, cfg *config.Config, store *postgres.Store, manager *pipeline.Manager, logger *slog.Logger) {
	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.ReadinessFunc(store.Ping), manager, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}
