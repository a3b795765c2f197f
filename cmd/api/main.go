package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"reit_valuation/pkg/api/valuation"
	"reit_valuation/pkg/core/config"
	"reit_valuation/pkg/core/events"
	"reit_valuation/pkg/core/export"
	"reit_valuation/pkg/core/ingest"
	"reit_valuation/pkg/core/logger"
	"reit_valuation/pkg/core/pipeline"
	"reit_valuation/pkg/core/store"
	"reit_valuation/pkg/core/trend"
	"syscall"
	"time"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[CONFIG] %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger.SetGlobal(log)

	if cfg.Provider.APIKey == "" {
		log.Warn().Msg("FMP_API_KEY is not set; provider requests will be rejected")
	}

	source := ingest.NewFMPClient(ingest.Config{
		BaseURL:           cfg.Provider.BaseURL,
		APIKey:            cfg.Provider.APIKey,
		StatementLimit:    cfg.Provider.StatementLimit,
		MarketCapLimit:    cfg.Provider.MarketCapLimit,
		Timeout:           cfg.Provider.Timeout,
		CacheTTL:          cfg.Provider.CacheTTL,
		RequestsPerSecond: cfg.Provider.RequestsPerSecond,
		Burst:             cfg.Provider.Burst,
	}, log)

	mode, _ := trend.ParseMode(cfg.Model.Mode)
	orch := pipeline.NewOrchestrator(source, pipeline.Defaults{
		ScaleMetric: cfg.Model.ScaleMetric,
		Mode:        mode,
		Horizon:     cfg.Model.Horizon,
		StrictMerge: cfg.Model.StrictMerge,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Database.URL != "" {
		if err := store.InitDB(ctx, cfg.Database.URL); err != nil {
			log.Fatal().Err(err).Msg("Database connection failed")
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx, store.GetPool()); err != nil {
			log.Fatal().Err(err).Msg("Schema setup failed")
		}
		orch.SetRepository(store.NewRunRepo(nil))
		log.Info().Msg("Run persistence enabled")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer producer.Close()
		orch.SetPublisher(producer)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Event publishing enabled")
	}

	if cfg.Export.Dir != "" {
		orch.SetExporter(export.DirExporter{Dir: cfg.Export.Dir})
		log.Info().Str("dir", cfg.Export.Dir).Msg("Spreadsheet export enabled")
	}

	handler := valuation.NewHandler(orch, log)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler.Routes(cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Int("port", cfg.Server.Port).Msg("Server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Server failed")
	}
	log.Info().Msg("Server stopped")
}
