package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/magerisk/internal/api"
	"github.com/magerisk/internal/config"
	"github.com/magerisk/internal/coverage"
	"github.com/magerisk/internal/criticality"
	"github.com/magerisk/internal/dashboard"
	"github.com/magerisk/internal/events"
	"github.com/magerisk/internal/health"
	"github.com/magerisk/internal/logging"
	"github.com/magerisk/internal/recalc"
	"github.com/magerisk/internal/risk"
	"github.com/magerisk/internal/store"
	"github.com/magerisk/pkg/models"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Configuration file path (overrides CONFIG_PATH)")
		showVersion = flag.Bool("version", false, "Show version information")
		help        = flag.Bool("help", false, "Show help information")
	)
	flag.Parse()

	if *help {
		printHelp()
		return
	}
	if *showVersion {
		printVersion()
		return
	}
	if *configFile != "" {
		os.Setenv("CONFIG_PATH", *configFile)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting magerisk",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("built", date),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mem := store.NewMemoryStore()
	checker := health.NewChecker()

	var graphStore *store.Neo4jStore
	if cfg.Graph.Enabled {
		graphStore, err = store.NewNeo4jStore(store.Neo4jConfig{
			URI:         cfg.Graph.URI,
			Username:    cfg.Graph.Username,
			Password:    cfg.Graph.Password,
			MaxPoolSize: cfg.Graph.MaxPoolSize,
			ConnTimeout: cfg.Graph.ConnTimeout,
		}, logger)
		if err != nil {
			logger.Fatal("initializing graph store failed", zap.Error(err))
		}
		defer graphStore.Close(context.Background())

		inventory, err := graphStore.LoadInventory(ctx)
		if err != nil {
			logger.Fatal("loading persisted inventory failed", zap.Error(err))
		}
		if err := store.Warm(ctx, mem, inventory); err != nil {
			logger.Fatal("warming memory store failed", zap.Error(err))
		}
		logger.Info("inventory loaded",
			zap.Int("assets", len(inventory.Assets)),
			zap.Int("risk_records", len(inventory.RiskRecords)),
		)
		checker.Register("graph", graphStore.Ping)
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Kafka.Enabled {
		publisher, err = events.NewKafkaPublisher(events.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, logger)
		if err != nil {
			logger.Fatal("initializing event publisher failed", zap.Error(err))
		}
	}
	defer func() { _ = publisher.Close() }()

	thresholds := models.Thresholds{
		Critical: cfg.Risk.CriticalThreshold,
		High:     cfg.Risk.HighThreshold,
		Medium:   cfg.Risk.MediumThreshold,
		Low:      cfg.Risk.LowThreshold,
	}
	scorer := risk.NewScorer(thresholds)
	calculator := criticality.NewCalculator(criticality.Config{
		DimensionWeight: cfg.Criticality.DimensionWeight,
		EconomicWeight:  cfg.Criticality.EconomicWeight,
		EconomicCeiling: cfg.Criticality.EconomicCeiling,
	})

	gateway := api.NewGateway(api.GatewayConfig{
		Host:           cfg.API.Host,
		Port:           cfg.API.Port,
		ReadTimeout:    cfg.API.ReadTimeout,
		WriteTimeout:   cfg.API.WriteTimeout,
		IdleTimeout:    cfg.API.IdleTimeout,
		EnableCORS:     cfg.API.EnableCORS,
		AllowedOrigins: cfg.API.AllowedOrigins,
	}, api.Deps{
		Store:       mem,
		Engine:      risk.NewEngine(scorer, mem),
		Coordinator: recalc.NewCoordinator(scorer, mem, publisher, logger),
		Aggregator:  dashboard.NewAggregator(mem, mem, thresholds, logger),
		Analyzer:    coverage.NewAnalyzer(thresholds),
		Calculator:  calculator,
		Publisher:   publisher,
		Health:      checker,
		Logger:      logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- gateway.Start()
	}()

	waitForShutdown(cancel, gateway, logger, errCh)
}

func waitForShutdown(cancel context.CancelFunc, gateway *api.Gateway, logger *zap.Logger, errCh <-chan error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("gateway stopped unexpectedly", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := gateway.Stop(shutdownCtx); err != nil {
		logger.Warn("gateway shutdown error", zap.Error(err))
	}
	cancel()
	logger.Info("magerisk stopped")
}

func printHelp() {
	fmt.Printf(`magerisk - MAGERIT Risk Quantification Platform

Usage:
  magerisk [flags]

Flags:
  -config string
        Configuration file path (overrides CONFIG_PATH)
  -version
        Show version information
  -help
        Show this help message

Examples:
  magerisk                                   # Start with default config
  magerisk -config config/production.yaml    # Start with production config
  magerisk -version                          # Show version
`)
}

func printVersion() {
	fmt.Printf("magerisk version %s\n", version)
	fmt.Printf("Commit: %s\n", commit)
	fmt.Printf("Built: %s\n", date)
}
