package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aetherpay/rateoracle/pkg/config"
	"github.com/aetherpay/rateoracle/pkg/logging"
	"github.com/aetherpay/rateoracle/pkg/metrics"
	"github.com/aetherpay/rateoracle/pkg/oracle/aggregator"
	"github.com/aetherpay/rateoracle/pkg/oracle/cache"
	"github.com/aetherpay/rateoracle/pkg/oracle/settlement"
	"github.com/aetherpay/rateoracle/pkg/oracle/sources"
	"github.com/aetherpay/rateoracle/pkg/server/api"
	"github.com/aetherpay/rateoracle/pkg/version"

	// Import adapters to register them
	_ "github.com/aetherpay/rateoracle/pkg/oracle/sources/amm"
	_ "github.com/aetherpay/rateoracle/pkg/oracle/sources/dex"
	_ "github.com/aetherpay/rateoracle/pkg/oracle/sources/feed"
	_ "github.com/aetherpay/rateoracle/pkg/oracle/sources/predictor"
)

var (
	configFile = flag.String("config", "config/config.yaml", "Path to configuration file")
	showVer    = flag.Bool("version", false, "Show version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("rateoracle version %s\n", version.Version)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)

	logger.Info("Starting rateoracle", "version", version.Version)

	// Initialize metrics
	if cfg.Metrics.Enabled {
		metrics.Init()
		go func() {
			logger.Info("Starting metrics server", "addr", cfg.Metrics.Addr)
			if err := metrics.ServeHTTP(cfg.Metrics.Addr); err != nil {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- runServer(ctx, cfg, logger)
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", "signal", sig.String())
		cancel()
	case err := <-errChan:
		if err != nil {
			logger.Error("Server failed", "error", err)
			cancel()
		}
	}

	// Give in-flight requests a moment to drain
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down gracefully...")
	<-shutdownCtx.Done()
	logger.Info("Shutdown complete")
}

func runServer(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	// Build the quote cache
	quoteCache := buildCache(cfg, logger)
	defer func() { _ = quoteCache.Close() }()

	// Initialize adapters
	var adapters []sources.Adapter
	for _, adapterCfg := range cfg.Adapters {
		if !adapterCfg.Enabled {
			continue
		}

		logger.Info("Initializing adapter", "type", adapterCfg.Type, "name", adapterCfg.Name)

		// Flatten the shared fields into the factory config so adapters
		// don't each re-read the outer struct
		if adapterCfg.Config == nil {
			adapterCfg.Config = make(map[string]interface{})
		}
		adapterCfg.Config["logger"] = logger
		if adapterCfg.BaseURL != "" {
			adapterCfg.Config["base_url"] = adapterCfg.BaseURL
		}
		if adapterCfg.APIKey != "" {
			adapterCfg.Config["api_key"] = adapterCfg.APIKey
		}
		adapterCfg.Config["timeout"] = adapterCfg.Timeout.ToDuration()
		adapterCfg.Config["min_interval"] = adapterCfg.MinInterval.ToDuration()

		adapter, err := sources.Create(adapterCfg.Type, adapterCfg.Name, adapterCfg.Config)
		if err != nil {
			logger.Warn("Failed to create adapter", "type", adapterCfg.Type, "name", adapterCfg.Name, "error", err)
			continue
		}

		adapters = append(adapters, adapter)
		logger.Info("Adapter ready", "adapter", adapter.Name(), "type", string(adapter.Type()))
	}

	if len(adapters) == 0 {
		return fmt.Errorf("no adapters available")
	}

	// Build the settlement selector and aggregation engine
	selector := settlement.NewSelector(cfg.Settlement.GasPriceGwei, cfg.Settlement.NativeAssetUSD, logger)

	engine := aggregator.NewEngine(aggregator.Options{
		Adapters:          adapters,
		Cache:             quoteCache,
		Selector:          selector,
		SourceWeights:     cfg.Oracle.SourceWeights,
		OutlierMinSamples: cfg.Oracle.OutlierMinSampleSize,
		OverallTimeout:    cfg.Oracle.OverallTimeout.ToDuration(),
		Observer:          metrics.Recorder{},
		Logger:            logger,
	})

	// Start HTTP server
	server := api.NewServer(cfg.Server.HTTP.Addr, engine, logger)

	// Start WebSocket server if enabled
	var wsServer *api.WebSocketServer
	if cfg.Server.WebSocket.Enabled {
		wsServer = api.NewWebSocketServer(cfg.Server.WebSocket.Addr, logger)
		server.SetWebSocketServer(wsServer)

		go func() {
			if err := wsServer.Start(ctx); err != nil {
				logger.Error("WebSocket server error", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = server.Stop(shutdownCtx)
		if wsServer != nil {
			wsServer.Stop()
		}
	}()

	return server.Start()
}

// buildCache constructs the configured cache backend.
func buildCache(cfg *config.Config, logger *logging.Logger) cache.Cache {
	ttl := cfg.Oracle.CacheTTL.ToDuration()
	retention := cfg.Oracle.StaleRetention.ToDuration()

	if cfg.Oracle.CacheBackend == "redis" {
		logger.Info("Using Redis quote cache", "addr", cfg.Oracle.RedisAddr)
		return cache.NewRedisCache(cfg.Oracle.RedisAddr, cfg.Oracle.RedisPassword, ttl, retention, logger)
	}

	logger.Info("Using in-memory quote cache", "ttl", ttl.String())
	return cache.NewMemoryCache(ttl, retention)
}
