package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"sjsage522/retroconsolas/config"
	"sjsage522/retroconsolas/helpers"
	"sjsage522/retroconsolas/internal/crawler"
	"sjsage522/retroconsolas/logger"
	"sjsage522/retroconsolas/services/cache"
	"sjsage522/retroconsolas/services/publisher"
	"sjsage522/retroconsolas/services/store"
	"sjsage522/retroconsolas/services/worker"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	consoles, err := cfg.ResolveConsoles()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid console table")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("data_dir", cfg.DataDir).
		Int("consoles", len(consoles)).
		Str("schedule", cfg.Schedule).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	primary, fallback := createStrategies(cfg, services.Cache)

	w := worker.NewWorker(
		ctx,
		consoles,
		primary,
		fallback,
		services.Stores,
		services.Publisher,
		helpers.NewLogger(cfg.ErrorLogFile),
	)

	workerDone := make(chan error, 1)
	go func() {
		if cfg.Schedule == "" {
			_, err := w.RunOnce(ctx)
			workerDone <- err
			return
		}
		workerDone <- w.Start(cfg.Schedule)
	}()

	// Wait for shutdown signal or worker completion
	var runErr error
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
		runErr = <-workerDone
	case runErr = <-workerDone:
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.LogError("main", runErr, "Worker exited with error")
		services.Cleanup()
		os.Exit(1)
	}

	logger.LogInfo("main", "Shutting down gracefully...")
}

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Stores    []store.SnapshotStore
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
		s.Publisher = nil
	}
	for _, st := range s.Stores {
		if err := st.Close(); err != nil {
			logger.ForStore().Warn().Err(err).Msg("Failed to close store")
		}
	}
	s.Stores = nil
}

// initializeServices initializes the stores plus the optional cache and
// publisher
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{
		Stores: []store.SnapshotStore{store.NewFileStore(cfg.DataDir)},
	}

	if cfg.StatsDBDriver != "" {
		sqlStore, err := store.NewSQLStore(ctx, cfg.StatsDBDriver, cfg.StatsDBDSN)
		if err != nil {
			return nil, err
		}
		services.Stores = append(services.Stores, sqlStore)
		logger.Info("Mirroring history to %s", cfg.StatsDBDriver)
	}

	if cfg.MemcacheAddr != "" {
		cacheService := cache.NewMemcacheService(cfg.MemcacheAddr, "retro_")
		if err := cacheService.Ping(); err != nil {
			logger.Warn("Memcache unavailable at %s, caching disabled: %v", cfg.MemcacheAddr, err)
		} else {
			services.Cache = cacheService
			logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
		}
	}

	if cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		services.Publisher = redisPublisher

		logger.Info("Publishing to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	}

	return services, nil
}

// createStrategies builds the API strategy and its browser fallback
func createStrategies(cfg *config.Config, cacheSvc cache.CacheService) (crawler.Strategy, crawler.Strategy) {
	governor := crawler.NewGovernor(cfg.RequestDelayMin, cfg.RequestDelayMax)

	primary := crawler.NewAPIStrategy(crawler.APIConfigFrom(cfg), governor, cacheSvc)

	sessions := crawler.ChromeSessionFactory(crawler.ChromeConfigFrom(cfg), governor)
	if cfg.BrowserDisabled {
		logger.Debug("Browser fallback disabled")
		sessions = crawler.DisabledSessionFactory
	}
	fallback := crawler.NewBrowserStrategy(
		cfg.SearchPageURL,
		sessions,
		crawler.NewExtractor(crawler.DefaultExtractorConfig()),
		governor,
	)

	return primary, fallback
}
