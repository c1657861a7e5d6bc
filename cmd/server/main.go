package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tip-chain.backend/internal/config"
	"tip-chain.backend/internal/infrastructure/blockchain"
	"tip-chain.backend/internal/infrastructure/datasources/postgres"
	"tip-chain.backend/internal/infrastructure/jobs"
	"tip-chain.backend/internal/infrastructure/metrics"
	"tip-chain.backend/internal/infrastructure/models"
	"tip-chain.backend/internal/infrastructure/repositories"
	"tip-chain.backend/internal/interfaces/http/handlers"
	"tip-chain.backend/internal/interfaces/http/middleware"
	"tip-chain.backend/internal/usecases"
	"tip-chain.backend/pkg/jwt"
	"tip-chain.backend/pkg/logger"
	"tip-chain.backend/pkg/redis"
)

type storeHandle interface {
	DB() (*gorm.DB, error)
	Close() error
}

type chainClient interface {
	blockchain.ViewCaller
	jobs.LogSource
	Close()
}

var (
	loadDotenv     = godotenv.Load
	loadCfg        = config.Load
	initLog        = logger.Init
	newRedisClient = redis.NewClient
	newStoreHandle = func(cfg config.DatabaseConfig) storeHandle { return postgres.NewHandle(cfg) }
	dialChain      = func(ctx context.Context, rpcURL string) (chainClient, error) {
		return blockchain.NewEVMClient(ctx, rpcURL)
	}
	migrate   = models.AutoMigrate
	runServer = func(srv *http.Server) error { return srv.ListenAndServe() }
	// closed to simulate SIGTERM in tests
	shutdownSignal = func() <-chan os.Signal {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		return quit
	}
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env)
	defer logger.Sync()
	ctx := context.Background()
	logger.Info(ctx, "Logger initialized", zap.String("env", cfg.Server.Env))

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Redis backs the read cache, sync lock and idempotency keys; all degrade without it
	redisClient, err := newRedisClient(cfg.Redis.URL, cfg.Redis.Password)
	if err != nil {
		logger.Warn(ctx, "Redis unavailable, continuing without cache and sync lock", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		logger.Info(ctx, "Redis initialized")
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	store := newStoreHandle(cfg.Database)
	defer store.Close()
	db, err := store.DB()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := migrate(db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	logger.Info(ctx, "Connected to PostgreSQL via GORM")

	chain, err := dialChain(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to chain rpc: %w", err)
	}
	defer chain.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	indexerMetrics := metrics.NewIndexer(registry)

	contract, err := blockchain.NewTipChainContract(chain, cfg.Chain.ContractAddress, cfg.Chain.CallTimeout, indexerMetrics)
	if err != nil {
		return fmt.Errorf("failed to load contract: %w", err)
	}

	// Repositories
	profileRepo := repositories.NewProfileRepository(db)
	tipRepo := repositories.NewTipRepository(db)
	cursorRepo := repositories.NewSyncCursorRepository(db)
	uow := repositories.NewUnitOfWork(db)

	// Usecases and jobs
	reconciler := usecases.NewReconcilerUsecase(contract, profileRepo, tipRepo, uow, indexerMetrics)
	bulkSync := usecases.NewBulkSyncUsecase(contract, profileRepo, cfg.Sync.Concurrency, indexerMetrics)

	var (
		locker      jobs.SyncLocker
		cache       usecases.Cache
		idempotency middleware.IdempotencyStore
	)
	if redisClient != nil {
		locker = redis.NewLocker(redisClient, jobs.SyncLockKey, cfg.Sync.LockTTL)
		cache = redis.NewJSONCache(redisClient)
		idempotency = redis.NewKeyStore(redisClient)
	}
	syncJob := jobs.NewBulkSyncJob(bulkSync, locker, cfg.Sync)
	queries := usecases.NewCreatorQueryUsecase(profileRepo, tipRepo, reconciler, syncJob, cache)

	var validator middleware.RelayTokenValidator
	if cfg.Relay.Secret != "" {
		validator = jwt.NewRelayTokenService(cfg.Relay.Secret, cfg.Relay.Issuer, cfg.Relay.TokenTTL)
	} else {
		logger.Warn(ctx, "RELAY_JWT_SECRET not set, indexer routes are unauthenticated")
	}

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := syncJob.Start(jobCtx); err != nil {
		return err
	}
	defer func() {
		if err := syncJob.Stop(); err != nil {
			logger.Warn(ctx, "Bulk sync scheduler shutdown failed", zap.Error(err))
		}
	}()

	if cfg.Chain.WatchEvents {
		watcher := jobs.NewEventWatcherJob(chain, blockchain.NewEventDecoder(contract.ABI()), reconciler, cursorRepo, cfg.Chain, indexerMetrics)
		go watcher.Start(jobCtx)
		defer watcher.Stop()
	}

	r := newRouter(routeDeps{
		indexerHandler: handlers.NewIndexerHandler(reconciler, syncJob),
		creatorHandler: handlers.NewCreatorHandler(queries),
		relayAuth:      middleware.RelayAuthMiddleware(validator),
		idempotency:    middleware.IdempotencyMiddleware(idempotency),
		metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := shutdownSignal()
	go func() {
		select {
		case <-quit:
		case <-jobCtx.Done():
			return
		}
		logger.Info(ctx, "Shutting down server")
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error(ctx, "Server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info(ctx, "Tip-chain indexer starting",
		zap.String("port", cfg.Server.Port),
		zap.String("contract", contract.Address().Hex()),
		zap.Int("routes", len(r.Routes())),
	)

	if err := runServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
