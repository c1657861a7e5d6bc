package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tip-chain.backend/internal/config"
	"tip-chain.backend/internal/domain/entities"
	"tip-chain.backend/internal/infrastructure/blockchain"
	"tip-chain.backend/internal/infrastructure/datasources/postgres"
	"tip-chain.backend/internal/infrastructure/models"
	"tip-chain.backend/internal/infrastructure/repositories"
	"tip-chain.backend/internal/usecases"
	"tip-chain.backend/pkg/logger"
)

type storeHandle interface {
	DB() (*gorm.DB, error)
	Close() error
}

type viewClient interface {
	blockchain.ViewCaller
	Close()
}

var (
	loadDotenv     = godotenv.Load
	loadCfg        = config.Load
	initLog        = logger.Init
	newStoreHandle = func(cfg config.DatabaseConfig) storeHandle { return postgres.NewHandle(cfg) }
	dialChain      = func(ctx context.Context, rpcURL string) (viewClient, error) {
		return blockchain.NewEVMClient(ctx, rpcURL)
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// run performs one bulk sync, or a single-profile sync with -address, and
// prints the outcome as JSON.
func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("indexer-sync", flag.ContinueOnError)
	full := fs.Bool("full", false, "re-fetch every on-chain creator instead of only missing ones")
	address := fs.String("address", "", "sync a single creator address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_ = loadDotenv()
	cfg := loadCfg()
	initLog(cfg.Server.Env)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	store := newStoreHandle(cfg.Database)
	defer store.Close()
	db, err := store.DB()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := models.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	chain, err := dialChain(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to chain rpc: %w", err)
	}
	defer chain.Close()

	contract, err := blockchain.NewTipChainContract(chain, cfg.Chain.ContractAddress, cfg.Chain.CallTimeout, nil)
	if err != nil {
		return err
	}
	profiles := repositories.NewProfileRepository(db)

	var result interface{}
	if *address != "" {
		reconciler := usecases.NewReconcilerUsecase(contract, profiles, repositories.NewTipRepository(db), repositories.NewUnitOfWork(db), nil)
		result, err = reconciler.SyncProfile(ctx, *address)
	} else {
		result, err = usecases.NewBulkSyncUsecase(contract, profiles, cfg.Sync.Concurrency, nil).
			Run(ctx, entities.SyncOptions{Full: *full})
	}
	if err != nil {
		logger.Error(ctx, "Sync failed", zap.Error(err))
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}
