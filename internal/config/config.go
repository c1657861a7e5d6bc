package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config holds all configuration values
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Chain    ChainConfig
	Sync     SyncConfig
	Relay    RelayConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// DSN returns the lib/pq connection string
func (c DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	Password string
}

// ChainConfig holds the RPC endpoint and the tipping contract coordinates
type ChainConfig struct {
	RPCURL          string
	ContractAddress string
	CallTimeout     time.Duration
	StartBlock      uint64
	Confirmations   uint64
	LogBatchSize    uint64
	PollInterval    time.Duration
	WatchEvents     bool
}

// SyncConfig controls the bulk sync schedule
type SyncConfig struct {
	Interval     time.Duration
	FullInterval time.Duration
	Concurrency  int
	LockTTL      time.Duration
	RunOnStart   bool
}

// RelayConfig holds the shared secret used to authenticate event relays.
// An empty secret disables relay authentication.
type RelayConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "tipchain"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		Chain: ChainConfig{
			RPCURL:          getEnv("RPC_URL", "https://rpc.hemi.network/rpc"),
			ContractAddress: getEnv("CONTRACT_ADDRESS", "0x6B83C21A6203186c47EfDD0dD66edFa6967Ff69e"),
			CallTimeout:     getEnvAsDuration("CHAIN_CALL_TIMEOUT", 10*time.Second),
			StartBlock:      getEnvAsUint64("CHAIN_START_BLOCK", 0),
			Confirmations:   getEnvAsUint64("CHAIN_CONFIRMATIONS", 2),
			LogBatchSize:    getEnvAsUint64("CHAIN_LOG_BATCH_SIZE", 2000),
			PollInterval:    getEnvAsDuration("CHAIN_POLL_INTERVAL", 15*time.Second),
			WatchEvents:     getEnvAsBool("CHAIN_WATCH_EVENTS", true),
		},
		Sync: SyncConfig{
			Interval:     getEnvAsDuration("SYNC_INTERVAL", 5*time.Minute),
			FullInterval: getEnvAsDuration("SYNC_FULL_INTERVAL", 6*time.Hour),
			Concurrency:  getEnvAsInt("SYNC_CONCURRENCY", 4),
			LockTTL:      getEnvAsDuration("SYNC_LOCK_TTL", 10*time.Minute),
			RunOnStart:   getEnvAsBool("SYNC_RUN_ON_START", true),
		},
		Relay: RelayConfig{
			Secret:   getEnv("RELAY_JWT_SECRET", ""),
			Issuer:   getEnv("RELAY_JWT_ISSUER", "tipchain-relay"),
			TokenTTL: getEnvAsDuration("RELAY_TOKEN_TTL", 365*24*time.Hour),
		},
	}
}

// Validate reports configuration that would make the indexer unusable
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Chain.RPCURL) == "" {
		errs = append(errs, errors.New("RPC_URL is required"))
	}
	if !common.IsHexAddress(c.Chain.ContractAddress) {
		errs = append(errs, errors.New("CONTRACT_ADDRESS must be a hex address"))
	}
	if c.Chain.CallTimeout <= 0 {
		errs = append(errs, errors.New("CHAIN_CALL_TIMEOUT must be positive"))
	}
	if c.Chain.LogBatchSize == 0 {
		errs = append(errs, errors.New("CHAIN_LOG_BATCH_SIZE must be positive"))
	}
	if c.Sync.Concurrency <= 0 {
		errs = append(errs, errors.New("SYNC_CONCURRENCY must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseUint(value, 10, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
