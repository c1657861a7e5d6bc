package postgres

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/lib/pq"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"tip-chain.backend/internal/config"
)

var (
	sqlOpen = sql.Open
	dbPing  = func(db *sql.DB) error { return db.Ping() }
)

// NewConnection opens a pooled lib/pq connection and verifies it with a ping
func NewConnection(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sqlOpen("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := dbPing(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// NewGorm wraps an open *sql.DB in a gorm session using the postgres dialect
func NewGorm(sqlDB *sql.DB) (*gorm.DB, error) {
	return gorm.Open(pgdriver.New(pgdriver.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
}

// Handle is the process-wide store handle. The pool is opened on first use
// and shared by every repository until Close.
type Handle struct {
	open func() (*gorm.DB, error)

	once sync.Once
	mu   sync.Mutex
	db   *gorm.DB
	err  error
}

// NewHandle returns a lazy handle for cfg
func NewHandle(cfg config.DatabaseConfig) *Handle {
	return NewHandleWithOpener(func() (*gorm.DB, error) {
		sqlDB, err := NewConnection(cfg)
		if err != nil {
			return nil, err
		}
		db, err := NewGorm(sqlDB)
		if err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to init gorm: %w", err)
		}
		return db, nil
	})
}

// NewHandleWithOpener returns a lazy handle backed by a custom opener
func NewHandleWithOpener(open func() (*gorm.DB, error)) *Handle {
	return &Handle{open: open}
}

// DB returns the shared pool, opening it on the first call.
// A failed open is remembered and returned on every later call.
func (h *Handle) DB() (*gorm.DB, error) {
	h.once.Do(func() {
		db, err := h.open()
		h.mu.Lock()
		h.db, h.err = db, err
		h.mu.Unlock()
	})
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.db, h.err
}

// Close releases the pool if it was opened
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.db == nil {
		return nil
	}
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	h.db = nil
	h.err = fmt.Errorf("store handle closed")
	return sqlDB.Close()
}
