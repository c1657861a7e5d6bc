package repositories

import (
	"context"

	"tip-chain.backend/internal/domain/entities"
)

// SyncCursorRepository persists the log watcher's progress
type SyncCursorRepository interface {
	Get(ctx context.Context, name string) (*entities.SyncCursor, error)
	Save(ctx context.Context, name string, blockNumber uint64) error
}
