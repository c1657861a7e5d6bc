package repositories

import (
	"context"

	"tip-chain.backend/internal/domain/entities"
)

// ProfileRepository is the keyed mirror of on-chain creator profiles
type ProfileRepository interface {
	// Upsert overwrites every chain-derived field of the profile keyed by address
	Upsert(ctx context.Context, profile *entities.CreatorProfile) error
	// MarkMissing flags an existing row as no longer on chain; it never inserts or deletes
	MarkMissing(ctx context.Context, address string) (bool, error)
	// IncrementTips bumps the recipient counters; false when no row exists
	IncrementTips(ctx context.Context, address string, amount string, native bool) (bool, error)
	GetByAddress(ctx context.Context, address string) (*entities.CreatorProfile, error)
	ListExistingAddresses(ctx context.Context) ([]string, error)
	ListTop(ctx context.Context, limit int) ([]*entities.CreatorProfile, error)
	CountExisting(ctx context.Context) (int64, error)
}
