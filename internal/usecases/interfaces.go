package usecases

import (
	"context"
	"math/big"
	"time"

	"tip-chain.backend/internal/domain/entities"
)

// ChainReader is the authoritative, unreliable source of creator state
type ChainReader interface {
	GetProfile(ctx context.Context, address string) (*entities.ChainProfile, error)
	GetAllCreatorAddresses(ctx context.Context) ([]string, error)
	GetTip(ctx context.Context, index *big.Int) (*entities.ChainTip, error)
}

// Cache stores JSON-encodable read results for a short time
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// SyncRunner runs one bulk sync pass
type SyncRunner interface {
	Run(ctx context.Context, opts entities.SyncOptions) (*entities.SyncReport, error)
}

// ProfileSyncer reconciles a single address from the chain
type ProfileSyncer interface {
	SyncProfile(ctx context.Context, address string) (*entities.CreatorProfile, error)
}
