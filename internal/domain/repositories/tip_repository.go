package repositories

import (
	"context"

	"tip-chain.backend/internal/domain/entities"
)

// TipRepository is the append-only log of observed tips
type TipRepository interface {
	// Insert stores the tip once; a second insert with the same key returns false, nil
	Insert(ctx context.Context, tip *entities.Tip) (bool, error)
	GetByTxHash(ctx context.Context, txHash string) (*entities.Tip, error)
	ListRecent(ctx context.Context, limit int) ([]*entities.Tip, error)
	ListByRecipient(ctx context.Context, address string) ([]*entities.Tip, error)
	Count(ctx context.Context) (int64, error)
	SumNativeAmounts(ctx context.Context) (string, error)
	AggregateByRecipient(ctx context.Context) (map[string]*entities.RecipientTipAggregate, error)
}
