package usecases

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"tip-chain.backend/internal/domain/entities"
	"tip-chain.backend/internal/domain/repositories"
	"tip-chain.backend/pkg/logger"
)

// profileSyncer is the single fetch-then-overwrite primitive shared by the
// event path, manual syncs and bulk sync.
type profileSyncer struct {
	chain    ChainReader
	profiles repositories.ProfileRepository
	now      func() time.Time
}

// sync re-reads address from the chain and writes it. When the chain has no
// profile the stored row, if any, is flagged missing and nil is returned.
// A failed chain read leaves the store untouched.
func (s *profileSyncer) sync(ctx context.Context, address string) (*entities.CreatorProfile, error) {
	chainProfile, err := s.chain.GetProfile(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", address, err)
	}

	if !chainProfile.Exists {
		marked, err := s.profiles.MarkMissing(ctx, address)
		if err != nil {
			return nil, fmt.Errorf("mark %s missing: %w", address, err)
		}
		if marked {
			logger.Warn(ctx, "Profile no longer exists on chain", zap.String("address", address))
		}
		return nil, nil
	}

	profile, err := chainProfile.ToCreatorProfile(address, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("convert profile %s: %w", address, err)
	}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("upsert profile %s: %w", address, err)
	}
	return profile, nil
}
