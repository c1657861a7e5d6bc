package usecases

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"tip-chain.backend/internal/domain/entities"
	domainerrors "tip-chain.backend/internal/domain/errors"
	"tip-chain.backend/internal/domain/repositories"
	"tip-chain.backend/pkg/logger"
	"tip-chain.backend/pkg/utils"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
	readCacheTTL     = 60 * time.Second

	leaderboardCachePrefix = "tipchain:leaderboard:"
	statsCacheKey          = "tipchain:stats"
)

// CreatorQueryUsecase serves the read projections over the store
type CreatorQueryUsecase struct {
	profiles repositories.ProfileRepository
	tips     repositories.TipRepository
	syncer   ProfileSyncer
	runner   SyncRunner
	cache    Cache
}

// NewCreatorQueryUsecase creates a new query usecase. cache may be nil.
func NewCreatorQueryUsecase(
	profiles repositories.ProfileRepository,
	tips repositories.TipRepository,
	syncer ProfileSyncer,
	runner SyncRunner,
	cache Cache,
) *CreatorQueryUsecase {
	return &CreatorQueryUsecase{
		profiles: profiles,
		tips:     tips,
		syncer:   syncer,
		runner:   runner,
		cache:    cache,
	}
}

// GetCreator returns the stored profile, reconciling it from the chain on a miss
func (u *CreatorQueryUsecase) GetCreator(ctx context.Context, address string) (*entities.CreatorProfile, error) {
	normalized, err := utils.NormalizeAddress(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrInvalidInput, err)
	}

	profile, err := u.profiles.GetByAddress(ctx, normalized)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, domainerrors.ErrNotFound) {
		return nil, err
	}
	return u.syncer.SyncProfile(ctx, normalized)
}

// Leaderboard ranks existing creators by total received. An empty store
// triggers one missing-only bulk sync first.
func (u *CreatorQueryUsecase) Leaderboard(ctx context.Context, limit int) ([]*entities.CreatorProfile, error) {
	limit = clampLimit(limit)
	key := leaderboardCachePrefix + strconv.Itoa(limit)

	var cached []*entities.CreatorProfile
	if u.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	profiles, err := u.profiles.ListTop(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 && u.runner != nil {
		if _, err := u.runner.Run(ctx, entities.SyncOptions{}); err != nil {
			logger.Warn(ctx, "Bootstrap sync for leaderboard failed", zap.Error(err))
		} else if profiles, err = u.profiles.ListTop(ctx, limit); err != nil {
			return nil, err
		}
	}

	if len(profiles) > 0 {
		u.cacheSet(ctx, key, profiles)
	}
	return profiles, nil
}

// Stats returns the platform totals
func (u *CreatorQueryUsecase) Stats(ctx context.Context) (*entities.TipStats, error) {
	var cached entities.TipStats
	if u.cacheGet(ctx, statsCacheKey, &cached) {
		return &cached, nil
	}

	creators, err := u.profiles.CountExisting(ctx)
	if err != nil {
		return nil, err
	}
	tipCount, err := u.tips.Count(ctx)
	if err != nil {
		return nil, err
	}
	total, err := u.tips.SumNativeAmounts(ctx)
	if err != nil {
		return nil, err
	}

	stats := &entities.TipStats{
		TotalCreators: creators,
		TotalTips:     tipCount,
		TotalAmount:   total,
	}
	u.cacheSet(ctx, statsCacheKey, stats)
	return stats, nil
}

// RecentTips returns the newest tips
func (u *CreatorQueryUsecase) RecentTips(ctx context.Context, limit int) ([]*entities.Tip, error) {
	return u.tips.ListRecent(ctx, clampLimit(limit))
}

// TipsForCreator returns every tip received by address
func (u *CreatorQueryUsecase) TipsForCreator(ctx context.Context, address string) ([]*entities.Tip, error) {
	normalized, err := utils.NormalizeAddress(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrInvalidInput, err)
	}
	return u.tips.ListByRecipient(ctx, normalized)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// cache failures only cost a store read
func (u *CreatorQueryUsecase) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if u.cache == nil {
		return false
	}
	hit, err := u.cache.GetJSON(ctx, key, dest)
	if err != nil {
		logger.Debug(ctx, "Read cache get failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (u *CreatorQueryUsecase) cacheSet(ctx context.Context, key string, value interface{}) {
	if u.cache == nil {
		return
	}
	if err := u.cache.SetJSON(ctx, key, value, readCacheTTL); err != nil {
		logger.Debug(ctx, "Read cache set failed", zap.String("key", key), zap.Error(err))
	}
}
