package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"tip-chain.backend/internal/domain/entities"
	domainerrors "tip-chain.backend/internal/domain/errors"
	"tip-chain.backend/internal/domain/repositories"
	"tip-chain.backend/internal/infrastructure/metrics"
	"tip-chain.backend/pkg/logger"
	"tip-chain.backend/pkg/utils"
)

// ReconcilerUsecase applies chain events to the profile and tip stores
type ReconcilerUsecase struct {
	chain    ChainReader
	profiles repositories.ProfileRepository
	tips     repositories.TipRepository
	uow      repositories.UnitOfWork
	metrics  *metrics.Indexer
	syncer   *profileSyncer
	now      func() time.Time
}

// NewReconcilerUsecase creates a new reconciler usecase
func NewReconcilerUsecase(
	chain ChainReader,
	profiles repositories.ProfileRepository,
	tips repositories.TipRepository,
	uow repositories.UnitOfWork,
	m *metrics.Indexer,
) *ReconcilerUsecase {
	u := &ReconcilerUsecase{
		chain:    chain,
		profiles: profiles,
		tips:     tips,
		uow:      uow,
		metrics:  m,
		now:      time.Now,
	}
	u.syncer = &profileSyncer{chain: chain, profiles: profiles, now: u.clock}
	return u
}

func (u *ReconcilerUsecase) clock() time.Time {
	return u.now()
}

// HandleNotification parses a relayed notification and reconciles it
func (u *ReconcilerUsecase) HandleNotification(ctx context.Context, event string, data json.RawMessage) (*entities.ReconcileResult, error) {
	ev, err := ParseNotification(event, data)
	if err != nil {
		u.metrics.ObserveEvent(event, "rejected")
		return nil, err
	}
	return u.Reconcile(ctx, ev)
}

// Reconcile applies one validated event. Profile events re-read the chain and
// overwrite; tip events insert once and bump the recipient counters.
func (u *ReconcilerUsecase) Reconcile(ctx context.Context, ev entities.ChainEvent) (*entities.ReconcileResult, error) {
	var (
		result *entities.ReconcileResult
		err    error
	)
	switch {
	case ev.Type.IsProfileEvent():
		result, err = u.reconcileProfile(ctx, ev)
	case ev.Type == entities.EventTipSent:
		result, err = u.reconcileTip(ctx, ev)
	default:
		err = fmt.Errorf("%w: %q", domainerrors.ErrUnknownEvent, ev.Type)
	}

	if err != nil {
		u.metrics.ObserveEvent(string(ev.Type), "error")
		logger.Error(ctx, "Reconcile failed",
			zap.String("event", string(ev.Type)),
			zap.String("tx_hash", ev.TxHash),
			zap.Error(err),
		)
		return nil, err
	}
	u.metrics.ObserveEvent(string(ev.Type), outcomeOf(result))
	return result, nil
}

func outcomeOf(r *entities.ReconcileResult) string {
	switch {
	case r.Duplicate:
		return "duplicate"
	case r.Event == entities.EventTipSent && !r.CounterApplied:
		return "no_profile"
	case r.Event != entities.EventTipSent && !r.Exists:
		return "not_on_chain"
	default:
		return "applied"
	}
}

func (u *ReconcilerUsecase) reconcileProfile(ctx context.Context, ev entities.ChainEvent) (*entities.ReconcileResult, error) {
	if ev.Creator == "" {
		return nil, fmt.Errorf("%w: creator is required", domainerrors.ErrInvalidInput)
	}
	profile, err := u.syncer.sync(ctx, ev.Creator)
	if err != nil {
		return nil, err
	}

	result := &entities.ReconcileResult{
		Event:   ev.Type,
		Address: ev.Creator,
		Exists:  profile != nil,
		Profile: profile,
	}
	logger.Info(ctx, "Profile reconciled",
		zap.String("event", string(ev.Type)),
		zap.String("address", ev.Creator),
		zap.Bool("exists", result.Exists),
	)
	return result, nil
}

func (u *ReconcilerUsecase) reconcileTip(ctx context.Context, ev entities.ChainEvent) (*entities.ReconcileResult, error) {
	payload := ev.Tip
	if payload == nil {
		return nil, fmt.Errorf("%w: tip payload is required", domainerrors.ErrInvalidInput)
	}
	if ev.TxHash == "" && payload.TipIndex == "" {
		return nil, fmt.Errorf("%w: txHash or tipIndex is required", domainerrors.ErrInvalidInput)
	}

	timestamp, source := u.resolveTimestamp(ctx, ev)
	tip := &entities.Tip{
		TxHash:          TipKey(ev.TxHash, payload.TipIndex),
		TipIndex:        payload.TipIndex,
		From:            payload.From,
		To:              payload.To,
		Amount:          payload.Amount,
		Message:         payload.Message,
		Timestamp:       timestamp,
		TimestampSource: source,
		BlockNumber:     ev.BlockNumber,
	}
	if payload.Token != "" {
		tip.Token = null.StringFrom(payload.Token)
	}

	result := &entities.ReconcileResult{
		Event:   ev.Type,
		Address: payload.To,
		Tip:     tip,
	}

	// the insert only counts once the counter update lands with it
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		inserted, err := u.tips.Insert(txCtx, tip)
		if err != nil {
			return fmt.Errorf("insert tip %s: %w", tip.TxHash, err)
		}
		if !inserted {
			result.Duplicate = true
			return nil
		}

		applied, err := u.profiles.IncrementTips(u.uow.WithLock(txCtx), payload.To, payload.Amount, tip.IsNative())
		if err != nil {
			return fmt.Errorf("increment tips for %s: %w", payload.To, err)
		}
		result.CounterApplied = applied
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Duplicate {
		logger.Info(ctx, "Duplicate tip ignored", zap.String("key", tip.TxHash))
		return result, nil
	}
	if !result.CounterApplied {
		logger.Warn(ctx, "Tip recipient has no stored profile, counters left to bulk sync",
			zap.String("key", tip.TxHash),
			zap.String("to", payload.To),
		)
	}
	return result, nil
}

// resolveTimestamp prefers the block timestamp, then the contract's stored
// tip timestamp, and falls back to the observation time.
func (u *ReconcilerUsecase) resolveTimestamp(ctx context.Context, ev entities.ChainEvent) (int64, entities.TimestampSource) {
	if ev.BlockTimestamp > 0 {
		return ev.BlockTimestamp, entities.TimestampSourceBlock
	}
	if ev.Tip.TipIndex != "" {
		idx, ok := new(big.Int).SetString(ev.Tip.TipIndex, 10)
		if ok {
			chainTip, err := u.chain.GetTip(ctx, idx)
			if err == nil && chainTip.Timestamp > 0 {
				return chainTip.Timestamp, entities.TimestampSourceChain
			}
			if err != nil {
				logger.Warn(ctx, "getTip failed, using observation time",
					zap.String("tip_index", ev.Tip.TipIndex),
					zap.Error(err),
				)
			}
		}
	}
	return u.now().Unix(), entities.TimestampSourceObserved
}

// SyncProfile reconciles one address on demand and returns the stored profile
func (u *ReconcilerUsecase) SyncProfile(ctx context.Context, address string) (*entities.CreatorProfile, error) {
	normalized, err := utils.NormalizeAddress(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrInvalidInput, err)
	}

	profile, err := u.syncer.sync(ctx, normalized)
	if err != nil {
		u.metrics.ObserveEvent("ManualSync", "error")
		return nil, err
	}
	if profile == nil {
		u.metrics.ObserveEvent("ManualSync", "not_on_chain")
		return nil, fmt.Errorf("sync %s: %w", normalized, domainerrors.ErrProfileNotOnChain)
	}
	u.metrics.ObserveEvent("ManualSync", "applied")
	return profile, nil
}
