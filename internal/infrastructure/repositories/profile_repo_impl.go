package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"tip-chain.backend/internal/domain/entities"
	domainerrors "tip-chain.backend/internal/domain/errors"
	"tip-chain.backend/internal/infrastructure/models"
	"tip-chain.backend/pkg/utils"
)

// chain-derived columns rewritten on every upsert
var profileUpsertColumns = []string{
	"username",
	"bio",
	"avatar_uri",
	"socials",
	"total_tips_received",
	"tip_count",
	"exists_on_chain",
	"synced_at",
	"updated_at",
}

// ProfileRepository implements creator profile data operations
type ProfileRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db, now: time.Now}
}

// Upsert inserts the profile or overwrites all chain-derived fields of the existing row
func (r *ProfileRepository) Upsert(ctx context.Context, profile *entities.CreatorProfile) error {
	m, err := r.toModel(profile)
	if err != nil {
		return err
	}
	return GetDB(ctx, r.db).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			DoUpdates: clause.AssignmentColumns(profileUpsertColumns),
		}).
		Create(m).Error
}

// MarkMissing sets exists_on_chain=false on an existing row
func (r *ProfileRepository) MarkMissing(ctx context.Context, address string) (bool, error) {
	res := GetDB(ctx, r.db).WithContext(ctx).
		Model(&models.CreatorProfile{}).
		Where("address = ?", address).
		Updates(map[string]interface{}{
			"exists_on_chain": false,
			"synced_at":       r.now(),
			"updated_at":      r.now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// IncrementTips adds one tip to the recipient counters. Native tips also add
// their amount to total_tips_received. Returns false when no row exists.
func (r *ProfileRepository) IncrementTips(ctx context.Context, address string, amount string, native bool) (bool, error) {
	db := GetDB(ctx, r.db).WithContext(ctx)

	var m models.CreatorProfile
	if err := lockedDB(ctx, db).Where("address = ?", address).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	total := m.TotalTipsReceived
	if native {
		sum, err := utils.AddAmounts(m.TotalTipsReceived, amount)
		if err != nil {
			return false, fmt.Errorf("increment total for %s: %w", address, err)
		}
		total = sum
	}

	res := db.Model(&models.CreatorProfile{}).
		Where("address = ?", address).
		Updates(map[string]interface{}{
			"total_tips_received": total,
			"tip_count":           gorm.Expr("tip_count + ?", 1),
			"updated_at":          r.now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetByAddress gets a profile by its normalized address
func (r *ProfileRepository) GetByAddress(ctx context.Context, address string) (*entities.CreatorProfile, error) {
	var m models.CreatorProfile
	if err := GetDB(ctx, r.db).WithContext(ctx).Where("address = ?", address).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// ListExistingAddresses returns every address marked as existing on chain
func (r *ProfileRepository) ListExistingAddresses(ctx context.Context) ([]string, error) {
	var addresses []string
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Model(&models.CreatorProfile{}).
		Where("exists_on_chain = ?", true).
		Pluck("address", &addresses).Error; err != nil {
		return nil, err
	}
	return addresses, nil
}

// ListTop returns existing profiles ranked by total tips received.
// Totals are unpadded decimal strings, so length then lexical order is numeric order.
func (r *ProfileRepository) ListTop(ctx context.Context, limit int) ([]*entities.CreatorProfile, error) {
	var ms []models.CreatorProfile
	q := GetDB(ctx, r.db).WithContext(ctx).
		Where("exists_on_chain = ?", true).
		Order("LENGTH(total_tips_received) DESC").
		Order("total_tips_received DESC").
		Order("address ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&ms).Error; err != nil {
		return nil, err
	}

	profiles := make([]*entities.CreatorProfile, 0, len(ms))
	for i := range ms {
		profiles = append(profiles, r.toEntity(&ms[i]))
	}
	return profiles, nil
}

// CountExisting counts profiles marked as existing on chain
func (r *ProfileRepository) CountExisting(ctx context.Context) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).WithContext(ctx).
		Model(&models.CreatorProfile{}).
		Where("exists_on_chain = ?", true).
		Count(&count).Error
	return count, err
}

func (r *ProfileRepository) toModel(p *entities.CreatorProfile) (*models.CreatorProfile, error) {
	socials := p.Socials
	if socials == nil {
		socials = []string{}
	}
	rawSocials, err := json.Marshal(socials)
	if err != nil {
		return nil, fmt.Errorf("encode socials: %w", err)
	}

	total := p.TotalTipsReceived
	if total == "" {
		total = "0"
	}
	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = r.now()
	}

	return &models.CreatorProfile{
		Address:           p.Address,
		Username:          p.Username,
		Bio:               p.Bio,
		AvatarURI:         p.AvatarURI,
		Socials:           string(rawSocials),
		TotalTipsReceived: total,
		TipCount:          int64(p.TipCount),
		ExistsOnChain:     p.Exists,
		SyncedAt:          p.SyncedAt,
		UpdatedAt:         updatedAt,
	}, nil
}

func (r *ProfileRepository) toEntity(m *models.CreatorProfile) *entities.CreatorProfile {
	socials := []string{}
	if m.Socials != "" {
		// a corrupt socials column reads back as empty rather than failing the profile
		_ = json.Unmarshal([]byte(m.Socials), &socials)
	}
	var count uint64
	if m.TipCount > 0 {
		count = uint64(m.TipCount)
	}
	return &entities.CreatorProfile{
		Address:           m.Address,
		Username:          m.Username,
		Bio:               m.Bio,
		AvatarURI:         m.AvatarURI,
		Socials:           socials,
		TotalTipsReceived: m.TotalTipsReceived,
		TipCount:          count,
		Exists:            m.ExistsOnChain,
		SyncedAt:          m.SyncedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}
