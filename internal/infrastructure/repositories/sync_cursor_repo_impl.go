package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"tip-chain.backend/internal/domain/entities"
	domainerrors "tip-chain.backend/internal/domain/errors"
	"tip-chain.backend/internal/infrastructure/models"
)

// SyncCursorRepository stores named block cursors
type SyncCursorRepository struct {
	db *gorm.DB
}

func NewSyncCursorRepository(db *gorm.DB) *SyncCursorRepository {
	return &SyncCursorRepository{db: db}
}

// Get returns ErrNotFound when the cursor has never been saved
func (r *SyncCursorRepository) Get(ctx context.Context, name string) (*entities.SyncCursor, error) {
	var m models.SyncCursor
	if err := GetDB(ctx, r.db).WithContext(ctx).Where("name = ?", name).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return &entities.SyncCursor{
		Name:        m.Name,
		BlockNumber: uint64(m.BlockNumber),
		UpdatedAt:   m.UpdatedAt,
	}, nil
}

func (r *SyncCursorRepository) Save(ctx context.Context, name string, blockNumber uint64) error {
	m := &models.SyncCursor{
		Name:        name,
		BlockNumber: int64(blockNumber),
		UpdatedAt:   time.Now(),
	}
	return GetDB(ctx, r.db).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"block_number", "updated_at"}),
		}).
		Create(m).Error
}
