package repositories

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"tip-chain.backend/internal/domain/entities"
	domainerrors "tip-chain.backend/internal/domain/errors"
	"tip-chain.backend/internal/infrastructure/models"
	"tip-chain.backend/pkg/utils"
)

// timestamp is a type name in postgres, so the column is always quoted
var newestFirst = clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}

// TipRepository implements the append-only tip log
type TipRepository struct {
	db *gorm.DB
}

// NewTipRepository creates a new tip repository
func NewTipRepository(db *gorm.DB) *TipRepository {
	return &TipRepository{db: db}
}

// Insert stores the tip. A row with the same key already present returns false.
func (r *TipRepository) Insert(ctx context.Context, tip *entities.Tip) (bool, error) {
	m := r.toModel(tip)
	res := GetDB(ctx, r.db).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tx_hash"}},
			DoNothing: true,
		}).
		Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	tip.CreatedAt = m.CreatedAt
	return true, nil
}

// GetByTxHash gets a tip by its key
func (r *TipRepository) GetByTxHash(ctx context.Context, txHash string) (*entities.Tip, error) {
	var m models.Tip
	if err := GetDB(ctx, r.db).WithContext(ctx).Where("tx_hash = ?", txHash).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// ListRecent returns the newest tips first
func (r *TipRepository) ListRecent(ctx context.Context, limit int) ([]*entities.Tip, error) {
	var ms []models.Tip
	q := GetDB(ctx, r.db).WithContext(ctx).Order(newestFirst).Order("tx_hash ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&ms).Error; err != nil {
		return nil, err
	}
	return r.toEntities(ms), nil
}

// ListByRecipient returns every tip received by address, newest first
func (r *TipRepository) ListByRecipient(ctx context.Context, address string) ([]*entities.Tip, error) {
	var ms []models.Tip
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Where("to_address = ?", address).
		Order(newestFirst).
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return r.toEntities(ms), nil
}

func (r *TipRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).WithContext(ctx).Model(&models.Tip{}).Count(&count).Error
	return count, err
}

// SumNativeAmounts totals every native-asset tip. Amounts can exceed 64 bits,
// so the sum is done in Go rather than in SQL.
func (r *TipRepository) SumNativeAmounts(ctx context.Context) (string, error) {
	var amounts []string
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Model(&models.Tip{}).
		Where("token IS NULL").
		Pluck("amount", &amounts).Error; err != nil {
		return "", err
	}
	return utils.SumAmounts(amounts), nil
}

type recipientTipRow struct {
	ToAddress string
	Amount    string
	Token     *string
}

// AggregateByRecipient returns tip count and native total per recipient
func (r *TipRepository) AggregateByRecipient(ctx context.Context) (map[string]*entities.RecipientTipAggregate, error) {
	var rows []recipientTipRow
	if err := GetDB(ctx, r.db).WithContext(ctx).
		Model(&models.Tip{}).
		Select("to_address", "amount", "token").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	totals := make(map[string]*big.Int)
	out := make(map[string]*entities.RecipientTipAggregate)
	for _, row := range rows {
		agg, ok := out[row.ToAddress]
		if !ok {
			agg = &entities.RecipientTipAggregate{Address: row.ToAddress, NativeTotal: "0"}
			out[row.ToAddress] = agg
			totals[row.ToAddress] = new(big.Int)
		}
		agg.TipCount++
		if row.Token != nil {
			continue
		}
		if v, err := utils.ParseAmount(row.Amount); err == nil {
			totals[row.ToAddress].Add(totals[row.ToAddress], v)
		}
	}
	for addr, total := range totals {
		out[addr].NativeTotal = total.String()
	}
	return out, nil
}

func (r *TipRepository) toModel(t *entities.Tip) *models.Tip {
	m := &models.Tip{
		TxHash:          t.TxHash,
		FromAddress:     t.From,
		ToAddress:       t.To,
		Amount:          t.Amount,
		Message:         t.Message,
		Timestamp:       t.Timestamp,
		TimestampSource: string(t.TimestampSource),
		BlockNumber:     int64(t.BlockNumber),
	}
	if strings.TrimSpace(t.TipIndex) != "" {
		idx := t.TipIndex
		m.TipIndex = &idx
	}
	if t.Token.Valid {
		token := t.Token.String
		m.Token = &token
	}
	return m
}

func (r *TipRepository) toEntity(m *models.Tip) *entities.Tip {
	t := &entities.Tip{
		TxHash:          m.TxHash,
		From:            m.FromAddress,
		To:              m.ToAddress,
		Amount:          m.Amount,
		Token:           null.StringFromPtr(m.Token),
		Message:         m.Message,
		Timestamp:       m.Timestamp,
		TimestampSource: entities.TimestampSource(m.TimestampSource),
		CreatedAt:       m.CreatedAt,
	}
	if m.TipIndex != nil {
		t.TipIndex = *m.TipIndex
	}
	if m.BlockNumber > 0 {
		t.BlockNumber = uint64(m.BlockNumber)
	}
	return t
}

func (r *TipRepository) toEntities(ms []models.Tip) []*entities.Tip {
	tips := make([]*entities.Tip, 0, len(ms))
	for i := range ms {
		tips = append(tips, r.toEntity(&ms[i]))
	}
	return tips
}
