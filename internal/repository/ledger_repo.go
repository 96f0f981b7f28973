package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/model"
)

// ==================== 仓储接口 ====================

// LedgerRepository 资金台账仓储接口
type LedgerRepository interface {
	Create(ctx context.Context, e *model.LedgerEntry) error
	GetByID(ctx context.Context, id int64) (*model.LedgerEntry, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	// SumOpenCommitments 汇总未实际化的采购承诺（open 状态的 purchase 条目）
	SumOpenCommitments(ctx context.Context) (decimal.Decimal, error)
}

// ==================== 仓储实现 ====================

type ledgerRepo struct {
	db *gorm.DB
}

// NewLedgerRepository 创建资金台账仓储
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepo{db: db}
}

func (r *ledgerRepo) Create(ctx context.Context, e *model.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *ledgerRepo) GetByID(ctx context.Context, id int64) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	if err := r.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *ledgerRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now()
	}
	return r.db.WithContext(ctx).Model(&model.LedgerEntry{}).Where("id = ?", id).Updates(fields).Error
}

func (r *ledgerRepo) SumOpenCommitments(ctx context.Context) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.WithContext(ctx).Model(&model.LedgerEntry{}).
		Select("COALESCE(SUM(amount_jpy), 0)").
		Where("entry_type = ? AND status = ?", model.LedgerTypePurchase, model.LedgerStatusOpen).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}
