package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/model"
)

// ==================== 仓储接口 ====================

// PricingResultRepository 核价快照仓储接口
// 与候选商品一对一，Upsert 覆盖旧快照
type PricingResultRepository interface {
	Upsert(ctx context.Context, result *model.PricingResult) error
	GetByCandidateID(ctx context.Context, candidateID int64) (*model.PricingResult, error)
}

// PricingRuleRepository 核价规则仓储接口
type PricingRuleRepository interface {
	Create(ctx context.Context, rule *model.PricingRule) error
	Update(ctx context.Context, rule *model.PricingRule) error
	Delete(ctx context.Context, id int64) error
	// ListEnabled 按 priority DESC, id ASC 返回启用规则
	// 同优先级的并列顺序在这里定死，不依赖存储顺序
	ListEnabled(ctx context.Context) ([]model.PricingRule, error)
}

// ==================== PricingResult 仓储实现 ====================

type pricingResultRepo struct {
	db *gorm.DB
}

// NewPricingResultRepository 创建核价快照仓储
func NewPricingResultRepository(db *gorm.DB) PricingResultRepository {
	return &pricingResultRepo{db: db}
}

func (r *pricingResultRepo) Upsert(ctx context.Context, result *model.PricingResult) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "candidate_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"created_at", "fx_rate", "buffered_fx",
			"sell_price_usd", "sell_price_jpy",
			"total_cost", "fee_amount", "reserve_amount",
			"profit", "profit_rate",
			"profit_ok", "cash_ok", "below_recommended",
		}),
	}).Create(result).Error
}

func (r *pricingResultRepo) GetByCandidateID(ctx context.Context, candidateID int64) (*model.PricingResult, error) {
	var result model.PricingResult
	if err := r.db.WithContext(ctx).Where("candidate_id = ?", candidateID).First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

// ==================== PricingRule 仓储实现 ====================

type pricingRuleRepo struct {
	db *gorm.DB
}

// NewPricingRuleRepository 创建核价规则仓储
func NewPricingRuleRepository(db *gorm.DB) PricingRuleRepository {
	return &pricingRuleRepo{db: db}
}

func (r *pricingRuleRepo) Create(ctx context.Context, rule *model.PricingRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *pricingRuleRepo) Update(ctx context.Context, rule *model.PricingRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

func (r *pricingRuleRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.PricingRule{}, id).Error
}

func (r *pricingRuleRepo) ListEnabled(ctx context.Context) ([]model.PricingRule, error) {
	var rules []model.PricingRule
	err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("priority DESC, id ASC").
		Find(&rules).Error
	return rules, err
}
