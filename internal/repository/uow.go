package repository

import (
	"context"

	"gorm.io/gorm"
)

// ==================== 事务支持 ====================

// PipelineUnitOfWork 采购-上架-订单流水线工作单元（事务）
// 核价落库+状态流转+审计追加这类多表写入必须整体提交或整体回滚，
// 全部通过本工作单元的 Transaction 执行
type PipelineUnitOfWork struct {
	db *gorm.DB

	Candidates   CandidateRepository
	Pricing      PricingResultRepository
	Rules        PricingRuleRepository
	Listings     ListingRepository
	Orders       OrderRepository
	Fulfillments FulfillmentRepository
	Ledger       LedgerRepository
	Audit        StateTransitionRepository
	Settings     SettingRepository
}

// NewPipelineUnitOfWork 创建工作单元
func NewPipelineUnitOfWork(db *gorm.DB) *PipelineUnitOfWork {
	return &PipelineUnitOfWork{
		db:           db,
		Candidates:   NewCandidateRepository(db),
		Pricing:      NewPricingResultRepository(db),
		Rules:        NewPricingRuleRepository(db),
		Listings:     NewListingRepository(db),
		Orders:       NewOrderRepository(db),
		Fulfillments: NewFulfillmentRepository(db),
		Ledger:       NewLedgerRepository(db),
		Audit:        NewStateTransitionRepository(db),
		Settings:     NewSettingRepository(db),
	}
}

// Transaction 执行事务
func (u *PipelineUnitOfWork) Transaction(ctx context.Context, fn func(uow *PipelineUnitOfWork) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewPipelineUnitOfWork(tx))
	})
}
