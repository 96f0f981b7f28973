package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/model"
)

// ==================== 仓储接口 ====================

// StateTransitionRepository 状态流转审计仓储接口
// 只提供追加与查询，不存在更新/删除
type StateTransitionRepository interface {
	Append(ctx context.Context, t *model.StateTransition) error
	ListByEntity(ctx context.Context, entityType string, entityID int64) ([]model.StateTransition, error)
	ListByCorrelation(ctx context.Context, correlationID string) ([]model.StateTransition, error)
}

// ==================== 仓储实现 ====================

type stateTransitionRepo struct {
	db *gorm.DB
}

// NewStateTransitionRepository 创建审计仓储
func NewStateTransitionRepository(db *gorm.DB) StateTransitionRepository {
	return &stateTransitionRepo{db: db}
}

func (r *stateTransitionRepo) Append(ctx context.Context, t *model.StateTransition) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *stateTransitionRepo) ListByEntity(ctx context.Context, entityType string, entityID int64) ([]model.StateTransition, error) {
	var transitions []model.StateTransition
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("id ASC").
		Find(&transitions).Error
	return transitions, err
}

func (r *stateTransitionRepo) ListByCorrelation(ctx context.Context, correlationID string) ([]model.StateTransition, error) {
	var transitions []model.StateTransition
	err := r.db.WithContext(ctx).
		Where("correlation_id = ?", correlationID).
		Order("id ASC").
		Find(&transitions).Error
	return transitions, err
}
