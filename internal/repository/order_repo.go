package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/model"
)

// ==================== 仓储接口 ====================

// OrderRepository 订单仓储接口
type OrderRepository interface {
	Create(ctx context.Context, o *model.Order) error
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	GetByOrderKey(ctx context.Context, key string) (*model.Order, error)
	Update(ctx context.Context, o *model.Order) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	// FindTrackingDue 查询待回传物流的订单：
	// shipped_intl 状态且 next_retry_at 已到期，按入队先后排序
	FindTrackingDue(ctx context.Context, now time.Time, limit int) ([]model.Order, error)
}

// FulfillmentRepository 发货信息仓储接口
type FulfillmentRepository interface {
	Create(ctx context.Context, f *model.Fulfillment) error
	GetByOrderID(ctx context.Context, orderID int64) (*model.Fulfillment, error)
}

// ==================== Order 仓储实现 ====================

type orderRepo struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Create(ctx context.Context, o *model.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	var o model.Order
	if err := r.db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) GetByOrderKey(ctx context.Context, key string) (*model.Order, error) {
	var o model.Order
	if err := r.db.WithContext(ctx).Where("ebay_order_key = ?", key).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) Update(ctx context.Context, o *model.Order) error {
	return r.db.WithContext(ctx).Save(o).Error
}

func (r *orderRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now()
	}
	return r.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", id).Updates(fields).Error
}

func (r *orderRepo) FindTrackingDue(ctx context.Context, now time.Time, limit int) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("state = ?", model.OrderStateShippedIntl).
		Where("next_retry_at IS NOT NULL AND next_retry_at <= ?", now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

// ==================== Fulfillment 仓储实现 ====================

type fulfillmentRepo struct {
	db *gorm.DB
}

// NewFulfillmentRepository 创建发货信息仓储
func NewFulfillmentRepository(db *gorm.DB) FulfillmentRepository {
	return &fulfillmentRepo{db: db}
}

func (r *fulfillmentRepo) Create(ctx context.Context, f *model.Fulfillment) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *fulfillmentRepo) GetByOrderID(ctx context.Context, orderID int64) (*model.Fulfillment, error) {
	var f model.Fulfillment
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}
