package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ==================== 订单状态常量 ====================

// OrderState 订单状态
const (
	OrderStatePending          = "pending"           // 售出待发货
	OrderStateShippedIntl      = "shipped_intl"      // 已国际发货,待回传物流
	OrderStateTrackingUploaded = "tracking_uploaded" // 物流单号已回传
	OrderStateTrackingFailed   = "tracking_failed"   // 回传重试耗尽,终态
	OrderStateDone             = "done"              // 已完结
	OrderStateCanceled         = "canceled"          // 已取消
)

// orderTransitions 订单状态流转表
var orderTransitions = map[string][]string{
	OrderStatePending: {
		OrderStateShippedIntl,
		OrderStateCanceled,
	},
	OrderStateShippedIntl: {
		OrderStateTrackingUploaded,
		OrderStateTrackingFailed,
	},
	OrderStateTrackingUploaded: {
		OrderStateDone,
	},
}

// OrderCanTransition 检查订单状态流转是否被允许
func OrderCanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ==================== Order 订单 ====================

// Order 售出订单
// 物流回传的重试状态直接落在实体字段上，重启后不丢失
type Order struct {
	ID        int64          `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time      `gorm:"index"`
	UpdatedAt time.Time      `gorm:"index"`
	DeletedAt gorm.DeletedAt `gorm:"index"`

	EbayOrderKey string `gorm:"size:64;uniqueIndex;not null;comment:eBay订单号"`
	CandidateID  int64  `gorm:"index;comment:候选商品ID"`
	ListingID    int64  `gorm:"index;comment:上架草稿ID"`
	SKU          string `gorm:"size:64;index;comment:售出SKU"`

	SaleAmountUSD decimal.Decimal `gorm:"type:decimal(14,2);comment:成交金额(美元)"`
	RawSaleData   datatypes.JSON  `gorm:"type:jsonb;comment:销售通知原始数据"`

	State string `gorm:"size:32;index;default:pending;comment:订单状态"`

	// 物流回传重试状态
	AttemptCount      int        `gorm:"default:0;comment:回传尝试次数"`
	TrackingStartedAt *time.Time `gorm:"comment:首次尝试时间"`
	NextRetryAt       *time.Time `gorm:"index;comment:下次重试时间"`
	LastError         string     `gorm:"size:1024;comment:最近一次回传错误"`
	TerminalAt        *time.Time `gorm:"comment:终态失败时间"`

	// 关联
	Fulfillment *Fulfillment `gorm:"foreignKey:OrderID"`
}

func (*Order) TableName() string {
	return "orders"
}

// CanTransitionTo 检查状态流转是否被允许
func (o *Order) CanTransitionTo(to string) bool {
	return OrderCanTransition(o.State, to)
}

// IsTerminal 订单是否已进入不再自动处理的终态
func (o *Order) IsTerminal() bool {
	return o.State == OrderStateTrackingFailed ||
		o.State == OrderStateDone ||
		o.State == OrderStateCanceled
}

// ==================== Fulfillment 发货信息 ====================

// Fulfillment 订单出库发货信息
// 回传物流前必须先登记承运商与单号
type Fulfillment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time

	OrderID        int64  `gorm:"uniqueIndex;not null;comment:订单ID"`
	CarrierCode    string `gorm:"size:32;not null;comment:承运商代码"`
	CarrierName    string `gorm:"size:64;comment:承运商名称"`
	TrackingNumber string `gorm:"size:64;index;not null;comment:国际物流单号"`
}

func (*Fulfillment) TableName() string {
	return "fulfillments"
}
