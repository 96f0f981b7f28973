package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ==================== 台账常量 ====================

// LedgerEntryType 台账条目类型
const (
	LedgerTypePurchase = "purchase" // 采购支出
	LedgerTypeSale     = "sale"     // 销售收入
	LedgerTypeFee      = "fee"      // 费用
)

// LedgerStatus 台账条目状态
const (
	LedgerStatusOpen       = "open"       // 已承诺未实际入账
	LedgerStatusActualized = "actualized" // 已实际入账
	LedgerStatusVoid       = "void"       // 已作废
)

// ==================== LedgerEntry 资金台账 ====================

// LedgerEntry 资金台账条目
// open 状态的采购条目之和即资金闸门读取的"未实际化承诺"
type LedgerEntry struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time

	EntryType string          `gorm:"size:16;index;not null;comment:条目类型"`
	AmountJPY decimal.Decimal `gorm:"type:decimal(14,2);not null;comment:金额(日元)"`
	Status    string          `gorm:"size:16;index;default:open;comment:状态"`

	CandidateID int64  `gorm:"index;comment:关联候选商品ID"`
	OrderID     int64  `gorm:"index;comment:关联订单ID"`
	Remark      string `gorm:"size:255;comment:说明"`

	OccurredAt   time.Time  `gorm:"index;comment:业务发生时间"`
	ActualizedAt *time.Time `gorm:"comment:实际入账时间"`
}

func (*LedgerEntry) TableName() string {
	return "ledger_entries"
}
