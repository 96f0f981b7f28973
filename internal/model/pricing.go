package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ==================== PricingResult 核价快照 ====================

// PricingResult 候选商品最近一次核价快照
// 每个候选只保留一份，重复核价按 candidate_id 覆盖
type PricingResult struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"index;comment:核价时间"`
	UpdatedAt time.Time

	CandidateID int64 `gorm:"uniqueIndex;not null;comment:候选商品ID"`

	FxRate     decimal.Decimal `gorm:"type:decimal(10,4);comment:核价时汇率(JPY/USD)"`
	BufferedFx decimal.Decimal `gorm:"type:decimal(10,4);comment:加缓冲后汇率"`

	SellPriceUSD decimal.Decimal `gorm:"type:decimal(14,2);comment:采用售价(美元)"`
	SellPriceJPY decimal.Decimal `gorm:"type:decimal(14,2);comment:售价折算收入(日元)"`
	TotalCost    decimal.Decimal `gorm:"type:decimal(14,2);comment:总成本(日元)"`

	FeeAmount     decimal.Decimal `gorm:"type:decimal(14,2);comment:平台手续费(日元)"`
	ReserveAmount decimal.Decimal `gorm:"type:decimal(14,2);comment:退款准备金(日元)"`
	Profit        decimal.Decimal `gorm:"type:decimal(14,2);comment:利润(日元)"`
	ProfitRate    decimal.Decimal `gorm:"type:decimal(8,4);comment:利润率"`

	ProfitOK         bool `gorm:"comment:利润闸门结论"`
	CashOK           bool `gorm:"comment:资金闸门结论"`
	BelowRecommended bool `gorm:"comment:指定售价低于建议价"`
}

func (*PricingResult) TableName() string {
	return "pricing_results"
}

// GatesPassed 双闸门是否均已通过
func (r *PricingResult) GatesPassed() bool {
	return r.ProfitOK && r.CashOK
}

// ==================== 规则常量 ====================

// RuleCondition 规则条件类型
const (
	RuleConditionSourcePrice = "source_price"
	RuleConditionWeight      = "weight"
)

// RuleTarget 规则覆盖的目标字段
const (
	RuleTargetMinProfitAmount = "min_profit_amount"
	RuleTargetMinProfitRate   = "min_profit_rate"
)

// ==================== PricingRule 核价覆盖规则 ====================

// PricingRule 最低利润阈值覆盖规则
// 条件区间左闭右开；priority 大者先求值，同优先级按 id 升序
type PricingRule struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name string `gorm:"size:128;comment:规则名称"`

	ConditionType string           `gorm:"size:32;not null;comment:条件类型"`
	MinValue      *decimal.Decimal `gorm:"type:decimal(14,2);comment:条件下界(含),空则不设下界"`
	MaxValue      *decimal.Decimal `gorm:"type:decimal(14,2);comment:条件上界(不含),空则不设上界"`

	TargetField   string          `gorm:"size:32;not null;comment:覆盖的目标字段"`
	OverrideValue decimal.Decimal `gorm:"type:decimal(14,4);not null;comment:覆盖值"`

	Priority int  `gorm:"default:0;index;comment:优先级,大者先求值"`
	Enabled  bool `gorm:"default:true;index;comment:是否启用"`
}

func (*PricingRule) TableName() string {
	return "pricing_rules"
}

// Matches 条件值是否落在规则区间内
func (r *PricingRule) Matches(v decimal.Decimal) bool {
	if r.MinValue != nil && v.LessThan(*r.MinValue) {
		return false
	}
	if r.MaxValue != nil && v.GreaterThanOrEqual(*r.MaxValue) {
		return false
	}
	return true
}
