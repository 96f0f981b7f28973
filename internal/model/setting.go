package model

import "time"

// ==================== SystemSetting 系统配置 ====================

// SystemSetting 动态配置项（key/value 存储）
// 费率、缓冲、阈值等可调参数全部落库，读取时由调用方提供缺省值
type SystemSetting struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`

	Key   string `gorm:"size:64;uniqueIndex;not null;comment:配置键"`
	Value string `gorm:"size:255;not null;comment:配置值"`
}

func (*SystemSetting) TableName() string {
	return "system_settings"
}

// ==================== 配置键常量 ====================

// 核价相关配置键
const (
	SettingFxBufferRate          = "fx_buffer_rate"
	SettingDomesticShippingCost  = "domestic_shipping_cost"
	SettingPackingMaterialCost   = "packing_material_cost"
	SettingSourcingAgentFee      = "sourcing_agent_fee"
	SettingOutboundHandlingFee   = "outbound_handling_fee"
	SettingEbayFeeRate           = "ebay_fee_rate"
	SettingRefundReserveRate     = "refund_reserve_rate"
	SettingMinProfitAmount       = "min_profit_amount"
	SettingMinProfitRate         = "min_profit_rate"
	SettingDefaultWeightKg       = "default_weight_kg"
	SettingDefaultSizeTier       = "default_size_tier"
	SettingFreshnessToleranceSec = "pricing_freshness_tolerance_sec"
	SettingSkuPrefix             = "sku_prefix"
)

// 资金闸门相关配置键
const (
	SettingCashBalance            = "cash_balance"
	SettingCreditLimit            = "credit_limit"
	SettingCreditUsed             = "credit_used"
	SettingUnconfirmedCost        = "unconfirmed_cost"
	SettingFixedRefundReserve     = "fixed_refund_reserve"
	SettingTrailingSales30d       = "trailing_sales_30d"
	SettingRefundReserveRatio     = "refund_reserve_ratio"
	SettingWorkingCapitalCapRatio = "working_capital_cap_ratio"
	SettingCashSafetyBuffer       = "cash_safety_buffer"
)

// 任务调度相关配置键
const (
	SettingSystemPaused            = "system_paused"
	SettingPublishBatchSize        = "publish_batch_size"
	SettingTrackingBatchSize       = "tracking_batch_size"
	SettingTrackingMaxAttempts     = "tracking_max_attempts"
	SettingTrackingMaxAgeHours     = "tracking_max_age_hours"
	SettingTrackingRetryIntervalMin = "tracking_retry_interval_min"
)
