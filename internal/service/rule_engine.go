package service

import (
	"github.com/shopspring/decimal"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/model"
)

// ==================== 规则引擎 ====================

// ProfitFloor 规则求值后的最低利润要求
type ProfitFloor struct {
	MinProfitAmount decimal.Decimal // 最低利润额(日元)
	MinProfitRate   decimal.Decimal // 最低利润率
}

// ApplyPricingRules 对最低利润阈值套用覆盖规则
// rules 必须已按 priority DESC, id ASC 排好序（仓储层保证）。
// 严格按该顺序求值，每条命中的规则都覆盖其目标字段，后写的赢。
func ApplyPricingRules(rules []model.PricingRule, sourcePrice, weightKg decimal.Decimal, base ProfitFloor) ProfitFloor {
	floor := base

	for _, rule := range rules {
		var probe decimal.Decimal
		switch rule.ConditionType {
		case model.RuleConditionSourcePrice:
			probe = sourcePrice
		case model.RuleConditionWeight:
			probe = weightKg
		default:
			continue
		}

		if !rule.Matches(probe) {
			continue
		}

		switch rule.TargetField {
		case model.RuleTargetMinProfitAmount:
			floor.MinProfitAmount = rule.OverrideValue
		case model.RuleTargetMinProfitRate:
			floor.MinProfitRate = rule.OverrideValue
		}
	}

	return floor
}
