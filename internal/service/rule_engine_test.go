package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/model"
)

// ==================== 规则引擎测试 ====================

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func baseFloor() ProfitFloor {
	return ProfitFloor{
		MinProfitAmount: dec("2000"),
		MinProfitRate:   dec("0.20"),
	}
}

func TestApplyPricingRules_NoMatch(t *testing.T) {
	min := dec("30000")
	rules := []model.PricingRule{
		{
			ID:            1,
			ConditionType: model.RuleConditionSourcePrice,
			MinValue:      &min,
			TargetField:   model.RuleTargetMinProfitAmount,
			OverrideValue: dec("8000"),
			Priority:      10,
		},
	}

	floor := ApplyPricingRules(rules, dec("10000"), dec("1.0"), baseFloor())
	require.Equal(t, "2000", floor.MinProfitAmount.String())
	require.Equal(t, "0.2", floor.MinProfitRate.String())
}

func TestApplyPricingRules_BoundaryInclusiveExclusive(t *testing.T) {
	min := dec("10000")
	max := dec("20000")
	rule := model.PricingRule{
		ConditionType: model.RuleConditionSourcePrice,
		MinValue:      &min,
		MaxValue:      &max,
		TargetField:   model.RuleTargetMinProfitAmount,
		OverrideValue: dec("5000"),
	}

	// 下界含、上界不含
	require.True(t, rule.Matches(dec("10000")))
	require.True(t, rule.Matches(dec("19999.99")))
	require.False(t, rule.Matches(dec("20000")))
	require.False(t, rule.Matches(dec("9999.99")))
}

func TestApplyPricingRules_LastAssignmentWins(t *testing.T) {
	// 输入顺序即求值顺序（仓储层按 priority DESC, id ASC 排好），
	// 同一目标字段被多条命中规则覆盖时，最后一次赋值生效
	rules := []model.PricingRule{
		{
			ID:            1,
			ConditionType: model.RuleConditionSourcePrice,
			TargetField:   model.RuleTargetMinProfitAmount,
			OverrideValue: dec("9000"),
			Priority:      20,
		},
		{
			ID:            2,
			ConditionType: model.RuleConditionSourcePrice,
			TargetField:   model.RuleTargetMinProfitAmount,
			OverrideValue: dec("4000"),
			Priority:      10,
		},
	}

	floor := ApplyPricingRules(rules, dec("15000"), dec("1.0"), baseFloor())
	require.Equal(t, "4000", floor.MinProfitAmount.String())
}

func TestApplyPricingRules_IndependentTargets(t *testing.T) {
	wmin := dec("2")
	rules := []model.PricingRule{
		{
			ID:            1,
			ConditionType: model.RuleConditionSourcePrice,
			TargetField:   model.RuleTargetMinProfitAmount,
			OverrideValue: dec("6000"),
			Priority:      10,
		},
		{
			ID:            2,
			ConditionType: model.RuleConditionWeight,
			MinValue:      &wmin,
			TargetField:   model.RuleTargetMinProfitRate,
			OverrideValue: dec("0.30"),
			Priority:      5,
		},
	}

	// 重货同时命中两条规则，两个目标字段各自覆盖
	floor := ApplyPricingRules(rules, dec("15000"), dec("2.5"), baseFloor())
	require.Equal(t, "6000", floor.MinProfitAmount.String())
	require.Equal(t, "0.3", floor.MinProfitRate.String())

	// 轻货只命中第一条
	floor = ApplyPricingRules(rules, dec("15000"), dec("1.0"), baseFloor())
	require.Equal(t, "6000", floor.MinProfitAmount.String())
	require.Equal(t, "0.2", floor.MinProfitRate.String())
}

func TestApplyPricingRules_UnknownConditionSkipped(t *testing.T) {
	rules := []model.PricingRule{
		{
			ID:            1,
			ConditionType: "lunar_phase",
			TargetField:   model.RuleTargetMinProfitAmount,
			OverrideValue: dec("999999"),
		},
	}

	floor := ApplyPricingRules(rules, dec("15000"), dec("1.0"), baseFloor())
	require.Equal(t, "2000", floor.MinProfitAmount.String())
}

// ==================== 国际运费表测试 ====================

func TestShippingCost(t *testing.T) {
	cases := []struct {
		tier   string
		weight string
		want   string
	}{
		{model.SizeTierS, "0.5", "1000.00"},
		{model.SizeTierM, "1.0", "2100.00"},
		{model.SizeTierL, "2.0", "5000.00"},
		{model.SizeTierXL, "1.5", "6500.00"},
	}
	for _, tc := range cases {
		got := ShippingCost(tc.tier, dec(tc.weight))
		if got.StringFixed(2) != tc.want {
			t.Errorf("ShippingCost(%s, %s) = %s, want %s", tc.tier, tc.weight, got.StringFixed(2), tc.want)
		}
	}
}

func TestShippingCost_UnknownTierTakesCeiling(t *testing.T) {
	// 未知分级按 XL 计
	got := ShippingCost("UNKNOWN", dec("1.5"))
	want := ShippingCost(model.SizeTierXL, dec("1.5"))
	if !got.Equal(want) {
		t.Errorf("未知分级 = %s, want %s", got, want)
	}
}

func TestShippingCost_NegativeWeight(t *testing.T) {
	got := ShippingCost(model.SizeTierM, dec("-1"))
	if got.StringFixed(2) != "1200.00" {
		t.Errorf("负重量 = %s, want 按零计 1200.00", got.StringFixed(2))
	}
}
