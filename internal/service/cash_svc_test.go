package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/model"
)

// ==================== 资金闸门测试 ====================

func newCashGate(t *testing.T) (*CashGateService, *SettingsService, func(amount string)) {
	uow, settings, db := newTestEnv(t)
	gate := NewCashGateService(settings, uow.Ledger)

	addOpenPurchase := func(amount string) {
		db.Create(&model.LedgerEntry{
			EntryType:  model.LedgerTypePurchase,
			AmountJPY:  mustDecimal(t, amount),
			Status:     model.LedgerStatusOpen,
			OccurredAt: time.Now(),
		})
	}
	return gate, settings, addOpenPurchase
}

func TestCashGate_InsufficientWorkingCapital(t *testing.T) {
	gate, settings, _ := newCashGate(t)
	ctx := context.Background()

	// 现金 30000、固定准备金 10000、底线 50000：
	// 可动用营运资金只剩 20000，连底线都够不着
	setSetting(t, settings, model.SettingCashBalance, "30000")
	setSetting(t, settings, model.SettingFixedRefundReserve, "10000")

	verdict, err := gate.Evaluate(ctx, decimal.NewFromInt(5000))
	require.NoError(t, err)

	require.False(t, verdict.OK)
	require.Equal(t, "20000.00", verdict.WorkingCapitalAvailable.StringFixed(2))
	require.False(t, verdict.CoveredByCashAlone)
}

func TestCashGate_Approved(t *testing.T) {
	gate, settings, _ := newCashGate(t)
	ctx := context.Background()

	setSetting(t, settings, model.SettingCashBalance, "200000")
	setSetting(t, settings, model.SettingTrailingSales30d, "100000")

	verdict, err := gate.Evaluate(ctx, decimal.NewFromInt(18300))
	require.NoError(t, err)

	require.True(t, verdict.OK)
	require.True(t, verdict.CapOK)
	// 准备金 = max(0, 100000×0.05)
	require.Equal(t, "5000.00", verdict.RefundReserve.StringFixed(2))
	require.Equal(t, "50000.00", verdict.CapLimit.StringFixed(2))
}

func TestCashGate_CapBlocked_CashCovers(t *testing.T) {
	gate, settings, addOpenPurchase := newCashGate(t)
	ctx := context.Background()

	// 未实际化承诺把扩张上限吃满，但现金充裕：上限不构成约束
	setSetting(t, settings, model.SettingCashBalance, "500000")
	setSetting(t, settings, model.SettingTrailingSales30d, "100000")
	addOpenPurchase("45000")

	verdict, err := gate.Evaluate(ctx, decimal.NewFromInt(10000))
	require.NoError(t, err)

	require.False(t, verdict.CapOK)
	require.True(t, verdict.CoveredByCashAlone)
	require.True(t, verdict.OK)
}

func TestCashGate_OpenCommitmentsReduceCapacity(t *testing.T) {
	gate, settings, addOpenPurchase := newCashGate(t)
	ctx := context.Background()

	setSetting(t, settings, model.SettingCashBalance, "100000")
	setSetting(t, settings, model.SettingTrailingSales30d, "100000")

	before, err := gate.Evaluate(ctx, decimal.NewFromInt(30000))
	require.NoError(t, err)
	require.True(t, before.OK)

	// 80000 的在途采购吃掉可用额度后，同样的新增成本不再放行
	addOpenPurchase("80000")

	after, err := gate.Evaluate(ctx, decimal.NewFromInt(30000))
	require.NoError(t, err)
	require.False(t, after.OK)
	require.Equal(t, "80000.00", after.OpenCommitments.StringFixed(2))
}

func TestCashGate_OKImpliesBufferHeld(t *testing.T) {
	gate, settings, _ := newCashGate(t)
	ctx := context.Background()

	setSetting(t, settings, model.SettingCashBalance, "300000")
	setSetting(t, settings, model.SettingTrailingSales30d, "200000")

	for _, amount := range []string{"0", "1000", "50000", "180000", "240000", "260000"} {
		verdict, err := gate.Evaluate(ctx, mustDecimal(t, amount))
		require.NoError(t, err)
		if verdict.OK {
			// 放行必然保住底线
			require.True(t,
				verdict.WorkingCapitalAvailable.GreaterThanOrEqual(verdict.NewCost.Add(verdict.SafetyBuffer)),
				"newCost=%s 放行但击穿底线", amount)
		}
		if !verdict.OK {
			// 拦截时不可能出现"仅现金即可覆盖"的矛盾结论
			require.False(t, verdict.CoveredByCashAlone,
				"newCost=%s 拦截但 CoveredByCashAlone=true", amount)
		}
	}
}

func TestCashGate_NegativeCost(t *testing.T) {
	gate, _, _ := newCashGate(t)

	_, err := gate.Evaluate(context.Background(), decimal.NewFromInt(-1))
	require.True(t, IsValidation(err))
}
