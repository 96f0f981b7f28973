package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/model"
	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/repository"
)

// ==================== 资金闸门 ====================

// CashVerdict 资金可用性判定结果
// 中间量全部返回，便于排查为何放行/拦截；无任何副作用
type CashVerdict struct {
	OK bool

	NewCost decimal.Decimal // 本次拟新增的成本

	Cash            decimal.Decimal // 现金余额
	CreditAvailable decimal.Decimal // 可用授信
	RefundReserve   decimal.Decimal // 退款准备金
	OpenCommitments decimal.Decimal // 未实际化采购承诺
	UnconfirmedCost decimal.Decimal // 未确认成本

	WorkingCapitalAvailable decimal.Decimal // 可动用营运资金
	PureCashAvailable       decimal.Decimal // 仅现金口径的可用额
	CapLimit                decimal.Decimal // 扩张上限(近30日销售×比例)
	SafetyBuffer            decimal.Decimal // 必须保留的流动性底线

	CapOK              bool // 承诺总额未超扩张上限
	CoveredByCashAlone bool // 仅现金即可覆盖本次成本
}

// CashGateService 资金闸门服务
type CashGateService struct {
	settings *SettingsService
	ledger   repository.LedgerRepository
}

// NewCashGateService 创建资金闸门服务
func NewCashGateService(settings *SettingsService, ledger repository.LedgerRepository) *CashGateService {
	return &CashGateService{settings: settings, ledger: ledger}
}

// Evaluate 判定新增 newCost 的采购承诺是否放行
//
// 扩张上限用于抑制快速扩张期对授信的依赖；
// 若仅现金就能完全覆盖本次成本，上限不构成约束。
// 放行还要求动用后仍保有 cash_safety_buffer 的流动性底线。
func (s *CashGateService) Evaluate(ctx context.Context, newCost decimal.Decimal) (*CashVerdict, error) {
	if newCost.IsNegative() {
		return nil, NewValidationError("新增成本不能为负: %s", newCost.String())
	}

	cash, err := s.settings.GetDecimal(ctx, model.SettingCashBalance, "0")
	if err != nil {
		return nil, err
	}
	creditLimit, err := s.settings.GetDecimal(ctx, model.SettingCreditLimit, "0")
	if err != nil {
		return nil, err
	}
	creditUsed, err := s.settings.GetDecimal(ctx, model.SettingCreditUsed, "0")
	if err != nil {
		return nil, err
	}
	unconfirmed, err := s.settings.GetDecimal(ctx, model.SettingUnconfirmedCost, "0")
	if err != nil {
		return nil, err
	}
	fixedReserve, err := s.settings.GetDecimal(ctx, model.SettingFixedRefundReserve, "0")
	if err != nil {
		return nil, err
	}
	trailingSales, err := s.settings.GetDecimal(ctx, model.SettingTrailingSales30d, "0")
	if err != nil {
		return nil, err
	}
	refundRatio, err := s.settings.GetDecimal(ctx, model.SettingRefundReserveRatio, "0.05")
	if err != nil {
		return nil, err
	}
	capRatio, err := s.settings.GetDecimal(ctx, model.SettingWorkingCapitalCapRatio, "0.5")
	if err != nil {
		return nil, err
	}
	safetyBuffer, err := s.settings.GetDecimal(ctx, model.SettingCashSafetyBuffer, "50000")
	if err != nil {
		return nil, err
	}

	open, err := s.ledger.SumOpenCommitments(ctx)
	if err != nil {
		return nil, err
	}

	creditAvailable := decimal.Max(decimal.Zero, creditLimit.Sub(creditUsed))
	refundReserve := decimal.Max(fixedReserve, trailingSales.Mul(refundRatio).Round(2))

	workingCapital := cash.Add(creditAvailable).Sub(unconfirmed).Sub(refundReserve).Sub(open)
	pureCash := cash.Sub(unconfirmed).Sub(refundReserve).Sub(open)
	capLimit := trailingSales.Mul(capRatio).Round(2)

	capOK := open.Add(newCost).LessThanOrEqual(capLimit)
	// 仅现金覆盖的口径同样要保住流动性底线，
	// 否则会出现"现金勉强够"却击穿底线的放行
	coveredByCash := pureCash.GreaterThanOrEqual(newCost.Add(safetyBuffer))

	verdict := &CashVerdict{
		NewCost:                 newCost,
		Cash:                    cash,
		CreditAvailable:         creditAvailable,
		RefundReserve:           refundReserve,
		OpenCommitments:         open,
		UnconfirmedCost:         unconfirmed,
		WorkingCapitalAvailable: workingCapital,
		PureCashAvailable:       pureCash,
		CapLimit:                capLimit,
		SafetyBuffer:            safetyBuffer,
		CapOK:                   capOK,
		CoveredByCashAlone:      coveredByCash,
	}

	verdict.OK = (capOK || coveredByCash) &&
		workingCapital.GreaterThanOrEqual(newCost.Add(safetyBuffer))

	return verdict, nil
}
