package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/model"
	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/repository"
)

// ==================== 外部服务依赖 ====================

// FXRate 汇率快照
type FXRate struct {
	Rate      decimal.Decimal // JPY / USD
	UpdatedAt time.Time
}

// FXProvider 汇率提供方接口
type FXProvider interface {
	CurrentRate(ctx context.Context) (*FXRate, error)
}

// ==================== 核价计算 ====================

// QuoteInput 核价输入
type QuoteInput struct {
	SourcePrice decimal.Decimal  // 货源价格(日元)，必填
	WeightKg    decimal.Decimal  // 重量，零值时取配置缺省
	SizeTier    string           // 尺寸分级，空时取配置缺省
	FxRate      decimal.Decimal  // 当前汇率(JPY/USD)，必填
	TargetUSD   *decimal.Decimal // 指定售价(美元)，空则采用建议价
}

// Quote 核价明细
// 金额一律定点十进制：中间金额四舍五入到分，最终建议价向上取整到分
type Quote struct {
	FxRate     decimal.Decimal
	BufferedFx decimal.Decimal

	WeightKg decimal.Decimal
	SizeTier string

	DomesticShipping decimal.Decimal
	PackingMaterial  decimal.Decimal
	SourcingFee      decimal.Decimal
	OutboundFee      decimal.Decimal
	IntlShipping     decimal.Decimal
	TotalCost        decimal.Decimal

	MinProfitAmount decimal.Decimal // 规则覆盖后的最低利润额
	MinProfitRate   decimal.Decimal // 规则覆盖后的最低利润率
	RequiredProfit  decimal.Decimal // max(最低利润额, 总成本×最低利润率)

	RecommendedUSD decimal.Decimal // 建议售价(美元)
	SellPriceUSD   decimal.Decimal // 实际采用的售价(美元)
	SellPriceJPY   decimal.Decimal // 售价折算收入(日元)

	FeeAmount     decimal.Decimal // 平台手续费(日元)
	ReserveAmount decimal.Decimal // 退款准备金(日元)
	Profit        decimal.Decimal // 利润(日元)
	ProfitRate    decimal.Decimal // 利润率

	ProfitOK         bool // 利润闸门
	BelowRecommended bool // 指定售价低于建议价的警告
}

// Calculator 核价计算器
// 配置+规则+运费表的纯组合，除读配置外无副作用
type Calculator struct {
	settings *SettingsService
	rules    repository.PricingRuleRepository
}

// NewCalculator 创建核价计算器
func NewCalculator(settings *SettingsService, rules repository.PricingRuleRepository) *Calculator {
	return &Calculator{settings: settings, rules: rules}
}

// Quote 计算完整的成本/利润明细与利润闸门结论
func (c *Calculator) Quote(ctx context.Context, in QuoteInput) (*Quote, error) {
	if in.SourcePrice.LessThanOrEqual(decimal.Zero) {
		return nil, NewValidationError("货源价格必须为正: %s", in.SourcePrice.String())
	}
	if in.FxRate.LessThanOrEqual(decimal.Zero) {
		return nil, NewValidationError("汇率必须为正: %s", in.FxRate.String())
	}

	// 1. 读配置（每次核价独立解析一遍，不留全局可变状态）
	bufferRate, err := c.settings.GetDecimal(ctx, model.SettingFxBufferRate, "0.03")
	if err != nil {
		return nil, err
	}
	domesticShip, err := c.settings.GetDecimal(ctx, model.SettingDomesticShippingCost, "800")
	if err != nil {
		return nil, err
	}
	packing, err := c.settings.GetDecimal(ctx, model.SettingPackingMaterialCost, "300")
	if err != nil {
		return nil, err
	}
	sourcingFee, err := c.settings.GetDecimal(ctx, model.SettingSourcingAgentFee, "200")
	if err != nil {
		return nil, err
	}
	outboundFee, err := c.settings.GetDecimal(ctx, model.SettingOutboundHandlingFee, "500")
	if err != nil {
		return nil, err
	}
	feeRate, err := c.settings.GetDecimal(ctx, model.SettingEbayFeeRate, "0.15")
	if err != nil {
		return nil, err
	}
	reserveRate, err := c.settings.GetDecimal(ctx, model.SettingRefundReserveRate, "0.05")
	if err != nil {
		return nil, err
	}
	minProfitAmount, err := c.settings.GetDecimal(ctx, model.SettingMinProfitAmount, "2000")
	if err != nil {
		return nil, err
	}
	minProfitRate, err := c.settings.GetDecimal(ctx, model.SettingMinProfitRate, "0.20")
	if err != nil {
		return nil, err
	}

	weight := in.WeightKg
	if weight.LessThanOrEqual(decimal.Zero) {
		weight, err = c.settings.GetDecimal(ctx, model.SettingDefaultWeightKg, "1.0")
		if err != nil {
			return nil, err
		}
	}
	sizeTier := in.SizeTier
	if sizeTier == "" {
		sizeTier = c.settings.Get(ctx, model.SettingDefaultSizeTier, model.SizeTierM)
	}
	if !model.ValidSizeTier(sizeTier) {
		return nil, NewValidationError("未知的尺寸分级: %s", sizeTier)
	}

	// 2. 规则引擎覆盖最低利润阈值
	rules, err := c.rules.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}
	floor := ApplyPricingRules(rules, in.SourcePrice, weight, ProfitFloor{
		MinProfitAmount: minProfitAmount,
		MinProfitRate:   minProfitRate,
	})

	// 3. 加缓冲汇率
	bufferedFx := in.FxRate.Mul(decimal.NewFromInt(1).Add(bufferRate)).Round(4)

	// 4-5. 国际运费与总成本
	intlShip := ShippingCost(sizeTier, weight)
	totalCost := in.SourcePrice.
		Add(domesticShip).
		Add(packing).
		Add(sourcingFee).
		Add(outboundFee).
		Add(intlShip).
		Round(2)

	if totalCost.LessThanOrEqual(decimal.Zero) {
		// 成本为零说明录入数据有问题，宁可拒算也不产出除零的利润率
		return nil, NewValidationError("总成本必须为正: %s", totalCost.String())
	}

	// 6. 要求利润（比较用未舍入的乘积，避免先除后比的精度损失）
	requiredByRate := totalCost.Mul(floor.MinProfitRate)
	requiredProfit := decimal.Max(floor.MinProfitAmount, requiredByRate.Round(2))

	// 7. 建议售价 = ceil_2dp( (总成本+要求利润) / (1-手续费率-准备金率) / 缓冲汇率 )
	denom := decimal.NewFromInt(1).Sub(feeRate).Sub(reserveRate)
	if denom.LessThanOrEqual(decimal.Zero) {
		return nil, NewValidationError("手续费率与准备金率之和必须小于 1")
	}
	recommended := totalCost.Add(requiredProfit).Div(denom).Div(bufferedFx).RoundCeil(2)

	// 8. 实际售价
	sellUSD := recommended
	belowRecommended := false
	if in.TargetUSD != nil {
		if in.TargetUSD.LessThanOrEqual(decimal.Zero) {
			return nil, NewValidationError("指定售价必须为正: %s", in.TargetUSD.String())
		}
		sellUSD = *in.TargetUSD
		belowRecommended = sellUSD.LessThan(recommended)
	}

	// 9. 收入与利润
	revenue := sellUSD.Mul(bufferedFx).Round(2)
	feeAmount := revenue.Mul(feeRate).Round(2)
	reserveAmount := revenue.Mul(reserveRate).Round(2)
	profit := revenue.Sub(totalCost).Sub(feeAmount).Sub(reserveAmount)
	profitRate := profit.Div(totalCost).Round(4)

	// 10. 利润闸门：两个下限独立判定，比率项用乘积比较代替除法
	profitOK := profit.GreaterThanOrEqual(floor.MinProfitAmount) &&
		profit.GreaterThanOrEqual(requiredByRate)

	return &Quote{
		FxRate:           in.FxRate,
		BufferedFx:       bufferedFx,
		WeightKg:         weight,
		SizeTier:         sizeTier,
		DomesticShipping: domesticShip,
		PackingMaterial:  packing,
		SourcingFee:      sourcingFee,
		OutboundFee:      outboundFee,
		IntlShipping:     intlShip,
		TotalCost:        totalCost,
		MinProfitAmount:  floor.MinProfitAmount,
		MinProfitRate:    floor.MinProfitRate,
		RequiredProfit:   requiredProfit,
		RecommendedUSD:   recommended,
		SellPriceUSD:     sellUSD,
		SellPriceJPY:     revenue,
		FeeAmount:        feeAmount,
		ReserveAmount:    reserveAmount,
		Profit:           profit,
		ProfitRate:       profitRate,
		ProfitOK:         profitOK,
		BelowRecommended: belowRecommended,
	}, nil
}

// ==================== 核价服务 ====================

// PriceOptions 核价选项
type PriceOptions struct {
	TargetUSD      *decimal.Decimal // 操作者指定售价
	FxRateOverride *decimal.Decimal // 复盘用汇率覆盖，空则取实时汇率
	Actor          string
}

// PriceResult 核价结果：明细 + 双闸门 + 与上次快照的差值
type PriceResult struct {
	Quote       *Quote
	CashVerdict *CashVerdict
	NewState    string
	// 与上次核价快照的利润差（首次核价为空）
	ProfitDelta *decimal.Decimal

	CorrelationID string
}

// PricingService 核价服务
// 核价快照落库、候选商品状态流转、审计追加在同一事务内完成
type PricingService struct {
	uow        *repository.PipelineUnitOfWork
	settings   *SettingsService
	calculator *Calculator
	cashGate   *CashGateService
	fx         FXProvider
}

// NewPricingService 创建核价服务
func NewPricingService(
	uow *repository.PipelineUnitOfWork,
	settings *SettingsService,
	calculator *Calculator,
	cashGate *CashGateService,
	fx FXProvider,
) *PricingService {
	return &PricingService{
		uow:        uow,
		settings:   settings,
		calculator: calculator,
		cashGate:   cashGate,
		fx:         fx,
	}
}

// PriceCandidate 对候选商品执行核价并推进状态
// 闸门未通过是正常业务结果（REJECTED），不是错误；
// 错误只用于输入或状态使计算无法进行的场合
func (s *PricingService) PriceCandidate(ctx context.Context, candidateID int64, opts PriceOptions) (*PriceResult, error) {
	if err := s.settings.EnsureNotPaused(ctx); err != nil {
		return nil, err
	}

	candidate, err := s.uow.Candidates.GetByID(ctx, candidateID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewValidationError("候选商品 %d 不存在", candidateID)
		}
		return nil, err
	}

	// 汇率：实时获取，复盘时允许覆盖
	var fxRate decimal.Decimal
	if opts.FxRateOverride != nil {
		fxRate = *opts.FxRateOverride
	} else {
		rate, err := s.fx.CurrentRate(ctx)
		if err != nil {
			return nil, &ExternalError{Op: "fx.CurrentRate", Retryable: true, Err: err}
		}
		fxRate = rate.Rate
	}

	quote, err := s.calculator.Quote(ctx, QuoteInput{
		SourcePrice: candidate.SourcePrice,
		WeightKg:    candidate.WeightKg,
		SizeTier:    candidate.SizeTier,
		FxRate:      fxRate,
		TargetUSD:   opts.TargetUSD,
	})
	if err != nil {
		return nil, err
	}

	verdict, err := s.cashGate.Evaluate(ctx, quote.TotalCost)
	if err != nil {
		return nil, err
	}

	// 与上次快照的差值（首次核价没有）
	var profitDelta *decimal.Decimal
	if prev, err := s.uow.Pricing.GetByCandidateID(ctx, candidateID); err == nil {
		d := quote.Profit.Sub(prev.Profit)
		profitDelta = &d
	}

	correlationID := uuid.NewString()
	newState, reasonCode := gateOutcome(quote.ProfitOK, verdict.OK)

	err = s.uow.Transaction(ctx, func(uow *repository.PipelineUnitOfWork) error {
		now := time.Now()
		snapshot := &model.PricingResult{
			CandidateID:      candidateID,
			CreatedAt:        now,
			FxRate:           quote.FxRate,
			BufferedFx:       quote.BufferedFx,
			SellPriceUSD:     quote.SellPriceUSD,
			SellPriceJPY:     quote.SellPriceJPY,
			TotalCost:        quote.TotalCost,
			FeeAmount:        quote.FeeAmount,
			ReserveAmount:    quote.ReserveAmount,
			Profit:           quote.Profit,
			ProfitRate:       quote.ProfitRate,
			ProfitOK:         quote.ProfitOK,
			CashOK:           verdict.OK,
			BelowRecommended: quote.BelowRecommended,
		}
		if err := uow.Pricing.Upsert(ctx, snapshot); err != nil {
			return err
		}

		detail := fmt.Sprintf("profit=%s profitOk=%t cashOk=%t", quote.Profit.String(), quote.ProfitOK, verdict.OK)
		if err := TransitionCandidate(ctx, uow, candidate, TransitionInput{
			To:            newState,
			ReasonCode:    reasonCode,
			ReasonDetail:  detail,
			Actor:         opts.Actor,
			CorrelationID: correlationID,
		}); err != nil {
			return err
		}

		// 核价本身算一次内容变更，updated_at 与快照时间对齐
		if err := uow.Candidates.UpdateFields(ctx, candidateID, map[string]interface{}{
			"last_priced_at": now,
			"updated_at":     now,
		}); err != nil {
			return err
		}
		candidate.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &PriceResult{
		Quote:         quote,
		CashVerdict:   verdict,
		NewState:      newState,
		ProfitDelta:   profitDelta,
		CorrelationID: correlationID,
	}, nil
}

// gateOutcome 双闸门结论映射到目标状态与原因代码
func gateOutcome(profitOK, cashOK bool) (state, reasonCode string) {
	switch {
	case profitOK && cashOK:
		return model.CandidateStateDraftReady, model.ReasonGatesPassed
	case !profitOK && !cashOK:
		return model.CandidateStateRejected, model.RejectReasonGateBoth
	case !profitOK:
		return model.CandidateStateRejected, model.RejectReasonGateProfit
	default:
		return model.CandidateStateRejected, model.RejectReasonGateCash
	}
}
