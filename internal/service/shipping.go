package service

import (
	"github.com/shopspring/decimal"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/model"
)

// ==================== 国际运费表 ====================

// shippingRate 尺寸分级对应的运费参数
type shippingRate struct {
	base  decimal.Decimal // 基础运费(日元)
	perKg decimal.Decimal // 每公斤加收(日元)
}

// shippingTable 尺寸分级 -> 运费参数
// 费用 = base + perKg × weight
var shippingTable = map[string]shippingRate{
	model.SizeTierS:  {base: decimal.NewFromInt(700), perKg: decimal.NewFromInt(600)},
	model.SizeTierM:  {base: decimal.NewFromInt(1200), perKg: decimal.NewFromInt(900)},
	model.SizeTierL:  {base: decimal.NewFromInt(2200), perKg: decimal.NewFromInt(1400)},
	model.SizeTierXL: {base: decimal.NewFromInt(3500), perKg: decimal.NewFromInt(2000)},
}

// ShippingCost 计算国际运费（纯函数）
// 未知分级按 XL 取上限，宁可高估不低估
func ShippingCost(sizeTier string, weightKg decimal.Decimal) decimal.Decimal {
	rate, ok := shippingTable[sizeTier]
	if !ok {
		rate = shippingTable[model.SizeTierXL]
	}
	if weightKg.IsNegative() {
		weightKg = decimal.Zero
	}
	return rate.base.Add(rate.perKg.Mul(weightKg)).Round(2)
}
