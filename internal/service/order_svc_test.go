package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/model"
)

// ==================== 订单服务测试 ====================

func TestOrderService_CreateFromSale_Idempotent(t *testing.T) {
	uow, settings, db := newTestEnv(t)
	svc := NewOrderService(uow, settings)
	ctx := context.Background()

	// 售出的 SKU 对应已发布的草稿
	db.Create(&model.Listing{
		CandidateID: 7,
		SKU:         "CBS-000007",
		OfferID:     "OFFER-7",
		State:       model.ListingStateCreated,
	})

	in := SaleNotification{
		EbayOrderKey: "EBAY-SALE-1",
		SKU:          "CBS-000007",
		AmountUSD:    mustDecimal(t, "183.80"),
		Raw:          map[string]interface{}{"buyer": "u***1"},
		Actor:        "webhook",
	}

	first, err := svc.CreateFromSale(ctx, in)
	if err != nil {
		t.Fatalf("CreateFromSale() error = %v", err)
	}
	if first.CandidateID != 7 {
		t.Errorf("CandidateID = %d, want 7", first.CandidateID)
	}
	if first.State != model.OrderStatePending {
		t.Errorf("订单状态 = %s, want %s", first.State, model.OrderStatePending)
	}

	// 同一订单号重放：原样返回，不重复建单、不重复记账
	second, err := svc.CreateFromSale(ctx, in)
	if err != nil {
		t.Fatalf("重放 CreateFromSale() error = %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("重放创建了新订单: %d vs %d", first.ID, second.ID)
	}

	var orderCount, ledgerCount int64
	db.Model(&model.Order{}).Count(&orderCount)
	db.Model(&model.LedgerEntry{}).Count(&ledgerCount)
	if orderCount != 1 || ledgerCount != 1 {
		t.Errorf("orders=%d ledger=%d, want 1/1", orderCount, ledgerCount)
	}
}

func TestOrderService_RegisterFulfillment(t *testing.T) {
	uow, settings, db := newTestEnv(t)
	svc := NewOrderService(uow, settings)
	ctx := context.Background()

	order := &model.Order{
		EbayOrderKey: "EBAY-SALE-2",
		State:        model.OrderStatePending,
	}
	db.Create(order)

	err := svc.RegisterFulfillment(ctx, order.ID, "JPPOST", "Japan Post", "EM123456789JP", "tester")
	if err != nil {
		t.Fatalf("RegisterFulfillment() error = %v", err)
	}

	reloaded, _ := uow.Orders.GetByID(ctx, order.ID)
	if reloaded.State != model.OrderStateShippedIntl {
		t.Errorf("订单状态 = %s, want %s", reloaded.State, model.OrderStateShippedIntl)
	}
	// 发货即进入回传队列
	if reloaded.NextRetryAt == nil {
		t.Error("NextRetryAt 未设置")
	}

	f, err := uow.Fulfillments.GetByOrderID(ctx, order.ID)
	if err != nil {
		t.Fatalf("查询发货信息失败: %v", err)
	}
	if f.TrackingNumber != "EM123456789JP" {
		t.Errorf("TrackingNumber = %s", f.TrackingNumber)
	}

	// 重复发货被拒
	err = svc.RegisterFulfillment(ctx, order.ID, "JPPOST", "Japan Post", "EM000JP", "tester")
	if !IsConflict(err) {
		t.Errorf("重复发货 err = %v, want 冲突错误", err)
	}
}

func TestOrderService_RecordPurchaseAndActualize(t *testing.T) {
	uow, settings, _ := newTestEnv(t)
	svc := NewOrderService(uow, settings)
	gate := NewCashGateService(settings, uow.Ledger)
	ctx := context.Background()

	entry, err := svc.RecordPurchase(ctx, 1, decimal.NewFromInt(18300), "tester")
	if err != nil {
		t.Fatalf("RecordPurchase() error = %v", err)
	}

	// open 承诺立即计入资金闸门
	setSetting(t, settings, model.SettingCashBalance, "100000")
	verdict, err := gate.Evaluate(ctx, decimal.Zero)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if got := verdict.OpenCommitments.StringFixed(2); got != "18300.00" {
		t.Errorf("OpenCommitments = %s, want 18300.00", got)
	}

	// 实际入账后不再占用承诺额度
	if err := svc.ActualizeLedger(ctx, entry.ID, decimal.NewFromInt(18250), "tester"); err != nil {
		t.Fatalf("ActualizeLedger() error = %v", err)
	}
	verdict, err = gate.Evaluate(ctx, decimal.Zero)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !verdict.OpenCommitments.IsZero() {
		t.Errorf("实际化后 OpenCommitments = %s, want 0", verdict.OpenCommitments)
	}

	// 重复实际化被拒
	if err := svc.ActualizeLedger(ctx, entry.ID, decimal.Zero, "tester"); !IsConflict(err) {
		t.Errorf("重复实际化 err = %v, want 冲突错误", err)
	}

	reloaded, _ := uow.Ledger.GetByID(ctx, entry.ID)
	if got := reloaded.AmountJPY.StringFixed(2); got != "18250.00" {
		t.Errorf("实际化金额 = %s, want 18250.00", got)
	}
}

func TestOrderService_CreateFromSale_Validation(t *testing.T) {
	uow, settings, _ := newTestEnv(t)
	svc := NewOrderService(uow, settings)
	ctx := context.Background()

	if _, err := svc.CreateFromSale(ctx, SaleNotification{
		SKU:       "CBS-000001",
		AmountUSD: decimal.NewFromInt(100),
	}); !IsValidation(err) {
		t.Errorf("缺订单号 err = %v, want 校验错误", err)
	}

	if _, err := svc.CreateFromSale(ctx, SaleNotification{
		EbayOrderKey: "EBAY-X",
		AmountUSD:    decimal.Zero,
	}); !IsValidation(err) {
		t.Errorf("金额为零 err = %v, want 校验错误", err)
	}
}
