package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/model"
	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/repository"
)

// ==================== Mock 实现 ====================

type mockOrderClient struct {
	uploadFn func(ctx context.Context, orderKey, carrierCode, trackingNumber string) error
	checkFn  func(ctx context.Context, orderKey string) (bool, error)
	getFn    func(ctx context.Context, orderKey string) (*MarketOrder, error)

	uploadCalls int
	checkCalls  int
}

func (m *mockOrderClient) UploadTracking(ctx context.Context, orderKey, carrierCode, trackingNumber string) error {
	m.uploadCalls++
	if m.uploadFn != nil {
		return m.uploadFn(ctx, orderKey, carrierCode, trackingNumber)
	}
	return nil
}

func (m *mockOrderClient) CheckTrackingUploaded(ctx context.Context, orderKey string) (bool, error) {
	m.checkCalls++
	if m.checkFn != nil {
		return m.checkFn(ctx, orderKey)
	}
	return false, nil
}

func (m *mockOrderClient) GetOrder(ctx context.Context, orderKey string) (*MarketOrder, error) {
	if m.getFn != nil {
		return m.getFn(ctx, orderKey)
	}
	return &MarketOrder{OrderKey: orderKey, Status: "FULFILLED"}, nil
}

// ==================== 测试辅助 ====================

func newTrackingEnv(t *testing.T) (*TrackingService, *mockOrderClient, *repository.PipelineUnitOfWork, *SettingsService, *gorm.DB) {
	uow, settings, db := newTestEnv(t)
	client := &mockOrderClient{}
	svc := NewTrackingService(uow, settings, client)
	return svc, client, uow, settings, db
}

// createDueOrder 造一个已发货、待回传且已到期的订单
func createDueOrder(t *testing.T, db *gorm.DB, key string) *model.Order {
	due := time.Now().Add(-time.Minute)
	o := &model.Order{
		EbayOrderKey:  key,
		SKU:           "CBS-000001",
		SaleAmountUSD: decimal.NewFromInt(180),
		State:         model.OrderStateShippedIntl,
		NextRetryAt:   &due,
	}
	if err := db.Create(o).Error; err != nil {
		t.Fatalf("创建测试订单失败: %v", err)
	}
	if err := db.Create(&model.Fulfillment{
		OrderID:        o.ID,
		CarrierCode:    "JPPOST",
		CarrierName:    "Japan Post",
		TrackingNumber: "EM123456789JP",
	}).Error; err != nil {
		t.Fatalf("创建发货信息失败: %v", err)
	}
	return o
}

// ==================== 对账测试 ====================

func TestTrackingService_RunOnce_Uploaded(t *testing.T) {
	svc, client, uow, _, db := newTrackingEnv(t)
	ctx := context.Background()

	order := createDueOrder(t, db, "EBAY-001")

	stats, err := svc.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if stats.Selected != 1 || stats.Uploaded != 1 {
		t.Errorf("stats = %+v, want Selected=1 Uploaded=1", stats)
	}
	if client.uploadCalls != 1 {
		t.Errorf("UploadTracking 调用次数 = %d, want 1", client.uploadCalls)
	}

	reloaded, _ := uow.Orders.GetByID(ctx, order.ID)
	if reloaded.State != model.OrderStateTrackingUploaded {
		t.Errorf("订单状态 = %s, want %s", reloaded.State, model.OrderStateTrackingUploaded)
	}
	if reloaded.NextRetryAt != nil {
		t.Error("成功后 NextRetryAt 未清空")
	}

	transitions, _ := uow.Audit.ListByEntity(ctx, model.EntityTypeOrder, order.ID)
	if len(transitions) != 1 || transitions[0].ReasonCode != "TRACKING_UPLOADED" {
		t.Errorf("审计 = %+v, want 一条 TRACKING_UPLOADED", transitions)
	}
}

func TestTrackingService_RunOnce_RecoveredAfterAmbiguousFailure(t *testing.T) {
	svc, client, uow, _, db := newTrackingEnv(t)
	ctx := context.Background()

	order := createDueOrder(t, db, "EBAY-002")

	// 上传超时（歧义失败），但幂等核对发现远端其实已成功
	client.uploadFn = func(ctx context.Context, orderKey, carrierCode, trackingNumber string) error {
		return &ExternalError{Op: "UploadTracking", Retryable: true, Err: errors.New("timeout")}
	}
	client.checkFn = func(ctx context.Context, orderKey string) (bool, error) {
		return true, nil
	}

	stats, err := svc.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if stats.Recovered != 1 || stats.Uploaded != 0 {
		t.Errorf("stats = %+v, want Recovered=1", stats)
	}

	reloaded, _ := uow.Orders.GetByID(ctx, order.ID)
	if reloaded.State != model.OrderStateTrackingUploaded {
		t.Errorf("订单状态 = %s, want %s", reloaded.State, model.OrderStateTrackingUploaded)
	}

	// 恢复型成功在审计上与普通成功区分
	transitions, _ := uow.Audit.ListByEntity(ctx, model.EntityTypeOrder, order.ID)
	if len(transitions) != 1 || transitions[0].ReasonCode != "TRACKING_RECOVERED" {
		t.Errorf("审计 = %+v, want 一条 TRACKING_RECOVERED", transitions)
	}
}

func TestTrackingService_RunOnce_RetryScheduled(t *testing.T) {
	svc, client, uow, _, db := newTrackingEnv(t)
	ctx := context.Background()

	order := createDueOrder(t, db, "EBAY-003")

	client.uploadFn = func(ctx context.Context, orderKey, carrierCode, trackingNumber string) error {
		return &ExternalError{Op: "UploadTracking", Retryable: true, Err: errors.New("rate limited")}
	}

	stats, err := svc.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if stats.Failed != 1 {
		t.Errorf("stats = %+v, want Failed=1", stats)
	}

	reloaded, _ := uow.Orders.GetByID(ctx, order.ID)
	if reloaded.State != model.OrderStateShippedIntl {
		t.Errorf("订单状态 = %s, want 保持 %s", reloaded.State, model.OrderStateShippedIntl)
	}
	if reloaded.AttemptCount != 1 {
		t.Errorf("AttemptCount = %d, want 1", reloaded.AttemptCount)
	}
	if reloaded.NextRetryAt == nil || !reloaded.NextRetryAt.After(time.Now()) {
		t.Error("NextRetryAt 未排到将来")
	}
	if reloaded.TrackingStartedAt == nil {
		t.Error("TrackingStartedAt 未记录")
	}
	if reloaded.LastError == "" {
		t.Error("LastError 未记录")
	}
}

func TestTrackingService_RunOnce_TerminalAfterMaxAttempts(t *testing.T) {
	svc, client, uow, _, db := newTrackingEnv(t)
	ctx := context.Background()

	order := createDueOrder(t, db, "EBAY-004")
	started := time.Now().Add(-10 * time.Hour)
	db.Model(order).Updates(map[string]interface{}{
		"attempt_count":       5,
		"tracking_started_at": started,
		"last_error":          "rate limited",
	})

	stats, err := svc.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if stats.Terminal != 1 {
		t.Errorf("stats = %+v, want Terminal=1", stats)
	}
	// 耗尽判定先行，不再发起外部调用
	if client.uploadCalls != 0 {
		t.Errorf("转终态仍触发了上传: %d", client.uploadCalls)
	}

	reloaded, _ := uow.Orders.GetByID(ctx, order.ID)
	if reloaded.State != model.OrderStateTrackingFailed {
		t.Errorf("订单状态 = %s, want %s", reloaded.State, model.OrderStateTrackingFailed)
	}
	if reloaded.TerminalAt == nil {
		t.Error("TerminalAt 未记录")
	}

	// 终态订单永远不会再被选中
	stats, err = svc.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if stats.Selected != 0 {
		t.Errorf("终态订单再次被选中: %+v", stats)
	}
}

func TestTrackingService_RunOnce_NonRetryableGoesTerminal(t *testing.T) {
	svc, client, uow, _, db := newTrackingEnv(t)
	ctx := context.Background()

	order := createDueOrder(t, db, "EBAY-005")

	client.uploadFn = func(ctx context.Context, orderKey, carrierCode, trackingNumber string) error {
		return errors.New("invalid carrier code")
	}

	stats, err := svc.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if stats.Terminal != 1 {
		t.Errorf("stats = %+v, want Terminal=1", stats)
	}
	// 不可重试错误不走幂等核对
	if client.checkCalls != 0 {
		t.Errorf("不可重试错误触发了核对: %d", client.checkCalls)
	}

	reloaded, _ := uow.Orders.GetByID(ctx, order.ID)
	if reloaded.State != model.OrderStateTrackingFailed {
		t.Errorf("订单状态 = %s, want %s", reloaded.State, model.OrderStateTrackingFailed)
	}
	// 直接终态的错误文本也要落到订单行上
	if reloaded.LastError != "invalid carrier code" {
		t.Errorf("LastError = %q, want %q", reloaded.LastError, "invalid carrier code")
	}
	if reloaded.TerminalAt == nil {
		t.Error("TerminalAt 未记录")
	}
}

func TestTrackingService_RunOnce_Paused(t *testing.T) {
	svc, client, _, settings, db := newTrackingEnv(t)
	ctx := context.Background()

	createDueOrder(t, db, "EBAY-006")
	if err := settings.Pause(ctx); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}

	if _, err := svc.RunOnce(ctx); err != ErrSystemPaused {
		t.Errorf("err = %v, want ErrSystemPaused", err)
	}
	if client.uploadCalls != 0 {
		t.Error("暂停期间仍触发了外部调用")
	}
}

func TestTrackingService_RunOnce_MissingFulfillment(t *testing.T) {
	svc, _, uow, _, db := newTrackingEnv(t)
	ctx := context.Background()

	due := time.Now().Add(-time.Minute)
	order := &model.Order{
		EbayOrderKey: "EBAY-007",
		State:        model.OrderStateShippedIntl,
		NextRetryAt:  &due,
	}
	db.Create(order)

	stats, err := svc.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if stats.Failed != 1 {
		t.Errorf("stats = %+v, want Failed=1", stats)
	}

	reloaded, _ := uow.Orders.GetByID(ctx, order.ID)
	if reloaded.AttemptCount != 1 {
		t.Errorf("AttemptCount = %d, want 1", reloaded.AttemptCount)
	}
}
