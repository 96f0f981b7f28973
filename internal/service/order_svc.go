package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/model"
	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/repository"
)

// ==================== 订单服务 ====================

// SaleNotification 销售通知（来自市场侧的成交事件）
type SaleNotification struct {
	EbayOrderKey string
	SKU          string
	AmountUSD    decimal.Decimal
	Raw          map[string]interface{} // 原始通知数据，原样留档
	Actor        string
}

// OrderService 订单服务
// 台账写入 + 订单状态变更 + 审计追加同一事务提交
type OrderService struct {
	uow      *repository.PipelineUnitOfWork
	settings *SettingsService
}

// NewOrderService 创建订单服务
func NewOrderService(uow *repository.PipelineUnitOfWork, settings *SettingsService) *OrderService {
	return &OrderService{uow: uow, settings: settings}
}

// CreateFromSale 由销售通知创建订单
// 按 eBay 订单号幂等：已存在时原样返回，不重复建单、不重复记账
func (s *OrderService) CreateFromSale(ctx context.Context, in SaleNotification) (*model.Order, error) {
	if err := s.settings.EnsureNotPaused(ctx); err != nil {
		return nil, err
	}
	if in.EbayOrderKey == "" {
		return nil, NewValidationError("eBay 订单号不能为空")
	}
	if in.AmountUSD.LessThanOrEqual(decimal.Zero) {
		return nil, NewValidationError("成交金额必须为正: %s", in.AmountUSD.String())
	}

	if existing, err := s.uow.Orders.GetByOrderKey(ctx, in.EbayOrderKey); err == nil {
		return existing, nil
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	// 通过 SKU 回联候选商品与草稿
	var candidateID, listingID int64
	if in.SKU != "" {
		if listing, err := s.uow.Listings.GetBySKU(ctx, in.SKU); err == nil {
			candidateID = listing.CandidateID
			listingID = listing.ID
		} else if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}

	var raw datatypes.JSON
	if in.Raw != nil {
		if b, err := json.Marshal(in.Raw); err == nil {
			raw = datatypes.JSON(b)
		}
	}

	order := &model.Order{
		EbayOrderKey:  in.EbayOrderKey,
		CandidateID:   candidateID,
		ListingID:     listingID,
		SKU:           in.SKU,
		SaleAmountUSD: in.AmountUSD,
		RawSaleData:   raw,
		State:         model.OrderStatePending,
	}

	correlationID := uuid.NewString()
	err := s.uow.Transaction(ctx, func(uow *repository.PipelineUnitOfWork) error {
		if err := uow.Orders.Create(ctx, order); err != nil {
			return err
		}
		// 成交先记 open 台账，回款到账后再实际化
		entry := &model.LedgerEntry{
			EntryType:   model.LedgerTypeSale,
			AmountJPY:   decimal.Zero, // 到账金额以实际结汇为准，入账时回填
			Status:      model.LedgerStatusOpen,
			CandidateID: candidateID,
			OrderID:     order.ID,
			Remark:      fmt.Sprintf("eBay 成交 %s, %s USD", in.EbayOrderKey, in.AmountUSD.String()),
			OccurredAt:  time.Now(),
		}
		if err := uow.Ledger.Create(ctx, entry); err != nil {
			return err
		}
		return AuditCreation(ctx, uow, model.EntityTypeOrder, order.ID,
			model.OrderStatePending, "SALE", in.Actor, correlationID)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// RegisterFulfillment 登记国际发货并进入物流回传队列
func (s *OrderService) RegisterFulfillment(ctx context.Context, orderID int64, carrierCode, carrierName, trackingNumber, actor string) error {
	if err := s.settings.EnsureNotPaused(ctx); err != nil {
		return err
	}
	if carrierCode == "" || trackingNumber == "" {
		return NewValidationError("承运商代码与物流单号不能为空")
	}

	order, err := s.uow.Orders.GetByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return NewValidationError("订单 %d 不存在", orderID)
		}
		return err
	}
	if order.State != model.OrderStatePending {
		return &ConflictError{
			Code: "NOT_SHIPPABLE",
			Msg:  fmt.Sprintf("订单 %d 当前状态 %s 不允许发货", orderID, order.State),
		}
	}

	now := time.Now()
	return s.uow.Transaction(ctx, func(uow *repository.PipelineUnitOfWork) error {
		if err := uow.Fulfillments.Create(ctx, &model.Fulfillment{
			OrderID:        orderID,
			CarrierCode:    carrierCode,
			CarrierName:    carrierName,
			TrackingNumber: trackingNumber,
		}); err != nil {
			return err
		}
		return TransitionOrder(ctx, uow, order, TransitionInput{
			To:            model.OrderStateShippedIntl,
			ReasonCode:    "SHIPPED",
			ReasonDetail:  fmt.Sprintf("carrier=%s tracking=%s", carrierCode, trackingNumber),
			Actor:         actor,
			CorrelationID: uuid.NewString(),
		}, map[string]interface{}{
			"next_retry_at": now,
		})
	})
}

// RecordPurchase 登记采购承诺（open 台账，资金闸门汇总的就是它）
func (s *OrderService) RecordPurchase(ctx context.Context, candidateID int64, amountJPY decimal.Decimal, actor string) (*model.LedgerEntry, error) {
	if err := s.settings.EnsureNotPaused(ctx); err != nil {
		return nil, err
	}
	if amountJPY.LessThanOrEqual(decimal.Zero) {
		return nil, NewValidationError("采购金额必须为正: %s", amountJPY.String())
	}

	entry := &model.LedgerEntry{
		EntryType:   model.LedgerTypePurchase,
		AmountJPY:   amountJPY,
		Status:      model.LedgerStatusOpen,
		CandidateID: candidateID,
		OccurredAt:  time.Now(),
	}
	err := s.uow.Transaction(ctx, func(uow *repository.PipelineUnitOfWork) error {
		if err := uow.Ledger.Create(ctx, entry); err != nil {
			return err
		}
		return AuditCreation(ctx, uow, model.EntityTypeLedger, entry.ID,
			model.LedgerStatusOpen, "PURCHASE", actor, uuid.NewString())
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ActualizeLedger 台账条目实际入账（从 open 承诺中移除）
func (s *OrderService) ActualizeLedger(ctx context.Context, entryID int64, amountJPY decimal.Decimal, actor string) error {
	if err := s.settings.EnsureNotPaused(ctx); err != nil {
		return err
	}

	entry, err := s.uow.Ledger.GetByID(ctx, entryID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return NewValidationError("台账条目 %d 不存在", entryID)
		}
		return err
	}
	if entry.Status != model.LedgerStatusOpen {
		return &ConflictError{
			Code: "LEDGER_NOT_OPEN",
			Msg:  fmt.Sprintf("台账条目 %d 状态 %s 不允许实际化", entryID, entry.Status),
		}
	}

	now := time.Now()
	return s.uow.Transaction(ctx, func(uow *repository.PipelineUnitOfWork) error {
		fields := map[string]interface{}{
			"status":        model.LedgerStatusActualized,
			"actualized_at": now,
		}
		if amountJPY.GreaterThan(decimal.Zero) {
			fields["amount_jpy"] = amountJPY
		}
		if err := uow.Ledger.UpdateFields(ctx, entryID, fields); err != nil {
			return err
		}
		return uow.Audit.Append(ctx, &model.StateTransition{
			EntityType:    model.EntityTypeLedger,
			EntityID:      entryID,
			FromState:     model.LedgerStatusOpen,
			ToState:       model.LedgerStatusActualized,
			ReasonCode:    "ACTUALIZED",
			Actor:         actor,
			CorrelationID: uuid.NewString(),
		})
	})
}
