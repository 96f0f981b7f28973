package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/model"
	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/repository"
)

// ==================== 外部服务依赖 ====================

// InventoryItem 库存条目载荷
type InventoryItem struct {
	SKU      string
	Title    string
	Quantity int
}

// OfferRequest 报价载荷
type OfferRequest struct {
	SKU      string
	PriceUSD decimal.Decimal
	Quantity int
}

// ItemClient 市场商品侧客户端接口
// PutInventoryItem 必须按 SKU 幂等；错误需区分报价层与其他层
type ItemClient interface {
	PutInventoryItem(ctx context.Context, sku string, item InventoryItem) error
	CreateOffer(ctx context.Context, sku string, offer OfferRequest) (offerID string, err error)
	CheckOfferExists(ctx context.Context, offerID string) (bool, error)
}

// offerLayerError 报价层错误标记（由客户端实现的错误类型提供）
type offerLayerError interface {
	OfferLayer() bool
}

func isOfferLayerError(err error) bool {
	var ole offerLayerError
	if errors.As(err, &ole) {
		return ole.OfferLayer()
	}
	return false
}

// ==================== 发布服务 ====================

// PublisherService 上架发布服务
// 以确定性 SKU 作为幂等键向 eBay 创建草稿 listing；
// 外部调用不在本地事务内，部分失败靠幂等键 + 补偿（报价存在性检查）收敛
type PublisherService struct {
	uow      *repository.PipelineUnitOfWork
	settings *SettingsService
	client   ItemClient
}

// NewPublisherService 创建发布服务
func NewPublisherService(uow *repository.PipelineUnitOfWork, settings *SettingsService, client ItemClient) *PublisherService {
	return &PublisherService{uow: uow, settings: settings, client: client}
}

// Publish 发布候选商品到 eBay（幂等，可安全重试）
func (s *PublisherService) Publish(ctx context.Context, candidateID int64, actor string) (*model.Listing, error) {
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

	switch candidate.State {
	case model.CandidateStateDraftReady,
		model.CandidateStateDraftFailed,
		model.CandidateStateDraftCreated:
		// 允许发布/重试
	default:
		return nil, &ConflictError{
			Code: "NOT_PUBLISHABLE",
			Msg:  fmt.Sprintf("候选商品 %d 当前状态 %s 不允许发布", candidateID, candidate.State),
		}
	}

	listing, err := s.uow.Listings.GetByCandidateID(ctx, candidateID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}

	// 终态短路：候选与草稿均已成功，直接返回现有草稿，零外部调用
	if candidate.IsTerminalSuccess() && listing != nil && listing.State == model.ListingStateCreated {
		return listing, nil
	}

	pricing, err := s.uow.Pricing.GetByCandidateID(ctx, candidateID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &ConflictError{Code: "PRICING_MISSING", Msg: fmt.Sprintf("候选商品 %d 尚未核价", candidateID)}
		}
		return nil, err
	}
	if !pricing.GatesPassed() {
		return nil, &ConflictError{Code: "GATES_NOT_PASSED", Msg: fmt.Sprintf("候选商品 %d 最近一次核价未通过闸门", candidateID)}
	}

	// 新鲜度检查：核价快照不得落后于实体最后变更超过容差，
	// 防止把已被后续修改顶掉、未重新过闸门的价格发出去
	toleranceSec := s.settings.GetInt(ctx, model.SettingFreshnessToleranceSec, 5)
	if pricing.CreatedAt.Add(time.Duration(toleranceSec) * time.Second).Before(candidate.UpdatedAt) {
		return nil, ErrStalePricing
	}

	correlationID := uuid.NewString()

	// 确保草稿建档（SKU 幂等键在此固定下来）
	if listing == nil {
		prefix := s.settings.Get(ctx, model.SettingSkuPrefix, "CBS")
		listing = &model.Listing{
			CandidateID: candidateID,
			SKU:         model.BuildSKU(prefix, candidateID),
			PriceUSD:    pricing.SellPriceUSD,
			State:       model.ListingStatePending,
		}
		err = s.uow.Transaction(ctx, func(uow *repository.PipelineUnitOfWork) error {
			if err := uow.Listings.Create(ctx, listing); err != nil {
				return err
			}
			return AuditCreation(ctx, uow, model.EntityTypeListing, listing.ID,
				model.ListingStatePending, "LISTING_CREATED", actor, correlationID)
		})
		if err != nil {
			return nil, err
		}
	}

	// ---- 外部调用区：不受本地事务保护 ----

	title := candidate.Memo
	if title == "" {
		title = listing.SKU
	}

	if err := s.client.PutInventoryItem(ctx, listing.SKU, InventoryItem{
		SKU:      listing.SKU,
		Title:    title,
		Quantity: 1,
	}); err != nil {
		return listing, s.recordFailure(ctx, candidate, listing, err, actor, correlationID)
	}
	if !listing.InventoryCreated {
		listing.InventoryCreated = true
		if err := s.uow.Listings.UpdateFields(ctx, listing.ID, map[string]interface{}{"inventory_created": true}); err != nil {
			return listing, err
		}
	}

	if listing.OfferID == "" {
		offerID, err := s.client.CreateOffer(ctx, listing.SKU, OfferRequest{
			SKU:      listing.SKU,
			PriceUSD: pricing.SellPriceUSD,
			Quantity: 1,
		})
		if err != nil {
			return listing, s.recordFailure(ctx, candidate, listing, err, actor, correlationID)
		}
		listing.OfferID = offerID
		if err := s.uow.Listings.UpdateFields(ctx, listing.ID, map[string]interface{}{"offer_id": offerID}); err != nil {
			return listing, err
		}
	}

	// ---- 成功落库：草稿与候选状态 + 审计，一个事务 ----
	err = s.uow.Transaction(ctx, func(uow *repository.PipelineUnitOfWork) error {
		fromState := listing.State
		listing.MarkCreated(listing.OfferID)
		if err := uow.Listings.UpdateFields(ctx, listing.ID, map[string]interface{}{
			"state":      model.ListingStateCreated,
			"last_error": "",
			"price_usd":  pricing.SellPriceUSD,
		}); err != nil {
			return err
		}
		if err := uow.Audit.Append(ctx, &model.StateTransition{
			EntityType:    model.EntityTypeListing,
			EntityID:      listing.ID,
			FromState:     fromState,
			ToState:       model.ListingStateCreated,
			ReasonCode:    "PUBLISH_OK",
			Actor:         actor,
			CorrelationID: correlationID,
		}); err != nil {
			return err
		}
		return TransitionCandidate(ctx, uow, candidate, TransitionInput{
			To:            model.CandidateStateDraftCreated,
			ReasonCode:    "PUBLISH_OK",
			ReasonDetail:  fmt.Sprintf("sku=%s offerId=%s", listing.SKU, listing.OfferID),
			Actor:         actor,
			CorrelationID: correlationID,
		})
	})
	if err != nil {
		return listing, err
	}

	return listing, nil
}

// recordFailure 外部失败转化为本地状态 + 审计，并做悬挂报价补偿
// 返回原始外部错误，调用方据此决定重试策略
func (s *PublisherService) recordFailure(ctx context.Context, candidate *model.Candidate, listing *model.Listing, extErr error, actor, correlationID string) error {
	// 补偿：已记录 offer id 却收到报价层错误时，核对远端报价是否还在；
	// 不在则清掉本地 id，下次重试重新创建，避免永久悬挂引用
	if isOfferLayerError(extErr) && listing.OfferID != "" {
		exists, checkErr := s.client.CheckOfferExists(ctx, listing.OfferID)
		if checkErr == nil && !exists {
			listing.OfferID = ""
			_ = s.uow.Listings.UpdateFields(ctx, listing.ID, map[string]interface{}{"offer_id": ""})
		}
	}

	errMsg := extErr.Error()
	txErr := s.uow.Transaction(ctx, func(uow *repository.PipelineUnitOfWork) error {
		fromState := listing.State
		listing.MarkFailed(errMsg)
		if err := uow.Listings.UpdateFields(ctx, listing.ID, map[string]interface{}{
			"state":      model.ListingStateFailed,
			"last_error": errMsg,
		}); err != nil {
			return err
		}
		if err := uow.Audit.Append(ctx, &model.StateTransition{
			EntityType:    model.EntityTypeListing,
			EntityID:      listing.ID,
			FromState:     fromState,
			ToState:       model.ListingStateFailed,
			ReasonCode:    "PUBLISH_FAILED",
			ReasonDetail:  errMsg,
			Actor:         actor,
			CorrelationID: correlationID,
		}); err != nil {
			return err
		}
		return TransitionCandidate(ctx, uow, candidate, TransitionInput{
			To:            model.CandidateStateDraftFailed,
			ReasonCode:    "PUBLISH_FAILED",
			ReasonDetail:  errMsg,
			Actor:         actor,
			CorrelationID: correlationID,
		})
	})
	if txErr != nil {
		return txErr
	}
	return extErr
}
