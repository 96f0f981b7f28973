package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/model"
	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/repository"
)

// ==================== 外部服务依赖 ====================

// MarketOrder 市场侧订单详情
type MarketOrder struct {
	OrderKey string
	Status   string
}

// OrderClient 市场订单侧客户端接口
// UploadTracking 的错误需携带可重试标记；CheckTrackingUploaded 必须幂等
type OrderClient interface {
	UploadTracking(ctx context.Context, orderKey, carrierCode, trackingNumber string) error
	CheckTrackingUploaded(ctx context.Context, orderKey string) (bool, error)
	GetOrder(ctx context.Context, orderKey string) (*MarketOrder, error)
}

// ==================== 物流回传对账 ====================

// TrackingStats 单轮对账统计
type TrackingStats struct {
	Selected  int // 本轮选中
	Uploaded  int // 回传成功
	Recovered int // 幂等核对后判定为已成功（恢复型成功）
	Terminal  int // 重试耗尽转终态
	Failed    int // 失败待下轮
}

// TrackingService 物流回传对账服务
// 重试状态（次数/首次时间/下次时间）持久化在订单实体上，重启不丢
type TrackingService struct {
	uow      *repository.PipelineUnitOfWork
	settings *SettingsService
	client   OrderClient
}

// NewTrackingService 创建物流回传服务
func NewTrackingService(uow *repository.PipelineUnitOfWork, settings *SettingsService, client OrderClient) *TrackingService {
	return &TrackingService{uow: uow, settings: settings, client: client}
}

// RunOnce 执行一轮对账
// 批量上限、重试上限、最大时长均来自配置；批内逐单顺序处理
func (s *TrackingService) RunOnce(ctx context.Context) (*TrackingStats, error) {
	if err := s.settings.EnsureNotPaused(ctx); err != nil {
		return nil, err
	}

	batchSize := s.settings.GetInt(ctx, model.SettingTrackingBatchSize, 50)
	maxAttempts := s.settings.GetInt(ctx, model.SettingTrackingMaxAttempts, 5)
	maxAgeHours := s.settings.GetInt(ctx, model.SettingTrackingMaxAgeHours, 72)
	retryIntervalMin := s.settings.GetInt(ctx, model.SettingTrackingRetryIntervalMin, 60)

	now := time.Now()
	orders, err := s.uow.Orders.FindTrackingDue(ctx, now, batchSize)
	if err != nil {
		return nil, err
	}

	stats := &TrackingStats{Selected: len(orders)}
	for i := range orders {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}
		s.processOrder(ctx, &orders[i], maxAttempts, maxAgeHours, retryIntervalMin, stats)
	}
	return stats, nil
}

// processOrder 处理单个订单的回传
func (s *TrackingService) processOrder(ctx context.Context, order *model.Order, maxAttempts, maxAgeHours, retryIntervalMin int, stats *TrackingStats) {
	correlationID := uuid.NewString()

	// 耗尽判定先行：次数或时长任一超限即转终态，之后永不再选中
	if order.AttemptCount >= maxAttempts ||
		(order.TrackingStartedAt != nil && time.Since(*order.TrackingStartedAt) >= time.Duration(maxAgeHours)*time.Hour) {
		if err := s.markTerminal(ctx, order, correlationID); err != nil {
			log.Printf("[TrackingService] 订单 %d 转终态失败: %v", order.ID, err)
			return
		}
		stats.Terminal++
		return
	}

	fulfillment, err := s.uow.Fulfillments.GetByOrderID(ctx, order.ID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// 没有发货信息就不可能回传，按失败计并留给下轮
			s.recordRetry(ctx, order, "发货信息缺失", retryIntervalMin)
			stats.Failed++
			return
		}
		log.Printf("[TrackingService] 订单 %d 查询发货信息失败: %v", order.ID, err)
		return
	}

	if order.TrackingStartedAt == nil {
		now := time.Now()
		order.TrackingStartedAt = &now
		if err := s.uow.Orders.UpdateFields(ctx, order.ID, map[string]interface{}{"tracking_started_at": now}); err != nil {
			log.Printf("[TrackingService] 订单 %d 记录首次尝试时间失败: %v", order.ID, err)
			return
		}
	}

	uploadErr := s.client.UploadTracking(ctx, order.EbayOrderKey, fulfillment.CarrierCode, fulfillment.TrackingNumber)
	if uploadErr == nil {
		if err := s.markUploaded(ctx, order, "TRACKING_UPLOADED", "", correlationID); err != nil {
			log.Printf("[TrackingService] 订单 %d 标记成功失败: %v", order.ID, err)
			return
		}
		stats.Uploaded++
		return
	}

	if IsRetryable(uploadErr) {
		// 歧义失败（超时等）：先幂等核对远端是否其实已经成功，
		// 是则按"恢复型成功"入账，与普通成功在审计上区分开
		uploaded, checkErr := s.client.CheckTrackingUploaded(ctx, order.EbayOrderKey)
		if checkErr == nil && uploaded {
			if err := s.markUploaded(ctx, order, "TRACKING_RECOVERED", uploadErr.Error(), correlationID); err != nil {
				log.Printf("[TrackingService] 订单 %d 标记恢复成功失败: %v", order.ID, err)
				return
			}
			stats.Recovered++
			return
		}
		s.recordRetry(ctx, order, uploadErr.Error(), retryIntervalMin)
		stats.Failed++
		return
	}

	// 不可重试的外部错误直接终态
	order.LastError = uploadErr.Error()
	if err := s.markTerminal(ctx, order, correlationID); err != nil {
		log.Printf("[TrackingService] 订单 %d 转终态失败: %v", order.ID, err)
		return
	}
	stats.Terminal++
}

// markUploaded 回传成功（普通或恢复型）
func (s *TrackingService) markUploaded(ctx context.Context, order *model.Order, reasonCode, detail, correlationID string) error {
	return s.uow.Transaction(ctx, func(uow *repository.PipelineUnitOfWork) error {
		return TransitionOrder(ctx, uow, order, TransitionInput{
			To:            model.OrderStateTrackingUploaded,
			ReasonCode:    reasonCode,
			ReasonDetail:  detail,
			Actor:         "tracking-task",
			CorrelationID: correlationID,
		}, map[string]interface{}{
			"next_retry_at": nil,
			"last_error":    "",
		})
	})
}

// markTerminal 重试耗尽或不可重试错误，转终态并永久停止自动重试
func (s *TrackingService) markTerminal(ctx context.Context, order *model.Order, correlationID string) error {
	now := time.Now()
	started := "-"
	if order.TrackingStartedAt != nil {
		started = order.TrackingStartedAt.Format(time.RFC3339)
	}
	detail := fmt.Sprintf("attempts=%d startedAt=%s lastError=%s", order.AttemptCount, started, order.LastError)

	return s.uow.Transaction(ctx, func(uow *repository.PipelineUnitOfWork) error {
		return TransitionOrder(ctx, uow, order, TransitionInput{
			To:            model.OrderStateTrackingFailed,
			ReasonCode:    "TRACKING_TERMINAL",
			ReasonDetail:  detail,
			Actor:         "tracking-task",
			CorrelationID: correlationID,
		}, map[string]interface{}{
			"terminal_at":   now,
			"next_retry_at": nil,
			"last_error":    order.LastError,
		})
	})
}

// recordRetry 记录失败并排期下一轮
func (s *TrackingService) recordRetry(ctx context.Context, order *model.Order, errMsg string, retryIntervalMin int) {
	next := time.Now().Add(time.Duration(retryIntervalMin) * time.Minute)
	if err := s.uow.Orders.UpdateFields(ctx, order.ID, map[string]interface{}{
		"attempt_count": gorm.Expr("attempt_count + 1"),
		"last_error":    errMsg,
		"next_retry_at": next,
	}); err != nil {
		log.Printf("[TrackingService] 订单 %d 记录重试失败: %v", order.ID, err)
	}
	order.AttemptCount++
	order.LastError = errMsg
}
