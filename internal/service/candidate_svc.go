package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/model"
	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/repository"
)

// ==================== 候选商品服务 ====================

// CreateCandidateInput 录入候选商品参数
type CreateCandidateInput struct {
	SourceURL   string
	SourcePrice decimal.Decimal
	WeightKg    decimal.Decimal // 可空，核价时取配置缺省
	SizeTier    string          // 可空，核价时取配置缺省
	Memo        string
	Actor       string
}

// CandidateService 候选商品服务
type CandidateService struct {
	uow      *repository.PipelineUnitOfWork
	settings *SettingsService
}

// NewCandidateService 创建候选商品服务
func NewCandidateService(uow *repository.PipelineUnitOfWork, settings *SettingsService) *CandidateService {
	return &CandidateService{uow: uow, settings: settings}
}

// Create 录入候选商品
func (s *CandidateService) Create(ctx context.Context, in CreateCandidateInput) (*model.Candidate, error) {
	if err := s.settings.EnsureNotPaused(ctx); err != nil {
		return nil, err
	}
	if in.SourceURL == "" {
		return nil, NewValidationError("货源URL不能为空")
	}
	if in.SourcePrice.LessThanOrEqual(decimal.Zero) {
		return nil, NewValidationError("货源价格必须为正: %s", in.SourcePrice.String())
	}
	if in.SizeTier != "" && !model.ValidSizeTier(in.SizeTier) {
		return nil, NewValidationError("未知的尺寸分级: %s", in.SizeTier)
	}

	candidate := &model.Candidate{
		SourceURL:   in.SourceURL,
		SourcePrice: in.SourcePrice,
		WeightKg:    in.WeightKg,
		SizeTier:    in.SizeTier,
		Memo:        in.Memo,
		State:       model.CandidateStateCandidate,
	}

	err := s.uow.Transaction(ctx, func(uow *repository.PipelineUnitOfWork) error {
		if err := uow.Candidates.Create(ctx, candidate); err != nil {
			return err
		}
		return AuditCreation(ctx, uow, model.EntityTypeCandidate, candidate.ID,
			model.CandidateStateCandidate, "INTAKE", in.Actor, uuid.NewString())
	})
	if err != nil {
		return nil, err
	}
	return candidate, nil
}

// Get 查询候选商品
func (s *CandidateService) Get(ctx context.Context, id int64) (*model.Candidate, error) {
	c, err := s.uow.Candidates.GetByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewValidationError("候选商品 %d 不存在", id)
		}
		return nil, err
	}
	return c, nil
}

// List 按状态分页查询
func (s *CandidateService) List(ctx context.Context, filter repository.CandidateFilter) ([]model.Candidate, int64, error) {
	return s.uow.Candidates.List(ctx, filter)
}

// Reject 人工拒绝
func (s *CandidateService) Reject(ctx context.Context, id int64, detail, actor string) error {
	if err := s.settings.EnsureNotPaused(ctx); err != nil {
		return err
	}
	candidate, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.uow.Transaction(ctx, func(uow *repository.PipelineUnitOfWork) error {
		return TransitionCandidate(ctx, uow, candidate, TransitionInput{
			To:            model.CandidateStateRejected,
			ReasonCode:    model.RejectReasonManual,
			ReasonDetail:  detail,
			Actor:         actor,
			CorrelationID: uuid.NewString(),
		})
	})
}

// Reopen 把拒绝/失败的候选商品拉回初始态，重新走核价闸门
func (s *CandidateService) Reopen(ctx context.Context, id int64, actor string) error {
	if err := s.settings.EnsureNotPaused(ctx); err != nil {
		return err
	}
	candidate, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.uow.Transaction(ctx, func(uow *repository.PipelineUnitOfWork) error {
		return TransitionCandidate(ctx, uow, candidate, TransitionInput{
			To:            model.CandidateStateCandidate,
			ReasonCode:    "REOPEN",
			Actor:         actor,
			CorrelationID: uuid.NewString(),
		})
	})
}

// History 查询审计历史（唯一的历史事实来源）
func (s *CandidateService) History(ctx context.Context, id int64) ([]model.StateTransition, error) {
	return s.uow.Audit.ListByEntity(ctx, model.EntityTypeCandidate, id)
}
