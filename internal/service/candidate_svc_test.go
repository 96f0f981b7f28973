package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/model"
	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/repository"
)

// ==================== 候选商品服务测试 ====================

func newCandidateSvc(t *testing.T) (*CandidateService, *repository.PipelineUnitOfWork) {
	uow, settings, _ := newTestEnv(t)
	return NewCandidateService(uow, settings), uow
}

func TestCandidateService_Create(t *testing.T) {
	svc, uow := newCandidateSvc(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, CreateCandidateInput{
		SourceURL:   "https://example.jp/item/1",
		SourcePrice: decimal.NewFromInt(10000),
		WeightKg:    mustDecimal(t, "1.5"),
		SizeTier:    model.SizeTierXL,
		Memo:        "Vintage camera",
		Actor:       "tester",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if c.State != model.CandidateStateCandidate {
		t.Errorf("初始状态 = %s, want %s", c.State, model.CandidateStateCandidate)
	}

	// 创建即落一条 from 为空的审计
	transitions, err := uow.Audit.ListByEntity(ctx, model.EntityTypeCandidate, c.ID)
	if err != nil {
		t.Fatalf("查询审计失败: %v", err)
	}
	if len(transitions) != 1 {
		t.Fatalf("审计条数 = %d, want 1", len(transitions))
	}
	if transitions[0].FromState != "" || transitions[0].ToState != model.CandidateStateCandidate {
		t.Errorf("创建审计 = %s -> %s", transitions[0].FromState, transitions[0].ToState)
	}
	if transitions[0].ReasonCode != "INTAKE" {
		t.Errorf("审计原因 = %s, want INTAKE", transitions[0].ReasonCode)
	}
}

func TestCandidateService_Create_Validation(t *testing.T) {
	svc, _ := newCandidateSvc(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateCandidateInput{
		SourcePrice: decimal.NewFromInt(10000),
	}); !IsValidation(err) {
		t.Errorf("缺URL err = %v, want 校验错误", err)
	}

	if _, err := svc.Create(ctx, CreateCandidateInput{
		SourceURL:   "https://example.jp/item/1",
		SourcePrice: decimal.Zero,
	}); !IsValidation(err) {
		t.Errorf("价格为零 err = %v, want 校验错误", err)
	}

	if _, err := svc.Create(ctx, CreateCandidateInput{
		SourceURL:   "https://example.jp/item/1",
		SourcePrice: decimal.NewFromInt(10000),
		SizeTier:    "XXL",
	}); !IsValidation(err) {
		t.Errorf("未知分级 err = %v, want 校验错误", err)
	}
}

func TestCandidateService_RejectAndReopen(t *testing.T) {
	svc, uow := newCandidateSvc(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, CreateCandidateInput{
		SourceURL:   "https://example.jp/item/1",
		SourcePrice: decimal.NewFromInt(10000),
		Actor:       "tester",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Reject(ctx, c.ID, "品相太差", "tester"); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	reloaded, _ := uow.Candidates.GetByID(ctx, c.ID)
	if reloaded.State != model.CandidateStateRejected {
		t.Errorf("状态 = %s, want %s", reloaded.State, model.CandidateStateRejected)
	}
	if reloaded.RejectReasonCode != model.RejectReasonManual {
		t.Errorf("拒绝原因 = %s, want %s", reloaded.RejectReasonCode, model.RejectReasonManual)
	}

	// 重新放回后拒绝原因清空
	if err := svc.Reopen(ctx, c.ID, "tester"); err != nil {
		t.Fatalf("Reopen() error = %v", err)
	}
	reloaded, _ = uow.Candidates.GetByID(ctx, c.ID)
	if reloaded.State != model.CandidateStateCandidate {
		t.Errorf("状态 = %s, want %s", reloaded.State, model.CandidateStateCandidate)
	}
	if reloaded.RejectReasonCode != "" {
		t.Errorf("拒绝原因未清空: %s", reloaded.RejectReasonCode)
	}

	// 审计完整：创建 + 拒绝 + 放回
	history, err := svc.History(ctx, c.ID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("审计条数 = %d, want 3", len(history))
	}
}

// ==================== 状态流转执行器测试 ====================

func TestTransitionCandidate_RejectsIllegalTransition(t *testing.T) {
	uow, _, db := newTestEnv(t)
	ctx := context.Background()

	// 成功终态不允许人工拒绝
	c := &model.Candidate{
		SourceURL:   "https://example.jp/item/1",
		SourcePrice: decimal.NewFromInt(10000),
		State:       model.CandidateStateDraftCreated,
	}
	db.Create(c)

	err := uow.Transaction(ctx, func(uow *repository.PipelineUnitOfWork) error {
		return TransitionCandidate(ctx, uow, c, TransitionInput{
			To:            model.CandidateStateRejected,
			ReasonCode:    model.RejectReasonManual,
			Actor:         "tester",
			CorrelationID: uuid.NewString(),
		})
	})
	if err != ErrInvalidTransition {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}

	// 实体状态未被改动，也没有审计残留
	reloaded, _ := uow.Candidates.GetByID(ctx, c.ID)
	if reloaded.State != model.CandidateStateDraftCreated {
		t.Errorf("状态被改动: %s", reloaded.State)
	}
	transitions, _ := uow.Audit.ListByEntity(ctx, model.EntityTypeCandidate, c.ID)
	if len(transitions) != 0 {
		t.Errorf("非法流转留下了审计: %d 条", len(transitions))
	}
}

func TestTransitionCandidate_SelfTransitionAudited(t *testing.T) {
	uow, _, db := newTestEnv(t)
	ctx := context.Background()

	c := &model.Candidate{
		SourceURL:   "https://example.jp/item/1",
		SourcePrice: decimal.NewFromInt(10000),
		State:       model.CandidateStateDraftReady,
	}
	db.Create(c)

	// 重复核价这类 from==to 的流转合法，同样落审计
	err := uow.Transaction(ctx, func(uow *repository.PipelineUnitOfWork) error {
		return TransitionCandidate(ctx, uow, c, TransitionInput{
			To:            model.CandidateStateDraftReady,
			ReasonCode:    model.ReasonGatesPassed,
			Actor:         "tester",
			CorrelationID: uuid.NewString(),
		})
	})
	if err != nil {
		t.Fatalf("自流转失败: %v", err)
	}

	transitions, _ := uow.Audit.ListByEntity(ctx, model.EntityTypeCandidate, c.ID)
	if len(transitions) != 1 {
		t.Fatalf("审计条数 = %d, want 1", len(transitions))
	}
	if transitions[0].FromState != transitions[0].ToState {
		t.Errorf("自流转审计 = %s -> %s", transitions[0].FromState, transitions[0].ToState)
	}
}
