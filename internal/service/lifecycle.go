package service

import (
	"context"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/model"
	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/repository"
)

// ==================== 状态流转执行器 ====================
// 所有实体的状态变更都经由这里：先查流转表，再更新实体，再追加审计，
// 三步必须在同一个工作单元事务内调用。
// 实体只保存当前状态，历史唯一的事实来源是审计表。

// TransitionInput 状态流转参数
type TransitionInput struct {
	To            string
	ReasonCode    string
	ReasonDetail  string
	Actor         string
	CorrelationID string
}

// TransitionCandidate 执行候选商品状态流转并审计
// from==to 是合法流转，同样落审计（记录重复核价/重复发布这类事件）
func TransitionCandidate(ctx context.Context, uow *repository.PipelineUnitOfWork, c *model.Candidate, in TransitionInput) error {
	if !c.CanTransitionTo(in.To) {
		return ErrInvalidTransition
	}

	from := c.State
	// updated_at 只跟踪业务字段变更，状态流转不推进它；
	// 发布侧用 updated_at 判断核价快照是否被后续修改顶掉
	fields := map[string]interface{}{
		"state":      in.To,
		"updated_at": c.UpdatedAt,
	}
	if in.To == model.CandidateStateRejected {
		fields["reject_reason_code"] = in.ReasonCode
		fields["reject_reason_detail"] = in.ReasonDetail
	} else if from == model.CandidateStateRejected {
		// 离开拒绝态时清掉残留的拒绝原因
		fields["reject_reason_code"] = ""
		fields["reject_reason_detail"] = ""
	}
	if err := uow.Candidates.UpdateFields(ctx, c.ID, fields); err != nil {
		return err
	}
	c.State = in.To

	return uow.Audit.Append(ctx, &model.StateTransition{
		EntityType:    model.EntityTypeCandidate,
		EntityID:      c.ID,
		FromState:     from,
		ToState:       in.To,
		ReasonCode:    in.ReasonCode,
		ReasonDetail:  in.ReasonDetail,
		Actor:         in.Actor,
		CorrelationID: in.CorrelationID,
	})
}

// TransitionOrder 执行订单状态流转并审计
func TransitionOrder(ctx context.Context, uow *repository.PipelineUnitOfWork, o *model.Order, in TransitionInput, extra map[string]interface{}) error {
	if !o.CanTransitionTo(in.To) {
		return ErrInvalidTransition
	}

	from := o.State
	fields := map[string]interface{}{"state": in.To}
	for k, v := range extra {
		fields[k] = v
	}
	if err := uow.Orders.UpdateFields(ctx, o.ID, fields); err != nil {
		return err
	}
	o.State = in.To

	return uow.Audit.Append(ctx, &model.StateTransition{
		EntityType:    model.EntityTypeOrder,
		EntityID:      o.ID,
		FromState:     from,
		ToState:       in.To,
		ReasonCode:    in.ReasonCode,
		ReasonDetail:  in.ReasonDetail,
		Actor:         in.Actor,
		CorrelationID: in.CorrelationID,
	})
}

// AuditCreation 记录实体创建（from 为空）
func AuditCreation(ctx context.Context, uow *repository.PipelineUnitOfWork, entityType string, entityID int64, toState, reasonCode, actor, correlationID string) error {
	return uow.Audit.Append(ctx, &model.StateTransition{
		EntityType:    entityType,
		EntityID:      entityID,
		FromState:     "",
		ToState:       toState,
		ReasonCode:    reasonCode,
		Actor:         actor,
		CorrelationID: correlationID,
	})
}
