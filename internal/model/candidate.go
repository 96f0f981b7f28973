package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ==================== 候选商品状态常量 ====================

// CandidateState 候选商品状态
const (
	CandidateStateCandidate    = "CANDIDATE"          // 已录入,待核价
	CandidateStateDraftReady   = "DRAFT_READY"        // 双闸门通过,待发布
	CandidateStateDraftCreated = "EBAY_DRAFT_CREATED" // eBay草稿已创建,成功终态
	CandidateStateDraftFailed  = "EBAY_DRAFT_FAILED"  // 发布失败,可重试
	CandidateStateRejected     = "REJECTED"           // 已拒绝,可重新放回
)

// candidateTransitions 候选商品状态流转表
var candidateTransitions = map[string][]string{
	CandidateStateCandidate: {
		CandidateStateDraftReady,
		CandidateStateRejected,
	},
	CandidateStateDraftReady: {
		CandidateStateDraftCreated,
		CandidateStateDraftFailed,
		CandidateStateRejected,
		CandidateStateCandidate,
	},
	CandidateStateRejected: {
		CandidateStateCandidate,
	},
	CandidateStateDraftFailed: {
		CandidateStateDraftReady,
		CandidateStateDraftCreated,
		CandidateStateRejected,
		CandidateStateCandidate,
	},
	CandidateStateDraftCreated: {
		CandidateStateDraftFailed,
	},
}

// CandidateCanTransition 检查候选商品状态流转是否被允许
// from==to 视为合法（重复核价/重复发布也要落审计）
func CandidateCanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, allowed := range candidateTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ==================== 闸门结论常量 ====================

// RejectReason 拒绝原因代码
const (
	RejectReasonGateProfit = "GATE_PROFIT" // 利润闸门未通过
	RejectReasonGateCash   = "GATE_CASH"   // 资金闸门未通过
	RejectReasonGateBoth   = "GATE_BOTH"   // 双闸门均未通过
	RejectReasonManual     = "MANUAL"      // 人工拒绝
)

// ReasonGatesPassed 双闸门通过的审计原因代码
const ReasonGatesPassed = "GATES_PASSED"

// ==================== 尺寸分级常量 ====================

// SizeTier 尺寸分级，决定国际运费档位
const (
	SizeTierS  = "S"
	SizeTierM  = "M"
	SizeTierL  = "L"
	SizeTierXL = "XL"
)

// ValidSizeTier 是否为已知的尺寸分级
func ValidSizeTier(tier string) bool {
	switch tier {
	case SizeTierS, SizeTierM, SizeTierL, SizeTierXL:
		return true
	}
	return false
}

// ==================== Candidate 候选商品 ====================

// Candidate 采购候选商品
// 实体只保存当前状态，历史一律查 state_transitions
type Candidate struct {
	ID        int64          `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time      `gorm:"index"`
	UpdatedAt time.Time      `gorm:"index"`
	DeletedAt gorm.DeletedAt `gorm:"index"`

	SourceURL   string          `gorm:"size:1024;not null;comment:货源URL"`
	SourcePrice decimal.Decimal `gorm:"type:decimal(14,2);not null;comment:货源价格(日元)"`
	WeightKg    decimal.Decimal `gorm:"type:decimal(8,3);comment:重量(kg),零值时核价取缺省"`
	SizeTier    string          `gorm:"size:8;comment:尺寸分级,空时核价取缺省"`
	Memo        string          `gorm:"size:2048;comment:备注,发布时用作标题"`

	State string `gorm:"size:32;index;default:CANDIDATE;comment:候选状态"`

	RejectReasonCode   string `gorm:"size:64;comment:拒绝原因代码"`
	RejectReasonDetail string `gorm:"size:2048;comment:拒绝原因详情"`

	LastPricedAt *time.Time `gorm:"comment:最近核价时间"`
}

func (*Candidate) TableName() string {
	return "candidates"
}

// CanTransitionTo 检查状态流转是否被允许
func (c *Candidate) CanTransitionTo(to string) bool {
	return CandidateCanTransition(c.State, to)
}

// IsTerminalSuccess 是否已进入成功终态
func (c *Candidate) IsTerminalSuccess() bool {
	return c.State == CandidateStateDraftCreated
}
