package model

import "time"

// ==================== 审计实体类型 ====================

// EntityType 审计日志实体类型
const (
	EntityTypeCandidate = "candidate"
	EntityTypeListing   = "listing"
	EntityTypeOrder     = "order"
	EntityTypeLedger    = "ledger"
)

// ==================== StateTransition 状态流转审计 ====================

// StateTransition 状态流转审计记录
// 只追加、永不更新或删除；实体只保存当前状态，历史一律查这张表
type StateTransition struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"index"`

	EntityType string `gorm:"size:32;index:idx_transitions_entity;not null;comment:实体类型"`
	EntityID   int64  `gorm:"index:idx_transitions_entity;not null;comment:实体ID"`

	FromState string `gorm:"size:32;comment:原状态,创建时为空"`
	ToState   string `gorm:"size:32;not null;comment:新状态"`

	ReasonCode   string `gorm:"size:64;comment:原因代码"`
	ReasonDetail string `gorm:"size:2048;comment:原因详情"`
	Actor        string `gorm:"size:64;comment:操作者"`
	CorrelationID string `gorm:"size:64;index;comment:关联ID"`
}

func (*StateTransition) TableName() string {
	return "state_transitions"
}
