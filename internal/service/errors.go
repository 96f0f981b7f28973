package service

import (
	"errors"
	"fmt"
)

// ==================== 错误分类 ====================
// 调用方按三类处理：
// - 校验错误：输入有误，立即返回，不重试
// - 冲突错误：状态/前置条件不满足，修正后可重试
// - 外部错误：按 Retryable 标记决定是否进入重试

// ValidationError 输入校验错误
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NewValidationError 创建校验错误
func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError 状态冲突错误
type ConflictError struct {
	Code string
	Msg  string
}

func (e *ConflictError) Error() string { return e.Msg }

// ExternalError 外部依赖错误
type ExternalError struct {
	Op        string // 外部操作名
	Retryable bool   // 超时/限流/5xx 可重试
	Err       error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("外部调用 %s 失败: %v", e.Op, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }

// ==================== 预定义错误 ====================

var (
	// ErrSystemPaused 系统已全局暂停，所有变更操作拒绝执行
	ErrSystemPaused = &ConflictError{Code: "SYSTEM_PAUSED", Msg: "系统已暂停，拒绝执行变更操作"}

	// ErrInvalidTransition 状态流转不在允许表内
	ErrInvalidTransition = &ConflictError{Code: "INVALID_TRANSITION", Msg: "非法的状态流转"}

	// ErrStalePricing 核价快照已过期（晚于核价的实体变更未重新过闸门）
	ErrStalePricing = &ConflictError{Code: "STALE_PRICING", Msg: "核价结果已过期，请重新核价"}
)

// ==================== 判定辅助 ====================

// IsValidation 是否校验错误
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict 是否冲突错误
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsRetryable 是否可重试的外部错误
// 客户端包的错误类型通过 RetryableError() 标记接入同一判定
func IsRetryable(err error) bool {
	var ee *ExternalError
	if errors.As(err, &ee) {
		return ee.Retryable
	}
	var re interface{ RetryableError() bool }
	if errors.As(err, &re) {
		return re.RetryableError()
	}
	return false
}
