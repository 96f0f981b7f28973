package ebay

import "fmt"

// ==================== 错误分层 ====================

// 错误所属层：报价层错误会触发发布侧的悬挂补偿
const (
	LayerInventory   = "inventory"
	LayerOffer       = "offer"
	LayerFulfillment = "fulfillment"
)

// APIError eBay API 调用错误
type APIError struct {
	Op         string // 操作名
	Layer      string // 所属层
	StatusCode int    // HTTP 状态码，网络层失败为 0
	Message    string // 响应体或底层错误
	retryable  bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("eBay %s 失败 [%d]: %s", e.Op, e.StatusCode, e.Message)
}

// RetryableError 超时/限流/5xx 可重试，4xx 不可
func (e *APIError) RetryableError() bool { return e.retryable }

// OfferLayer 是否报价层错误
func (e *APIError) OfferLayer() bool { return e.Layer == LayerOffer }

// newAPIError 按状态码归类错误
// statusCode==0 表示网络层失败（超时、连接拒绝），一律可重试
func newAPIError(op, layer string, statusCode int, message string) *APIError {
	retryable := statusCode == 0 ||
		statusCode == 408 ||
		statusCode == 429 ||
		statusCode >= 500
	return &APIError{
		Op:         op,
		Layer:      layer,
		StatusCode: statusCode,
		Message:    message,
		retryable:  retryable,
	}
}
