package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ==================== 草稿状态常量 ====================

// ListingState 上架草稿状态
const (
	ListingStatePending = "pending" // 本地已建档,外部调用未完成
	ListingStateCreated = "created" // eBay草稿已创建
	ListingStateFailed  = "failed"  // 最近一次发布失败
)

// ==================== Listing 上架草稿 ====================

// Listing 发布到 eBay 的草稿 listing
// SKU 由候选商品ID确定性生成，作为对外的幂等键
type Listing struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time `gorm:"index"`

	CandidateID int64  `gorm:"uniqueIndex;not null;comment:候选商品ID"`
	SKU         string `gorm:"size:64;uniqueIndex;not null;comment:确定性SKU"`

	InventoryCreated bool   `gorm:"default:false;comment:库存条目已创建"`
	OfferID          string `gorm:"size:64;comment:eBay报价ID"`

	PriceUSD decimal.Decimal `gorm:"type:decimal(14,2);comment:上架价格(美元)"`

	State     string `gorm:"size:16;index;default:pending;comment:草稿状态"`
	LastError string `gorm:"size:1024;comment:最近一次发布错误"`
}

func (*Listing) TableName() string {
	return "listings"
}

// BuildSKU 由候选商品ID生成确定性SKU
// 同一候选无论重试多少次得到的都是同一个键
func BuildSKU(prefix string, candidateID int64) string {
	return fmt.Sprintf("%s-%06d", prefix, candidateID)
}

// MarkCreated 标记发布成功
func (l *Listing) MarkCreated(offerID string) {
	l.State = ListingStateCreated
	l.OfferID = offerID
	l.LastError = ""
}

// MarkFailed 标记发布失败
func (l *Listing) MarkFailed(errMsg string) {
	l.State = ListingStateFailed
	l.LastError = errMsg
}
