package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/model"
)

// ==================== 仓储接口 ====================

// ListingRepository 上架草稿仓储接口
type ListingRepository interface {
	Create(ctx context.Context, l *model.Listing) error
	GetByID(ctx context.Context, id int64) (*model.Listing, error)
	GetByCandidateID(ctx context.Context, candidateID int64) (*model.Listing, error)
	GetBySKU(ctx context.Context, sku string) (*model.Listing, error)
	Update(ctx context.Context, l *model.Listing) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
}

// ==================== 仓储实现 ====================

type listingRepo struct {
	db *gorm.DB
}

// NewListingRepository 创建上架草稿仓储
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepo{db: db}
}

func (r *listingRepo) Create(ctx context.Context, l *model.Listing) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *listingRepo) GetByID(ctx context.Context, id int64) (*model.Listing, error) {
	var l model.Listing
	if err := r.db.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *listingRepo) GetByCandidateID(ctx context.Context, candidateID int64) (*model.Listing, error) {
	var l model.Listing
	if err := r.db.WithContext(ctx).Where("candidate_id = ?", candidateID).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *listingRepo) GetBySKU(ctx context.Context, sku string) (*model.Listing, error) {
	var l model.Listing
	if err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *listingRepo) Update(ctx context.Context, l *model.Listing) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *listingRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now()
	}
	return r.db.WithContext(ctx).Model(&model.Listing{}).Where("id = ?", id).Updates(fields).Error
}
