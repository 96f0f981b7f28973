package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/model"
)

// ==================== 仓储接口 ====================

// CandidateRepository 候选商品仓储接口
type CandidateRepository interface {
	Create(ctx context.Context, c *model.Candidate) error
	GetByID(ctx context.Context, id int64) (*model.Candidate, error)
	Update(ctx context.Context, c *model.Candidate) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	List(ctx context.Context, filter CandidateFilter) ([]model.Candidate, int64, error)
	FindByState(ctx context.Context, state string, limit int) ([]model.Candidate, error)
}

// CandidateFilter 候选商品过滤条件
type CandidateFilter struct {
	State    string
	Page     int
	PageSize int
}

// ==================== 仓储实现 ====================

type candidateRepo struct {
	db *gorm.DB
}

// NewCandidateRepository 创建候选商品仓储
func NewCandidateRepository(db *gorm.DB) CandidateRepository {
	return &candidateRepo{db: db}
}

func (r *candidateRepo) Create(ctx context.Context, c *model.Candidate) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *candidateRepo) GetByID(ctx context.Context, id int64) (*model.Candidate, error) {
	var c model.Candidate
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *candidateRepo) Update(ctx context.Context, c *model.Candidate) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *candidateRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now()
	}
	return r.db.WithContext(ctx).Model(&model.Candidate{}).Where("id = ?", id).Updates(fields).Error
}

func (r *candidateRepo) List(ctx context.Context, filter CandidateFilter) ([]model.Candidate, int64, error) {
	var candidates []model.Candidate
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Candidate{})
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	offset := (filter.Page - 1) * filter.PageSize
	if err := query.Order("created_at DESC").Limit(filter.PageSize).Offset(offset).Find(&candidates).Error; err != nil {
		return nil, 0, err
	}

	return candidates, total, nil
}

func (r *candidateRepo) FindByState(ctx context.Context, state string, limit int) ([]model.Candidate, error) {
	var candidates []model.Candidate
	err := r.db.WithContext(ctx).
		Where("state = ?", state).
		Order("created_at DESC").
		Limit(limit).
		Find(&candidates).Error
	return candidates, err
}
