package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/model"
)

// ==================== 仓储接口 ====================

// SettingRepository 系统配置仓储接口
type SettingRepository interface {
	// Get 查询配置值，不存在时返回 found=false（由上层套用缺省值）
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Upsert(ctx context.Context, key, value string) error
}

// ==================== 仓储实现 ====================

type settingRepo struct {
	db *gorm.DB
}

// NewSettingRepository 创建系统配置仓储
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepo{db: db}
}

func (r *settingRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var s model.SystemSetting
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&s).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", false, nil
		}
		return "", false, err
	}
	return s.Value, true, nil
}

func (r *settingRepo) Upsert(ctx context.Context, key, value string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"value": value, "updated_at": time.Now()}),
	}).Create(&model.SystemSetting{Key: key, Value: value}).Error
}
