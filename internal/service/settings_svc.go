package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/model"
	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/repository"
)

// ==================== SettingsService 动态配置服务 ====================

// SettingsService 系统配置读写
// 配置以 key/value 落库，读取时由调用方给定缺省值；
// 带短 TTL 的进程内缓存，Set 后立即失效对应键
type SettingsService struct {
	repo     repository.SettingRepository
	cacheTTL time.Duration

	mu    sync.RWMutex
	cache map[string]settingCacheItem
}

type settingCacheItem struct {
	value     string
	found     bool
	expiresAt time.Time
}

// NewSettingsService 创建配置服务
func NewSettingsService(repo repository.SettingRepository) *SettingsService {
	return &SettingsService{
		repo:     repo,
		cacheTTL: 5 * time.Second,
		cache:    make(map[string]settingCacheItem),
	}
}

// Get 读取配置值，不存在时返回缺省值
func (s *SettingsService) Get(ctx context.Context, key, def string) string {
	s.mu.RLock()
	item, ok := s.cache[key]
	s.mu.RUnlock()

	if ok && time.Now().Before(item.expiresAt) {
		if item.found {
			return item.value
		}
		return def
	}

	value, found, err := s.repo.Get(ctx, key)
	if err != nil {
		// 配置读取失败时退回缺省值，不让单次查询失败放大
		return def
	}

	s.mu.Lock()
	s.cache[key] = settingCacheItem{value: value, found: found, expiresAt: time.Now().Add(s.cacheTTL)}
	s.mu.Unlock()

	if found {
		return value
	}
	return def
}

// Set 写入配置并失效缓存
func (s *SettingsService) Set(ctx context.Context, key, value string) error {
	if err := s.repo.Upsert(ctx, key, value); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
	return nil
}

// GetDecimal 读取十进制配置值
func (s *SettingsService) GetDecimal(ctx context.Context, key, def string) (decimal.Decimal, error) {
	raw := s.Get(ctx, key, def)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("配置 %s 的值 %q 不是合法数字: %w", key, raw, err)
	}
	return d, nil
}

// GetInt 读取整数配置值
func (s *SettingsService) GetInt(ctx context.Context, key string, def int) int {
	raw := s.Get(ctx, key, strconv.Itoa(def))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// ==================== 全局暂停开关 ====================

// IsPaused 系统是否处于全局暂停
func (s *SettingsService) IsPaused(ctx context.Context) bool {
	return s.Get(ctx, model.SettingSystemPaused, "false") == "true"
}

// Pause 拉下总闸：暂停所有变更操作
func (s *SettingsService) Pause(ctx context.Context) error {
	return s.Set(ctx, model.SettingSystemPaused, "true")
}

// Resume 恢复运行
func (s *SettingsService) Resume(ctx context.Context) error {
	return s.Set(ctx, model.SettingSystemPaused, "false")
}

// EnsureNotPaused 变更操作入口处的统一检查
func (s *SettingsService) EnsureNotPaused(ctx context.Context) error {
	if s.IsPaused(ctx) {
		return ErrSystemPaused
	}
	return nil
}
