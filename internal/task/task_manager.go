package task

import (
	"context"
	"log"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/repository"
	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/service"
)

// ==================== TaskManager 后台任务管理器 ====================

// TaskManager 统一管理后台批处理任务
// 管理范围：草稿发布、物流回传
type TaskManager struct {
	publishTask  *PublishTask
	trackingTask *TrackingTask
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	CandidateRepo repository.CandidateRepository
	Publisher     *service.PublisherService
	Tracking      *service.TrackingService
	Settings      *service.SettingsService
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	PublishEnabled  bool
	TrackingEnabled bool
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		PublishEnabled:  true,
		TrackingEnabled: true,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tm := &TaskManager{}

	if cfg.PublishEnabled && deps.Publisher != nil {
		tm.publishTask = NewPublishTask(deps.CandidateRepo, deps.Publisher, deps.Settings)
	}
	if cfg.TrackingEnabled && deps.Tracking != nil {
		tm.trackingTask = NewTrackingTask(deps.Tracking)
	}

	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() {
	log.Println("[TaskManager] 正在启动后台任务...")

	if tm.publishTask != nil {
		tm.publishTask.Start()
	}
	if tm.trackingTask != nil {
		tm.trackingTask.Start()
	}

	log.Println("[TaskManager] 后台任务已全部启动")
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	log.Println("[TaskManager] 正在停止后台任务...")

	if tm.publishTask != nil {
		tm.publishTask.Stop()
	}
	if tm.trackingTask != nil {
		tm.trackingTask.Stop()
	}

	log.Println("[TaskManager] 后台任务已全部停止")
}

// ==================== 手动触发接口 ====================

// TriggerPublish 触发一轮草稿发布
func (tm *TaskManager) TriggerPublish(ctx context.Context) error {
	if tm.publishTask == nil {
		return ErrTaskDisabled
	}
	tm.publishTask.RunNow(ctx)
	return nil
}

// TriggerTracking 触发一轮物流回传对账
func (tm *TaskManager) TriggerTracking(ctx context.Context) error {
	if tm.trackingTask == nil {
		return ErrTaskDisabled
	}
	tm.trackingTask.RunNow(ctx)
	return nil
}

// ==================== 状态查询 ====================

// Status 获取任务启用状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"publish":  tm.publishTask != nil,
		"tracking": tm.trackingTask != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
