package task

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/service"
)

// ==================== TrackingTask 物流回传对账任务 ====================

// TrackingTask 定时把已发货订单的物流单号回传 eBay
// 有限重试，耗尽即终态；重试状态持久化在订单上
type TrackingTask struct {
	tracking *service.TrackingService
	cron     *cron.Cron
}

// NewTrackingTask 创建物流回传任务
func NewTrackingTask(tracking *service.TrackingService) *TrackingTask {
	return &TrackingTask{
		tracking: tracking,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start 启动定时任务
func (t *TrackingTask) Start() {
	// 每5分钟执行
	_, err := t.cron.AddFunc("0 0/5 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		t.execute(ctx)
	})
	if err != nil {
		log.Fatalf("[TrackingTask] 无法启动定时任务: %v", err)
	}

	t.cron.Start()
	log.Println("[TrackingTask] 物流回传任务已启动 (每5分钟检查)")
}

// Stop 停止任务
func (t *TrackingTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	log.Println("[TrackingTask] 已停止")
}

// RunNow 手动触发一轮
func (t *TrackingTask) RunNow(ctx context.Context) {
	t.execute(ctx)
}

// execute 执行一轮对账
func (t *TrackingTask) execute(ctx context.Context) {
	stats, err := t.tracking.RunOnce(ctx)
	if err != nil {
		if service.IsConflict(err) {
			log.Println("[TrackingTask] 系统已暂停，跳过本轮")
			return
		}
		log.Printf("[TrackingTask] 本轮对账失败: %v", err)
		return
	}

	if stats.Selected == 0 {
		return
	}

	log.Printf("[TrackingTask] 本轮完成，选中: %d, 成功: %d, 恢复: %d, 终态: %d, 失败: %d",
		stats.Selected, stats.Uploaded, stats.Recovered, stats.Terminal, stats.Failed)
}
