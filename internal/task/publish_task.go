package task

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/model"
	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/repository"
	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/service"
)

// ==================== PublishTask 草稿发布任务 ====================

// PublishTask 定时扫描待上架候选并发布到 eBay
type PublishTask struct {
	candidateRepo repository.CandidateRepository
	publisher     *service.PublisherService
	settings      *service.SettingsService
	cron          *cron.Cron
}

// NewPublishTask 创建发布任务
func NewPublishTask(
	candidateRepo repository.CandidateRepository,
	publisher *service.PublisherService,
	settings *service.SettingsService,
) *PublishTask {
	return &PublishTask{
		candidateRepo: candidateRepo,
		publisher:     publisher,
		settings:      settings,
		cron:          cron.New(cron.WithSeconds()),
	}
}

// Start 启动定时任务
func (t *PublishTask) Start() {
	// 每分钟执行
	_, err := t.cron.AddFunc("0 * * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		t.execute(ctx)
	})
	if err != nil {
		log.Fatalf("[PublishTask] 无法启动定时任务: %v", err)
	}

	t.cron.Start()
	log.Println("[PublishTask] 草稿发布任务已启动 (每分钟检查)")
}

// Stop 停止任务
func (t *PublishTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	log.Println("[PublishTask] 已停止")
}

// RunNow 手动触发一轮
func (t *PublishTask) RunNow(ctx context.Context) {
	t.execute(ctx)
}

// execute 执行一轮发布
func (t *PublishTask) execute(ctx context.Context) {
	if t.settings.IsPaused(ctx) {
		log.Println("[PublishTask] 系统已暂停，跳过本轮")
		return
	}

	batchSize := t.settings.GetInt(ctx, model.SettingPublishBatchSize, 20)
	candidates, err := t.candidateRepo.FindByState(ctx, model.CandidateStateDraftReady, batchSize)
	if err != nil {
		log.Printf("[PublishTask] 查询待发布候选失败: %v", err)
		return
	}

	if len(candidates) == 0 {
		return
	}

	log.Printf("[PublishTask] 发现 %d 个待发布候选", len(candidates))

	var successCount, failCount int
	for _, c := range candidates {
		select {
		case <-ctx.Done():
			log.Println("[PublishTask] 任务超时停止")
			return
		default:
		}

		if _, err := t.publisher.Publish(ctx, c.ID, "publish-task"); err != nil {
			failCount++
			log.Printf("[PublishTask] 候选 %d 发布失败: %v", c.ID, err)
		} else {
			successCount++
			log.Printf("[PublishTask] 候选 %d 发布成功", c.ID)
		}
	}

	log.Printf("[PublishTask] 本轮完成，成功: %d, 失败: %d", successCount, failCount)
}
