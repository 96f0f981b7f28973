package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/model"
	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/repository"
	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/service"
	"github.com/kai11662233-sys/cbs-mvp-sub000/internal/task"
	"github.com/kai11662233-sys/cbs-mvp-sub000/pkg/database"
	"github.com/kai11662233-sys/cbs-mvp-sub000/pkg/ebay"
	"github.com/kai11662233-sys/cbs-mvp-sub000/pkg/fxrate"

	"gorm.io/gorm"
)

func main() {
	// 1. 初始化数据库
	db := initDatabase()

	// 2. 初始化依赖
	deps := initDependencies(db)

	// 3. 启动定时任务
	tm := initTasks(deps)

	// 4. 等待退出信号
	waitForShutdown(tm)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB       *gorm.DB
	Uow      *repository.PipelineUnitOfWork
	Services *Services
}

// Services 服务集合
type Services struct {
	Settings  *service.SettingsService
	Candidate *service.CandidateService
	Pricing   *service.PricingService
	Publisher *service.PublisherService
	Order     *service.OrderService
	Tracking  *service.TrackingService
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase() *gorm.DB {
	return database.InitDB(
		database.Config{
			DSN:   getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=cbs port=5432 sslmode=disable"),
			Debug: getEnv("DB_DEBUG", "") == "1",
		},
		// 配置
		&model.SystemSetting{},
		// 选品
		&model.Candidate{}, &model.PricingResult{}, &model.PricingRule{},
		// 发布
		&model.Listing{},
		// 订单
		&model.Order{}, &model.Fulfillment{},
		// 记账 & 审计
		&model.LedgerEntry{}, &model.StateTransition{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB) *Dependencies {
	// -------- Repo 层 --------
	uow := repository.NewPipelineUnitOfWork(db)

	// -------- 外部客户端 --------
	ebayClient := ebay.NewClient(ebay.Config{
		BaseURL:     getEnv("EBAY_BASE_URL", ""),
		AccessToken: getEnv("EBAY_ACCESS_TOKEN", ""),
	})
	fxClient := fxrate.NewClient(fxrate.Config{
		BaseURL: getEnv("FX_BASE_URL", ""),
	})

	// -------- 业务服务 --------
	settingsSvc := service.NewSettingsService(uow.Settings)
	calculator := service.NewCalculator(settingsSvc, uow.Rules)
	cashGate := service.NewCashGateService(settingsSvc, uow.Ledger)

	services := &Services{
		Settings:  settingsSvc,
		Candidate: service.NewCandidateService(uow, settingsSvc),
		Pricing: service.NewPricingService(
			uow, settingsSvc, calculator, cashGate, &fxAdapter{client: fxClient},
		),
		Publisher: service.NewPublisherService(uow, settingsSvc, &ebayItemAdapter{client: ebayClient}),
		Order:     service.NewOrderService(uow, settingsSvc),
		Tracking:  service.NewTrackingService(uow, settingsSvc, &ebayOrderAdapter{client: ebayClient}),
	}

	return &Dependencies{
		DB:       db,
		Uow:      uow,
		Services: services,
	}
}

// initTasks 初始化定时任务
func initTasks(deps *Dependencies) *task.TaskManager {
	cfg := task.DefaultConfig()
	cfg.PublishEnabled = getEnv("PUBLISH_TASK_ENABLED", "1") == "1"
	cfg.TrackingEnabled = getEnv("TRACKING_TASK_ENABLED", "1") == "1"

	tm := task.NewTaskManager(&task.TaskManagerDeps{
		CandidateRepo: deps.Uow.Candidates,
		Publisher:     deps.Services.Publisher,
		Tracking:      deps.Services.Tracking,
		Settings:      deps.Services.Settings,
	}, cfg)
	tm.Start()

	log.Println("定时任务已启动")
	return tm
}

// ==================== 客户端适配 ====================

// ebayItemAdapter 把 eBay 客户端适配到发布侧接口
type ebayItemAdapter struct {
	client *ebay.Client
}

func (a *ebayItemAdapter) PutInventoryItem(ctx context.Context, sku string, item service.InventoryItem) error {
	return a.client.PutInventoryItem(ctx, sku, item.Title, item.Quantity)
}

func (a *ebayItemAdapter) CreateOffer(ctx context.Context, sku string, offer service.OfferRequest) (string, error) {
	return a.client.CreateOffer(ctx, sku, offer.PriceUSD.StringFixed(2), offer.Quantity)
}

func (a *ebayItemAdapter) CheckOfferExists(ctx context.Context, offerID string) (bool, error) {
	return a.client.CheckOfferExists(ctx, offerID)
}

// ebayOrderAdapter 把 eBay 客户端适配到订单侧接口
type ebayOrderAdapter struct {
	client *ebay.Client
}

func (a *ebayOrderAdapter) UploadTracking(ctx context.Context, orderKey, carrierCode, trackingNumber string) error {
	return a.client.UploadTracking(ctx, orderKey, carrierCode, trackingNumber)
}

func (a *ebayOrderAdapter) CheckTrackingUploaded(ctx context.Context, orderKey string) (bool, error) {
	return a.client.CheckTrackingUploaded(ctx, orderKey)
}

func (a *ebayOrderAdapter) GetOrder(ctx context.Context, orderKey string) (*service.MarketOrder, error) {
	detail, err := a.client.GetOrder(ctx, orderKey)
	if err != nil {
		return nil, err
	}
	return &service.MarketOrder{OrderKey: detail.OrderID, Status: detail.Status}, nil
}

// fxAdapter 把汇率客户端适配到核价侧接口
type fxAdapter struct {
	client *fxrate.Client
}

func (a *fxAdapter) CurrentRate(ctx context.Context) (*service.FXRate, error) {
	rate, err := a.client.CurrentRate(ctx)
	if err != nil {
		return nil, err
	}
	return &service.FXRate{Rate: rate.Value, UpdatedAt: rate.FetchedAt}, nil
}

// ==================== 退出处理 ====================

// waitForShutdown 阻塞等待退出信号后停止任务
func waitForShutdown(tm *task.TaskManager) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 等待在跑的任务收尾，最多 30 秒
	done := make(chan struct{})
	go func() {
		tm.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		log.Println("任务停止超时，强制退出")
	}

	log.Println("服务已退出")
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
