package provider

import (
	"github.com/nftlevel-next/internal/authz"
	"github.com/nftlevel-next/internal/cache"
	"github.com/nftlevel-next/internal/config"
	"github.com/nftlevel-next/internal/logger"
	"github.com/nftlevel-next/internal/models"
	"github.com/nftlevel-next/internal/queue"
	"github.com/nftlevel-next/internal/repository"
	"github.com/nftlevel-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Settings    service.EngineSettings
	Clock       service.Clock

	// Repositories
	MemberRepo     repository.MemberRepository
	PurchaseRepo   repository.PurchaseRepository
	AccrualRepo    repository.AccrualRepository
	WithdrawalRepo repository.WithdrawalRepository
	WalletRepo     repository.WalletTransactionRepository
	DashboardRepo  repository.DashboardRepository

	// Services
	AuthzService      *authz.Service
	CaptchaService    *service.CaptchaService
	MemberService     *service.MemberService
	UplineService     *service.UplineService
	WalletService     *service.WalletService
	RewardService     *service.RewardService
	PurchaseService   *service.PurchaseService
	AccrualService    *service.AccrualService
	HoldingService    *service.HoldingService
	WithdrawalService *service.WithdrawalService
	ReportService     *service.ReportService
	DashboardService  *service.DashboardService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端，未启用时返回空操作客户端
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient, _ = queue.NewClient(nil)
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Settings:    service.NewEngineSettings(&cfg.Engine),
		Clock:       service.SystemClock{},
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.MemberRepo = repository.NewMemberRepository(db)
	c.PurchaseRepo = repository.NewPurchaseRepository(db)
	c.AccrualRepo = repository.NewAccrualRepository(db)
	c.WithdrawalRepo = repository.NewWithdrawalRepository(db)
	c.WalletRepo = repository.NewWalletTransactionRepository(db)
	c.DashboardRepo = repository.NewDashboardRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.MemberService = service.NewMemberService(c.MemberRepo, c.Clock)
	c.UplineService = service.NewUplineService(c.MemberRepo)
	c.WalletService = service.NewWalletService(c.MemberRepo, c.WalletRepo)
	c.RewardService = service.NewRewardService(c.MemberRepo, c.AccrualRepo, c.WalletService, c.Settings)
	c.PurchaseService = service.NewPurchaseService(c.MemberRepo, c.PurchaseRepo, c.AccrualRepo, c.RewardService, c.QueueClient, c.Settings, c.Clock)
	c.AccrualService = service.NewAccrualService(c.MemberRepo, c.AccrualRepo, c.WalletService, c.Settings, c.Clock)
	c.HoldingService = service.NewHoldingService(c.MemberRepo, c.PurchaseRepo, c.WithdrawalRepo, c.WalletService, c.Settings, c.Clock)
	c.WithdrawalService = service.NewWithdrawalService(c.MemberRepo, c.WithdrawalRepo, c.WalletService, c.Clock)
	c.ReportService = service.NewReportService(c.MemberRepo, c.PurchaseRepo, c.AccrualRepo, c.Settings)
	c.DashboardService = service.NewDashboardService(c.DashboardRepo, c.Clock)
}
