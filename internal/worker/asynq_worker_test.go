package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nftlevel-next/internal/cache"
	"github.com/nftlevel-next/internal/config"
	"github.com/nftlevel-next/internal/constants"
	"github.com/nftlevel-next/internal/models"
	"github.com/nftlevel-next/internal/provider"
	"github.com/nftlevel-next/internal/queue"
	"github.com/nftlevel-next/internal/repository"
	"github.com/nftlevel-next/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

func setupWorkerTest(t *testing.T) (*Consumer, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:worker_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Member{},
		&models.NFTPurchase{},
		&models.AccrualRecord{},
		&models.Withdrawal{},
		&models.WalletTransaction{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	queueClient, _ := queue.NewClient(nil)
	settings := service.DefaultEngineSettings()
	clock := service.SystemClock{}
	memberRepo := repository.NewMemberRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	accrualRepo := repository.NewAccrualRepository(db)
	withdrawalRepo := repository.NewWithdrawalRepository(db)
	wallet := service.NewWalletService(memberRepo, repository.NewWalletTransactionRepository(db))
	reward := service.NewRewardService(memberRepo, accrualRepo, wallet, settings)

	container := &provider.Container{
		QueueClient:     queueClient,
		Settings:        settings,
		Clock:           clock,
		MemberRepo:      memberRepo,
		PurchaseRepo:    purchaseRepo,
		AccrualRepo:     accrualRepo,
		WalletService:   wallet,
		RewardService:   reward,
		PurchaseService: service.NewPurchaseService(memberRepo, purchaseRepo, accrualRepo, reward, queueClient, settings, clock),
		AccrualService:  service.NewAccrualService(memberRepo, accrualRepo, wallet, settings, clock),
		HoldingService:  service.NewHoldingService(memberRepo, purchaseRepo, withdrawalRepo, wallet, settings, clock),
	}
	return NewConsumer(container), db
}

func seedSponsorPurchase(t *testing.T, consumer *Consumer, db *gorm.DB) *models.Member {
	t.Helper()
	sponsor := &models.Member{MemberCode: "NLWKA", DisplayName: "A", IsActivated: true}
	if err := db.Create(sponsor).Error; err != nil {
		t.Fatalf("create sponsor failed: %v", err)
	}
	sponsorID := sponsor.ID
	buyer := &models.Member{MemberCode: "NLWKB", DisplayName: "B", SponsorID: &sponsorID}
	if err := db.Create(buyer).Error; err != nil {
		t.Fatalf("create buyer failed: %v", err)
	}
	if _, err := consumer.PurchaseService.RecordPurchase(context.Background(), service.RecordPurchaseInput{
		MemberID: buyer.ID,
		NFTCode:  "NFT-WORKER",
		Series:   "genesis",
	}); err != nil {
		t.Fatalf("record purchase failed: %v", err)
	}
	return sponsor
}

func TestHandleAccrualTickPaysDueRecords(t *testing.T) {
	consumer, db := setupWorkerTest(t)
	sponsor := seedSponsorPurchase(t, consumer, db)

	task, err := queue.NewAccrualTickTask(queue.JobTriggerPayload{Source: "test"})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if err := consumer.handleAccrualTick(context.Background(), task); err != nil {
		t.Fatalf("handle accrual tick failed: %v", err)
	}

	var record models.AccrualRecord
	if err := db.Where("sponsor_id = ?", sponsor.ID).First(&record).Error; err != nil {
		t.Fatalf("load accrual failed: %v", err)
	}
	if record.DaysPaid != 1 {
		t.Fatalf("expected one paid day, got %d", record.DaysPaid)
	}
}

func TestHandleAccrualTickSkipsWhenLocked(t *testing.T) {
	consumer, _ := setupWorkerTest(t)
	lock, err := cache.AcquireJobLock(context.Background(), constants.JobAccrualTick, time.Minute)
	if err != nil {
		t.Fatalf("acquire lock failed: %v", err)
	}
	defer lock.Release(context.Background())

	task, _ := queue.NewAccrualTickTask(queue.JobTriggerPayload{Source: "test"})
	if err := consumer.handleAccrualTick(context.Background(), task); err != nil {
		t.Fatalf("overlapping tick should be skipped quietly, got %v", err)
	}
}

func TestHandleTasksRejectBadPayload(t *testing.T) {
	consumer, _ := setupWorkerTest(t)
	bad := asynq.NewTask(queue.TaskRewardUplineRetry, []byte("{"))
	if err := consumer.handleRewardUplineRetry(context.Background(), bad); err == nil {
		t.Fatalf("expected unmarshal error")
	}
	if err := consumer.handleDeactivationCheck(context.Background(), asynq.NewTask(queue.TaskDeactivationCheck, []byte("nope"))); err == nil {
		t.Fatalf("expected unmarshal error")
	}
}

func TestHandleRewardUplineRetryMissingPurchase(t *testing.T) {
	consumer, _ := setupWorkerTest(t)
	task, err := queue.NewRewardUplineRetryTask(queue.RewardUplineRetryPayload{PurchaseID: 404})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if err := consumer.handleRewardUplineRetry(context.Background(), task); err != nil {
		t.Fatalf("missing purchase should not be retried, got %v", err)
	}
}

func TestServiceTriggerRunsInlineWithoutQueue(t *testing.T) {
	consumer, db := setupWorkerTest(t)
	lonely := &models.Member{MemberCode: "NLWKL", DisplayName: "L", IsActivated: true}
	if err := db.Create(lonely).Error; err != nil {
		t.Fatalf("create member failed: %v", err)
	}

	svc, err := NewService(&config.QueueConfig{Enabled: false}, config.WorkerConfig{}, consumer)
	if err != nil {
		t.Fatalf("new service failed: %v", err)
	}
	if svc.schedule.AccrualTickInterval != time.Hour || svc.schedule.DeactivationCheckInterval != time.Minute {
		t.Fatalf("unexpected default intervals: %+v", svc.schedule)
	}
	svc.trigger(context.Background(), constants.JobDeactivationCheck, time.Minute)

	var got models.Member
	if err := db.First(&got, lonely.ID).Error; err != nil {
		t.Fatalf("reload member failed: %v", err)
	}
	if got.DeactivationScheduledAt == nil {
		t.Fatalf("inline deactivation check should schedule the member")
	}
}

func TestNewServiceRequiresConsumer(t *testing.T) {
	if _, err := NewService(nil, config.WorkerConfig{}, nil); err == nil {
		t.Fatalf("expected error for nil consumer")
	}
}
