package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nftlevel-next/internal/models"
	"github.com/nftlevel-next/internal/queue"
	"github.com/nftlevel-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(now time.Time) *fixedClock {
	return &fixedClock{now: now.UTC()}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingRetryQueue struct {
	payloads []queue.RewardUplineRetryPayload
}

func (q *recordingRetryQueue) EnqueueRewardUplineRetry(payload queue.RewardUplineRetryPayload, _ time.Duration) error {
	q.payloads = append(q.payloads, payload)
	return nil
}

// recordReportInvalidations 记录报表缓存失效的会员ID，测试结束后恢复
func recordReportInvalidations(t *testing.T) *[]uint {
	t.Helper()
	var mu sync.Mutex
	ids := []uint{}
	previous := reportInvalidator
	reportInvalidator = func(_ context.Context, memberIDs ...uint) {
		mu.Lock()
		defer mu.Unlock()
		ids = append(ids, memberIDs...)
	}
	t.Cleanup(func() { reportInvalidator = previous })
	return &ids
}

// flakyMemberRepo 读取指定会员时返回存储错误
// 绑定事务时同时把错误挂到事务上，与 Postgres 语句失败后整个事务中止的行为一致。
type flakyMemberRepo struct {
	repository.MemberRepository
	failID *uint
	tx     *gorm.DB
}

func (r *flakyMemberRepo) WithTx(tx *gorm.DB) repository.MemberRepository {
	return &flakyMemberRepo{MemberRepository: r.MemberRepository.WithTx(tx), failID: r.failID, tx: tx}
}

func (r *flakyMemberRepo) GetByID(id uint) (*models.Member, error) {
	if r.failID != nil && *r.failID != 0 && id == *r.failID {
		err := errors.New("storage unavailable")
		if r.tx != nil {
			_ = r.tx.AddError(errors.New("current transaction is aborted"))
		}
		return nil, err
	}
	return r.MemberRepository.GetByID(id)
}

type engineTestEnv struct {
	db          *gorm.DB
	clock       *fixedClock
	settings    EngineSettings
	retryQueue  *recordingRetryQueue
	memberRepo  repository.MemberRepository
	members     *MemberService
	wallet      *WalletService
	reward      *RewardService
	purchases   *PurchaseService
	accruals    *AccrualService
	holding     *HoldingService
	withdrawals *WithdrawalService
	reports     *ReportService
	upline      *UplineService
}

func setupEngineTest(t *testing.T) *engineTestEnv {
	t.Helper()
	return setupEngineTestWithRepo(t, nil)
}

// setupEngineTestWithRepo wrap 非空时用于替换会员仓储
func setupEngineTestWithRepo(t *testing.T, wrap func(repository.MemberRepository) repository.MemberRepository) *engineTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:engine_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

	var memberRepo repository.MemberRepository = repository.NewMemberRepository(db)
	if wrap != nil {
		memberRepo = wrap(memberRepo)
	}
	purchaseRepo := repository.NewPurchaseRepository(db)
	accrualRepo := repository.NewAccrualRepository(db)
	withdrawalRepo := repository.NewWithdrawalRepository(db)
	walletRepo := repository.NewWalletTransactionRepository(db)

	clock := newFixedClock(time.Now().UTC().Truncate(time.Second))
	settings := DefaultEngineSettings()
	retryQueue := &recordingRetryQueue{}

	wallet := NewWalletService(memberRepo, walletRepo)
	reward := NewRewardService(memberRepo, accrualRepo, wallet, settings)
	return &engineTestEnv{
		db:          db,
		clock:       clock,
		settings:    settings,
		retryQueue:  retryQueue,
		memberRepo:  memberRepo,
		members:     NewMemberService(memberRepo, clock),
		wallet:      wallet,
		reward:      reward,
		purchases:   NewPurchaseService(memberRepo, purchaseRepo, accrualRepo, reward, retryQueue, settings, clock),
		accruals:    NewAccrualService(memberRepo, accrualRepo, wallet, settings, clock),
		holding:     NewHoldingService(memberRepo, purchaseRepo, withdrawalRepo, wallet, settings, clock),
		withdrawals: NewWithdrawalService(memberRepo, withdrawalRepo, wallet, clock),
		reports:     NewReportService(memberRepo, purchaseRepo, accrualRepo, settings),
		upline:      NewUplineService(memberRepo),
	}
}

func createTestMember(t *testing.T, db *gorm.DB, code string, sponsor *models.Member, activated bool) *models.Member {
	t.Helper()
	now := time.Now().UTC()
	member := &models.Member{
		MemberCode:  code,
		DisplayName: code,
		IsActivated: activated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if sponsor != nil {
		id := sponsor.ID
		member.SponsorID = &id
	}
	if activated {
		member.ActivatedAt = &now
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("create member failed: %v", err)
	}
	return member
}

// createTestChain 创建 n 个会员组成的直线链，返回值下标 0 为根
func createTestChain(t *testing.T, db *gorm.DB, prefix string, n int, activated bool) []*models.Member {
	t.Helper()
	chain := make([]*models.Member, 0, n)
	var sponsor *models.Member
	for i := 0; i < n; i++ {
		member := createTestMember(t, db, fmt.Sprintf("%s%02d", prefix, i), sponsor, activated)
		chain = append(chain, member)
		sponsor = member
	}
	return chain
}

func reloadMember(t *testing.T, db *gorm.DB, id uint) *models.Member {
	t.Helper()
	var member models.Member
	if err := db.First(&member, id).Error; err != nil {
		t.Fatalf("reload member failed: %v", err)
	}
	return &member
}

func reloadAccrual(t *testing.T, db *gorm.DB, id uint) *models.AccrualRecord {
	t.Helper()
	var record models.AccrualRecord
	if err := db.First(&record, id).Error; err != nil {
		t.Fatalf("reload accrual failed: %v", err)
	}
	return &record
}

func mustDecimal(t *testing.T, raw string) decimal.Decimal {
	t.Helper()
	value, err := decimal.NewFromString(raw)
	if err != nil {
		t.Fatalf("parse decimal %q failed: %v", raw, err)
	}
	return value
}

func assertMoney(t *testing.T, label string, got models.Money, want string) {
	t.Helper()
	if !got.Decimal.Equal(mustDecimal(t, want)) {
		t.Fatalf("%s want %s got %s", label, want, got.String())
	}
}
