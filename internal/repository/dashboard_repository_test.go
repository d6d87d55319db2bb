package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nftlevel-next/internal/constants"
	"github.com/nftlevel-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupDashboardRepositoryTest(t *testing.T) (*GormDashboardRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
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
		t.Fatalf("migrate dashboard models failed: %v", err)
	}
	return NewDashboardRepository(db), db
}

func TestDashboardOverviewAggregatesEngineState(t *testing.T) {
	repo, db := setupDashboardRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	active := models.Member{MemberCode: "NLDASH001", IsActivated: true, SponsorIncome: models.NewMoneyFromInt(10)}
	idle := models.Member{MemberCode: "NLDASH002"}
	if err := db.Create(&active).Error; err != nil {
		t.Fatalf("create member failed: %v", err)
	}
	if err := db.Create(&idle).Error; err != nil {
		t.Fatalf("create member failed: %v", err)
	}
	purchase := models.NFTPurchase{
		MemberID:     idle.ID,
		NFTCode:      "NFT-1",
		Series:       "genesis",
		Price:        models.NewMoneyFromInt(100),
		PurchasedAt:  now,
		PayoutStatus: constants.PayoutStatusUnpaid,
	}
	if err := db.Create(&purchase).Error; err != nil {
		t.Fatalf("create purchase failed: %v", err)
	}
	txns := []models.WalletTransaction{
		{MemberID: active.ID, Type: constants.WalletTxnTypeSponsorIncome, Direction: constants.WalletTxnDirectionIn, Amount: models.NewMoneyFromInt(10), Reference: "r-1"},
		{MemberID: active.ID, Type: constants.WalletTxnTypeAccrualIncome, Direction: constants.WalletTxnDirectionIn, Amount: models.NewMoneyFromDecimal(decimal.RequireFromString("0.02739726")), Reference: "r-2"},
		{MemberID: idle.ID, Type: constants.WalletTxnTypePurchaseReward, Direction: constants.WalletTxnDirectionIn, Amount: models.NewMoneyFromInt(80), Reference: "r-3"},
	}
	if err := db.Create(&txns).Error; err != nil {
		t.Fatalf("create txns failed: %v", err)
	}

	row, err := repo.GetOverview(now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("get overview failed: %v", err)
	}
	if row.MembersTotal != 2 || row.ActivatedMembers != 1 {
		t.Fatalf("unexpected member counts: %+v", row)
	}
	if row.Purchases != 1 || !row.PurchaseVolume.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected purchase stats: %d %s", row.Purchases, row.PurchaseVolume)
	}
	if !row.ImmediateRewards.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("immediate rewards want 90 got %s", row.ImmediateRewards)
	}
	if !row.AccrualDisbursed.Equal(decimal.RequireFromString("0.02739726")) {
		t.Fatalf("accrual disbursed unexpected: %s", row.AccrualDisbursed)
	}

	earners, err := repo.GetTopEarners(5)
	if err != nil {
		t.Fatalf("get top earners failed: %v", err)
	}
	if len(earners) == 0 || earners[0].MemberID != active.ID {
		t.Fatalf("top earner should be the sponsor, got %+v", earners)
	}
}
