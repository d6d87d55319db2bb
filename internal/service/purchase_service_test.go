package service

import (
	"context"
	"errors"
	"testing"

	"github.com/nftlevel-next/internal/constants"
	"github.com/nftlevel-next/internal/models"
	"github.com/nftlevel-next/internal/repository"

	"github.com/shopspring/decimal"
)

func TestRecordPurchaseDistributesAlongShortChain(t *testing.T) {
	env := setupEngineTest(t)
	a := createTestMember(t, env.db, "NLA", nil, false)
	b := createTestMember(t, env.db, "NLB", a, false)
	c := createTestMember(t, env.db, "NLC", b, false)

	result, err := env.purchases.RecordPurchase(context.Background(), RecordPurchaseInput{
		MemberID: c.ID,
		NFTCode:  "NFT-0001",
		Series:   "genesis",
		Price:    decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("record purchase failed: %v", err)
	}
	assertMoney(t, "buyer balance", result.BuyerBalance, "80")
	assertMoney(t, "buyer reward", result.BuyerReward, "80")
	if !result.Activated {
		t.Fatalf("first purchase should activate buyer")
	}
	if len(result.Commissions) != 2 {
		t.Fatalf("want 2 commissions got %d", len(result.Commissions))
	}
	if result.Commissions[0].SponsorID != b.ID || result.Commissions[1].SponsorID != a.ID {
		t.Fatalf("unexpected commission order: %+v", result.Commissions)
	}
	if len(result.Accruals) != 2 || result.Accruals[0].ID == 0 {
		t.Fatalf("expected two persisted accrual records, got %+v", result.Accruals)
	}

	gotB := reloadMember(t, env.db, b.ID)
	assertMoney(t, "B balance", gotB.WalletBalance, "10")
	assertMoney(t, "B nested balance", gotB.Wallet.Balance, "10")
	assertMoney(t, "B sponsor income", gotB.SponsorIncome, "10")
	assertMoney(t, "B level income", gotB.LevelIncome, "0")
	assertMoney(t, "B direct volume", gotB.DirectVolume, "100")
	assertMoney(t, "B total volume", gotB.TotalVolume, "100")

	gotA := reloadMember(t, env.db, a.ID)
	assertMoney(t, "A balance", gotA.WalletBalance, "3")
	assertMoney(t, "A level income", gotA.LevelIncome, "3")
	assertMoney(t, "A sponsor income", gotA.SponsorIncome, "0")
	assertMoney(t, "A direct volume", gotA.DirectVolume, "0")
	assertMoney(t, "A total volume", gotA.TotalVolume, "100")

	gotC := reloadMember(t, env.db, c.ID)
	if !gotC.IsActivated || gotC.ActivatedAt == nil {
		t.Fatalf("buyer should be activated")
	}
	assertMoney(t, "C reward income", gotC.RewardIncome, "80")
	assertMoney(t, "C holding", gotC.HoldingWalletBalance, "100")

	var records []models.AccrualRecord
	if err := env.db.Order("level asc").Find(&records).Error; err != nil {
		t.Fatalf("list accruals failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("want 2 accrual records got %d", len(records))
	}
	first := records[0]
	if first.SponsorID != b.ID || first.Level != 1 || first.MemberID != c.ID {
		t.Fatalf("unexpected level 1 record: %+v", first)
	}
	assertMoney(t, "level 1 total", first.TotalCommission, "10")
	assertMoney(t, "level 1 daily", first.DailyAmount, "0.02739726")
	if first.DaysRemaining != 365 || first.DaysPaid != 0 || first.Status != constants.AccrualStatusActive {
		t.Fatalf("unexpected level 1 counters: %+v", first)
	}
	if first.NextPaymentDate.After(env.clock.Now()) {
		t.Fatalf("first payment should be due immediately")
	}
	if records[1].SponsorID != a.ID || records[1].Level != 2 {
		t.Fatalf("unexpected level 2 record: %+v", records[1])
	}
	assertMoney(t, "level 2 total", records[1].TotalCommission, "3")

	var ledger int64
	env.db.Model(&models.WalletTransaction{}).Count(&ledger)
	if ledger != 3 {
		t.Fatalf("want 3 ledger entries got %d", ledger)
	}
}

func TestRecordPurchaseTenLevelsSumsToPool(t *testing.T) {
	env := setupEngineTest(t)
	chain := createTestChain(t, env.db, "NLT", 12, true)
	buyer := chain[len(chain)-1]

	result, err := env.purchases.RecordPurchase(context.Background(), RecordPurchaseInput{
		MemberID: buyer.ID,
		NFTCode:  "NFT-TEN",
		Series:   "genesis",
	})
	if err != nil {
		t.Fatalf("record purchase failed: %v", err)
	}
	if len(result.Commissions) != 10 {
		t.Fatalf("want 10 levels got %d", len(result.Commissions))
	}
	total := result.BuyerReward.Decimal
	for _, item := range result.Commissions {
		total = total.Add(item.Amount.Decimal)
	}
	if !total.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("distribution must sum to pool, got %s", total)
	}

	// 第 11 层不参与分佣
	beyond := reloadMember(t, env.db, chain[0].ID)
	assertMoney(t, "level 11 balance", beyond.WalletBalance, "0")
	assertMoney(t, "level 11 volume", beyond.TotalVolume, "0")
	tenth := reloadMember(t, env.db, chain[1].ID)
	assertMoney(t, "level 10 balance", tenth.WalletBalance, "0.5")
}

func TestRecordPurchaseRootBuyerKeepsFullReward(t *testing.T) {
	env := setupEngineTest(t)
	root := createTestMember(t, env.db, "NLROOT", nil, false)

	result, err := env.purchases.RecordPurchase(context.Background(), RecordPurchaseInput{
		MemberID: root.ID, NFTCode: "NFT-R", Series: "genesis",
	})
	if err != nil {
		t.Fatalf("record purchase failed: %v", err)
	}
	assertMoney(t, "root balance", result.BuyerBalance, "80")
	if len(result.Commissions) != 0 || len(result.Accruals) != 0 {
		t.Fatalf("root buyer should produce no commissions: %+v", result)
	}
}

func TestRecordPurchaseDuplicateIsRejected(t *testing.T) {
	env := setupEngineTest(t)
	a := createTestMember(t, env.db, "NLDA", nil, true)
	b := createTestMember(t, env.db, "NLDB", a, false)
	input := RecordPurchaseInput{MemberID: b.ID, NFTCode: "NFT-DUP", Series: "genesis"}

	if _, err := env.purchases.RecordPurchase(context.Background(), input); err != nil {
		t.Fatalf("first purchase failed: %v", err)
	}
	if _, err := env.purchases.RecordPurchase(context.Background(), input); !errors.Is(err, ErrAlreadyPurchased) {
		t.Fatalf("expected ErrAlreadyPurchased, got %v", err)
	}

	var count int64
	env.db.Model(&models.AccrualRecord{}).Count(&count)
	if count != 1 {
		t.Fatalf("duplicate must not create accruals, got %d", count)
	}
	gotA := reloadMember(t, env.db, a.ID)
	assertMoney(t, "sponsor balance", gotA.WalletBalance, "10")
}

func TestRecordPurchaseValidation(t *testing.T) {
	env := setupEngineTest(t)
	member := createTestMember(t, env.db, "NLVAL", nil, false)

	cases := []struct {
		name  string
		input RecordPurchaseInput
		want  error
	}{
		{"missing member id", RecordPurchaseInput{NFTCode: "X", Series: "S"}, ErrMemberNotFound},
		{"unknown member", RecordPurchaseInput{MemberID: 9999, NFTCode: "X", Series: "S"}, ErrMemberNotFound},
		{"empty code", RecordPurchaseInput{MemberID: member.ID, Series: "S"}, ErrPurchaseInvalid},
		{"empty series", RecordPurchaseInput{MemberID: member.ID, NFTCode: "X"}, ErrPurchaseInvalid},
		{"wrong price", RecordPurchaseInput{MemberID: member.ID, NFTCode: "X", Series: "S", Price: decimal.NewFromInt(99)}, ErrPurchasePriceInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.purchases.RecordPurchase(context.Background(), tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("want %v got %v", tc.want, err)
			}
		})
	}

	var count int64
	env.db.Model(&models.NFTPurchase{}).Count(&count)
	if count != 0 {
		t.Fatalf("validation failures must not write purchases, got %d", count)
	}
}

func TestRecordPurchasePartialChainCommitsResolvedWrites(t *testing.T) {
	var failID uint
	env := setupEngineTestWithRepo(t, func(inner repository.MemberRepository) repository.MemberRepository {
		return &flakyMemberRepo{MemberRepository: inner, failID: &failID}
	})
	chain := createTestChain(t, env.db, "NLC", 3, true)
	buyer := chain[2]
	failID = chain[0].ID

	result, err := env.purchases.RecordPurchase(context.Background(), RecordPurchaseInput{
		MemberID: buyer.ID, NFTCode: "NFT-COMMIT", Series: "genesis",
	})
	if err != nil {
		t.Fatalf("lookup failure must not abort the purchase transaction: %v", err)
	}
	if !result.PendingLevels {
		t.Fatalf("expected pending levels")
	}

	var purchases int64
	env.db.Model(&models.NFTPurchase{}).Where("id = ?", result.Purchase.ID).Count(&purchases)
	if purchases != 1 {
		t.Fatalf("purchase row should be committed, got %d", purchases)
	}
	committed := reloadMember(t, env.db, buyer.ID)
	assertMoney(t, "buyer balance", committed.WalletBalance, "80")
	assertMoney(t, "buyer holding", committed.HoldingWalletBalance, "100")
	if !committed.IsActivated {
		t.Fatalf("buyer activation should be committed")
	}
	assertMoney(t, "level 1 balance", reloadMember(t, env.db, chain[1].ID).WalletBalance, "10")

	var records int64
	env.db.Model(&models.AccrualRecord{}).Where("nft_purchase_id = ?", result.Purchase.ID).Count(&records)
	if records != 1 {
		t.Fatalf("resolved level accrual should be committed, got %d", records)
	}
}

func TestRecordPurchasePartialChainQueuesRetry(t *testing.T) {
	var failID uint
	env := setupEngineTestWithRepo(t, func(inner repository.MemberRepository) repository.MemberRepository {
		return &flakyMemberRepo{MemberRepository: inner, failID: &failID}
	})
	chain := createTestChain(t, env.db, "NLP", 4, true)
	buyer := chain[3]
	failID = chain[1].ID

	result, err := env.purchases.RecordPurchase(context.Background(), RecordPurchaseInput{
		MemberID: buyer.ID, NFTCode: "NFT-PARTIAL", Series: "genesis",
	})
	if err != nil {
		t.Fatalf("partial chain should not fail purchase: %v", err)
	}
	if !result.PendingLevels || len(result.Commissions) != 1 {
		t.Fatalf("expected one resolved level and pending retry, got %+v", result)
	}
	if len(env.retryQueue.payloads) != 1 || env.retryQueue.payloads[0].PurchaseID != result.Purchase.ID {
		t.Fatalf("expected retry task for purchase, got %+v", env.retryQueue.payloads)
	}

	failID = 0
	distribution, err := env.purchases.RetryUpline(context.Background(), result.Purchase.ID)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if len(distribution.Levels) != 2 {
		t.Fatalf("retry should apply the two missing levels, got %+v", distribution.Levels)
	}

	var records []models.AccrualRecord
	env.db.Where("nft_purchase_id = ?", result.Purchase.ID).Order("level asc").Find(&records)
	if len(records) != 3 {
		t.Fatalf("want 3 accrual records after retry got %d", len(records))
	}
	assertMoney(t, "level 1 balance", reloadMember(t, env.db, chain[2].ID).WalletBalance, "10")
	assertMoney(t, "level 2 balance", reloadMember(t, env.db, chain[1].ID).WalletBalance, "3")
	assertMoney(t, "level 3 balance", reloadMember(t, env.db, chain[0].ID).WalletBalance, "2")
	assertMoney(t, "buyer balance", reloadMember(t, env.db, buyer.ID).WalletBalance, "80")

	again, err := env.purchases.RetryUpline(context.Background(), result.Purchase.ID)
	if err != nil {
		t.Fatalf("second retry failed: %v", err)
	}
	if len(again.Levels) != 0 {
		t.Fatalf("second retry must be a no-op, got %+v", again.Levels)
	}
}

func TestRetryUplineRejectsSponsorCycle(t *testing.T) {
	env := setupEngineTest(t)
	chain := createTestChain(t, env.db, "NLRC", 3, true)
	result := recordTestPurchase(t, env, chain[2], "NFT-CYCLE")
	if err := env.db.Model(chain[0]).Update("sponsor_id", chain[2].ID).Error; err != nil {
		t.Fatalf("create cycle failed: %v", err)
	}

	if _, err := env.purchases.RetryUpline(context.Background(), result.Purchase.ID); !errors.Is(err, ErrSponsorCycleDetected) {
		t.Fatalf("want ErrSponsorCycleDetected got %v", err)
	}
	var records int64
	env.db.Model(&models.AccrualRecord{}).Where("nft_purchase_id = ?", result.Purchase.ID).Count(&records)
	if records != 2 {
		t.Fatalf("cycle must not write new accrual records, got %d", records)
	}
}
