package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nftlevel-next/internal/constants"
	"github.com/nftlevel-next/internal/models"
)

func containsID(ids []uint, id uint) bool {
	for _, item := range ids {
		if item == id {
			return true
		}
	}
	return false
}

func TestDeactivationCheckGraceWindow(t *testing.T) {
	env := setupEngineTest(t)
	holder := createTestMember(t, env.db, "NLHOLD", nil, false)
	recordTestPurchase(t, env, holder, "NFT-HOLD")
	empty := createTestMember(t, env.db, "NLEMPTY", nil, true)
	start := env.clock.Now()

	first, err := env.holding.RunDeactivationCheck(context.Background())
	if err != nil {
		t.Fatalf("run check failed: %v", err)
	}
	if first.Checked != 2 {
		t.Fatalf("expected 2 activated members checked, got %d", first.Checked)
	}
	if !containsID(first.Scheduled, empty.ID) || containsID(first.Scheduled, holder.ID) {
		t.Fatalf("unexpected scheduled set: %v", first.Scheduled)
	}
	scheduled := reloadMember(t, env.db, empty.ID)
	if scheduled.DeactivationScheduledAt == nil || !scheduled.DeactivationScheduledAt.Equal(start.Add(10*time.Minute)) {
		t.Fatalf("deactivation should be scheduled at now+10m, got %v", scheduled.DeactivationScheduledAt)
	}
	if !scheduled.IsActivated {
		t.Fatalf("member must stay activated during grace window")
	}

	env.clock.Advance(5 * time.Minute)
	mid, err := env.holding.RunDeactivationCheck(context.Background())
	if err != nil {
		t.Fatalf("run check failed: %v", err)
	}
	if len(mid.Scheduled) != 0 || len(mid.Deactivated) != 0 {
		t.Fatalf("nothing should happen inside grace window: %+v", mid)
	}
	if !reloadMember(t, env.db, empty.ID).DeactivationScheduledAt.Equal(start.Add(10 * time.Minute)) {
		t.Fatalf("existing schedule must not move")
	}

	env.clock.Advance(5 * time.Minute)
	last, err := env.holding.RunDeactivationCheck(context.Background())
	if err != nil {
		t.Fatalf("run check failed: %v", err)
	}
	if len(last.Deactivated) != 1 || last.Deactivated[0] != empty.ID {
		t.Fatalf("member should be deactivated after grace: %+v", last)
	}
	gone := reloadMember(t, env.db, empty.ID)
	if gone.IsActivated || gone.DeactivationScheduledAt != nil {
		t.Fatalf("unexpected member after deactivation: activated=%v scheduled=%v", gone.IsActivated, gone.DeactivationScheduledAt)
	}
	if !reloadMember(t, env.db, holder.ID).IsActivated {
		t.Fatalf("member with holdings must stay activated")
	}
}

func TestDeactivationCheckRecoversAndPersistsHolding(t *testing.T) {
	env := setupEngineTest(t)
	member := createTestMember(t, env.db, "NLREC", nil, true)

	if _, err := env.holding.RunDeactivationCheck(context.Background()); err != nil {
		t.Fatalf("run check failed: %v", err)
	}
	if reloadMember(t, env.db, member.ID).DeactivationScheduledAt == nil {
		t.Fatalf("zero holding should schedule deactivation")
	}

	// 绕过购买流程直接写入，验证巡检会重算并持久化持仓
	now := env.clock.Now()
	if err := env.db.Create(&models.NFTPurchase{
		MemberID:     member.ID,
		NFTCode:      "NFT-DIRECT",
		Series:       "genesis",
		Price:        models.NewMoneyFromInt(100),
		PurchasedAt:  now,
		PayoutStatus: constants.PayoutStatusUnpaid,
	}).Error; err != nil {
		t.Fatalf("create purchase failed: %v", err)
	}

	summary, err := env.holding.RunDeactivationCheck(context.Background())
	if err != nil {
		t.Fatalf("run check failed: %v", err)
	}
	if summary.Updated != 1 || !containsID(summary.Recovered, member.ID) {
		t.Fatalf("member should be recovered with updated holding: %+v", summary)
	}
	got := reloadMember(t, env.db, member.ID)
	if got.DeactivationScheduledAt != nil || !got.IsActivated {
		t.Fatalf("schedule should be cleared: %+v", got)
	}
	assertMoney(t, "holding", got.HoldingWalletBalance, "100")

	holding, err := env.holding.ComputeHoldingBalance(member.ID)
	if err != nil {
		t.Fatalf("compute holding failed: %v", err)
	}
	if !holding.Equal(mustDecimal(t, "100")) {
		t.Fatalf("unexpected computed holding: %s", holding)
	}
}

func TestDeactivatedSponsorAccrualIsSkipped(t *testing.T) {
	env := setupEngineTest(t)
	a := createTestMember(t, env.db, "NLDA", nil, true)
	b := createTestMember(t, env.db, "NLDB", a, false)
	purchase := recordTestPurchase(t, env, b, "NFT-DEACT")

	if _, err := env.holding.RunDeactivationCheck(context.Background()); err != nil {
		t.Fatalf("run check failed: %v", err)
	}
	env.clock.Advance(10 * time.Minute)
	if _, err := env.holding.RunDeactivationCheck(context.Background()); err != nil {
		t.Fatalf("run check failed: %v", err)
	}
	if reloadMember(t, env.db, a.ID).IsActivated {
		t.Fatalf("sponsor without holdings should be deactivated")
	}

	summary, err := env.accruals.RunTick(context.Background())
	if err != nil {
		t.Fatalf("run tick failed: %v", err)
	}
	if summary.SkippedInactive != 1 || summary.Processed != 0 {
		t.Fatalf("deactivated sponsor must be skipped: %+v", summary)
	}
	if reloadAccrual(t, env.db, purchase.Accruals[0].ID).DaysRemaining != 365 {
		t.Fatalf("skipped record must keep its counters")
	}
}

func TestPayoutPurchaseSchedulesDeactivation(t *testing.T) {
	env := setupEngineTest(t)
	member := createTestMember(t, env.db, "NLPAY", nil, false)
	purchase := recordTestPurchase(t, env, member, "NFT-PAY")
	assertMoney(t, "holding after purchase", reloadMember(t, env.db, member.ID).HoldingWalletBalance, "100")

	result, err := env.holding.PayoutPurchase(context.Background(), purchase.Purchase.ID, mustDecimal(t, "120"))
	if err != nil {
		t.Fatalf("payout failed: %v", err)
	}
	if result.Purchase.PayoutStatus != constants.PayoutStatusPaid {
		t.Fatalf("purchase should be marked paid, got %s", result.Purchase.PayoutStatus)
	}
	assertMoney(t, "balance", result.Balance, "200")
	assertMoney(t, "holding", result.HoldingWalletBalance, "-20")
	if result.DeactivationAt == nil || !result.DeactivationAt.Equal(env.clock.Now().Add(10*time.Minute)) {
		t.Fatalf("payout should schedule deactivation, got %v", result.DeactivationAt)
	}

	got := reloadMember(t, env.db, member.ID)
	assertMoney(t, "nested balance", got.Wallet.Balance, "200")
	if got.DeactivationScheduledAt == nil {
		t.Fatalf("schedule should be persisted")
	}

	if _, err := env.holding.PayoutPurchase(context.Background(), purchase.Purchase.ID, mustDecimal(t, "1")); !errors.Is(err, ErrPurchaseAlreadyPaid) {
		t.Fatalf("expected ErrPurchaseAlreadyPaid, got %v", err)
	}
	assertMoney(t, "balance after rejected payout", reloadMember(t, env.db, member.ID).WalletBalance, "200")

	env.clock.Advance(10 * time.Minute)
	summary, err := env.holding.RunDeactivationCheck(context.Background())
	if err != nil {
		t.Fatalf("run check failed: %v", err)
	}
	if !containsID(summary.Deactivated, member.ID) {
		t.Fatalf("paid out member should be deactivated after grace: %+v", summary)
	}
}

func TestPayoutPurchaseKeepsMemberWithOtherHoldings(t *testing.T) {
	env := setupEngineTest(t)
	member := createTestMember(t, env.db, "NLTWO", nil, false)
	first := recordTestPurchase(t, env, member, "NFT-TWO-1")
	recordTestPurchase(t, env, member, "NFT-TWO-2")

	result, err := env.holding.PayoutPurchase(context.Background(), first.Purchase.ID, mustDecimal(t, "100"))
	if err != nil {
		t.Fatalf("payout failed: %v", err)
	}
	assertMoney(t, "holding", result.HoldingWalletBalance, "100")
	if result.DeactivationAt != nil {
		t.Fatalf("member with remaining holdings must not be scheduled")
	}
}

func TestPayoutPurchaseValidation(t *testing.T) {
	env := setupEngineTest(t)
	if _, err := env.holding.PayoutPurchase(context.Background(), 1, mustDecimal(t, "0")); !errors.Is(err, ErrPayoutAmountInvalid) {
		t.Fatalf("expected ErrPayoutAmountInvalid, got %v", err)
	}
	if _, err := env.holding.PayoutPurchase(context.Background(), 999, mustDecimal(t, "5")); !errors.Is(err, ErrPurchaseNotFound) {
		t.Fatalf("expected ErrPurchaseNotFound, got %v", err)
	}
}

func TestDeactivationInvalidatesUplineReports(t *testing.T) {
	env := setupEngineTest(t)
	chain := createTestChain(t, env.db, "NLDI", 3, true)
	leaf := chain[2]
	if _, err := env.holding.RunDeactivationCheck(context.Background()); err != nil {
		t.Fatalf("schedule check failed: %v", err)
	}
	invalidated := recordReportInvalidations(t)

	env.clock.Advance(10 * time.Minute)
	summary, err := env.holding.RunDeactivationCheck(context.Background())
	if err != nil {
		t.Fatalf("run check failed: %v", err)
	}
	if !containsID(summary.Deactivated, leaf.ID) {
		t.Fatalf("leaf should be deactivated: %+v", summary)
	}
	for _, member := range chain {
		if !containsID(*invalidated, member.ID) {
			t.Fatalf("member %d reports should be invalidated, got %v", member.ID, *invalidated)
		}
	}
}
