package service

import (
	"context"
	"time"

	"github.com/nftlevel-next/internal/constants"
	"github.com/nftlevel-next/internal/logger"
	"github.com/nftlevel-next/internal/metrics"
	"github.com/nftlevel-next/internal/models"
	"github.com/nftlevel-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// holdingWithdrawalStatuses 计入持仓扣减的提现状态
var holdingWithdrawalStatuses = []string{
	constants.WithdrawalStatusPending,
	constants.WithdrawalStatusApproved,
	constants.WithdrawalStatusCompleted,
}

// DeactivationSummary 一次停用巡检的汇总
type DeactivationSummary struct {
	RunID       string     `json:"run_id"`
	Checked     int        `json:"checked"`
	Updated     int        `json:"updated"`
	Scheduled   []uint     `json:"scheduled"`
	Deactivated []uint     `json:"deactivated"`
	Recovered   []uint     `json:"recovered"`
	Errors      []JobError `json:"errors"`
	Interrupted bool       `json:"interrupted"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  time.Time  `json:"finished_at"`
}

// PayoutResult 出售回款结果
type PayoutResult struct {
	Purchase             models.NFTPurchase `json:"purchase"`
	Balance              models.Money       `json:"balance"`
	HoldingWalletBalance models.Money       `json:"holding_wallet_balance"`
	DeactivationAt       *time.Time         `json:"deactivation_scheduled_at,omitempty"`
}

// HoldingService 持仓敞口与停用巡检服务
type HoldingService struct {
	memberRepo     repository.MemberRepository
	purchaseRepo   repository.PurchaseRepository
	withdrawalRepo repository.WithdrawalRepository
	walletSvc      *WalletService
	settings       EngineSettings
	clock          Clock
}

// NewHoldingService 创建持仓巡检服务
func NewHoldingService(
	memberRepo repository.MemberRepository,
	purchaseRepo repository.PurchaseRepository,
	withdrawalRepo repository.WithdrawalRepository,
	walletSvc *WalletService,
	settings EngineSettings,
	clock Clock,
) *HoldingService {
	return &HoldingService{
		memberRepo:     memberRepo,
		purchaseRepo:   purchaseRepo,
		withdrawalRepo: withdrawalRepo,
		walletSvc:      walletSvc,
		settings:       settings,
		clock:          resolveClock(clock),
	}
}

// ComputeHoldingBalance 购买总额 - 已回款金额 - 未驳回提现金额
func (s *HoldingService) ComputeHoldingBalance(memberID uint) (decimal.Decimal, error) {
	return s.computeHoldingBalance(s.purchaseRepo, s.withdrawalRepo, memberID)
}

func (s *HoldingService) computeHoldingBalance(purchaseRepo repository.PurchaseRepository, withdrawalRepo repository.WithdrawalRepository, memberID uint) (decimal.Decimal, error) {
	purchased, err := purchaseRepo.SumPriceByMember(memberID)
	if err != nil {
		return decimal.Zero, err
	}
	paidOut, err := purchaseRepo.SumPaidOutByMember(memberID)
	if err != nil {
		return decimal.Zero, err
	}
	withdrawn, err := withdrawalRepo.SumByMemberStatuses(memberID, holdingWithdrawalStatuses)
	if err != nil {
		return decimal.Zero, err
	}
	return purchased.Sub(paidOut).Sub(withdrawn).Round(models.MoneyScale), nil
}

// RunDeactivationCheck 巡检全部已激活会员：持久化持仓、安排或执行停用、撤销已恢复会员的停用计划
func (s *HoldingService) RunDeactivationCheck(ctx context.Context) (*DeactivationSummary, error) {
	lock, runID, err := acquireJob(ctx, constants.JobDeactivationCheck, s.settings.JobLockTTL)
	if err != nil {
		metrics.JobRunsTotal.WithLabelValues(constants.JobDeactivationCheck, "locked").Inc()
		return nil, err
	}
	defer func() {
		if releaseErr := lock.Release(context.Background()); releaseErr != nil {
			logger.Warnw("deactivation_check_lock_release_failed", "run_id", runID, "error", releaseErr)
		}
	}()

	log := logger.Job(constants.JobDeactivationCheck, runID)
	now := s.clock.Now()
	summary := &DeactivationSummary{
		RunID:       runID,
		Scheduled:   []uint{},
		Deactivated: []uint{},
		Recovered:   []uint{},
		Errors:      []JobError{},
		StartedAt:   now,
	}

	batch := s.settings.TickBatchSize
	var afterID uint
	for {
		if err := ctx.Err(); err != nil {
			log.Warnw("deactivation_check_cancelled", "checked", summary.Checked, "error", err)
			summary.Interrupted = true
			break
		}
		members, err := s.memberRepo.ListActivated(afterID, batch)
		if err != nil {
			metrics.JobRunsTotal.WithLabelValues(constants.JobDeactivationCheck, "failed").Inc()
			return nil, err
		}
		if len(members) == 0 {
			break
		}
		for i := range members {
			member := &members[i]
			afterID = member.ID
			summary.Checked++
			if err := s.checkMember(member, now, summary); err != nil {
				summary.Errors = append(summary.Errors, JobError{MemberID: member.ID, Reason: err.Error()})
				log.Warnw("deactivation_check_member_failed", "member_id", member.ID, "error", err)
			}
		}
		if len(members) < batch {
			break
		}
	}

	s.invalidateDeactivated(context.WithoutCancel(ctx), summary.Deactivated)
	summary.FinishedAt = s.clock.Now()
	metrics.JobDuration.WithLabelValues(constants.JobDeactivationCheck).Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())
	metrics.JobRunsTotal.WithLabelValues(constants.JobDeactivationCheck, jobOutcome(summary.Interrupted)).Inc()
	log.Infow("deactivation_check_finished",
		"interrupted", summary.Interrupted,
		"checked", summary.Checked,
		"updated", summary.Updated,
		"scheduled", len(summary.Scheduled),
		"deactivated", len(summary.Deactivated),
		"recovered", len(summary.Recovered),
		"errors", len(summary.Errors),
	)
	return summary, nil
}

func (s *HoldingService) checkMember(member *models.Member, now time.Time, summary *DeactivationSummary) error {
	holding, err := s.ComputeHoldingBalance(member.ID)
	if err != nil {
		return err
	}
	updates := map[string]interface{}{}
	if !holding.Equal(member.HoldingWalletBalance.Decimal) {
		updates["holding_wallet_balance"] = models.NewMoneyFromDecimal(holding)
		summary.Updated++
	}

	event := ""
	switch {
	case !holding.IsPositive() && member.DeactivationScheduledAt == nil:
		scheduledAt := now.Add(s.settings.DeactivationGrace)
		updates["deactivation_scheduled_at"] = scheduledAt
		event = "scheduled"
	case !holding.IsPositive() && !member.DeactivationScheduledAt.After(now):
		updates["is_activated"] = false
		updates["deactivation_scheduled_at"] = nil
		event = "deactivated"
	case holding.IsPositive() && member.DeactivationScheduledAt != nil:
		updates["deactivation_scheduled_at"] = nil
		event = "recovered"
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = now
	if err := s.memberRepo.UpdateFields(member.ID, updates); err != nil {
		return err
	}

	switch event {
	case "scheduled":
		summary.Scheduled = append(summary.Scheduled, member.ID)
	case "deactivated":
		summary.Deactivated = append(summary.Deactivated, member.ID)
	case "recovered":
		summary.Recovered = append(summary.Recovered, member.ID)
	}
	if event != "" {
		metrics.DeactivationEvents.WithLabelValues(event).Inc()
		logger.Infow("member_deactivation_"+event,
			"member_id", member.ID,
			"holding_wallet_balance", holding.String(),
		)
	}
	return nil
}

// invalidateDeactivated 停用改变了上级链各层的激活人数，清除会员及其上级的报表缓存
func (s *HoldingService) invalidateDeactivated(ctx context.Context, memberIDs []uint) {
	if len(memberIDs) == 0 {
		return
	}
	members, err := s.memberRepo.GetByIDs(memberIDs)
	if err != nil {
		logger.Warnw("deactivation_report_invalidate_failed", "members", len(memberIDs), "error", err)
		invalidateReportCache(ctx, memberIDs...)
		return
	}
	affected := make([]uint, 0, len(memberIDs)*2)
	for i := range members {
		affected = append(affected, affectedMemberIDs(members[i].ID, walkUpline(s.memberRepo, &members[i], s.settings.MaxLevels))...)
	}
	invalidateReportCache(ctx, affected...)
}

// PayoutPurchase 管理端登记藏品出售回款：入账余额、扣减持仓，持仓归零时安排停用
func (s *HoldingService) PayoutPurchase(ctx context.Context, purchaseID uint, amount decimal.Decimal) (*PayoutResult, error) {
	amount = amount.Round(models.MoneyScale)
	if !amount.IsPositive() {
		return nil, ErrPayoutAmountInvalid
	}
	now := s.clock.Now()
	result := &PayoutResult{}
	var memberID uint

	err := s.memberRepo.Transaction(func(tx *gorm.DB) error {
		purchaseRepo := s.purchaseRepo.WithTx(tx)
		memberRepo := s.memberRepo.WithTx(tx)

		purchase, err := purchaseRepo.GetByID(purchaseID)
		if err != nil {
			return err
		}
		if purchase == nil {
			return ErrPurchaseNotFound
		}
		if purchase.PayoutStatus != constants.PayoutStatusUnpaid {
			return ErrPurchaseAlreadyPaid
		}
		affected, err := purchaseRepo.MarkPaidOut(purchase.ID, amount, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrPurchaseAlreadyPaid
		}
		memberID = purchase.MemberID

		id := purchase.ID
		if _, err := s.walletSvc.Apply(tx, WalletCreditInput{
			MemberID:      purchase.MemberID,
			Amount:        amount,
			TxnType:       constants.WalletTxnTypeNFTPayout,
			Reference:     payoutReference(purchase.ID),
			Remark:        constants.WalletTxnTypeNFTPayout,
			NFTPurchaseID: &id,
			At:            now,
		}); err != nil {
			return err
		}
		if err := memberRepo.AddHoldingBalance(purchase.MemberID, amount.Neg()); err != nil {
			return err
		}

		member, err := memberRepo.GetByID(purchase.MemberID)
		if err != nil {
			return err
		}
		if member == nil {
			return ErrMemberNotFound
		}
		if member.IsActivated && !member.HoldingWalletBalance.Decimal.IsPositive() && member.DeactivationScheduledAt == nil {
			scheduledAt := now.Add(s.settings.DeactivationGrace)
			if err := memberRepo.UpdateFields(member.ID, map[string]interface{}{
				"deactivation_scheduled_at": scheduledAt,
				"updated_at":                now,
			}); err != nil {
				return err
			}
			member.DeactivationScheduledAt = &scheduledAt
			metrics.DeactivationEvents.WithLabelValues("scheduled").Inc()
		}

		refreshed, err := purchaseRepo.GetByID(purchase.ID)
		if err != nil {
			return err
		}
		if refreshed != nil {
			result.Purchase = *refreshed
		}
		result.Balance = member.WalletBalance
		result.HoldingWalletBalance = member.HoldingWalletBalance
		result.DeactivationAt = member.DeactivationScheduledAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	invalidateReportCache(ctx, memberID)
	logger.Infow("purchase_paid_out",
		"purchase_id", purchaseID,
		"member_id", memberID,
		"amount", amount.String(),
		"deactivation_scheduled", result.DeactivationAt != nil,
	)
	return result, nil
}
