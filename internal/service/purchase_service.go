package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nftlevel-next/internal/logger"
	"github.com/nftlevel-next/internal/metrics"
	"github.com/nftlevel-next/internal/models"
	"github.com/nftlevel-next/internal/queue"
	"github.com/nftlevel-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const uplineRetryDelay = 30 * time.Second

// UplineRetryQueue 上级链补发任务投递
type UplineRetryQueue interface {
	EnqueueRewardUplineRetry(payload queue.RewardUplineRetryPayload, delay time.Duration) error
}

// PurchaseService 购买登记服务
type PurchaseService struct {
	memberRepo   repository.MemberRepository
	purchaseRepo repository.PurchaseRepository
	accrualRepo  repository.AccrualRepository
	rewardSvc    *RewardService
	retryQueue   UplineRetryQueue
	settings     EngineSettings
	clock        Clock
}

// NewPurchaseService 创建购买登记服务
func NewPurchaseService(
	memberRepo repository.MemberRepository,
	purchaseRepo repository.PurchaseRepository,
	accrualRepo repository.AccrualRepository,
	rewardSvc *RewardService,
	retryQueue UplineRetryQueue,
	settings EngineSettings,
	clock Clock,
) *PurchaseService {
	return &PurchaseService{
		memberRepo:   memberRepo,
		purchaseRepo: purchaseRepo,
		accrualRepo:  accrualRepo,
		rewardSvc:    rewardSvc,
		retryQueue:   retryQueue,
		settings:     settings,
		clock:        resolveClock(clock),
	}
}

// RecordPurchaseInput 购买登记输入
type RecordPurchaseInput struct {
	MemberID uint
	NFTCode  string
	Series   string
	Price    decimal.Decimal // 为零时使用配置价格
}

// PurchaseResult 购买登记结果
type PurchaseResult struct {
	Purchase      models.NFTPurchase     `json:"purchase"`
	BuyerBalance  models.Money           `json:"buyer_balance"`
	BuyerReward   models.Money           `json:"buyer_reward"`
	Commissions   []LevelCommission      `json:"commissions"`
	Accruals      []models.AccrualRecord `json:"accruals"`
	Activated     bool                   `json:"activated"`
	PendingLevels bool                   `json:"pending_levels"`
}

// RecordPurchase 登记一次购买，购买记录、全部入账与分期记录在同一事务内写入
func (s *PurchaseService) RecordPurchase(ctx context.Context, input RecordPurchaseInput) (*PurchaseResult, error) {
	code := strings.TrimSpace(input.NFTCode)
	series := strings.TrimSpace(input.Series)
	if input.MemberID == 0 {
		return nil, ErrMemberNotFound
	}
	if code == "" || series == "" {
		return nil, ErrPurchaseInvalid
	}
	price := input.Price.Round(models.MoneyScale)
	if price.IsZero() {
		price = s.settings.NFTPrice
	}
	if !price.Equal(s.settings.NFTPrice) {
		return nil, ErrPurchasePriceInvalid
	}

	buyer, err := s.memberRepo.GetByID(input.MemberID)
	if err != nil {
		return nil, err
	}
	if buyer == nil {
		return nil, ErrMemberNotFound
	}
	existing, err := s.purchaseRepo.GetByMemberAndCode(buyer.ID, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		metrics.PurchasesTotal.WithLabelValues("duplicate").Inc()
		return nil, ErrAlreadyPurchased
	}

	now := s.clock.Now()
	result := &PurchaseResult{}
	upline := s.rewardSvc.ResolveUpline(buyer)
	err = s.memberRepo.Transaction(func(tx *gorm.DB) error {
		memberRepo := s.memberRepo.WithTx(tx)
		purchase := &models.NFTPurchase{
			MemberID:      buyer.ID,
			NFTCode:       code,
			Series:        series,
			Price:         models.NewMoneyFromDecimal(price),
			PurchasedAt:   now,
			PaidOutAmount: models.ZeroMoney(),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.purchaseRepo.WithTx(tx).Create(purchase); err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyPurchased
			}
			return err
		}

		distribution, err := s.rewardSvc.Distribute(tx, purchase, buyer, upline)
		if err != nil {
			return err
		}

		if !buyer.IsActivated {
			if err := memberRepo.Activate(buyer.ID, now); err != nil {
				return err
			}
			result.Activated = true
		} else if buyer.DeactivationScheduledAt != nil {
			if err := memberRepo.UpdateFields(buyer.ID, map[string]interface{}{
				"deactivation_scheduled_at": nil,
				"updated_at":                now,
			}); err != nil {
				return err
			}
		}
		if err := memberRepo.AddHoldingBalance(buyer.ID, price); err != nil {
			return err
		}

		updated, err := memberRepo.GetByID(buyer.ID)
		if err != nil {
			return err
		}
		if updated == nil {
			return ErrMemberNotFound
		}
		result.Purchase = *purchase
		result.BuyerBalance = updated.WalletBalance
		result.BuyerReward = distribution.BuyerReward
		result.Commissions = distribution.Levels
		result.Accruals = distribution.Accruals
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyPurchased) {
			metrics.PurchasesTotal.WithLabelValues("duplicate").Inc()
		} else {
			metrics.PurchasesTotal.WithLabelValues("failed").Inc()
		}
		return nil, err
	}
	metrics.PurchasesTotal.WithLabelValues("recorded").Inc()

	if upline.Err != nil {
		result.PendingLevels = true
		logger.Warnw("reward_upline_partial",
			"purchase_id", result.Purchase.ID,
			"member_id", buyer.ID,
			"resolved_levels", upline.Levels(),
			"error", upline.Err,
		)
		s.enqueueUplineRetry(result.Purchase.ID)
	}

	invalidateReportCache(ctx, affectedMemberIDs(buyer.ID, upline)...)
	logger.Infow("purchase_recorded",
		"purchase_id", result.Purchase.ID,
		"member_id", buyer.ID,
		"nft_code", code,
		"levels_paid", len(result.Commissions),
		"accruals_created", len(result.Accruals),
		"activated", result.Activated,
	)
	return result, nil
}

// RetryUpline 对上级链未完整解析的购买补发缺失层级，已存在分期记录的层级跳过
func (s *PurchaseService) RetryUpline(ctx context.Context, purchaseID uint) (*Distribution, error) {
	purchase, err := s.purchaseRepo.GetByID(purchaseID)
	if err != nil {
		return nil, err
	}
	if purchase == nil {
		return nil, ErrPurchaseNotFound
	}
	buyer, err := s.memberRepo.GetByID(purchase.MemberID)
	if err != nil {
		return nil, err
	}
	if buyer == nil {
		return nil, ErrMemberNotFound
	}

	upline := s.rewardSvc.ResolveUpline(buyer)
	if upline.Err != nil {
		logger.Warnw("reward_upline_retry_failed", "purchase_id", purchase.ID, "error", upline.Err)
		return nil, upline.Err
	}
	if upline.CycleAt != 0 {
		logger.Errorw("reward_upline_retry_cycle",
			"purchase_id", purchase.ID,
			"member_id", buyer.ID,
			"cycle_at", upline.CycleAt,
		)
		return nil, fmt.Errorf("%w: member %d", ErrSponsorCycleDetected, upline.CycleAt)
	}

	var distribution *Distribution
	err = s.memberRepo.Transaction(func(tx *gorm.DB) error {
		existing, err := s.accrualRepo.WithTx(tx).ListByPurchase(purchase.ID)
		if err != nil {
			return err
		}
		skip := make(map[int]struct{}, len(existing))
		for _, record := range existing {
			skip[record.Level] = struct{}{}
		}
		distribution, err = s.rewardSvc.distribute(tx, purchase, buyer, upline, distributeOptions{skipLevels: skip})
		return err
	})
	if err != nil {
		logger.Warnw("reward_upline_retry_failed", "purchase_id", purchase.ID, "error", err)
		return nil, err
	}
	invalidateReportCache(ctx, affectedMemberIDs(buyer.ID, distribution.Upline)...)
	logger.Infow("reward_upline_retry_applied",
		"purchase_id", purchase.ID,
		"levels_applied", len(distribution.Levels),
	)
	return distribution, nil
}

// ListByMember 分页查询会员购买记录
func (s *PurchaseService) ListByMember(memberID uint, page, pageSize int) ([]models.NFTPurchase, int64, error) {
	return s.purchaseRepo.ListByMember(memberID, page, pageSize)
}

func (s *PurchaseService) enqueueUplineRetry(purchaseID uint) {
	if s.retryQueue == nil {
		logger.Warnw("reward_upline_retry_queue_missing", "purchase_id", purchaseID)
		return
	}
	if err := s.retryQueue.EnqueueRewardUplineRetry(queue.RewardUplineRetryPayload{PurchaseID: purchaseID}, uplineRetryDelay); err != nil {
		logger.Errorw("reward_upline_retry_enqueue_failed", "purchase_id", purchaseID, "error", err)
	}
}

func affectedMemberIDs(memberID uint, upline *UplineResult) []uint {
	ids := []uint{memberID}
	if upline == nil {
		return ids
	}
	for _, entry := range upline.Entries {
		ids = append(ids, entry.Member.ID)
	}
	return ids
}
