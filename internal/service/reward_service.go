package service

import (
	"time"

	"github.com/nftlevel-next/internal/constants"
	"github.com/nftlevel-next/internal/metrics"
	"github.com/nftlevel-next/internal/models"
	"github.com/nftlevel-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LevelCommission 单层即时佣金
type LevelCommission struct {
	Level       int          `json:"level"`
	SponsorID   uint         `json:"sponsor_id"`
	SponsorCode string       `json:"sponsor_code"`
	Amount      models.Money `json:"amount"`
}

// Distribution 一次购买的奖励分配结果
type Distribution struct {
	BuyerReward models.Money           `json:"buyer_reward"`
	Levels      []LevelCommission      `json:"levels"`
	Accruals    []models.AccrualRecord `json:"accruals"`
	Upline      *UplineResult          `json:"-"`
}

// distributeOptions 控制是否给购买人入账以及需要跳过的层级（补发场景）
type distributeOptions struct {
	creditBuyer bool
	skipLevels  map[int]struct{}
}

// RewardService 即时奖励分配服务
type RewardService struct {
	memberRepo  repository.MemberRepository
	accrualRepo repository.AccrualRepository
	walletSvc   *WalletService
	settings    EngineSettings
}

// NewRewardService 创建即时奖励分配服务
func NewRewardService(
	memberRepo repository.MemberRepository,
	accrualRepo repository.AccrualRepository,
	walletSvc *WalletService,
	settings EngineSettings,
) *RewardService {
	return &RewardService{
		memberRepo:  memberRepo,
		accrualRepo: accrualRepo,
		walletSvc:   walletSvc,
		settings:    settings,
	}
}

// ResolveUpline 在事务外读取购买人的上级链，读取失败只截断链条，不会污染随后的写事务
func (s *RewardService) ResolveUpline(buyer *models.Member) *UplineResult {
	return walkUpline(s.memberRepo, buyer, s.settings.CommissionLevels())
}

// Distribute 在事务内分配购买奖励：购买人奖励、各层佣金、业绩累计与分期记录
// upline 须由 ResolveUpline 预先解析。
func (s *RewardService) Distribute(tx *gorm.DB, purchase *models.NFTPurchase, buyer *models.Member, upline *UplineResult) (*Distribution, error) {
	return s.distribute(tx, purchase, buyer, upline, distributeOptions{creditBuyer: true})
}

func (s *RewardService) distribute(tx *gorm.DB, purchase *models.NFTPurchase, buyer *models.Member, upline *UplineResult, opts distributeOptions) (*Distribution, error) {
	if purchase == nil || buyer == nil {
		return nil, ErrPurchaseInvalid
	}
	if upline == nil {
		upline = &UplineResult{Entries: []UplineEntry{}}
	}
	memberRepo := s.memberRepo.WithTx(tx)
	accrualRepo := s.accrualRepo.WithTx(tx)
	at := purchase.PurchasedAt
	purchaseID := purchase.ID

	result := &Distribution{
		BuyerReward: models.ZeroMoney(),
		Levels:      make([]LevelCommission, 0, s.settings.CommissionLevels()),
		Accruals:    make([]models.AccrualRecord, 0, s.settings.CommissionLevels()),
	}

	if opts.creditBuyer {
		reward := s.settings.BuyerReward()
		if reward.IsPositive() {
			if _, err := s.walletSvc.Apply(tx, WalletCreditInput{
				MemberID:      buyer.ID,
				Amount:        reward,
				TxnType:       constants.WalletTxnTypePurchaseReward,
				Reference:     purchaseRewardReference(purchaseID),
				Remark:        "purchase reward",
				NFTPurchaseID: &purchaseID,
				RewardIncome:  true,
				At:            at,
			}); err != nil {
				return nil, err
			}
		}
		result.BuyerReward = models.NewMoneyFromDecimal(reward)
		metrics.CommissionsDistributed.WithLabelValues("buyer").Add(reward.InexactFloat64())
	}

	result.Upline = upline

	price := purchase.Price.Decimal
	for _, entry := range upline.Entries {
		if _, skip := opts.skipLevels[entry.Level]; skip {
			continue
		}
		amount := s.settings.LevelAmount(entry.Level)
		sponsor := entry.Member

		if amount.IsPositive() {
			txnType := constants.WalletTxnTypeLevelIncome
			input := WalletCreditInput{
				MemberID:      sponsor.ID,
				Amount:        amount,
				Reference:     levelCommissionReference(purchaseID, entry.Level),
				Level:         entry.Level,
				NFTPurchaseID: &purchaseID,
				At:            at,
			}
			if entry.Level == 1 {
				txnType = constants.WalletTxnTypeSponsorIncome
				input.SponsorIncome = true
			} else {
				input.LevelIncome = true
			}
			input.TxnType = txnType
			input.Remark = txnType
			if _, err := s.walletSvc.Apply(tx, input); err != nil {
				return nil, err
			}
		}

		volume := repository.BalanceDelta{TotalVolume: price}
		if entry.Level == 1 {
			volume.DirectVolume = price
		}
		if err := memberRepo.ApplyBalanceDelta(sponsor.ID, volume); err != nil {
			return nil, err
		}

		result.Levels = append(result.Levels, LevelCommission{
			Level:       entry.Level,
			SponsorID:   sponsor.ID,
			SponsorCode: sponsor.MemberCode,
			Amount:      models.NewMoneyFromDecimal(amount),
		})
		if amount.IsPositive() {
			result.Accruals = append(result.Accruals, s.newAccrualRecord(sponsor.ID, buyer.ID, entry.Level, purchaseID, amount, at))
		}
		if entry.Level == 1 {
			metrics.CommissionsDistributed.WithLabelValues("sponsor").Add(amount.InexactFloat64())
		} else {
			metrics.CommissionsDistributed.WithLabelValues("level").Add(amount.InexactFloat64())
		}
	}

	if err := accrualRepo.CreateBatch(result.Accruals); err != nil {
		return nil, err
	}
	return result, nil
}

// newAccrualRecord 新建分期记录，首次发放时间为购买时间，下一次日结即可发放
func (s *RewardService) newAccrualRecord(sponsorID, memberID uint, level int, purchaseID uint, total decimal.Decimal, at time.Time) models.AccrualRecord {
	days := s.settings.TotalDays
	return models.AccrualRecord{
		SponsorID:       sponsorID,
		MemberID:        memberID,
		Level:           level,
		NFTPurchaseID:   purchaseID,
		TotalCommission: models.NewMoneyFromDecimal(total),
		DailyAmount:     models.NewMoneyFromDecimal(s.settings.DailyAmount(total)),
		TotalDays:       days,
		DaysPaid:        0,
		DaysRemaining:   days,
		TotalPaid:       models.ZeroMoney(),
		RemainingAmount: models.NewMoneyFromDecimal(total),
		Status:          constants.AccrualStatusActive,
		NextPaymentDate: at,
		CreatedAt:       at,
		UpdatedAt:       at,
	}
}
