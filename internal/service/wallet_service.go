package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nftlevel-next/internal/constants"
	"github.com/nftlevel-next/internal/models"
	"github.com/nftlevel-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WalletService 会员钱包服务：所有余额变动都经由此处写入并记流水
type WalletService struct {
	memberRepo repository.MemberRepository
	walletRepo repository.WalletTransactionRepository
}

// NewWalletService 创建钱包服务
func NewWalletService(memberRepo repository.MemberRepository, walletRepo repository.WalletTransactionRepository) *WalletService {
	return &WalletService{memberRepo: memberRepo, walletRepo: walletRepo}
}

// WalletCreditInput 事务内入账/出账输入，Amount 为负表示出账
type WalletCreditInput struct {
	MemberID        uint
	Amount          decimal.Decimal
	TxnType         string
	Reference       string
	Remark          string
	Level           int
	NFTPurchaseID   *uint
	AccrualRecordID *uint
	WithdrawalID    *uint
	SponsorIncome   bool // 同时累计 sponsor_income
	LevelIncome     bool // 同时累计 level_income
	RewardIncome    bool // 同时累计 reward_income
	RequireFunds    bool // 出账时要求余额充足
	At              time.Time
}

// WalletOverview 会员钱包概览
type WalletOverview struct {
	MemberID             uint         `json:"member_id"`
	MemberCode           string       `json:"member_code"`
	Status               string       `json:"status"`
	Balance              models.Money `json:"balance"`
	SponsorIncome        models.Money `json:"sponsor_income"`
	LevelIncome          models.Money `json:"level_income"`
	RewardIncome         models.Money `json:"reward_income"`
	DirectVolume         models.Money `json:"direct_volume"`
	TotalVolume          models.Money `json:"total_volume"`
	HoldingWalletBalance models.Money `json:"holding_wallet_balance"`
}

// Apply 在事务内变更余额并追加流水，两者同成同败
func (s *WalletService) Apply(tx *gorm.DB, input WalletCreditInput) (*models.WalletTransaction, error) {
	amount := input.Amount.Round(models.MoneyScale)
	if input.MemberID == 0 {
		return nil, ErrMemberNotFound
	}
	if amount.IsZero() {
		return nil, ErrInvalidInput
	}
	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		reference = buildWalletReference(input.TxnType, input.MemberID)
	}
	at := input.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	delta := repository.BalanceDelta{Balance: amount}
	if amount.IsPositive() {
		if input.SponsorIncome {
			delta.SponsorIncome = amount
		}
		if input.LevelIncome {
			delta.LevelIncome = amount
		}
		if input.RewardIncome {
			delta.RewardIncome = amount
		}
	}
	memberRepo := s.memberRepo.WithTx(tx)
	if input.RequireFunds && amount.IsNegative() {
		affected, err := memberRepo.DebitBalance(input.MemberID, amount.Abs())
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, ErrWithdrawalInsufficient
		}
	} else if err := memberRepo.ApplyBalanceDelta(input.MemberID, delta); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	direction := constants.WalletTxnDirectionIn
	if amount.IsNegative() {
		direction = constants.WalletTxnDirectionOut
	}
	txn := &models.WalletTransaction{
		MemberID:        input.MemberID,
		Type:            input.TxnType,
		Direction:       direction,
		Amount:          models.NewMoneyFromDecimal(amount.Abs()),
		Level:           input.Level,
		Reference:       reference,
		NFTPurchaseID:   input.NFTPurchaseID,
		AccrualRecordID: input.AccrualRecordID,
		WithdrawalID:    input.WithdrawalID,
		Remark:          strings.TrimSpace(input.Remark),
		CreatedAt:       at,
	}
	if err := s.walletRepo.WithTx(tx).Create(txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// GetOverview 获取会员钱包概览
func (s *WalletService) GetOverview(memberID uint) (*WalletOverview, error) {
	member, err := s.memberRepo.GetByID(memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	return &WalletOverview{
		MemberID:             member.ID,
		MemberCode:           member.MemberCode,
		Status:               MemberStatus(member),
		Balance:              member.WalletBalance,
		SponsorIncome:        member.SponsorIncome,
		LevelIncome:          member.LevelIncome,
		RewardIncome:         member.RewardIncome,
		DirectVolume:         member.DirectVolume,
		TotalVolume:          member.TotalVolume,
		HoldingWalletBalance: member.HoldingWalletBalance,
	}, nil
}

// ListTransactions 查询钱包流水
func (s *WalletService) ListTransactions(filter repository.WalletTransactionListFilter) ([]models.WalletTransaction, int64, error) {
	return s.walletRepo.List(filter)
}

func buildWalletReference(prefix string, id uint) string {
	return fmt.Sprintf("%s:%d:%d", strings.TrimSpace(prefix), id, time.Now().UnixNano())
}

func purchaseRewardReference(purchaseID uint) string {
	return fmt.Sprintf("pr:%d", purchaseID)
}

func levelCommissionReference(purchaseID uint, level int) string {
	return fmt.Sprintf("lvl:%d:%d", purchaseID, level)
}

func accrualReference(recordID uint, day int) string {
	return fmt.Sprintf("acc:%d:%d", recordID, day)
}

func payoutReference(purchaseID uint) string {
	return fmt.Sprintf("payout:%d", purchaseID)
}

func withdrawalReference(kind string, withdrawalID uint) string {
	return fmt.Sprintf("wd:%s:%d", kind, withdrawalID)
}
