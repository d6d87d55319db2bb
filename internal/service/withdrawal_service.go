package service

import (
	"context"
	"strings"

	"github.com/nftlevel-next/internal/constants"
	"github.com/nftlevel-next/internal/logger"
	"github.com/nftlevel-next/internal/models"
	"github.com/nftlevel-next/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WithdrawalService 提现申请与审核服务
type WithdrawalService struct {
	memberRepo     repository.MemberRepository
	withdrawalRepo repository.WithdrawalRepository
	walletSvc      *WalletService
	clock          Clock
}

// NewWithdrawalService 创建提现服务
func NewWithdrawalService(
	memberRepo repository.MemberRepository,
	withdrawalRepo repository.WithdrawalRepository,
	walletSvc *WalletService,
	clock Clock,
) *WithdrawalService {
	return &WithdrawalService{
		memberRepo:     memberRepo,
		withdrawalRepo: withdrawalRepo,
		walletSvc:      walletSvc,
		clock:          resolveClock(clock),
	}
}

// WithdrawalReviewInput 提现审核输入
type WithdrawalReviewInput struct {
	WithdrawalID uint
	Action       string
	Reason       string
}

// Apply 会员申请提现，申请时即冻结扣减余额并减少持仓敞口
func (s *WithdrawalService) Apply(ctx context.Context, memberID uint, amount decimal.Decimal) (*models.Withdrawal, error) {
	amount = amount.Round(models.MoneyScale)
	if !amount.IsPositive() {
		return nil, ErrWithdrawalAmountInvalid
	}
	member, err := s.memberRepo.GetByID(memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}

	now := s.clock.Now()
	withdrawal := &models.Withdrawal{
		WithdrawNo: buildWithdrawNo(),
		MemberID:   member.ID,
		Amount:     models.NewMoneyFromDecimal(amount),
		Status:     constants.WithdrawalStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err = s.memberRepo.Transaction(func(tx *gorm.DB) error {
		if err := s.withdrawalRepo.WithTx(tx).Create(withdrawal); err != nil {
			return err
		}
		id := withdrawal.ID
		if _, err := s.walletSvc.Apply(tx, WalletCreditInput{
			MemberID:     member.ID,
			Amount:       amount.Neg(),
			TxnType:      constants.WalletTxnTypeWithdrawHold,
			Reference:    withdrawalReference("hold", id),
			Remark:       withdrawal.WithdrawNo,
			WithdrawalID: &id,
			RequireFunds: true,
			At:           now,
		}); err != nil {
			return err
		}
		return s.memberRepo.WithTx(tx).AddHoldingBalance(member.ID, amount.Neg())
	})
	if err != nil {
		return nil, err
	}
	invalidateReportCache(ctx, member.ID)
	logger.Infow("withdrawal_applied",
		"withdrawal_id", withdrawal.ID,
		"withdraw_no", withdrawal.WithdrawNo,
		"member_id", member.ID,
		"amount", amount.String(),
	)
	return withdrawal, nil
}

// Review 后台审核提现：approve pending→approved，complete approved→completed，reject 驳回并退回余额
func (s *WithdrawalService) Review(ctx context.Context, input WithdrawalReviewInput) (*models.Withdrawal, error) {
	action := strings.ToLower(strings.TrimSpace(input.Action))
	now := s.clock.Now()
	var result *models.Withdrawal

	err := s.memberRepo.Transaction(func(tx *gorm.DB) error {
		withdrawalRepo := s.withdrawalRepo.WithTx(tx)
		withdrawal, err := withdrawalRepo.GetByIDForUpdate(input.WithdrawalID)
		if err != nil {
			return err
		}
		if withdrawal == nil {
			return ErrWithdrawalNotFound
		}

		var from, to string
		updates := map[string]interface{}{"reviewed_at": now, "updated_at": now}
		switch action {
		case constants.WithdrawalActionApprove:
			from, to = constants.WithdrawalStatusPending, constants.WithdrawalStatusApproved
		case constants.WithdrawalActionComplete:
			from, to = constants.WithdrawalStatusApproved, constants.WithdrawalStatusCompleted
		case constants.WithdrawalActionReject:
			if withdrawal.Status != constants.WithdrawalStatusPending && withdrawal.Status != constants.WithdrawalStatusApproved {
				return ErrWithdrawalStatusInvalid
			}
			from, to = withdrawal.Status, constants.WithdrawalStatusRejected
			updates["reject_reason"] = strings.TrimSpace(input.Reason)
		default:
			return ErrInvalidInput
		}
		if withdrawal.Status != from {
			return ErrWithdrawalStatusInvalid
		}
		affected, err := withdrawalRepo.UpdateStatus(withdrawal.ID, from, to, updates)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrWithdrawalStatusInvalid
		}

		if to == constants.WithdrawalStatusRejected {
			id := withdrawal.ID
			if _, err := s.walletSvc.Apply(tx, WalletCreditInput{
				MemberID:     withdrawal.MemberID,
				Amount:       withdrawal.Amount.Decimal,
				TxnType:      constants.WalletTxnTypeWithdrawRefund,
				Reference:    withdrawalReference("refund", id),
				Remark:       withdrawal.WithdrawNo,
				WithdrawalID: &id,
				At:           now,
			}); err != nil {
				return err
			}
			if err := s.memberRepo.WithTx(tx).AddHoldingBalance(withdrawal.MemberID, withdrawal.Amount.Decimal); err != nil {
				return err
			}
		}

		result, err = withdrawalRepo.GetByID(withdrawal.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if result != nil {
		invalidateReportCache(ctx, result.MemberID)
		logger.Infow("withdrawal_reviewed",
			"withdrawal_id", result.ID,
			"action", action,
			"status", result.Status,
		)
	}
	return result, nil
}

// List 分页查询提现申请
func (s *WithdrawalService) List(filter repository.WithdrawalListFilter) ([]models.Withdrawal, int64, error) {
	return s.withdrawalRepo.List(filter)
}

func buildWithdrawNo() string {
	return "WD" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:20]
}
