package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// MemberListFilter 查询会员列表的过滤条件
type MemberListFilter struct {
	Page        int
	PageSize    int
	SponsorID   uint
	IsActivated *bool
	Keyword     string
}

// AccrualListFilter 查询分期佣金记录的过滤条件
type AccrualListFilter struct {
	Page          int
	PageSize      int
	SponsorID     uint
	MemberID      uint
	NFTPurchaseID uint
	Level         int
	Status        string
}

// WithdrawalListFilter 查询提现申请的过滤条件
type WithdrawalListFilter struct {
	Page        int
	PageSize    int
	MemberID    uint
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// WalletTransactionListFilter 查询钱包流水的过滤条件
type WalletTransactionListFilter struct {
	Page        int
	PageSize    int
	MemberID    uint
	Type        string
	Direction   string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// AccrualCursor 到期分期记录的键集游标（按 sponsor_id, id 排序）
type AccrualCursor struct {
	SponsorID uint
	ID        uint
}

// AccrualPayment 单次日息发放的写入参数
type AccrualPayment struct {
	RecordID              uint
	ExpectedDaysRemaining int
	Amount                decimal.Decimal
	PaidAt                time.Time
	NextPaymentDate       time.Time
	Completed             bool
}

// ReferralIncomeRow 按购买人与层级聚合的佣金行
type ReferralIncomeRow struct {
	MemberID        uint            `gorm:"column:member_id"`
	Level           int             `gorm:"column:level"`
	Records         int64           `gorm:"column:records"`
	TotalCommission decimal.Decimal `gorm:"column:total_commission"`
	TotalPaid       decimal.Decimal `gorm:"column:total_paid"`
	RemainingAmount decimal.Decimal `gorm:"column:remaining_amount"`
}

// ReferralPurchaseRow 分期记录关联来源购买的明细行
type ReferralPurchaseRow struct {
	AccrualRecordID uint            `gorm:"column:accrual_record_id"`
	MemberID        uint            `gorm:"column:member_id"`
	Level           int             `gorm:"column:level"`
	NFTPurchaseID   uint            `gorm:"column:nft_purchase_id"`
	NFTCode         string          `gorm:"column:nft_code"`
	Series          string          `gorm:"column:series"`
	PurchasedAt     time.Time       `gorm:"column:purchased_at"`
	Status          string          `gorm:"column:status"`
	DaysPaid        int             `gorm:"column:days_paid"`
	TotalCommission decimal.Decimal `gorm:"column:total_commission"`
	TotalPaid       decimal.Decimal `gorm:"column:total_paid"`
	RemainingAmount decimal.Decimal `gorm:"column:remaining_amount"`
}

// MemberPurchaseTotal 会员购买汇总行
type MemberPurchaseTotal struct {
	MemberID  uint            `gorm:"column:member_id"`
	Purchases int64           `gorm:"column:purchases"`
	Volume    decimal.Decimal `gorm:"column:volume"`
}
