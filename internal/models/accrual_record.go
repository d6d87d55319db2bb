package models

import "time"

// AccrualRecord 分期层级佣金记录（推荐人 × 购买人 × 层级）
type AccrualRecord struct {
	ID              uint       `gorm:"primarykey" json:"id"`                                                                    // 主键
	SponsorID       uint       `gorm:"not null;index;uniqueIndex:idx_accrual_purchase_sponsor_level" json:"sponsor_id"`        // 收益人ID
	MemberID        uint       `gorm:"not null;index" json:"member_id"`                                                         // 购买人ID
	Level           int        `gorm:"not null;uniqueIndex:idx_accrual_purchase_sponsor_level" json:"level"`                   // 层级（1..10）
	NFTPurchaseID   uint       `gorm:"not null;index;uniqueIndex:idx_accrual_purchase_sponsor_level" json:"nft_purchase_id"`   // 来源购买记录
	TotalCommission Money      `gorm:"type:decimal(24,8);not null" json:"total_commission"`                                     // 佣金总额
	DailyAmount     Money      `gorm:"type:decimal(24,8);not null" json:"daily_amount"`                                         // 每日发放额
	TotalDays       int        `gorm:"not null" json:"total_days"`                                                              // 总天数
	DaysPaid        int        `gorm:"not null;default:0" json:"days_paid"`                                                     // 已发放天数
	DaysRemaining   int        `gorm:"not null;index" json:"days_remaining"`                                                    // 剩余天数
	TotalPaid       Money      `gorm:"type:decimal(24,8);not null;default:0" json:"total_paid"`                                 // 已发放金额
	RemainingAmount Money      `gorm:"type:decimal(24,8);not null" json:"remaining_amount"`                                     // 剩余金额
	Status          string     `gorm:"type:varchar(16);not null;index" json:"status"`                                           // 状态
	LastPaymentDate *time.Time `json:"last_payment_date,omitempty"`                                                             // 最近发放时间
	NextPaymentDate time.Time  `gorm:"not null;index" json:"next_payment_date"`                                                 // 下次发放时间
	LastSkipReason  string     `gorm:"type:varchar(32);default:''" json:"last_skip_reason"`                                     // 最近一次跳过原因
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`                                                                 // 创建时间
	UpdatedAt       time.Time  `json:"updated_at"`                                                                              // 更新时间

	NFTPurchase *NFTPurchase `gorm:"foreignKey:NFTPurchaseID" json:"nft_purchase,omitempty"` // 来源购买
}

// TableName 指定表名
func (AccrualRecord) TableName() string {
	return "accrual_records"
}
