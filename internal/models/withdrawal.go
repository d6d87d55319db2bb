package models

import "time"

// Withdrawal 会员提现申请
type Withdrawal struct {
	ID           uint       `gorm:"primarykey" json:"id"`                                   // 主键
	WithdrawNo   string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"withdraw_no"` // 提现单号
	MemberID     uint       `gorm:"not null;index" json:"member_id"`                        // 会员ID
	Amount       Money      `gorm:"type:decimal(24,8);not null" json:"amount"`              // 提现金额
	Status       string     `gorm:"type:varchar(16);not null;index" json:"status"`          // 状态
	RejectReason string     `gorm:"type:varchar(255);default:''" json:"reject_reason"`      // 驳回原因
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`                                  // 审核时间
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`                                // 创建时间
	UpdatedAt    time.Time  `json:"updated_at"`                                             // 更新时间
}

// TableName 指定表名
func (Withdrawal) TableName() string {
	return "withdrawals"
}
