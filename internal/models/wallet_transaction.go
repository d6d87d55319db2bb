package models

import "time"

// WalletTransaction 会员钱包流水（只追加）
type WalletTransaction struct {
	ID              uint      `gorm:"primarykey" json:"id"`                                  // 主键
	MemberID        uint      `gorm:"not null;index" json:"member_id"`                       // 会员ID
	Type            string    `gorm:"type:varchar(32);not null;index" json:"type"`           // 流水类型
	Direction       string    `gorm:"type:varchar(8);not null" json:"direction"`             // 方向 in/out
	Amount          Money     `gorm:"type:decimal(24,8);not null" json:"amount"`             // 金额
	Level           int       `gorm:"not null;default:0" json:"level"`                       // 层级（非层级收益为 0）
	Reference       string    `gorm:"type:varchar(96);uniqueIndex;not null" json:"reference"` // 幂等参考号
	NFTPurchaseID   *uint     `gorm:"index" json:"nft_purchase_id,omitempty"`                // 关联购买
	AccrualRecordID *uint     `gorm:"index" json:"accrual_record_id,omitempty"`              // 关联分期记录
	WithdrawalID    *uint     `gorm:"index" json:"withdrawal_id,omitempty"`                  // 关联提现
	Remark          string    `gorm:"type:varchar(255);default:''" json:"remark"`            // 备注
	CreatedAt       time.Time `gorm:"index" json:"created_at"`                               // 创建时间
}

// TableName 指定表名
func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
