package models

import "time"

// MemberWallet 会员嵌套钱包（兼容旧结构，余额与 WalletBalance 必须一致）
type MemberWallet struct {
	Balance Money `gorm:"type:decimal(24,8);not null;default:0" json:"balance"` // 嵌套余额
}

// Member 会员表
type Member struct {
	ID                      uint         `gorm:"primarykey" json:"id"`                                                // 主键
	MemberCode              string       `gorm:"type:varchar(32);uniqueIndex;not null" json:"member_code"`            // 会员编号
	DisplayName             string       `gorm:"type:varchar(120);default:''" json:"display_name"`                    // 昵称
	Email                   *string      `gorm:"type:varchar(255);uniqueIndex:idx_members_email" json:"email"`        // 邮箱（未登记为空，非空时唯一）
	Phone                   string       `gorm:"type:varchar(32)" json:"phone"`                                       // 手机号
	SponsorID               *uint        `gorm:"index" json:"sponsor_id,omitempty"`                                   // 推荐人ID（根节点为空）
	IsActivated             bool         `gorm:"not null;default:false;index" json:"is_activated"`                    // 是否激活
	ActivatedAt             *time.Time   `json:"activated_at,omitempty"`                                              // 首次激活时间
	WalletBalance           Money        `gorm:"type:decimal(24,8);not null;default:0" json:"wallet_balance"`         // 可用余额
	Wallet                  MemberWallet `gorm:"embedded;embeddedPrefix:wallet_doc_" json:"wallet"`                   // 嵌套钱包
	SponsorIncome           Money        `gorm:"type:decimal(24,8);not null;default:0" json:"sponsor_income"`         // 直推收益
	LevelIncome             Money        `gorm:"type:decimal(24,8);not null;default:0" json:"level_income"`           // 层级收益
	RewardIncome            Money        `gorm:"type:decimal(24,8);not null;default:0" json:"reward_income"`          // 购买奖励收益
	DirectVolume            Money        `gorm:"type:decimal(24,8);not null;default:0" json:"direct_volume"`          // 直推业绩
	TotalVolume             Money        `gorm:"type:decimal(24,8);not null;default:0" json:"total_volume"`           // 团队业绩
	HoldingWalletBalance    Money        `gorm:"type:decimal(24,8);not null;default:0" json:"holding_wallet_balance"` // 平台持仓敞口
	DeactivationScheduledAt *time.Time   `gorm:"index" json:"deactivation_scheduled_at,omitempty"`                    // 计划停用时间
	CreatedAt               time.Time    `gorm:"index" json:"created_at"`                                             // 创建时间
	UpdatedAt               time.Time    `gorm:"index" json:"updated_at"`                                             // 更新时间
}

// TableName 指定表名
func (Member) TableName() string {
	return "members"
}
