package models

import "time"

// NFTPurchase NFT 购买记录
type NFTPurchase struct {
	ID            uint       `gorm:"primarykey" json:"id"`                                                                  // 主键
	MemberID      uint       `gorm:"not null;index;uniqueIndex:idx_nft_purchase_member_code" json:"member_id"`             // 购买会员ID
	NFTCode       string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_nft_purchase_member_code" json:"nft_code"`  // 藏品编号
	Series        string     `gorm:"type:varchar(64);not null;index" json:"series"`                                         // 系列
	Price         Money      `gorm:"type:decimal(24,8);not null" json:"price"`                                              // 价格
	PurchasedAt   time.Time  `gorm:"index;not null" json:"purchased_at"`                                                    // 购买时间
	PayoutStatus  string     `gorm:"type:varchar(16);not null;default:'unpaid';index" json:"payout_status"`                 // 出售回款状态
	PaidOutAmount Money      `gorm:"type:decimal(24,8);not null;default:0" json:"paid_out_amount"`                          // 回款金额
	PaidOutAt     *time.Time `json:"paid_out_at,omitempty"`                                                                 // 回款时间
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`                                                               // 创建时间
	UpdatedAt     time.Time  `json:"updated_at"`                                                                            // 更新时间

	Member *Member `gorm:"foreignKey:MemberID" json:"member,omitempty"` // 购买会员
}

// TableName 指定表名
func (NFTPurchase) TableName() string {
	return "nft_purchases"
}
