package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/nftlevel-next/internal/constants"
	"github.com/nftlevel-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PurchaseRepository NFT 购买记录数据访问接口
type PurchaseRepository interface {
	WithTx(tx *gorm.DB) PurchaseRepository

	Create(purchase *models.NFTPurchase) error
	GetByID(id uint) (*models.NFTPurchase, error)
	GetByMemberAndCode(memberID uint, nftCode string) (*models.NFTPurchase, error)
	CountByMember(memberID uint) (int64, error)
	ListByMember(memberID uint, page, pageSize int) ([]models.NFTPurchase, int64, error)
	SumPriceByMember(memberID uint) (decimal.Decimal, error)
	SumPriceByMembers(memberIDs []uint) (map[uint]MemberPurchaseTotal, error)
	SumPaidOutByMember(memberID uint) (decimal.Decimal, error)
	MarkPaidOut(id uint, amount decimal.Decimal, at time.Time) (int64, error)
}

// GormPurchaseRepository GORM 购买记录仓储
type GormPurchaseRepository struct {
	db *gorm.DB
}

// NewPurchaseRepository 创建购买记录仓储
func NewPurchaseRepository(db *gorm.DB) *GormPurchaseRepository {
	return &GormPurchaseRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPurchaseRepository) WithTx(tx *gorm.DB) PurchaseRepository {
	if tx == nil {
		return r
	}
	return &GormPurchaseRepository{db: tx}
}

// Create 创建购买记录
func (r *GormPurchaseRepository) Create(purchase *models.NFTPurchase) error {
	return r.db.Create(purchase).Error
}

// GetByID 按ID获取购买记录
func (r *GormPurchaseRepository) GetByID(id uint) (*models.NFTPurchase, error) {
	if id == 0 {
		return nil, nil
	}
	var purchase models.NFTPurchase
	if err := r.db.First(&purchase, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &purchase, nil
}

// GetByMemberAndCode 按会员与藏品编号获取购买记录
func (r *GormPurchaseRepository) GetByMemberAndCode(memberID uint, nftCode string) (*models.NFTPurchase, error) {
	nftCode = strings.TrimSpace(nftCode)
	if memberID == 0 || nftCode == "" {
		return nil, nil
	}
	var purchase models.NFTPurchase
	if err := r.db.Where("member_id = ? AND nft_code = ?", memberID, nftCode).First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &purchase, nil
}

// CountByMember 统计会员购买次数
func (r *GormPurchaseRepository) CountByMember(memberID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.NFTPurchase{}).Where("member_id = ?", memberID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListByMember 分页查询会员购买记录
func (r *GormPurchaseRepository) ListByMember(memberID uint, page, pageSize int) ([]models.NFTPurchase, int64, error) {
	query := r.db.Model(&models.NFTPurchase{}).Where("member_id = ?", memberID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, page, pageSize)

	var purchases []models.NFTPurchase
	if err := query.Order("id desc").Find(&purchases).Error; err != nil {
		return nil, 0, err
	}
	return purchases, total, nil
}

// SumPriceByMember 汇总会员全部购买金额
func (r *GormPurchaseRepository) SumPriceByMember(memberID uint) (decimal.Decimal, error) {
	return sumDecimal(r.db.Model(&models.NFTPurchase{}).Where("member_id = ?", memberID), "price")
}

// SumPriceByMembers 批量汇总会员购买次数与金额
func (r *GormPurchaseRepository) SumPriceByMembers(memberIDs []uint) (map[uint]MemberPurchaseTotal, error) {
	result := make(map[uint]MemberPurchaseTotal, len(memberIDs))
	if len(memberIDs) == 0 {
		return result, nil
	}
	var rows []MemberPurchaseTotal
	if err := r.db.Model(&models.NFTPurchase{}).
		Select("member_id, COUNT(*) AS purchases, COALESCE(SUM(price), 0) AS volume").
		Where("member_id IN ?", memberIDs).
		Group("member_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		row.Volume = row.Volume.Round(models.MoneyScale)
		result[row.MemberID] = row
	}
	return result, nil
}

// SumPaidOutByMember 汇总会员已回款金额
func (r *GormPurchaseRepository) SumPaidOutByMember(memberID uint) (decimal.Decimal, error) {
	return sumDecimal(r.db.Model(&models.NFTPurchase{}).
		Where("member_id = ? AND payout_status = ?", memberID, constants.PayoutStatusPaid), "paid_out_amount")
}

// MarkPaidOut 将未回款的购买记录标记为已回款，返回影响行数
func (r *GormPurchaseRepository) MarkPaidOut(id uint, amount decimal.Decimal, at time.Time) (int64, error) {
	result := r.db.Model(&models.NFTPurchase{}).
		Where("id = ? AND payout_status = ?", id, constants.PayoutStatusUnpaid).
		UpdateColumns(map[string]interface{}{
			"payout_status":   constants.PayoutStatusPaid,
			"paid_out_amount": models.NewMoneyFromDecimal(amount),
			"paid_out_at":     at,
			"updated_at":      at,
		})
	return result.RowsAffected, result.Error
}
