package repository

import (
	"errors"
	"strings"

	"github.com/nftlevel-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WalletTransactionRepository 钱包流水数据访问接口
type WalletTransactionRepository interface {
	WithTx(tx *gorm.DB) WalletTransactionRepository

	Create(txn *models.WalletTransaction) error
	GetByReference(reference string) (*models.WalletTransaction, error)
	List(filter WalletTransactionListFilter) ([]models.WalletTransaction, int64, error)
	SumByMemberAndType(memberID uint, txnType string) (decimal.Decimal, error)
}

// GormWalletTransactionRepository GORM 钱包流水仓储
type GormWalletTransactionRepository struct {
	db *gorm.DB
}

// NewWalletTransactionRepository 创建钱包流水仓储
func NewWalletTransactionRepository(db *gorm.DB) *GormWalletTransactionRepository {
	return &GormWalletTransactionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormWalletTransactionRepository) WithTx(tx *gorm.DB) WalletTransactionRepository {
	if tx == nil {
		return r
	}
	return &GormWalletTransactionRepository{db: tx}
}

// Create 创建钱包流水
func (r *GormWalletTransactionRepository) Create(txn *models.WalletTransaction) error {
	return r.db.Create(txn).Error
}

// GetByReference 按参考号获取流水
func (r *GormWalletTransactionRepository) GetByReference(reference string) (*models.WalletTransaction, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, nil
	}
	var txn models.WalletTransaction
	if err := r.db.Where("reference = ?", reference).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// List 分页查询钱包流水
func (r *GormWalletTransactionRepository) List(filter WalletTransactionListFilter) ([]models.WalletTransaction, int64, error) {
	query := r.db.Model(&models.WalletTransaction{})
	if filter.MemberID != 0 {
		query = query.Where("member_id = ?", filter.MemberID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Direction != "" {
		query = query.Where("direction = ?", filter.Direction)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var txns []models.WalletTransaction
	if err := query.Order("id desc").Find(&txns).Error; err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// SumByMemberAndType 汇总会员某类流水金额
func (r *GormWalletTransactionRepository) SumByMemberAndType(memberID uint, txnType string) (decimal.Decimal, error) {
	if memberID == 0 {
		return decimal.Zero, nil
	}
	return sumDecimal(r.db.Model(&models.WalletTransaction{}).
		Where("member_id = ? AND type = ?", memberID, txnType), "amount")
}
