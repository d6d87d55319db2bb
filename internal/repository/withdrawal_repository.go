package repository

import (
	"errors"
	"time"

	"github.com/nftlevel-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WithdrawalRepository 提现申请数据访问接口
type WithdrawalRepository interface {
	WithTx(tx *gorm.DB) WithdrawalRepository

	Create(withdrawal *models.Withdrawal) error
	GetByID(id uint) (*models.Withdrawal, error)
	GetByIDForUpdate(id uint) (*models.Withdrawal, error)
	UpdateStatus(id uint, fromStatus, toStatus string, updates map[string]interface{}) (int64, error)
	SumByMemberStatuses(memberID uint, statuses []string) (decimal.Decimal, error)
	List(filter WithdrawalListFilter) ([]models.Withdrawal, int64, error)
}

// GormWithdrawalRepository GORM 提现仓储
type GormWithdrawalRepository struct {
	db *gorm.DB
}

// NewWithdrawalRepository 创建提现仓储
func NewWithdrawalRepository(db *gorm.DB) *GormWithdrawalRepository {
	return &GormWithdrawalRepository{db: db}
}

// WithTx 绑定事务
func (r *GormWithdrawalRepository) WithTx(tx *gorm.DB) WithdrawalRepository {
	if tx == nil {
		return r
	}
	return &GormWithdrawalRepository{db: tx}
}

// Create 创建提现申请
func (r *GormWithdrawalRepository) Create(withdrawal *models.Withdrawal) error {
	return r.db.Create(withdrawal).Error
}

// GetByID 按ID获取提现申请
func (r *GormWithdrawalRepository) GetByID(id uint) (*models.Withdrawal, error) {
	if id == 0 {
		return nil, nil
	}
	var withdrawal models.Withdrawal
	if err := r.db.First(&withdrawal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &withdrawal, nil
}

// GetByIDForUpdate 按ID加锁获取提现申请
func (r *GormWithdrawalRepository) GetByIDForUpdate(id uint) (*models.Withdrawal, error) {
	if id == 0 {
		return nil, nil
	}
	var withdrawal models.Withdrawal
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&withdrawal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &withdrawal, nil
}

// UpdateStatus 按当前状态条件流转提现状态，返回影响行数
func (r *GormWithdrawalRepository) UpdateStatus(id uint, fromStatus, toStatus string, updates map[string]interface{}) (int64, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = toStatus
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	result := r.db.Model(&models.Withdrawal{}).
		Where("id = ? AND status = ?", id, fromStatus).
		UpdateColumns(updates)
	return result.RowsAffected, result.Error
}

// SumByMemberStatuses 汇总会员指定状态的提现金额
func (r *GormWithdrawalRepository) SumByMemberStatuses(memberID uint, statuses []string) (decimal.Decimal, error) {
	if memberID == 0 || len(statuses) == 0 {
		return decimal.Zero, nil
	}
	return sumDecimal(r.db.Model(&models.Withdrawal{}).
		Where("member_id = ? AND status IN ?", memberID, statuses), "amount")
}

// List 分页查询提现申请
func (r *GormWithdrawalRepository) List(filter WithdrawalListFilter) ([]models.Withdrawal, int64, error) {
	query := r.db.Model(&models.Withdrawal{})
	if filter.MemberID != 0 {
		query = query.Where("member_id = ?", filter.MemberID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
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

	var rows []models.Withdrawal
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
