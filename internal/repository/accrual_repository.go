package repository

import (
	"errors"
	"time"

	"github.com/nftlevel-next/internal/constants"
	"github.com/nftlevel-next/internal/models"

	"gorm.io/gorm"
)

// ErrAccrualConflict 分期记录已被其他执行更新
var ErrAccrualConflict = errors.New("accrual record changed concurrently")

// AccrualRepository 分期佣金记录数据访问接口
type AccrualRepository interface {
	WithTx(tx *gorm.DB) AccrualRepository

	CreateBatch(records []models.AccrualRecord) error
	GetByID(id uint) (*models.AccrualRecord, error)
	ListByPurchase(purchaseID uint) ([]models.AccrualRecord, error)
	ListDue(now time.Time, cursor AccrualCursor, limit int) ([]models.AccrualRecord, error)
	ApplyPayment(payment AccrualPayment) error
	Reschedule(id uint, next time.Time, reason string, at time.Time) error
	List(filter AccrualListFilter) ([]models.AccrualRecord, int64, error)
	SumReferralIncome(sponsorID uint) ([]ReferralIncomeRow, error)
	ListReferralPurchases(sponsorID uint) ([]ReferralPurchaseRow, error)
	CountActive() (int64, error)
}

// GormAccrualRepository GORM 分期佣金仓储
type GormAccrualRepository struct {
	db *gorm.DB
}

// NewAccrualRepository 创建分期佣金仓储
func NewAccrualRepository(db *gorm.DB) *GormAccrualRepository {
	return &GormAccrualRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAccrualRepository) WithTx(tx *gorm.DB) AccrualRepository {
	if tx == nil {
		return r
	}
	return &GormAccrualRepository{db: tx}
}

// CreateBatch 批量创建分期记录
func (r *GormAccrualRepository) CreateBatch(records []models.AccrualRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.Create(&records).Error
}

// GetByID 按ID获取分期记录
func (r *GormAccrualRepository) GetByID(id uint) (*models.AccrualRecord, error) {
	if id == 0 {
		return nil, nil
	}
	var record models.AccrualRecord
	if err := r.db.First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// ListByPurchase 查询购买记录产生的全部分期记录
func (r *GormAccrualRepository) ListByPurchase(purchaseID uint) ([]models.AccrualRecord, error) {
	if purchaseID == 0 {
		return []models.AccrualRecord{}, nil
	}
	var records []models.AccrualRecord
	if err := r.db.Where("nft_purchase_id = ?", purchaseID).Order("level asc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ListDue 按 (sponsor_id, id) 键集分页查询到期分期记录
func (r *GormAccrualRepository) ListDue(now time.Time, cursor AccrualCursor, limit int) ([]models.AccrualRecord, error) {
	query := r.db.Where("status = ? AND next_payment_date <= ? AND days_remaining > 0",
		constants.AccrualStatusActive, now)
	if cursor.SponsorID != 0 || cursor.ID != 0 {
		query = query.Where("(sponsor_id > ? OR (sponsor_id = ? AND id > ?))",
			cursor.SponsorID, cursor.SponsorID, cursor.ID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var records []models.AccrualRecord
	if err := query.Order("sponsor_id asc").Order("id asc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ApplyPayment 条件更新一次日息发放，剩余天数不匹配时返回 ErrAccrualConflict
func (r *GormAccrualRepository) ApplyPayment(payment AccrualPayment) error {
	status := constants.AccrualStatusActive
	if payment.Completed {
		status = constants.AccrualStatusCompleted
	}
	result := r.db.Model(&models.AccrualRecord{}).
		Where("id = ? AND status = ? AND days_remaining = ? AND next_payment_date <= ?",
			payment.RecordID, constants.AccrualStatusActive, payment.ExpectedDaysRemaining, payment.PaidAt).
		UpdateColumns(map[string]interface{}{
			"days_paid":         gorm.Expr("days_paid + 1"),
			"days_remaining":    gorm.Expr("days_remaining - 1"),
			"total_paid":        gorm.Expr("total_paid + ?", payment.Amount),
			"remaining_amount":  gorm.Expr("remaining_amount - ?", payment.Amount),
			"last_payment_date": payment.PaidAt,
			"next_payment_date": payment.NextPaymentDate,
			"last_skip_reason":  "",
			"status":            status,
			"updated_at":        payment.PaidAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccrualConflict
	}
	return nil
}

// Reschedule 跳过本次发放，仅顺延下次发放时间
func (r *GormAccrualRepository) Reschedule(id uint, next time.Time, reason string, at time.Time) error {
	return r.db.Model(&models.AccrualRecord{}).
		Where("id = ? AND status = ?", id, constants.AccrualStatusActive).
		UpdateColumns(map[string]interface{}{
			"next_payment_date": next,
			"last_skip_reason":  reason,
			"updated_at":        at,
		}).Error
}

// List 分页查询分期记录
func (r *GormAccrualRepository) List(filter AccrualListFilter) ([]models.AccrualRecord, int64, error) {
	query := r.db.Model(&models.AccrualRecord{})
	if filter.SponsorID != 0 {
		query = query.Where("sponsor_id = ?", filter.SponsorID)
	}
	if filter.MemberID != 0 {
		query = query.Where("member_id = ?", filter.MemberID)
	}
	if filter.NFTPurchaseID != 0 {
		query = query.Where("nft_purchase_id = ?", filter.NFTPurchaseID)
	}
	if filter.Level > 0 {
		query = query.Where("level = ?", filter.Level)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var records []models.AccrualRecord
	if err := query.Order("id desc").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// SumReferralIncome 按购买人与层级聚合推荐人的分期佣金
func (r *GormAccrualRepository) SumReferralIncome(sponsorID uint) ([]ReferralIncomeRow, error) {
	if sponsorID == 0 {
		return []ReferralIncomeRow{}, nil
	}
	var rows []ReferralIncomeRow
	err := r.db.Model(&models.AccrualRecord{}).
		Select(`member_id, level, COUNT(*) AS records,
			COALESCE(SUM(total_commission), 0) AS total_commission,
			COALESCE(SUM(total_paid), 0) AS total_paid,
			COALESCE(SUM(remaining_amount), 0) AS remaining_amount`).
		Where("sponsor_id = ?", sponsorID).
		Group("member_id, level").
		Order("level asc").
		Order("member_id asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListReferralPurchases 推荐人名下分期记录逐条关联来源购买
func (r *GormAccrualRepository) ListReferralPurchases(sponsorID uint) ([]ReferralPurchaseRow, error) {
	if sponsorID == 0 {
		return []ReferralPurchaseRow{}, nil
	}
	var rows []ReferralPurchaseRow
	err := r.db.Table("accrual_records AS a").
		Select(`a.id AS accrual_record_id, a.member_id, a.level, a.nft_purchase_id,
			p.nft_code, p.series, p.purchased_at, a.status, a.days_paid,
			a.total_commission, a.total_paid, a.remaining_amount`).
		Joins("JOIN nft_purchases AS p ON p.id = a.nft_purchase_id").
		Where("a.sponsor_id = ?", sponsorID).
		Order("a.level asc").
		Order("a.member_id asc").
		Order("p.purchased_at asc").
		Order("a.id asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CountActive 统计进行中的分期记录
func (r *GormAccrualRepository) CountActive() (int64, error) {
	var count int64
	if err := r.db.Model(&models.AccrualRecord{}).
		Where("status = ?", constants.AccrualStatusActive).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
