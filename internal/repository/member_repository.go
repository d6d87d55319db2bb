package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/nftlevel-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BalanceDelta 会员余额与累计字段的增量
type BalanceDelta struct {
	Balance       decimal.Decimal
	SponsorIncome decimal.Decimal
	LevelIncome   decimal.Decimal
	RewardIncome  decimal.Decimal
	DirectVolume  decimal.Decimal
	TotalVolume   decimal.Decimal
}

// IsZero 增量是否全部为零
func (d BalanceDelta) IsZero() bool {
	return d.Balance.IsZero() &&
		d.SponsorIncome.IsZero() &&
		d.LevelIncome.IsZero() &&
		d.RewardIncome.IsZero() &&
		d.DirectVolume.IsZero() &&
		d.TotalVolume.IsZero()
}

// MemberRepository 会员数据访问接口
type MemberRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) MemberRepository

	Create(member *models.Member) error
	GetByID(id uint) (*models.Member, error)
	GetByIDs(ids []uint) ([]models.Member, error)
	GetByCode(code string) (*models.Member, error)
	ExistsCode(code string) (bool, error)
	ExistsEmail(email string) (bool, error)
	ListBySponsor(sponsorID uint, activated *bool) ([]models.Member, error)
	ListBySponsorIDs(sponsorIDs []uint) ([]models.Member, error)
	CountBySponsor(sponsorID uint, activated *bool) (int64, error)
	ListActivated(afterID uint, limit int) ([]models.Member, error)
	List(filter MemberListFilter) ([]models.Member, int64, error)

	ApplyBalanceDelta(id uint, delta BalanceDelta) error
	DebitBalance(id uint, amount decimal.Decimal) (int64, error)
	Activate(id uint, at time.Time) error
	UpdateFields(id uint, updates map[string]interface{}) error
	AddHoldingBalance(id uint, delta decimal.Decimal) error
}

// GormMemberRepository GORM 会员仓储
type GormMemberRepository struct {
	db *gorm.DB
}

// NewMemberRepository 创建会员仓储
func NewMemberRepository(db *gorm.DB) *GormMemberRepository {
	return &GormMemberRepository{db: db}
}

// WithTx 绑定事务
func (r *GormMemberRepository) WithTx(tx *gorm.DB) MemberRepository {
	if tx == nil {
		return r
	}
	return &GormMemberRepository{db: tx}
}

// Transaction 执行事务
func (r *GormMemberRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建会员
func (r *GormMemberRepository) Create(member *models.Member) error {
	return r.db.Create(member).Error
}

// GetByID 按ID获取会员
func (r *GormMemberRepository) GetByID(id uint) (*models.Member, error) {
	if id == 0 {
		return nil, nil
	}
	var member models.Member
	if err := r.db.First(&member, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// GetByIDs 批量获取会员
func (r *GormMemberRepository) GetByIDs(ids []uint) ([]models.Member, error) {
	if len(ids) == 0 {
		return []models.Member{}, nil
	}
	var members []models.Member
	if err := r.db.Where("id IN ?", ids).Order("id asc").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// GetByCode 按会员编号获取会员
func (r *GormMemberRepository) GetByCode(code string) (*models.Member, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, nil
	}
	var member models.Member
	if err := r.db.Where("member_code = ?", code).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// ExistsCode 会员编号是否已被占用
func (r *GormMemberRepository) ExistsCode(code string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Member{}).Where("member_code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistsEmail 邮箱是否已登记
func (r *GormMemberRepository) ExistsEmail(email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, nil
	}
	var count int64
	if err := r.db.Model(&models.Member{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListBySponsor 查询直推会员，activated 为空时不过滤激活状态
func (r *GormMemberRepository) ListBySponsor(sponsorID uint, activated *bool) ([]models.Member, error) {
	if sponsorID == 0 {
		return []models.Member{}, nil
	}
	query := r.db.Where("sponsor_id = ?", sponsorID)
	if activated != nil {
		query = query.Where("is_activated = ?", *activated)
	}
	var members []models.Member
	if err := query.Order("id asc").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// ListBySponsorIDs 按推荐人批量查询下级
func (r *GormMemberRepository) ListBySponsorIDs(sponsorIDs []uint) ([]models.Member, error) {
	if len(sponsorIDs) == 0 {
		return []models.Member{}, nil
	}
	var members []models.Member
	if err := r.db.Where("sponsor_id IN ?", sponsorIDs).Order("id asc").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// CountBySponsor 统计直推会员数量
func (r *GormMemberRepository) CountBySponsor(sponsorID uint, activated *bool) (int64, error) {
	if sponsorID == 0 {
		return 0, nil
	}
	query := r.db.Model(&models.Member{}).Where("sponsor_id = ?", sponsorID)
	if activated != nil {
		query = query.Where("is_activated = ?", *activated)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListActivated 按主键游标分批查询已激活会员
func (r *GormMemberRepository) ListActivated(afterID uint, limit int) ([]models.Member, error) {
	query := r.db.Where("is_activated = ? AND id > ?", true, afterID).Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var members []models.Member
	if err := query.Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// List 分页查询会员
func (r *GormMemberRepository) List(filter MemberListFilter) ([]models.Member, int64, error) {
	query := r.db.Model(&models.Member{})
	if filter.SponsorID != 0 {
		query = query.Where("sponsor_id = ?", filter.SponsorID)
	}
	if filter.IsActivated != nil {
		query = query.Where("is_activated = ?", *filter.IsActivated)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where("member_code LIKE ? OR display_name LIKE ? OR email LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var members []models.Member
	if err := query.Order("id desc").Find(&members).Error; err != nil {
		return nil, 0, err
	}
	return members, total, nil
}

// ApplyBalanceDelta 原子增量更新余额与累计字段，两个余额字段在同一条语句内同步
func (r *GormMemberRepository) ApplyBalanceDelta(id uint, delta BalanceDelta) error {
	if id == 0 || delta.IsZero() {
		return nil
	}
	updates := map[string]interface{}{
		"updated_at": time.Now().UTC(),
	}
	if !delta.Balance.IsZero() {
		updates["wallet_balance"] = gorm.Expr("wallet_balance + ?", delta.Balance)
		updates["wallet_doc_balance"] = gorm.Expr("wallet_doc_balance + ?", delta.Balance)
	}
	if !delta.SponsorIncome.IsZero() {
		updates["sponsor_income"] = gorm.Expr("sponsor_income + ?", delta.SponsorIncome)
	}
	if !delta.LevelIncome.IsZero() {
		updates["level_income"] = gorm.Expr("level_income + ?", delta.LevelIncome)
	}
	if !delta.RewardIncome.IsZero() {
		updates["reward_income"] = gorm.Expr("reward_income + ?", delta.RewardIncome)
	}
	if !delta.DirectVolume.IsZero() {
		updates["direct_volume"] = gorm.Expr("direct_volume + ?", delta.DirectVolume)
	}
	if !delta.TotalVolume.IsZero() {
		updates["total_volume"] = gorm.Expr("total_volume + ?", delta.TotalVolume)
	}
	result := r.db.Model(&models.Member{}).Where("id = ?", id).UpdateColumns(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DebitBalance 余额充足时扣减两个余额字段，返回影响行数
func (r *GormMemberRepository) DebitBalance(id uint, amount decimal.Decimal) (int64, error) {
	if id == 0 || !amount.IsPositive() {
		return 0, nil
	}
	result := r.db.Model(&models.Member{}).
		Where("id = ? AND wallet_balance >= ?", id, amount).
		UpdateColumns(map[string]interface{}{
			"wallet_balance":     gorm.Expr("wallet_balance - ?", amount),
			"wallet_doc_balance": gorm.Expr("wallet_doc_balance - ?", amount),
			"updated_at":         time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

// Activate 激活会员，首次激活时间只写一次，并清除待停用计划
func (r *GormMemberRepository) Activate(id uint, at time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Member{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
		"is_activated":              true,
		"activated_at":              gorm.Expr("COALESCE(activated_at, ?)", at),
		"deactivation_scheduled_at": nil,
		"updated_at":                at,
	}).Error
}

// UpdateFields 按ID设置字段
func (r *GormMemberRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return r.db.Model(&models.Member{}).Where("id = ?", id).UpdateColumns(updates).Error
}

// AddHoldingBalance 原子增量更新持仓敞口
func (r *GormMemberRepository) AddHoldingBalance(id uint, delta decimal.Decimal) error {
	if id == 0 || delta.IsZero() {
		return nil
	}
	return r.db.Model(&models.Member{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
		"holding_wallet_balance": gorm.Expr("holding_wallet_balance + ?", delta),
		"updated_at":             time.Now().UTC(),
	}).Error
}
