package repository

import (
	"fmt"
	"time"

	"github.com/nftlevel-next/internal/constants"
	"github.com/nftlevel-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DashboardRepository 运营看板聚合查询接口
// 说明：仅聚合统计数据，不承载业务规则。
type DashboardRepository interface {
	GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error)
	GetDisbursementTrends(startAt, endAt time.Time) ([]DashboardDisbursementTrendRow, error)
	GetTopEarners(limit int) ([]DashboardEarnerRow, error)
}

// DashboardOverviewRow 看板总览原始统计结果
type DashboardOverviewRow struct {
	MembersTotal       int64
	ActivatedMembers   int64
	NewMembers         int64
	PendingDeactivate  int64
	Purchases          int64
	PurchaseVolume     decimal.Decimal
	ActiveAccruals     int64
	CompletedAccruals  int64
	AccrualDisbursed   decimal.Decimal
	ImmediateRewards   decimal.Decimal
	PendingWithdrawals int64
}

// DashboardDisbursementTrendRow 每日分期发放趋势
type DashboardDisbursementTrendRow struct {
	Day      string
	Payments int64
	Amount   decimal.Decimal
}

// DashboardEarnerRow 收益排行原始行
type DashboardEarnerRow struct {
	MemberID      uint
	MemberCode    string
	SponsorIncome decimal.Decimal
	LevelIncome   decimal.Decimal
	TotalIncome   decimal.Decimal
}

// GormDashboardRepository GORM 看板聚合实现
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository 创建看板仓库
func NewDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

func immediateRewardTypes() []string {
	return []string{
		constants.WalletTxnTypePurchaseReward,
		constants.WalletTxnTypeSponsorIncome,
		constants.WalletTxnTypeLevelIncome,
	}
}

// GetOverview 获取总览统计
func (r *GormDashboardRepository) GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error) {
	result := DashboardOverviewRow{}

	if err := r.db.Model(&models.Member{}).Count(&result.MembersTotal).Error; err != nil {
		return result, err
	}
	if err := r.db.Model(&models.Member{}).Where("is_activated = ?", true).Count(&result.ActivatedMembers).Error; err != nil {
		return result, err
	}
	if err := r.db.Model(&models.Member{}).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Count(&result.NewMembers).Error; err != nil {
		return result, err
	}
	if err := r.db.Model(&models.Member{}).
		Where("is_activated = ? AND deactivation_scheduled_at IS NOT NULL", true).
		Count(&result.PendingDeactivate).Error; err != nil {
		return result, err
	}

	purchaseBase := func() *gorm.DB {
		return r.db.Model(&models.NFTPurchase{}).Where("purchased_at >= ? AND purchased_at < ?", startAt, endAt)
	}
	if err := purchaseBase().Count(&result.Purchases).Error; err != nil {
		return result, err
	}
	volume, err := sumDecimal(purchaseBase(), "price")
	if err != nil {
		return result, err
	}
	result.PurchaseVolume = volume

	if err := r.db.Model(&models.AccrualRecord{}).
		Where("status = ?", constants.AccrualStatusActive).
		Count(&result.ActiveAccruals).Error; err != nil {
		return result, err
	}
	if err := r.db.Model(&models.AccrualRecord{}).
		Where("status = ?", constants.AccrualStatusCompleted).
		Count(&result.CompletedAccruals).Error; err != nil {
		return result, err
	}

	txnBase := func() *gorm.DB {
		return r.db.Model(&models.WalletTransaction{}).Where("created_at >= ? AND created_at < ?", startAt, endAt)
	}
	disbursed, err := sumDecimal(txnBase().Where("type = ?", constants.WalletTxnTypeAccrualIncome), "amount")
	if err != nil {
		return result, err
	}
	result.AccrualDisbursed = disbursed
	rewards, err := sumDecimal(txnBase().Where("type IN ?", immediateRewardTypes()), "amount")
	if err != nil {
		return result, err
	}
	result.ImmediateRewards = rewards

	if err := r.db.Model(&models.Withdrawal{}).
		Where("status = ?", constants.WithdrawalStatusPending).
		Count(&result.PendingWithdrawals).Error; err != nil {
		return result, err
	}
	return result, nil
}

// GetDisbursementTrends 获取每日分期发放趋势
func (r *GormDashboardRepository) GetDisbursementTrends(startAt, endAt time.Time) ([]DashboardDisbursementTrendRow, error) {
	type trendRow struct {
		Day         string
		Total       int64
		AmountTotal decimal.Decimal
	}
	dayExpr := "CAST(date(created_at) AS TEXT)"
	var rows []trendRow
	if err := r.db.Model(&models.WalletTransaction{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as total, COALESCE(SUM(amount), 0) as amount_total", dayExpr)).
		Where("type = ? AND created_at >= ? AND created_at < ?", constants.WalletTxnTypeAccrualIncome, startAt, endAt).
		Group(dayExpr).
		Order("day asc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]DashboardDisbursementTrendRow, 0, len(rows))
	for _, row := range rows {
		result = append(result, DashboardDisbursementTrendRow{
			Day:      row.Day,
			Payments: row.Total,
			Amount:   row.AmountTotal.Round(models.MoneyScale),
		})
	}
	return result, nil
}

// GetTopEarners 按累计推荐收益排行
func (r *GormDashboardRepository) GetTopEarners(limit int) ([]DashboardEarnerRow, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []DashboardEarnerRow
	if err := r.db.Model(&models.Member{}).
		Select(`id as member_id, member_code, sponsor_income, level_income,
			(sponsor_income + level_income) as total_income`).
		Order("total_income desc").
		Order("id asc").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
