package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nftlevel-next/internal/cache"
	"github.com/nftlevel-next/internal/models"
	"github.com/nftlevel-next/internal/repository"
)

const (
	dashboardCacheTTL      = 45 * time.Second
	dashboardCustomMaxDays = 90
	dashboardTopEarners    = 10
)

// DashboardService 运营看板服务
// 说明：聚合奖励引擎核心运营数据。
type DashboardService struct {
	repo  repository.DashboardRepository
	clock Clock
}

// NewDashboardService 创建看板服务
func NewDashboardService(repo repository.DashboardRepository, clock Clock) *DashboardService {
	return &DashboardService{repo: repo, clock: resolveClock(clock)}
}

// DashboardQueryInput 看板查询输入
type DashboardQueryInput struct {
	Range        string
	From         *time.Time
	To           *time.Time
	ForceRefresh bool
}

// DashboardOverviewResponse 看板总览
type DashboardOverviewResponse struct {
	Range              string               `json:"range"`
	From               string               `json:"from"`
	To                 string               `json:"to"`
	MembersTotal       int64                `json:"members_total"`
	ActivatedMembers   int64                `json:"activated_members"`
	NewMembers         int64                `json:"new_members"`
	PendingDeactivate  int64                `json:"pending_deactivate"`
	Purchases          int64                `json:"purchases"`
	PurchaseVolume     models.Money         `json:"purchase_volume"`
	ActiveAccruals     int64                `json:"active_accruals"`
	CompletedAccruals  int64                `json:"completed_accruals"`
	AccrualDisbursed   models.Money         `json:"accrual_disbursed"`
	ImmediateRewards   models.Money         `json:"immediate_rewards"`
	PendingWithdrawals int64                `json:"pending_withdrawals"`
	ActivationRate     string               `json:"activation_rate"`
	Alerts             []DashboardAlertItem `json:"alerts"`
}

// DashboardAlertItem 看板告警项
type DashboardAlertItem struct {
	Type  string `json:"type"`
	Level string `json:"level"`
	Value int64  `json:"value"`
}

// DashboardTrendResponse 分期发放趋势
type DashboardTrendResponse struct {
	Range  string                `json:"range"`
	From   string                `json:"from"`
	To     string                `json:"to"`
	Points []DashboardTrendPoint `json:"points"`
}

// DashboardTrendPoint 趋势点
type DashboardTrendPoint struct {
	Date     string       `json:"date"`
	Payments int64        `json:"payments"`
	Amount   models.Money `json:"amount"`
}

// DashboardEarner 收益排行项
type DashboardEarner struct {
	MemberID      uint         `json:"member_id"`
	MemberCode    string       `json:"member_code"`
	SponsorIncome models.Money `json:"sponsor_income"`
	LevelIncome   models.Money `json:"level_income"`
	TotalIncome   models.Money `json:"total_income"`
}

type dashboardWindow struct {
	rangeKey string
	startAt  time.Time
	endAt    time.Time
}

// GetOverview 获取看板总览
func (s *DashboardService) GetOverview(ctx context.Context, input DashboardQueryInput) (*DashboardOverviewResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardOverviewResponse{}, nil
	}
	window, err := resolveDashboardWindow(input, s.clock.Now())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:overview:%s:%d:%d", window.rangeKey, window.startAt.Unix(), window.endAt.Unix())
	if !input.ForceRefresh {
		var cached DashboardOverviewResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	overview, err := s.repo.GetOverview(window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}
	activationRate := 0.0
	if overview.MembersTotal > 0 {
		activationRate = float64(overview.ActivatedMembers) / float64(overview.MembersTotal) * 100
	}

	response := &DashboardOverviewResponse{
		Range:              window.rangeKey,
		From:               window.startAt.Format(time.RFC3339),
		To:                 window.endAt.Add(-time.Second).Format(time.RFC3339),
		MembersTotal:       overview.MembersTotal,
		ActivatedMembers:   overview.ActivatedMembers,
		NewMembers:         overview.NewMembers,
		PendingDeactivate:  overview.PendingDeactivate,
		Purchases:          overview.Purchases,
		PurchaseVolume:     models.NewMoneyFromDecimal(overview.PurchaseVolume),
		ActiveAccruals:     overview.ActiveAccruals,
		CompletedAccruals:  overview.CompletedAccruals,
		AccrualDisbursed:   models.NewMoneyFromDecimal(overview.AccrualDisbursed),
		ImmediateRewards:   models.NewMoneyFromDecimal(overview.ImmediateRewards),
		PendingWithdrawals: overview.PendingWithdrawals,
		ActivationRate:     formatPercentValue(activationRate),
		Alerts:             buildDashboardAlerts(overview),
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

// GetTrends 获取每日分期发放趋势
func (s *DashboardService) GetTrends(ctx context.Context, input DashboardQueryInput) (*DashboardTrendResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardTrendResponse{}, nil
	}
	window, err := resolveDashboardWindow(input, s.clock.Now())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:trends:%s:%d:%d", window.rangeKey, window.startAt.Unix(), window.endAt.Unix())
	if !input.ForceRefresh {
		var cached DashboardTrendResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	rows, err := s.repo.GetDisbursementTrends(window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}
	rowMap := make(map[string]repository.DashboardDisbursementTrendRow, len(rows))
	for _, item := range rows {
		rowMap[item.Day] = item
	}

	points := make([]DashboardTrendPoint, 0)
	for cursor := time.Date(window.startAt.Year(), window.startAt.Month(), window.startAt.Day(), 0, 0, 0, 0, time.UTC); cursor.Before(window.endAt); cursor = cursor.AddDate(0, 0, 1) {
		day := cursor.Format("2006-01-02")
		item := rowMap[day]
		points = append(points, DashboardTrendPoint{
			Date:     day,
			Payments: item.Payments,
			Amount:   models.NewMoneyFromDecimal(item.Amount),
		})
	}

	response := &DashboardTrendResponse{
		Range:  window.rangeKey,
		From:   window.startAt.Format(time.RFC3339),
		To:     window.endAt.Add(-time.Second).Format(time.RFC3339),
		Points: points,
	}
	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

// GetTopEarners 获取收益排行
func (s *DashboardService) GetTopEarners(limit int) ([]DashboardEarner, error) {
	if s == nil || s.repo == nil {
		return []DashboardEarner{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = dashboardTopEarners
	}
	rows, err := s.repo.GetTopEarners(limit)
	if err != nil {
		return nil, err
	}
	earners := make([]DashboardEarner, 0, len(rows))
	for _, row := range rows {
		earners = append(earners, DashboardEarner{
			MemberID:      row.MemberID,
			MemberCode:    strings.TrimSpace(row.MemberCode),
			SponsorIncome: models.NewMoneyFromDecimal(row.SponsorIncome),
			LevelIncome:   models.NewMoneyFromDecimal(row.LevelIncome),
			TotalIncome:   models.NewMoneyFromDecimal(row.TotalIncome),
		})
	}
	return earners, nil
}

func resolveDashboardWindow(input DashboardQueryInput, now time.Time) (dashboardWindow, error) {
	rangeKey := strings.ToLower(strings.TrimSpace(input.Range))
	if rangeKey == "" {
		rangeKey = "7d"
	}
	now = now.UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	window := dashboardWindow{rangeKey: rangeKey}

	switch rangeKey {
	case "today":
		window.startAt = todayStart
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "7d":
		window.startAt = todayStart.AddDate(0, 0, -6)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "30d":
		window.startAt = todayStart.AddDate(0, 0, -29)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "custom":
		if input.From == nil || input.To == nil {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		startAt := input.From.UTC()
		endAt := input.To.UTC()
		if endAt.Before(startAt) {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		if endAt.Sub(startAt) > time.Hour*24*dashboardCustomMaxDays {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		window.startAt = startAt
		window.endAt = endAt.Add(time.Second)
	default:
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}

	if !window.endAt.After(window.startAt) {
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}
	return window, nil
}

func formatPercentValue(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func buildDashboardAlerts(overview repository.DashboardOverviewRow) []DashboardAlertItem {
	alerts := make([]DashboardAlertItem, 0, 2)
	if overview.PendingDeactivate > 0 {
		alerts = append(alerts, DashboardAlertItem{Type: "pending_deactivate", Level: "warning", Value: overview.PendingDeactivate})
	}
	if overview.PendingWithdrawals > 0 {
		alerts = append(alerts, DashboardAlertItem{Type: "pending_withdrawals", Level: "info", Value: overview.PendingWithdrawals})
	}
	return alerts
}
