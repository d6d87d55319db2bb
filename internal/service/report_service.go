package service

import (
	"context"
	"time"

	"github.com/nftlevel-next/internal/cache"
	"github.com/nftlevel-next/internal/logger"
	"github.com/nftlevel-next/internal/models"
	"github.com/nftlevel-next/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	reportKindGenealogy = "genealogy"
	reportKindLevels    = "levels"
	reportKindIncome    = "income"
)

var reportKinds = []string{reportKindGenealogy, reportKindLevels, reportKindIncome}

// GenealogyNode 族谱节点及其子树汇总
type GenealogyNode struct {
	MemberID         uint             `json:"member_id"`
	MemberCode       string           `json:"member_code"`
	DisplayName      string           `json:"display_name"`
	IsActivated      bool             `json:"is_activated"`
	Depth            int              `json:"depth"`
	DirectCount      int              `json:"direct_count"`
	ActivatedDirects int              `json:"activated_directs"`
	TeamSize         int              `json:"team_size"`
	TeamActivated    int              `json:"team_activated"`
	Purchases        int64            `json:"purchases"`
	PersonalVolume   models.Money     `json:"personal_volume"`
	TeamVolume       models.Money     `json:"team_volume"`
	DirectVolume     models.Money     `json:"direct_volume"`
	TotalVolume      models.Money     `json:"total_volume"`
	Children         []*GenealogyNode `json:"children"`
}

// LevelCount 单层人数
type LevelCount struct {
	Level     int `json:"level"`
	Members   int `json:"members"`
	Activated int `json:"activated"`
}

// LevelCountsReport 各层人数报表
type LevelCountsReport struct {
	MemberID       uint         `json:"member_id"`
	Levels         []LevelCount `json:"levels"`
	TotalMembers   int          `json:"total_members"`
	TotalActivated int          `json:"total_activated"`
}

// ReferralIncomeItem 按购买人与层级的佣金明细
type ReferralIncomeItem struct {
	MemberID        uint         `json:"member_id"`
	MemberCode      string       `json:"member_code"`
	DisplayName     string       `json:"display_name"`
	Level           int          `json:"level"`
	Records         int64        `json:"records"`
	TotalCommission models.Money `json:"total_commission"`
	TotalPaid       models.Money `json:"total_paid"`
	RemainingAmount models.Money `json:"remaining_amount"`

	Purchases []ReferralPurchaseIncome `json:"purchases"`
}

// ReferralPurchaseIncome 单笔来源购买产生的分期佣金
type ReferralPurchaseIncome struct {
	AccrualRecordID uint         `json:"accrual_record_id"`
	NFTPurchaseID   uint         `json:"nft_purchase_id"`
	NFTCode         string       `json:"nft_code"`
	Series          string       `json:"series"`
	PurchasedAt     time.Time    `json:"purchased_at"`
	Status          string       `json:"status"`
	DaysPaid        int          `json:"days_paid"`
	TotalCommission models.Money `json:"total_commission"`
	TotalPaid       models.Money `json:"total_paid"`
	RemainingAmount models.Money `json:"remaining_amount"`
}

// ReferralIncomeReport 推荐佣金报表
type ReferralIncomeReport struct {
	SponsorID       uint                 `json:"sponsor_id"`
	Items           []ReferralIncomeItem `json:"items"`
	TotalCommission models.Money         `json:"total_commission"`
	TotalPaid       models.Money         `json:"total_paid"`
	RemainingAmount models.Money         `json:"remaining_amount"`
}

// UplineReportItem 上级链展示项
type UplineReportItem struct {
	Level       int    `json:"level"`
	MemberID    uint   `json:"member_id"`
	MemberCode  string `json:"member_code"`
	DisplayName string `json:"display_name"`
	IsActivated bool   `json:"is_activated"`
}

// UplineReport 上级链报表
type UplineReport struct {
	MemberID  uint               `json:"member_id"`
	Items     []UplineReportItem `json:"items"`
	Truncated bool               `json:"truncated"`
}

// ReportService 只读报表服务
type ReportService struct {
	memberRepo   repository.MemberRepository
	purchaseRepo repository.PurchaseRepository
	accrualRepo  repository.AccrualRepository
	settings     EngineSettings
}

// NewReportService 创建报表服务
func NewReportService(
	memberRepo repository.MemberRepository,
	purchaseRepo repository.PurchaseRepository,
	accrualRepo repository.AccrualRepository,
	settings EngineSettings,
) *ReportService {
	return &ReportService{
		memberRepo:   memberRepo,
		purchaseRepo: purchaseRepo,
		accrualRepo:  accrualRepo,
		settings:     settings,
	}
}

// Genealogy 以 memberID 为根构建有限深度的族谱树，depth<=0 时使用默认深度
func (s *ReportService) Genealogy(ctx context.Context, memberID uint, depth int) (*GenealogyNode, error) {
	maxDepth := s.settings.GenealogyMaxDepth
	useCache := depth <= 0 || depth == maxDepth
	if depth <= 0 || depth > maxDepth {
		depth = maxDepth
	}
	key := cache.ReportKey(reportKindGenealogy, memberID)
	if useCache {
		var cached GenealogyNode
		if hit, err := cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	root, err := s.memberRepo.GetByID(memberID)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, ErrMemberNotFound
	}

	rootNode := newGenealogyNode(root, 0)
	visited := map[uint]struct{}{root.ID: {}}
	nodes := map[uint]*GenealogyNode{root.ID: rootNode}
	order := []*GenealogyNode{rootNode}
	frontier := []uint{root.ID}

	for level := 1; level <= depth && len(frontier) > 0; level++ {
		children, err := s.memberRepo.ListBySponsorIDs(frontier)
		if err != nil {
			return nil, err
		}
		next := make([]uint, 0, len(children))
		for i := range children {
			child := &children[i]
			if _, seen := visited[child.ID]; seen || child.SponsorID == nil {
				continue
			}
			parent, ok := nodes[*child.SponsorID]
			if !ok {
				continue
			}
			visited[child.ID] = struct{}{}
			node := newGenealogyNode(child, level)
			parent.Children = append(parent.Children, node)
			parent.DirectCount++
			if child.IsActivated {
				parent.ActivatedDirects++
			}
			nodes[child.ID] = node
			order = append(order, node)
			next = append(next, child.ID)
		}
		frontier = next
	}

	ids := make([]uint, 0, len(order))
	for _, node := range order {
		ids = append(ids, node.MemberID)
	}
	totals, err := s.purchaseRepo.SumPriceByMembers(ids)
	if err != nil {
		return nil, err
	}

	// 逆序遍历即为自底向上
	teamVolume := make(map[uint]decimal.Decimal, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		node := order[i]
		personal := totals[node.MemberID]
		node.Purchases = personal.Purchases
		node.PersonalVolume = models.NewMoneyFromDecimal(personal.Volume)
		volume := teamVolume[node.MemberID]
		for _, child := range node.Children {
			node.TeamSize += 1 + child.TeamSize
			node.TeamActivated += child.TeamActivated
			if child.IsActivated {
				node.TeamActivated++
			}
			volume = volume.Add(child.PersonalVolume.Decimal).Add(teamVolume[child.MemberID])
		}
		teamVolume[node.MemberID] = volume
		node.TeamVolume = models.NewMoneyFromDecimal(volume)
	}

	if useCache {
		if err := cache.SetJSON(ctx, key, rootNode, s.settings.ReportCacheTTL); err != nil {
			logger.Warnw("report_cache_set_failed", "key", key, "error", err)
		}
	}
	return rootNode, nil
}

// LevelCounts 逐层广度展开直推关系，统计各层人数
func (s *ReportService) LevelCounts(ctx context.Context, memberID uint) (*LevelCountsReport, error) {
	key := cache.ReportKey(reportKindLevels, memberID)
	var cached LevelCountsReport
	if hit, err := cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	root, err := s.memberRepo.GetByID(memberID)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, ErrMemberNotFound
	}

	maxLevels := s.settings.CommissionLevels()
	report := &LevelCountsReport{MemberID: root.ID, Levels: make([]LevelCount, 0, maxLevels)}
	visited := map[uint]struct{}{root.ID: {}}
	frontier := []uint{root.ID}
	for level := 1; level <= maxLevels; level++ {
		count := LevelCount{Level: level}
		var next []uint
		if len(frontier) > 0 {
			children, err := s.memberRepo.ListBySponsorIDs(frontier)
			if err != nil {
				return nil, err
			}
			next = make([]uint, 0, len(children))
			for _, child := range children {
				if _, seen := visited[child.ID]; seen {
					continue
				}
				visited[child.ID] = struct{}{}
				count.Members++
				if child.IsActivated {
					count.Activated++
				}
				next = append(next, child.ID)
			}
		}
		report.Levels = append(report.Levels, count)
		report.TotalMembers += count.Members
		report.TotalActivated += count.Activated
		frontier = next
	}

	if err := cache.SetJSON(ctx, key, report, s.settings.ReportCacheTTL); err != nil {
		logger.Warnw("report_cache_set_failed", "key", key, "error", err)
	}
	return report, nil
}

// ReferralIncome 推荐人名下分期佣金按购买人与层级的明细
func (s *ReportService) ReferralIncome(ctx context.Context, sponsorID uint) (*ReferralIncomeReport, error) {
	key := cache.ReportKey(reportKindIncome, sponsorID)
	var cached ReferralIncomeReport
	if hit, err := cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	sponsor, err := s.memberRepo.GetByID(sponsorID)
	if err != nil {
		return nil, err
	}
	if sponsor == nil {
		return nil, ErrMemberNotFound
	}
	rows, err := s.accrualRepo.SumReferralIncome(sponsor.ID)
	if err != nil {
		return nil, err
	}
	details, err := s.accrualRepo.ListReferralPurchases(sponsor.ID)
	if err != nil {
		return nil, err
	}
	type incomeKey struct {
		memberID uint
		level    int
	}
	purchasesByKey := make(map[incomeKey][]ReferralPurchaseIncome, len(rows))
	for _, detail := range details {
		key := incomeKey{memberID: detail.MemberID, level: detail.Level}
		purchasesByKey[key] = append(purchasesByKey[key], ReferralPurchaseIncome{
			AccrualRecordID: detail.AccrualRecordID,
			NFTPurchaseID:   detail.NFTPurchaseID,
			NFTCode:         detail.NFTCode,
			Series:          detail.Series,
			PurchasedAt:     detail.PurchasedAt.UTC(),
			Status:          detail.Status,
			DaysPaid:        detail.DaysPaid,
			TotalCommission: models.NewMoneyFromDecimal(detail.TotalCommission),
			TotalPaid:       models.NewMoneyFromDecimal(detail.TotalPaid),
			RemainingAmount: models.NewMoneyFromDecimal(detail.RemainingAmount),
		})
	}
	memberIDs := make([]uint, 0, len(rows))
	for _, row := range rows {
		memberIDs = append(memberIDs, row.MemberID)
	}
	members, err := s.memberRepo.GetByIDs(memberIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Member, len(members))
	for _, member := range members {
		byID[member.ID] = member
	}

	report := &ReferralIncomeReport{SponsorID: sponsor.ID, Items: make([]ReferralIncomeItem, 0, len(rows))}
	totalCommission, totalPaid, remaining := decimal.Zero, decimal.Zero, decimal.Zero
	for _, row := range rows {
		member := byID[row.MemberID]
		report.Items = append(report.Items, ReferralIncomeItem{
			MemberID:        row.MemberID,
			MemberCode:      member.MemberCode,
			DisplayName:     member.DisplayName,
			Level:           row.Level,
			Records:         row.Records,
			TotalCommission: models.NewMoneyFromDecimal(row.TotalCommission),
			TotalPaid:       models.NewMoneyFromDecimal(row.TotalPaid),
			RemainingAmount: models.NewMoneyFromDecimal(row.RemainingAmount),
			Purchases:       purchasesByKey[incomeKey{memberID: row.MemberID, level: row.Level}],
		})
		totalCommission = totalCommission.Add(row.TotalCommission)
		totalPaid = totalPaid.Add(row.TotalPaid)
		remaining = remaining.Add(row.RemainingAmount)
	}
	report.TotalCommission = models.NewMoneyFromDecimal(totalCommission)
	report.TotalPaid = models.NewMoneyFromDecimal(totalPaid)
	report.RemainingAmount = models.NewMoneyFromDecimal(remaining)

	if err := cache.SetJSON(ctx, key, report, s.settings.ReportCacheTTL); err != nil {
		logger.Warnw("report_cache_set_failed", "key", key, "error", err)
	}
	return report, nil
}

// UplineReport 上级链展示
func (s *ReportService) UplineReport(memberID uint) (*UplineReport, error) {
	member, err := s.memberRepo.GetByID(memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	upline := walkUpline(s.memberRepo, member, s.settings.CommissionLevels())
	if upline.Err != nil {
		return nil, upline.Err
	}
	report := &UplineReport{
		MemberID:  member.ID,
		Items:     make([]UplineReportItem, 0, len(upline.Entries)),
		Truncated: upline.Truncated,
	}
	for _, entry := range upline.Entries {
		report.Items = append(report.Items, UplineReportItem{
			Level:       entry.Level,
			MemberID:    entry.Member.ID,
			MemberCode:  entry.Member.MemberCode,
			DisplayName: entry.Member.DisplayName,
			IsActivated: entry.Member.IsActivated,
		})
	}
	return report, nil
}

func newGenealogyNode(member *models.Member, depth int) *GenealogyNode {
	return &GenealogyNode{
		MemberID:     member.ID,
		MemberCode:   member.MemberCode,
		DisplayName:  member.DisplayName,
		IsActivated:  member.IsActivated,
		Depth:        depth,
		DirectVolume: member.DirectVolume,
		TotalVolume:  member.TotalVolume,
		Children:     []*GenealogyNode{},
	}
}

// reportInvalidator 删除报表缓存，测试中替换为记录调用
var reportInvalidator = deleteReportCache

// invalidateReportCache 清除受影响会员的报表缓存，重复ID只删一次
func invalidateReportCache(ctx context.Context, memberIDs ...uint) {
	if len(memberIDs) == 0 {
		return
	}
	seen := make(map[uint]struct{}, len(memberIDs))
	unique := make([]uint, 0, len(memberIDs))
	for _, id := range memberIDs {
		if _, ok := seen[id]; ok || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	reportInvalidator(ctx, unique...)
}

func deleteReportCache(ctx context.Context, memberIDs ...uint) {
	if err := cache.DelReports(ctx, reportKinds, memberIDs...); err != nil {
		logger.Warnw("report_cache_invalidate_failed", "members", len(memberIDs), "error", err)
	}
}
