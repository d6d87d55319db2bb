package service

import (
	"github.com/nftlevel-next/internal/logger"
	"github.com/nftlevel-next/internal/models"
	"github.com/nftlevel-next/internal/repository"
)

// UplineEntry 上级链中的一层
type UplineEntry struct {
	Level  int           `json:"level"`
	Member models.Member `json:"member"`
}

// UplineResult 上级链遍历结果
// Truncated 为真时链条在 maxLevels 之前中断：推荐人缺失（BrokenAt）、出现环（CycleAt）或读取失败（Err）。
type UplineResult struct {
	Entries   []UplineEntry `json:"entries"`
	Truncated bool          `json:"truncated"`
	BrokenAt  uint          `json:"broken_at,omitempty"`
	CycleAt   uint          `json:"cycle_at,omitempty"`
	Err       error         `json:"-"`
}

// Levels 已解析的层数
func (r *UplineResult) Levels() int {
	if r == nil {
		return 0
	}
	return len(r.Entries)
}

// UplineService 上级链遍历服务
type UplineService struct {
	memberRepo repository.MemberRepository
}

// NewUplineService 创建上级链遍历服务
func NewUplineService(memberRepo repository.MemberRepository) *UplineService {
	return &UplineService{memberRepo: memberRepo}
}

// Upline 返回会员的有序上级链，第 1 层为直接推荐人
func (s *UplineService) Upline(memberID uint, maxLevels int) (*UplineResult, error) {
	member, err := s.memberRepo.GetByID(memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	return walkUpline(s.memberRepo, member, maxLevels), nil
}

// walkUpline 从 start 开始逐层读取推荐人，读取失败时保留已解析的前缀
func walkUpline(repo repository.MemberRepository, start *models.Member, maxLevels int) *UplineResult {
	result := &UplineResult{Entries: []UplineEntry{}}
	if start == nil || maxLevels <= 0 {
		return result
	}
	visited := map[uint]struct{}{start.ID: {}}
	current := start
	for level := 1; level <= maxLevels; level++ {
		if current.SponsorID == nil || *current.SponsorID == 0 {
			return result
		}
		sponsorID := *current.SponsorID
		if _, seen := visited[sponsorID]; seen {
			logger.Warnw("upline_cycle_detected",
				"start_member_id", start.ID,
				"member_id", current.ID,
				"sponsor_id", sponsorID,
				"level", level,
			)
			result.Truncated = true
			result.CycleAt = sponsorID
			return result
		}
		sponsor, err := repo.GetByID(sponsorID)
		if err != nil {
			result.Truncated = true
			result.Err = err
			return result
		}
		if sponsor == nil {
			logger.Warnw("upline_sponsor_missing",
				"start_member_id", start.ID,
				"member_id", current.ID,
				"sponsor_id", sponsorID,
				"level", level,
			)
			result.Truncated = true
			result.BrokenAt = sponsorID
			return result
		}
		visited[sponsorID] = struct{}{}
		result.Entries = append(result.Entries, UplineEntry{Level: level, Member: *sponsor})
		current = sponsor
	}
	return result
}
