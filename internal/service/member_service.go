package service

import (
	"context"
	"crypto/rand"
	"math/big"
	"net/mail"
	"strings"

	"github.com/nftlevel-next/internal/cache"
	"github.com/nftlevel-next/internal/constants"
	"github.com/nftlevel-next/internal/logger"
	"github.com/nftlevel-next/internal/models"
	"github.com/nftlevel-next/internal/repository"
)

const (
	memberCodeLength      = 8
	memberCodeMaxAttempts = 8
	memberDisplayNameMax  = 120
)

// MemberService 会员目录服务
type MemberService struct {
	repo  repository.MemberRepository
	clock Clock
}

// NewMemberService 创建会员目录服务
func NewMemberService(repo repository.MemberRepository, clock Clock) *MemberService {
	return &MemberService{repo: repo, clock: resolveClock(clock)}
}

// RegisterMemberInput 会员登记输入
type RegisterMemberInput struct {
	DisplayName string
	Email       string
	Phone       string
	SponsorCode string
}

// Register 登记新会员，推荐人必须已存在，新会员总是叶子节点
func (s *MemberService) Register(ctx context.Context, input RegisterMemberInput) (*models.Member, error) {
	name := strings.TrimSpace(input.DisplayName)
	if name == "" || len([]rune(name)) > memberDisplayNameMax {
		return nil, ErrMemberNameInvalid
	}
	var email *string
	if normalized := strings.ToLower(strings.TrimSpace(input.Email)); normalized != "" {
		email = &normalized
	}
	if email != nil {
		if _, err := mail.ParseAddress(*email); err != nil {
			return nil, ErrMemberEmailInvalid
		}
		exists, err := s.repo.ExistsEmail(*email)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrMemberAlreadyExists
		}
	}

	var sponsorID *uint
	if code := strings.TrimSpace(input.SponsorCode); code != "" {
		sponsor, err := s.repo.GetByCode(code)
		if err != nil {
			return nil, err
		}
		if sponsor == nil {
			return nil, ErrSponsorNotFound
		}
		id := sponsor.ID
		sponsorID = &id
	}

	now := s.clock.Now()
	for attempt := 0; attempt < memberCodeMaxAttempts; attempt++ {
		code, err := generateMemberCode()
		if err != nil {
			return nil, err
		}
		exists, err := s.repo.ExistsCode(code)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		member := &models.Member{
			MemberCode:           code,
			DisplayName:          name,
			Email:                email,
			Phone:                strings.TrimSpace(input.Phone),
			SponsorID:            sponsorID,
			WalletBalance:        models.ZeroMoney(),
			Wallet:               models.MemberWallet{Balance: models.ZeroMoney()},
			SponsorIncome:        models.ZeroMoney(),
			LevelIncome:          models.ZeroMoney(),
			RewardIncome:         models.ZeroMoney(),
			DirectVolume:         models.ZeroMoney(),
			TotalVolume:          models.ZeroMoney(),
			HoldingWalletBalance: models.ZeroMoney(),
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if err := s.repo.Create(member); err != nil {
			switch {
			case uniqueViolationOn(err, "email"):
				return nil, ErrMemberAlreadyExists
			case uniqueViolationOn(err, "member_code"):
				continue
			}
			return nil, err
		}
		if sponsorID != nil && cache.Enabled() {
			invalidateReportCache(ctx, affectedMemberIDs(member.ID, walkUpline(s.repo, member, constants.DefaultMaxLevels))...)
		}
		logger.Infow("member_registered", "member_id", member.ID, "member_code", member.MemberCode, "sponsor_id", sponsorID)
		return member, nil
	}
	return nil, ErrMemberCodeExhausted
}

// GetByID 获取会员
func (s *MemberService) GetByID(id uint) (*models.Member, error) {
	member, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	return member, nil
}

// GetByCode 按会员编号获取会员
func (s *MemberService) GetByCode(code string) (*models.Member, error) {
	member, err := s.repo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	return member, nil
}

// ListDirects 查询直推会员
func (s *MemberService) ListDirects(sponsorID uint, activatedOnly bool) ([]models.Member, error) {
	var activated *bool
	if activatedOnly {
		v := true
		activated = &v
	}
	return s.repo.ListBySponsor(sponsorID, activated)
}

// List 后台分页查询会员
func (s *MemberService) List(filter repository.MemberListFilter) ([]models.Member, int64, error) {
	return s.repo.List(filter)
}

// MemberStatus 会员激活状态文本
func MemberStatus(member *models.Member) string {
	if member != nil && member.IsActivated {
		return constants.MemberStatusActivated
	}
	return constants.MemberStatusInactivated
}

func generateMemberCode() (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	var builder strings.Builder
	builder.Grow(len(constants.MemberCodePrefix) + memberCodeLength)
	builder.WriteString(constants.MemberCodePrefix)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < memberCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(alphabet[n.Int64()])
	}
	return builder.String(), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

// uniqueViolationOn 唯一约束冲突是否落在指定列，三种驱动的错误文本都带列名或索引名
func uniqueViolationOn(err error, column string) bool {
	return isUniqueViolation(err) && strings.Contains(strings.ToLower(err.Error()), column)
}
