package public

import (
	"strconv"
	"strings"

	"github.com/nftlevel-next/internal/constants"
	handlershared "github.com/nftlevel-next/internal/http/handlers/shared"
	"github.com/nftlevel-next/internal/http/response"
	"github.com/nftlevel-next/internal/models"
	"github.com/nftlevel-next/internal/service"

	"github.com/gin-gonic/gin"
)

// RegisterMemberRequest 会员登记请求
type RegisterMemberRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	SponsorCode string `json:"sponsor_code"`

	CaptchaPayload handlershared.CaptchaPayloadRequest `json:"captcha_payload"`
}

// MemberPublicProfile 公开的会员信息
type MemberPublicProfile struct {
	MemberCode  string `json:"member_code"`
	DisplayName string `json:"display_name"`
	IsActivated bool   `json:"is_activated"`
	SponsorCode string `json:"sponsor_code,omitempty"`
}

// RegisterMember 登记新会员
func (h *Handler) RegisterMember(c *gin.Context) {
	var req RegisterMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.CaptchaService.Verify(c.Request.Context(), constants.CaptchaSceneRegister, req.CaptchaPayload.ToServicePayload(), c.ClientIP()); err != nil {
		respondWithMappedError(c, err, handlershared.CaptchaErrorRules, response.CodeInternal, "error.captcha_verify_failed")
		return
	}
	member, err := h.MemberService.Register(c.Request.Context(), service.RegisterMemberInput{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Phone:       req.Phone,
		SponsorCode: req.SponsorCode,
	})
	if err != nil {
		respondWithMappedError(c, err, handlershared.MemberErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, member)
}

// GetMemberByCode 按会员编号查询公开信息，用于推荐链接校验
func (h *Handler) GetMemberByCode(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	member, err := h.MemberService.GetByCode(code)
	if err != nil {
		respondWithMappedError(c, err, handlershared.MemberErrorRules, response.CodeInternal, "error.internal")
		return
	}
	profile := MemberPublicProfile{
		MemberCode:  member.MemberCode,
		DisplayName: member.DisplayName,
		IsActivated: member.IsActivated,
	}
	if member.SponsorID != nil {
		if sponsor, sponsorErr := h.MemberService.GetByID(*member.SponsorID); sponsorErr == nil {
			profile.SponsorCode = sponsor.MemberCode
		}
	}
	response.Success(c, profile)
}

// GetMe 获取当前会员信息
func (h *Handler) GetMe(c *gin.Context) {
	memberID, ok := getMemberID(c)
	if !ok {
		return
	}
	member, err := h.MemberService.GetByID(memberID)
	if err != nil {
		respondWithMappedError(c, err, handlershared.MemberErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, member)
}

// ListMyDirects 查询当前会员的直推会员
func (h *Handler) ListMyDirects(c *gin.Context) {
	memberID, ok := getMemberID(c)
	if !ok {
		return
	}
	activatedOnly, _ := strconv.ParseBool(c.DefaultQuery("activated", "false"))
	directs, err := h.MemberService.ListDirects(memberID, activatedOnly)
	if err != nil {
		respondWithMappedError(c, err, handlershared.MemberErrorRules, response.CodeInternal, "error.internal")
		return
	}
	if directs == nil {
		directs = []models.Member{}
	}
	response.Success(c, directs)
}
