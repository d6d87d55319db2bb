package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/nftlevel-next/internal/http/handlers/shared"
	"github.com/nftlevel-next/internal/http/response"
	"github.com/nftlevel-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListMembers 分页查询会员
func (h *Handler) ListMembers(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	sponsorID, err := parseOptionalUint(c.Query("sponsor_id"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	filter := repository.MemberListFilter{
		Page:      page,
		PageSize:  pageSize,
		SponsorID: sponsorID,
		Keyword:   strings.TrimSpace(c.Query("keyword")),
	}
	if raw := strings.TrimSpace(c.Query("activated")); raw != "" {
		activated, parseErr := strconv.ParseBool(raw)
		if parseErr != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", parseErr)
			return
		}
		filter.IsActivated = &activated
	}
	members, total, err := h.MemberService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, members, response.BuildPagination(page, pageSize, total))
}

// GetMember 查询会员详情，附带持仓与上级链
func (h *Handler) GetMember(c *gin.Context) {
	memberID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	member, err := h.MemberService.GetByID(memberID)
	if err != nil {
		respondWithMappedError(c, err, handlershared.MemberErrorRules, response.CodeInternal, "error.internal")
		return
	}
	holding, err := h.HoldingService.ComputeHoldingBalance(memberID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	upline, err := h.ReportService.UplineReport(memberID)
	if err != nil {
		respondWithMappedError(c, err, handlershared.MemberErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, gin.H{
		"member":           member,
		"computed_holding": holding.StringFixed(8),
		"upline":           upline,
	})
}

// GetMemberGenealogy 查询指定会员族谱
func (h *Handler) GetMemberGenealogy(c *gin.Context) {
	memberID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	depth, _ := strconv.Atoi(c.DefaultQuery("depth", "0"))
	tree, err := h.ReportService.Genealogy(c.Request.Context(), memberID, depth)
	if err != nil {
		respondWithMappedError(c, err, handlershared.MemberErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, tree)
}

// GetMemberLevelCounts 查询指定会员各层人数
func (h *Handler) GetMemberLevelCounts(c *gin.Context) {
	memberID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	report, err := h.ReportService.LevelCounts(c.Request.Context(), memberID)
	if err != nil {
		respondWithMappedError(c, err, handlershared.MemberErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, report)
}

// GetMemberReferralIncome 查询指定会员分期佣金汇总
func (h *Handler) GetMemberReferralIncome(c *gin.Context) {
	memberID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	report, err := h.ReportService.ReferralIncome(c.Request.Context(), memberID)
	if err != nil {
		respondWithMappedError(c, err, handlershared.MemberErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, report)
}

func parseOptionalUint(raw string) (uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}
