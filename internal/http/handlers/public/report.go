package public

import (
	"strconv"

	handlershared "github.com/nftlevel-next/internal/http/handlers/shared"
	"github.com/nftlevel-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetMyGenealogy 当前会员的族谱树，depth 为空时使用默认深度
func (h *Handler) GetMyGenealogy(c *gin.Context) {
	memberID, ok := getMemberID(c)
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

// GetMyLevelCounts 当前会员各层级人数
func (h *Handler) GetMyLevelCounts(c *gin.Context) {
	memberID, ok := getMemberID(c)
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

// GetMyReferralIncome 当前会员的分期佣金汇总
func (h *Handler) GetMyReferralIncome(c *gin.Context) {
	memberID, ok := getMemberID(c)
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

// GetMyUpline 当前会员的上级链
func (h *Handler) GetMyUpline(c *gin.Context) {
	memberID, ok := getMemberID(c)
	if !ok {
		return
	}
	report, err := h.ReportService.UplineReport(memberID)
	if err != nil {
		respondWithMappedError(c, err, handlershared.MemberErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, report)
}
