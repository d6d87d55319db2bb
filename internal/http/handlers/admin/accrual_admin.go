package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/nftlevel-next/internal/http/handlers/shared"
	"github.com/nftlevel-next/internal/http/response"
	"github.com/nftlevel-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListAccruals 分页查询分期佣金记录
func (h *Handler) ListAccruals(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	sponsorID, err := parseOptionalUint(c.Query("sponsor_id"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	memberID, err := parseOptionalUint(c.Query("member_id"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	purchaseID, err := parseOptionalUint(c.Query("nft_purchase_id"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	level, _ := strconv.Atoi(c.DefaultQuery("level", "0"))
	records, total, err := h.AccrualService.List(repository.AccrualListFilter{
		Page:          page,
		PageSize:      pageSize,
		SponsorID:     sponsorID,
		MemberID:      memberID,
		NFTPurchaseID: purchaseID,
		Level:         level,
		Status:        strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, records, response.BuildPagination(page, pageSize, total))
}
