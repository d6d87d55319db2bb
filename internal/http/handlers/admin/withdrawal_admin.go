package admin

import (
	"strings"
	"time"

	handlershared "github.com/nftlevel-next/internal/http/handlers/shared"
	"github.com/nftlevel-next/internal/http/response"
	"github.com/nftlevel-next/internal/repository"
	"github.com/nftlevel-next/internal/service"

	"github.com/gin-gonic/gin"
)

type withdrawalReviewPayload struct {
	Action string `json:"action" binding:"required"`
	Reason string `json:"reason"`
}

// ListWithdrawals 分页查询提现申请
func (h *Handler) ListWithdrawals(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	memberID, err := parseOptionalUint(c.Query("member_id"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	createdFrom, err := parseTimeNullable(c.Query("created_from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	createdTo, err := parseTimeNullable(c.Query("created_to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	withdrawals, total, err := h.WithdrawalService.List(repository.WithdrawalListFilter{
		Page:        page,
		PageSize:    pageSize,
		MemberID:    memberID,
		Status:      strings.TrimSpace(c.Query("status")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, withdrawals, response.BuildPagination(page, pageSize, total))
}

// ReviewWithdrawal 审核提现：approve / reject / complete
func (h *Handler) ReviewWithdrawal(c *gin.Context) {
	withdrawalID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req withdrawalReviewPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	withdrawal, err := h.WithdrawalService.Review(c.Request.Context(), service.WithdrawalReviewInput{
		WithdrawalID: withdrawalID,
		Action:       req.Action,
		Reason:       req.Reason,
	})
	if err != nil {
		respondWithMappedError(c, err, handlershared.WithdrawalErrorRules, response.CodeInternal, "error.internal")
		return
	}
	requestLog(c).Infow("admin_withdrawal_reviewed",
		"operator_id", currentOperatorID(c),
		"withdrawal_id", withdrawalID,
		"action", strings.ToLower(strings.TrimSpace(req.Action)),
		"status", withdrawal.Status,
	)
	response.Success(c, withdrawal)
}

func parseTimeNullable(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		utc := t.UTC()
		return &utc, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
