package public

import (
	"strings"

	handlershared "github.com/nftlevel-next/internal/http/handlers/shared"
	"github.com/nftlevel-next/internal/http/response"
	"github.com/nftlevel-next/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// WithdrawRequest 提现申请请求
type WithdrawRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// GetMyWallet 获取当前会员钱包概览
func (h *Handler) GetMyWallet(c *gin.Context) {
	memberID, ok := getMemberID(c)
	if !ok {
		return
	}
	overview, err := h.WalletService.GetOverview(memberID)
	if err != nil {
		respondWithMappedError(c, err, handlershared.MemberErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, overview)
}

// GetMyWalletTransactions 获取当前会员钱包流水
func (h *Handler) GetMyWalletTransactions(c *gin.Context) {
	memberID, ok := getMemberID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	transactions, total, err := h.WalletService.ListTransactions(repository.WalletTransactionListFilter{
		Page:      page,
		PageSize:  pageSize,
		MemberID:  memberID,
		Type:      strings.TrimSpace(c.Query("type")),
		Direction: strings.TrimSpace(c.Query("direction")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, transactions, response.BuildPagination(page, pageSize, total))
}

// ApplyWithdraw 申请提现
func (h *Handler) ApplyWithdraw(c *gin.Context) {
	memberID, ok := getMemberID(c)
	if !ok {
		return
	}
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.withdraw_amount_invalid", nil)
		return
	}
	withdrawal, err := h.WithdrawalService.Apply(c.Request.Context(), memberID, amount)
	if err != nil {
		rules := handlershared.ConcatMappedErrors(handlershared.WithdrawalErrorRules, handlershared.MemberErrorRules)
		respondWithMappedError(c, err, rules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, withdrawal)
}

// ListMyWithdraws 分页查询当前会员提现记录
func (h *Handler) ListMyWithdraws(c *gin.Context) {
	memberID, ok := getMemberID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	withdrawals, total, err := h.WithdrawalService.List(repository.WithdrawalListFilter{
		Page:     page,
		PageSize: pageSize,
		MemberID: memberID,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, withdrawals, response.BuildPagination(page, pageSize, total))
}
