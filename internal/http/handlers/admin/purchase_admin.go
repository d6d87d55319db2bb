package admin

import (
	"strings"

	handlershared "github.com/nftlevel-next/internal/http/handlers/shared"
	"github.com/nftlevel-next/internal/http/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type payoutPayload struct {
	Amount string `json:"amount" binding:"required"`
}

// PayoutPurchase 藏品出售回款入账，持仓归零时安排停用
func (h *Handler) PayoutPurchase(c *gin.Context) {
	purchaseID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req payoutPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.payout_amount_invalid", nil)
		return
	}
	result, err := h.HoldingService.PayoutPurchase(c.Request.Context(), purchaseID, amount)
	if err != nil {
		rules := handlershared.ConcatMappedErrors(handlershared.PurchaseErrorRules, handlershared.MemberErrorRules)
		respondWithMappedError(c, err, rules, response.CodeInternal, "error.internal")
		return
	}
	requestLog(c).Infow("admin_purchase_payout",
		"operator_id", currentOperatorID(c),
		"purchase_id", purchaseID,
		"amount", amount.String(),
	)
	response.Success(c, result)
}

// RetryPurchaseUpline 补发购买上级链中尚未入账的层级
func (h *Handler) RetryPurchaseUpline(c *gin.Context) {
	purchaseID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	distribution, err := h.PurchaseService.RetryUpline(c.Request.Context(), purchaseID)
	if err != nil {
		rules := handlershared.ConcatMappedErrors(handlershared.PurchaseErrorRules, handlershared.MemberErrorRules)
		respondWithMappedError(c, err, rules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, distribution)
}
