package public

import (
	"strings"

	handlershared "github.com/nftlevel-next/internal/http/handlers/shared"
	"github.com/nftlevel-next/internal/http/response"
	"github.com/nftlevel-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreatePurchaseRequest 购买登记请求
type CreatePurchaseRequest struct {
	NFTCode string `json:"nft_code" binding:"required"`
	Series  string `json:"series" binding:"required"`
	Price   string `json:"price"`
}

// CreatePurchase 登记当前会员的一次购买并即时分配奖励
func (h *Handler) CreatePurchase(c *gin.Context) {
	memberID, ok := getMemberID(c)
	if !ok {
		return
	}
	var req CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	price := decimal.Zero
	if raw := strings.TrimSpace(req.Price); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.purchase_price_invalid", nil)
			return
		}
		price = parsed
	}
	result, err := h.PurchaseService.RecordPurchase(c.Request.Context(), service.RecordPurchaseInput{
		MemberID: memberID,
		NFTCode:  req.NFTCode,
		Series:   req.Series,
		Price:    price,
	})
	if err != nil {
		rules := handlershared.ConcatMappedErrors(handlershared.PurchaseErrorRules, handlershared.MemberErrorRules)
		respondWithMappedError(c, err, rules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, result)
}

// ListMyPurchases 分页查询当前会员的购买记录
func (h *Handler) ListMyPurchases(c *gin.Context) {
	memberID, ok := getMemberID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	purchases, total, err := h.PurchaseService.ListByMember(memberID, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, purchases, response.BuildPagination(page, pageSize, total))
}
