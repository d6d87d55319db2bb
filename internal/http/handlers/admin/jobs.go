package admin

import (
	"context"

	handlershared "github.com/nftlevel-next/internal/http/handlers/shared"
	"github.com/nftlevel-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// RunAccrualTick 手动触发一次日结，返回本次运行汇总
// 客户端断开不会中断批次，运行上下文与请求取消解绑。
func (h *Handler) RunAccrualTick(c *gin.Context) {
	summary, err := h.AccrualService.RunTick(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		respondWithMappedError(c, err, handlershared.JobErrorRules, response.CodeInternal, "error.internal")
		return
	}
	requestLog(c).Infow("admin_accrual_tick_triggered",
		"operator_id", currentOperatorID(c),
		"run_id", summary.RunID,
		"processed", summary.Processed,
		"errored", summary.Errored,
	)
	response.Success(c, summary)
}

// RunDeactivationCheck 手动触发一次停用巡检
func (h *Handler) RunDeactivationCheck(c *gin.Context) {
	summary, err := h.HoldingService.RunDeactivationCheck(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		respondWithMappedError(c, err, handlershared.JobErrorRules, response.CodeInternal, "error.internal")
		return
	}
	requestLog(c).Infow("admin_deactivation_check_triggered",
		"operator_id", currentOperatorID(c),
		"run_id", summary.RunID,
		"deactivated", len(summary.Deactivated),
	)
	response.Success(c, summary)
}
