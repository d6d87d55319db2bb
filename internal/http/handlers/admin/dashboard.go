package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/nftlevel-next/internal/http/response"
	"github.com/nftlevel-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetDashboardOverview 获取后台看板总览
func (h *Handler) GetDashboardOverview(c *gin.Context) {
	input, err := parseDashboardQuery(c)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	data, err := h.DashboardService.GetOverview(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrDashboardRangeInvalid) {
			respondError(c, response.CodeBadRequest, "error.dashboard_range_invalid", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}

	response.Success(c, data)
}

// GetDashboardTrends 获取后台看板趋势
func (h *Handler) GetDashboardTrends(c *gin.Context) {
	input, err := parseDashboardQuery(c)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	data, err := h.DashboardService.GetTrends(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrDashboardRangeInvalid) {
			respondError(c, response.CodeBadRequest, "error.dashboard_range_invalid", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}

	response.Success(c, data)
}

// GetDashboardTopEarners 获取收益排行
func (h *Handler) GetDashboardTopEarners(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	data, err := h.DashboardService.GetTopEarners(limit)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, data)
}

func parseDashboardQuery(c *gin.Context) (service.DashboardQueryInput, error) {
	rangeRaw := strings.TrimSpace(c.DefaultQuery("range", "7d"))
	forceRefreshRaw := strings.TrimSpace(c.Query("force_refresh"))

	from, err := parseTimeNullable(c.Query("from"))
	if err != nil {
		return service.DashboardQueryInput{}, err
	}
	to, err := parseTimeNullable(c.Query("to"))
	if err != nil {
		return service.DashboardQueryInput{}, err
	}

	forceRefresh := false
	if forceRefreshRaw != "" {
		parsed, err := strconv.ParseBool(forceRefreshRaw)
		if err != nil {
			return service.DashboardQueryInput{}, err
		}
		forceRefresh = parsed
	}

	return service.DashboardQueryInput{
		Range:        rangeRaw,
		From:         from,
		To:           to,
		ForceRefresh: forceRefresh,
	}, nil
}
