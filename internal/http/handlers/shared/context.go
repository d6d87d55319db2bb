package shared

import (
	"strconv"
	"strings"

	"github.com/nftlevel-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// 鉴权中间件写入的上下文 key
const (
	ContextMemberID        = "member_id"
	ContextMemberCode      = "member_code"
	ContextOperatorID      = "operator_id"
	ContextOperatorName    = "operator_username"
	ContextOperatorIsSuper = "operator_is_super"
)

// GetContextUintWithKeys 从上下文读取 uint 值并统一处理错误响应。
func GetContextUintWithKeys(c *gin.Context, key, invalidKey, typeInvalidKey string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			RespondError(c, response.CodeBadRequest, invalidKey, nil)
			return 0, false
		}
		return uint(v), true
	case float64:
		if v < 0 {
			RespondError(c, response.CodeBadRequest, invalidKey, nil)
			return 0, false
		}
		return uint(v), true
	default:
		RespondError(c, response.CodeInternal, typeInvalidKey, nil)
		return 0, false
	}
}

// GetMemberID 读取会员鉴权写入的会员ID。
func GetMemberID(c *gin.Context) (uint, bool) {
	return GetContextUintWithKeys(c, ContextMemberID, "error.member_id_invalid", "error.member_id_type_invalid")
}

// GetOperatorID 读取管理端鉴权写入的操作员ID。
func GetOperatorID(c *gin.Context) (uint, bool) {
	return GetContextUintWithKeys(c, ContextOperatorID, "error.operator_id_invalid", "error.operator_id_type_invalid")
}

// ParseUintParam 解析正整数路径参数，失败时直接返回 400。
func ParseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		RespondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return 0, false
	}
	return uint(value), true
}
