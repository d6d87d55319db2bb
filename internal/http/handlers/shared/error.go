package shared

import (
	"github.com/nftlevel-next/internal/http/response"
	"github.com/nftlevel-next/internal/i18n"
	"github.com/nftlevel-next/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 按请求语言返回错误响应；带原始错误时记录日志，5xx 记为 error，其余记为 warn。
func RespondError(c *gin.Context, code int, key string, err error) {
	msg := i18n.T(i18n.ResolveLocale(c), key)
	if err != nil {
		log := RequestLog(c).With("code", code, "key", key, "path", c.FullPath(), "error", err)
		if code >= response.CodeInternal {
			log.Errorw("handler_error")
		} else {
			log.Warnw("handler_rejected")
		}
	}
	response.Error(c, code, msg)
}
