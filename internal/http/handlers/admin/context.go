package admin

import (
	handlershared "github.com/nftlevel-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func getOperatorID(c *gin.Context) (uint, bool) {
	return handlershared.GetOperatorID(c)
}

func currentOperatorID(c *gin.Context) uint {
	value, ok := c.Get(handlershared.ContextOperatorID)
	if !ok {
		return 0
	}
	id, _ := value.(uint)
	return id
}

func currentOperatorIsSuper(c *gin.Context) bool {
	value, ok := c.Get(handlershared.ContextOperatorIsSuper)
	if !ok {
		return false
	}
	flag, _ := value.(bool)
	return flag
}

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondWithMappedError(c *gin.Context, err error, rules []handlershared.MappedError, fallbackCode int, fallbackKey string) {
	handlershared.RespondWithMappedError(c, err, rules, fallbackCode, fallbackKey)
}
