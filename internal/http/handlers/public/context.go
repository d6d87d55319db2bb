package public

import (
	handlershared "github.com/nftlevel-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getMemberID(c *gin.Context) (uint, bool) {
	return handlershared.GetMemberID(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondWithMappedError(c *gin.Context, err error, rules []handlershared.MappedError, fallbackCode int, fallbackKey string) {
	handlershared.RespondWithMappedError(c, err, rules, fallbackCode, fallbackKey)
}
