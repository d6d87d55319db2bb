package router

import (
	"strings"
	"time"

	"github.com/nftlevel-next/internal/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var defaultCORSHeaders = []string{
	"Origin",
	"Content-Type",
	"Content-Length",
	"Accept",
	"Accept-Encoding",
	"Accept-Language",
	"Authorization",
	"Cache-Control",
	"X-Requested-With",
	"X-Request-ID",
}

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	return cors.New(buildCORSConfig(cfg))
}

func buildCORSConfig(cfg config.CORSConfig) cors.Config {
	corsConfig := cors.DefaultConfig()

	origins, wildcard := normalizeOrigins(cfg.AllowedOrigins)
	switch {
	case wildcard && cfg.AllowCredentials:
		// 携带凭证时不能返回 *，回显请求来源
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	case wildcard:
		corsConfig.AllowAllOrigins = true
	default:
		corsConfig.AllowOrigins = origins
	}

	if len(cfg.AllowedMethods) > 0 {
		corsConfig.AllowMethods = cfg.AllowedMethods
	} else {
		corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(cfg.AllowedHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.AllowedHeaders
	} else {
		corsConfig.AllowHeaders = defaultCORSHeaders
	}
	corsConfig.ExposeHeaders = []string{requestIDHeader}
	corsConfig.AllowCredentials = cfg.AllowCredentials
	if cfg.MaxAge > 0 {
		corsConfig.MaxAge = time.Duration(cfg.MaxAge) * time.Second
	}
	return corsConfig
}

// normalizeOrigins 过滤非法来源；列表为空或包含 * 时视为全部放行
func normalizeOrigins(raw []string) ([]string, bool) {
	origins := make([]string, 0, len(raw))
	for _, item := range raw {
		origin := strings.TrimRight(strings.TrimSpace(item), "/")
		if origin == "*" {
			return nil, true
		}
		if strings.HasPrefix(origin, "http://") || strings.HasPrefix(origin, "https://") {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return nil, true
	}
	return origins, false
}
