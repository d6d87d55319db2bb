package router

import (
	"strconv"
	"strings"
	"time"

	"github.com/nftlevel-next/internal/authz"
	"github.com/nftlevel-next/internal/config"
	handlershared "github.com/nftlevel-next/internal/http/handlers/shared"
	"github.com/nftlevel-next/internal/http/response"
	"github.com/nftlevel-next/internal/i18n"
	"github.com/nftlevel-next/internal/logger"
	"github.com/nftlevel-next/internal/metrics"
	"github.com/nftlevel-next/internal/repository"
	"github.com/nftlevel-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"
const requestIDHeader = "X-Request-ID"

// RequestIDMiddleware 请求 ID 中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.L()
	}
	sugar := logger.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := sugar.With(
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if len(c.Errors) > 0 {
			log.Errorw("request", "errors", c.Errors.String())
			return
		}
		log.Infow("request")
	}
}

// MetricsMiddleware 按路由模板统计请求数与耗时
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPResponseTime.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func getRequestID(c *gin.Context) string {
	value, ok := c.Get(requestIDKey)
	if !ok {
		return ""
	}
	if requestID, ok := value.(string); ok {
		return requestID
	}
	return ""
}

// bearerToken 读取 Authorization: Bearer <token>，失败时已写入响应
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		abortUnauthorized(c, "error.auth_header_missing")
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") || strings.TrimSpace(parts[1]) == "" {
		abortUnauthorized(c, "error.auth_header_invalid")
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func abortUnauthorized(c *gin.Context, key string) {
	msg := i18n.T(i18n.ResolveLocale(c), key)
	response.Unauthorized(c, msg)
}

// MemberJWTAuthMiddleware 会员 JWT 鉴权中间件，令牌中的会员必须仍然存在
func MemberJWTAuthMiddleware(cfg config.JWTConfig, memberRepo repository.MemberRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.TrimSpace(cfg.SecretKey) == "" {
			abortUnauthorized(c, "error.jwt_secret_missing")
			return
		}
		if memberRepo == nil {
			abortUnauthorized(c, "error.token_invalid")
			return
		}
		tokenString, ok := bearerToken(c)
		if !ok {
			return
		}
		claims, err := service.ParseMemberToken(cfg, tokenString)
		if err != nil {
			abortUnauthorized(c, "error.token_invalid")
			return
		}
		member, err := memberRepo.GetByID(claims.MemberID)
		if err != nil || member == nil {
			abortUnauthorized(c, "error.token_invalid")
			return
		}

		c.Set(handlershared.ContextMemberID, member.ID)
		c.Set(handlershared.ContextMemberCode, member.MemberCode)
		c.Next()
	}
}

// OperatorJWTAuthMiddleware 管理端 JWT 鉴权中间件
func OperatorJWTAuthMiddleware(cfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.TrimSpace(cfg.SecretKey) == "" {
			abortUnauthorized(c, "error.jwt_secret_missing")
			return
		}
		tokenString, ok := bearerToken(c)
		if !ok {
			return
		}
		claims, err := service.ParseOperatorToken(cfg, tokenString)
		if err != nil {
			abortUnauthorized(c, "error.token_invalid")
			return
		}

		c.Set(handlershared.ContextOperatorID, claims.OperatorID)
		c.Set(handlershared.ContextOperatorName, claims.Username)
		c.Set(handlershared.ContextOperatorIsSuper, claims.IsSuper)
		c.Next()
	}
}

// OperatorRBACMiddleware 管理端 RBAC 鉴权中间件，超级操作员直接放行
func OperatorRBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authzService == nil {
			logger.Errorw("admin_rbac_service_unavailable")
			abortUnauthorized(c, "error.unauthorized")
			return
		}

		if isSuper, ok := c.Get(handlershared.ContextOperatorIsSuper); ok {
			if superValue, typeOK := isSuper.(bool); typeOK && superValue {
				c.Next()
				return
			}
		}

		operatorIDRaw, exists := c.Get(handlershared.ContextOperatorID)
		if !exists {
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		operatorID, _ := operatorIDRaw.(uint)
		if operatorID == 0 {
			abortUnauthorized(c, "error.unauthorized")
			return
		}

		resource := c.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = c.Request.URL.Path
		}

		allowed, err := authzService.Authorize(operatorID, resource, c.Request.Method)
		if err != nil {
			logger.Errorw("admin_rbac_enforce_failed",
				"operator_id", operatorID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		if !allowed {
			logger.Warnw("admin_rbac_permission_denied",
				"operator_id", operatorID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"resource", authz.NormalizeObject(resource),
			)
			msg := i18n.T(i18n.ResolveLocale(c), "error.forbidden")
			response.Forbidden(c, msg)
			return
		}

		c.Next()
	}
}
