package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nftlevel-next/internal/authz"
	"github.com/nftlevel-next/internal/cache"
	"github.com/nftlevel-next/internal/config"
	adminhandlers "github.com/nftlevel-next/internal/http/handlers/admin"
	handlershared "github.com/nftlevel-next/internal/http/handlers/shared"
	publichandlers "github.com/nftlevel-next/internal/http/handlers/public"
	"github.com/nftlevel-next/internal/http/response"
	"github.com/nftlevel-next/internal/logger"
	"github.com/nftlevel-next/internal/models"
	"github.com/nftlevel-next/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const adminPathPrefix = "/api/v1/admin/"

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按会员侧/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "nl"
	}
	redisClient := cache.Client()
	registerRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:register", redisPrefix),
		WindowSeconds: cfg.Security.RateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.RateLimit.MaxRequests,
		BlockSeconds:  cfg.Security.RateLimit.BlockSeconds,
		MessageKey:    "error.register_rate_limited",
	}
	captchaRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:captcha", redisPrefix),
		WindowSeconds: cfg.Security.RateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.RateLimit.MaxRequests,
		BlockSeconds:  cfg.Security.RateLimit.BlockSeconds,
	}
	writeRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:member_write", redisPrefix),
		WindowSeconds: cfg.Security.RateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.RateLimit.MaxRequests,
		BlockSeconds:  cfg.Security.RateLimit.BlockSeconds,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))
	if cfg.Metrics.Enabled {
		r.Use(MetricsMiddleware())
	}

	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		captcha := apiV1.Group("/captcha")
		{
			captcha.GET("/config", publicHandler.GetCaptchaSetting)
			captcha.GET("/image", RateLimitMiddleware(redisClient, captchaRule, KeyByIP), publicHandler.GetImageCaptcha)
		}

		members := apiV1.Group("/members")
		{
			members.POST("/register", RateLimitMiddleware(redisClient, registerRule, KeyByIPAndJSONField("email")), publicHandler.RegisterMember)
			members.GET("/:code", publicHandler.GetMemberByCode)
		}

		// 会员接口（需鉴权）
		me := apiV1.Group("/me")
		me.Use(MemberJWTAuthMiddleware(cfg.JWT, c.MemberRepo))
		memberWriteLimit := RateLimitMiddleware(redisClient, writeRule, memberRateKey)
		{
			me.GET("", publicHandler.GetMe)
			me.GET("/directs", publicHandler.ListMyDirects)
			me.POST("/purchases", memberWriteLimit, publicHandler.CreatePurchase)
			me.GET("/purchases", publicHandler.ListMyPurchases)
			me.GET("/genealogy", publicHandler.GetMyGenealogy)
			me.GET("/levels", publicHandler.GetMyLevelCounts)
			me.GET("/referral-income", publicHandler.GetMyReferralIncome)
			me.GET("/upline", publicHandler.GetMyUpline)
			me.GET("/wallet", publicHandler.GetMyWallet)
			me.GET("/wallet/transactions", publicHandler.GetMyWalletTransactions)
			me.POST("/withdrawals", memberWriteLimit, publicHandler.ApplyWithdraw)
			me.GET("/withdrawals", publicHandler.ListMyWithdraws)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		authorized := admin.Use(OperatorJWTAuthMiddleware(cfg.AdminJWT), OperatorRBACMiddleware(c.AuthzService))
		{
			// 批处理
			authorized.POST("/jobs/accrual-tick", adminHandler.RunAccrualTick)
			authorized.POST("/jobs/deactivation-check", adminHandler.RunDeactivationCheck)

			// 购买与回款
			authorized.POST("/purchases/:id/payout", adminHandler.PayoutPurchase)
			authorized.POST("/purchases/:id/retry-upline", adminHandler.RetryPurchaseUpline)

			// 提现审核
			authorized.GET("/withdrawals", adminHandler.ListWithdrawals)
			authorized.POST("/withdrawals/:id/review", adminHandler.ReviewWithdrawal)

			// 会员与报表
			authorized.GET("/members", adminHandler.ListMembers)
			authorized.GET("/members/:id", adminHandler.GetMember)
			authorized.GET("/members/:id/genealogy", adminHandler.GetMemberGenealogy)
			authorized.GET("/members/:id/levels", adminHandler.GetMemberLevelCounts)
			authorized.GET("/members/:id/referral-income", adminHandler.GetMemberReferralIncome)
			authorized.GET("/accruals", adminHandler.ListAccruals)

			// 看板
			authorized.GET("/dashboard/overview", adminHandler.GetDashboardOverview)
			authorized.GET("/dashboard/trends", adminHandler.GetDashboardTrends)
			authorized.GET("/dashboard/top-earners", adminHandler.GetDashboardTopEarners)

			// 权限管理
			authorized.GET("/authz/me", adminHandler.GetAuthzMe)
			authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
			authorized.POST("/authz/roles", adminHandler.CreateAuthzRole)
			authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
			authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
			authorized.GET("/authz/operators/:id/roles", adminHandler.GetOperatorRoles)
			authorized.PUT("/authz/operators/:id/roles", adminHandler.SetOperatorRoles)
			authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
				response.Success(ctx, buildAdminPermissionCatalog(r))
			})
		}
	}

	if cfg.Metrics.Enabled {
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.Handler()))
	}

	// 健康检查
	r.GET("/health", func(ctx *gin.Context) {
		status := gin.H{"status": "ok", "redis": cache.Enabled(), "queue": c.QueueClient.Enabled()}
		if models.DB != nil {
			if sqlDB, err := models.DB.DB(); err != nil || sqlDB.PingContext(ctx.Request.Context()) != nil {
				status["status"] = "degraded"
			}
		}
		ctx.JSON(200, status)
	})

	return r
}

// memberRateKey 会员写接口按会员限流，取不到会员时退化为 IP
func memberRateKey(c *gin.Context) string {
	if code, ok := c.Get(handlershared.ContextMemberCode); ok {
		if value, ok := code.(string); ok && value != "" {
			return value
		}
	}
	return c.ClientIP()
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, adminPathPrefix) {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 || segments[0] != "admin" {
		return segments[0]
	}
	return segments[1]
}
