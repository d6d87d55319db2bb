package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/nftlevel-next/internal/app"
	"github.com/nftlevel-next/internal/config"
	"github.com/nftlevel-next/internal/logger"
	"github.com/nftlevel-next/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset     = "\033[0m"
	ansiBold      = "\033[1m"
	ansiDim       = "\033[2m"
	ansiGreen     = "\033[32m"
	ansiCyan      = "\033[36m"
	ansiBrightMag = "\033[95m"
)

func main() {
	// 解析命令行参数
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	printStartupBanner(mode)

	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	secrets := map[string]string{
		"jwt.secret":       cfg.JWT.SecretKey,
		"admin_jwt.secret": cfg.AdminJWT.SecretKey,
	}
	for name, secret := range secrets {
		if !isWeakSecret(secret) {
			continue
		}
		if cfg.Server.Mode == "release" {
			stdLog.Fatalf("%s 过弱或仍为默认值，请在生产环境中配置强随机密钥", name)
		}
		stdLog.Printf("警告: %s 过弱或仍为默认值，建议在生产环境中更换", name)
	}

	// 初始化数据库
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}

	// 自动迁移数据库表
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func printStartupBanner(mode string) {
	fmt.Println(ansiBrightMag + "╔══════════════════════════════════════════════════════╗" + ansiReset)
	fmt.Println(ansiBrightMag + "║          NFTLevel commission engine 启动中           ║" + ansiReset)
	fmt.Println(ansiBrightMag + "╚══════════════════════════════════════════════════════╝" + ansiReset)
	fmt.Println(ansiCyan + "███╗   ██╗███████╗████████╗██╗     ███████╗██╗   ██╗" + ansiReset)
	fmt.Println(ansiCyan + "████╗  ██║██╔════╝╚══██╔══╝██║     ██╔════╝██║   ██║" + ansiReset)
	fmt.Println(ansiCyan + "██╔██╗ ██║█████╗     ██║   ██║     █████╗  ██║   ██║" + ansiReset)
	fmt.Println(ansiCyan + "██║╚██╗██║██╔══╝     ██║   ██║     ██╔══╝  ╚██╗ ██╔╝" + ansiReset)
	fmt.Println(ansiCyan + "██║ ╚████║██║        ██║   ███████╗███████╗ ╚████╔╝ " + ansiReset)
	fmt.Println(ansiCyan + "╚═╝  ╚═══╝╚═╝        ╚═╝   ╚══════╝╚══════╝  ╚═══╝  " + ansiReset)
	fmt.Println(ansiGreen + ansiBold + "mode: " + strings.ToLower(strings.TrimSpace(mode)) + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	if strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key") {
		return true
	}
	return false
}
