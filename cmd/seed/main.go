package main

import (
	"context"
	"fmt"

	"github.com/nftlevel-next/internal/config"
	"github.com/nftlevel-next/internal/logger"
	"github.com/nftlevel-next/internal/models"
	"github.com/nftlevel-next/internal/provider"
	"github.com/nftlevel-next/internal/service"
)

type seedMember struct {
	Name    string
	Email   string
	Sponsor string // 推荐人昵称，根节点为空
}

// 演示推荐树：root 下挂 5 个直推，alice 下再挂 3 个，carol 为第三层
var seedTree = []seedMember{
	{Name: "root", Email: "root@nftlevel.local"},
	{Name: "alice", Email: "alice@nftlevel.local", Sponsor: "root"},
	{Name: "bob", Email: "bob@nftlevel.local", Sponsor: "root"},
	{Name: "dave", Email: "dave@nftlevel.local", Sponsor: "root"},
	{Name: "erin", Email: "erin@nftlevel.local", Sponsor: "root"},
	{Name: "frank", Email: "frank@nftlevel.local", Sponsor: "root"},
	{Name: "carol", Email: "carol@nftlevel.local", Sponsor: "alice"},
	{Name: "grace", Email: "grace@nftlevel.local", Sponsor: "alice"},
	{Name: "heidi", Email: "heidi@nftlevel.local", Sponsor: "alice"},
	{Name: "ivan", Email: "ivan@nftlevel.local", Sponsor: "carol"},
}

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	var count int64
	if err := models.DB.Model(&models.Member{}).Count(&count).Error; err != nil {
		stdLog.Fatalf("Failed to count members: %v", err)
	}
	if count > 0 {
		stdLog.Printf("Members already exist (%d), skip seeding", count)
		return
	}

	c := provider.NewContainer(cfg)
	ctx := context.Background()

	codes := make(map[string]string, len(seedTree))
	for _, item := range seedTree {
		member, err := c.MemberService.Register(ctx, service.RegisterMemberInput{
			DisplayName: item.Name,
			Email:       item.Email,
			SponsorCode: codes[item.Sponsor],
		})
		if err != nil {
			stdLog.Fatalf("Failed to register %s: %v", item.Name, err)
		}
		codes[item.Name] = member.MemberCode
		stdLog.Printf("Registered member: %s (%s)", item.Name, member.MemberCode)

		result, err := c.PurchaseService.RecordPurchase(ctx, service.RecordPurchaseInput{
			MemberID: member.ID,
			NFTCode:  fmt.Sprintf("GENESIS-%04d", member.ID),
			Series:   "genesis",
		})
		if err != nil {
			stdLog.Fatalf("Failed to record purchase for %s: %v", item.Name, err)
		}
		stdLog.Printf("Recorded purchase #%d for %s: %d commissions, %d accruals",
			result.Purchase.ID, item.Name, len(result.Commissions), len(result.Accruals))
	}

	summary, err := c.AccrualService.RunTick(ctx)
	if err != nil {
		stdLog.Fatalf("Failed to run accrual tick: %v", err)
	}
	stdLog.Printf("Accrual tick %s: processed=%d skipped=%d disbursed=%s",
		summary.RunID, summary.Processed, summary.Skipped, summary.TotalDisbursed.String())

	stdLog.Println("Seed data created successfully!")
}
