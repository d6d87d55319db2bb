package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nftlevel-next/internal/config"
	"github.com/nftlevel-next/internal/logger"
	"github.com/nftlevel-next/internal/models"
	"github.com/nftlevel-next/internal/provider"
	"github.com/nftlevel-next/internal/service"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

// newApp 运维命令行：手动执行任务、补发佣金、回款、授权与签发令牌
func newApp() *cli.App {
	return &cli.App{
		Name:  "enginectl",
		Usage: "NFTLevel commission engine operations",
		Commands: []*cli.Command{
			{
				Name:   "accrual-tick",
				Usage:  "Run one accrual tick and print the summary",
				Action: withContainer(runAccrualTick),
			},
			{
				Name:   "deactivation-check",
				Usage:  "Run one deactivation watchdog pass",
				Action: withContainer(runDeactivationCheck),
			},
			{
				Name:  "retry-upline",
				Usage: "Distribute the missing level commissions of a purchase",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "purchase", Aliases: []string{"p"}, Usage: "Purchase ID", Required: true},
				},
				Action: withContainer(runRetryUpline),
			},
			{
				Name:  "payout",
				Usage: "Pay out a purchase to its buyer",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "purchase", Aliases: []string{"p"}, Usage: "Purchase ID", Required: true},
					&cli.StringFlag{Name: "amount", Aliases: []string{"a"}, Usage: "Payout amount", Required: true},
				},
				Action: withContainer(runPayout),
			},
			{
				Name:  "operator-role",
				Usage: "Manage operator roles",
				Subcommands: []*cli.Command{
					{
						Name:  "assign",
						Usage: "Replace the roles of an operator",
						Flags: []cli.Flag{
							&cli.UintFlag{Name: "operator", Aliases: []string{"o"}, Usage: "Operator ID", Required: true},
							&cli.StringSliceFlag{Name: "role", Aliases: []string{"r"}, Usage: "Role name, repeatable"},
						},
						Action: withContainer(runAssignRoles),
					},
					{
						Name:  "list",
						Usage: "List roles",
						Flags: []cli.Flag{
							&cli.UintFlag{Name: "operator", Aliases: []string{"o"}, Usage: "Operator ID, lists all roles when omitted"},
						},
						Action: withContainer(runListRoles),
					},
				},
			},
			{
				Name:  "token",
				Usage: "Issue bearer tokens",
				Subcommands: []*cli.Command{
					{
						Name:  "issue-member",
						Usage: "Issue a member token",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "code", Aliases: []string{"c"}, Usage: "Member code", Required: true},
							&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour, Usage: "Token lifetime"},
						},
						Action: withContainer(runIssueMemberToken),
					},
					{
						Name:  "issue-operator",
						Usage: "Issue an operator token",
						Flags: []cli.Flag{
							&cli.UintFlag{Name: "id", Usage: "Operator ID", Required: true},
							&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Operator username", Required: true},
							&cli.BoolFlag{Name: "super", Usage: "Bypass role checks"},
							&cli.DurationFlag{Name: "ttl", Value: 8 * time.Hour, Usage: "Token lifetime"},
						},
						Action: func(c *cli.Context) error {
							return runIssueOperatorToken(c, config.Load())
						},
					},
				},
			},
		},
	}
}

type containerAction func(c *cli.Context, container *provider.Container) error

// withContainer 加载配置、连接数据库并构建依赖容器
func withContainer(action containerAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg := config.Load()
		logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
		if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
			MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
			MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
			ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
			ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
		}); err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		if err := models.AutoMigrate(); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		container := provider.NewContainer(cfg)
		defer func() {
			if container.QueueClient != nil {
				_ = container.QueueClient.Close()
			}
		}()
		return action(c, container)
	}
}

func runAccrualTick(c *cli.Context, container *provider.Container) error {
	summary, err := container.AccrualService.RunTick(c.Context)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, summary)
}

func runDeactivationCheck(c *cli.Context, container *provider.Container) error {
	summary, err := container.HoldingService.RunDeactivationCheck(c.Context)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, summary)
}

func runRetryUpline(c *cli.Context, container *provider.Container) error {
	result, err := container.PurchaseService.RetryUpline(c.Context, c.Uint("purchase"))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, result)
}

func runPayout(c *cli.Context, container *provider.Container) error {
	amount, err := parseAmount(c.String("amount"))
	if err != nil {
		return err
	}
	result, err := container.HoldingService.PayoutPurchase(c.Context, c.Uint("purchase"), amount)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, result)
}

func runAssignRoles(c *cli.Context, container *provider.Container) error {
	operatorID := c.Uint("operator")
	roles := normalizeRoles(c.StringSlice("role"))
	if err := container.AuthzService.AssignRoles(operatorID, roles); err != nil {
		return err
	}
	assigned, err := container.AuthzService.OperatorRoles(operatorID)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, map[string]interface{}{"operator_id": operatorID, "roles": assigned})
}

func runListRoles(c *cli.Context, container *provider.Container) error {
	if operatorID := c.Uint("operator"); operatorID != 0 {
		roles, err := container.AuthzService.OperatorRoles(operatorID)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, roles)
	}
	roles, err := container.AuthzService.ListRoles()
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, roles)
}

func runIssueMemberToken(c *cli.Context, container *provider.Container) error {
	member, err := container.MemberService.GetByCode(c.String("code"))
	if err != nil {
		return err
	}
	token, err := service.IssueMemberToken(container.Config.JWT, member.ID, member.MemberCode, c.Duration("ttl"), time.Now())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, token)
	return err
}

func runIssueOperatorToken(c *cli.Context, cfg *config.Config) error {
	token, err := service.IssueOperatorToken(cfg.AdminJWT, c.Uint("id"), strings.TrimSpace(c.String("username")), c.Bool("super"), c.Duration("ttl"), time.Now())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, token)
	return err
}

// parseAmount 解析回款金额，必须为正数
func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	amount, err := decimal.NewFromString(raw)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}

// normalizeRoles 支持逗号分隔与重复参数，去重保序
func normalizeRoles(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	roles := make([]string, 0, len(raw))
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			role := strings.ToLower(strings.TrimSpace(part))
			if role == "" {
				continue
			}
			if _, ok := seen[role]; ok {
				continue
			}
			seen[role] = struct{}{}
			roles = append(roles, role)
		}
	}
	return roles
}

func printJSON(w io.Writer, value interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
