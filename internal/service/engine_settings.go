package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/nftlevel-next/internal/config"
	"github.com/nftlevel-next/internal/constants"
	"github.com/nftlevel-next/internal/models"

	"github.com/shopspring/decimal"
)

var defaultLevelRates = []string{"10", "3", "2", "1", "1", "1", "0.5", "0.5", "0.5", "0.5"}

// EngineSettings 奖励计划参数（计划结构固定，数值来自配置）
type EngineSettings struct {
	RewardPool        decimal.Decimal
	NFTPrice          decimal.Decimal
	LevelRates        []decimal.Decimal // 百分比，下标 0 对应第 1 层
	LevelGates        map[int]int       // 层级 -> 最少激活直推人数
	MaxLevels         int
	GenealogyMaxDepth int
	TotalDays         int
	AccrualInterval   time.Duration
	DeactivationGrace time.Duration
	TickBatchSize     int
	JobLockTTL        time.Duration
	ReportCacheTTL    time.Duration
}

// DefaultEngineSettings 默认奖励计划
func DefaultEngineSettings() EngineSettings {
	rates := make([]decimal.Decimal, 0, len(defaultLevelRates))
	for _, raw := range defaultLevelRates {
		rates = append(rates, decimal.RequireFromString(raw))
	}
	return EngineSettings{
		RewardPool:        decimal.NewFromInt(constants.DefaultRewardPool),
		NFTPrice:          decimal.NewFromInt(constants.DefaultNFTPrice),
		LevelRates:        rates,
		LevelGates:        map[int]int{2: 3, 3: 5},
		MaxLevels:         constants.DefaultMaxLevels,
		GenealogyMaxDepth: constants.DefaultGenealogyMaxDepth,
		TotalDays:         constants.DefaultAccrualTotalDays,
		AccrualInterval:   24 * time.Hour,
		DeactivationGrace: 10 * time.Minute,
		TickBatchSize:     200,
		JobLockTTL:        30 * time.Minute,
		ReportCacheTTL:    time.Minute,
	}
}

// NewEngineSettings 从配置构建奖励计划，缺失或非法的值回退到默认值
func NewEngineSettings(cfg *config.EngineConfig) EngineSettings {
	settings := DefaultEngineSettings()
	if cfg == nil {
		return settings
	}
	if cfg.RewardPool > 0 {
		settings.RewardPool = decimal.NewFromFloat(cfg.RewardPool)
	}
	if cfg.NFTPrice > 0 {
		settings.NFTPrice = decimal.NewFromFloat(cfg.NFTPrice)
	}
	if len(cfg.LevelRates) > 0 {
		rates := make([]decimal.Decimal, 0, len(cfg.LevelRates))
		for _, rate := range cfg.LevelRates {
			if rate < 0 {
				rate = 0
			}
			rates = append(rates, decimal.NewFromFloat(rate))
		}
		settings.LevelRates = rates
	}
	if len(cfg.LevelGates) > 0 {
		gates := make(map[int]int, len(cfg.LevelGates))
		for rawLevel, minDirects := range cfg.LevelGates {
			level, err := strconv.Atoi(strings.TrimSpace(rawLevel))
			if err != nil || level <= 0 || minDirects <= 0 {
				continue
			}
			gates[level] = minDirects
		}
		settings.LevelGates = gates
	}
	if cfg.MaxLevels > 0 {
		settings.MaxLevels = cfg.MaxLevels
	}
	if cfg.GenealogyMaxDepth > 0 {
		settings.GenealogyMaxDepth = cfg.GenealogyMaxDepth
	}
	if cfg.TotalDays > 0 {
		settings.TotalDays = cfg.TotalDays
	}
	if cfg.AccrualInterval > 0 {
		settings.AccrualInterval = cfg.AccrualInterval
	}
	if cfg.DeactivationGrace > 0 {
		settings.DeactivationGrace = cfg.DeactivationGrace
	}
	if cfg.TickBatchSize > 0 {
		settings.TickBatchSize = cfg.TickBatchSize
	}
	if cfg.JobLockTTL > 0 {
		settings.JobLockTTL = cfg.JobLockTTL
	}
	if cfg.ReportCacheTTL > 0 {
		settings.ReportCacheTTL = cfg.ReportCacheTTL
	}
	return settings
}

// CommissionLevels 实际参与分佣的层数
func (s EngineSettings) CommissionLevels() int {
	levels := s.MaxLevels
	if levels <= 0 || levels > len(s.LevelRates) {
		levels = len(s.LevelRates)
	}
	return levels
}

// LevelAmount 第 level 层的佣金金额（level 从 1 开始）
func (s EngineSettings) LevelAmount(level int) decimal.Decimal {
	if level <= 0 || level > s.CommissionLevels() {
		return decimal.Zero
	}
	return s.RewardPool.Mul(s.LevelRates[level-1]).Div(decimal.NewFromInt(100)).Round(models.MoneyScale)
}

// BuyerReward 购买人奖励：奖励池扣除全部层级金额，与实际上级数量无关
func (s EngineSettings) BuyerReward() decimal.Decimal {
	total := decimal.Zero
	for level := 1; level <= s.CommissionLevels(); level++ {
		total = total.Add(s.LevelAmount(level))
	}
	reward := s.RewardPool.Sub(total)
	if reward.IsNegative() {
		return decimal.Zero
	}
	return reward
}

// DailyAmount 分期每日发放额
func (s EngineSettings) DailyAmount(total decimal.Decimal) decimal.Decimal {
	days := s.TotalDays
	if days <= 0 {
		days = constants.DefaultAccrualTotalDays
	}
	return total.DivRound(decimal.NewFromInt(int64(days)), models.MoneyScale)
}

// GateFor 层级的直推门槛，0 表示不设门槛
func (s EngineSettings) GateFor(level int) int {
	if s.LevelGates == nil {
		return 0
	}
	return s.LevelGates[level]
}
