package service

import (
	"testing"
	"time"

	"github.com/nftlevel-next/internal/config"

	"github.com/shopspring/decimal"
)

func TestDefaultEngineSettingsAmounts(t *testing.T) {
	settings := DefaultEngineSettings()

	cases := []struct {
		level int
		want  string
	}{
		{1, "10"},
		{2, "3"},
		{3, "2"},
		{4, "1"},
		{7, "0.5"},
		{10, "0.5"},
		{11, "0"},
		{0, "0"},
	}
	for _, tc := range cases {
		got := settings.LevelAmount(tc.level)
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("level %d amount want %s got %s", tc.level, tc.want, got)
		}
	}
	if !settings.BuyerReward().Equal(decimal.NewFromInt(80)) {
		t.Fatalf("buyer reward want 80 got %s", settings.BuyerReward())
	}
	if got := settings.DailyAmount(decimal.NewFromInt(10)); got.String() != "0.02739726" {
		t.Fatalf("daily amount want 0.02739726 got %s", got)
	}
	if settings.GateFor(2) != 3 || settings.GateFor(3) != 5 || settings.GateFor(1) != 0 || settings.GateFor(4) != 0 {
		t.Fatalf("unexpected gates: %+v", settings.LevelGates)
	}
}

func TestNewEngineSettingsFromConfig(t *testing.T) {
	settings := NewEngineSettings(&config.EngineConfig{
		RewardPool:        200,
		LevelRates:        []float64{5, 5},
		LevelGates:        map[string]int{"2": 4, "x": 9, "3": 0},
		MaxLevels:         10,
		AccrualInterval:   time.Minute,
		DeactivationGrace: 0,
	})
	if settings.CommissionLevels() != 2 {
		t.Fatalf("commission levels should be capped by rates, got %d", settings.CommissionLevels())
	}
	if !settings.LevelAmount(1).Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected level 1 amount: %s", settings.LevelAmount(1))
	}
	if !settings.BuyerReward().Equal(decimal.NewFromInt(180)) {
		t.Fatalf("unexpected buyer reward: %s", settings.BuyerReward())
	}
	if settings.GateFor(2) != 4 || settings.GateFor(3) != 0 || len(settings.LevelGates) != 1 {
		t.Fatalf("unexpected gates: %+v", settings.LevelGates)
	}
	if settings.AccrualInterval != time.Minute {
		t.Fatalf("unexpected interval: %s", settings.AccrualInterval)
	}
	if settings.DeactivationGrace != 10*time.Minute {
		t.Fatalf("grace should fall back to default, got %s", settings.DeactivationGrace)
	}
	if !settings.NFTPrice.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected nft price: %s", settings.NFTPrice)
	}
}
