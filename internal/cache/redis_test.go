package cache

import (
	"context"
	"testing"

	"github.com/nftlevel-next/internal/config"
)

func TestReportKey(t *testing.T) {
	if got := ReportKey("genealogy", 42); got != "report:genealogy:42" {
		t.Fatalf("unexpected key %s", got)
	}
	if got := buildKey(ReportKey("levels", 7)); got != redisPrefix+":report:levels:7" {
		t.Fatalf("unexpected full key %s", got)
	}
}

func TestInitRedisDisabled(t *testing.T) {
	if err := InitRedis(&config.RedisConfig{Enabled: false}); err != nil {
		t.Fatalf("disabled redis should not fail: %v", err)
	}
	if err := InitRedis(nil); err != nil {
		t.Fatalf("nil config should not fail: %v", err)
	}
	if Enabled() || Client() != nil {
		t.Fatalf("redis should stay disabled")
	}
	if err := DelReports(context.Background(), []string{"genealogy"}, 1, 2); err != nil {
		t.Fatalf("del reports should be noop: %v", err)
	}
}

func TestInitRedisUnreachableStaysDisabled(t *testing.T) {
	// 端口 1 通常无人监听，连接应立即被拒绝
	err := InitRedis(&config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1, Prefix: "nltest"})
	if err == nil {
		_ = Close()
		t.Skip("unexpected redis listener on port 1")
	}
	if Enabled() {
		t.Fatalf("unreachable redis must not be enabled")
	}
	if err := Close(); err != nil {
		t.Fatalf("close without client should be noop: %v", err)
	}
}
