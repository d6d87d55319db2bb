package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nftlevel-next/internal/config"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 3 * time.Second

var (
	redisClient  *redis.Client
	redisPrefix  = "nl"
	redisEnabled bool
)

// InitRedis 初始化 Redis 客户端；连接不可用时保持禁用，调用方退化为进程内模式
func InitRedis(cfg *config.RedisConfig) error {
	redisEnabled = false
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	if prefix := strings.TrimSpace(cfg.Prefix); prefix != "" {
		redisPrefix = prefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  pingTimeout,
		ReadTimeout:  pingTimeout,
		WriteTimeout: pingTimeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis ping %s:%d: %w", host, port, err)
	}

	redisClient = client
	redisEnabled = true
	return nil
}

// Close 关闭 Redis 客户端
func Close() error {
	if redisClient == nil {
		return nil
	}
	err := redisClient.Close()
	redisClient = nil
	redisEnabled = false
	return err
}

// Enabled 判断缓存是否启用
func Enabled() bool {
	return redisEnabled && redisClient != nil
}

// Client 获取 Redis 客户端，未启用时为 nil
func Client() *redis.Client {
	if !Enabled() {
		return nil
	}
	return redisClient
}

// ReportKey 报表缓存 key：report:<kind>:<member_id>
func ReportKey(kind string, memberID uint) string {
	return fmt.Sprintf("report:%s:%d", strings.TrimSpace(kind), memberID)
}

// DelReports 删除一组会员的指定类型报表缓存
func DelReports(ctx context.Context, kinds []string, memberIDs ...uint) error {
	if !Enabled() || len(kinds) == 0 || len(memberIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(kinds)*len(memberIDs))
	for _, id := range memberIDs {
		for _, kind := range kinds {
			keys = append(keys, ReportKey(kind, id))
		}
	}
	return Del(ctx, keys...)
}

// GetJSON 读取 JSON 缓存；内容无法解析时删除并按未命中处理
func GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !Enabled() {
		return false, nil
	}
	full := buildKey(key)
	raw, err := redisClient.Get(ctx, full).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		_ = redisClient.Del(ctx, full).Err()
		return false, nil
	}
	return true, nil
}

// SetJSON 写入 JSON 缓存，ttl 非正数时不写入
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !Enabled() || ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return redisClient.Set(ctx, buildKey(key), payload, ttl).Err()
}

// Del 删除缓存
func Del(ctx context.Context, keys ...string) error {
	if !Enabled() || len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, buildKey(key))
	}
	return redisClient.Del(ctx, full...).Err()
}

func buildKey(key string) string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return redisPrefix
	}
	return redisPrefix + ":" + trimmed
}
