package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/nftlevel-next/internal/http/response"
	"github.com/nftlevel-next/internal/i18n"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	BlockSeconds  int
	MessageKey    string
}

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

// 超限后写入封禁 key，封禁期内直接拒绝
var rateLimitScript = redis.NewScript(`
local blockTTL = redis.call("TTL", KEYS[2])
if blockTTL > 0 then
	return {-1, blockTTL}
end
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
if current > tonumber(ARGV[2]) and tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[2], "1", "EX", ARGV[3])
	ttl = tonumber(ARGV[3])
end
return {current, ttl}
`)

// RateLimitMiddleware 频率限制中间件，Redis 不可用时退化为进程内令牌桶
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	local := newLocalLimiter(rule)
	return func(c *gin.Context) {
		if !rule.enabled() {
			c.Next()
			return
		}

		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(c))
		}
		if key == "" {
			key = c.ClientIP()
		}
		if rule.Prefix != "" {
			key = fmt.Sprintf("%s:%s", rule.Prefix, key)
		}

		if client == nil {
			if wait, ok := local.allow(key); !ok {
				rejectRateLimited(c, rule, wait)
				return
			}
			c.Next()
			return
		}

		result, err := rateLimitScript.Run(c.Request.Context(), client,
			[]string{key, key + ":block"}, rule.WindowSeconds, rule.MaxRequests, rule.BlockSeconds).Result()
		if err != nil {
			msg := i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable")
			response.Error(c, response.CodeInternal, msg)
			c.Abort()
			return
		}

		values, ok := result.([]interface{})
		if !ok || len(values) < 2 {
			msg := i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable")
			response.Error(c, response.CodeInternal, msg)
			c.Abort()
			return
		}
		count, ok := toInt64(values[0])
		if !ok {
			msg := i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable")
			response.Error(c, response.CodeInternal, msg)
			c.Abort()
			return
		}
		ttlSeconds, _ := toInt64(values[1])
		if count < 0 || count > int64(rule.MaxRequests) {
			rejectRateLimited(c, rule, int(ttlSeconds))
			return
		}

		c.Next()
	}
}

func rejectRateLimited(c *gin.Context, rule RateLimitRule, waitSeconds int) {
	if waitSeconds < 1 {
		waitSeconds = rule.WindowSeconds
	}
	if waitSeconds < 1 {
		waitSeconds = 1
	}
	msgKey := strings.TrimSpace(rule.MessageKey)
	if msgKey == "" {
		msgKey = "error.rate_limited"
	}
	msg := i18n.Sprintf(i18n.ResolveLocale(c), msgKey, waitSeconds)
	response.Error(c, response.CodeTooManyRequests, msg)
	c.Abort()
}

// localLimiter 单实例部署时的按 key 令牌桶
type localLimiter struct {
	mu       sync.Mutex
	rule     RateLimitRule
	limiters map[string]*localEntry
}

type localEntry struct {
	limiter      *rate.Limiter
	blockedUntil time.Time
	lastSeen     time.Time
}

func newLocalLimiter(rule RateLimitRule) *localLimiter {
	return &localLimiter{rule: rule, limiters: make(map[string]*localEntry)}
}

// allow 返回是否放行以及需要等待的秒数
func (l *localLimiter) allow(key string) (int, bool) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evictIdle(now)
	entry, ok := l.limiters[key]
	if !ok {
		every := time.Duration(l.rule.WindowSeconds) * time.Second / time.Duration(l.rule.MaxRequests)
		entry = &localEntry{limiter: rate.NewLimiter(rate.Every(every), l.rule.MaxRequests)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	if now.Before(entry.blockedUntil) {
		return int(math.Ceil(entry.blockedUntil.Sub(now).Seconds())), false
	}
	if entry.limiter.AllowN(now, 1) {
		return 0, true
	}
	if l.rule.BlockSeconds > 0 {
		entry.blockedUntil = now.Add(time.Duration(l.rule.BlockSeconds) * time.Second)
		return l.rule.BlockSeconds, false
	}
	reservation := entry.limiter.ReserveN(now, 1)
	wait := reservation.DelayFrom(now)
	reservation.CancelAt(now)
	return int(math.Ceil(wait.Seconds())), false
}

func (l *localLimiter) evictIdle(now time.Time) {
	if len(l.limiters) < 1024 {
		return
	}
	idle := time.Duration(l.rule.WindowSeconds+l.rule.BlockSeconds) * time.Second
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > idle {
			delete(l.limiters, key)
		}
	}
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByIPAndJSONField 使用 IP + JSON 字段作为限流 key
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(strings.TrimSpace(readJSONField(c, field)))
		if value == "" {
			return c.ClientIP()
		}
		return fmt.Sprintf("%s|%s", value, c.ClientIP())
	}
}

func readJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return ""
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	value, ok := payload[field]
	if !ok {
		return ""
	}
	if text, ok := value.(string); ok {
		return strings.TrimSpace(text)
	}
	return ""
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
