package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld 锁已被其他执行持有
var ErrLockHeld = errors.New("job lock held")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var (
	localLocksMu sync.Mutex
	localLocks   = map[string]*sync.Mutex{}
)

// JobLock 批处理互斥锁：进程内互斥 + Redis 分布式互斥（启用时）
type JobLock struct {
	name  string
	token string
	local *sync.Mutex
	held  bool
}

// AcquireJobLock 获取批处理锁，已被持有时返回 ErrLockHeld
func AcquireJobLock(ctx context.Context, name string, ttl time.Duration) (*JobLock, error) {
	local := localLock(name)
	if !local.TryLock() {
		return nil, ErrLockHeld
	}
	lock := &JobLock{name: name, local: local, held: true}
	if !Enabled() {
		return lock, nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	lock.token = uuid.NewString()
	ok, err := redisClient.SetNX(ctx, lockKey(name), lock.token, ttl).Result()
	if err != nil {
		local.Unlock()
		return nil, err
	}
	if !ok {
		local.Unlock()
		return nil, ErrLockHeld
	}
	return lock, nil
}

// Release 释放锁，可重复调用
func (l *JobLock) Release(ctx context.Context) error {
	if l == nil || !l.held {
		return nil
	}
	l.held = false
	defer l.local.Unlock()
	if l.token == "" || !Enabled() {
		return nil
	}
	return releaseScript.Run(ctx, redisClient, []string{lockKey(l.name)}, l.token).Err()
}

// Name 锁名称
func (l *JobLock) Name() string {
	if l == nil {
		return ""
	}
	return l.name
}

func localLock(name string) *sync.Mutex {
	localLocksMu.Lock()
	defer localLocksMu.Unlock()
	mu, ok := localLocks[name]
	if !ok {
		mu = &sync.Mutex{}
		localLocks[name] = mu
	}
	return mu
}

func lockKey(name string) string {
	return buildKey("lock:" + name)
}
