package queue

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nftlevel-next/internal/config"
	"github.com/nftlevel-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	uplineRetryMaxAttempts = 10
	uplineRetryBaseDelay   = 30 * time.Second
	uplineRetryMaxDelay    = 30 * time.Minute
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// CriticalQueue 资金相关队列名称
	CriticalQueue = constants.QueueCritical
)

// Client 队列客户端封装
type Client struct {
	client       *asynq.Client
	enabled      bool
	defaultQueue string
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, defaultQueue: DefaultQueue}, nil
	}
	opt := buildRedisOpt(cfg)
	client := asynq.NewClient(opt)
	return &Client{
		client:       client,
		enabled:      true,
		defaultQueue: DefaultQueue,
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueAccrualTick 推送日结任务，同一时间窗口内只保留一个
func (c *Client) EnqueueAccrualTick(payload JobTriggerPayload, uniqueFor time.Duration) error {
	return c.enqueue(func() (*asynq.Task, error) { return NewAccrualTickTask(payload) }, jobOptions(uniqueFor))
}

// EnqueueDeactivationCheck 推送停用巡检任务
func (c *Client) EnqueueDeactivationCheck(payload JobTriggerPayload, uniqueFor time.Duration) error {
	return c.enqueue(func() (*asynq.Task, error) { return NewDeactivationCheckTask(payload) }, jobOptions(uniqueFor))
}

// EnqueueRewardUplineRetry 推送上级链补发任务；同一购买记录在队列中最多一个待执行任务
func (c *Client) EnqueueRewardUplineRetry(payload RewardUplineRetryPayload, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	options := []asynq.Option{
		asynq.Queue(CriticalQueue),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(uplineRetryMaxAttempts),
		asynq.TaskID(UplineRetryTaskID(payload.PurchaseID)),
	}
	err := c.enqueue(func() (*asynq.Task, error) { return NewRewardUplineRetryTask(payload) }, options)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// UplineRetryTaskID 上级链补发任务ID
func UplineRetryTaskID(purchaseID uint) string {
	return fmt.Sprintf("upline-retry:%d", purchaseID)
}

func (c *Client) enqueue(build func() (*asynq.Task, error), options []asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := build()
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task, options...)
	return err
}

func jobOptions(uniqueFor time.Duration) []asynq.Option {
	options := []asynq.Option{asynq.Queue(CriticalQueue), asynq.MaxRetry(0)}
	if uniqueFor > 0 {
		options = append(options, asynq.Unique(uniqueFor))
	}
	return options
}

// RetryDelay 上级链补发按 30s 起步指数退避，最长 30 分钟；其他任务使用 asynq 默认策略
func RetryDelay(n int, err error, task *asynq.Task) time.Duration {
	if task == nil || task.Type() != TaskRewardUplineRetry {
		return asynq.DefaultRetryDelayFunc(n, err, task)
	}
	if n < 0 {
		n = 0
	}
	if n > 6 {
		n = 6
	}
	delay := uplineRetryBaseDelay << uint(n)
	if delay > uplineRetryMaxDelay {
		delay = uplineRetryMaxDelay
	}
	return delay
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{CriticalQueue: 6, DefaultQueue: 3}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return opt, asynq.Config{
		Concurrency:    concurrency,
		Queues:         queues,
		RetryDelayFunc: RetryDelay,
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}
