package worker

import (
	"context"
	"errors"
	"time"

	"github.com/nftlevel-next/internal/config"
	"github.com/nftlevel-next/internal/constants"
	"github.com/nftlevel-next/internal/logger"
	"github.com/nftlevel-next/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	defaultAccrualTickInterval       = time.Hour
	defaultDeactivationCheckInterval = time.Minute
	schedulerSource                  = "scheduler"
)

// Service 后台任务服务：定时触发批处理，并在启用队列时消费异步任务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
	schedule config.WorkerConfig
}

// NewService 创建后台任务服务，队列未启用时批处理在进程内直接执行
func NewService(queueCfg *config.QueueConfig, workerCfg config.WorkerConfig, consumer *Consumer) (*Service, error) {
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	if workerCfg.AccrualTickInterval <= 0 {
		workerCfg.AccrualTickInterval = defaultAccrualTickInterval
	}
	if workerCfg.DeactivationCheckInterval <= 0 {
		workerCfg.DeactivationCheckInterval = defaultDeactivationCheckInterval
	}
	s := &Service{
		name:     "worker",
		consumer: consumer,
		schedule: workerCfg,
	}
	if queueCfg != nil && queueCfg.Enabled {
		opt, serverCfg := queue.BuildServerConfig(queueCfg)
		s.server = asynq.NewServer(opt, serverCfg)
		s.mux = asynq.NewServeMux()
		consumer.Register(s.mux)
	}
	return s, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.consumer == nil {
		return errors.New("worker not initialized")
	}
	go s.runLoop(ctx, constants.JobAccrualTick, s.schedule.AccrualTickInterval)
	go s.runLoop(ctx, constants.JobDeactivationCheck, s.schedule.DeactivationCheckInterval)
	if s.server == nil {
		<-ctx.Done()
		return nil
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

func (s *Service) runLoop(ctx context.Context, job string, interval time.Duration) {
	if s.schedule.RunOnStart {
		s.trigger(ctx, job, interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.trigger(ctx, job, interval)
		}
	}
}

// trigger 队列可用时投递唯一任务（多实例只执行一次），否则直接执行
func (s *Service) trigger(ctx context.Context, job string, interval time.Duration) {
	client := s.consumer.QueueClient
	payload := queue.JobTriggerPayload{Source: schedulerSource}
	if s.server != nil && client.Enabled() {
		var err error
		switch job {
		case constants.JobAccrualTick:
			err = client.EnqueueAccrualTick(payload, interval)
		case constants.JobDeactivationCheck:
			err = client.EnqueueDeactivationCheck(payload, interval)
		}
		if err == nil {
			return
		}
		if errors.Is(err, asynq.ErrDuplicateTask) {
			logger.Debugw("worker_schedule_skip_duplicate", "job", job)
			return
		}
		logger.Warnw("worker_schedule_enqueue_failed", "job", job, "error", err, "fallback", "inline")
	}
	switch job {
	case constants.JobAccrualTick:
		_ = s.consumer.runAccrualTick(ctx, schedulerSource)
	case constants.JobDeactivationCheck:
		_ = s.consumer.runDeactivationCheck(ctx, schedulerSource)
	}
}
