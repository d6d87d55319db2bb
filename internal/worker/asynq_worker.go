package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nftlevel-next/internal/logger"
	"github.com/nftlevel-next/internal/provider"
	"github.com/nftlevel-next/internal/queue"
	"github.com/nftlevel-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskAccrualTick, c.handleAccrualTick)
	mux.HandleFunc(queue.TaskDeactivationCheck, c.handleDeactivationCheck)
	mux.HandleFunc(queue.TaskRewardUplineRetry, c.handleRewardUplineRetry)
}

func (c *Consumer) handleAccrualTick(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_accrual_tick_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.JobTriggerPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_accrual_tick_unmarshal_failed", "error", err)
		return err
	}
	return c.runAccrualTick(ctx, payload.Source)
}

func (c *Consumer) handleDeactivationCheck(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_deactivation_check_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.JobTriggerPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_deactivation_check_unmarshal_failed", "error", err)
		return err
	}
	return c.runDeactivationCheck(ctx, payload.Source)
}

func (c *Consumer) handleRewardUplineRetry(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_reward_upline_retry_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.RewardUplineRetryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_reward_upline_retry_unmarshal_failed", "error", err)
		return err
	}
	if payload.PurchaseID == 0 {
		logger.Debugw("worker_reward_upline_retry_skip_invalid_payload", "purchase_id", payload.PurchaseID)
		return nil
	}
	if c.PurchaseService == nil {
		logger.Warnw("worker_reward_upline_retry_skip_service_nil", "purchase_id", payload.PurchaseID)
		return nil
	}
	distribution, err := c.PurchaseService.RetryUpline(ctx, payload.PurchaseID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPurchaseNotFound):
			logger.Debugw("worker_reward_upline_retry_skip_purchase_not_found", "purchase_id", payload.PurchaseID)
			return nil
		case errors.Is(err, service.ErrMemberNotFound):
			logger.Warnw("worker_reward_upline_retry_skip_buyer_missing", "purchase_id", payload.PurchaseID)
			return nil
		case errors.Is(err, service.ErrSponsorCycleDetected):
			logger.Errorw("worker_reward_upline_retry_skip_cycle", "purchase_id", payload.PurchaseID, "error", err)
			return nil
		default:
			logger.Warnw("worker_reward_upline_retry_failed", "purchase_id", payload.PurchaseID, "error", err)
			return err
		}
	}
	logger.Debugw("worker_reward_upline_retry_done", "purchase_id", payload.PurchaseID, "levels", len(distribution.Levels))
	return nil
}

// runAccrualTick 执行日结，上一轮仍在运行时直接跳过
func (c *Consumer) runAccrualTick(ctx context.Context, source string) error {
	if c.AccrualService == nil {
		logger.Warnw("worker_accrual_tick_skip_service_nil", "source", source)
		return nil
	}
	summary, err := c.AccrualService.RunTick(ctx)
	if err != nil {
		if errors.Is(err, service.ErrJobAlreadyRunning) {
			logger.Debugw("worker_accrual_tick_skip_running", "source", source)
			return nil
		}
		logger.Warnw("worker_accrual_tick_failed", "source", source, "error", err)
		return err
	}
	logger.Debugw("worker_accrual_tick_done",
		"source", source,
		"run_id", summary.RunID,
		"processed", summary.Processed,
		"errored", summary.Errored,
	)
	return nil
}

// runDeactivationCheck 执行停用巡检，上一轮仍在运行时直接跳过
func (c *Consumer) runDeactivationCheck(ctx context.Context, source string) error {
	if c.HoldingService == nil {
		logger.Warnw("worker_deactivation_check_skip_service_nil", "source", source)
		return nil
	}
	summary, err := c.HoldingService.RunDeactivationCheck(ctx)
	if err != nil {
		if errors.Is(err, service.ErrJobAlreadyRunning) {
			logger.Debugw("worker_deactivation_check_skip_running", "source", source)
			return nil
		}
		logger.Warnw("worker_deactivation_check_failed", "source", source, "error", err)
		return err
	}
	logger.Debugw("worker_deactivation_check_done",
		"source", source,
		"run_id", summary.RunID,
		"checked", summary.Checked,
		"deactivated", len(summary.Deactivated),
	)
	return nil
}
