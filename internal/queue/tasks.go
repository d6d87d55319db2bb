package queue

import (
	"encoding/json"

	"github.com/nftlevel-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskAccrualTick 分期佣金日结任务
	TaskAccrualTick = constants.TaskAccrualTick
	// TaskDeactivationCheck 持仓停用巡检任务
	TaskDeactivationCheck = constants.TaskDeactivationCheck
	// TaskRewardUplineRetry 上级链补发任务
	TaskRewardUplineRetry = constants.TaskRewardUplineRetry
)

// JobTriggerPayload 批处理触发载荷
type JobTriggerPayload struct {
	Source string `json:"source"`
}

// RewardUplineRetryPayload 上级链补发载荷
type RewardUplineRetryPayload struct {
	PurchaseID uint `json:"purchase_id"`
}

// NewAccrualTickTask 创建日结任务
func NewAccrualTickTask(payload JobTriggerPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAccrualTick, body), nil
}

// NewDeactivationCheckTask 创建停用巡检任务
func NewDeactivationCheckTask(payload JobTriggerPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDeactivationCheck, body), nil
}

// NewRewardUplineRetryTask 创建上级链补发任务
func NewRewardUplineRetryTask(payload RewardUplineRetryPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRewardUplineRetry, body), nil
}
