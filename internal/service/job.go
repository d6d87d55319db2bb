package service

import (
	"context"
	"errors"
	"time"

	"github.com/nftlevel-next/internal/cache"

	"github.com/google/uuid"
)

// JobError 批处理中单条记录的错误
type JobError struct {
	RecordID  uint   `json:"record_id,omitempty"`
	SponsorID uint   `json:"sponsor_id,omitempty"`
	MemberID  uint   `json:"member_id,omitempty"`
	Reason    string `json:"reason"`
}

// acquireJob 获取批处理锁并生成本次运行ID
func acquireJob(ctx context.Context, name string, ttl time.Duration) (*cache.JobLock, string, error) {
	lock, err := cache.AcquireJobLock(ctx, name, ttl)
	if err != nil {
		if errors.Is(err, cache.ErrLockHeld) {
			return nil, "", ErrJobAlreadyRunning
		}
		return nil, "", err
	}
	return lock, uuid.NewString(), nil
}

// jobOutcome 运行结果指标标签
func jobOutcome(interrupted bool) string {
	if interrupted {
		return "interrupted"
	}
	return "ok"
}
