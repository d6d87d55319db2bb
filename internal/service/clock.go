package service

import "time"

// Clock 时间来源，批处理与测试通过它注入当前时间
type Clock interface {
	Now() time.Time
}

// SystemClock 系统时钟（统一 UTC）
type SystemClock struct{}

// Now 返回当前 UTC 时间
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

func resolveClock(clock Clock) Clock {
	if clock == nil {
		return SystemClock{}
	}
	return clock
}
