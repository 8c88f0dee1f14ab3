package llm

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig 瞬时错误的指数退避配置
// MaxElapsedTime 是单次调用的总时间预算，而不是重试次数
type RetryConfig struct {
	InitialInterval     time.Duration // 首次等待时间
	MaxInterval         time.Duration // 单次等待上限
	Multiplier          float64       // 增长倍数
	RandomizationFactor float64       // 抖动系数
	MaxElapsedTime      time.Duration // 重试时间预算
}

// DefaultRetryConfig 返回默认重试配置
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval:     time.Second,
		MaxInterval:         30 * time.Second,
		Multiplier:          2,
		RandomizationFactor: 0.5,
		MaxElapsedTime:      120 * time.Second,
	}
}

// newBackOff 根据配置创建退避策略
func (r RetryConfig) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if r.InitialInterval > 0 {
		b.InitialInterval = r.InitialInterval
	}
	if r.MaxInterval > 0 {
		b.MaxInterval = r.MaxInterval
	}
	if r.Multiplier >= 1 {
		b.Multiplier = r.Multiplier
	}
	if r.RandomizationFactor >= 0 && r.RandomizationFactor < 1 {
		b.RandomizationFactor = r.RandomizationFactor
	}
	b.MaxElapsedTime = r.MaxElapsedTime
	if b.MaxElapsedTime <= 0 {
		b.MaxElapsedTime = DefaultRetryConfig().MaxElapsedTime
	}
	b.Reset()
	return b
}
