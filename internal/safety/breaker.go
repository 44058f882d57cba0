package safety

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// Breaker 熔断器：连续失败次数或累计成本达到上限后打开，本会话内不再关闭
type Breaker struct {
	maxFailures int64
	maxMicros   int64

	failures atomic.Int64
	micros   atomic.Int64
	open     atomic.Bool

	mu     sync.Mutex
	reason string
}

// BreakerState 熔断器状态，用于会话导出与恢复
type BreakerState struct {
	ConsecutiveFailures int     `json:"consecutive_failures"`
	CostUSD             float64 `json:"cost_usd"`
	Open                bool    `json:"open"`
	Reason              string  `json:"reason,omitempty"`
}

// NewBreaker maxFailures <= 0 表示不按失败次数熔断，maxCostUSD <= 0 表示不按成本熔断
func NewBreaker(maxFailures int, maxCostUSD float64) *Breaker {
	return &Breaker{maxFailures: int64(maxFailures), maxMicros: toMicros(maxCostUSD)}
}

func toMicros(usd float64) int64 { return int64(math.Round(usd * 1e6)) }

// RecordFailure 记录一次失败，返回本次是否导致熔断
func (b *Breaker) RecordFailure() bool {
	n := b.failures.Add(1)
	if b.maxFailures > 0 && n >= b.maxFailures {
		return b.trip(fmt.Sprintf("%d consecutive tool failures (limit %d)", n, b.maxFailures))
	}
	return false
}

// RecordSuccess 清零连续失败计数；不会关闭已打开的熔断器
func (b *Breaker) RecordSuccess() { b.failures.Store(0) }

// AddCost 累加成本，返回本次是否导致熔断
func (b *Breaker) AddCost(usd float64) bool {
	if usd <= 0 {
		return false
	}
	total := b.micros.Add(toMicros(usd))
	if b.maxMicros > 0 && total >= b.maxMicros {
		return b.trip(fmt.Sprintf("cost $%.4f reached limit $%.4f", float64(total)/1e6, float64(b.maxMicros)/1e6))
	}
	return false
}

// WouldExceed 追加 usd 后是否超过成本上限
func (b *Breaker) WouldExceed(usd float64) bool {
	return b.maxMicros > 0 && b.micros.Load()+toMicros(usd) > b.maxMicros
}

func (b *Breaker) trip(reason string) bool {
	if !b.open.CompareAndSwap(false, true) {
		return false
	}
	b.mu.Lock()
	b.reason = reason
	b.mu.Unlock()
	return true
}

// Open 是否已熔断
func (b *Breaker) Open() bool { return b.open.Load() }

// Reason 熔断原因
func (b *Breaker) Reason() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reason
}

// Failures 当前连续失败次数
func (b *Breaker) Failures() int { return int(b.failures.Load()) }

// CostUSD 累计成本
func (b *Breaker) CostUSD() float64 { return float64(b.micros.Load()) / 1e6 }

// State 导出状态
func (b *Breaker) State() BreakerState {
	return BreakerState{
		ConsecutiveFailures: b.Failures(),
		CostUSD:             b.CostUSD(),
		Open:                b.Open(),
		Reason:              b.Reason(),
	}
}

// Restore 恢复状态
func (b *Breaker) Restore(s BreakerState) {
	b.failures.Store(int64(s.ConsecutiveFailures))
	b.micros.Store(toMicros(s.CostUSD))
	b.open.Store(s.Open)
	b.mu.Lock()
	b.reason = s.Reason
	b.mu.Unlock()
}
