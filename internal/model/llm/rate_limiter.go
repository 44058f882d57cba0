// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package llm

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// LimitConfig 单个提供商的限流配置
type LimitConfig struct {
	QPS             float64 `yaml:"qps"`
	Burst           int     `yaml:"burst"`
	TokensPerMinute int     `yaml:"tokens_per_minute"`
	MaxConcurrent   int     `yaml:"max_concurrent"`
}

// RateLimiter 按提供商维度的限流器：请求速率 + token 预算 + 并发
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*providerLimiter
	defaults LimitConfig
}

type providerLimiter struct {
	requests  *rate.Limiter
	tokens    *rate.Limiter
	semaphore chan struct{}
	config    LimitConfig

	mu         sync.Mutex
	tokensUsed int
}

// NewRateLimiter 创建限流器；未配置的提供商使用 defaults
func NewRateLimiter(configs map[string]LimitConfig, defaults LimitConfig) *RateLimiter {
	l := &RateLimiter{limiters: make(map[string]*providerLimiter), defaults: defaults}
	for provider, c := range configs {
		l.limiters[provider] = newProviderLimiter(c)
	}
	return l
}

func newProviderLimiter(c LimitConfig) *providerLimiter {
	pl := &providerLimiter{config: c}
	if c.QPS > 0 {
		burst := c.Burst
		if burst < 1 {
			burst = 1
		}
		pl.requests = rate.NewLimiter(rate.Limit(c.QPS), burst)
	}
	if c.TokensPerMinute > 0 {
		burst := c.TokensPerMinute / 30 // 2 秒配额
		if burst < 1 {
			burst = 1
		}
		pl.tokens = rate.NewLimiter(rate.Limit(float64(c.TokensPerMinute)/60.0), burst)
	}
	if c.MaxConcurrent > 0 {
		pl.semaphore = make(chan struct{}, c.MaxConcurrent)
	}
	return pl
}

func (l *RateLimiter) get(provider string) *providerLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	pl, ok := l.limiters[provider]
	if !ok {
		pl = newProviderLimiter(l.defaults)
		l.limiters[provider] = pl
	}
	return pl
}

// Wait 阻塞直到允许发起请求；成功后必须调用 Release
func (l *RateLimiter) Wait(ctx context.Context, provider string, estimatedTokens int) error {
	pl := l.get(provider)
	if pl.requests != nil {
		if err := pl.requests.Wait(ctx); err != nil {
			return fmt.Errorf("request rate limit wait failed: %w", err)
		}
	}
	if pl.tokens != nil && estimatedTokens > 0 {
		n := estimatedTokens
		if n > pl.tokens.Burst() {
			n = pl.tokens.Burst()
		}
		if err := pl.tokens.WaitN(ctx, n); err != nil {
			return fmt.Errorf("token budget wait failed: %w", err)
		}
	}
	if pl.semaphore != nil {
		select {
		case pl.semaphore <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Release 释放并发 slot
func (l *RateLimiter) Release(provider string) {
	pl := l.get(provider)
	if pl.semaphore == nil {
		return
	}
	select {
	case <-pl.semaphore:
	default:
	}
}

// RecordTokenUsage 记录实际用量
func (l *RateLimiter) RecordTokenUsage(provider string, tokens int) {
	pl := l.get(provider)
	pl.mu.Lock()
	pl.tokensUsed += tokens
	pl.mu.Unlock()
}

// TokensUsed 累计用量
func (l *RateLimiter) TokensUsed(provider string) int {
	pl := l.get(provider)
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.tokensUsed
}
