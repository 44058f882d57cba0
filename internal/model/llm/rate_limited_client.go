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
	"time"

	"osint-platform/pkg/metrics"
)

// RateLimitedClient 包装任意 Client，调用前限流、调用后记录用量与费用指标
type RateLimitedClient struct {
	inner   Client
	limiter *RateLimiter
}

// NewRateLimitedClient limiter 为 nil 时只记录指标
func NewRateLimitedClient(inner Client, limiter *RateLimiter) *RateLimitedClient {
	return &RateLimitedClient{inner: inner, limiter: limiter}
}

// Complete 实现 Client
func (c *RateLimitedClient) Complete(ctx context.Context, messages []Message, options GenerateOptions) (*Response, error) {
	provider := c.inner.Provider()
	if c.limiter != nil {
		chars := 0
		for _, m := range messages {
			chars += len(m.Content)
		}
		start := time.Now()
		if err := c.limiter.Wait(ctx, provider, estimateTokens(chars)+options.MaxTokens); err != nil {
			return nil, unavailable(provider, err)
		}
		if waited := time.Since(start); waited > 100*time.Millisecond {
			metrics.RateLimitWaitSeconds.WithLabelValues("llm:" + provider).Observe(waited.Seconds())
		}
		defer c.limiter.Release(provider)
	}

	resp, err := c.inner.Complete(ctx, messages, options)
	if err != nil {
		return nil, err
	}
	metrics.LLMTokensTotal.WithLabelValues("input").Add(float64(resp.InputTokens))
	metrics.LLMTokensTotal.WithLabelValues("output").Add(float64(resp.OutputTokens))
	metrics.LLMCostUSDTotal.WithLabelValues(provider).Add(resp.CostUSD)
	if c.limiter != nil {
		c.limiter.RecordTokenUsage(provider, resp.InputTokens+resp.OutputTokens)
	}
	return resp, nil
}

// Model 返回底层 Client 的模型名称
func (c *RateLimitedClient) Model() string { return c.inner.Model() }

// Provider 返回底层 Client 的提供商名称
func (c *RateLimitedClient) Provider() string { return c.inner.Provider() }
