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

package model

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"osint-platform/internal/model/llm"
	"osint-platform/pkg/config"
	"osint-platform/pkg/secrets"
)

// Registry 模型注册表，键为 provider.model_key
type Registry struct {
	mu      sync.RWMutex
	clients map[string]llm.Client
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]llm.Client)}
}

// Register 注册客户端
func (r *Registry) Register(key string, c llm.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[key] = c
}

// Get 按键获取客户端
func (r *Registry) Get(key string) (llm.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[key]
	if !ok {
		return nil, fmt.Errorf("LLM not registered: %s", key)
	}
	return c, nil
}

// Keys 已注册的键（排序）
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.clients))
	for k := range r.clients {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FromConfig 为配置中的每个 provider.model 创建限流客户端并注册；api_key 支持 secret: 引用
func FromConfig(ctx context.Context, mc config.ModelConfig, store secrets.Store) (*Registry, error) {
	reg := NewRegistry()
	limits := make(map[string]llm.LimitConfig)
	for provider, pc := range mc.LLM.Providers {
		limits[provider] = llm.LimitConfig{QPS: pc.QPS, Burst: pc.Burst}
	}
	limiter := llm.NewRateLimiter(limits, llm.LimitConfig{})

	for provider, pc := range mc.LLM.Providers {
		apiKey, err := secrets.Resolve(ctx, store, pc.APIKey)
		if err != nil {
			return nil, fmt.Errorf("resolve api_key for %s: %w", provider, err)
		}
		for key, mi := range pc.Models {
			name := mi.Name
			if name == "" {
				name = key
			}
			pricing := llm.Pricing{InputPerMillion: mi.InputPrice, OutputPerMillion: mi.OutputPrice}
			if pricing == (llm.Pricing{}) {
				pricing = llm.LookupPricing(name)
			}
			opts := llm.Options{Model: name, APIKey: apiKey, BaseURL: pc.BaseURL, Pricing: pricing}

			var c llm.Client
			if provider == "eino" {
				c, err = llm.NewEinoOpenAIClient(ctx, opts)
			} else {
				c, err = llm.NewClient(provider, opts)
			}
			if err != nil {
				return nil, fmt.Errorf("创建 LLM 客户端 %s.%s 失败: %w", provider, key, err)
			}
			reg.Register(provider+"."+key, llm.NewRateLimitedClient(c, limiter))
		}
	}
	return reg, nil
}

// Chain 按 keys 顺序返回客户端；keys 为空时使用 defaults.llm
func (r *Registry) Chain(keys []string, fallback string) ([]llm.Client, error) {
	if len(keys) == 0 && fallback != "" {
		keys = []string{fallback}
	}
	out := make([]llm.Client, 0, len(keys))
	for _, k := range keys {
		if err := validKey(k); err != nil {
			return nil, err
		}
		c, err := r.Get(k)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func validKey(key string) error {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("key 格式应为 provider.model_key，如 openai.gpt_4o_mini，当前: %q", key)
	}
	return nil
}
