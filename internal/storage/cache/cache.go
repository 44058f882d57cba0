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

package cache

import (
	"context"
	"fmt"

	"osint-platform/pkg/config"
)

// NewCache 根据配置创建响应缓存：memory（进程内）或 redis（跨进程共享）。
// 容量上限与默认 TTL 取 federation.cache_max_entries / federation.cache_ttl。
func NewCache(ctx context.Context, cfg config.CacheConfig, fed config.FederationConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(WithMaxEntries(fed.CacheMaxEntries), WithDefaultTTL(fed.CacheTTL)), nil
	case "redis":
		return NewRedisStore(ctx, RedisConfig{
			Addr:       cfg.Addr,
			DB:         cfg.DB,
			Password:   cfg.Password,
			Prefix:     cfg.Prefix,
			DefaultTTL: fed.CacheTTL,
		})
	default:
		return nil, fmt.Errorf("不支持的缓存类型: %s", cfg.Type)
	}
}
