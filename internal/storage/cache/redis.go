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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore 基于 go-redis 的共享响应缓存，多个进程共用同一份数据源响应
type RedisStore struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Addr       string
	DB         int
	Password   string
	Prefix     string
	DefaultTTL time.Duration
}

// NewRedisStore 创建 RedisStore 并探活
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	s := NewRedisStoreFromClient(client, cfg.Prefix)
	s.defaultTTL = cfg.DefaultTTL
	return s, nil
}

// NewRedisStoreFromClient 使用已有 client
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(k Key) string { return s.prefix + k.String() }

// Put 实现 Store
func (s *RedisStore) Put(ctx context.Context, key Key, value interface{}, ttl time.Duration) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("序列化 %s 响应失败: %w", key.Source, err)
	}
	if ttl <= 0 {
		ttl = max(s.defaultTTL, 0)
	}
	return s.client.Set(ctx, s.key(key), body, ttl).Err()
}

// Get 实现 Store
func (s *RedisStore) Get(ctx context.Context, key Key, dest interface{}) error {
	body, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("redis get: %w", err)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("解析 %s 缓存响应失败: %w", key.Source, err)
	}
	return nil
}

// Invalidate 扫描 prefix+source 下的键并删除
func (s *RedisStore) Invalidate(ctx context.Context, source string) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, s.prefix+source+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return n, err
		}
		n++
	}
	return n, iter.Err()
}

// Close 关闭缓存连接
func (s *RedisStore) Close() error {
	return s.client.Close()
}
