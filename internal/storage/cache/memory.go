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
	"fmt"
	"sync"
	"time"
)

// MemoryStore 进程内响应缓存：容量满时先清过期项，再淘汰最早写入的项
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[Key]*entry
	maxEntries int
	defaultTTL time.Duration
	now        func() time.Time
}

type entry struct {
	body      []byte
	expiresAt time.Time
	storedAt  time.Time
}

// MemoryOption MemoryStore 选项
type MemoryOption func(*MemoryStore)

// WithMaxEntries 最大条目数，<= 0 表示不限
func WithMaxEntries(n int) MemoryOption {
	return func(s *MemoryStore) { s.maxEntries = n }
}

// WithDefaultTTL Put 未给出 ttl 时的缓存时长，<= 0 表示不过期
func WithDefaultTTL(d time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.defaultTTL = d }
}

// WithClock 注入时钟（测试用）
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore 创建内存响应缓存
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[Key]*entry),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Put 实现 Store
func (s *MemoryStore) Put(ctx context.Context, key Key, value interface{}, ttl time.Duration) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("序列化 %s 响应失败: %w", key.Source, err)
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	e := &entry{body: body, storedAt: now}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	if _, ok := s.entries[key]; !ok && s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.evictLocked(now)
	}
	s.entries[key] = e
	return nil
}

// evictLocked 先删除全部过期项；仍满则删除最早写入的一项
func (s *MemoryStore) evictLocked(now time.Time) {
	for k, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, k)
		}
	}
	if len(s.entries) < s.maxEntries {
		return
	}
	var oldestKey Key
	var oldest *entry
	for k, e := range s.entries {
		if oldest == nil || e.storedAt.Before(oldest.storedAt) ||
			(e.storedAt.Equal(oldest.storedAt) && k.String() < oldestKey.String()) {
			oldestKey, oldest = k, e
		}
	}
	delete(s.entries, oldestKey)
}

// Get 实现 Store
func (s *MemoryStore) Get(ctx context.Context, key Key, dest interface{}) error {
	s.mu.RLock()
	e, ok := s.entries[key]
	now := s.now()
	s.mu.RUnlock()

	if !ok || e.expired(now) {
		return ErrMiss
	}
	if err := json.Unmarshal(e.body, dest); err != nil {
		return fmt.Errorf("解析 %s 缓存响应失败: %w", key.Source, err)
	}
	return nil
}

// Invalidate 实现 Store
func (s *MemoryStore) Invalidate(ctx context.Context, source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.entries {
		if k.Source == source {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}

// Len 当前条目数（含未清理的过期项）
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close 实现 Store
func (s *MemoryStore) Close() error { return nil }
