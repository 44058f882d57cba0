// Copyright 2026 fanjia1024
// Process-local API key store for offline runs and tests

package secrets

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// canonical 密钥名规范化：小写，"-" 与 "." 转 "_"；secret:companies-house 与 companies_house 指向同一把 key
func canonical(key string) string {
	return strings.ToLower(strings.NewReplacer("-", "_", ".", "_").Replace(strings.TrimSpace(key)))
}

// memoryStore 数据源 / 模型 API key 的内存表，键为规范化后的密钥名
type memoryStore struct {
	mu   sync.RWMutex
	keys map[string]string
}

// NewMemoryStore 创建内存存储，values 为预置的密钥（secrets.values）
func NewMemoryStore(values map[string]string) Store {
	m := &memoryStore{keys: make(map[string]string, len(values))}
	for k, v := range values {
		m.keys[canonical(k)] = v
	}
	return m
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	v, ok := m.keys[canonical(key)]
	m.mu.RUnlock()
	if !ok || v == "" {
		return "", fmt.Errorf("api key %q not set in memory secrets", canonical(key))
	}
	return v, nil
}

func (m *memoryStore) Set(ctx context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[canonical(key)] = value
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, canonical(key))
	return nil
}

// List 按规范化前缀列出密钥名
func (m *memoryStore) List(ctx context.Context, prefix string) ([]string, error) {
	p := canonical(prefix)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var names []string
	for k := range m.keys {
		if strings.HasPrefix(k, p) {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names, nil
}
