// Copyright 2026 fanjia1024
// API keys from environment variables

package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// envStore 从环境变量读取；key 转大写、"-" 与 "." 转 "_" 后加前缀，如 OSINT_OPENCORPORATES
type envStore struct {
	prefix string
}

// NewEnvStore 创建环境变量存储
func NewEnvStore(prefix string) Store {
	return &envStore{prefix: prefix}
}

func (e *envStore) name(key string) string {
	return e.prefix + strings.ToUpper(canonical(key))
}

func (e *envStore) Get(ctx context.Context, key string) (string, error) {
	value := os.Getenv(e.name(key))
	if value == "" {
		return "", fmt.Errorf("environment variable not set: %s", e.name(key))
	}
	return value, nil
}

func (e *envStore) Set(ctx context.Context, key string, value string) error {
	return os.Setenv(e.name(key), value)
}

func (e *envStore) Delete(ctx context.Context, key string) error {
	return os.Unsetenv(e.name(key))
}

func (e *envStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	full := e.name(prefix)
	for _, env := range os.Environ() {
		name, _, _ := strings.Cut(env, "=")
		if strings.HasPrefix(name, full) {
			keys = append(keys, strings.ToLower(strings.TrimPrefix(name, e.prefix)))
		}
	}
	return keys, nil
}
