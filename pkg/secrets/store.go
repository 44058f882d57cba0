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

package secrets

import (
	"context"
	"fmt"
	"strings"
)

// RefPrefix 配置中引用密钥的前缀，如 api_key: "secret:opencorporates"
const RefPrefix = "secret:"

// Store 密钥存储接口
type Store interface {
	// Get 获取 secret 值
	Get(ctx context.Context, key string) (string, error)

	// Set 设置 secret 值
	Set(ctx context.Context, key string, value string) error

	// Delete 删除 secret
	Delete(ctx context.Context, key string) error

	// List 列出所有 secret keys
	List(ctx context.Context, prefix string) ([]string, error)
}

// Config 密钥存储配置
type Config struct {
	Provider  string // vault | env | memory
	EnvPrefix string
	Values    map[string]string // memory 预置密钥
	Vault     VaultConfig
}

// NewStore 按 Provider 创建存储，未知 Provider 报错
func NewStore(config Config) (Store, error) {
	switch config.Provider {
	case "", "env":
		return NewEnvStore(config.EnvPrefix), nil
	case "memory":
		return NewMemoryStore(config.Values), nil
	case "vault":
		return NewVaultStore(config.Vault)
	default:
		return nil, fmt.Errorf("unknown secrets provider %q", config.Provider)
	}
}

// Resolve 解析配置值：以 RefPrefix 开头时从 store 读取，否则原样返回
func Resolve(ctx context.Context, store Store, value string) (string, error) {
	if !strings.HasPrefix(value, RefPrefix) {
		return value, nil
	}
	if store == nil {
		return "", fmt.Errorf("secret reference %q but no secrets store configured", value)
	}
	key := strings.TrimPrefix(value, RefPrefix)
	v, err := store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", value, err)
	}
	return v, nil
}
