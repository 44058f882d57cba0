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

package tool

import (
	"context"
	"encoding/json"
	"sync"
)

// Bind 把类型化的处理函数绑定为 Handler：参数先解码为 A 再调用 fn
func Bind[A any, P Payload](spec Spec, fn func(ctx context.Context, args A) (P, error)) Handler {
	return &bound[A, P]{spec: spec, fn: fn}
}

type bound[A any, P Payload] struct {
	spec Spec
	fn   func(ctx context.Context, args A) (P, error)
}

func (b *bound[A, P]) Spec() Spec { return b.spec }

func (b *bound[A, P]) Invoke(ctx context.Context, raw map[string]any) (Payload, error) {
	var args A
	if err := decodeArgs(b.spec.Name, raw, &args); err != nil {
		return nil, err
	}
	p, err := b.fn(ctx, args)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Registry 工具注册表：注册、发现、供 LLM 使用的 Spec 列表
type Registry struct {
	mu       sync.RWMutex
	handlers map[Name]Handler
}

// NewRegistry 创建新的 Registry
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[Name]Handler),
	}
}

// Register 注册工具；同名覆盖
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.Spec().Name] = h
}

// Get 按名称获取工具
func (r *Registry) Get(name Name) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Catalog 已注册工具的描述，按 Names 顺序
func (r *Registry) Catalog() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]Spec, 0, len(r.handlers))
	for _, n := range Names {
		if h, ok := r.handlers[n]; ok {
			list = append(list, h.Spec())
		}
	}
	return list
}

// SchemasForLLM 返回所有工具的 Spec 列表（JSON 序列化供 oracle 提示使用）
func (r *Registry) SchemasForLLM() ([]byte, error) {
	return json.Marshal(r.Catalog())
}
