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

package session

import (
	"context"
	"fmt"
	"time"

	"osint-platform/pkg/retention"
)

// Budget 新会话的默认预算
type Budget struct {
	Turns   int
	CostUSD float64
}

// Manager 管理会话生命周期：创建、持久化、恢复
type Manager struct {
	store  Store
	budget Budget
	now    func() time.Time
}

// NewManager 创建 Manager
func NewManager(store Store, budget Budget) *Manager {
	return &Manager{store: store, budget: budget, now: time.Now}
}

// Store 底层存储
func (m *Manager) Store() Store { return m.store }

// Create 按默认预算创建新会话（尚未保存）；turns 大于 0 时覆盖默认回合预算
func (m *Manager) Create(goal string, turns int) (*Session, error) {
	if goal == "" {
		return nil, fmt.Errorf("goal must not be empty")
	}
	if turns <= 0 {
		turns = m.budget.Turns
	}
	s := New(goal, turns, m.budget.CostUSD)
	s.SetClock(m.now)
	s.StartedAt = s.clock()
	s.UpdatedAt = s.StartedAt
	return s, nil
}

// Save 持久化会话
func (m *Manager) Save(ctx context.Context, s *Session) error {
	if s == nil {
		return nil
	}
	return m.store.Save(ctx, s)
}

// Load 读取会话
func (m *Manager) Load(ctx context.Context, id string) (*Session, error) {
	s, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.SetClock(m.now)
	return s, nil
}

// List 列出已保存会话
func (m *Manager) List(ctx context.Context) ([]Summary, error) {
	return m.store.List(ctx)
}

// Delete 删除会话
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

// ListCandidates 供留存引擎扫描
func (m *Manager) ListCandidates(ctx context.Context) ([]retention.Candidate, error) {
	list, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]retention.Candidate, 0, len(list))
	for _, s := range list {
		out = append(out, retention.Candidate{ID: s.ID, Status: string(s.Status), UpdatedAt: s.UpdatedAt})
	}
	return out, nil
}
