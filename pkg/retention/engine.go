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

// Package retention 会话留存：按状态与最后更新时间清理过期会话
package retention

import (
	"context"
	"fmt"
	"time"
)

// Candidate 留存扫描候选
type Candidate struct {
	ID        string
	Status    string
	UpdatedAt time.Time
}

// Scanner 列出候选
type Scanner interface {
	ListCandidates(ctx context.Context) ([]Candidate, error)
}

// Deleter 删除过期会话
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

// Engine 留存引擎
type Engine struct {
	config  Config
	scanner Scanner
	deleter Deleter
	now     func() time.Time
}

// NewEngine 创建留存引擎
func NewEngine(config Config, scanner Scanner, deleter Deleter) *Engine {
	return &Engine{config: config, scanner: scanner, deleter: deleter, now: time.Now}
}

// SetClock 注入时钟（测试用）
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Expired 扫描过期候选，不删除
func (e *Engine) Expired(ctx context.Context) ([]Candidate, error) {
	if !e.config.Enabled() || e.scanner == nil {
		return nil, nil
	}
	candidates, err := e.scanner.ListCandidates(ctx)
	if err != nil {
		return nil, err
	}
	var out []Candidate
	for _, c := range candidates {
		if e.ShouldDelete(c.UpdatedAt, e.config.DaysFor(c.Status)) {
			out = append(out, c)
		}
	}
	return out, nil
}

// RunRetentionScan 扫描并删除过期会话，返回已删除的 ID
func (e *Engine) RunRetentionScan(ctx context.Context) ([]string, error) {
	expired, err := e.Expired(ctx)
	if err != nil {
		return nil, err
	}
	var deleted []string
	for _, c := range expired {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if err := e.deleter.Delete(ctx, c.ID); err != nil {
			return deleted, fmt.Errorf("删除过期会话 %s 失败: %w", c.ID, err)
		}
		deleted = append(deleted, c.ID)
	}
	return deleted, nil
}

// ShouldDelete 判断是否过期
func (e *Engine) ShouldDelete(updatedAt time.Time, retentionDays int) bool {
	if retentionDays <= 0 {
		return false // 永久保留
	}
	return e.now().UTC().After(updatedAt.AddDate(0, 0, retentionDays))
}
