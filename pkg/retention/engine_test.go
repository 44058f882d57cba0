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

package retention

import (
	"context"
	"sort"
	"testing"
	"time"
)

var now = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

// 内存会话列表（用于测试）
type memSessions struct {
	items map[string]Candidate
}

func (m *memSessions) ListCandidates(ctx context.Context) ([]Candidate, error) {
	var out []Candidate
	for _, c := range m.items {
		out = append(out, c)
	}
	return out, nil
}

func (m *memSessions) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func daysAgo(n int) time.Time { return now.AddDate(0, 0, -n) }

// TestRetention_ShouldDelete 测试过期检测
func TestRetention_ShouldDelete(t *testing.T) {
	engine := NewEngine(Config{RetentionDays: 90}, nil, nil)
	engine.SetClock(func() time.Time { return now })

	if !engine.ShouldDelete(daysAgo(91), 90) {
		t.Error("old session should be deleted")
	}
	if engine.ShouldDelete(daysAgo(1), 90) {
		t.Error("new session should not be deleted")
	}
	if engine.ShouldDelete(daysAgo(1000), 0) {
		t.Error("retention 0 keeps sessions forever")
	}
}

// TestRetention_PolicyByStatus 测试按状态覆盖
func TestRetention_PolicyByStatus(t *testing.T) {
	cfg := Config{
		RetentionDays: 30,
		Policies:      []PolicyConfig{{Status: "failed", RetentionDays: 7}},
	}
	if got := cfg.DaysFor("concluded"); got != 30 {
		t.Errorf("concluded: expected 30, got %d", got)
	}
	if got := cfg.DaysFor("failed"); got != 7 {
		t.Errorf("failed: expected 7, got %d", got)
	}
	if got := cfg.DaysFor("running"); got != 0 {
		t.Errorf("running sessions should be kept unless configured, got %d", got)
	}
	if (Config{}).Enabled() {
		t.Error("empty config should be disabled")
	}
}

// TestRetention_RunScan 测试扫描与删除
func TestRetention_RunScan(t *testing.T) {
	store := &memSessions{items: map[string]Candidate{
		"old-concluded": {ID: "old-concluded", Status: "concluded", UpdatedAt: daysAgo(40)},
		"new-concluded": {ID: "new-concluded", Status: "concluded", UpdatedAt: daysAgo(2)},
		"old-failed":    {ID: "old-failed", Status: "failed", UpdatedAt: daysAgo(10)},
		"old-running":   {ID: "old-running", Status: "running", UpdatedAt: daysAgo(400)},
	}}
	engine := NewEngine(Config{
		RetentionDays: 30,
		Policies:      []PolicyConfig{{Status: "failed", RetentionDays: 7}},
	}, store, store)
	engine.SetClock(func() time.Time { return now })

	deleted, err := engine.RunRetentionScan(context.Background())
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	sort.Strings(deleted)
	if len(deleted) != 2 || deleted[0] != "old-concluded" || deleted[1] != "old-failed" {
		t.Errorf("unexpected deletions: %v", deleted)
	}
	if _, ok := store.items["old-running"]; !ok {
		t.Error("running session must be kept")
	}
}

// TestRetention_Disabled 未配置时不扫描
func TestRetention_Disabled(t *testing.T) {
	store := &memSessions{items: map[string]Candidate{
		"a": {ID: "a", Status: "concluded", UpdatedAt: daysAgo(4000)},
	}}
	deleted, err := NewEngine(Config{}, store, store).RunRetentionScan(context.Background())
	if err != nil || len(deleted) != 0 {
		t.Errorf("disabled engine should not delete: %v %v", deleted, err)
	}
}
