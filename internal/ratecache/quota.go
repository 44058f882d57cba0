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

package ratecache

import (
	"sync"
	"time"
)

// Quota 按自然月计数的配额；月份变化时自动清零
type Quota struct {
	mu     sync.Mutex
	limit  int
	used   int
	period string
	now    func() time.Time
}

// NewQuota 创建月度配额，limit <= 0 表示不限
func NewQuota(limit int, now func() time.Time) *Quota {
	if now == nil {
		now = time.Now
	}
	return &Quota{limit: limit, now: now, period: periodOf(now())}
}

func periodOf(t time.Time) string { return t.UTC().Format("2006-01") }

// rollLocked 跨月重置
func (q *Quota) rollLocked() {
	if p := periodOf(q.now()); p != q.period {
		q.period = p
		q.used = 0
	}
}

// Limit 月度上限
func (q *Quota) Limit() int { return q.limit }

// Used 本月已用
func (q *Quota) Used() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rollLocked()
	return q.used
}

// Remaining 本月剩余；不限额时返回 -1
func (q *Quota) Remaining() int {
	if q.limit <= 0 {
		return -1
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rollLocked()
	if r := q.limit - q.used; r > 0 {
		return r
	}
	return 0
}

// TryReserve 检查并占用一次额度，二者在同一把锁内完成；返回占用后的用量与所属周期。
// 不限额时总是成功且不计数。
func (q *Quota) TryReserve() (used int, period string, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rollLocked()
	if q.limit <= 0 {
		return q.used, q.period, true
	}
	if q.used >= q.limit {
		return q.used, q.period, false
	}
	q.used++
	return q.used, q.period, true
}

// Release 退还 period 周期内的一次占用；周期已切换时忽略
func (q *Quota) Release(period string) {
	if q.limit <= 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rollLocked()
	if period == q.period && q.used > 0 {
		q.used--
	}
}

// ResetDate 下次清零时间（下月 1 日 UTC 零点）
func (q *Quota) ResetDate() time.Time {
	t := q.now().UTC()
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

// restore 从持久化状态恢复（同一周期才生效）
func (q *Quota) restore(period string, used int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rollLocked()
	if period == q.period {
		q.used = used
	}
}
