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
	"context"
	stderrors "errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"osint-platform/internal/storage/cache"
	"osint-platform/pkg/errors"
	"osint-platform/pkg/log"
	"osint-platform/pkg/metrics"
)

// Policy 数据源在注册时声明的限流、配额与缓存策略
type Policy struct {
	Rate         float64       // 每秒令牌数，<= 0 表示不限速
	Burst        int           // 桶容量，<= 0 时取 max(1, ceil(Rate))
	MonthlyLimit int           // 月度配额，<= 0 表示不限
	CacheTTL     time.Duration // 响应缓存时长，<= 0 使用缓存后端默认值（federation.cache_ttl）
	MaxWait      time.Duration // 等待令牌的上限，<= 0 使用 Controller 默认值
}

type sourceState struct {
	policy  Policy
	limiter *rate.Limiter
	quota   *Quota
	warned  atomic.Int32 // 已发出的配额告警级别：0 / 80 / 95
	hits    atomic.Int64
	misses  atomic.Int64
}

// Controller 进程级共享的限流 / 配额 / 缓存服务，显式注入到各数据源调用方
type Controller struct {
	mu         sync.RWMutex
	sources    map[string]*sourceState
	store      cache.Store
	maxWait    time.Duration
	now        func() time.Time
	logger     *log.Logger
}

// Option Controller 选项
type Option func(*Controller)

// WithStore 指定缓存后端（默认进程内 MemoryStore）
func WithStore(s cache.Store) Option { return func(c *Controller) { c.store = s } }

// WithMaxWait 默认令牌等待上限
func WithMaxWait(d time.Duration) Option { return func(c *Controller) { c.maxWait = d } }

// WithClock 注入时钟（配额周期与令牌观测）
func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

// WithLogger 注入 logger
func WithLogger(l *log.Logger) Option { return func(c *Controller) { c.logger = l } }

// NewController 创建 Controller
func NewController(opts ...Option) *Controller {
	c := &Controller{
		sources: make(map[string]*sourceState),
		maxWait: 5 * time.Second,
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	if c.store == nil {
		c.store = cache.NewMemoryStore(cache.WithMaxEntries(1000), cache.WithDefaultTTL(300*time.Second), cache.WithClock(c.now))
	}
	c.logger = log.OrNop(c.logger)
	return c
}

// Register 注册（或替换）数据源策略；重复注册保留已有配额计数
func (c *Controller) Register(source string, p Policy) {
	limit := rate.Inf
	if p.Rate > 0 {
		limit = rate.Limit(p.Rate)
	}
	burst := p.Burst
	if burst <= 0 {
		burst = int(p.Rate + 0.999999)
		if burst < 1 {
			burst = 1
		}
	}
	st := &sourceState{
		policy:  p,
		limiter: rate.NewLimiter(limit, burst),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.sources[source]; ok && old.quota != nil && old.quota.Limit() == p.MonthlyLimit {
		st.quota = old.quota
	} else {
		st.quota = NewQuota(p.MonthlyLimit, c.now)
	}
	c.sources[source] = st
}

func (c *Controller) state(source string) (*sourceState, error) {
	c.mu.RLock()
	st, ok := c.sources[source]
	c.mu.RUnlock()
	if !ok {
		return nil, errors.Newf(errors.CodeSourceUnavailable, "ratecache", "source %q not registered", source)
	}
	return st, nil
}

// Sources 已注册数据源（排序）
func (c *Controller) Sources() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.sources))
	for k := range c.sources {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ReserveQuota 原子地检查并占用一次月度额度；耗尽返回 quota_exceeded。
// 返回的 release 用于调用最终未发出时退还额度，可安全调用多次。
func (c *Controller) ReserveQuota(source string) (release func(), err error) {
	st, err := c.state(source)
	if err != nil {
		return func() {}, err
	}
	used, period, ok := st.quota.TryReserve()
	if !ok {
		return func() {}, errors.Newf(errors.CodeQuotaExceeded, "ratecache.quota",
			"%s monthly quota of %d exhausted until %s", source, st.quota.Limit(), st.quota.ResetDate().Format("2006-01-02"))
	}
	limit := st.quota.Limit()
	if limit <= 0 {
		return func() {}, nil
	}
	metrics.QuotaUsed.WithLabelValues(source).Set(float64(used))
	c.warnQuota(st, source, used, limit)
	var once sync.Once
	return func() {
		once.Do(func() {
			st.quota.Release(period)
			metrics.QuotaUsed.WithLabelValues(source).Set(float64(st.quota.Used()))
		})
	}, nil
}

// warnQuota 用量跨过 80% / 95% 时各告警一次
func (c *Controller) warnQuota(st *sourceState, source string, used, limit int) {
	pct := used * 100 / limit
	for _, level := range []int32{95, 80} {
		if pct >= int(level) {
			if st.warned.Load() < level {
				st.warned.Store(level)
				c.logger.Warn("数据源配额告警", "source", source, "used", used, "limit", limit, "threshold_pct", level)
			}
			break
		}
	}
}

// Acquire 获取一个令牌，最多等待 MaxWait；超出返回 rate_limited，不消耗令牌
func (c *Controller) Acquire(ctx context.Context, source string) error {
	st, err := c.state(source)
	if err != nil {
		return err
	}
	wait := st.policy.MaxWait
	if wait <= 0 {
		wait = c.maxWait
	}
	start := time.Now()
	wctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	err = st.limiter.Wait(wctx)
	metrics.RateLimitWaitSeconds.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if stderrors.Is(ctxErr, context.DeadlineExceeded) {
			return errors.E(errors.CodeTimeout, "ratecache.acquire", ctxErr)
		}
		return ctxErr
	}
	return errors.Newf(errors.CodeRateLimited, "ratecache.acquire", "%s: no token within %s", source, wait)
}

// Tokens 当前可用令牌数（观测用）
func (c *Controller) Tokens(source string) float64 {
	st, err := c.state(source)
	if err != nil {
		return 0
	}
	return st.limiter.Tokens()
}

// CacheGet 读取缓存并按 key.Source 计数命中 / 未命中
func (c *Controller) CacheGet(ctx context.Context, key cache.Key, dest interface{}) bool {
	st, err := c.state(key.Source)
	if err != nil {
		return false
	}
	if err := c.store.Get(ctx, key, dest); err != nil {
		if !stderrors.Is(err, cache.ErrMiss) {
			c.logger.Warn("读取响应缓存失败", "source", key.Source, "error", err)
		}
		st.misses.Add(1)
		metrics.CacheRequestsTotal.WithLabelValues(key.Source, "miss").Inc()
		return false
	}
	st.hits.Add(1)
	metrics.CacheRequestsTotal.WithLabelValues(key.Source, "hit").Inc()
	return true
}

// CachePut 写入缓存，TTL 取数据源策略
func (c *Controller) CachePut(ctx context.Context, key cache.Key, value interface{}) {
	st, err := c.state(key.Source)
	if err != nil {
		return
	}
	if err := c.store.Put(ctx, key, value, st.policy.CacheTTL); err != nil {
		c.logger.Warn("写入响应缓存失败", "source", key.Source, "error", err)
	}
}

// InvalidateCache 丢弃某个数据源的全部缓存响应
func (c *Controller) InvalidateCache(ctx context.Context, source string) (int, error) {
	if _, err := c.state(source); err != nil {
		return 0, err
	}
	n, err := c.store.Invalidate(ctx, source)
	if err != nil {
		return n, errors.E(errors.CodeInternal, "ratecache.invalidate", err)
	}
	c.logger.Info("已清除数据源缓存", "source", source, "entries", n)
	return n, nil
}

// SourceStats 单个数据源的观测快照
type SourceStats struct {
	Tokens         float64   `json:"tokens"`
	QuotaLimit     int       `json:"quota_limit"`
	QuotaUsed      int       `json:"quota_used"`
	QuotaRemaining int       `json:"quota_remaining"`
	QuotaResetsAt  time.Time `json:"quota_resets_at"`
	CacheHits      int64     `json:"cache_hits"`
	CacheMisses    int64     `json:"cache_misses"`
}

// Stats 全部数据源快照
func (c *Controller) Stats() map[string]SourceStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]SourceStats, len(c.sources))
	for name, st := range c.sources {
		out[name] = SourceStats{
			Tokens:         st.limiter.Tokens(),
			QuotaLimit:     st.quota.Limit(),
			QuotaUsed:      st.quota.Used(),
			QuotaRemaining: st.quota.Remaining(),
			QuotaResetsAt:  st.quota.ResetDate(),
			CacheHits:      st.hits.Load(),
			CacheMisses:    st.misses.Load(),
		}
	}
	return out
}

// QuotaSnapshot 配额持久化快照：source -> {period, used}
type QuotaSnapshot map[string]QuotaState

// QuotaState 单个数据源的配额状态
type QuotaState struct {
	Period string `json:"period"`
	Used   int    `json:"used"`
}

// SnapshotQuotas 导出配额计数，供进程重启后恢复
func (c *Controller) SnapshotQuotas() QuotaSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := QuotaSnapshot{}
	for name, st := range c.sources {
		if st.quota.Limit() > 0 {
			out[name] = QuotaState{Period: periodOf(c.now()), Used: st.quota.Used()}
		}
	}
	return out
}

// RestoreQuotas 恢复配额计数；过期周期的记录被忽略
func (c *Controller) RestoreQuotas(snap QuotaSnapshot) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for name, qs := range snap {
		if st, ok := c.sources[name]; ok {
			st.quota.restore(qs.Period, qs.Used)
		}
	}
}

// Close 关闭缓存后端
func (c *Controller) Close() error {
	return c.store.Close()
}
