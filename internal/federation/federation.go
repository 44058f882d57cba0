// Package federation 把一次逻辑查询并发分发到多个数据源，合并为去重、带来源的统一结果
package federation

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"osint-platform/internal/evidence"
	"osint-platform/internal/ratecache"
	"osint-platform/internal/storage/cache"
	"osint-platform/pkg/errors"
	"osint-platform/pkg/log"
	"osint-platform/pkg/metrics"
	"osint-platform/pkg/tracing"
)

// Config 联邦检索配置
type Config struct {
	Timeout      time.Duration // 单源超时
	DefaultLimit int           // 单源默认条数
	Dedup        DedupPolicy
}

// SearchOptions 单次检索选项
type SearchOptions struct {
	Sources []string // 为空时使用全部已注册数据源
	Tags    []string // 非空时只选带任一标签的数据源
	Limit   int
	Kind    string
}

// Result 联邦检索结果；Errors 的值为失败码（如 "timeout"），详情见 ErrorDetails
type Result struct {
	Query        string            `json:"query"`
	Kind         string            `json:"kind,omitempty"`
	Records      []evidence.Record `json:"records"`
	Sources      []string          `json:"sources"`
	SourceCounts map[string]int    `json:"source_counts"`
	Errors       map[string]string `json:"errors"`
	ErrorDetails map[string]string `json:"error_details,omitempty"`
	CacheHits    int               `json:"cache_hits"`
	Elapsed      time.Duration     `json:"elapsed"`
}

// IsError 仅当选中的数据源全部失败时为 true
func (r *Result) IsError() bool {
	return len(r.Sources) > 0 && len(r.Errors) == len(r.Sources)
}

// Federation 联邦检索器
type Federation struct {
	mu        sync.RWMutex
	adapters  map[string]Adapter
	order     []string
	admission Admission
	cfg       Config
	logger    *log.Logger
}

// New 创建 Federation；admission 为 nil 时使用新的 ratecache.Controller
func New(admission Admission, cfg Config, logger *log.Logger) *Federation {
	if admission == nil {
		admission = ratecache.NewController(ratecache.WithLogger(logger))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.Dedup.Threshold <= 0 {
		cfg.Dedup.Threshold = DefaultThreshold
	}
	return &Federation{
		adapters:  make(map[string]Adapter),
		admission: admission,
		cfg:       cfg,
		logger:    log.OrNop(logger),
	}
}

// Register 注册数据源并向准入服务声明其策略
func (f *Federation) Register(a Adapter) error {
	name := a.Name()
	if name == "" {
		return fmt.Errorf("adapter name is empty")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.adapters[name]; ok {
		return fmt.Errorf("数据源 %s 已注册", name)
	}
	f.adapters[name] = a
	f.order = append(f.order, name)
	f.admission.Register(name, a.Policy())
	return nil
}

// Sources 已注册数据源，按优先级排序
func (f *Federation) Sources() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.prioritized(f.order)
}

// Tags 数据源声明的标签；未注册或未声明时为 nil
func (f *Federation) Tags(source string) []string {
	f.mu.RLock()
	a, ok := f.adapters[source]
	f.mu.RUnlock()
	if !ok {
		return nil
	}
	t, ok := a.(Tagged)
	if !ok {
		return nil
	}
	return append([]string(nil), t.Tags()...)
}

// HasTag 数据源是否带有标签
func (f *Federation) HasTag(source, tag string) bool {
	for _, x := range f.Tags(source) {
		if x == tag {
			return true
		}
	}
	return false
}

// Threshold 当前去重阈值
func (f *Federation) Threshold() float64 { return f.cfg.Dedup.Threshold }

// prioritized 按 SourcePriority 排序，未列出的按注册顺序排在后面
func (f *Federation) prioritized(names []string) []string {
	rank := make(map[string]int, len(f.cfg.Dedup.SourcePriority))
	for i, n := range f.cfg.Dedup.SourcePriority {
		rank[n] = i
	}
	reg := make(map[string]int, len(f.order))
	for i, n := range f.order {
		reg[n] = i
	}
	out := append([]string(nil), names...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, iok := rank[out[i]]
		rj, jok := rank[out[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		}
		return reg[out[i]] < reg[out[j]]
	})
	return out
}

// selectSources 解析请求的数据源；未知名称记录告警后忽略
func (f *Federation) selectSources(opts SearchOptions) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var names []string
	if len(opts.Sources) == 0 {
		names = append(names, f.order...)
	} else {
		seen := map[string]bool{}
		for _, n := range opts.Sources {
			if seen[n] {
				continue
			}
			seen[n] = true
			if _, ok := f.adapters[n]; !ok {
				f.logger.Warn("忽略未注册的数据源", "source", n)
				continue
			}
			names = append(names, n)
		}
	}
	if len(opts.Tags) > 0 {
		filtered := names[:0]
		for _, n := range names {
			if t, ok := f.adapters[n].(Tagged); ok && anyTag(t.Tags(), opts.Tags) {
				filtered = append(filtered, n)
			}
		}
		names = filtered
	}
	return f.prioritized(names)
}

func anyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

type outcome struct {
	records []evidence.Record
	cached  bool
	err     error
}

// Search 并发查询选中的数据源并合并结果。单个数据源的失败（超时、限流、配额、
// 响应异常）只记入 Errors，不会使整体调用失败；整体耗时受最慢数据源的超时约束。
func (f *Federation) Search(ctx context.Context, query string, opts SearchOptions) (*Result, error) {
	text := strings.TrimSpace(query)
	if text == "" {
		return nil, errors.New(errors.CodeInvalidArguments, "federation.search", "query is empty")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = f.cfg.DefaultLimit
	}
	sources := f.selectSources(opts)
	start := time.Now()

	ctx, span := tracing.StartSearchSpan(ctx, sources)
	defer span.End()

	q := Query{Text: text, Kind: opts.Kind, Limit: limit}
	outcomes := make([]outcome, len(sources))
	var g errgroup.Group
	for i, name := range sources {
		i, name := i, name
		f.mu.RLock()
		a := f.adapters[name]
		f.mu.RUnlock()
		g.Go(func() error {
			outcomes[i] = f.querySource(ctx, a, q)
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{
		Query:        text,
		Kind:         opts.Kind,
		Sources:      sources,
		SourceCounts: map[string]int{},
		Errors:       map[string]string{},
		ErrorDetails: map[string]string{},
	}
	var all []evidence.Record
	for i, name := range sources {
		o := outcomes[i]
		if o.err != nil {
			code := sourceCode(o.err)
			res.Errors[name] = string(code)
			res.ErrorDetails[name] = o.err.Error()
			metrics.SourceErrorsTotal.WithLabelValues(name, string(code)).Inc()
			continue
		}
		if o.cached {
			res.CacheHits++
		}
		res.SourceCounts[name] = len(o.records)
		all = append(all, o.records...)
	}
	res.Records = Deduplicate(all, f.cfg.Dedup.Threshold)
	res.Elapsed = time.Since(start)

	f.logger.Info("联邦检索完成",
		"query_len", len(text),
		"sources", len(sources),
		"records", len(res.Records),
		"errors", len(res.Errors),
		"cache_hits", res.CacheHits,
		"elapsed_ms", res.Elapsed.Milliseconds(),
	)
	return res, nil
}

// querySource 单个数据源：缓存 -> 占用配额 -> 令牌 -> 带超时调用 -> 写缓存；拿不到令牌时退还配额
func (f *Federation) querySource(ctx context.Context, a Adapter, q Query) outcome {
	name := a.Name()
	key := cache.NewKey(name, "query", map[string]interface{}{
		"text":  strings.ToLower(q.Text),
		"kind":  q.Kind,
		"limit": q.Limit,
	})
	var cached []evidence.Record
	if f.admission.CacheGet(ctx, key, &cached) {
		return outcome{records: cached, cached: true}
	}
	release, err := f.admission.ReserveQuota(name)
	if err != nil {
		return outcome{err: err}
	}
	if err := f.admission.Acquire(ctx, name); err != nil {
		release()
		return outcome{err: err}
	}

	timeout := f.cfg.Timeout
	if t, ok := a.(TimeoutAdapter); ok && t.Timeout() > 0 {
		timeout = t.Timeout()
	}
	sctx, span := tracing.StartSourceSpan(ctx, name)
	actx, cancel := context.WithTimeout(sctx, timeout)
	defer cancel()

	started := time.Now()
	records, err := callAdapter(actx, a, q)
	if err != nil && actx.Err() != nil && ctx.Err() == nil {
		err = errors.E(errors.CodeTimeout, "source."+name, actx.Err())
	}
	outcomeLabel := "ok"
	if err != nil {
		outcomeLabel = "error"
		f.logger.Warn("数据源查询失败", "source", name, "error", err)
	}
	metrics.SourceQueryDuration.WithLabelValues(name, outcomeLabel).Observe(time.Since(started).Seconds())
	tracing.EndSpan(span, err)
	if err != nil {
		return outcome{err: err}
	}

	if len(records) > q.Limit {
		records = records[:q.Limit]
	}
	f.admission.CachePut(ctx, key, records)
	return outcome{records: records}
}

// callAdapter 在独立 goroutine 中调用，保证不遵守 ctx 的数据源也能按时放弃
func callAdapter(ctx context.Context, a Adapter, q Query) ([]evidence.Record, error) {
	type reply struct {
		records []evidence.Record
		err     error
	}
	ch := make(chan reply, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- reply{err: errors.Newf(errors.CodeSourceUnavailable, "source."+a.Name(), "panic: %v", p)}
			}
		}()
		recs, err := a.Query(ctx, q)
		ch <- reply{records: recs, err: err}
	}()
	select {
	case r := <-ch:
		return r.records, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// sourceCode 数据源失败码；未分类错误视为数据源不可用
func sourceCode(err error) errors.Code {
	if stderrors.Is(err, context.Canceled) {
		return errors.CodeSourceUnavailable
	}
	code := errors.CodeOf(err)
	if code == errors.CodeInternal || code == "" {
		return errors.CodeSourceUnavailable
	}
	return code
}
