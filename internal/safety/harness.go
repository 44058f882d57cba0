// Package safety 安全闸：工具调用前的准入检查、熔断，以及发布边界的脱敏
package safety

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"osint-platform/pkg/log"
	"osint-platform/pkg/metrics"
	"osint-platform/pkg/proof"
	"osint-platform/pkg/redaction"
)

// Mode 运行模式，按调用上下文选择
type Mode string

const (
	// ModeAudit 调查过程中：记录所有检查，只拦截硬性策略违规
	ModeAudit Mode = "audit"
	// ModeEnforcing 发布边界：额外对外发数据脱敏
	ModeEnforcing Mode = "enforcing"
)

type modeKey struct{}

// WithMode 在 ctx 上标记模式
func WithMode(ctx context.Context, m Mode) context.Context {
	return context.WithValue(ctx, modeKey{}, m)
}

// ModeFrom 读取 ctx 上的模式，默认 ModeAudit
func ModeFrom(ctx context.Context) Mode {
	if m, ok := ctx.Value(modeKey{}).(Mode); ok {
		return m
	}
	return ModeAudit
}

// Verdict 准入检查结果
type Verdict struct {
	Allow        bool     `json:"allow"`
	Reason       string   `json:"reason,omitempty"`
	Observations []string `json:"observations,omitempty"`
}

// Blocked 是否被拦截
func (v Verdict) Blocked() bool { return !v.Allow }

// Harness 单个会话的安全闸
type Harness struct {
	policy  Policy
	breaker *Breaker
	engine  *redaction.Engine
	logger  *log.Logger
	now     func() time.Time

	mu       sync.Mutex
	scanner  *redaction.Scanner
	audit    []Entry
	redacted int
}

// Option 构造选项
type Option func(*Harness)

// WithLogger 注入 logger
func WithLogger(l *log.Logger) Option { return func(h *Harness) { h.logger = l } }

// WithClock 注入时钟
func WithClock(now func() time.Time) Option { return func(h *Harness) { h.now = now } }

// WithEncryptKey 字段加密模式使用的密钥
func WithEncryptKey(key []byte) Option {
	return func(h *Harness) {
		h.engine = redaction.NewEngine(redaction.LoadPolicyFromConfig(h.policy.Redaction), key)
	}
}

// New 创建会话级安全闸
func New(p Policy, opts ...Option) *Harness {
	h := &Harness{
		policy:  p,
		breaker: NewBreaker(p.MaxConsecutiveFailures, p.MaxCostUSD),
		engine:  redaction.NewEngine(redaction.LoadPolicyFromConfig(p.Redaction), nil),
		scanner: redaction.NewScanner(p.RedactionTerms...),
		now:     time.Now,
	}
	for _, o := range opts {
		o(h)
	}
	h.logger = log.OrNop(h.logger)
	return h
}

// Breaker 返回熔断器
func (h *Harness) Breaker() *Breaker { return h.breaker }

// Check 工具调用前的准入检查，任何模式下每次调用前都要执行。
// 熔断打开、黑名单、不在白名单、预估成本超出剩余预算时拦截；参数中的个人信息只记录不拦截。
func (h *Harness) Check(ctx context.Context, tool string, args map[string]any, estimatedUSD float64) Verdict {
	mode := ModeFrom(ctx)
	var v Verdict
	switch {
	case h.breaker.Open():
		v.Reason = "circuit breaker open: " + h.breaker.Reason()
	case h.policy.denied(tool):
		v.Reason = fmt.Sprintf("tool %q is denied by policy", tool)
	case !h.policy.allowed(tool):
		v.Reason = fmt.Sprintf("tool %q not in allowed_tools", tool)
	case estimatedUSD > 0 && h.breaker.WouldExceed(estimatedUSD):
		v.Reason = fmt.Sprintf("estimated cost $%.4f exceeds remaining budget", estimatedUSD)
	default:
		v.Allow = true
	}
	if v.Allow {
		h.mu.Lock()
		scanner := h.scanner
		h.mu.Unlock()
		if counts := scanner.DetectValue(toJSONValue(args)); counts.Total() > 0 {
			v.Observations = append(v.Observations, "pii in args: "+strings.Join(counts.Kinds(), ","))
		}
	}

	verdict, reason := VerdictAllow, strings.Join(v.Observations, "; ")
	if !v.Allow {
		verdict, reason = VerdictBlock, v.Reason
		h.logger.Warn("安全检查拦截", "tool", tool, "reason", v.Reason)
	}
	metrics.SafetyChecksTotal.WithLabelValues(verdict).Inc()
	h.record(CheckPre, tool, verdict, reason, mode)
	return v
}

// Observe 工具结果的事后检查：只记录个人信息，不修改数据
func (h *Harness) Observe(ctx context.Context, tool string, payload any) {
	h.mu.Lock()
	scanner := h.scanner
	h.mu.Unlock()
	counts := scanner.DetectValue(toJSONValue(payload))
	reason := "clean"
	if counts.Total() > 0 {
		reason = fmt.Sprintf("pii observed (not scrubbed): %d (%s)", counts.Total(), strings.Join(counts.Kinds(), ","))
	}
	h.record(CheckPost, tool, VerdictObserved, reason, ModeFrom(ctx))
}

// ReportSuccess 工具成功，清零连续失败
func (h *Harness) ReportSuccess(tool string) { h.breaker.RecordSuccess() }

// ReportFailure 工具失败；导致熔断时追加审计条目
func (h *Harness) ReportFailure(tool string, err error) {
	if h.breaker.RecordFailure() {
		h.logger.Warn("熔断器打开", "tool", tool, "reason", h.breaker.Reason(), "error", err)
		h.record(CheckBreaker, tool, VerdictBlock, h.breaker.Reason(), ModeAudit)
	}
}

// AddCost 累加成本；导致熔断时追加审计条目
func (h *Harness) AddCost(usd float64) {
	if h.breaker.AddCost(usd) {
		h.logger.Warn("熔断器打开", "reason", h.breaker.Reason())
		h.record(CheckBreaker, "", VerdictBlock, h.breaker.Reason(), ModeAudit)
	}
}

// AddKnownNames 追加需要在发布时脱敏的人名
func (h *Harness) AddKnownNames(names ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scanner = h.scanner.WithNames(names...)
}

// Publish 发布边界：先按字段策略处理，再深度扫描字符串脱敏。重复发布已脱敏数据不产生变化。
func (h *Harness) Publish(ctx context.Context, kind string, payload any) any {
	v := toJSONValue(payload)
	fields := 0
	if obj, ok := v.(map[string]interface{}); ok {
		fields = h.engine.Apply(kind, obj)
	}
	h.mu.Lock()
	scanner := h.scanner
	h.mu.Unlock()
	out, counts := scanner.RedactValue(v)
	h.recordPublication(kind, counts, fields)
	return out
}

// PublishText 发布文本
func (h *Harness) PublishText(ctx context.Context, kind, text string) string {
	h.mu.Lock()
	scanner := h.scanner
	h.mu.Unlock()
	out, counts := scanner.Redact(text)
	h.recordPublication(kind, counts, 0)
	return out
}

// PublishJSON 把任意值序列化后发布，返回脱敏后的 JSON
func (h *Harness) PublishJSON(ctx context.Context, kind string, v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("publish %s: %w", kind, err)
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("publish %s: %w", kind, err)
	}
	return json.Marshal(h.Publish(ctx, kind, generic))
}

func (h *Harness) recordPublication(kind string, counts redaction.Counts, fields int) {
	n := counts.Total() + fields
	verdict, reason := VerdictClean, "clean"
	if n > 0 {
		verdict = VerdictScrubbed
		kinds := counts.Kinds()
		if fields > 0 {
			kinds = append(kinds, fmt.Sprintf("FIELDS:%d", fields))
		}
		reason = fmt.Sprintf("%d items redacted (%s)", n, strings.Join(kinds, ","))
		h.logger.Info("发布前脱敏", "kind", kind, "items", n)
	}
	h.mu.Lock()
	h.redacted += n
	h.mu.Unlock()
	metrics.SafetyChecksTotal.WithLabelValues(verdict).Inc()
	h.record(CheckPublish, kind, verdict, reason, ModeEnforcing)
}

func (h *Harness) record(check, tool, verdict, reason string, mode Mode) {
	at := h.now().UTC()
	e := Entry{ID: newEntryID(at), CheckType: check, Tool: tool, Verdict: verdict, Reason: reason, Mode: mode, Timestamp: at}
	h.mu.Lock()
	prev := ""
	if n := len(h.audit); n > 0 {
		prev = h.audit[n-1].Hash
	}
	sealed := proof.Seal(e.link(), prev)
	e.PrevHash, e.Hash = sealed.PrevHash, sealed.Hash
	h.audit = append(h.audit, e)
	h.mu.Unlock()
}

// Entries 审计条目副本
func (h *Harness) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Entry(nil), h.audit...)
}

// Summary 审计汇总
func (h *Harness) Summary() Summary {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := Summary{RedactedItems: h.redacted, Breaker: h.breaker.State()}
	for _, e := range h.audit {
		switch e.CheckType {
		case CheckPre:
			s.Checks++
			if e.Verdict == VerdictBlock {
				s.Blocks++
			}
		case CheckPost:
			s.Observed++
		case CheckPublish:
			s.Publications++
			if e.Verdict == VerdictScrubbed {
				s.Scrubbed++
			}
		}
	}
	return s
}

// Restore 会话恢复：装回审计条目与熔断状态
func (h *Harness) Restore(entries []Entry, state BreakerState) {
	h.mu.Lock()
	h.audit = append([]Entry(nil), entries...)
	h.mu.Unlock()
	h.breaker.Restore(state)
}

// toJSONValue 经 JSON 往返得到 map / slice / string 形态的深拷贝；失败时原样返回
func toJSONValue(v any) interface{} {
	switch v.(type) {
	case nil, string:
		return v
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}
