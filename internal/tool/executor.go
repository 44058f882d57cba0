// Package tool 工具执行器：名称到处理器的注册表，提供包装与原始两种调用约定
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"osint-platform/pkg/errors"
	"osint-platform/pkg/log"
	"osint-platform/pkg/metrics"
	"osint-platform/pkg/tracing"
)

// Envelope 包装调用约定的结果，供协议型调用方使用；Raw 不应当作原始结果继续处理
type Envelope struct {
	IsError bool        `json:"isError"`
	Code    errors.Code `json:"code,omitempty"`
	Content string      `json:"content"`
	Raw     Payload     `json:"-"`
}

// Executor 工具执行器
type Executor struct {
	registry *Registry
	logger   *log.Logger
}

// NewExecutor 创建执行器
func NewExecutor(reg *Registry, logger *log.Logger) *Executor {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Executor{registry: reg, logger: log.OrNop(logger)}
}

// Registry 返回底层注册表
func (e *Executor) Registry() *Registry { return e.registry }

// Catalog 已注册工具描述
func (e *Executor) Catalog() []Spec { return e.registry.Catalog() }

// Has 是否注册了该工具
func (e *Executor) Has(name Name) bool {
	_, ok := e.registry.Get(name)
	return ok
}

// ExecuteRaw 原始调用约定：直接返回 Payload，失败以带码错误返回
func (e *Executor) ExecuteRaw(ctx context.Context, name Name, args map[string]any) (Payload, error) {
	op := "tool." + string(name)
	h, ok := e.registry.Get(name)
	if !ok {
		return nil, errors.Newf(errors.CodeUnknownTool, op, "unknown tool: %s", name)
	}
	ctx, span := tracing.StartToolSpan(ctx, string(name))
	started := time.Now()
	p, err := invoke(ctx, h, args)
	metrics.ToolDuration.WithLabelValues(string(name)).Observe(time.Since(started).Seconds())
	tracing.EndSpan(span, err)
	if err != nil {
		e.logger.Warn("工具执行失败", "tool", name, "code", errors.CodeOf(err), "error", err)
		return nil, err
	}
	e.logger.Debug("工具执行完成", "tool", name, "elapsed_ms", time.Since(started).Milliseconds())
	return p, nil
}

// invoke 调用处理器并把 panic 转为 internal 错误
func invoke(ctx context.Context, h Handler, args map[string]any) (p Payload, err error) {
	defer func() {
		if r := recover(); r != nil {
			p = nil
			err = errors.Newf(errors.CodeInternal, "tool."+string(h.Spec().Name), "panic: %v", r)
		}
	}()
	return h.Invoke(ctx, args)
}

// Execute 包装调用约定：错误通过 IsError 表示，Content 为可展示文本
func (e *Executor) Execute(ctx context.Context, name Name, args map[string]any) Envelope {
	p, err := e.ExecuteRaw(ctx, name, args)
	if err != nil {
		return Envelope{IsError: true, Code: errors.CodeOf(err), Content: "Error: " + err.Error()}
	}
	return Envelope{Content: Format(p), Raw: p}
}

// Format 把 Payload 格式化为缩进 JSON
func Format(p Payload) string {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", p)
	}
	return string(b)
}

// ErrWrappedPayload 把包装结果当作原始结果使用
var ErrWrappedPayload = errors.New(errors.CodeInvalidArguments, "tool.as_payload", "wrapped envelope used where a raw payload is required")

// AsPayload 原始结果边界的形状检查：拒绝 Envelope，只接受具体 Payload
func AsPayload(v any) (Payload, error) {
	switch x := v.(type) {
	case nil:
		return nil, errors.New(errors.CodeInvalidArguments, "tool.as_payload", "nil payload")
	case Envelope, *Envelope:
		return nil, ErrWrappedPayload
	case Payload:
		return x, nil
	case map[string]any:
		if _, ok := x["isError"]; ok {
			return nil, ErrWrappedPayload
		}
	}
	return nil, errors.Newf(errors.CodeInvalidArguments, "tool.as_payload", "unexpected payload type %T", v)
}
