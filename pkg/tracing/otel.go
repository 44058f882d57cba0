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

package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "osint-platform"

// OTelConfig OpenTelemetry 配置
type OTelConfig struct {
	Enable         bool
	ServiceName    string
	ExportEndpoint string
	Insecure       bool
}

// InitTracer 初始化 OpenTelemetry tracer；未启用时返回的 shutdown 为空操作
func InitTracer(config OTelConfig) (func(context.Context) error, error) {
	if !config.Enable || config.ExportEndpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	ctx := context.Background()

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(config.ExportEndpoint),
	}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// StartSessionSpan 开始调查会话 span
func StartSessionSpan(ctx context.Context, sessionID, goal string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "session.investigate",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.Int("session.goal_len", len(goal)),
		),
	)
}

// StartTurnSpan 开始单轮 span
func StartTurnSpan(ctx context.Context, sessionID string, turn int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "session.turn",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.Int("turn", turn),
		),
	)
}

// StartSearchSpan 开始一次联邦检索 span
func StartSearchSpan(ctx context.Context, sources []string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "federation.search",
		trace.WithAttributes(attribute.StringSlice("sources", sources)),
	)
}

// StartSourceSpan 开始单个数据源查询 span
func StartSourceSpan(ctx context.Context, source string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "source.query",
		trace.WithAttributes(attribute.String("source.name", source)),
	)
}

// StartToolSpan 开始 tool invocation span
func StartToolSpan(ctx context.Context, toolName string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "tool.invoke",
		trace.WithAttributes(attribute.String("tool.name", toolName)),
	)
}

// EndSpan 结束 span，err 非空时记录错误状态
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
