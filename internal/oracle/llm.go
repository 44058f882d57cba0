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

package oracle

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"osint-platform/internal/model/llm"
	"osint-platform/internal/tool"
	"osint-platform/pkg/log"
)

// minReportChars 综述结果的最小长度，过短视为失败
const minReportChars = 100

// LLMOracle 基于 LLM 的决策实现
type LLMOracle struct {
	client llm.Client
	logger *log.Logger
	// decideTokens / reportTokens 输出 token 上限
	decideTokens int
	reportTokens int
}

// NewLLMOracle 创建 LLMOracle
func NewLLMOracle(client llm.Client, logger *log.Logger) *LLMOracle {
	return &LLMOracle{client: client, logger: log.OrNop(logger), decideTokens: 300, reportTokens: 2048}
}

// Name 实现 Oracle
func (o *LLMOracle) Name() string {
	return o.client.Provider() + ":" + o.client.Model()
}

// Decide 实现 Oracle
func (o *LLMOracle) Decide(ctx context.Context, in Context) (Decision, error) {
	messages := []llm.Message{llm.System(decideSystemPrompt), llm.User(decidePrompt(in))}
	resp, err := o.client.Complete(ctx, messages, llm.GenerateOptions{Temperature: 0.2, MaxTokens: o.decideTokens})
	if err != nil {
		o.logger.Debug("oracle 调用失败", "oracle", o.Name(), "error", err)
		return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	cost := costOf(resp)
	d, err := ParseDecision(resp.Text, in.Tools)
	if err != nil {
		o.logger.Debug("oracle 输出不符合约定", "oracle", o.Name(), "error", err, "raw", truncate(resp.Text, 200))
		return Decision{Cost: cost}, err
	}
	d.Source = o.Name()
	d.Cost = cost
	o.logger.Info("oracle 决策", "turn", in.Turn, "tool", d.Tool, "rationale", truncate(d.Rationale, 80))
	return d, nil
}

// Synthesize 实现 Oracle
func (o *LLMOracle) Synthesize(ctx context.Context, brief Brief) (string, Cost, error) {
	if o.client.Provider() == "stub" {
		return "", Cost{}, ErrUnavailable
	}
	messages := []llm.Message{llm.System(synthesizeSystemPrompt), llm.User(synthesizePrompt(brief))}
	resp, err := o.client.Complete(ctx, messages, llm.GenerateOptions{Temperature: 0.3, MaxTokens: o.reportTokens})
	if err != nil {
		return "", Cost{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	cost := costOf(resp)
	text := strings.TrimSpace(resp.Text)
	if len(text) <= minReportChars {
		return "", cost, fmt.Errorf("%w: report too short (%d chars)", ErrUnavailable, len(text))
	}
	o.logger.Info("oracle 生成报告", "chars", len(text), "input_tokens", resp.InputTokens, "output_tokens", resp.OutputTokens)
	return text, cost, nil
}

// ParseDecision 从模型输出中提取 JSON 动作：去掉 markdown 围栏，截取首个 { 到末个 }；
// tool 必须在 tools 中（tools 为空时按全部内置工具校验），args 非对象时视为空。
func ParseDecision(text string, tools []tool.Spec) (Decision, error) {
	raw := extractJSON(text)
	if raw == "" || !gjson.Valid(raw) {
		return Decision{}, fmt.Errorf("%w: no json object in output", ErrUnavailable)
	}
	res := gjson.Parse(raw)
	if !res.IsObject() {
		return Decision{}, fmt.Errorf("%w: output is not an object", ErrUnavailable)
	}
	name := tool.Name(res.Get("tool").String())
	if !known(name, tools) {
		return Decision{}, fmt.Errorf("%w: unknown tool %q", ErrUnavailable, name)
	}
	args := map[string]any{}
	if a := res.Get("args"); a.IsObject() {
		if m, ok := a.Value().(map[string]interface{}); ok {
			args = m
		}
	}
	rationale := res.Get("reasoning").String()
	if rationale == "" {
		rationale = res.Get("rationale").String()
	}
	return Decision{Tool: name, Args: args, Rationale: rationale}, nil
}

func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.Contains(text, "```") {
		parts := strings.Split(text, "```")
		text = strings.TrimSpace(strings.TrimPrefix(parts[1], "json"))
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

func known(name tool.Name, tools []tool.Spec) bool {
	if len(tools) == 0 {
		return name.Valid()
	}
	for _, s := range tools {
		if s.Name == name {
			return true
		}
	}
	return false
}

func costOf(resp *llm.Response) Cost {
	return Cost{Model: resp.Model, InputTokens: resp.InputTokens, OutputTokens: resp.OutputTokens, USD: resp.CostUSD}
}

// truncate 按字节上限截断，不切开多字节字符
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
