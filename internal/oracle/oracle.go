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

// Package oracle 推理决策：每回合给出下一步工具调用，报告阶段负责综述
package oracle

import (
	"context"
	"errors"

	"osint-platform/internal/tool"
)

// ErrUnavailable 决策不可用：提供商失败、输出不符合约定或给出未知工具。
// 调用方据此回退到启发式决策，不应视为致命错误。
var ErrUnavailable = errors.New("oracle unavailable")

// Context 决策输入
type Context struct {
	Goal string
	// State 会话状态摘要（近期发现、待办线索、工具历史、剩余预算）
	State        string
	Tools        []tool.Spec
	Turn         int
	TurnBudget   int
	RemainingUSD float64
}

// Cost 单次调用成本
type Cost struct {
	Model        string  `json:"model,omitempty"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	USD          float64 `json:"usd"`
}

// Add 累加
func (c Cost) Add(o Cost) Cost {
	c.InputTokens += o.InputTokens
	c.OutputTokens += o.OutputTokens
	c.USD += o.USD
	if o.Model != "" {
		c.Model = o.Model
	}
	return c
}

// Decision 单个结构化动作
type Decision struct {
	Tool      tool.Name      `json:"tool"`
	Args      map[string]any `json:"args"`
	Rationale string         `json:"rationale"`
	// Source 决策来源：oracle 名称或 heuristic
	Source string `json:"source"`
	Cost   Cost   `json:"cost"`
}

// Brief 报告综述输入，条目由调用方预先格式化
type Brief struct {
	Goal        string
	Findings    []string
	Entities    []string
	EntityCount int
	OpenLeads   []string
	TurnsUsed   int
	ToolsUsed   []string
}

// Oracle 推理决策接口。Decide 失败时返回 ErrUnavailable（可能附带已产生的 Cost）。
type Oracle interface {
	Name() string
	Decide(ctx context.Context, in Context) (Decision, error)
	Synthesize(ctx context.Context, brief Brief) (string, Cost, error)
}

// Stub 始终不可用
type Stub struct{}

// Name 实现 Oracle
func (Stub) Name() string { return "stub" }

// Decide 实现 Oracle
func (Stub) Decide(context.Context, Context) (Decision, error) { return Decision{}, ErrUnavailable }

// Synthesize 实现 Oracle
func (Stub) Synthesize(context.Context, Brief) (string, Cost, error) {
	return "", Cost{}, ErrUnavailable
}
