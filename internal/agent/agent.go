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

// Package agent 调查循环：每回合由 oracle（不可用时由启发式）决定下一步工具，
// 经安全闸检查后执行，把结果折叠进会话，直到结束并生成报告。
package agent

import (
	"context"
	"fmt"
	"time"

	"osint-platform/internal/oracle"
	"osint-platform/internal/runtime/session"
	"osint-platform/internal/safety"
	"osint-platform/internal/tool"
	"osint-platform/pkg/config"
	"osint-platform/pkg/log"
	"osint-platform/pkg/metrics"
	"osint-platform/pkg/tracing"
)

// 决策来源
const (
	sourceHeuristic = "heuristic"
	sourceSystem    = "system"
)

// HarnessFactory 为每个会话创建独立的安全闸
type HarnessFactory func() *safety.Harness

// Agent 调查循环入口；可被多个会话并发使用，单个会话内严格串行
type Agent struct {
	executor *tool.Executor
	oracle   oracle.Oracle
	harness  HarnessFactory
	manager  *session.Manager
	logger   *log.Logger
	cfg      config.AgentConfig
}

// Option 可选配置
type Option func(*Agent)

// WithOracle 设置决策 oracle（通常为 oracle.Chain）
func WithOracle(o oracle.Oracle) Option { return func(a *Agent) { a.oracle = o } }

// WithHarnessFactory 设置安全闸工厂
func WithHarnessFactory(f HarnessFactory) Option { return func(a *Agent) { a.harness = f } }

// WithManager 设置会话管理器；配置 autosave 时每个会话结束后保存
func WithManager(m *session.Manager) Option { return func(a *Agent) { a.manager = m } }

// WithLogger 设置日志
func WithLogger(l *log.Logger) Option { return func(a *Agent) { a.logger = l } }

// WithConfig 设置回合、成本预算等参数
func WithConfig(c config.AgentConfig) Option { return func(a *Agent) { a.cfg = c } }

// New 创建 Agent
func New(exec *tool.Executor, opts ...Option) *Agent {
	a := &Agent{executor: exec}
	for _, o := range opts {
		o(a)
	}
	if a.executor == nil {
		a.executor = tool.NewExecutor(nil, nil)
	}
	if a.oracle == nil {
		a.oracle = oracle.Stub{}
	}
	c := config.Config{Agent: a.cfg}
	config.SetDefaults(&c)
	a.cfg = c.Agent
	if a.harness == nil {
		budget := a.cfg.CostBudgetUSD
		a.harness = func() *safety.Harness {
			return safety.New(safety.Policy{MaxConsecutiveFailures: 5, MaxCostUSD: budget})
		}
	}
	a.logger = log.OrNop(a.logger)
	return a
}

// Config 生效的参数
func (a *Agent) Config() config.AgentConfig { return a.cfg }

// NewSession 按配置预算创建会话；maxTurns 大于 0 时覆盖回合预算
func (a *Agent) NewSession(goal string, maxTurns int) (*session.Session, error) {
	if maxTurns <= 0 {
		maxTurns = a.cfg.MaxTurns
	}
	if a.manager != nil {
		return a.manager.Create(goal, maxTurns)
	}
	if goal == "" {
		return nil, fmt.Errorf("goal must not be empty")
	}
	return session.New(goal, maxTurns, a.cfg.CostBudgetUSD), nil
}

// Investigate 由自然语言目标发起一次完整调查；返回的会话总处于终止状态
func (a *Agent) Investigate(ctx context.Context, goal string) (*session.Session, error) {
	s, err := a.NewSession(goal, 0)
	if err != nil {
		return nil, err
	}
	return a.Run(ctx, s)
}

// Run 从初始阶段开始运行一个新建会话
func (a *Agent) Run(ctx context.Context, s *session.Session) (*session.Session, error) {
	if s == nil || !s.Running() {
		return nil, fmt.Errorf("session is not running")
	}
	r := a.newRun(s, a.harness())
	ctx, span := tracing.StartSessionSpan(ctx, s.ID, s.Goal)
	defer span.End()

	r.logger.Info("开始调查", "goal", s.Goal, "turn_budget", s.TurnBudget, "cost_budget_usd", s.CostBudgetUSD)
	s.RecordReasoning(sourceSystem, "", "Starting investigation: "+s.Goal)
	if s.Turn == 0 {
		if *a.cfg.InitialSearch {
			r.initialSearch(ctx)
		}
		if *a.cfg.InitialNewsCheck {
			r.initialNewsCheck(ctx)
		}
	}
	r.loop(ctx)
	r.finish(ctx)
	return s, nil
}

// Resume 从导出的会话继续调查：恢复安全闸审计与熔断状态后进入回合循环
func (a *Agent) Resume(ctx context.Context, s *session.Session) (*session.Session, error) {
	if s == nil {
		return nil, fmt.Errorf("nil session")
	}
	if !s.Running() {
		return nil, fmt.Errorf("session %s is %s, cannot resume", s.ID, s.Status)
	}
	h := a.harness()
	h.Restore(s.Audit, s.Breaker)
	r := a.newRun(s, h)
	for _, e := range s.EntityList() {
		if e.IsPerson() {
			h.AddKnownNames(e.Name)
		}
	}
	ctx, span := tracing.StartSessionSpan(ctx, s.ID, s.Goal)
	defer span.End()

	r.logger.Info("恢复调查", "turn", s.Turn, "turn_budget", s.TurnBudget)
	s.RecordReasoning(sourceSystem, "", fmt.Sprintf("Resuming investigation at turn %d", s.Turn))
	r.loop(ctx)
	r.finish(ctx)
	return s, nil
}

// run 单个会话的一次运行；只在所属 goroutine 内使用
type run struct {
	agent   *Agent
	sess    *session.Session
	harness *safety.Harness
	logger  *log.Logger
}

func (a *Agent) newRun(s *session.Session, h *safety.Harness) *run {
	return &run{agent: a, sess: s, harness: h, logger: a.logger.With("session_id", s.ID)}
}

// loop 回合循环；取消只在回合之间生效
func (r *run) loop(ctx context.Context) {
	s := r.sess
	for s.Running() {
		if c, stop := r.shouldStop(ctx); stop {
			r.conclude(c)
			return
		}
		if err := s.NextTurn(); err != nil {
			r.conclude(session.Conclusion{Reason: err.Error(), BudgetLimited: true})
			return
		}
		tctx, span := tracing.StartTurnSpan(ctx, s.ID, s.Turn)
		act := r.decide(tctx)
		if act.tool == tool.Conclude {
			s.RecordReasoning(act.source, tool.Conclude, act.rationale)
			r.conclude(session.Conclusion{Reason: act.rationale})
			span.End()
			return
		}
		r.step(tctx, act)
		span.End()
		r.checkpoint(ctx)

		if act.source == sourceHeuristic && len(s.OpenLeads()) == 0 && s.Turn >= r.agent.cfg.MinTurnsBeforeConclude {
			s.RecordReasoning(sourceSystem, "", "No open leads remaining. Concluding.")
			r.conclude(session.Conclusion{Reason: "no open leads remaining"})
			return
		}
	}
}

// shouldStop 回合开始前的强制结束条件
func (r *run) shouldStop(ctx context.Context) (session.Conclusion, bool) {
	s := r.sess
	switch {
	case ctx.Err() != nil:
		return session.Conclusion{Reason: "investigation cancelled: " + ctx.Err().Error(), Cancelled: true}, true
	case s.CostBudgetUSD > 0 && s.RemainingUSD() <= 0:
		return session.Conclusion{Reason: fmt.Sprintf("cost budget $%.4f exhausted", s.CostBudgetUSD), BudgetLimited: true}, true
	case r.harness.Breaker().Open():
		return session.Conclusion{Reason: "circuit breaker open: " + r.harness.Breaker().Reason(), PolicyLimited: true}, true
	case s.TurnBudget > 0 && s.RemainingTurns() == 0:
		return session.Conclusion{Reason: fmt.Sprintf("turn budget %d exhausted", s.TurnBudget), BudgetLimited: true}, true
	}
	return session.Conclusion{}, false
}

func (r *run) conclude(c session.Conclusion) {
	s := r.sess
	if c.Limited() {
		s.RecordReasoning(sourceSystem, "", "Forced conclusion: "+c.Reason)
	}
	s.Conclude(c)
	r.logger.Info("调查结束", "turn", s.Turn, "reason", c.Reason, "limited", c.Limited())
}

// finish 报告、审计同步与持久化
func (r *run) finish(ctx context.Context) {
	s := r.sess
	if s.Running() {
		r.conclude(session.Conclusion{Reason: "loop ended"})
	}
	r.report(ctx)
	metrics.SessionsTotal.WithLabelValues(string(s.Status)).Inc()
	r.checkpoint(ctx)
}

// checkpoint 开启 autosave 时每回合后持久化，中断的会话可由 Resume 继续
func (r *run) checkpoint(ctx context.Context) {
	r.sess.SetAudit(r.harness.Entries(), r.harness.Breaker().State())
	if r.agent.manager == nil || !r.agent.cfg.Autosave {
		return
	}
	if err := r.agent.manager.Save(context.WithoutCancel(ctx), r.sess); err != nil {
		r.logger.Warn("会话保存失败", "turn", r.sess.Turn, "error", err)
	}
}

// chargeOracle 记录 oracle 成本，同时计入熔断器
func (r *run) chargeOracle(purpose string, c oracle.Cost) {
	if c.InputTokens == 0 && c.OutputTokens == 0 && c.USD == 0 {
		return
	}
	r.sess.AddCost(purpose, c.Model, c.InputTokens, c.OutputTokens, c.USD)
	r.harness.AddCost(c.USD)
}

// toolCost 工具单次调用的声明成本
func (r *run) toolCost(name tool.Name) float64 { return r.agent.cfg.ToolCostUSD[string(name)] }

// chargeTool 记录付费工具的调用成本，同时计入熔断器
func (r *run) chargeTool(name tool.Name) {
	usd := r.toolCost(name)
	if usd <= 0 {
		return
	}
	r.sess.AddCost("tool", string(name), 0, 0, usd)
	r.harness.AddCost(usd)
}

// toolTimeout 单次工具调用超时
func (r *run) toolTimeout() time.Duration { return r.agent.cfg.ToolTimeout }
