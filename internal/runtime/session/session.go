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

package session

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"osint-platform/internal/evidence"
	"osint-platform/internal/safety"
	"osint-platform/internal/tool"
)

// Session 一次调查：唯一状态载体。只由所属调查循环在回合之间修改，结束后不可变。
type Session struct {
	ID            string                     `json:"session_id"`
	Goal          string                     `json:"goal"`
	Status        Status                     `json:"status"`
	Turn          int                        `json:"turn"`
	TurnBudget    int                        `json:"turn_budget"`
	CostBudgetUSD float64                    `json:"cost_budget_usd"`
	Cost          CostRecord                 `json:"cost"`
	Entities      map[string]evidence.Record `json:"entities"`
	Findings      []Finding                  `json:"findings"`
	Leads         []Lead                     `json:"leads"`
	ToolHistory   []ToolCall                 `json:"tool_history"`
	Trace         []TraceEntry               `json:"reasoning_trace"`
	Report        string                     `json:"report,omitempty"`
	Audit         []safety.Entry             `json:"safety_audit"`
	Breaker       safety.BreakerState        `json:"breaker"`
	Conclusion    *Conclusion                `json:"conclusion,omitempty"`
	StartedAt     time.Time                  `json:"started_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`
	ConcludedAt   *time.Time                 `json:"concluded_at,omitempty"`

	leadSeq int
	now     func() time.Time
}

// New 创建运行中的会话
func New(goal string, turnBudget int, costBudgetUSD float64) *Session {
	s := &Session{
		ID:            uuid.New().String(),
		Goal:          goal,
		Status:        StatusRunning,
		TurnBudget:    turnBudget,
		CostBudgetUSD: costBudgetUSD,
		Entities:      make(map[string]evidence.Record),
		now:           time.Now,
	}
	s.StartedAt = s.clock()
	s.UpdatedAt = s.StartedAt
	return s
}

// SetClock 注入时钟（测试用）
func (s *Session) SetClock(now func() time.Time) { s.now = now }

func (s *Session) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

func (s *Session) newID() string {
	return ulid.MustNew(ulid.Timestamp(s.clock()), ulid.DefaultEntropy()).String()
}

func (s *Session) touch() { s.UpdatedAt = s.clock() }

// Running 是否仍在运行
func (s *Session) Running() bool { return s.Status == StatusRunning }

// NextTurn 回合计数加一；不会超过预算
func (s *Session) NextTurn() error {
	if !s.Running() {
		return fmt.Errorf("session %s is %s", s.ID, s.Status)
	}
	if s.TurnBudget > 0 && s.Turn >= s.TurnBudget {
		return fmt.Errorf("turn budget %d exhausted", s.TurnBudget)
	}
	s.Turn++
	s.touch()
	return nil
}

// RemainingTurns 剩余回合
func (s *Session) RemainingTurns() int {
	if s.TurnBudget <= 0 {
		return 0
	}
	if r := s.TurnBudget - s.Turn; r > 0 {
		return r
	}
	return 0
}

// RemainingUSD 剩余成本预算
func (s *Session) RemainingUSD() float64 {
	if r := s.CostBudgetUSD - s.Cost.USD; r > 0 {
		return r
	}
	return 0
}

// AddCost 记录一次计费调用
func (s *Session) AddCost(purpose, model string, in, out int, usd float64) {
	if in == 0 && out == 0 && usd == 0 {
		return
	}
	s.Cost.InputTokens += in
	s.Cost.OutputTokens += out
	s.Cost.USD += usd
	s.Cost.Calls = append(s.Cost.Calls, CostCall{Turn: s.Turn, Purpose: purpose, Model: model, InputTokens: in, OutputTokens: out, USD: usd})
	s.touch()
}

// MergeEntity 按 ID 合并实体：已存在时属性取并集、来源取并集、置信度取最大
func (s *Session) MergeEntity(r evidence.Record) {
	if r.ID == "" {
		return
	}
	existing, ok := s.Entities[r.ID]
	if !ok {
		s.Entities[r.ID] = r.Clone()
		return
	}
	merged := existing.Clone()
	evidence.MergeProperties(merged.Properties, r.Properties)
	seen := map[string]bool{}
	for _, p := range merged.Provenance {
		seen[p.Source+"|"+p.SourceID] = true
	}
	for _, p := range r.Provenance {
		if !seen[p.Source+"|"+p.SourceID] {
			merged.Provenance = append(merged.Provenance, p)
		}
	}
	if r.Confidence > merged.Confidence {
		merged.Confidence = r.Confidence
	}
	s.Entities[r.ID] = merged
}

// AddFinding 追加发现并索引其中的实体
func (s *Session) AddFinding(source, summary string, confidence float64, records []evidence.Record) Finding {
	f := Finding{
		ID:         s.newID(),
		Turn:       s.Turn,
		Source:     source,
		Summary:    summary,
		Confidence: clamp01(confidence),
		Timestamp:  s.clock(),
	}
	for _, r := range records {
		s.MergeEntity(r)
		f.EntityIDs = append(f.EntityIDs, r.ID)
	}
	s.Findings = append(s.Findings, f)
	s.touch()
	return f
}

// AddLead 追加线索；同类型同目标的线索已存在时返回已有线索与 false
func (s *Session) AddLead(typ tool.Name, target, description string, priority float64, args map[string]any, sourceFinding string) (Lead, bool) {
	key := strings.ToLower(strings.TrimSpace(target))
	for _, l := range s.Leads {
		if l.Type == typ && strings.ToLower(strings.TrimSpace(l.Target)) == key {
			return l, false
		}
	}
	s.leadSeq++
	l := Lead{
		ID:            s.newID(),
		Seq:           s.leadSeq,
		Type:          typ,
		Target:        target,
		Description:   description,
		Args:          args,
		Priority:      clamp01(priority),
		Status:        LeadOpen,
		SourceFinding: sourceFinding,
		CreatedAt:     s.clock(),
	}
	s.Leads = append(s.Leads, l)
	s.touch()
	return l, true
}

// OpenLeads 未关闭线索，按优先级降序；同优先级按加入顺序
func (s *Session) OpenLeads() []Lead {
	var out []Lead
	for _, l := range s.Leads {
		if l.Status == LeadOpen {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

// CloseLead 关闭线索；不存在或已关闭返回 false
func (s *Session) CloseLead(id, reason string) bool {
	for i := range s.Leads {
		if s.Leads[i].ID == id && s.Leads[i].Status == LeadOpen {
			s.Leads[i].Status = LeadClosed
			s.Leads[i].ClosedReason = reason
			s.touch()
			return true
		}
	}
	return false
}

// FindOpenLead 查找与工具和目标匹配的未关闭线索
func (s *Session) FindOpenLead(typ tool.Name, target string) (Lead, bool) {
	key := strings.ToLower(strings.TrimSpace(target))
	for _, l := range s.OpenLeads() {
		if l.Type == typ && strings.ToLower(strings.TrimSpace(l.Target)) == key {
			return l, true
		}
	}
	return Lead{}, false
}

// RecordToolCall 追加工具调用记录
func (s *Session) RecordToolCall(c ToolCall) {
	c.Turn = s.Turn
	if c.At.IsZero() {
		c.At = s.clock()
	}
	s.ToolHistory = append(s.ToolHistory, c)
	s.touch()
}

// RecordReasoning 追加推理轨迹
func (s *Session) RecordReasoning(source string, name tool.Name, rationale string) {
	s.Trace = append(s.Trace, TraceEntry{Turn: s.Turn, Source: source, Tool: name, Rationale: rationale, At: s.clock()})
	s.touch()
}

// Conclude 结束会话；已结束时不做任何修改
func (s *Session) Conclude(c Conclusion) {
	s.finish(StatusConcluded, c)
}

// Fail 以失败状态结束
func (s *Session) Fail(reason string) {
	s.finish(StatusFailed, Conclusion{Reason: reason})
}

func (s *Session) finish(status Status, c Conclusion) {
	if !s.Running() {
		return
	}
	at := s.clock()
	s.Status = status
	s.Conclusion = &c
	s.ConcludedAt = &at
	s.UpdatedAt = at
}

// SetReport 写入报告（发布边界之后的文本）
func (s *Session) SetReport(report string) {
	s.Report = report
	s.touch()
}

// SetAudit 同步安全闸审计与熔断状态
func (s *Session) SetAudit(entries []safety.Entry, state safety.BreakerState) {
	s.Audit = entries
	s.Breaker = state
}

// EntityList 实体列表，按置信度降序、名称升序
func (s *Session) EntityList() []evidence.Record {
	out := make([]evidence.Record, 0, len(s.Entities))
	for _, r := range s.Entities {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ToolsUsed 用过的工具（去重，保持首次出现顺序）
func (s *Session) ToolsUsed() []string {
	seen := map[tool.Name]bool{}
	var out []string
	for _, c := range s.ToolHistory {
		if !seen[c.Tool] {
			seen[c.Tool] = true
			out = append(out, string(c.Tool))
		}
	}
	return out
}

// ContextForOracle 供决策使用的状态摘要，超过 maxChars 时截断
func (s *Session) ContextForOracle(maxChars int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INVESTIGATION GOAL: %s\n", s.Goal)
	fmt.Fprintf(&b, "TURN: %d of %d\n", s.Turn, s.TurnBudget)
	fmt.Fprintf(&b, "COST: $%.4f of $%.4f\n", s.Cost.USD, s.CostBudgetUSD)
	fmt.Fprintf(&b, "ENTITIES FOUND: %d\n", len(s.Entities))
	fmt.Fprintf(&b, "FINDINGS: %d\n", len(s.Findings))

	if n := len(s.Findings); n > 0 {
		b.WriteString("\nRECENT FINDINGS:\n")
		for _, f := range s.Findings[max(0, n-5):] {
			fmt.Fprintf(&b, "  - [%s] %s\n", f.Source, f.Summary)
		}
	}
	if open := s.OpenLeads(); len(open) > 0 {
		fmt.Fprintf(&b, "\nOPEN LEADS (%d):\n", len(open))
		for _, l := range open[:min(5, len(open))] {
			fmt.Fprintf(&b, "  - [%.2f] %s\n    Suggested: %s(%s)\n", l.Priority, l.Description, l.Type, l.Target)
		}
	}
	if n := len(s.ToolHistory); n > 0 {
		b.WriteString("\nRECENT TOOL CALLS:\n")
		for _, c := range s.ToolHistory[max(0, n-5):] {
			status := c.Summary
			if c.Error != "" {
				status = "error: " + c.Error
			}
			fmt.Fprintf(&b, "  - turn %d %s %s -> %s\n", c.Turn, c.Tool, compactArgs(c.Args), status)
		}
	}
	if len(s.Entities) > 0 {
		fmt.Fprintf(&b, "\nKEY ENTITIES (%d):\n", len(s.Entities))
		list := s.EntityList()
		for _, r := range list[:min(10, len(list))] {
			fmt.Fprintf(&b, "  - [%s] %s\n", r.Schema, r.Name)
		}
	}

	text := strings.TrimRight(b.String(), "\n")
	if maxChars > 20 && len(text) > maxChars {
		cut := maxChars - 20
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "\n... (truncated)"
	}
	return text
}

// Summary 机器可读摘要
type Summary struct {
	ID           string    `json:"session_id"`
	Goal         string    `json:"goal"`
	Status       Status    `json:"status"`
	Turns        int       `json:"turns"`
	EntityCount  int       `json:"entity_count"`
	FindingCount int       `json:"finding_count"`
	LeadsOpen    int       `json:"leads_open"`
	LeadsTotal   int       `json:"leads_total"`
	ToolCalls    int       `json:"tool_calls"`
	UniqueTools  []string  `json:"unique_tools"`
	CostUSD      float64   `json:"cost_usd"`
	Limited      bool      `json:"limited"`
	Reason       string    `json:"reason,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Summary 生成摘要
func (s *Session) Summary() Summary {
	sum := Summary{
		ID:           s.ID,
		Goal:         s.Goal,
		Status:       s.Status,
		Turns:        s.Turn,
		EntityCount:  len(s.Entities),
		FindingCount: len(s.Findings),
		LeadsOpen:    len(s.OpenLeads()),
		LeadsTotal:   len(s.Leads),
		ToolCalls:    len(s.ToolHistory),
		UniqueTools:  s.ToolsUsed(),
		CostUSD:      s.Cost.USD,
		StartedAt:    s.StartedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	if s.Conclusion != nil {
		sum.Limited = s.Conclusion.Limited()
		sum.Reason = s.Conclusion.Reason
	}
	return sum
}

func compactArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, args[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
