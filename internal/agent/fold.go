package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"osint-platform/internal/evidence"
	"osint-platform/internal/runtime/session"
	"osint-platform/internal/safety"
	"osint-platform/internal/tool"
	"osint-platform/pkg/errors"
)

// 线索优先级
const (
	prioritySanctionsHit  = 0.95
	priorityInitialScreen = 0.8
	priorityInitialTrace  = 0.7
	priorityTrace         = 0.6
)

// reportEntityLimit 注入报告工具的实体上限
const reportEntityLimit = 50

// initialSearch 初始阶段：以目标为查询做一次实体检索，为前几个实体开启筛查与所有权线索
func (r *run) initialSearch(ctx context.Context) {
	s := r.sess
	if !r.agent.executor.Has(tool.SearchEntities) {
		return
	}
	act := action{
		tool:      tool.SearchEntities,
		args:      map[string]any{"query": s.Goal, "limit": 20},
		rationale: "Initial entity search for: " + s.Goal,
		source:    sourceSystem,
	}
	s.RecordReasoning(act.source, act.tool, act.rationale)
	p, ok := r.execute(ctx, act)
	if !ok {
		return
	}
	res, ok := p.(tool.SearchResult)
	if !ok || len(res.Entities) == 0 {
		return
	}
	f := s.AddFinding(string(tool.SearchEntities), fmt.Sprintf("Found %d entities matching '%s'", len(res.Entities), s.Goal), 0.7, res.Entities)
	r.learnNames(res.Entities)
	for _, e := range res.Entities[:min(5, len(res.Entities))] {
		if e.Name == "" {
			continue
		}
		if r.agent.executor.Has(tool.ScreenSanctions) {
			s.AddLead(tool.ScreenSanctions, e.Name, "Screen "+e.Name+" against sanctions", priorityInitialScreen, nil, f.ID)
		}
		if e.IsOrganization() && r.agent.executor.Has(tool.TraceOwnership) {
			s.AddLead(tool.TraceOwnership, e.Name, "Trace ownership of "+e.Name, priorityInitialTrace, nil, f.ID)
		}
	}
}

// initialNewsCheck 初始阶段：检查目标的近期新闻报道；数据源失败只记录不中断
func (r *run) initialNewsCheck(ctx context.Context) {
	s := r.sess
	if !r.agent.executor.Has(tool.MonitorEntity) {
		return
	}
	act := action{
		tool:      tool.MonitorEntity,
		args:      map[string]any{"entity_name": s.Goal, "timespan": "7d"},
		rationale: "Initial news check for: " + s.Goal,
		source:    sourceSystem,
	}
	s.RecordReasoning(act.source, act.tool, act.rationale)
	p, ok := r.execute(ctx, act)
	if !ok {
		return
	}
	res, ok := p.(tool.MonitorResult)
	if !ok || res.ArticleCount == 0 {
		return
	}
	s.AddFinding(string(tool.MonitorEntity), fmt.Sprintf("Found %d recent news articles about '%s'", res.ArticleCount, s.Goal), 0.5, nil)
}

// step 一个回合的执行与折叠
func (r *run) step(ctx context.Context, act action) {
	r.sess.RecordReasoning(act.source, act.tool, act.rationale)
	p, ok := r.execute(ctx, act)
	if !ok {
		return
	}
	r.fold(act, p)
	if act.leadID != "" {
		r.sess.CloseLead(act.leadID, "resolved")
	}
}

// execute 安全检查（含付费工具的成本预检）后以原始约定调用工具；
// 进行中的调用不受会话取消影响，只受单次超时约束
func (r *run) execute(ctx context.Context, act action) (tool.Payload, bool) {
	s := r.sess
	auditCtx := safety.WithMode(ctx, safety.ModeAudit)
	if v := r.harness.Check(auditCtx, string(act.tool), act.args, r.toolCost(act.tool)); v.Blocked() {
		s.RecordReasoning(sourceSystem, act.tool, "BLOCKED by safety harness: "+v.Reason)
		s.RecordToolCall(session.ToolCall{Tool: act.tool, Args: act.args, Summary: "blocked", Error: v.Reason, Blocked: true})
		if act.leadID != "" {
			s.CloseLead(act.leadID, "blocked")
		}
		return nil, false
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(auditCtx), r.toolTimeout())
	defer cancel()
	started := time.Now()
	p, err := r.agent.executor.ExecuteRaw(callCtx, act.tool, r.withEntities(act))
	elapsed := time.Since(started).Milliseconds()
	r.chargeTool(act.tool)
	if err == nil {
		_, err = tool.AsPayload(p)
	}
	if err != nil {
		r.harness.ReportFailure(string(act.tool), err)
		s.RecordToolCall(session.ToolCall{
			Tool: act.tool, Args: act.args, Summary: "error",
			Error: err.Error(), Code: string(errors.CodeOf(err)), DurationMS: elapsed,
		})
		s.RecordReasoning(sourceSystem, act.tool, fmt.Sprintf("Tool %s failed: %v", act.tool, err))
		if act.leadID != "" {
			s.CloseLead(act.leadID, "dead_end")
		}
		return nil, false
	}
	r.harness.ReportSuccess(string(act.tool))
	r.harness.Observe(auditCtx, string(act.tool), p)
	s.RecordToolCall(session.ToolCall{Tool: act.tool, Args: act.args, Summary: summarize(act, p), DurationMS: elapsed})
	return p, true
}

// withEntities 图分析与报告工具需要会话实体，由循环注入；记录的参数不含注入部分
func (r *run) withEntities(act action) map[string]any {
	if act.tool != tool.AnalyzeGraph && act.tool != tool.GenerateReport {
		return act.args
	}
	out := make(map[string]any, len(act.args)+1)
	for k, v := range act.args {
		out[k] = v
	}
	list := r.sess.EntityList()
	if act.tool == tool.GenerateReport && len(list) > reportEntityLimit {
		list = list[:reportEntityLimit]
	}
	out["entities"] = list
	return out
}

// fold 把工具结果折叠为发现、实体与新线索
func (r *run) fold(act action, p tool.Payload) {
	s := r.sess
	summary := summarize(act, p)
	src := string(act.tool)
	switch res := p.(type) {
	case tool.SearchResult:
		if len(res.Entities) == 0 {
			return
		}
		f := s.AddFinding(src, summary, estimateConfidence(0, len(res.Entities), len(res.Entities)), res.Entities)
		r.learnNames(res.Entities)
		r.extractLeads(f, res.Entities, nil)
	case tool.ScreenResult:
		records := make([]evidence.Record, 0, len(res.Matches))
		for _, m := range res.Matches {
			if m.Entity.ID != "" {
				records = append(records, m.Entity)
			}
		}
		f := s.AddFinding(src, summary, estimateConfidence(len(res.Matches), 0, len(records)), records)
		r.learnNames(records)
		r.extractLeads(f, nil, res.Matches)
	case tool.OwnershipResult:
		if len(res.Entities) == 0 {
			return
		}
		f := s.AddFinding(src, summary, estimateConfidence(0, 0, len(res.Entities)), res.Entities)
		r.learnNames(res.Entities)
		r.extractLeads(f, res.Entities, nil)
	case tool.MonitorResult:
		if res.ArticleCount == 0 {
			return
		}
		s.AddFinding(src, summary, 0.5, nil)
	case tool.GraphResult:
		if res.NodeCount == 0 {
			return
		}
		s.AddFinding(src, summary, 0.6, nil)
	case tool.ReportResult:
		if res.Report == "" {
			return
		}
		s.AddFinding(src, summary, 0.4, nil)
	}
}

// extractLeads 由发现派生线索：前几个组织实体追溯所有权，制裁命中以最高优先级检索
func (r *run) extractLeads(f session.Finding, records []evidence.Record, matches []tool.SanctionMatch) {
	s := r.sess
	if r.agent.executor.Has(tool.TraceOwnership) {
		for _, e := range records[:min(3, len(records))] {
			if e.Name == "" || !e.IsOrganization() || r.hasLeadFor(e.Name) {
				continue
			}
			s.AddLead(tool.TraceOwnership, e.Name, "Trace ownership of "+e.Name, priorityTrace, nil, f.ID)
		}
	}
	if r.agent.executor.Has(tool.SearchEntities) {
		for _, m := range matches[:min(3, len(matches))] {
			if m.Name == "" {
				continue
			}
			s.AddLead(tool.SearchEntities, m.Name, "SANCTIONS HIT: "+m.Name, prioritySanctionsHit, nil, f.ID)
		}
	}
}

// hasLeadFor 是否已有以该名称为目标的线索（不论类型与状态）
func (r *run) hasLeadFor(name string) bool {
	for _, l := range r.sess.Leads {
		if strings.EqualFold(strings.TrimSpace(l.Target), strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

// learnNames 自然人姓名在发布时脱敏
func (r *run) learnNames(records []evidence.Record) {
	var names []string
	for _, e := range records {
		if e.IsPerson() && e.Name != "" {
			names = append(names, e.Name)
		}
	}
	if len(names) > 0 {
		r.harness.AddKnownNames(names...)
	}
}

// estimateConfidence 按结果质量粗略估计置信度
func estimateConfidence(matches, results, entities int) float64 {
	switch {
	case matches > 0:
		return 0.85
	case results > 0:
		return 0.7
	case entities > 0:
		return 0.6
	}
	return 0.4
}

// summarize 工具结果的可读摘要
func summarize(act action, p tool.Payload) string {
	switch res := p.(type) {
	case tool.SearchResult:
		return fmt.Sprintf("Entity search found %d results for '%s'", len(res.Entities), res.Query)
	case tool.ScreenResult:
		return fmt.Sprintf("Sanctions screening: %d matches across %d entities", len(res.Matches), res.Screened)
	case tool.OwnershipResult:
		return fmt.Sprintf("Ownership trace found %d entities (depth %d) for '%s'", len(res.Entities), res.MaxDepth, res.Target)
	case tool.MonitorResult:
		return fmt.Sprintf("Found %d news articles about '%s'", res.ArticleCount, res.EntityName)
	case tool.GraphResult:
		return fmt.Sprintf("Graph analysis: %s (%d nodes, %d edges, %d key players)", res.Algorithm, res.NodeCount, res.EdgeCount, len(res.KeyPlayers))
	case tool.ReportResult:
		return "Report generated: " + res.Title
	case tool.ConcludeResult:
		return "Concluded: " + res.Reason
	}
	return string(act.tool) + ": completed"
}
