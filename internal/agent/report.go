package agent

import (
	"context"
	"fmt"
	"strings"

	"osint-platform/internal/oracle"
	"osint-platform/internal/report"
	"osint-platform/internal/runtime/session"
	"osint-platform/internal/safety"
)

// report 先尝试 oracle 综述，失败时使用模板；输出总经过发布边界脱敏
func (r *run) report(ctx context.Context) {
	s := r.sess
	limitations := limitationsOf(s)

	text, source := "", "template"
	if r.canSynthesize(ctx) {
		out, cost, err := r.agent.oracle.Synthesize(ctx, r.brief())
		r.chargeOracle("report", cost)
		if err == nil && strings.TrimSpace(out) != "" {
			text, source = out, r.agent.oracle.Name()
			if len(limitations) > 0 {
				text = limitationBanner(limitations) + text
			}
		} else if err != nil {
			r.logger.Debug("报告综述失败，使用模板", "error", err)
		}
	}
	if text == "" {
		text = report.Markdown(templateDocument(s, limitations))
	}

	pubCtx := safety.WithMode(context.WithoutCancel(ctx), safety.ModeEnforcing)
	s.SetReport(r.harness.PublishText(pubCtx, "report", text))
	s.RecordReasoning(sourceSystem, "", fmt.Sprintf("Report generated by %s (PII scrubbed for publication).", source))
}

// canSynthesize 会话已取消、熔断或成本耗尽时不再调用 oracle
func (r *run) canSynthesize(ctx context.Context) bool {
	if ctx.Err() != nil || r.harness.Breaker().Open() {
		return false
	}
	s := r.sess
	return s.CostBudgetUSD <= 0 || s.RemainingUSD() > 0
}

func (r *run) brief() oracle.Brief {
	s := r.sess
	b := oracle.Brief{Goal: s.Goal, EntityCount: len(s.Entities), TurnsUsed: s.Turn, ToolsUsed: s.ToolsUsed()}
	for _, f := range s.Findings {
		b.Findings = append(b.Findings, fmt.Sprintf("[%s] (confidence: %.0f%%) %s", f.Source, f.Confidence*100, f.Summary))
	}
	list := s.EntityList()
	for _, e := range list[:min(30, len(list))] {
		b.Entities = append(b.Entities, fmt.Sprintf("[%s] %s", e.Schema, e.Name))
	}
	for _, l := range s.OpenLeads() {
		b.OpenLeads = append(b.OpenLeads, l.Description)
	}
	return b
}

// limitationsOf 强制结束时在报告中明确标注
func limitationsOf(s *session.Session) []string {
	c := s.Conclusion
	if c == nil {
		return nil
	}
	open := len(s.OpenLeads())
	var out []string
	if c.BudgetLimited {
		out = append(out, fmt.Sprintf("BUDGET-LIMITED: %s; %d open leads not pursued", c.Reason, open))
	}
	if c.PolicyLimited {
		out = append(out, fmt.Sprintf("POLICY-LIMITED: %s; %d open leads not pursued", c.Reason, open))
	}
	if c.Cancelled {
		out = append(out, "CANCELLED: "+c.Reason)
	}
	return out
}

func limitationBanner(lines []string) string {
	var b strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&b, "> **%s**\n", l)
	}
	b.WriteString("\n")
	return b.String()
}

// templateDocument 完全由会话状态组装的确定性报告
func templateDocument(s *session.Session, limitations []string) report.Document {
	d := report.Document{
		Title:         "Investigation: " + s.Goal,
		Goal:          s.Goal,
		Status:        string(s.Status),
		Limitations:   limitations,
		Methodology:   s.ToolsUsed(),
		TurnsUsed:     s.Turn,
		TurnBudget:    s.TurnBudget,
		CostUSD:       s.Cost.USD,
		CostBudgetUSD: s.CostBudgetUSD,
	}
	for _, f := range s.Findings {
		d.Findings = append(d.Findings, report.Finding{Source: f.Source, Summary: f.Summary, Confidence: f.Confidence})
	}
	for _, e := range s.EntityList() {
		d.Entities = append(d.Entities, report.Entity{Schema: e.Schema, Name: e.Name, Sources: e.Sources()})
	}
	for _, l := range s.OpenLeads() {
		d.OpenQuestions = append(d.OpenQuestions, fmt.Sprintf("%s (priority %.2f)", l.Description, l.Priority))
	}
	return d
}
