package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"osint-platform/internal/oracle"
	"osint-platform/internal/runtime/session"
	"osint-platform/internal/tool"
)

// graphMinEntities 启发式触发图分析的实体数下限
const graphMinEntities = 8

// action 本回合要执行的动作
type action struct {
	tool      tool.Name
	args      map[string]any
	rationale string
	source    string
	leadID    string
}

// decide 先问 oracle；不可用、输出无效、工具未注册或重复调用时回退到启发式
func (r *run) decide(ctx context.Context) action {
	s := r.sess
	in := oracle.Context{
		Goal:         s.Goal,
		State:        s.ContextForOracle(r.agent.cfg.ContextChars),
		Tools:        r.agent.executor.Catalog(),
		Turn:         s.Turn,
		TurnBudget:   s.TurnBudget,
		RemainingUSD: s.RemainingUSD(),
	}
	d, err := r.agent.oracle.Decide(ctx, in)
	r.chargeOracle("decide", d.Cost)

	switch {
	case err != nil:
		if !errors.Is(err, oracle.ErrUnavailable) {
			err = fmt.Errorf("%w: %v", oracle.ErrUnavailable, err)
		}
		if _, stub := r.agent.oracle.(oracle.Stub); !stub {
			s.RecordReasoning(sourceSystem, "", "Oracle decision unavailable, falling back to heuristic: "+err.Error())
		}
	case d.Tool == tool.Conclude:
		return action{tool: tool.Conclude, args: d.Args, rationale: concludeReason(d), source: sourceOf(d, r.agent.oracle)}
	case !r.agent.executor.Has(d.Tool):
		s.RecordReasoning(sourceSystem, d.Tool, fmt.Sprintf("Oracle chose unregistered tool %s. Falling back.", d.Tool))
	default:
		act := action{tool: d.Tool, args: d.Args, rationale: d.Rationale, source: sourceOf(d, r.agent.oracle)}
		if act.args == nil {
			act.args = map[string]any{}
		}
		if r.duplicate(act) {
			s.RecordReasoning(sourceSystem, d.Tool, fmt.Sprintf("Oracle suggested duplicate call: %s. Falling back.", d.Tool))
			break
		}
		if l, ok := s.FindOpenLead(act.tool, targetOf(act.args)); ok {
			act.leadID = l.ID
		}
		return act
	}
	return r.heuristic()
}

func sourceOf(d oracle.Decision, o oracle.Oracle) string {
	if d.Source != "" {
		return d.Source
	}
	return o.Name()
}

func concludeReason(d oracle.Decision) string {
	if reason, ok := d.Args["reason"].(string); ok && reason != "" {
		return reason
	}
	if d.Rationale != "" {
		return d.Rationale
	}
	return "oracle concluded the investigation"
}

// heuristic 确定性回退：足够多实体时跑一次图分析，否则跟进最高优先级线索
func (r *run) heuristic() action {
	s := r.sess
	turn, remaining := s.Turn, s.RemainingTurns()

	if r.agent.executor.Has(tool.AnalyzeGraph) && !r.used(tool.AnalyzeGraph) &&
		len(s.Entities) >= graphMinEntities && (remaining <= 3 || turn >= s.TurnBudget/2) {
		return action{
			tool:      tool.AnalyzeGraph,
			args:      map[string]any{"algorithm": tool.AlgoFull},
			rationale: fmt.Sprintf("Accumulated %d entities, running network analysis", len(s.Entities)),
			source:    sourceHeuristic,
		}
	}

	for _, l := range s.OpenLeads() {
		if !r.agent.executor.Has(l.Type) {
			s.CloseLead(l.ID, "unsupported")
			continue
		}
		act := action{
			tool:      l.Type,
			args:      argsForLead(l),
			rationale: "Following lead: " + l.Description,
			source:    sourceHeuristic,
			leadID:    l.ID,
		}
		if r.duplicate(act) {
			s.CloseLead(l.ID, "duplicate")
			continue
		}
		return act
	}
	return action{tool: tool.Conclude, rationale: "No open leads remaining", source: sourceHeuristic}
}

// argsForLead 线索类型到固定参数的映射
func argsForLead(l session.Lead) map[string]any {
	if len(l.Args) > 0 {
		out := make(map[string]any, len(l.Args))
		for k, v := range l.Args {
			out[k] = v
		}
		return out
	}
	switch l.Type {
	case tool.ScreenSanctions:
		return map[string]any{"entity_name": l.Target, "threshold": 0.6}
	case tool.TraceOwnership:
		return map[string]any{"entity_name": l.Target, "max_depth": 3}
	case tool.MonitorEntity:
		return map[string]any{"entity_name": l.Target, "timespan": "24h"}
	case tool.AnalyzeGraph:
		return map[string]any{"algorithm": tool.AlgoFull}
	default:
		return map[string]any{"query": l.Target}
	}
}

// targetOf 动作参数中的目标名
func targetOf(args map[string]any) string {
	for _, k := range []string{"entity_name", "query"} {
		if v, ok := args[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func (r *run) used(name tool.Name) bool {
	for _, c := range r.sess.ToolHistory {
		if c.Tool == name {
			return true
		}
	}
	return false
}

// ignoredArgs 不参与重复判断的参数
var ignoredArgs = map[string]bool{"entities": true, "entity_ids": true, "format": true, "title": true}

// duplicate 同一工具与相同关键参数是否已调用过；报告与结束总是放行
func (r *run) duplicate(act action) bool {
	if act.tool == tool.Conclude || act.tool == tool.GenerateReport {
		return false
	}
	sig := signature(act.tool, act.args)
	for _, c := range r.sess.ToolHistory {
		if signature(c.Tool, c.Args) == sig {
			return true
		}
	}
	return false
}

func signature(name tool.Name, args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k, v := range args {
		if ignoredArgs[k] || v == nil || fmt.Sprint(v) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(string(name))
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%s", k, strings.ToLower(strings.TrimSpace(fmt.Sprint(args[k]))))
	}
	return b.String()
}
