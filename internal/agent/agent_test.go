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

package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osint-platform/internal/evidence"
	"osint-platform/internal/federation"
	"osint-platform/internal/model/llm"
	"osint-platform/internal/oracle"
	"osint-platform/internal/ratecache"
	"osint-platform/internal/runtime/session"
	"osint-platform/internal/safety"
	"osint-platform/internal/tool"
	"osint-platform/internal/tool/builtin"
	"osint-platform/pkg/config"
	"osint-platform/pkg/errors"
)

const goal = "Acme Holdings"

var at = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func company(name string) evidence.Record {
	return evidence.New("gleif", strings.ToLower(strings.ReplaceAll(name, " ", "-")), evidence.SchemaCompany, name, nil, 0.8, at)
}

func person(name string) evidence.Record {
	return evidence.New("opensanctions", strings.ToLower(strings.ReplaceAll(name, " ", "-")), evidence.SchemaPerson, name, nil, 0.7, at)
}

// fakeTools 可控的工具处理器；未设置的函数返回空结果
type fakeTools struct {
	search  func(a tool.SearchArgs) (tool.SearchResult, error)
	screen  func(a tool.ScreenArgs) (tool.ScreenResult, error)
	trace   func(a tool.TraceArgs) (tool.OwnershipResult, error)
	monitor func(a tool.MonitorArgs) (tool.MonitorResult, error) // 为 nil 时不注册
}

func (f fakeTools) executor() *tool.Executor {
	reg := tool.NewRegistry()
	reg.Register(tool.Bind(tool.Spec{Name: tool.SearchEntities}, func(ctx context.Context, a tool.SearchArgs) (tool.SearchResult, error) {
		if f.search == nil {
			return tool.SearchResult{Query: a.Query}, nil
		}
		return f.search(a)
	}))
	reg.Register(tool.Bind(tool.Spec{Name: tool.ScreenSanctions}, func(ctx context.Context, a tool.ScreenArgs) (tool.ScreenResult, error) {
		if f.screen == nil {
			return tool.ScreenResult{Screened: len(a.Entities), Threshold: a.Threshold}, nil
		}
		return f.screen(a)
	}))
	reg.Register(tool.Bind(tool.Spec{Name: tool.TraceOwnership}, func(ctx context.Context, a tool.TraceArgs) (tool.OwnershipResult, error) {
		if f.trace == nil {
			return tool.OwnershipResult{Target: a.EntityName, MaxDepth: a.MaxDepth}, nil
		}
		return f.trace(a)
	}))
	if f.monitor != nil {
		reg.Register(tool.Bind(tool.Spec{Name: tool.MonitorEntity}, func(ctx context.Context, a tool.MonitorArgs) (tool.MonitorResult, error) {
			return f.monitor(a)
		}))
	}
	reg.Register(builtin.NewGraphTool())
	reg.Register(builtin.NewReportTool())
	reg.Register(builtin.NewConcludeTool())
	return tool.NewExecutor(reg, nil)
}

// goalSearch 对目标查询返回给定实体，其他查询为空
func goalSearch(records ...evidence.Record) func(a tool.SearchArgs) (tool.SearchResult, error) {
	return func(a tool.SearchArgs) (tool.SearchResult, error) {
		if a.Query == goal {
			return tool.SearchResult{Query: a.Query, Entities: records}, nil
		}
		return tool.SearchResult{Query: a.Query}, nil
	}
}

// scriptedOracle 按回合给出决策
type scriptedOracle struct {
	decide     func(in oracle.Context) (oracle.Decision, error)
	report     string
	synthCalls int
}

func (o *scriptedOracle) Name() string { return "scripted" }

func (o *scriptedOracle) Decide(ctx context.Context, in oracle.Context) (oracle.Decision, error) {
	return o.decide(in)
}

func (o *scriptedOracle) Synthesize(ctx context.Context, b oracle.Brief) (string, oracle.Cost, error) {
	o.synthCalls++
	if o.report == "" {
		return "", oracle.Cost{}, oracle.ErrUnavailable
	}
	return o.report, oracle.Cost{}, nil
}

// searchEachTurn 每回合检索一个新查询
func searchEachTurn(cost float64) func(in oracle.Context) (oracle.Decision, error) {
	return func(in oracle.Context) (oracle.Decision, error) {
		return oracle.Decision{
			Tool:      tool.SearchEntities,
			Args:      map[string]any{"query": fmt.Sprintf("subsidiary %d", in.Turn)},
			Rationale: "broaden the search",
			Cost:      oracle.Cost{Model: "m", InputTokens: 100, OutputTokens: 10, USD: cost},
		}, nil
	}
}

// proseClient 永远返回不符合约定的文本
type proseClient struct{ calls int }

func (c *proseClient) Complete(ctx context.Context, _ []llm.Message, _ llm.GenerateOptions) (*llm.Response, error) {
	c.calls++
	return &llm.Response{Text: "I think we should search more", Model: "m", Provider: "fake", InputTokens: 50, OutputTokens: 8, CostUSD: 0.0001}, nil
}

func (c *proseClient) Model() string    { return "m" }
func (c *proseClient) Provider() string { return "fake" }

func noInitialSearch(c config.AgentConfig) config.AgentConfig {
	off := false
	c.InitialSearch = &off
	return c
}

func traceHas(s *session.Session, source string, name tool.Name) bool {
	for _, e := range s.Trace {
		if e.Source == source && e.Tool == name {
			return true
		}
	}
	return false
}

func traceContains(s *session.Session, text string) bool {
	for _, e := range s.Trace {
		if strings.Contains(e.Rationale, text) {
			return true
		}
	}
	return false
}

func TestInvestigate_NonJSONOracleFallsBackToHeuristic(t *testing.T) {
	tools := fakeTools{search: goalSearch(company("Acme Holdings Ltd"), person("Jane Roe"))}
	client := &proseClient{}
	a := New(tools.executor(),
		WithOracle(oracle.NewLLMOracle(client, nil)),
		WithConfig(config.AgentConfig{MaxTurns: 1}),
	)

	s, err := a.Investigate(context.Background(), goal)
	require.NoError(t, err)

	require.Len(t, s.ToolHistory, 2)
	call := s.ToolHistory[1]
	assert.Equal(t, tool.ScreenSanctions, call.Tool)
	assert.Equal(t, "Acme Holdings Ltd", call.Args["entity_name"])
	assert.Empty(t, call.Error)
	assert.True(t, traceHas(s, sourceHeuristic, tool.ScreenSanctions))
	assert.True(t, traceContains(s, "Oracle decision unavailable"))

	require.NotEmpty(t, s.Cost.Calls)
	assert.Equal(t, "decide", s.Cost.Calls[0].Purpose)
	assert.GreaterOrEqual(t, client.calls, 1)

	for _, l := range s.Leads {
		if l.Type == tool.ScreenSanctions && l.Target == "Acme Holdings Ltd" {
			assert.Equal(t, session.LeadClosed, l.Status)
			assert.Equal(t, "resolved", l.ClosedReason)
		}
	}
	assert.Equal(t, session.StatusConcluded, s.Status)
}

func TestInvestigate_TurnBudgetForcesConclusion(t *testing.T) {
	tools := fakeTools{search: goalSearch(company("Acme Holdings Ltd"))}
	orc := &scriptedOracle{decide: searchEachTurn(0)}
	a := New(tools.executor(), WithOracle(orc), WithConfig(config.AgentConfig{MaxTurns: 15}))

	s, err := a.Investigate(context.Background(), goal)
	require.NoError(t, err)

	assert.Equal(t, session.StatusConcluded, s.Status)
	assert.Equal(t, 15, s.Turn)
	require.NotNil(t, s.Conclusion)
	assert.True(t, s.Conclusion.BudgetLimited)
	assert.Len(t, s.OpenLeads(), 2)
	assert.Len(t, s.ToolHistory, 16)
	assert.Contains(t, s.Report, "BUDGET-LIMITED")
	assert.Contains(t, s.Report, "2 open leads not pursued")
	assert.True(t, s.Summary().Limited)
	assert.Equal(t, 1, orc.synthCalls)
}

func TestInvestigate_BreakerTripsAfterConsecutiveFailures(t *testing.T) {
	tools := fakeTools{search: func(a tool.SearchArgs) (tool.SearchResult, error) {
		return tool.SearchResult{}, errors.New(errors.CodeSourceUnavailable, "test", "all sources down")
	}}
	var h *safety.Harness
	a := New(tools.executor(),
		WithOracle(&scriptedOracle{decide: searchEachTurn(0)}),
		WithConfig(noInitialSearch(config.AgentConfig{MaxTurns: 15})),
		WithHarnessFactory(func() *safety.Harness {
			h = safety.New(safety.Policy{MaxConsecutiveFailures: 5})
			return h
		}),
	)

	s, err := a.Investigate(context.Background(), goal)
	require.NoError(t, err)

	assert.Equal(t, 5, s.Turn)
	require.Len(t, s.ToolHistory, 5)
	for _, c := range s.ToolHistory {
		assert.Equal(t, string(errors.CodeSourceUnavailable), c.Code)
	}
	require.NotNil(t, s.Conclusion)
	assert.True(t, s.Conclusion.PolicyLimited)
	assert.Equal(t, session.StatusConcluded, s.Status)
	assert.Contains(t, s.Report, "POLICY-LIMITED")

	// 第六次检查无论工具与参数都被拦截
	v := h.Check(context.Background(), string(tool.GenerateReport), map[string]any{"title": "x"}, 0)
	assert.True(t, v.Blocked())

	assert.True(t, s.Breaker.Open)
	breakerEntries := 0
	for _, e := range s.Audit {
		if e.CheckType == safety.CheckBreaker {
			breakerEntries++
		}
	}
	assert.Equal(t, 1, breakerEntries)
}

func TestInvestigate_CostNeverGrowsAfterBreaker(t *testing.T) {
	orc := &scriptedOracle{decide: searchEachTurn(0.3), report: strings.Repeat("synthesized ", 20)}
	a := New(fakeTools{}.executor(),
		WithOracle(orc),
		WithConfig(noInitialSearch(config.AgentConfig{MaxTurns: 15, CostBudgetUSD: 1.0})),
	)

	s, err := a.Investigate(context.Background(), goal)
	require.NoError(t, err)

	assert.Equal(t, 4, s.Turn)
	assert.Len(t, s.Cost.Calls, 4)
	assert.InDelta(t, 1.2, s.Cost.USD, 1e-9)
	assert.True(t, s.Conclusion.BudgetLimited)
	assert.Equal(t, 0, orc.synthCalls)
	last := s.ToolHistory[len(s.ToolHistory)-1]
	assert.True(t, last.Blocked)
	assert.LessOrEqual(t, s.Turn, s.TurnBudget)
}

func TestInvestigate_InitialNewsCheck(t *testing.T) {
	tests := []struct {
		name     string
		enabled  bool
		articles int
		finding  bool
	}{
		{name: "articles found", enabled: true, articles: 3, finding: true},
		{name: "no articles", enabled: true, articles: 0},
		{name: "disabled", enabled: false, articles: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var asked []string
			tools := fakeTools{
				search: goalSearch(company("Acme Holdings Ltd")),
				monitor: func(a tool.MonitorArgs) (tool.MonitorResult, error) {
					asked = append(asked, a.EntityName+"|"+a.Timespan)
					return tool.MonitorResult{EntityName: a.EntityName, Registered: true, ArticleCount: tt.articles}, nil
				},
			}
			enabled := tt.enabled
			a := New(tools.executor(), WithConfig(config.AgentConfig{MaxTurns: 1, InitialNewsCheck: &enabled}))

			s, err := a.Investigate(context.Background(), goal)
			require.NoError(t, err)

			var news []session.Finding
			for _, f := range s.Findings {
				if f.Source == string(tool.MonitorEntity) {
					news = append(news, f)
				}
			}
			if !tt.enabled {
				assert.Empty(t, asked)
				assert.Empty(t, news)
				return
			}
			require.NotEmpty(t, asked)
			assert.Equal(t, "Acme Holdings|7d", asked[0])
			require.GreaterOrEqual(t, len(s.ToolHistory), 2)
			assert.Equal(t, tool.SearchEntities, s.ToolHistory[0].Tool)
			assert.Equal(t, tool.MonitorEntity, s.ToolHistory[1].Tool)
			assert.Equal(t, 0, s.ToolHistory[1].Turn)
			assert.True(t, traceContains(s, "Initial news check for: Acme Holdings"))
			if !tt.finding {
				assert.Empty(t, news)
				return
			}
			require.Len(t, news, 1)
			assert.Equal(t, "Found 3 recent news articles about 'Acme Holdings'", news[0].Summary)
			assert.InDelta(t, 0.5, news[0].Confidence, 1e-9)
		})
	}
}

func TestInvestigate_PaidToolBlockedByRemainingBudget(t *testing.T) {
	tools := fakeTools{search: goalSearch(company("Acme Holdings Ltd"), company("Globex Trading Ltd"))}
	a := New(tools.executor(), WithConfig(config.AgentConfig{
		MaxTurns:      3,
		CostBudgetUSD: 1.0,
		ToolCostUSD:   map[string]float64{string(tool.ScreenSanctions): 0.7},
	}))

	s, err := a.Investigate(context.Background(), goal)
	require.NoError(t, err)

	var charged, blocked int
	for _, c := range s.ToolHistory {
		if c.Tool != tool.ScreenSanctions {
			continue
		}
		if c.Blocked {
			blocked++
			assert.Contains(t, c.Error, "exceeds remaining budget")
		} else {
			charged++
		}
	}
	assert.Equal(t, 1, charged)
	assert.Equal(t, 1, blocked)
	assert.InDelta(t, 0.7, s.Cost.USD, 1e-9)
	require.Len(t, s.Cost.Calls, 1)
	assert.Equal(t, "tool", s.Cost.Calls[0].Purpose)
	assert.Equal(t, string(tool.ScreenSanctions), s.Cost.Calls[0].Model)
}

func TestInvestigate_DuplicateOracleCallFallsBack(t *testing.T) {
	tools := fakeTools{search: goalSearch(company("Acme Holdings Ltd"))}
	orc := &scriptedOracle{decide: func(in oracle.Context) (oracle.Decision, error) {
		return oracle.Decision{Tool: tool.SearchEntities, Args: map[string]any{"query": "acme holdings", "limit": float64(20)}}, nil
	}}
	a := New(tools.executor(), WithOracle(orc), WithConfig(config.AgentConfig{MaxTurns: 2}))

	s, err := a.Investigate(context.Background(), goal)
	require.NoError(t, err)

	var used []tool.Name
	for _, c := range s.ToolHistory {
		used = append(used, c.Tool)
	}
	assert.Equal(t, []tool.Name{tool.SearchEntities, tool.ScreenSanctions, tool.TraceOwnership}, used)
	assert.True(t, traceContains(s, "duplicate"))
}

func TestInvestigate_OracleConcludeAndSynthesis(t *testing.T) {
	tools := fakeTools{search: goalSearch(company("Acme Holdings Ltd"))}
	orc := &scriptedOracle{
		decide: func(in oracle.Context) (oracle.Decision, error) {
			assert.Contains(t, in.State, "INVESTIGATION GOAL: Acme Holdings")
			assert.NotEmpty(t, in.Tools)
			return oracle.Decision{Tool: tool.Conclude, Args: map[string]any{"reason": "goal answered"}}, nil
		},
		report: "# Acme Holdings\n\nAcme Holdings Ltd is a registered company with no sanctions exposure found in any configured source.",
	}
	a := New(tools.executor(), WithOracle(orc))

	s, err := a.Investigate(context.Background(), goal)
	require.NoError(t, err)

	assert.Equal(t, 1, s.Turn)
	assert.Equal(t, "goal answered", s.Conclusion.Reason)
	assert.False(t, s.Conclusion.Limited())
	assert.Contains(t, s.Report, "no sanctions exposure")
	assert.NotContains(t, s.Report, "LIMITED")
}

func TestInvestigate_UnknownToolFallsBack(t *testing.T) {
	tools := fakeTools{search: goalSearch(company("Acme Holdings Ltd"))}
	orc := &scriptedOracle{decide: func(in oracle.Context) (oracle.Decision, error) {
		return oracle.Decision{Tool: tool.MonitorEntity, Args: map[string]any{"entity_name": "Acme"}}, nil
	}}
	a := New(tools.executor(), WithOracle(orc), WithConfig(config.AgentConfig{MaxTurns: 1}))

	s, err := a.Investigate(context.Background(), goal)
	require.NoError(t, err)
	assert.Equal(t, tool.ScreenSanctions, s.ToolHistory[1].Tool)
	assert.True(t, traceContains(s, "unregistered tool"))
}

func TestInvestigate_CancelledBetweenTurns(t *testing.T) {
	tools := fakeTools{search: goalSearch(company("Acme Holdings Ltd"))}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := New(tools.executor())

	s, err := a.Investigate(ctx, goal)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Turn)
	assert.True(t, s.Conclusion.Cancelled)
	assert.Equal(t, session.StatusConcluded, s.Status)
	assert.Contains(t, s.Report, "CANCELLED")
	// 初始检索在取消前已完成
	require.Len(t, s.ToolHistory, 1)
	assert.Empty(t, s.ToolHistory[0].Error)
}

func TestInvestigate_AutosaveThroughManager(t *testing.T) {
	m := session.NewManager(session.NewMemoryStore(), session.Budget{Turns: 5, CostUSD: 1})
	a := New(fakeTools{}.executor(), WithManager(m), WithConfig(config.AgentConfig{Autosave: true}))

	s, err := a.Investigate(context.Background(), goal)
	require.NoError(t, err)

	loaded, err := m.Load(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Status, loaded.Status)
	assert.Equal(t, s.Report, loaded.Report)
	assert.Len(t, loaded.Audit, len(s.Audit))
}

// checkpointStore 记下第一次保存的运行中快照
type checkpointStore struct {
	*session.MemoryStore
	first []byte
}

func (c *checkpointStore) Save(ctx context.Context, s *session.Session) error {
	if s.Running() && c.first == nil {
		data, err := s.Export()
		if err != nil {
			return err
		}
		c.first = data
	}
	return c.MemoryStore.Save(ctx, s)
}

func TestResume_FromMidRunCheckpoint(t *testing.T) {
	store := &checkpointStore{MemoryStore: session.NewMemoryStore()}
	m := session.NewManager(store, session.Budget{Turns: 5, CostUSD: 1})
	a := New(fakeTools{}.executor(), WithManager(m), WithConfig(config.AgentConfig{Autosave: true}))

	s := session.New(goal, 5, 1.0)
	s.AddLead(tool.ScreenSanctions, "Acme Holdings Ltd", "Screen Acme Holdings Ltd against sanctions", 0.8, nil, "")
	_, err := a.Resume(context.Background(), s)
	require.NoError(t, err)
	require.NotNil(t, store.first)

	cp, err := session.Import(store.first)
	require.NoError(t, err)
	assert.True(t, cp.Running())
	assert.Equal(t, 1, cp.Turn)
	require.Len(t, cp.ToolHistory, 1)

	out, err := New(fakeTools{}.executor()).Resume(context.Background(), cp)
	require.NoError(t, err)
	assert.Equal(t, session.StatusConcluded, out.Status)
	assert.Equal(t, tool.ScreenSanctions, out.ToolHistory[0].Tool)
	assert.Greater(t, out.Turn, cp.Turn)
}

func TestResume_ContinuesFromExport(t *testing.T) {
	s := session.New(goal, 5, 1.0)
	s.AddLead(tool.ScreenSanctions, "Acme Holdings Ltd", "Screen Acme Holdings Ltd against sanctions", 0.8, nil, "")
	data, err := s.Export()
	require.NoError(t, err)
	restored, err := session.Import(data)
	require.NoError(t, err)

	a := New(fakeTools{}.executor())
	out, err := a.Resume(context.Background(), restored)
	require.NoError(t, err)

	assert.Equal(t, session.StatusConcluded, out.Status)
	require.NotEmpty(t, out.ToolHistory)
	assert.Equal(t, tool.ScreenSanctions, out.ToolHistory[0].Tool)
	assert.Equal(t, "No open leads remaining", out.Conclusion.Reason)
	assert.NotEmpty(t, out.Report)

	_, err = a.Resume(context.Background(), out)
	assert.Error(t, err)
}

func TestHeuristic_RunsGraphAnalysisOnce(t *testing.T) {
	var records []evidence.Record
	for i := 0; i < graphMinEntities; i++ {
		records = append(records, company(fmt.Sprintf("Shell Company %d", i)))
	}
	tools := fakeTools{search: goalSearch(records...)}
	a := New(tools.executor(), WithConfig(config.AgentConfig{MaxTurns: 4}))

	s, err := a.Investigate(context.Background(), goal)
	require.NoError(t, err)

	graphCalls := 0
	for _, c := range s.ToolHistory {
		if c.Tool == tool.AnalyzeGraph {
			graphCalls++
			assert.NotContains(t, c.Args, "entities")
		}
	}
	assert.Equal(t, 1, graphCalls)
}

func TestSignature_IgnoresInjectedAndEmptyArgs(t *testing.T) {
	a := signature(tool.SearchEntities, map[string]any{"query": "Acme", "limit": 20, "entities": []int{1}})
	b := signature(tool.SearchEntities, map[string]any{"query": " acme ", "limit": float64(20), "sources": ""})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, signature(tool.ScreenSanctions, map[string]any{"query": "Acme", "limit": 20}))
}

func TestEstimateConfidence(t *testing.T) {
	assert.Equal(t, 0.85, estimateConfidence(1, 0, 0))
	assert.Equal(t, 0.7, estimateConfidence(0, 3, 3))
	assert.Equal(t, 0.6, estimateConfidence(0, 0, 2))
	assert.Equal(t, 0.4, estimateConfidence(0, 0, 0))
}

// 走完整的联邦检索与内置工具
func TestInvestigate_EndToEndWithFederation(t *testing.T) {
	ctrl := ratecache.NewController()
	t.Cleanup(func() { _ = ctrl.Close() })
	fed := federation.New(ctrl, federation.Config{Timeout: time.Second, DefaultLimit: 10, Dedup: federation.DedupPolicy{Threshold: 0.85}}, nil)

	require.NoError(t, fed.Register(&federation.AdapterFunc{
		SourceName: "registry",
		SourceTags: []string{federation.TagRegistry},
		Fn: func(ctx context.Context, q federation.Query) ([]evidence.Record, error) {
			if !strings.Contains(strings.ToLower(q.Text), "acme") {
				return nil, nil
			}
			return []evidence.Record{
				evidence.New("registry", "R1", evidence.SchemaCompany, "Acme Holdings Ltd", map[string][]string{"director": {"John Smith"}}, 0.8, at),
				evidence.New("registry", "P1", evidence.SchemaPerson, "John Smith", nil, 0.7, at),
			}, nil
		},
	}))
	require.NoError(t, fed.Register(&federation.AdapterFunc{
		SourceName: "sanctions",
		SourceTags: []string{federation.TagSanctions},
		Fn: func(ctx context.Context, q federation.Query) ([]evidence.Record, error) {
			if !strings.Contains(strings.ToLower(q.Text), "acme") {
				return nil, nil
			}
			return []evidence.Record{
				evidence.New("sanctions", "S1", evidence.SchemaCompany, "Acme Holdings Ltd", map[string][]string{"topics": {"sanction"}}, 0.9, at),
			}, nil
		},
	}))

	reg := tool.NewRegistry()
	builtin.RegisterBuiltin(reg, builtin.Deps{Search: fed})
	a := New(tool.NewExecutor(reg, nil), WithConfig(config.AgentConfig{MaxTurns: 10}))

	s, err := a.Investigate(context.Background(), goal)
	require.NoError(t, err)

	assert.Equal(t, session.StatusConcluded, s.Status)
	assert.NotEmpty(t, s.Findings)
	assert.NotEmpty(t, s.Entities)

	hit := false
	for _, l := range s.Leads {
		if l.Priority == prioritySanctionsHit && l.Type == tool.SearchEntities {
			hit = true
		}
	}
	assert.True(t, hit, "sanctions match should open a high priority lead")
	assert.NotEmpty(t, s.Report)
	assert.NotContains(t, s.Report, "John Smith")
	for i := 1; i < len(s.Trace); i++ {
		assert.GreaterOrEqual(t, s.Trace[i].Turn, s.Trace[i-1].Turn)
	}
}
