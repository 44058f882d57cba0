package safety

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osint-platform/pkg/config"
	"osint-platform/pkg/redaction"
)

func TestHarness_BreakerTripsAfterConsecutiveFailures(t *testing.T) {
	h := New(Policy{MaxConsecutiveFailures: 5, MaxCostUSD: 1})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		v := h.Check(ctx, "search_entities", map[string]any{"query": "x"}, 0)
		require.True(t, v.Allow, "call %d should be allowed", i+1)
		h.ReportFailure("search_entities", errors.New("source down"))
	}
	v := h.Check(ctx, "search_entities", map[string]any{"query": "x"}, 0)
	assert.False(t, v.Allow)
	assert.Contains(t, v.Reason, "circuit breaker open")
	assert.True(t, h.Breaker().Open())

	var breaker, blocks int
	for _, e := range h.Entries() {
		if e.CheckType == CheckBreaker {
			breaker++
		}
		if e.CheckType == CheckPre && e.Verdict == VerdictBlock {
			blocks++
		}
	}
	assert.Equal(t, 1, breaker)
	assert.Equal(t, 1, blocks)
	assert.Equal(t, 1, h.Summary().Blocks)
}

func TestHarness_SuccessResetsFailures(t *testing.T) {
	h := New(Policy{MaxConsecutiveFailures: 3})
	h.ReportFailure("t", nil)
	h.ReportFailure("t", nil)
	h.ReportSuccess("t")
	h.ReportFailure("t", nil)
	h.ReportFailure("t", nil)
	assert.False(t, h.Breaker().Open())
	h.ReportFailure("t", nil)
	assert.True(t, h.Breaker().Open())
	h.ReportSuccess("t")
	assert.True(t, h.Breaker().Open(), "success does not close an open breaker")
}

func TestHarness_DeniedAndAllowedTools(t *testing.T) {
	ctx := context.Background()
	h := New(Policy{DeniedTools: []string{"monitor_entity"}})
	assert.False(t, h.Check(ctx, "monitor_entity", nil, 0).Allow)
	assert.True(t, h.Check(ctx, "search_entities", nil, 0).Allow)

	h = New(Policy{AllowedTools: []string{"search_entities", "conclude"}, DeniedTools: []string{"conclude"}})
	assert.True(t, h.Check(ctx, "search_entities", nil, 0).Allow)
	v := h.Check(ctx, "screen_sanctions", nil, 0)
	assert.False(t, v.Allow)
	assert.Contains(t, v.Reason, "allowed_tools")
	v = h.Check(ctx, "conclude", nil, 0)
	assert.False(t, v.Allow)
	assert.Contains(t, v.Reason, "denied")
}

func TestHarness_PIIInArgsIsObservedNotBlocked(t *testing.T) {
	h := New(Policy{})
	v := h.Check(context.Background(), "search_entities", map[string]any{"query": "jane.doe@example.com"}, 0)
	assert.True(t, v.Allow)
	require.Len(t, v.Observations, 1)
	assert.Contains(t, v.Observations[0], "EMAIL")
}

func TestHarness_CostBudget(t *testing.T) {
	ctx := context.Background()
	h := New(Policy{MaxCostUSD: 0.10})
	assert.True(t, h.Check(ctx, "search_entities", nil, 0.05).Allow)
	h.AddCost(0.08)
	v := h.Check(ctx, "search_entities", nil, 0.05)
	assert.False(t, v.Allow)
	assert.Contains(t, v.Reason, "exceeds remaining budget")
	h.AddCost(0.03)
	assert.True(t, h.Breaker().Open())
	assert.InDelta(t, 0.11, h.Summary().Breaker.CostUSD, 1e-9)
}

func TestHarness_PublishIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := New(Policy{})
	h.AddKnownNames("Ivan Petrov")
	in := map[string]any{
		"summary": "Contact Ivan Petrov at ivan@example.org or 555-123-4567",
		"nested":  []any{"SSN 123-45-6789", 42},
	}
	first := h.Publish(ctx, "report", in)
	out := first.(map[string]interface{})
	summary := out["summary"].(string)
	assert.NotContains(t, summary, "Ivan Petrov")
	assert.NotContains(t, summary, "ivan@example.org")
	assert.Contains(t, summary, redaction.Mask(redaction.KindEmail))
	assert.Contains(t, out["nested"].([]interface{})[0], redaction.Mask(redaction.KindSSN))

	second := h.Publish(ctx, "report", first)
	assert.Equal(t, first, second)

	entries := h.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, VerdictScrubbed, entries[0].Verdict)
	assert.Equal(t, VerdictClean, entries[1].Verdict)
	assert.Equal(t, ModeEnforcing, entries[0].Mode)
}

func TestHarness_PublishAdjacentPII(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"card then phone", "Card 4111 1111 1111 1111 555-123-4567 on file", "Card [REDACTED:CARD] [REDACTED:PHONE] on file"},
		{"email then card", "x@acme.test 5500-0000-0000-0004", "[REDACTED:EMAIL] [REDACTED:CARD]"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := New(Policy{})
			first := h.PublishText(ctx, "report", c.in)
			assert.Equal(t, c.want, first)
			assert.NotContains(t, first, "4111")

			second := h.PublishText(ctx, "report", first)
			assert.Equal(t, first, second)
			entries := h.Entries()
			require.Len(t, entries, 2)
			assert.Equal(t, VerdictScrubbed, entries[0].Verdict)
			assert.Equal(t, VerdictClean, entries[1].Verdict)
		})
	}
}

func TestHarness_PublishFieldPolicy(t *testing.T) {
	h := New(Policy{Redaction: redaction.PolicyConfig{
		Enable:   true,
		Policies: []redaction.EventPolicyConfig{{Kind: "session_export", Fields: []redaction.FieldMaskConfig{{Path: "goal", Mode: redaction.RedactionModeRemove}}}},
	}})
	out, err := h.PublishJSON(context.Background(), "session_export", map[string]any{"goal": "secret goal", "turn": 3})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "secret goal")
	assert.Contains(t, string(out), `"turn":3`)
}

func TestHarness_PublishText(t *testing.T) {
	h := New(Policy{RedactionTerms: []string{"Maria Lopez"}})
	out := h.PublishText(context.Background(), "report", "Director Maria Lopez signed.")
	assert.Equal(t, "Director "+redaction.Mask(redaction.KindName)+" signed.", out)
	assert.Equal(t, 1, h.Summary().Scrubbed)
}

func TestModeFromContext(t *testing.T) {
	assert.Equal(t, ModeAudit, ModeFrom(context.Background()))
	assert.Equal(t, ModeEnforcing, ModeFrom(WithMode(context.Background(), ModeEnforcing)))
}

func TestHarness_Restore(t *testing.T) {
	h := New(Policy{MaxConsecutiveFailures: 5})
	h.Check(context.Background(), "search_entities", nil, 0)
	entries := h.Entries()

	r := New(Policy{MaxConsecutiveFailures: 5})
	r.Restore(entries, BreakerState{ConsecutiveFailures: 4, CostUSD: 0.2})
	assert.Len(t, r.Entries(), 1)
	assert.Equal(t, 4, r.Breaker().Failures())
	r.ReportFailure("x", nil)
	assert.True(t, r.Breaker().Open())
	// 恢复后追加的条目接在原链之后
	require.NoError(t, VerifyTrail(r.Entries()))
}

func TestVerifyTrail_DetectsTampering(t *testing.T) {
	h := New(Policy{DeniedTools: []string{"monitor_news"}})
	ctx := context.Background()
	h.Check(ctx, "search_entities", nil, 0)
	h.Check(ctx, "monitor_news", nil, 0)
	h.PublishText(ctx, "report", "nothing sensitive")

	entries := h.Entries()
	require.Len(t, entries, 3)
	require.NoError(t, VerifyTrail(entries))
	assert.Equal(t, entries[0].Hash, entries[1].PrevHash)

	forged := append([]Entry(nil), entries...)
	forged[1].Verdict = VerdictAllow
	assert.Error(t, VerifyTrail(forged))

	dropped := []Entry{entries[0], entries[2]}
	assert.Error(t, VerifyTrail(dropped))
}

func TestPolicyFromConfig_MergesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	yaml := strings.Join([]string{
		"denied_tools: [monitor_entity]",
		"max_consecutive_failures: 2",
		"redaction_terms: [John Smith]",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	p, err := PolicyFromConfig(config.SafetyConfig{MaxConsecutiveFailures: 5, MaxCostUSD: 1, DeniedTools: []string{"conclude"}, PolicyFile: path})
	require.NoError(t, err)
	assert.Equal(t, 2, p.MaxConsecutiveFailures)
	assert.Equal(t, 1.0, p.MaxCostUSD)
	assert.ElementsMatch(t, []string{"conclude", "monitor_entity"}, p.DeniedTools)
	assert.Equal(t, []string{"John Smith"}, p.RedactionTerms)

	_, err = PolicyFromConfig(config.SafetyConfig{PolicyFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
