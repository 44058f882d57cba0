package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdown_FindingsByConfidence(t *testing.T) {
	out := Markdown(Document{
		Goal:   "Acme Holdings",
		Status: "concluded",
		Findings: []Finding{
			{Source: "search_entities", Summary: "low", Confidence: 0.4},
			{Source: "screen_sanctions", Summary: "high", Confidence: 0.85},
			{Source: "trace_ownership", Summary: "mid", Confidence: 0.7},
		},
		Limitations: []string{"Budget-limited: turn budget exhausted"},
		OpenQuestions: []string{"Trace ownership of Acme Ltd"},
		TurnsUsed:     15,
		TurnBudget:    15,
	})
	hi := strings.Index(out, "high")
	mid := strings.Index(out, "mid")
	lo := strings.Index(out, "low")
	assert.True(t, hi < mid && mid < lo, out)
	assert.Contains(t, out, "# Investigation: Acme Holdings")
	assert.Contains(t, out, "> **Budget-limited: turn budget exhausted**")
	assert.Contains(t, out, "- Trace ownership of Acme Ltd")
	assert.Contains(t, out, "Turns used: 15 of 15.")
}

func TestMarkdown_Empty(t *testing.T) {
	out := Markdown(Document{Title: "Empty"})
	assert.Contains(t, out, "No findings.")
	assert.Contains(t, out, "No entities identified.")
	assert.Contains(t, out, "None, all leads resolved.")
}
