package oracle

import (
	"fmt"
	"sort"
	"strings"

	"osint-platform/internal/tool"
)

const decideSystemPrompt = `You direct an open-source investigation for a journalist by choosing the next tool call from the evidence gathered so far.

Guidelines:
- Trace ownership and money: corporate control chains expose hidden links.
- Corroborate across sources before treating anything as established.
- Pursue the strongest leads first; sanctions hits and ownership anomalies come before broad searches.
- Conclude once the findings answer the goal or the remaining leads are weak.
- Report gaps as gaps. Never invent results.

Reply with exactly one JSON object and nothing else.`

const synthesizeSystemPrompt = "You write reports for investigative journalists. Be factual and well structured. Never state anything the findings do not support."

func toolsDescription(specs []tool.Spec) string {
	var b strings.Builder
	for _, s := range specs {
		params := make([]string, 0, len(s.Parameters.Properties))
		for name := range s.Parameters.Properties {
			params = append(params, name)
		}
		sort.Strings(params)
		fmt.Fprintf(&b, "  - %s: %s\n    Parameters: %s\n", s.Name, s.Description, strings.Join(params, ", "))
	}
	return b.String()
}

func decidePrompt(in Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "GOAL: %s\n", in.Goal)
	fmt.Fprintf(&b, "TURN: %d of %d", in.Turn, in.TurnBudget)
	if in.RemainingUSD > 0 {
		fmt.Fprintf(&b, " (budget left: $%.4f)", in.RemainingUSD)
	}
	b.WriteString("\n\n")
	b.WriteString(in.State)
	b.WriteString("\n\nAVAILABLE TOOLS:\n")
	b.WriteString(toolsDescription(in.Tools))
	b.WriteString(`
Choose the SINGLE next action. Reply with only this JSON object, no markdown and no commentary:
{"tool": "<tool_name>", "args": {<parameters>}, "reasoning": "<one sentence>"}

Rules:
- Fill the largest gap in what is known
- Prefer the highest-priority open lead
- Use "conclude" when the findings answer the goal
- Never repeat a call with identical arguments
- Every call spends budget`)
	return b.String()
}

func synthesizePrompt(br Brief) string {
	list := func(items []string, empty string) string {
		if len(items) == 0 {
			return empty
		}
		return "- " + strings.Join(items, "\n- ")
	}
	return fmt.Sprintf(`Turn these investigation findings into a clear, structured report.

GOAL: %s

FINDINGS (%d):
%s

KEY ENTITIES (%d):
%s

OPEN LEADS:
%s

STATS:
- Turns used: %d
- Tools used: %s

Write markdown with the sections:
## Summary
Two or three sentences on what was found.

## Key Findings
The most important results with their confidence.

## Entity Network
Who or what was identified and how they connect.

## Open Questions
What is unresolved and which leads were not pursued.

## Methodology
The tools and sources used.

Report only what the findings support and flag low-confidence items.`,
		br.Goal,
		len(br.Findings), list(br.Findings, "No findings."),
		br.EntityCount, list(br.Entities, "No entities identified."),
		list(br.OpenLeads, "None. All leads resolved."),
		br.TurnsUsed, strings.Join(br.ToolsUsed, ", "))
}
