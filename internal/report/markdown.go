// Package report 把调查状态渲染为 markdown 报告
package report

import (
	"fmt"
	"sort"
	"strings"
)

// Finding 报告中的一条发现
type Finding struct {
	Source     string
	Summary    string
	Confidence float64
}

// Entity 报告中的实体
type Entity struct {
	Schema  string
	Name    string
	Sources []string
}

// Document 报告内容
type Document struct {
	Title         string
	Goal          string
	Status        string
	Limitations   []string
	Summary       string
	Findings      []Finding
	Entities      []Entity
	OpenQuestions []string
	Methodology   []string
	TurnsUsed     int
	TurnBudget    int
	CostUSD       float64
	CostBudgetUSD float64
}

// maxEntities 报告中列出的实体上限
const maxEntities = 50

// Markdown 渲染报告；发现按置信度降序（同分保持原顺序）
func Markdown(d Document) string {
	var b strings.Builder
	title := d.Title
	if title == "" {
		title = "Investigation: " + d.Goal
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if d.Goal != "" {
		fmt.Fprintf(&b, "**Goal:** %s\n\n", d.Goal)
	}
	if d.Status != "" {
		fmt.Fprintf(&b, "**Status:** %s\n\n", d.Status)
	}
	for _, l := range d.Limitations {
		fmt.Fprintf(&b, "> **%s**\n", l)
	}
	if len(d.Limitations) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("## Summary\n\n")
	if d.Summary != "" {
		b.WriteString(d.Summary)
	} else {
		fmt.Fprintf(&b, "%d findings, %d entities, %d open questions.", len(d.Findings), len(d.Entities), len(d.OpenQuestions))
	}
	b.WriteString("\n\n")

	b.WriteString("## Key Findings\n\n")
	if len(d.Findings) == 0 {
		b.WriteString("No findings.\n")
	}
	findings := append([]Finding(nil), d.Findings...)
	sort.SliceStable(findings, func(i, j int) bool { return findings[i].Confidence > findings[j].Confidence })
	for _, f := range findings {
		fmt.Fprintf(&b, "- [%s] (confidence: %.0f%%) %s\n", f.Source, f.Confidence*100, f.Summary)
	}
	b.WriteString("\n")

	b.WriteString("## Entity Network\n\n")
	if len(d.Entities) == 0 {
		b.WriteString("No entities identified.\n")
	}
	for i, e := range d.Entities {
		if i == maxEntities {
			fmt.Fprintf(&b, "- ... %d more\n", len(d.Entities)-maxEntities)
			break
		}
		if len(e.Sources) > 0 {
			fmt.Fprintf(&b, "- [%s] %s (%s)\n", e.Schema, e.Name, strings.Join(e.Sources, ", "))
		} else {
			fmt.Fprintf(&b, "- [%s] %s\n", e.Schema, e.Name)
		}
	}
	b.WriteString("\n")

	b.WriteString("## Open Questions\n\n")
	if len(d.OpenQuestions) == 0 {
		b.WriteString("None, all leads resolved.\n")
	}
	for _, q := range d.OpenQuestions {
		fmt.Fprintf(&b, "- %s\n", q)
	}
	b.WriteString("\n")

	b.WriteString("## Methodology\n\n")
	if len(d.Methodology) > 0 {
		fmt.Fprintf(&b, "Tools used: %s.\n", strings.Join(d.Methodology, ", "))
	}
	if d.TurnBudget > 0 {
		fmt.Fprintf(&b, "Turns used: %d of %d.\n", d.TurnsUsed, d.TurnBudget)
	}
	if d.CostBudgetUSD > 0 {
		fmt.Fprintf(&b, "Oracle cost: $%.4f of $%.2f.\n", d.CostUSD, d.CostBudgetUSD)
	}
	return b.String()
}
