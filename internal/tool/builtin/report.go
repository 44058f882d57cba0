package builtin

import (
	"context"

	"osint-platform/internal/report"
	"osint-platform/internal/tool"
)

// NewReportTool generate_report：由实体列表生成 markdown 报告
func NewReportTool() tool.Handler {
	return tool.Bind(tool.Spec{
		Name:        tool.GenerateReport,
		Description: "Generate a markdown report of the entities gathered so far.",
		Parameters: tool.Schema{
			Type: "object",
			Properties: map[string]tool.SchemaProperty{
				"title":  {Type: "string", Description: "Report title"},
				"format": {Type: "string", Enum: []string{"markdown"}},
			},
		},
	}, func(ctx context.Context, a tool.ReportArgs) (tool.ReportResult, error) {
		doc := report.Document{Title: a.Title}
		for _, r := range a.Entities {
			doc.Entities = append(doc.Entities, report.Entity{Schema: r.Schema, Name: r.Name, Sources: r.Sources()})
		}
		return tool.ReportResult{Title: a.Title, Format: a.Format, Report: report.Markdown(doc)}, nil
	})
}
