package builtin

import (
	"context"
	"sort"

	"osint-platform/internal/federation"
	"osint-platform/internal/tool"
	"osint-platform/pkg/errors"
)

// NewScreenTool screen_sanctions：按名称筛查制裁与观察名单
func NewScreenTool(s Searcher) tool.Handler {
	return tool.Bind(tool.Spec{
		Name:        tool.ScreenSanctions,
		Description: "Screen one or more names against sanctions, PEP and watchlist sources. Returns match scores and datasets.",
		Parameters: tool.Schema{
			Type: "object",
			Properties: map[string]tool.SchemaProperty{
				"entity_name": {Type: "string", Description: "Name to screen"},
				"entity_type": {Type: "string", Description: "Schema of the name", Enum: []string{"Person", "Company", "Any"}},
				"entities":    {Type: "array", Description: "Batch of {name, schema} objects"},
				"threshold":   {Type: "number", Description: "Minimum match score (0-1), default 0.7"},
			},
		},
	}, func(ctx context.Context, a tool.ScreenArgs) (tool.ScreenResult, error) {
		op := "tool.screen_sanctions"
		if !hasTagged(s, federation.TagSanctions) {
			return tool.ScreenResult{}, errors.New(errors.CodeSourceUnavailable, op, "no sanctions sources configured")
		}
		out := tool.ScreenResult{Screened: len(a.Entities), Threshold: a.Threshold, Errors: map[string]string{}}
		failed := 0
		seen := map[string]bool{}
		for _, t := range a.Entities {
			kind := t.Schema
			if kind == "Any" {
				kind = ""
			}
			res, err := s.Screen(ctx, t.Name, a.Threshold, kind)
			if err != nil {
				return tool.ScreenResult{}, err
			}
			out.CacheHits += res.CacheHits
			for src, code := range res.Errors {
				out.Errors[src] = code
			}
			if len(res.Sources) > 0 && len(res.Errors) == len(res.Sources) {
				failed++
				continue
			}
			for _, m := range res.Matches {
				key := t.Name + "|" + m.Record.ID
				if seen[key] {
					continue
				}
				seen[key] = true
				out.Matches = append(out.Matches, tool.SanctionMatch{
					Query:    t.Name,
					Name:     m.Record.Name,
					Score:    m.Score,
					Source:   m.Record.Source,
					Topics:   m.Record.Properties["topics"],
					Datasets: m.Record.Properties["datasets"],
					Entity:   m.Record,
				})
			}
		}
		if failed == len(a.Entities) {
			return tool.ScreenResult{}, errors.New(errors.CodeSourceUnavailable, op, "all sanctions sources failed")
		}
		sort.SliceStable(out.Matches, func(i, j int) bool { return out.Matches[i].Score > out.Matches[j].Score })
		enrichMatches(ctx, s, out.Matches)
		return out, nil
	})
}

// enrichTopMatches 命中后补充登记等其他来源信息的条数
const enrichTopMatches = 3

// enrichMatches 用其他数据源补全得分最高的命中；补全失败不影响筛查结果
func enrichMatches(ctx context.Context, s Searcher, matches []tool.SanctionMatch) {
	for i := range matches[:min(len(matches), enrichTopMatches)] {
		rec, _, err := s.Enrich(ctx, matches[i].Entity)
		if err != nil {
			continue
		}
		matches[i].Entity = rec
	}
}
