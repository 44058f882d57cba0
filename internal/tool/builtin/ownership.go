package builtin

import (
	"context"
	"strings"

	"osint-platform/internal/evidence"
	"osint-platform/internal/federation"
	"osint-platform/internal/tool"
)

// 所有权与任职关系属性
var (
	ownerKeys   = []string{"parent", "parentCompany", "owner", "shareholder", "ultimateParent"}
	officerKeys = []string{"director", "officer"}
)

// maxOwnershipQueries 单次追踪的检索次数上限
const maxOwnershipQueries = 8

// perLevelEntities 每层取用的记录数
const perLevelEntities = 10

// NewOwnershipTool trace_ownership：沿 parent/owner 属性逐层检索所有权链
func NewOwnershipTool(s Searcher) tool.Handler {
	return tool.Bind(tool.Spec{
		Name:        tool.TraceOwnership,
		Description: "Trace corporate ownership chains from a target entity across registries. Returns entities and ownership links.",
		Parameters: tool.Schema{
			Type: "object",
			Properties: map[string]tool.SchemaProperty{
				"entity_name":      {Type: "string", Description: "Company or person name to trace from"},
				"max_depth":        {Type: "integer", Description: "Maximum ownership chain depth, default 3"},
				"include_officers": {Type: "boolean", Description: "Include directors and officers"},
			},
			Required: []string{"entity_name"},
		},
	}, func(ctx context.Context, a tool.TraceArgs) (tool.OwnershipResult, error) {
		return traceOwnership(ctx, s, a)
	})
}

type traceItem struct {
	name  string
	depth int
}

func traceOwnership(ctx context.Context, s Searcher, a tool.TraceArgs) (tool.OwnershipResult, error) {
	out := tool.OwnershipResult{Target: a.EntityName, MaxDepth: a.MaxDepth, Errors: map[string]string{}}
	opts := federation.SearchOptions{Kind: evidence.SchemaCompany, Limit: perLevelEntities}
	if hasTagged(s, federation.TagRegistry) {
		opts.Tags = []string{federation.TagRegistry}
	}
	seenName := map[string]bool{evidence.NormalizeName(a.EntityName): true}
	seenID := map[string]bool{}
	queue := []traceItem{{name: a.EntityName, depth: 1}}
	queries := 0
	for len(queue) > 0 && queries < maxOwnershipQueries {
		if ctx.Err() != nil {
			break
		}
		it := queue[0]
		queue = queue[1:]
		queries++
		res, err := s.Search(ctx, it.name, opts)
		if err == nil && it.depth == 1 {
			err = allFailed("tool.trace_ownership", res)
		}
		if err != nil {
			if it.depth == 1 {
				return tool.OwnershipResult{}, err
			}
			continue
		}
		for src, code := range res.Errors {
			out.Errors[src] = code
		}
		recs := res.Records
		if len(recs) > perLevelEntities {
			recs = recs[:perLevelEntities]
		}
		for _, r := range recs {
			if !seenID[r.ID] {
				seenID[r.ID] = true
				out.Entities = append(out.Entities, r)
			}
			for _, key := range ownerKeys {
				for _, v := range r.Properties[key] {
					if skipRef(v) {
						continue
					}
					out.Links = append(out.Links, tool.OwnershipLink{From: r.Name, To: v, Relation: key, Depth: it.depth})
					n := evidence.NormalizeName(v)
					if it.depth < a.MaxDepth && !seenName[n] {
						seenName[n] = true
						queue = append(queue, traceItem{name: v, depth: it.depth + 1})
					}
				}
			}
			if *a.IncludeOfficers {
				for _, key := range officerKeys {
					for _, v := range r.Properties[key] {
						if !skipRef(v) {
							out.Links = append(out.Links, tool.OwnershipLink{From: v, To: r.Name, Relation: key, Depth: it.depth})
						}
					}
				}
			}
		}
	}
	return out, nil
}

// skipRef 跳过空值与链接型引用
func skipRef(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") || strings.HasPrefix(v, "{")
}
