package builtin

import (
	"context"

	"osint-platform/internal/federation"
	"osint-platform/internal/tool"
)

// NewSearchTool search_entities：联邦实体检索
func NewSearchTool(s Searcher) tool.Handler {
	return tool.Bind(tool.Spec{
		Name:        tool.SearchEntities,
		Description: "Federated search across sanctions lists, corporate registries, offshore leaks and LEI data. Returns deduplicated entities with provenance.",
		Parameters: tool.Schema{
			Type: "object",
			Properties: map[string]tool.SchemaProperty{
				"query":       {Type: "string", Description: "Entity name or search term"},
				"entity_type": {Type: "string", Description: "Filter by schema", Enum: []string{"Person", "Company", "Any"}},
				"sources":     {Type: "array", Description: "Limit to specific sources; empty means all"},
				"limit":       {Type: "integer", Description: "Max results per source"},
			},
			Required: []string{"query"},
		},
	}, func(ctx context.Context, a tool.SearchArgs) (tool.SearchResult, error) {
		res, err := s.Search(ctx, a.Query, federation.SearchOptions{Sources: a.Sources, Limit: a.Limit, Kind: a.EntityType})
		if err != nil {
			return tool.SearchResult{}, err
		}
		if err := allFailed("tool.search_entities", res); err != nil {
			return tool.SearchResult{}, err
		}
		entities := res.Records
		if a.Limit > 0 && len(entities) > a.Limit {
			entities = entities[:a.Limit]
		}
		return tool.SearchResult{
			Query:        res.Query,
			EntityType:   a.EntityType,
			Entities:     entities,
			SourceCounts: res.SourceCounts,
			Errors:       res.Errors,
			CacheHits:    res.CacheHits,
			ElapsedMS:    res.Elapsed.Milliseconds(),
		}, nil
	})
}
