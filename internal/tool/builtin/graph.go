package builtin

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"osint-platform/internal/evidence"
	"osint-platform/internal/tool"
	"osint-platform/pkg/errors"
)

var errInvalid = errors.ErrInvalidArg

// sharedKeys 两个实体取值相同即相连的属性
var sharedKeys = []string{"address", "registrationNumber", "leiCode", "companyNumber", "icijId", "cik"}

// refKeys 取值指向另一实体名称的属性
var refKeys = []string{"parent", "parentCompany", "owner", "shareholder", "ultimateParent", "director", "officer"}

// maxKeyPlayers 返回的关键节点上限
const maxKeyPlayers = 10

// NewGraphTool analyze_graph：基于共享标识与名称引用构建实体网络
func NewGraphTool() tool.Handler {
	return tool.Bind(tool.Spec{
		Name:        tool.AnalyzeGraph,
		Description: "Network analysis over the entities gathered so far: connected components, key players by degree, shared identifiers and addresses.",
		Parameters: tool.Schema{
			Type: "object",
			Properties: map[string]tool.SchemaProperty{
				"algorithm":  {Type: "string", Enum: []string{tool.AlgoFull, tool.AlgoComponents, tool.AlgoKeyPlayers, tool.AlgoShared}},
				"entity_ids": {Type: "array", Description: "Restrict to these entity ids; empty means all session entities"},
			},
		},
	}, func(ctx context.Context, a tool.GraphArgs) (tool.GraphResult, error) {
		if len(a.Entities) == 0 {
			return tool.GraphResult{}, fmt.Errorf("no entities provided for graph analysis: %w", errInvalid)
		}
		return analyze(a.Algorithm, a.Entities), nil
	})
}

type graph struct {
	ids   []string
	names map[string]string
	adj   map[string]map[string]bool
	edges int
}

func (g *graph) link(a, b string) {
	if a == b || g.adj[a][b] {
		return
	}
	g.adj[a][b] = true
	g.adj[b][a] = true
	g.edges++
}

func analyze(algo string, entities []evidence.Record) tool.GraphResult {
	g := &graph{names: map[string]string{}, adj: map[string]map[string]bool{}}
	byName := map[string][]string{}
	for _, r := range entities {
		if _, dup := g.adj[r.ID]; dup {
			continue
		}
		g.ids = append(g.ids, r.ID)
		g.names[r.ID] = r.Name
		g.adj[r.ID] = map[string]bool{}
		n := evidence.NormalizeName(r.Name)
		byName[n] = append(byName[n], r.ID)
	}
	sort.Strings(g.ids)

	type kv struct{ key, value string }
	holders := map[kv][]string{}
	var order []kv
	for _, r := range entities {
		for _, key := range sharedKeys {
			for _, v := range r.Properties[key] {
				k := kv{key, strings.ToLower(strings.TrimSpace(v))}
				if k.value == "" {
					continue
				}
				if _, ok := holders[k]; !ok {
					order = append(order, k)
				}
				if !contains(holders[k], r.ID) {
					holders[k] = append(holders[k], r.ID)
				}
			}
		}
		for _, key := range refKeys {
			for _, v := range r.Properties[key] {
				for _, other := range byName[evidence.NormalizeName(v)] {
					g.link(r.ID, other)
				}
			}
		}
	}
	var shared []tool.SharedValue
	for _, k := range order {
		ids := holders[k]
		if len(ids) < 2 {
			continue
		}
		for i := range ids {
			for j := i + 1; j < len(ids); j++ {
				g.link(ids[i], ids[j])
			}
		}
		sorted := append([]string(nil), ids...)
		sort.Strings(sorted)
		shared = append(shared, tool.SharedValue{Property: k.key, Value: k.value, Entities: sorted})
	}

	out := tool.GraphResult{Algorithm: algo, NodeCount: len(g.ids), EdgeCount: g.edges}
	if algo == tool.AlgoFull || algo == tool.AlgoComponents {
		out.Components = g.components()
	}
	if algo == tool.AlgoFull || algo == tool.AlgoKeyPlayers {
		out.KeyPlayers = g.keyPlayers()
	}
	if algo == tool.AlgoFull || algo == tool.AlgoShared {
		out.Shared = shared
	}
	return out
}

// components 连通分量；按规模降序，同规模按首个 id 排序
func (g *graph) components() [][]string {
	seen := map[string]bool{}
	var comps [][]string
	for _, id := range g.ids {
		if seen[id] {
			continue
		}
		var comp []string
		stack := []string{id}
		seen[id] = true
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, n)
			for m := range g.adj[n] {
				if !seen[m] {
					seen[m] = true
					stack = append(stack, m)
				}
			}
		}
		sort.Strings(comp)
		comps = append(comps, comp)
	}
	sort.SliceStable(comps, func(i, j int) bool {
		if len(comps[i]) != len(comps[j]) {
			return len(comps[i]) > len(comps[j])
		}
		return comps[i][0] < comps[j][0]
	})
	return comps
}

// keyPlayers 度中心性前若干名，度为 0 的节点不计入
func (g *graph) keyPlayers() []tool.Centrality {
	var out []tool.Centrality
	denom := float64(len(g.ids) - 1)
	for _, id := range g.ids {
		d := len(g.adj[id])
		if d == 0 {
			continue
		}
		out = append(out, tool.Centrality{ID: id, Name: g.names[id], Degree: d, Score: float64(d) / denom})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Degree > out[j].Degree })
	if len(out) > maxKeyPlayers {
		out = out[:maxKeyPlayers]
	}
	return out
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
