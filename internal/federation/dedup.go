package federation

import (
	"osint-platform/internal/evidence"
)

// DedupPolicy 去重策略：名称相似度阈值与来源优先级（决定合并后以谁为主记录）
type DedupPolicy struct {
	Threshold      float64
	SourcePriority []string
}

// DefaultThreshold 默认相似度阈值
const DefaultThreshold = 0.85

type group struct {
	merged  evidence.Record
	names   []string
	sources map[string]bool
}

// Deduplicate 合并重复记录。输入须已按确定顺序排列（来源优先级，再按来源内顺序）；
// 相同输入顺序总得到相同输出，与各数据源返回的先后无关。
//
// 规则：schema 同族；权威标识冲突时不合并，标识一致时直接合并；
// 否则名称相似度 >= Threshold 才合并。同一来源内的记录只在标识一致时合并。
// 多个候选组时取得分最高者，同分取先创建的组。
func Deduplicate(records []evidence.Record, threshold float64) []evidence.Record {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	var groups []*group
	for _, r := range records {
		best, bestScore := -1, 0.0
		for i, g := range groups {
			if !evidence.SameSchemaFamily(g.merged.Schema, r.Schema) {
				continue
			}
			var score float64
			switch evidence.CompareIdentifiers(g.merged, r) {
			case evidence.IDConflict:
				continue
			case evidence.IDMatch:
				score = 2
			default:
				if g.sources[r.Source] {
					continue
				}
				for _, n := range g.names {
					if s := evidence.Similarity(n, r.Name); s > score {
						score = s
					}
				}
				if score < threshold {
					continue
				}
			}
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			groups = append(groups, &group{
				merged:  r.Clone(),
				names:   []string{r.Name},
				sources: map[string]bool{r.Source: true},
			})
			continue
		}
		g := groups[best]
		g.merged = mergeInto(g.merged, r)
		g.names = append(g.names, r.Name)
		g.sources[r.Source] = true
	}
	out := make([]evidence.Record, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.merged)
	}
	return out
}

// mergeInto 属性并集、来源并集、置信度取最大；主记录的 ID / 名称 / schema 保持不变
func mergeInto(base evidence.Record, r evidence.Record) evidence.Record {
	out := base.Clone()
	evidence.MergeProperties(out.Properties, r.Properties)
	if r.Name != "" && r.Name != out.Name {
		evidence.MergeProperties(out.Properties, map[string][]string{"alias": {r.Name}})
	}
	prov := r.Provenance
	if len(prov) == 0 {
		prov = []evidence.Provenance{{Source: r.Source, SourceID: r.SourceID, Confidence: r.Confidence, RetrievedAt: r.RetrievedAt}}
	}
	out.Provenance = append(out.Provenance, prov...)
	if r.Confidence > out.Confidence {
		out.Confidence = r.Confidence
	}
	if r.RetrievedAt.After(out.RetrievedAt) {
		out.RetrievedAt = r.RetrievedAt
	}
	return out
}
