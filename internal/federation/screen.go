package federation

import (
	"context"
	"sort"

	"osint-platform/internal/evidence"
	"osint-platform/pkg/errors"
)

// Match 制裁筛查命中
type Match struct {
	Record evidence.Record `json:"record"`
	Score  float64         `json:"score"`
}

// ScreenResult 制裁筛查结果
type ScreenResult struct {
	Name      string            `json:"name"`
	Threshold float64           `json:"threshold"`
	Matches   []Match           `json:"matches"`
	Errors    map[string]string `json:"errors"`
	Sources   []string          `json:"sources"`
	CacheHits int               `json:"cache_hits"`
}

// Hit 是否存在命中
func (s *ScreenResult) Hit() bool { return len(s.Matches) > 0 }

// Screen 只查询 sanctions 标签的数据源，返回名称（含别名）相似度达到阈值的记录，按得分降序
func (f *Federation) Screen(ctx context.Context, name string, threshold float64, kind string) (*ScreenResult, error) {
	if threshold <= 0 || threshold > 1 {
		return nil, errors.Newf(errors.CodeInvalidArguments, "federation.screen", "threshold %.2f out of (0,1]", threshold)
	}
	res, err := f.Search(ctx, name, SearchOptions{Tags: []string{TagSanctions}, Kind: kind})
	if err != nil {
		return nil, err
	}
	out := &ScreenResult{
		Name:      res.Query,
		Threshold: threshold,
		Errors:    res.Errors,
		Sources:   res.Sources,
		CacheHits: res.CacheHits,
	}
	for _, r := range res.Records {
		score := evidence.Similarity(name, r.Name)
		for _, alias := range r.Properties["alias"] {
			if s := evidence.Similarity(name, alias); s > score {
				score = s
			}
		}
		if score >= threshold {
			out.Matches = append(out.Matches, Match{Record: r, Score: score})
		}
	}
	sort.SliceStable(out.Matches, func(i, j int) bool { return out.Matches[i].Score > out.Matches[j].Score })
	return out, nil
}

// Enrich 用记录名称查询其他数据源，把同一实体的记录合并进来
func (f *Federation) Enrich(ctx context.Context, rec evidence.Record) (evidence.Record, *Result, error) {
	have := map[string]bool{}
	for _, s := range rec.Sources() {
		have[s] = true
	}
	var others []string
	for _, s := range f.Sources() {
		if !have[s] {
			others = append(others, s)
		}
	}
	if len(others) == 0 {
		return rec, &Result{Query: rec.Name, SourceCounts: map[string]int{}, Errors: map[string]string{}}, nil
	}
	res, err := f.Search(ctx, rec.Name, SearchOptions{Sources: others, Kind: rec.Schema})
	if err != nil {
		return rec, nil, err
	}
	merged := Deduplicate(append([]evidence.Record{rec}, res.Records...), f.cfg.Dedup.Threshold)
	return merged[0], res, nil
}
