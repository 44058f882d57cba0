package sources

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"osint-platform/internal/evidence"
	"osint-platform/internal/federation"
	"osint-platform/internal/ratecache"
)

// minStaticScore 静态数据源的最低匹配分
const minStaticScore = 0.34

// FixtureRecord 夹具文件中的一条记录
type FixtureRecord struct {
	ID         string              `yaml:"id"`
	Schema     string              `yaml:"schema"`
	Name       string              `yaml:"name"`
	Confidence float64             `yaml:"confidence"`
	Properties map[string][]string `yaml:"properties"`
}

// Fixture 夹具文件结构
type Fixture struct {
	Tags    []string        `yaml:"tags"`
	Records []FixtureRecord `yaml:"records"`
}

// StaticSource 从 YAML 夹具读取的离线数据源，用于演示与测试
type StaticSource struct {
	name    string
	policy  ratecache.Policy
	tags    []string
	timeout time.Duration
	records []FixtureRecord
	now     func() time.Time
}

// LoadFixture 读取并解析夹具文件
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取夹具失败: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture 解析夹具内容
func ParseFixture(data []byte) (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("解析夹具失败: %w", err)
	}
	for i, r := range fx.Records {
		if strings.TrimSpace(r.Name) == "" {
			return nil, fmt.Errorf("fixture record %d: name is required", i)
		}
	}
	return &fx, nil
}

// NewStaticSource 由夹具构造数据源；extraTags 追加在夹具标签之后
func NewStaticSource(name string, fx *Fixture, policy ratecache.Policy, timeout time.Duration, extraTags ...string) *StaticSource {
	s := &StaticSource{name: name, policy: policy, timeout: timeout, now: time.Now}
	if fx != nil {
		s.records = fx.Records
		s.tags = append(s.tags, fx.Tags...)
	}
	s.tags = append(s.tags, extraTags...)
	return s
}

func (s *StaticSource) Name() string             { return s.name }
func (s *StaticSource) Policy() ratecache.Policy { return s.policy }
func (s *StaticSource) Tags() []string           { return s.tags }
func (s *StaticSource) Timeout() time.Duration   { return s.timeout }

// Query 按名称与别名相似度匹配夹具记录，按分数降序返回
func (s *StaticSource) Query(ctx context.Context, q federation.Query) ([]evidence.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	type scored struct {
		rec   evidence.Record
		score float64
	}
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	var hits []scored
	for i, fr := range s.records {
		schema := fr.Schema
		if schema == "" {
			schema = evidence.SchemaLegalEntity
		}
		if q.Kind != "" && q.Kind != "Any" && !evidence.SameSchemaFamily(q.Kind, schema) {
			continue
		}
		best := evidence.Similarity(q.Text, fr.Name)
		for _, alias := range fr.Properties["alias"] {
			if sc := evidence.Similarity(q.Text, alias); sc > best {
				best = sc
			}
		}
		if best < minStaticScore && !strings.Contains(strings.ToLower(fr.Name), needle) {
			continue
		}
		id := fr.ID
		if id == "" {
			id = fmt.Sprintf("%d", i)
		}
		conf := fr.Confidence
		if conf == 0 {
			conf = 0.7
		}
		props := make(map[string][]string, len(fr.Properties))
		for k, v := range fr.Properties {
			props[k] = append([]string(nil), v...)
		}
		hits = append(hits, scored{rec: evidence.New(s.name, id, schema, fr.Name, props, conf, s.now()), score: best})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	out := make([]evidence.Record, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.rec)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}
