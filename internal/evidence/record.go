// Package evidence 定义各数据源统一产出的证据记录与名称相似度
package evidence

import (
	"sort"
	"strings"
	"time"
)

// 常用 schema
const (
	SchemaPerson       = "Person"
	SchemaCompany      = "Company"
	SchemaOrganization = "Organization"
	SchemaLegalEntity  = "LegalEntity"
	SchemaArticle      = "Article"
)

// SecondaryIDKeys 可用于判定“同一实体”的权威标识属性
var SecondaryIDKeys = []string{"registrationNumber", "leiCode", "companyNumber", "cik", "taxNumber", "icijId"}

// Provenance 记录来源
type Provenance struct {
	Source      string    `json:"source"`
	SourceID    string    `json:"source_id"`
	Confidence  float64   `json:"confidence"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

// Record 证据记录；产出后不再修改，合并时生成新记录
type Record struct {
	ID          string              `json:"id"`
	Schema      string              `json:"schema"`
	Name        string              `json:"name"`
	Properties  map[string][]string `json:"properties"`
	Source      string              `json:"source"`
	Confidence  float64             `json:"confidence"`
	RetrievedAt time.Time           `json:"retrieved_at"`
	SourceID    string              `json:"source_id"`
	Provenance  []Provenance        `json:"provenance"`
}

// New 构造记录并补齐自身来源；confidence 截断到 [0,1]
func New(source, sourceID, schema, name string, props map[string][]string, confidence float64, at time.Time) Record {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	if props == nil {
		props = map[string][]string{}
	}
	return Record{
		ID:          source + ":" + sourceID,
		Schema:      schema,
		Name:        name,
		Properties:  props,
		Source:      source,
		Confidence:  confidence,
		RetrievedAt: at,
		SourceID:    sourceID,
		Provenance:  []Provenance{{Source: source, SourceID: sourceID, Confidence: confidence, RetrievedAt: at}},
	}
}

// Clone 深拷贝
func (r Record) Clone() Record {
	out := r
	out.Properties = make(map[string][]string, len(r.Properties))
	for k, v := range r.Properties {
		out.Properties[k] = append([]string(nil), v...)
	}
	out.Provenance = append([]Provenance(nil), r.Provenance...)
	return out
}

// Sources 贡献该记录的全部来源名（去重，保持首次出现顺序）
func (r Record) Sources() []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range r.Provenance {
		if !seen[p.Source] {
			seen[p.Source] = true
			out = append(out, p.Source)
		}
	}
	if len(out) == 0 && r.Source != "" {
		out = append(out, r.Source)
	}
	return out
}

// First 属性首值
func (r Record) First(key string) string {
	if v := r.Properties[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// HasTopic 是否带有 topic（如 sanction、pep、crime）
func (r Record) HasTopic(topic string) bool {
	for _, t := range r.Properties["topics"] {
		if strings.EqualFold(t, topic) || strings.HasPrefix(strings.ToLower(t), strings.ToLower(topic)+".") {
			return true
		}
	}
	return false
}

// IsOrganization Company / Organization / LegalEntity
func (r Record) IsOrganization() bool {
	switch r.Schema {
	case SchemaCompany, SchemaOrganization, SchemaLegalEntity:
		return true
	}
	return false
}

// IsPerson 是否为自然人
func (r Record) IsPerson() bool { return r.Schema == SchemaPerson }

// Identifiers 归一化后的权威标识：key -> 值集合
func (r Record) Identifiers() map[string][]string {
	out := map[string][]string{}
	for _, k := range SecondaryIDKeys {
		for _, v := range r.Properties[k] {
			if n := normalizeID(v); n != "" {
				out[k] = append(out[k], n)
			}
		}
	}
	return out
}

func normalizeID(v string) string {
	var b strings.Builder
	for _, c := range strings.ToUpper(v) {
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		}
	}
	return strings.TrimLeft(b.String(), "0")
}

// SameSchemaFamily 两个 schema 是否可合并（组织类之间互通）
func SameSchemaFamily(a, b string) bool {
	if a == b {
		return true
	}
	org := func(s string) bool {
		return s == SchemaCompany || s == SchemaOrganization || s == SchemaLegalEntity
	}
	return org(a) && org(b)
}

// IDRelation 两条记录的权威标识关系
type IDRelation int

const (
	IDUnknown  IDRelation = iota // 没有共同的标识键
	IDMatch                      // 至少一个共同键取值相交
	IDConflict                   // 共同键取值全不相交
)

// CompareIdentifiers 比较两条记录的权威标识
func CompareIdentifiers(a, b Record) IDRelation {
	ia, ib := a.Identifiers(), b.Identifiers()
	shared := false
	for k, va := range ia {
		vb, ok := ib[k]
		if !ok {
			continue
		}
		shared = true
		for _, x := range va {
			for _, y := range vb {
				if x == y {
					return IDMatch
				}
			}
		}
	}
	if shared {
		return IDConflict
	}
	return IDUnknown
}

// MergeProperties 属性并集，值去重并保持首次出现顺序
func MergeProperties(dst map[string][]string, src map[string][]string) {
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		existing := dst[k]
		seen := make(map[string]bool, len(existing))
		for _, v := range existing {
			seen[v] = true
		}
		for _, v := range src[k] {
			if !seen[v] {
				seen[v] = true
				existing = append(existing, v)
			}
		}
		dst[k] = existing
	}
}
