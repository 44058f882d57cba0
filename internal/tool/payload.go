package tool

import (
	"osint-platform/internal/evidence"
)

// SearchResult search_entities 结果
type SearchResult struct {
	Query        string            `json:"query"`
	EntityType   string            `json:"entity_type,omitempty"`
	Entities     []evidence.Record `json:"entities"`
	SourceCounts map[string]int    `json:"source_counts"`
	Errors       map[string]string `json:"errors,omitempty"`
	CacheHits    int               `json:"cache_hits"`
	ElapsedMS    int64             `json:"elapsed_ms"`
}

func (SearchResult) Tool() Name { return SearchEntities }

// SanctionMatch 单条制裁命中
type SanctionMatch struct {
	Query    string          `json:"query"`
	Name     string          `json:"name"`
	Score    float64         `json:"score"`
	Source   string          `json:"source"`
	Topics   []string        `json:"topics,omitempty"`
	Datasets []string        `json:"datasets,omitempty"`
	Entity   evidence.Record `json:"entity"`
}

// ScreenResult screen_sanctions 结果
type ScreenResult struct {
	Screened  int               `json:"screened_count"`
	Threshold float64           `json:"threshold"`
	Matches   []SanctionMatch   `json:"matches"`
	Errors    map[string]string `json:"errors,omitempty"`
	CacheHits int               `json:"cache_hits"`
}

func (ScreenResult) Tool() Name { return ScreenSanctions }

// OwnershipLink 所有权链上的一条边
type OwnershipLink struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Relation string `json:"relation"`
	Depth    int    `json:"depth"`
}

// OwnershipResult trace_ownership 结果
type OwnershipResult struct {
	Target   string            `json:"target"`
	MaxDepth int               `json:"max_depth"`
	Entities []evidence.Record `json:"entities"`
	Links    []OwnershipLink   `json:"links"`
	Errors   map[string]string `json:"errors,omitempty"`
}

func (OwnershipResult) Tool() Name { return TraceOwnership }

// MonitorResult monitor_entity 结果
type MonitorResult struct {
	EntityName    string            `json:"entity_name"`
	EntityType    string            `json:"entity_type,omitempty"`
	Registered    bool              `json:"monitoring_registered"`
	AlertTypes    []string          `json:"alert_types"`
	ArticleCount  int               `json:"article_count"`
	Articles      []evidence.Record `json:"articles"`
	UniqueSources []string          `json:"unique_sources"`
	Errors        map[string]string `json:"errors,omitempty"`
}

func (MonitorResult) Tool() Name { return MonitorEntity }

// Centrality 节点度中心性
type Centrality struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Degree int     `json:"degree"`
	Score  float64 `json:"score"`
}

// SharedValue 多个实体共享的标识或地址
type SharedValue struct {
	Property string   `json:"property"`
	Value    string   `json:"value"`
	Entities []string `json:"entities"`
}

// GraphResult analyze_graph 结果
type GraphResult struct {
	Algorithm  string        `json:"algorithm"`
	NodeCount  int           `json:"node_count"`
	EdgeCount  int           `json:"edge_count"`
	Components [][]string    `json:"components,omitempty"`
	KeyPlayers []Centrality  `json:"key_players,omitempty"`
	Shared     []SharedValue `json:"shared_identifiers,omitempty"`
}

func (GraphResult) Tool() Name { return AnalyzeGraph }

// ReportResult generate_report 结果
type ReportResult struct {
	Title  string `json:"title"`
	Format string `json:"format"`
	Report string `json:"report"`
}

func (ReportResult) Tool() Name { return GenerateReport }

// ConcludeResult conclude 结果
type ConcludeResult struct {
	Reason string `json:"reason"`
}

func (ConcludeResult) Tool() Name { return Conclude }
