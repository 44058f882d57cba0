package tool

import (
	"context"
)

// Name 工具名（封闭集合）
type Name string

const (
	SearchEntities  Name = "search_entities"
	ScreenSanctions Name = "screen_sanctions"
	TraceOwnership  Name = "trace_ownership"
	MonitorEntity   Name = "monitor_entity"
	AnalyzeGraph    Name = "analyze_graph"
	GenerateReport  Name = "generate_report"
	Conclude        Name = "conclude"
)

// Names 全部工具名，按目录顺序
var Names = []Name{SearchEntities, ScreenSanctions, TraceOwnership, MonitorEntity, AnalyzeGraph, GenerateReport, Conclude}

// Valid 是否为已知工具名
func (n Name) Valid() bool {
	for _, x := range Names {
		if x == n {
			return true
		}
	}
	return false
}

// Schema 表示工具的 JSON Schema（供 LLM 决策提示使用）
type Schema struct {
	Type        string                    `json:"type,omitempty"`
	Description string                    `json:"description,omitempty"`
	Properties  map[string]SchemaProperty `json:"properties,omitempty"`
	Required    []string                  `json:"required,omitempty"`
}

// SchemaProperty 表示 Schema 中单个属性的描述
type SchemaProperty struct {
	Type        string   `json:"type,omitempty"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// Spec 工具描述
type Spec struct {
	Name        Name   `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

// Payload 工具的原始结果；每个工具对应一个具体类型
type Payload interface {
	Tool() Name
}

// Handler 已绑定参数类型的工具处理器，由 Bind 构造
type Handler interface {
	Spec() Spec
	Invoke(ctx context.Context, args map[string]any) (Payload, error)
}
