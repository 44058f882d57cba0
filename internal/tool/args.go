package tool

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"osint-platform/internal/evidence"
	"osint-platform/pkg/errors"
)

// validator 参数自检并填充默认值
type validator interface {
	Validate() error
}

// decodeArgs 把 key->value 参数解码为类型化结构；未知键与类型不符均为 invalid_arguments
func decodeArgs(name Name, raw map[string]any, out interface{}) error {
	op := "tool." + string(name)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return errors.E(errors.CodeInternal, op, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if err := dec.Decode(raw); err != nil {
		return errors.E(errors.CodeInvalidArguments, op, err)
	}
	if v, ok := out.(validator); ok {
		if err := v.Validate(); err != nil {
			return errors.E(errors.CodeInvalidArguments, op, err)
		}
	}
	return nil
}

func normKind(k string) (string, error) {
	switch strings.TrimSpace(k) {
	case "", "Any":
		return "", nil
	case "Person", "Company", "Organization", "LegalEntity":
		return k, nil
	}
	return "", fmt.Errorf("entity_type %q not one of Person, Company, Organization, LegalEntity, Any", k)
}

// SearchArgs search_entities 参数
type SearchArgs struct {
	Query      string   `mapstructure:"query"`
	EntityType string   `mapstructure:"entity_type"`
	Sources    []string `mapstructure:"sources"`
	Limit      int      `mapstructure:"limit"`
}

func (a *SearchArgs) Validate() error {
	a.Query = strings.TrimSpace(a.Query)
	if a.Query == "" {
		return fmt.Errorf("query is required")
	}
	if a.Limit < 0 || a.Limit > 100 {
		return fmt.Errorf("limit %d out of [0,100]", a.Limit)
	}
	k, err := normKind(a.EntityType)
	a.EntityType = k
	return err
}

// ScreenTarget 批量筛查中的单个对象
type ScreenTarget struct {
	Name   string `mapstructure:"name"`
	Schema string `mapstructure:"schema"`
}

// ScreenArgs screen_sanctions 参数；EntityName 与 Entities 至少给一个
type ScreenArgs struct {
	EntityName string         `mapstructure:"entity_name"`
	EntityType string         `mapstructure:"entity_type"`
	Entities   []ScreenTarget `mapstructure:"entities"`
	Threshold  float64        `mapstructure:"threshold"`
}

func (a *ScreenArgs) Validate() error {
	if a.Threshold == 0 {
		a.Threshold = 0.7
	}
	if a.Threshold < 0 || a.Threshold > 1 {
		return fmt.Errorf("threshold %.2f out of (0,1]", a.Threshold)
	}
	k, err := normKind(a.EntityType)
	if err != nil {
		return err
	}
	a.EntityType = k
	if strings.TrimSpace(a.EntityName) != "" {
		a.Entities = append([]ScreenTarget{{Name: strings.TrimSpace(a.EntityName), Schema: k}}, a.Entities...)
	}
	var kept []ScreenTarget
	for _, t := range a.Entities {
		if strings.TrimSpace(t.Name) != "" {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return fmt.Errorf("entity_name or entities is required")
	}
	if len(kept) > 20 {
		return fmt.Errorf("at most 20 entities per screening call")
	}
	a.Entities = kept
	return nil
}

// TraceArgs trace_ownership 参数
type TraceArgs struct {
	EntityName      string `mapstructure:"entity_name"`
	MaxDepth        int    `mapstructure:"max_depth"`
	IncludeOfficers *bool  `mapstructure:"include_officers"`
}

func (a *TraceArgs) Validate() error {
	a.EntityName = strings.TrimSpace(a.EntityName)
	if a.EntityName == "" {
		return fmt.Errorf("entity_name is required")
	}
	if a.MaxDepth == 0 {
		a.MaxDepth = 3
	}
	if a.MaxDepth < 1 || a.MaxDepth > 5 {
		return fmt.Errorf("max_depth %d out of [1,5]", a.MaxDepth)
	}
	if a.IncludeOfficers == nil {
		on := true
		a.IncludeOfficers = &on
	}
	return nil
}

// MonitorArgs monitor_entity 参数
type MonitorArgs struct {
	EntityName string   `mapstructure:"entity_name"`
	EntityType string   `mapstructure:"entity_type"`
	AlertTypes []string `mapstructure:"alert_types"`
	Timespan   string   `mapstructure:"timespan"`
}

func (a *MonitorArgs) Validate() error {
	a.EntityName = strings.TrimSpace(a.EntityName)
	if a.EntityName == "" {
		return fmt.Errorf("entity_name is required")
	}
	k, err := normKind(a.EntityType)
	a.EntityType = k
	if a.Timespan == "" {
		a.Timespan = "7d"
	}
	return err
}

// GraphArgs analyze_graph 参数；Entities 由调用方从会话注入
type GraphArgs struct {
	Algorithm string            `mapstructure:"algorithm"`
	EntityIDs []string          `mapstructure:"entity_ids"`
	Entities  []evidence.Record `mapstructure:"entities"`
}

// 图分析算法
const (
	AlgoFull       = "full"
	AlgoComponents = "connected_components"
	AlgoKeyPlayers = "key_players"
	AlgoShared     = "shared_identifiers"
)

func (a *GraphArgs) Validate() error {
	switch a.Algorithm {
	case "":
		a.Algorithm = AlgoFull
	case AlgoFull, AlgoComponents, AlgoKeyPlayers, AlgoShared:
	default:
		return fmt.Errorf("unknown algorithm %q", a.Algorithm)
	}
	if len(a.EntityIDs) > 0 {
		want := map[string]bool{}
		for _, id := range a.EntityIDs {
			want[id] = true
		}
		var kept []evidence.Record
		for _, r := range a.Entities {
			if want[r.ID] {
				kept = append(kept, r)
			}
		}
		a.Entities = kept
	}
	return nil
}

// ReportArgs generate_report 参数
type ReportArgs struct {
	Title    string            `mapstructure:"title"`
	Format   string            `mapstructure:"format"`
	Entities []evidence.Record `mapstructure:"entities"`
}

func (a *ReportArgs) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		a.Title = "Investigation report"
	}
	switch a.Format {
	case "":
		a.Format = "markdown"
	case "markdown":
	default:
		return fmt.Errorf("unsupported format %q", a.Format)
	}
	return nil
}

// ConcludeArgs conclude 参数
type ConcludeArgs struct {
	Reason string `mapstructure:"reason"`
}
