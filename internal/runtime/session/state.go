package session

import (
	"time"

	"osint-platform/internal/tool"
)

// Status 会话状态
type Status string

const (
	StatusRunning   Status = "running"
	StatusConcluded Status = "concluded"
	StatusFailed    Status = "failed"
)

// LeadStatus 线索状态
type LeadStatus string

const (
	LeadOpen   LeadStatus = "open"
	LeadClosed LeadStatus = "closed"
)

// Finding 一条带置信度的发现；追加后不再修改
type Finding struct {
	ID         string    `json:"id"`
	Turn       int       `json:"turn"`
	Source     string    `json:"source"` // 产生该发现的工具
	Summary    string    `json:"summary"`
	Confidence float64   `json:"confidence"`
	EntityIDs  []string  `json:"entity_ids,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Lead 候选下一步动作；Type 即建议的工具
type Lead struct {
	ID            string         `json:"id"`
	Seq           int            `json:"seq"`
	Type          tool.Name      `json:"type"`
	Target        string         `json:"target"`
	Description   string         `json:"description"`
	Args          map[string]any `json:"args,omitempty"`
	Priority      float64        `json:"priority"`
	Status        LeadStatus     `json:"status"`
	SourceFinding string         `json:"source_finding,omitempty"`
	ClosedReason  string         `json:"closed_reason,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ToolCall 单次工具调用记录
type ToolCall struct {
	Turn       int            `json:"turn"`
	Tool       tool.Name      `json:"tool"`
	Args       map[string]any `json:"args,omitempty"`
	Summary    string         `json:"summary"`
	Error      string         `json:"error,omitempty"`
	Code       string         `json:"code,omitempty"`
	Blocked    bool           `json:"blocked,omitempty"`
	DurationMS int64          `json:"duration_ms"`
	At         time.Time      `json:"at"`
}

// TraceEntry 推理轨迹条目
type TraceEntry struct {
	Turn      int       `json:"turn"`
	Source    string    `json:"source"` // oracle 名称 | heuristic | system
	Tool      tool.Name `json:"tool,omitempty"`
	Rationale string    `json:"rationale"`
	At        time.Time `json:"at"`
}

// CostCall 单次计费调用
type CostCall struct {
	Turn         int     `json:"turn"`
	Purpose      string  `json:"purpose"` // decide | report | tool
	Model        string  `json:"model,omitempty"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	USD          float64 `json:"usd"`
}

// CostRecord 会话累计成本，只增不减
type CostRecord struct {
	InputTokens  int        `json:"input_tokens"`
	OutputTokens int        `json:"output_tokens"`
	USD          float64    `json:"usd"`
	Calls        []CostCall `json:"calls,omitempty"`
}

// Conclusion 结束原因
type Conclusion struct {
	Reason        string `json:"reason"`
	BudgetLimited bool   `json:"budget_limited,omitempty"`
	PolicyLimited bool   `json:"policy_limited,omitempty"`
	Cancelled     bool   `json:"cancelled,omitempty"`
}

// Limited 是否为强制结束
func (c Conclusion) Limited() bool { return c.BudgetLimited || c.PolicyLimited || c.Cancelled }
