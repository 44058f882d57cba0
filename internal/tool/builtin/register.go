// Package builtin 内置调查工具的处理器
package builtin

import (
	"context"

	"osint-platform/internal/evidence"
	"osint-platform/internal/federation"
	"osint-platform/internal/tool"
	"osint-platform/pkg/errors"
	"osint-platform/pkg/log"
)

// Searcher 内置工具依赖的联邦检索能力，由 *federation.Federation 实现
type Searcher interface {
	Search(ctx context.Context, query string, opts federation.SearchOptions) (*federation.Result, error)
	Screen(ctx context.Context, name string, threshold float64, kind string) (*federation.ScreenResult, error)
	Enrich(ctx context.Context, rec evidence.Record) (evidence.Record, *federation.Result, error)
	Sources() []string
	HasTag(source, tag string) bool
}

// Deps 内置工具依赖
type Deps struct {
	Search    Searcher
	Watchlist *Watchlist
	Logger    *log.Logger
}

// RegisterBuiltin 将全部内置工具注册到 Registry
func RegisterBuiltin(reg *tool.Registry, deps Deps) {
	if reg == nil {
		return
	}
	if deps.Watchlist == nil {
		deps.Watchlist = NewWatchlist()
	}
	deps.Logger = log.OrNop(deps.Logger)
	if deps.Search != nil {
		reg.Register(NewSearchTool(deps.Search))
		reg.Register(NewScreenTool(deps.Search))
		reg.Register(NewOwnershipTool(deps.Search))
		reg.Register(NewMonitorTool(deps.Search, deps.Watchlist, deps.Logger))
	}
	reg.Register(NewGraphTool())
	reg.Register(NewReportTool())
	reg.Register(NewConcludeTool())
}

// hasTagged 是否存在带该标签的数据源
func hasTagged(s Searcher, tag string) bool {
	for _, name := range s.Sources() {
		if s.HasTag(name, tag) {
			return true
		}
	}
	return false
}

// allFailed 选中的数据源全部失败时转为带码错误：失败码一致时沿用，否则为 source_unavailable
func allFailed(op string, res *federation.Result) error {
	if len(res.Sources) == 0 {
		return errors.New(errors.CodeSourceUnavailable, op, "no sources selected")
	}
	if !res.IsError() {
		return nil
	}
	var code errors.Code
	for _, c := range res.Errors {
		switch {
		case code == "":
			code = errors.Code(c)
		case code != errors.Code(c):
			code = errors.CodeSourceUnavailable
		}
	}
	return errors.Newf(code, op, "all %d sources failed", len(res.Sources))
}

// NewConcludeTool conclude 工具：只记录结束理由，由调查循环处理
func NewConcludeTool() tool.Handler {
	return tool.Bind(tool.Spec{
		Name:        tool.Conclude,
		Description: "End the investigation when findings answer the goal or remaining leads are low value.",
		Parameters: tool.Schema{
			Type: "object",
			Properties: map[string]tool.SchemaProperty{
				"reason": {Type: "string", Description: "Why the investigation can stop"},
			},
		},
	}, func(ctx context.Context, a tool.ConcludeArgs) (tool.ConcludeResult, error) {
		return tool.ConcludeResult{Reason: a.Reason}, nil
	})
}
