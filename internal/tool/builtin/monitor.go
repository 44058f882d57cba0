package builtin

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"osint-platform/internal/federation"
	"osint-platform/internal/tool"
	"osint-platform/pkg/log"
)

// Watch 监控登记
type Watch struct {
	Name       string    `json:"name"`
	Kind       string    `json:"kind,omitempty"`
	AlertTypes []string  `json:"alert_types"`
	Since      time.Time `json:"since"`
}

// Watchlist 进程内监控名单；同名重复登记只更新告警类型
type Watchlist struct {
	mu      sync.Mutex
	entries map[string]Watch
}

// NewWatchlist 创建监控名单
func NewWatchlist() *Watchlist {
	return &Watchlist{entries: map[string]Watch{}}
}

// Register 登记监控对象
func (w *Watchlist) Register(name, kind string, alertTypes []string) Watch {
	w.mu.Lock()
	defer w.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(name))
	e, ok := w.entries[key]
	if !ok {
		e = Watch{Name: name, Kind: kind, Since: time.Now().UTC()}
	}
	e.AlertTypes = alertTypes
	w.entries[key] = e
	return e
}

// List 按名称排序返回
func (w *Watchlist) List() []Watch {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Watch, 0, len(w.entries))
	for _, e := range w.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// NewMonitorTool monitor_entity：检索新闻数据源并登记持续监控；新闻源失败不影响登记
func NewMonitorTool(s Searcher, wl *Watchlist, logger *log.Logger) tool.Handler {
	return tool.Bind(tool.Spec{
		Name:        tool.MonitorEntity,
		Description: "Register an entity for monitoring and return recent news coverage from news sources.",
		Parameters: tool.Schema{
			Type: "object",
			Properties: map[string]tool.SchemaProperty{
				"entity_name": {Type: "string", Description: "Name of entity to monitor"},
				"entity_type": {Type: "string", Enum: []string{"Person", "Company", "Any"}},
				"alert_types": {Type: "array", Description: "new_sanction, changed_property, new_entity, removed_entity; empty means all"},
				"timespan":    {Type: "string", Description: "News window such as 24h or 7d"},
			},
			Required: []string{"entity_name"},
		},
	}, func(ctx context.Context, a tool.MonitorArgs) (tool.MonitorResult, error) {
		alerts := a.AlertTypes
		if len(alerts) == 0 {
			alerts = []string{"all"}
		}
		wl.Register(a.EntityName, a.EntityType, alerts)
		out := tool.MonitorResult{
			EntityName: a.EntityName,
			EntityType: a.EntityType,
			Registered: true,
			AlertTypes: alerts,
			Errors:     map[string]string{},
		}
		if !hasTagged(s, federation.TagNews) {
			return out, nil
		}
		res, err := s.Search(ctx, a.EntityName, federation.SearchOptions{Tags: []string{federation.TagNews}})
		if err != nil {
			logger.Warn("新闻检索失败", "entity", a.EntityName, "error", err)
			return out, nil
		}
		out.Errors = res.Errors
		out.Articles = res.Records
		out.ArticleCount = len(res.Records)
		domains := map[string]bool{}
		for _, r := range res.Records {
			if d := r.First("domain"); d != "" {
				domains[d] = true
			}
		}
		for d := range domains {
			out.UniqueSources = append(out.UniqueSources, d)
		}
		sort.Strings(out.UniqueSources)
		return out, nil
	})
}
