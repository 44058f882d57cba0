package federation

import (
	"context"
	"time"

	"osint-platform/internal/evidence"
	"osint-platform/internal/ratecache"
	"osint-platform/internal/storage/cache"
)

// 数据源标签
const (
	TagSanctions = "sanctions"
	TagRegistry  = "registry"
	TagLeaks     = "leaks"
	TagNews      = "news"
	TagFilings   = "filings"
)

// Query 发给单个数据源的查询
type Query struct {
	Text  string
	Kind  string // Person | Company | Any（空视为 Any）
	Limit int
}

// Adapter 数据源适配器：把查询转换为数据源请求，并把响应转换为证据记录。
// 注册时通过 Policy 声明限流与配额。
type Adapter interface {
	Name() string
	Policy() ratecache.Policy
	Query(ctx context.Context, q Query) ([]evidence.Record, error)
}

// Tagged 可选：声明数据源类别（sanctions、registry、news ...）
type Tagged interface {
	Tags() []string
}

// TimeoutAdapter 可选：覆盖默认的单源超时
type TimeoutAdapter interface {
	Timeout() time.Duration
}

// Admission 限流 / 配额 / 缓存的准入服务，由 *ratecache.Controller 实现；测试可替换为确定性实现
type Admission interface {
	Register(source string, p ratecache.Policy)
	ReserveQuota(source string) (release func(), err error)
	Acquire(ctx context.Context, source string) error
	CacheGet(ctx context.Context, key cache.Key, dest interface{}) bool
	CachePut(ctx context.Context, key cache.Key, value interface{})
}

// AdapterFunc 便于测试与静态数据源的函数式适配器
type AdapterFunc struct {
	SourceName   string
	SourcePolicy ratecache.Policy
	SourceTags   []string
	Fn           func(ctx context.Context, q Query) ([]evidence.Record, error)
}

func (a *AdapterFunc) Name() string             { return a.SourceName }
func (a *AdapterFunc) Policy() ratecache.Policy { return a.SourcePolicy }
func (a *AdapterFunc) Tags() []string           { return a.SourceTags }
func (a *AdapterFunc) Query(ctx context.Context, q Query) ([]evidence.Record, error) {
	return a.Fn(ctx, q)
}
