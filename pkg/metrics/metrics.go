package metrics

import (
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 CLI / 嵌入方注册与导出
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		SourceQueryDuration, SourceErrorsTotal,
		CacheRequestsTotal, RateLimitWaitSeconds, QuotaUsed,
		ToolDuration, LLMTokensTotal, LLMCostUSDTotal,
		SafetyChecksTotal, SessionsTotal,
	)
}

// SourceQueryDuration 单个数据源查询耗时（秒）
var SourceQueryDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "osint_source_query_duration_seconds",
		Help:    "数据源查询耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"source", "outcome"}, // ok | error
)

// SourceErrorsTotal 数据源失败次数（按失败码）
var SourceErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "osint_source_errors_total",
		Help: "数据源失败次数",
	},
	[]string{"source", "code"},
)

// CacheRequestsTotal 响应缓存命中/未命中
var CacheRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "osint_cache_requests_total",
		Help: "响应缓存请求数",
	},
	[]string{"source", "result"}, // hit | miss
)

// RateLimitWaitSeconds 令牌桶等待耗时（秒）
var RateLimitWaitSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "osint_rate_limit_wait_seconds",
		Help:    "令牌桶等待耗时（秒）",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	},
	[]string{"source"},
)

// QuotaUsed 当月配额已用量
var QuotaUsed = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "osint_quota_used",
		Help: "当月配额已用量",
	},
	[]string{"source"},
)

// ToolDuration 工具调用耗时（秒）
var ToolDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "osint_tool_duration_seconds",
		Help:    "工具调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"tool"},
)

// LLMTokensTotal LLM 调用 token 数
var LLMTokensTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "osint_llm_tokens_total",
		Help: "LLM 调用 token 总数",
	},
	[]string{"direction"}, // input | output
)

// LLMCostUSDTotal LLM 累计花费（美元）
var LLMCostUSDTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "osint_llm_cost_usd_total",
		Help: "LLM 累计花费（美元）",
	},
	[]string{"provider"},
)

// SafetyChecksTotal 安全检查次数（按判定）
var SafetyChecksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "osint_safety_checks_total",
		Help: "安全检查次数",
	},
	[]string{"verdict"},
)

// SessionsTotal 调查会话总数（按终态）
var SessionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "osint_sessions_total",
		Help: "调查会话总数（按终态）",
	},
	[]string{"status"}, // concluded | failed
)

// WritePrometheus 将 Prometheus 文本格式写入 w
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile 将当前指标快照写入文件
func WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WritePrometheus(f)
}
