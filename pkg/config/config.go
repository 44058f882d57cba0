// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"osint-platform/pkg/retention"
)

// Config 全局配置
type Config struct {
	Agent      AgentConfig             `mapstructure:"agent"`
	Federation FederationConfig        `mapstructure:"federation"`
	Sources    map[string]SourceConfig `mapstructure:"sources"`
	Safety     SafetyConfig            `mapstructure:"safety"`
	Model      ModelConfig             `mapstructure:"model"`
	Cache      CacheConfig             `mapstructure:"cache"`
	Storage    StorageConfig           `mapstructure:"storage"`
	Log        LogConfig               `mapstructure:"log"`
	Monitoring MonitoringConfig        `mapstructure:"monitoring"`
	Secrets    SecretsConfig           `mapstructure:"secrets"`
}

// AgentConfig 调查循环配置
type AgentConfig struct {
	MaxTurns               int           `mapstructure:"max_turns"`
	CostBudgetUSD          float64       `mapstructure:"cost_budget_usd"`
	MinTurnsBeforeConclude int           `mapstructure:"min_turns_before_conclude"`
	ContextChars           int           `mapstructure:"context_chars"`
	InitialSearch          *bool         `mapstructure:"initial_search"`
	InitialNewsCheck       *bool         `mapstructure:"initial_news_check"`
	ToolTimeout            time.Duration `mapstructure:"tool_timeout"`
	Autosave               bool          `mapstructure:"autosave"`
	// ToolCostUSD 按工具名声明的单次调用成本（付费数据源），执行前做预算预检
	ToolCostUSD map[string]float64 `mapstructure:"tool_cost_usd"`
}

// FederationConfig 联邦检索配置
type FederationConfig struct {
	DefaultLimit    int           `mapstructure:"default_limit"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxWait         time.Duration `mapstructure:"max_wait"`
	DedupThreshold  float64       `mapstructure:"dedup_threshold"`
	SourcePriority  []string      `mapstructure:"source_priority"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	CacheMaxEntries int           `mapstructure:"cache_max_entries"`
	QuotaFile       string        `mapstructure:"quota_file"`
}

// SourceConfig 单个数据源配置；Kind 为 http 时使用内置映射，static 时读取 Fixture
type SourceConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Kind         string        `mapstructure:"kind"`
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Fixture      string        `mapstructure:"fixture"`
	Rate         float64       `mapstructure:"rate"`
	Burst        int           `mapstructure:"burst"`
	MonthlyLimit int           `mapstructure:"monthly_limit"`
	Timeout      time.Duration `mapstructure:"timeout"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	Sanctions    bool          `mapstructure:"sanctions"`
	News         bool          `mapstructure:"news"`
}

// SafetyConfig 安全闸配置
type SafetyConfig struct {
	MaxConsecutiveFailures int      `mapstructure:"max_consecutive_failures"`
	MaxCostUSD             float64  `mapstructure:"max_cost_usd"`
	AllowedTools           []string `mapstructure:"allowed_tools"`
	DeniedTools            []string `mapstructure:"denied_tools"`
	PolicyFile             string   `mapstructure:"policy_file"`
	RedactionTerms         []string `mapstructure:"redaction_terms"`
}

// ModelConfig 模型配置
type ModelConfig struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
}

// LLMConfig LLM 配置；Chain 为 oracle 回退顺序，元素形如 provider.model_key
type LLMConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
	Chain     []string                  `mapstructure:"chain"`
}

// ProviderConfig 提供商配置
type ProviderConfig struct {
	APIKey  string               `mapstructure:"api_key"`
	BaseURL string               `mapstructure:"base_url"`
	QPS     float64              `mapstructure:"qps"`
	Burst   int                  `mapstructure:"burst"`
	Models  map[string]ModelInfo `mapstructure:"models"`
}

// ModelInfo 模型信息；价格单位为美元 / 百万 token
type ModelInfo struct {
	Name          string  `mapstructure:"name"`
	ContextWindow int     `mapstructure:"context_window"`
	Temperature   float64 `mapstructure:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens"`
	InputPrice    float64 `mapstructure:"input_price"`
	OutputPrice   float64 `mapstructure:"output_price"`
}

// DefaultsConfig 默认配置
type DefaultsConfig struct {
	LLM string `mapstructure:"llm"`
}

// CacheConfig 响应缓存配置
type CacheConfig struct {
	Type     string `mapstructure:"type"`
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
	Prefix   string `mapstructure:"prefix"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Session SessionStoreConfig `mapstructure:"session"`
}

// SessionStoreConfig 会话存储：memory | file | sqlite | postgres
type SessionStoreConfig struct {
	Type      string           `mapstructure:"type"`
	Dir       string           `mapstructure:"dir"`
	DSN       string           `mapstructure:"dsn"`
	Retention retention.Config `mapstructure:"retention"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	MetricsFile string        `mapstructure:"metrics_file"`
	Tracing     TracingConfig `mapstructure:"tracing"`
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// SecretsConfig 密钥存储：env | vault | memory
type SecretsConfig struct {
	Type       string `mapstructure:"type"`
	EnvPrefix  string `mapstructure:"env_prefix"`
	VaultAddr  string `mapstructure:"vault_addr"`
	VaultToken string `mapstructure:"vault_token"`
	VaultPath  string `mapstructure:"vault_path"`
	// Values type 为 memory 时预置的 API key（离线与夹具运行）
	Values map[string]string `mapstructure:"values"`
}

// LoadConfig 加载配置文件；path 为空时只使用默认值与环境变量
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("无法读取配置文件: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	replaceEnvVars(&config)
	SetDefaults(&config)
	return &config, nil
}

// Default 返回只含默认值的配置
func Default() *Config {
	var c Config
	SetDefaults(&c)
	return &c
}

// SetDefaults 填充零值字段
func SetDefaults(c *Config) {
	if c.Agent.MaxTurns <= 0 {
		c.Agent.MaxTurns = 15
	}
	if c.Agent.CostBudgetUSD <= 0 {
		c.Agent.CostBudgetUSD = 1.0
	}
	if c.Agent.MinTurnsBeforeConclude <= 0 {
		c.Agent.MinTurnsBeforeConclude = 3
	}
	if c.Agent.ContextChars <= 0 {
		c.Agent.ContextChars = 6000
	}
	if c.Agent.ToolTimeout <= 0 {
		c.Agent.ToolTimeout = 60 * time.Second
	}
	if c.Agent.InitialSearch == nil {
		on := true
		c.Agent.InitialSearch = &on
	}
	if c.Agent.InitialNewsCheck == nil {
		on := true
		c.Agent.InitialNewsCheck = &on
	}
	if c.Federation.DefaultLimit <= 0 {
		c.Federation.DefaultLimit = 10
	}
	if c.Federation.Timeout <= 0 {
		c.Federation.Timeout = 30 * time.Second
	}
	if c.Federation.MaxWait <= 0 {
		c.Federation.MaxWait = 5 * time.Second
	}
	if c.Federation.DedupThreshold <= 0 {
		c.Federation.DedupThreshold = 0.85
	}
	if c.Federation.CacheTTL <= 0 {
		c.Federation.CacheTTL = 300 * time.Second
	}
	if c.Federation.CacheMaxEntries <= 0 {
		c.Federation.CacheMaxEntries = 1000
	}
	if c.Sources == nil {
		c.Sources = map[string]SourceConfig{}
	}
	if c.Safety.MaxConsecutiveFailures <= 0 {
		c.Safety.MaxConsecutiveFailures = 5
	}
	if c.Safety.MaxCostUSD <= 0 {
		c.Safety.MaxCostUSD = c.Agent.CostBudgetUSD
	}
	if c.Cache.Type == "" {
		c.Cache.Type = "memory"
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = "osint:cache:"
	}
	if c.Storage.Session.Type == "" {
		c.Storage.Session.Type = "memory"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Monitoring.Tracing.ServiceName == "" {
		c.Monitoring.Tracing.ServiceName = "osint-platform"
	}
	if c.Secrets.Type == "" {
		c.Secrets.Type = "env"
	}
}

// replaceEnvVars 替换配置中形如 ${VAR} 的密钥引用
func replaceEnvVars(config *Config) {
	for provider, providerConfig := range config.Model.LLM.Providers {
		if v, ok := expandEnv(providerConfig.APIKey); ok {
			providerConfig.APIKey = v
			config.Model.LLM.Providers[provider] = providerConfig
		}
	}
	for name, src := range config.Sources {
		if v, ok := expandEnv(src.APIKey); ok {
			src.APIKey = v
			config.Sources[name] = src
		}
	}
	if v, ok := expandEnv(config.Cache.Password); ok {
		config.Cache.Password = v
	}
	if v, ok := expandEnv(config.Storage.Session.DSN); ok {
		config.Storage.Session.DSN = v
	}
	if v, ok := expandEnv(config.Secrets.VaultToken); ok {
		config.Secrets.VaultToken = v
	}
}

func expandEnv(s string) (string, bool) {
	if !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return "", false
	}
	envVar := strings.TrimSuffix(strings.TrimPrefix(s, "${"), "}")
	val := os.Getenv(envVar)
	if val == "" {
		return "", false
	}
	return val, true
}
