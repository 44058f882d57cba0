package safety

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"osint-platform/pkg/config"
	"osint-platform/pkg/redaction"
)

// Policy 安全策略：工具白名单 / 黑名单、熔断阈值、脱敏规则
type Policy struct {
	AllowedTools           []string               `yaml:"allowed_tools"`
	DeniedTools            []string               `yaml:"denied_tools"`
	MaxConsecutiveFailures int                    `yaml:"max_consecutive_failures"`
	MaxCostUSD             float64                `yaml:"max_cost_usd"`
	RedactionTerms         []string               `yaml:"redaction_terms"`
	Redaction              redaction.PolicyConfig `yaml:"redaction"`
}

// LoadPolicyFile 读取 YAML 策略文件
func LoadPolicyFile(path string) (Policy, error) {
	var p Policy
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("读取安全策略失败: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("解析安全策略失败: %w", err)
	}
	return p, nil
}

// PolicyFromConfig 由配置构造策略；配置了 policy_file 时文件中的非零项覆盖配置
func PolicyFromConfig(cfg config.SafetyConfig) (Policy, error) {
	p := Policy{
		AllowedTools:           cfg.AllowedTools,
		DeniedTools:            cfg.DeniedTools,
		MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
		MaxCostUSD:             cfg.MaxCostUSD,
		RedactionTerms:         cfg.RedactionTerms,
	}
	if cfg.PolicyFile == "" {
		return p, nil
	}
	fp, err := LoadPolicyFile(cfg.PolicyFile)
	if err != nil {
		return p, err
	}
	if len(fp.AllowedTools) > 0 {
		p.AllowedTools = fp.AllowedTools
	}
	p.DeniedTools = append(p.DeniedTools, fp.DeniedTools...)
	if fp.MaxConsecutiveFailures > 0 {
		p.MaxConsecutiveFailures = fp.MaxConsecutiveFailures
	}
	if fp.MaxCostUSD > 0 {
		p.MaxCostUSD = fp.MaxCostUSD
	}
	p.RedactionTerms = append(p.RedactionTerms, fp.RedactionTerms...)
	p.Redaction = fp.Redaction
	return p, nil
}

func (p Policy) denied(tool string) bool {
	for _, t := range p.DeniedTools {
		if t == tool {
			return true
		}
	}
	return false
}

func (p Policy) allowed(tool string) bool {
	if len(p.AllowedTools) == 0 {
		return true
	}
	for _, t := range p.AllowedTools {
		if t == tool {
			return true
		}
	}
	return false
}
