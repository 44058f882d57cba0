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

package redaction

// RedactionPolicy 字段脱敏策略
type RedactionPolicy struct {
	EventRules  map[string][]FieldMask // 载荷类型 -> 字段掩码
	GlobalRules []FieldMask            // 应用于所有载荷
}

// FieldMask 字段掩码配置
type FieldMask struct {
	FieldPath string        // 点分路径，如 "entities.raw"
	Mode      RedactionMode // 脱敏模式
	Salt      string        // Hash 模式的 salt（可选）
}

// RedactionMode 脱敏模式
type RedactionMode string

const (
	RedactionModeRedact  RedactionMode = "redact"  // 替换为 "***REDACTED***"
	RedactionModeHash    RedactionMode = "hash"    // 替换为 SHA256 hash
	RedactionModeEncrypt RedactionMode = "encrypt" // 加密（需要 key）
	RedactionModeRemove  RedactionMode = "remove"  // 完全移除字段
)

// PolicyConfig 脱敏策略配置（YAML）
type PolicyConfig struct {
	Enable   bool                `yaml:"enable"`
	Global   []FieldMaskConfig   `yaml:"global"`
	Policies []EventPolicyConfig `yaml:"policies"`
}

// EventPolicyConfig 单个载荷类型的脱敏策略
type EventPolicyConfig struct {
	Kind   string            `yaml:"kind"`
	Fields []FieldMaskConfig `yaml:"fields"`
}

// FieldMaskConfig 字段掩码配置（YAML）
type FieldMaskConfig struct {
	Path string        `yaml:"path"`
	Mode RedactionMode `yaml:"mode"`
	Salt string        `yaml:"salt"`
}

// LoadPolicyFromConfig 从配置加载脱敏策略；未启用返回 nil
func LoadPolicyFromConfig(config PolicyConfig) *RedactionPolicy {
	if !config.Enable {
		return nil
	}
	policy := &RedactionPolicy{
		EventRules:  make(map[string][]FieldMask),
		GlobalRules: toMasks(config.Global),
	}
	for _, p := range config.Policies {
		policy.EventRules[p.Kind] = append(policy.EventRules[p.Kind], toMasks(p.Fields)...)
	}
	return policy
}

func toMasks(fields []FieldMaskConfig) []FieldMask {
	masks := make([]FieldMask, 0, len(fields))
	for _, f := range fields {
		masks = append(masks, FieldMask{FieldPath: f.Path, Mode: f.Mode, Salt: f.Salt})
	}
	return masks
}
