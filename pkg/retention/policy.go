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

package retention

// Config 会话留存配置；天数为 0 表示永久保留
type Config struct {
	RetentionDays int            `mapstructure:"retention_days"`
	Policies      []PolicyConfig `mapstructure:"policies"`
}

// PolicyConfig 按会话状态覆盖留存天数
type PolicyConfig struct {
	Status        string `mapstructure:"status"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// statusRunning 运行中的会话可能被恢复，未单独配置时永久保留
const statusRunning = "running"

// DaysFor 获取指定状态的留存天数
func (c Config) DaysFor(status string) int {
	for _, p := range c.Policies {
		if p.Status == status {
			return p.RetentionDays
		}
	}
	if status == statusRunning {
		return 0
	}
	return c.RetentionDays
}

// Enabled 是否有任何会过期的策略
func (c Config) Enabled() bool {
	if c.RetentionDays > 0 {
		return true
	}
	for _, p := range c.Policies {
		if p.RetentionDays > 0 {
			return true
		}
	}
	return false
}
