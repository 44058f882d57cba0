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

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// Redacted redact 模式的替换值
const Redacted = "***REDACTED***"

// Engine 字段级脱敏引擎：按载荷类型（report / session_export / tool_result）对指定字段做掩码
type Engine struct {
	policy     *RedactionPolicy
	encryptKey []byte
}

// NewEngine 创建脱敏引擎；policy 为 nil 时不做任何字段处理
func NewEngine(policy *RedactionPolicy, encryptKey []byte) *Engine {
	return &Engine{
		policy:     policy,
		encryptKey: encryptKey,
	}
}

// Apply 就地对 obj 应用 kind 对应规则与全局规则，返回被处理的字段数
func (e *Engine) Apply(kind string, obj map[string]interface{}) int {
	if e == nil || e.policy == nil || obj == nil {
		return 0
	}
	rules := make([]FieldMask, 0, len(e.policy.EventRules[kind])+len(e.policy.GlobalRules))
	rules = append(rules, e.policy.EventRules[kind]...)
	rules = append(rules, e.policy.GlobalRules...)
	n := 0
	for _, rule := range rules {
		if e.applyFieldMask(obj, rule) {
			n++
		}
	}
	return n
}

// applyFieldMask 应用字段掩码；已处理过的值（掩码、hash:、enc:）保持不变
func (e *Engine) applyFieldMask(obj map[string]interface{}, mask FieldMask) bool {
	parts := strings.Split(mask.FieldPath, ".")
	current := obj
	for i := 0; i < len(parts)-1; i++ {
		next, ok := current[parts[i]].(map[string]interface{})
		if !ok {
			return false
		}
		current = next
	}

	lastKey := parts[len(parts)-1]
	value, exists := current[lastKey]
	if !exists {
		return false
	}
	strValue := fmt.Sprintf("%v", value)
	if alreadyMasked(strValue) && mask.Mode != RedactionModeRemove {
		return false
	}

	switch mask.Mode {
	case RedactionModeRedact:
		current[lastKey] = Redacted
	case RedactionModeHash:
		current[lastKey] = e.hashValue(strValue, mask.Salt)
	case RedactionModeEncrypt:
		encrypted, err := e.encryptValue(strValue)
		if err != nil {
			current[lastKey] = Redacted
			return true
		}
		current[lastKey] = encrypted
	case RedactionModeRemove:
		delete(current, lastKey)
	default:
		return false
	}
	return true
}

func alreadyMasked(v string) bool {
	return v == Redacted || strings.HasPrefix(v, "hash:") || strings.HasPrefix(v, "enc:")
}

// hashValue 计算字段的 SHA256 hash
func (e *Engine) hashValue(value string, salt string) string {
	h := sha256.New()
	h.Write([]byte(value))
	if salt != "" {
		h.Write([]byte(salt))
	}
	return "hash:" + hex.EncodeToString(h.Sum(nil))
}

// encryptValue 加密字段值（AES-256-GCM）
func (e *Engine) encryptValue(value string) (string, error) {
	if len(e.encryptKey) == 0 {
		return "", fmt.Errorf("encryption key not configured")
	}
	block, err := aes.NewCipher(e.encryptKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ciphertext := gcm.Seal(nonce, nonce, []byte(value), nil)
	return "enc:" + hex.EncodeToString(ciphertext), nil
}
