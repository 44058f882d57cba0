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
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportPolicy() *RedactionPolicy {
	return LoadPolicyFromConfig(PolicyConfig{
		Enable: true,
		Global: []FieldMaskConfig{{Path: "raw", Mode: RedactionModeRemove}},
		Policies: []EventPolicyConfig{
			{Kind: "session_export", Fields: []FieldMaskConfig{
				{Path: "goal", Mode: RedactionModeHash, Salt: "s1"},
				{Path: "analyst.email", Mode: RedactionModeRedact},
			}},
		},
	})
}

func TestEngine_Apply(t *testing.T) {
	engine := NewEngine(reportPolicy(), nil)
	input := []byte(`{"goal":"Investigate Acme","raw":{"x":1},"analyst":{"email":"a@b.io","team":"fin"}}`)
	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(input, &result))
	assert.Equal(t, 3, engine.Apply("session_export", result))

	_, hasRaw := result["raw"]
	assert.False(t, hasRaw)
	assert.True(t, strings.HasPrefix(result["goal"].(string), "hash:"))
	analyst := result["analyst"].(map[string]interface{})
	assert.Equal(t, Redacted, analyst["email"])
	assert.Equal(t, "fin", analyst["team"])
}

func TestEngine_ApplyIsIdempotent(t *testing.T) {
	engine := NewEngine(reportPolicy(), nil)
	obj := map[string]interface{}{"goal": "Investigate Acme", "analyst": map[string]interface{}{"email": "a@b.io"}}
	assert.Equal(t, 2, engine.Apply("session_export", obj))
	first := obj["goal"]
	assert.Equal(t, 0, engine.Apply("session_export", obj))
	assert.Equal(t, first, obj["goal"])
}

func TestEngine_EncryptWithoutKeyFallsBackToRedact(t *testing.T) {
	engine := NewEngine(&RedactionPolicy{
		EventRules: map[string][]FieldMask{"report": {{FieldPath: "note", Mode: RedactionModeEncrypt}}},
	}, nil)
	obj := map[string]interface{}{"note": "private"}
	engine.Apply("report", obj)
	assert.Equal(t, Redacted, obj["note"])

	keyed := NewEngine(&RedactionPolicy{
		EventRules: map[string][]FieldMask{"report": {{FieldPath: "note", Mode: RedactionModeEncrypt}}},
	}, []byte("0123456789abcdef0123456789abcdef"))
	obj = map[string]interface{}{"note": "private"}
	keyed.Apply("report", obj)
	assert.True(t, strings.HasPrefix(obj["note"].(string), "enc:"))
}

func TestEngine_NilPolicy(t *testing.T) {
	var engine *Engine
	obj := map[string]interface{}{"a": 1.0}
	assert.Zero(t, engine.Apply("report", obj))
	assert.Equal(t, map[string]interface{}{"a": 1.0}, obj)
	assert.Nil(t, LoadPolicyFromConfig(PolicyConfig{Enable: false}))
}
