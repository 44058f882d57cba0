// Copyright 2026 fanjia1024
// Tests for model registry

package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osint-platform/pkg/config"
	"osint-platform/pkg/secrets"
)

func TestRegistry_GetNotRegistered(t *testing.T) {
	_, err := NewRegistry().Get("openai.none")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestFromConfig(t *testing.T) {
	ctx := context.Background()
	store := secrets.NewMemoryStore(nil)
	require.NoError(t, store.Set(ctx, "openai_key", "sk-test"))

	mc := config.ModelConfig{LLM: config.LLMConfig{
		Providers: map[string]config.ProviderConfig{
			"openai": {APIKey: "secret:openai_key", Models: map[string]config.ModelInfo{
				"mini": {Name: "gpt-4o-mini"},
			}},
			"ollama": {Models: map[string]config.ModelInfo{"llama": {}}},
		},
		Chain: []string{"openai.mini", "ollama.llama"},
	}}
	reg, err := FromConfig(ctx, mc, store)
	require.NoError(t, err)
	assert.Equal(t, []string{"ollama.llama", "openai.mini"}, reg.Keys())

	chain, err := reg.Chain(mc.LLM.Chain, "")
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, "openai", chain[0].Provider())
	assert.Equal(t, "gpt-4o-mini", chain[0].Model())
	assert.Equal(t, "ollama", chain[1].Provider())
	assert.Equal(t, "llama", chain[1].Model())

	_, err = reg.Chain([]string{"bad"}, "")
	assert.Error(t, err)
}

func TestFromConfig_UnknownProvider(t *testing.T) {
	mc := config.ModelConfig{LLM: config.LLMConfig{Providers: map[string]config.ProviderConfig{
		"nope": {Models: map[string]config.ModelInfo{"x": {}}},
	}}}
	_, err := FromConfig(context.Background(), mc, secrets.NewMemoryStore(nil))
	assert.Error(t, err)
}
