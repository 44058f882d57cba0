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

package secrets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	s, err := NewStore(Config{Provider: "memory"})
	require.NoError(t, err)
	assert.NotNil(t, s)

	s, err = NewStore(Config{})
	require.NoError(t, err)
	assert.IsType(t, &envStore{}, s)

	_, err = NewStore(Config{Provider: "k8s"})
	assert.Error(t, err)
}

func TestEnvStoreNaming(t *testing.T) {
	t.Setenv("OSINT_COMPANIES_HOUSE", "ch-key")
	s := NewEnvStore("OSINT_")
	v, err := s.Get(context.Background(), "companies-house")
	require.NoError(t, err)
	assert.Equal(t, "ch-key", v)

	_, err = s.Get(context.Background(), "missing")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(map[string]string{"opencorporates": "oc-token"})

	v, err := Resolve(ctx, store, "secret:opencorporates")
	require.NoError(t, err)
	assert.Equal(t, "oc-token", v)

	v, err = Resolve(ctx, store, "literal-key")
	require.NoError(t, err)
	assert.Equal(t, "literal-key", v)

	_, err = Resolve(ctx, store, "secret:missing")
	assert.Error(t, err)

	_, err = Resolve(ctx, nil, "secret:any")
	assert.Error(t, err)
}

func TestMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)
	require.NoError(t, store.Set(ctx, "src.gleif", "a"))
	require.NoError(t, store.Set(ctx, "src.icij", "b"))
	require.NoError(t, store.Set(ctx, "llm.openai", "c"))
	keys, err := store.List(ctx, "src.")
	require.NoError(t, err)
	assert.Equal(t, []string{"src_gleif", "src_icij"}, keys)
	require.NoError(t, store.Delete(ctx, "src.gleif"))
	_, err = store.Get(ctx, "src.gleif")
	assert.Error(t, err)
}

func TestMemoryStore_SameNamingAsEnv(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(Config{Provider: "memory", Values: map[string]string{"Companies-House": "ch-key", "edgar": ""}})
	require.NoError(t, err)

	for _, ref := range []string{"secret:companies-house", "secret:companies_house", "secret:COMPANIES.HOUSE"} {
		v, err := Resolve(ctx, store, ref)
		require.NoError(t, err, ref)
		assert.Equal(t, "ch-key", v)
	}
	_, err = Resolve(ctx, store, "secret:edgar")
	assert.Error(t, err)

	t.Setenv("OSINT_COMPANIES_HOUSE", "ch-key")
	v, err := Resolve(ctx, NewEnvStore("OSINT_"), "secret:companies-house")
	require.NoError(t, err)
	assert.Equal(t, "ch-key", v)
}
