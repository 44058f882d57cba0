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

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osint-platform/pkg/config"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func query(source, text string) Key {
	return NewKey(source, "query", map[string]interface{}{"text": text, "limit": 10})
}

func TestNewKey_StableAcrossParamOrder(t *testing.T) {
	a := NewKey("icij", "search", map[string]interface{}{"q": "x", "limit": 5})
	b := NewKey("icij", "search", map[string]interface{}{"limit": 5, "q": "x"})
	assert.Equal(t, a, b)
	assert.Len(t, a.Digest, 32)
	assert.Equal(t, "icij:"+a.Digest, a.String())
	assert.NotEqual(t, a.Digest, NewKey("gleif", "search", map[string]interface{}{"q": "x", "limit": 5}).Digest)
	assert.NotEqual(t, a.Digest, NewKey("icij", "officers", map[string]interface{}{"q": "x", "limit": 5}).Digest)
}

func TestMemoryStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	k := query("gleif", "acme holdings")
	require.NoError(t, s.Put(ctx, k, []string{"LEI-1", "LEI-2"}, time.Minute))

	var v []string
	require.NoError(t, s.Get(ctx, k, &v))
	assert.Equal(t, []string{"LEI-1", "LEI-2"}, v)
	assert.ErrorIs(t, s.Get(ctx, query("gleif", "globex"), &v), ErrMiss)
}

func TestMemoryStore_DefaultTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	s := NewMemoryStore(WithClock(clock.now), WithDefaultTTL(300*time.Second))
	k := query("opensanctions", "acme")
	require.NoError(t, s.Put(ctx, k, "v", 0))
	long := query("opensanctions", "globex")
	require.NoError(t, s.Put(ctx, long, "v", time.Hour))

	var v string
	clock.advance(299 * time.Second)
	require.NoError(t, s.Get(ctx, k, &v))

	clock.advance(time.Second)
	assert.ErrorIs(t, s.Get(ctx, k, &v), ErrMiss)
	require.NoError(t, s.Get(ctx, long, &v))
}

func TestMemoryStore_EvictsExpiredThenOldest(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	s := NewMemoryStore(WithClock(clock.now), WithMaxEntries(3))
	short, old, mid := query("gleif", "short"), query("gleif", "old"), query("gleif", "mid")

	require.NoError(t, s.Put(ctx, short, 1, time.Second))
	clock.advance(time.Millisecond)
	require.NoError(t, s.Put(ctx, old, 2, time.Hour))
	clock.advance(time.Millisecond)
	require.NoError(t, s.Put(ctx, mid, 3, time.Hour))
	clock.advance(2 * time.Second)

	// 满：先清过期的 short
	require.NoError(t, s.Put(ctx, query("gleif", "new1"), 4, time.Hour))
	assert.Equal(t, 3, s.Len())
	var v int
	assert.ErrorIs(t, s.Get(ctx, short, &v), ErrMiss)
	require.NoError(t, s.Get(ctx, old, &v))

	// 再满：无过期项，淘汰最早写入的 old
	clock.advance(time.Millisecond)
	require.NoError(t, s.Put(ctx, query("gleif", "new2"), 5, time.Hour))
	assert.Equal(t, 3, s.Len())
	assert.ErrorIs(t, s.Get(ctx, old, &v), ErrMiss)
	require.NoError(t, s.Get(ctx, mid, &v))
	assert.Equal(t, 3, v)
}

func TestMemoryStore_OverwriteDoesNotEvict(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(WithMaxEntries(1))
	k := query("edgar", "acme")
	require.NoError(t, s.Put(ctx, k, 1, 0))
	require.NoError(t, s.Put(ctx, k, 2, 0))
	var v int
	require.NoError(t, s.Get(ctx, k, &v))
	assert.Equal(t, 2, v)
}

func TestMemoryStore_InvalidateOneSource(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Put(ctx, query("icij", "acme"), "a", 0))
	require.NoError(t, s.Put(ctx, query("icij", "globex"), "b", 0))
	keep := query("gleif", "acme")
	require.NoError(t, s.Put(ctx, keep, "c", 0))

	n, err := s.Invalidate(ctx, "icij")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, s.Len())
	var v string
	require.NoError(t, s.Get(ctx, keep, &v))

	n, err = s.Invalidate(ctx, "icij")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewCache(t *testing.T) {
	fed := config.FederationConfig{CacheTTL: time.Minute, CacheMaxEntries: 10}
	s, err := NewCache(context.Background(), config.CacheConfig{Type: "memory"}, fed)
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)
	mem := s.(*MemoryStore)
	assert.Equal(t, time.Minute, mem.defaultTTL)
	assert.Equal(t, 10, mem.maxEntries)

	_, err = NewCache(context.Background(), config.CacheConfig{Type: "memcached"}, fed)
	assert.Error(t, err)
}
