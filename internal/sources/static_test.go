package sources

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osint-platform/internal/federation"
	"osint-platform/internal/ratecache"
)

const fixtureYAML = `
tags: [registry]
records:
  - id: C1
    schema: Company
    name: Acme Holdings Ltd
    confidence: 0.9
    properties:
      companyNumber: ["0123"]
      alias: ["Acme Group"]
  - id: P1
    schema: Person
    name: Jane Roe
  - id: C2
    schema: Company
    name: Unrelated Widgets
`

func TestParseFixture(t *testing.T) {
	fx, err := ParseFixture([]byte(fixtureYAML))
	require.NoError(t, err)
	assert.Len(t, fx.Records, 3)
	assert.Equal(t, []string{"registry"}, fx.Tags)

	_, err = ParseFixture([]byte("records:\n  - id: X\n"))
	assert.Error(t, err)
}

func TestStaticSource_Query(t *testing.T) {
	fx, err := ParseFixture([]byte(fixtureYAML))
	require.NoError(t, err)
	src := NewStaticSource("registry_fixture", fx, ratecache.Policy{}, 0, federation.TagSanctions)
	assert.Equal(t, []string{"registry", federation.TagSanctions}, src.Tags())

	recs, err := src.Query(context.Background(), federation.Query{Text: "Acme Holdings"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "registry_fixture:C1", recs[0].ID)
	assert.Equal(t, "0123", recs[0].First("companyNumber"))

	// 别名命中
	recs, err = src.Query(context.Background(), federation.Query{Text: "Acme Group"})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	// 类型过滤
	recs, err = src.Query(context.Background(), federation.Query{Text: "Acme Holdings", Kind: "Person"})
	require.NoError(t, err)
	assert.Empty(t, recs)

	// 默认置信度
	recs, err = src.Query(context.Background(), federation.Query{Text: "Jane Roe"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.InDelta(t, 0.7, recs[0].Confidence, 1e-9)
}

func TestStaticSource_CancelledContext(t *testing.T) {
	src := NewStaticSource("s", &Fixture{}, ratecache.Policy{}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Query(ctx, federation.Query{Text: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}
