package federation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osint-platform/internal/evidence"
)

func TestDeduplicate_ThresholdBoundary(t *testing.T) {
	a := rec("a", "1", "Company", "Acme Holdings", 0.5, nil)
	b := rec("b", "1", "Company", "Acme Holdings Group", 0.6, nil)
	sim := evidence.Similarity(a.Name, b.Name)
	require.InDelta(t, 2.0/3.0, sim, 1e-9)

	assert.Len(t, Deduplicate([]evidence.Record{a, b}, sim), 1, "similarity equal to threshold merges")
	assert.Len(t, Deduplicate([]evidence.Record{a, b}, sim+1e-6), 2, "just above similarity keeps both")
	assert.Len(t, Deduplicate([]evidence.Record{a, b}, 0.5), 1)
	assert.Len(t, Deduplicate([]evidence.Record{a, b}, DefaultThreshold), 2)
	assert.Len(t, Deduplicate([]evidence.Record{a, b}, 0), 2, "zero falls back to default threshold")
}

func TestDeduplicate_Identifiers(t *testing.T) {
	x := rec("gleif", "1", "Company", "Acme Holdings", 0.9, map[string][]string{"leiCode": {"AAA"}})
	conflict := rec("opencorporates", "1", "Company", "Acme Holdings", 0.9, map[string][]string{"leiCode": {"BBB"}})
	renamed := rec("opencorporates", "2", "LegalEntity", "Acme Group Plc", 0.4, map[string][]string{"leiCode": {"aaa"}})

	out := Deduplicate([]evidence.Record{x, conflict}, 0.85)
	assert.Len(t, out, 2, "conflicting authority identifiers never merge")

	out = Deduplicate([]evidence.Record{x, renamed}, 0.85)
	require.Len(t, out, 1, "matching authority identifier forces a merge")
	assert.Equal(t, []string{"gleif", "opencorporates"}, out[0].Sources())
	assert.Contains(t, out[0].Properties["alias"], "Acme Group Plc")
}

func TestDeduplicate_SameSourceKeptApart(t *testing.T) {
	p1 := rec("opensanctions", "Q1", "Person", "John Smith", 0.9, nil)
	p2 := rec("opensanctions", "Q2", "Person", "John Smith", 0.8, nil)
	assert.Len(t, Deduplicate([]evidence.Record{p1, p2}, 0.85), 2)
}

func TestDeduplicate_SchemaMustMatch(t *testing.T) {
	c := rec("a", "1", "Company", "Jordan", 0.9, nil)
	p := rec("b", "1", "Person", "Jordan", 0.9, nil)
	assert.Len(t, Deduplicate([]evidence.Record{c, p}, 0.85), 2)
}

// 任意两条跨来源、同 schema、相似度达到阈值的记录合并后只剩一条，且来源同时列出两者
func TestDeduplicate_PairsAboveThresholdProperty(t *testing.T) {
	names := [][2]string{
		{"Acme Holdings Ltd", "ACME HOLDINGS LIMITED"},
		{"Viktor Petrov", "Petrov Viktor"},
		{"Banco Nacional S.A.", "Banco Nacional"},
		{"Globex Corporation", "Globex Corp."},
		{"Smith & Co", "SMITH"},
		{"Blue Ocean Shipping Pte", "Blue Ocean Shipping"},
	}
	for i, pair := range names {
		schema := "Company"
		if i == 1 {
			schema = "Person"
		}
		a := rec("src1", fmt.Sprint(i), schema, pair[0], 0.4, nil)
		b := rec("src2", fmt.Sprint(i), schema, pair[1], 0.7, nil)
		sim := evidence.Similarity(pair[0], pair[1])
		for _, th := range []float64{0.5, 0.85, 1.0} {
			if sim < th {
				continue
			}
			out := Deduplicate([]evidence.Record{a, b}, th)
			require.Len(t, out, 1, "%v @%.2f", pair, th)
			assert.ElementsMatch(t, []string{"src1", "src2"}, out[0].Sources())
			assert.Equal(t, 0.7, out[0].Confidence)
		}
	}
}

func TestDeduplicate_BestGroupWins(t *testing.T) {
	g1 := rec("a", "1", "Company", "Northern Trading", 0.5, nil)
	g2 := rec("a", "2", "Company", "Northern Trading House", 0.5, nil)
	r := rec("b", "1", "Company", "Northern Trading House Ltd", 0.5, nil)
	out := Deduplicate([]evidence.Record{g1, g2, r}, 0.6)
	require.Len(t, out, 2)
	assert.Equal(t, []string{"a"}, out[0].Sources())
	assert.Equal(t, []string{"a", "b"}, out[1].Sources())
}
