package evidence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"Acme Holdings Ltd.":        "acme holdings",
		"  ACME   HOLDINGS LIMITED": "acme holdings",
		"Rosneft Oil Company PLC":   "rosneft oil",
		"Siemens AG":                "siemens",
		"Banco S.A.":                "banco",
		"Smith & Co":                "smith",
		"Johnson & Johnson":         "johnson & johnson",
		"Ltd":                       "ltd",
		"Müller GmbH":               "müller",
		"":                          "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeName(in), in)
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Acme Holdings Ltd", "ACME HOLDINGS LIMITED"))
	assert.InDelta(t, 2.0/3.0, Similarity("Acme Holdings", "Acme Holdings Group"), 1e-9)
	assert.Equal(t, 0.0, Similarity("Acme", "Globex"))
	assert.Equal(t, 0.0, Similarity("", "Acme"))
	// 词序不影响
	assert.Equal(t, 1.0, Similarity("Petrov Viktor", "Viktor Petrov"))
}

func TestCompareIdentifiers(t *testing.T) {
	now := time.Now()
	a := New("gleif", "1", SchemaCompany, "Acme", map[string][]string{"leiCode": {"5493-00ABC"}}, 0.9, now)
	b := New("opencorporates", "2", SchemaCompany, "Acme", map[string][]string{"leiCode": {"549300abc"}}, 0.8, now)
	c := New("opencorporates", "3", SchemaCompany, "Acme", map[string][]string{"leiCode": {"999"}}, 0.8, now)
	d := New("icij", "4", SchemaCompany, "Acme", nil, 0.5, now)

	assert.Equal(t, IDMatch, CompareIdentifiers(a, b))
	assert.Equal(t, IDConflict, CompareIdentifiers(a, c))
	assert.Equal(t, IDUnknown, CompareIdentifiers(a, d))
}

func TestRecordHelpers(t *testing.T) {
	r := New("opensanctions", "Q1", SchemaPerson, "Viktor Petrov",
		map[string][]string{"topics": {"sanction.linked", "pep"}}, 1.3, time.Now())
	assert.Equal(t, 1.0, r.Confidence)
	assert.Equal(t, "opensanctions:Q1", r.ID)
	assert.True(t, r.HasTopic("sanction"))
	assert.True(t, r.HasTopic("pep"))
	assert.False(t, r.HasTopic("crime"))
	assert.True(t, r.IsPerson())
	assert.Equal(t, []string{"opensanctions"}, r.Sources())

	c := r.Clone()
	c.Properties["topics"][0] = "changed"
	assert.Equal(t, "sanction.linked", r.Properties["topics"][0])
	assert.True(t, SameSchemaFamily(SchemaCompany, SchemaLegalEntity))
	assert.False(t, SameSchemaFamily(SchemaCompany, SchemaPerson))
}

func TestMergeProperties(t *testing.T) {
	dst := map[string][]string{"country": {"us"}}
	MergeProperties(dst, map[string][]string{"country": {"us", "gb"}, "leiCode": {"X"}})
	assert.Equal(t, []string{"us", "gb"}, dst["country"])
	assert.Equal(t, []string{"X"}, dst["leiCode"])
}
