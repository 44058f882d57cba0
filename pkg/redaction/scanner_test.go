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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanner_ContactLine(t *testing.T) {
	s := NewScanner()
	out, counts := s.Redact("Contact John at john@example.com or 555-123-4567")
	assert.NotContains(t, out, "john@example.com")
	assert.NotContains(t, out, "555-123-4567")
	assert.Contains(t, out, "REDACTED")
	assert.Equal(t, 1, counts[KindEmail])
	assert.Equal(t, 1, counts[KindPhone])
}

func TestScanner_Identifiers(t *testing.T) {
	s := NewScanner()
	cases := []struct {
		in   string
		kind Kind
		gone string
	}{
		{"SSN: 123-45-6789", KindSSN, "123-45-6789"},
		{"card 4111 1111 1111 1111 on file", KindCard, "4111 1111 1111 1111"},
		{"wire to GB82 WEST 1234 5698 7654 32", KindIBAN, "GB82 WEST"},
		{"account no: 12345678 at the bank", KindAccount, "12345678"},
		{"lives at 221 Baker Street in London", KindAddress, "221 Baker Street"},
		{"signed by Mr. Alan Turing", KindName, "Alan Turing"},
		{"call +44 207 946 0958", KindPhone, "946 0958"},
	}
	for _, c := range cases {
		out, counts := s.Redact(c.in)
		assert.NotContains(t, out, c.gone, c.in)
		assert.Equal(t, 1, counts[c.kind], c.in)
		assert.Contains(t, out, Mask(c.kind), c.in)
	}
}

func TestScanner_LeavesCompanyFactsAlone(t *testing.T) {
	s := NewScanner()
	in := "Acme Corporation registered in Delaware in 2005"
	out, counts := s.Redact(in)
	assert.Equal(t, in, out)
	assert.Zero(t, counts.Total())
}

func TestScanner_CardFailingLuhnIsKept(t *testing.T) {
	s := NewScanner()
	in := "registration 4111111111111112"
	out, _ := s.Redact(in)
	assert.Equal(t, in, out)
}

func TestScanner_KnownNames(t *testing.T) {
	s := NewScanner("John Smith").WithNames("Jane Roe", "x", "redacted")
	out, counts := s.Redact("Director john smith and Jane Roe resigned")
	assert.Equal(t, "Director [REDACTED:NAME] and [REDACTED:NAME] resigned", out)
	assert.Equal(t, 2, counts[KindName])
}

func TestScanner_Idempotent(t *testing.T) {
	s := NewScanner("Viktor Petrov")
	inputs := []string{
		"Contact John at john@example.com or 555-123-4567",
		"SSN: 123-45-6789, card 4111-1111-1111-1111, acct # 9988776655",
		"Viktor Petrov lives at 12 Harbour View Road; IBAN DE89 3704 0044 0532 0130 00",
		"Dr. Ada Lovelace, (212) 555-0100",
		"",
	}
	for _, in := range inputs {
		once, _ := s.Redact(in)
		twice, counts := s.Redact(once)
		assert.Equal(t, once, twice, in)
		assert.Zero(t, counts.Total(), in)
	}
}

func TestScanner_DetectValue(t *testing.T) {
	s := NewScanner()
	in := map[string]interface{}{"note": "mail a@b.io"}
	counts := s.DetectValue(in)
	assert.Equal(t, 1, counts[KindEmail])
	assert.Equal(t, []string{"EMAIL"}, counts.Kinds())
	assert.Equal(t, "mail a@b.io", in["note"])
}

func TestScanner_AdjacentPII(t *testing.T) {
	s := NewScanner()
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "card then phone",
			in:   "Card 4111 1111 1111 1111 555-123-4567 on file",
			want: "Card [REDACTED:CARD] [REDACTED:PHONE] on file",
		},
		{
			name: "phone then card",
			in:   "call 555-123-4567 4111-1111-1111-1111",
			want: "call [REDACTED:PHONE] [REDACTED:CARD]",
		},
		{
			name: "two cards",
			in:   "4111111111111111 5500 0000 0000 0004",
			want: "[REDACTED:CARD] [REDACTED:CARD]",
		},
		{
			name: "card then trailing digits",
			in:   "ref 4111 1111 1111 1111 12",
			want: "ref [REDACTED:CARD] 12",
		},
		{
			name: "ssn then card",
			in:   "ids 123-45-6789 4111 1111 1111 1111",
			want: "ids [REDACTED:SSN] [REDACTED:CARD]",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			once, counts := s.Redact(c.in)
			assert.Equal(t, c.want, once)
			assert.NotZero(t, counts[KindCard])
			twice, again := s.Redact(once)
			assert.Equal(t, once, twice)
			assert.Zero(t, again.Total())
		})
	}
}

func TestScanner_RedactValue(t *testing.T) {
	s := NewScanner()
	in := map[string]interface{}{
		"summary": "reach ops@acme.test",
		"items":   []interface{}{"SSN 078-05-1120", 42.0, map[string]interface{}{"phone": "555-867-5309"}},
		"props":   map[string][]string{"email": {"x@y.org"}},
	}
	out, counts := s.RedactValue(in)
	m := out.(map[string]interface{})
	assert.False(t, strings.Contains(m["summary"].(string), "@"))
	items := m["items"].([]interface{})
	assert.Equal(t, "SSN [REDACTED:SSN]", items[0])
	assert.Equal(t, 42.0, items[1])
	assert.Equal(t, Mask(KindPhone), items[2].(map[string]interface{})["phone"])
	assert.Equal(t, []string{Mask(KindEmail)}, m["props"].(map[string][]string)["email"])
	assert.Equal(t, 4, counts.Total())
	// 原值不被修改
	assert.Equal(t, "reach ops@acme.test", in["summary"])
}
