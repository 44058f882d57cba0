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
	"regexp"
	"sort"
	"strings"
)

// Kind PII 类别
type Kind string

const (
	KindEmail   Kind = "EMAIL"
	KindPhone   Kind = "PHONE"
	KindSSN     Kind = "SSN"
	KindIBAN    Kind = "IBAN"
	KindCard    Kind = "CARD"
	KindAccount Kind = "ACCOUNT"
	KindAddress Kind = "ADDRESS"
	KindName    Kind = "NAME"
)

// Mask 返回某类别的替换标记，形如 [REDACTED:EMAIL]；标记本身不会再被任何规则命中
func Mask(k Kind) string { return "[REDACTED:" + string(k) + "]" }

// Counts 每类命中次数
type Counts map[Kind]int

// Total 命中总数
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Kinds 命中类别（排序后）
func (c Counts) Kinds() []string {
	out := make([]string, 0, len(c))
	for k, v := range c {
		if v > 0 {
			out = append(out, string(k))
		}
	}
	sort.Strings(out)
	return out
}

type rule struct {
	kind Kind
	re   *regexp.Regexp
	// keep 为保留的前缀子匹配序号（如 "account no: "），0 表示整体替换
	keep int
	// fn 自定义替换，返回替换后文本与命中数
	fn func(string) (string, int)
}

// 顺序有意义：SSN、电话先于卡号，使卡号窗口只落在剩余数字上
var builtinRules = []rule{
	{kind: KindEmail, re: regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)},
	{kind: KindIBAN, re: regexp.MustCompile(`\b[A-Z]{2}\d{2}(?: ?[A-Z0-9]{4}){2,7}(?: ?[A-Z0-9]{1,4})?\b`)},
	{kind: KindSSN, re: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{kind: KindAccount, re: regexp.MustCompile(`(?i)(\b(?:account|acct)(?:\s*(?:number|no\.?|#))?\s*:?\s*)\d{6,17}\b`), keep: 1},
	{kind: KindPhone, re: regexp.MustCompile(`(?:\+\d{1,3}[\s.\-]?)?(?:\(\d{3}\)\s?|\b\d{3}[\s.\-])\d{3}[\s.\-]\d{4}\b`)},
	{kind: KindCard, re: regexp.MustCompile(`\b\d(?:[ -]?\d){12,}\b`), fn: redactCardRun},
	{kind: KindAddress, re: regexp.MustCompile(`\b\d{1,5}\s+(?:[A-Z][a-z]+\s+){1,4}(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Way|Place|Pl|Square|Sq)\b\.?`)},
	{kind: KindName, re: regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Miss|Dr)\.?\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?`)},
}

// Scanner PII 检测与替换；names 为调用方已知的人名（如会话中的 Person 实体）
type Scanner struct {
	rules     []rule
	nameList  []string
	namesExpr *regexp.Regexp
}

// NewScanner 创建 Scanner；names 中长度不足 3 的条目被忽略
func NewScanner(names ...string) *Scanner {
	return &Scanner{rules: builtinRules, nameList: names, namesExpr: compileNames(names)}
}

// WithNames 返回追加人名后的新 Scanner
func (s *Scanner) WithNames(names ...string) *Scanner {
	if len(names) == 0 {
		return s
	}
	all := make([]string, 0, len(s.nameList)+len(names))
	all = append(all, s.nameList...)
	all = append(all, names...)
	return &Scanner{rules: s.rules, nameList: all, namesExpr: compileNames(all)}
}

func compileNames(names []string) *regexp.Regexp {
	seen := map[string]bool{}
	var parts []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if len(n) < 3 || seen[key] || reservedWord(key) {
			continue
		}
		seen[key] = true
		parts = append(parts, regexp.QuoteMeta(n))
	}
	if len(parts) == 0 {
		return nil
	}
	// 长名优先，避免 "John" 先于 "John Smith" 命中
	sort.SliceStable(parts, func(i, j int) bool { return len(parts[i]) > len(parts[j]) })
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(parts, "|") + `)\b`)
}

// reservedWord 掩码中出现的单词不能作为人名，否则二次脱敏会改写掩码
func reservedWord(w string) bool {
	if w == "redacted" {
		return true
	}
	for _, r := range builtinRules {
		if strings.ToLower(string(r.kind)) == w {
			return true
		}
	}
	return w == strings.ToLower(string(KindName))
}

// maxPasses 单次 Redact 的最大扫描轮数；一轮替换可能让相邻的 PII 在下一轮才显露
const maxPasses = 4

// Redact 替换所有命中为掩码，重复扫描直到无新命中；对已脱敏文本再次调用结果不变
func (s *Scanner) Redact(text string) (string, Counts) {
	counts := Counts{}
	out := text
	for i := 0; i < maxPasses; i++ {
		next, c := s.scan(out)
		if c.Total() == 0 {
			break
		}
		merge(counts, c)
		out = next
	}
	return out, counts
}

func (s *Scanner) scan(text string) (string, Counts) {
	counts := Counts{}
	if text == "" {
		return text, counts
	}
	out := text
	if s.namesExpr != nil {
		out = s.namesExpr.ReplaceAllStringFunc(out, func(string) string {
			counts[KindName]++
			return Mask(KindName)
		})
	}
	for _, r := range s.rules {
		r := r
		out = r.re.ReplaceAllStringFunc(out, func(m string) string {
			if r.fn != nil {
				red, n := r.fn(m)
				counts[r.kind] += n
				return red
			}
			counts[r.kind]++
			if r.keep > 0 {
				sub := r.re.FindStringSubmatch(m)
				if len(sub) > r.keep {
					return sub[r.keep] + Mask(r.kind)
				}
			}
			return Mask(r.kind)
		})
	}
	return out, counts
}

// cardLengths 候选窗口长度，常见卡号长度优先
var cardLengths = []int{16, 15, 14, 13, 19, 18, 17}

// redactCardRun 在一段连续数字串（可含空格、连字符）中查找通过 Luhn 校验的 13-19 位窗口。
// 窗口首尾须与数字分组边界对齐，且分组形如卡号（4-4-4-4、4-6-5 或不分组）；整串不受分组限制。
// 未命中的数字原样保留。
func redactCardRun(m string) (string, int) {
	var pos []int
	var digits []byte
	for i := 0; i < len(m); i++ {
		if m[i] >= '0' && m[i] <= '9' {
			pos = append(pos, i)
			digits = append(digits, m[i])
		}
	}
	n := len(pos)
	groupStart := make([]bool, n)
	groupEnd := make([]bool, n)
	for k := range pos {
		groupStart[k] = k == 0 || pos[k-1] != pos[k]-1
		groupEnd[k] = k == n-1 || pos[k+1] != pos[k]+1
	}

	covered := make([]bool, n)
	free := func(i, j int) bool {
		for k := i; k <= j; k++ {
			if covered[k] {
				return false
			}
		}
		return true
	}
	var wins [][2]int
	for _, l := range cardLengths {
		// 同一长度下重叠的有效窗口合并掩码
		var found [][2]int
		for i := 0; i+l <= n; i++ {
			j := i + l - 1
			if !groupStart[i] || !groupEnd[j] || !free(i, j) {
				continue
			}
			if !(i == 0 && j == n-1) && !cardShape(groupSizes(groupEnd, i, j)) {
				continue
			}
			if !luhn(string(digits[i : j+1])) {
				continue
			}
			found = append(found, [2]int{i, j})
		}
		for _, w := range found {
			for k := w[0]; k <= w[1]; k++ {
				covered[k] = true
			}
		}
		wins = append(wins, found...)
	}
	if len(wins) == 0 {
		return m, 0
	}
	sort.Slice(wins, func(a, b int) bool { return wins[a][0] < wins[b][0] })
	merged := wins[:1]
	for _, w := range wins[1:] {
		if cur := &merged[len(merged)-1]; w[0] <= cur[1] {
			cur[1] = max(cur[1], w[1])
			continue
		}
		merged = append(merged, w)
	}
	var b strings.Builder
	last := 0
	for _, w := range merged {
		b.WriteString(m[last:pos[w[0]]])
		b.WriteString(Mask(KindCard))
		last = pos[w[1]] + 1
	}
	b.WriteString(m[last:])
	return b.String(), len(merged)
}

func groupSizes(groupEnd []bool, i, j int) []int {
	var sizes []int
	size := 0
	for k := i; k <= j; k++ {
		size++
		if groupEnd[k] {
			sizes = append(sizes, size)
			size = 0
		}
	}
	return sizes
}

// cardShape 卡号常见分组：不分组、每组 4 位（末组 1-4 位）、4-6-5 / 4-6-4
func cardShape(sizes []int) bool {
	switch {
	case len(sizes) == 1:
		return true
	case len(sizes) == 3 && sizes[0] == 4 && sizes[1] == 6 && (sizes[2] == 5 || sizes[2] == 4):
		return true
	}
	for k, size := range sizes {
		if k < len(sizes)-1 && size != 4 {
			return false
		}
		if size < 1 || size > 4 {
			return false
		}
	}
	return true
}

// luhn 校验卡号
func luhn(s string) bool {
	var digits []int
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits = append(digits, int(r-'0'))
		}
	}
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
