package evidence

import (
	"strings"
	"unicode"
)

// 结尾处被忽略的公司后缀（比较时已去掉 "."）
var corporateSuffixes = map[string]bool{
	"ltd": true, "limited": true, "inc": true, "incorporated": true,
	"corp": true, "corporation": true, "co": true, "company": true,
	"plc": true, "llc": true, "llp": true, "lp": true,
	"ag": true, "sa": true, "gmbh": true, "nv": true, "bv": true, "se": true,
	"srl": true, "sarl": true, "oy": true, "ab": true, "as": true, "aps": true,
	"pty": true, "pte": true, "&": true,
}

// Tokens 名称归一化后的词元：小写、标点拆分、去掉结尾公司后缀（至少保留一个词）
func Tokens(name string) []string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		if r == '&' || r == '.' {
			return false
		}
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	toks := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, ".", "")
		if f != "" {
			toks = append(toks, f)
		}
	}
	for len(toks) > 1 && corporateSuffixes[toks[len(toks)-1]] {
		toks = toks[:len(toks)-1]
	}
	return toks
}

// NormalizeName 归一化名称
func NormalizeName(name string) string {
	return strings.Join(Tokens(name), " ")
}

// Similarity 名称相似度：归一化后相等为 1，否则为词元集合的 Jaccard 系数
func Similarity(a, b string) float64 {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	if strings.Join(ta, " ") == strings.Join(tb, " ") {
		return 1
	}
	sa := make(map[string]bool, len(ta))
	for _, t := range ta {
		sa[t] = true
	}
	sb := make(map[string]bool, len(tb))
	for _, t := range tb {
		sb[t] = true
	}
	inter := 0
	for t := range sa {
		if sb[t] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
