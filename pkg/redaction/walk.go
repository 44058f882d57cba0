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

// RedactValue 深度遍历 JSON 形态的值（map / slice / string），返回脱敏后的副本
func (s *Scanner) RedactValue(v interface{}) (interface{}, Counts) {
	counts := Counts{}
	out := s.walk(v, counts)
	return out, counts
}

// DetectValue 只统计命中，不返回副本
func (s *Scanner) DetectValue(v interface{}) Counts {
	_, counts := s.RedactValue(v)
	return counts
}

func (s *Scanner) walk(v interface{}, counts Counts) interface{} {
	switch t := v.(type) {
	case string:
		red, c := s.Redact(t)
		merge(counts, c)
		return red
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = s.walk(val, counts)
		}
		return m
	case []interface{}:
		arr := make([]interface{}, len(t))
		for i, val := range t {
			arr[i] = s.walk(val, counts)
		}
		return arr
	case []string:
		arr := make([]string, len(t))
		for i, val := range t {
			red, c := s.Redact(val)
			merge(counts, c)
			arr[i] = red
		}
		return arr
	case map[string]string:
		m := make(map[string]string, len(t))
		for k, val := range t {
			red, c := s.Redact(val)
			merge(counts, c)
			m[k] = red
		}
		return m
	case map[string][]string:
		m := make(map[string][]string, len(t))
		for k, vals := range t {
			m[k] = s.walk(vals, counts).([]string)
		}
		return m
	default:
		return v
	}
}

func merge(dst, src Counts) {
	for k, v := range src {
		dst[k] += v
	}
}
