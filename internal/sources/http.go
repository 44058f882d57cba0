// Package sources 提供各外部数据源的适配器
package sources

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"osint-platform/internal/evidence"
	"osint-platform/internal/federation"
	"osint-platform/internal/ratecache"
	"osint-platform/pkg/errors"
)

// HTTPOptions HTTP 数据源运行参数
type HTTPOptions struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	Policy     ratecache.Policy
	ExtraTags  []string
	RetryCount int
	Client     *resty.Client // 为空时新建
	Now        func() time.Time
}

// HTTPSource 基于 resty + gjson 的通用数据源适配器
type HTTPSource struct {
	name    string
	mapping Mapping
	opts    HTTPOptions
	client  *resty.Client
}

// NewHTTPSource 创建 HTTP 数据源
func NewHTTPSource(name string, m Mapping, opts HTTPOptions) *HTTPSource {
	if opts.BaseURL == "" {
		opts.BaseURL = m.DefaultBaseURL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	client := opts.Client
	if client == nil {
		client = resty.New()
		client.SetRetryCount(opts.RetryCount)
		client.SetRetryWaitTime(200 * time.Millisecond)
		client.AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r.StatusCode() >= 500
		})
	}
	client.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	client.SetHeader("Accept", "application/json")
	return &HTTPSource{name: name, mapping: m, opts: opts, client: client}
}

func (s *HTTPSource) Name() string             { return s.name }
func (s *HTTPSource) Policy() ratecache.Policy { return s.opts.Policy }
func (s *HTTPSource) Timeout() time.Duration   { return s.opts.Timeout }

// Tags 映射自带标签加上配置追加的标签
func (s *HTTPSource) Tags() []string {
	out := append([]string(nil), s.mapping.Tags...)
	return append(out, s.opts.ExtraTags...)
}

// Query 发请求并解析为证据记录
func (s *HTTPSource) Query(ctx context.Context, q federation.Query) ([]evidence.Record, error) {
	m := s.mapping
	op := "source." + s.name
	req := s.client.R().SetContext(ctx)

	params := map[string]string{m.QueryParam: q.Text}
	if m.LimitParam != "" && q.Limit > 0 {
		params[m.LimitParam] = strconv.Itoa(q.Limit)
	}
	if m.KindParam != "" {
		if v, ok := m.KindValues[q.Kind]; ok {
			params[m.KindParam] = v
		}
	}
	for k, v := range m.ExtraParams {
		params[k] = v
	}
	if s.opts.APIKey != "" {
		switch {
		case m.AuthParam != "":
			params[m.AuthParam] = s.opts.APIKey
		case m.AuthHeader != "":
			req.SetHeader(m.AuthHeader, m.AuthPrefix+s.opts.APIKey)
		case m.AuthBasic:
			req.SetBasicAuth(s.opts.APIKey, "")
		}
	}
	req.SetQueryParams(params)

	method := m.Method
	if method == "" {
		method = resty.MethodGet
	}
	resp, err := req.Execute(method, m.Endpoint)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.E(errors.CodeTimeout, op, ctx.Err())
		}
		return nil, errors.E(errors.CodeSourceUnavailable, op, err)
	}
	switch code := resp.StatusCode(); {
	case code == http.StatusTooManyRequests:
		return nil, errors.New(errors.CodeRateLimited, op, "upstream returned 429")
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return nil, errors.Newf(errors.CodeSourceUnavailable, op, "unauthorized (%d)", code)
	case code >= 400:
		return nil, errors.Newf(errors.CodeSourceUnavailable, op, "upstream status %d", code)
	}
	return s.parse(resp.Body())
}

// parse 按映射解析响应体
func (s *HTTPSource) parse(body []byte) ([]evidence.Record, error) {
	m := s.mapping
	op := "source." + s.name
	if !gjson.ValidBytes(body) {
		return nil, errors.New(errors.CodeSourceUnavailable, op, "malformed response: invalid json")
	}
	root := gjson.ParseBytes(body)
	results := root.Get(m.ResultsPath)
	if !results.Exists() {
		return []evidence.Record{}, nil
	}
	if !results.IsArray() {
		return nil, errors.Newf(errors.CodeSourceUnavailable, op, "malformed response: %s is not an array", m.ResultsPath)
	}
	now := s.opts.Now()
	var out []evidence.Record
	for i, item := range results.Array() {
		name := strings.TrimSpace(item.Get(m.NamePath).String())
		if name == "" {
			continue
		}
		id := item.Get(m.IDPath).String()
		if id == "" {
			id = strconv.Itoa(i)
		}
		schema := m.DefaultSchema
		if m.SchemaPath != "" {
			if raw := item.Get(m.SchemaPath).String(); raw != "" {
				schema = raw
				if mapped, ok := m.SchemaValues[raw]; ok {
					schema = mapped
				}
			}
		}
		if schema == "" {
			schema = evidence.SchemaLegalEntity
		}
		conf := m.DefaultConfidence
		if m.ScorePath != "" {
			if sc := item.Get(m.ScorePath); sc.Exists() {
				conf = sc.Float()
			}
		}
		props := map[string][]string{}
		if m.PropertiesObject != "" {
			item.Get(m.PropertiesObject).ForEach(func(k, v gjson.Result) bool {
				props[k.String()] = values(v)
				return true
			})
		}
		for prop, path := range m.PropertyPaths {
			if vals := values(item.Get(path)); len(vals) > 0 {
				props[prop] = vals
			}
		}
		out = append(out, evidence.New(s.name, id, schema, name, props, conf, now))
	}
	return out, nil
}

// values 数组展开为字符串列表，标量为单元素列表，空值返回 nil
func values(v gjson.Result) []string {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	if v.IsArray() {
		var out []string
		for _, x := range v.Array() {
			if s := strings.TrimSpace(x.String()); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if v.IsObject() {
		return []string{v.Raw}
	}
	if s := strings.TrimSpace(v.String()); s != "" {
		return []string{s}
	}
	return nil
}

// String 便于日志输出
func (s *HTTPSource) String() string {
	return fmt.Sprintf("%s(%s)", s.name, s.opts.BaseURL)
}
