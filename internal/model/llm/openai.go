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

package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
)

// OpenAIClient OpenAI 兼容客户端（chat/completions）
type OpenAIClient struct {
	provider string
	model    string
	apiKey   string
	baseURL  string
	pricing  Pricing
	client   *resty.Client
}

// NewOpenAIClient 创建 OpenAI 兼容客户端；BaseURL 为空时用 OPENAI_BASE_URL 或官方地址
func NewOpenAIClient(provider string, opts Options) *OpenAIClient {
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com/v1"
		if envURL := os.Getenv("OPENAI_BASE_URL"); envURL != "" {
			opts.BaseURL = envURL
		}
	}
	if provider == "" {
		provider = "openai"
	}

	client := resty.New()
	client.SetTimeout(60 * time.Second)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(1 * time.Second)
	client.SetRetryMaxWaitTime(5 * time.Second)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err == nil && r.StatusCode() >= http.StatusInternalServerError
	})

	return &OpenAIClient{
		provider: provider,
		model:    opts.Model,
		apiKey:   opts.APIKey,
		baseURL:  opts.BaseURL,
		pricing:  opts.Pricing,
		client:   client,
	}
}

// Complete 调用 chat/completions
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message, options GenerateOptions) (*Response, error) {
	request := map[string]interface{}{
		"model":       c.model,
		"messages":    messages,
		"temperature": options.Temperature,
	}
	if options.MaxTokens > 0 {
		request["max_tokens"] = options.MaxTokens
	}
	if len(options.Stop) > 0 {
		request["stop"] = options.Stop
	}
	if options.JSON {
		request["response_format"] = map[string]string{"type": "json_object"}
	}

	var result struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(c.apiKey).
		SetBody(request).
		SetResult(&result).
		ForceContentType("application/json").
		Post(c.baseURL + "/chat/completions")
	if err != nil {
		return nil, unavailable(c.provider, err)
	}
	if response.StatusCode() != http.StatusOK {
		return nil, unavailable(c.provider, fmt.Errorf("status %d: %s", response.StatusCode(), truncate(response.String(), 200)))
	}
	if len(result.Choices) == 0 {
		return nil, unavailable(c.provider, fmt.Errorf("没有返回结果"))
	}

	model := result.Model
	if model == "" {
		model = c.model
	}
	return &Response{
		Text:         result.Choices[0].Message.Content,
		Model:        model,
		Provider:     c.provider,
		InputTokens:  result.Usage.PromptTokens,
		OutputTokens: result.Usage.CompletionTokens,
		CostUSD:      c.pricing.Cost(result.Usage.PromptTokens, result.Usage.CompletionTokens),
	}, nil
}

// Model 返回模型名称
func (c *OpenAIClient) Model() string { return c.model }

// Provider 返回提供商名称
func (c *OpenAIClient) Provider() string { return c.provider }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
