package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const anthropicVersion = "2023-06-01"

// ClaudeClient Anthropic Messages API 客户端
type ClaudeClient struct {
	model   string
	apiKey  string
	baseURL string
	pricing Pricing
	client  *resty.Client
}

// NewClaudeClient 创建 Anthropic 客户端
func NewClaudeClient(opts Options) *ClaudeClient {
	if opts.Model == "" {
		opts.Model = "claude-3-5-haiku-latest"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.anthropic.com/v1"
		if envURL := os.Getenv("ANTHROPIC_BASE_URL"); envURL != "" {
			opts.BaseURL = envURL
		}
	}

	client := resty.New()
	client.SetTimeout(60 * time.Second)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(1 * time.Second)
	client.SetRetryMaxWaitTime(5 * time.Second)

	return &ClaudeClient{
		model:   opts.Model,
		apiKey:  opts.APIKey,
		baseURL: opts.BaseURL,
		pricing: opts.Pricing,
		client:  client,
	}
}

// Complete 调用 /messages；system 消息合并到顶层 system 字段
func (c *ClaudeClient) Complete(ctx context.Context, messages []Message, options GenerateOptions) (*Response, error) {
	var system []string
	msgs := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		msgs = append(msgs, m)
	}
	maxTokens := options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	request := map[string]interface{}{
		"model":       c.model,
		"messages":    msgs,
		"max_tokens":  maxTokens,
		"temperature": options.Temperature,
	}
	if len(system) > 0 {
		request["system"] = strings.Join(system, "\n\n")
	}
	if len(options.Stop) > 0 {
		request["stop_sequences"] = options.Stop
	}

	var result struct {
		Model   string `json:"model"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-api-key", c.apiKey).
		SetHeader("anthropic-version", anthropicVersion).
		SetBody(request).
		SetResult(&result).
		ForceContentType("application/json").
		Post(c.baseURL + "/messages")
	if err != nil {
		return nil, unavailable("anthropic", err)
	}
	if response.StatusCode() != http.StatusOK {
		return nil, unavailable("anthropic", fmt.Errorf("status %d: %s", response.StatusCode(), truncate(response.String(), 200)))
	}

	var text strings.Builder
	for _, part := range result.Content {
		if part.Type == "" || part.Type == "text" {
			text.WriteString(part.Text)
		}
	}
	if text.Len() == 0 {
		return nil, unavailable("anthropic", fmt.Errorf("没有返回结果"))
	}
	model := result.Model
	if model == "" {
		model = c.model
	}
	return &Response{
		Text:         text.String(),
		Model:        model,
		Provider:     "anthropic",
		InputTokens:  result.Usage.InputTokens,
		OutputTokens: result.Usage.OutputTokens,
		CostUSD:      c.pricing.Cost(result.Usage.InputTokens, result.Usage.OutputTokens),
	}, nil
}

// Model 返回模型名称
func (c *ClaudeClient) Model() string { return c.model }

// Provider 返回提供商名称
func (c *ClaudeClient) Provider() string { return "anthropic" }
