package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// OllamaClient 本地 Ollama 客户端（/api/chat，非流式）
type OllamaClient struct {
	model   string
	baseURL string
	client  *resty.Client
}

// NewOllamaClient 创建 Ollama 客户端；本地模型不计费
func NewOllamaClient(opts Options) *OllamaClient {
	if opts.Model == "" {
		opts.Model = "llama3.1"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:11434"
	}
	client := resty.New()
	client.SetTimeout(120 * time.Second)
	return &OllamaClient{model: opts.Model, baseURL: opts.BaseURL, client: client}
}

// Complete 调用 /api/chat
func (c *OllamaClient) Complete(ctx context.Context, messages []Message, options GenerateOptions) (*Response, error) {
	request := map[string]interface{}{
		"model":    c.model,
		"messages": messages,
		"stream":   false,
		"options": map[string]interface{}{
			"temperature": options.Temperature,
			"num_predict": options.MaxTokens,
		},
	}
	if options.JSON {
		request["format"] = "json"
	}
	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		PromptEvalCount int `json:"prompt_eval_count"`
		EvalCount       int `json:"eval_count"`
	}
	response, err := c.client.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&result).
		ForceContentType("application/json").
		Post(c.baseURL + "/api/chat")
	if err != nil {
		return nil, unavailable("ollama", err)
	}
	if response.StatusCode() != http.StatusOK {
		return nil, unavailable("ollama", fmt.Errorf("status %d", response.StatusCode()))
	}
	return &Response{
		Text:         result.Message.Content,
		Model:        c.model,
		Provider:     "ollama",
		InputTokens:  result.PromptEvalCount,
		OutputTokens: result.EvalCount,
	}, nil
}

// Model 返回模型名称
func (c *OllamaClient) Model() string { return c.model }

// Provider 返回提供商名称
func (c *OllamaClient) Provider() string { return "ollama" }
