package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable 提供商不可达、鉴权失败或返回无法解析的响应
var ErrUnavailable = errors.New("llm unavailable")

// Client LLM 客户端接口
type Client interface {
	// Complete 对话补全，返回文本与 token 用量
	Complete(ctx context.Context, messages []Message, options GenerateOptions) (*Response, error)
	// Model 返回模型名称
	Model() string
	// Provider 返回提供商名称
	Provider() string
}

// GenerateOptions 生成选项
type GenerateOptions struct {
	Temperature float64  `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
	Stop        []string `json:"stop,omitempty"`
	// JSON 请求提供商以 JSON 对象输出（支持时）
	JSON bool `json:"json,omitempty"`
}

// Message 聊天消息
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// System 构造 system 消息
func System(content string) Message { return Message{Role: "system", Content: content} }

// User 构造 user 消息
func User(content string) Message { return Message{Role: "user", Content: content} }

// Response 补全结果
type Response struct {
	Text         string  `json:"text"`
	Model        string  `json:"model"`
	Provider     string  `json:"provider"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Options 客户端构造参数
type Options struct {
	Model   string
	APIKey  string
	BaseURL string
	Pricing Pricing
}

// NewClient 按提供商创建客户端；qwen 等 OpenAI 兼容端点走 openai 实现
func NewClient(provider string, opts Options) (Client, error) {
	switch provider {
	case "openai", "qwen", "deepseek":
		return NewOpenAIClient(provider, opts), nil
	case "anthropic", "claude":
		return NewClaudeClient(opts), nil
	case "ollama":
		return NewOllamaClient(opts), nil
	case "stub":
		return NewStubClient(), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", provider)
	}
}

func unavailable(provider string, err error) error {
	return fmt.Errorf("%s: %w: %v", provider, ErrUnavailable, err)
}
