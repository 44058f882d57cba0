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

	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// EinoClient 基于 eino ChatModel 的客户端
type EinoClient struct {
	chat    einomodel.BaseChatModel
	model   string
	pricing Pricing
}

// NewEinoOpenAIClient 用 eino-ext OpenAI ChatModel 创建客户端
func NewEinoOpenAIClient(ctx context.Context, opts Options) (*EinoClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("eino provider api_key not configured")
	}
	cfg := &openai.ChatModelConfig{
		Model:  opts.Model,
		APIKey: opts.APIKey,
	}
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	chatModel, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("创建 OpenAI ChatModel failed: %w", err)
	}
	return NewEinoClient(chatModel, opts.Model, opts.Pricing), nil
}

// NewEinoClient 包装任意 eino ChatModel
func NewEinoClient(chat einomodel.BaseChatModel, model string, pricing Pricing) *EinoClient {
	return &EinoClient{chat: chat, model: model, pricing: pricing}
}

// Complete 调用 ChatModel.Generate
func (c *EinoClient) Complete(ctx context.Context, messages []Message, options GenerateOptions) (*Response, error) {
	in := make([]*schema.Message, 0, len(messages))
	for _, m := range messages {
		in = append(in, &schema.Message{Role: toRole(m.Role), Content: m.Content})
	}
	callOpts := []einomodel.Option{einomodel.WithTemperature(float32(options.Temperature))}
	if options.MaxTokens > 0 {
		callOpts = append(callOpts, einomodel.WithMaxTokens(options.MaxTokens))
	}
	if len(options.Stop) > 0 {
		callOpts = append(callOpts, einomodel.WithStop(options.Stop))
	}
	out, err := c.chat.Generate(ctx, in, callOpts...)
	if err != nil {
		return nil, unavailable("eino", err)
	}
	if out == nil || out.Content == "" {
		return nil, unavailable("eino", fmt.Errorf("没有返回结果"))
	}
	resp := &Response{Text: out.Content, Model: c.model, Provider: "eino"}
	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		resp.InputTokens = out.ResponseMeta.Usage.PromptTokens
		resp.OutputTokens = out.ResponseMeta.Usage.CompletionTokens
	}
	resp.CostUSD = c.pricing.Cost(resp.InputTokens, resp.OutputTokens)
	return resp, nil
}

// Model 返回模型名称
func (c *EinoClient) Model() string { return c.model }

// Provider 返回提供商名称
func (c *EinoClient) Provider() string { return "eino" }

func toRole(role string) schema.RoleType {
	switch role {
	case "system":
		return schema.System
	case "assistant":
		return schema.Assistant
	default:
		return schema.User
	}
}
