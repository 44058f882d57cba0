package llm

import (
	"context"
	"fmt"
)

// StubClient 未配置任何提供商时使用，始终不可用
type StubClient struct{}

// NewStubClient 创建 StubClient
func NewStubClient() *StubClient { return &StubClient{} }

// Complete 始终返回 ErrUnavailable
func (StubClient) Complete(context.Context, []Message, GenerateOptions) (*Response, error) {
	return nil, unavailable("stub", fmt.Errorf("no provider configured"))
}

// Model 返回模型名称
func (StubClient) Model() string { return "stub" }

// Provider 返回提供商名称
func (StubClient) Provider() string { return "stub" }
