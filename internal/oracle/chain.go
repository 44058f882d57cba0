package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Chain 按顺序尝试多个 Oracle，返回第一个成功的结果；失败调用产生的成本会累加到结果中
type Chain struct {
	oracles []Oracle
}

// NewChain 创建 Chain；末尾不需要显式追加 Stub
func NewChain(oracles ...Oracle) *Chain {
	return &Chain{oracles: oracles}
}

// Name 实现 Oracle
func (c *Chain) Name() string {
	names := make([]string, 0, len(c.oracles))
	for _, o := range c.oracles {
		names = append(names, o.Name())
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

// Len 链长度
func (c *Chain) Len() int { return len(c.oracles) }

// Decide 实现 Oracle
func (c *Chain) Decide(ctx context.Context, in Context) (Decision, error) {
	var spent Cost
	var errs []error
	for _, o := range c.oracles {
		if err := ctx.Err(); err != nil {
			return Decision{Cost: spent}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		d, err := o.Decide(ctx, in)
		spent = spent.Add(d.Cost)
		if err == nil {
			d.Cost = spent
			return d, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", o.Name(), err))
	}
	return Decision{Cost: spent}, unavailableFrom(errs)
}

// Synthesize 实现 Oracle
func (c *Chain) Synthesize(ctx context.Context, brief Brief) (string, Cost, error) {
	var spent Cost
	var errs []error
	for _, o := range c.oracles {
		text, cost, err := o.Synthesize(ctx, brief)
		spent = spent.Add(cost)
		if err == nil {
			return text, spent, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", o.Name(), err))
	}
	return "", spent, unavailableFrom(errs)
}

func unavailableFrom(errs []error) error {
	if len(errs) == 0 {
		return ErrUnavailable
	}
	joined := errors.Join(errs...)
	if errors.Is(joined, ErrUnavailable) {
		return joined
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, joined)
}
