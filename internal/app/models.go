package app

import (
	"context"
	"fmt"

	"osint-platform/internal/model"
	"osint-platform/internal/oracle"
	"osint-platform/pkg/config"
	"osint-platform/pkg/log"
	"osint-platform/pkg/secrets"
)

// NewOracleFromConfig 按 model.llm.chain（为空时用 defaults.llm）构造 oracle 回退链；
// 未配置任何模型时返回 oracle.Stub，调查完全由启发式驱动
func NewOracleFromConfig(ctx context.Context, cfg *config.Config, store secrets.Store, logger *log.Logger) (*model.Registry, oracle.Oracle, error) {
	reg, err := model.FromConfig(ctx, cfg.Model, store)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化模型失败: %w", err)
	}
	if len(cfg.Model.LLM.Chain) == 0 && cfg.Model.Defaults.LLM == "" {
		return reg, oracle.Stub{}, nil
	}
	clients, err := reg.Chain(cfg.Model.LLM.Chain, cfg.Model.Defaults.LLM)
	if err != nil {
		return nil, nil, fmt.Errorf("oracle chain: %w", err)
	}
	oracles := make([]oracle.Oracle, 0, len(clients))
	for _, c := range clients {
		oracles = append(oracles, oracle.NewLLMOracle(c, logger))
	}
	if len(oracles) == 0 {
		return reg, oracle.Stub{}, nil
	}
	return reg, oracle.NewChain(oracles...), nil
}
