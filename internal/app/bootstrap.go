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

// Package app 统一初始化：由配置装配数据源、联邦检索、工具、安全闸、oracle 与会话存储
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"osint-platform/internal/agent"
	"osint-platform/internal/federation"
	"osint-platform/internal/model"
	"osint-platform/internal/oracle"
	"osint-platform/internal/ratecache"
	"osint-platform/internal/runtime/session"
	"osint-platform/internal/safety"
	"osint-platform/internal/sources"
	"osint-platform/internal/storage/cache"
	"osint-platform/internal/tool"
	"osint-platform/internal/tool/builtin"
	"osint-platform/pkg/config"
	"osint-platform/pkg/log"
	"osint-platform/pkg/metrics"
	"osint-platform/pkg/secrets"
	"osint-platform/pkg/tracing"
)

// Bootstrap 进程级依赖；Controller 与缓存在所有会话间共享
type Bootstrap struct {
	Config     *config.Config
	Logger     *log.Logger
	Secrets    secrets.Store
	Cache      cache.Store
	Controller *ratecache.Controller
	Federation *federation.Federation
	Executor   *tool.Executor
	Watchlist  *builtin.Watchlist
	Models     *model.Registry
	Oracle     oracle.Oracle
	Policy     safety.Policy
	Sessions   *session.Manager
	Agent      *agent.Agent

	closers []func(context.Context) error
}

// NewBootstrap 根据配置创建 Bootstrap；cfg 为 nil 时使用默认配置
func NewBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger, err := log.NewLogger(&log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	b := &Bootstrap{Config: cfg, Logger: logger}

	shutdown, err := tracing.InitTracer(tracing.OTelConfig{
		Enable:         cfg.Monitoring.Tracing.Enable,
		ServiceName:    cfg.Monitoring.Tracing.ServiceName,
		ExportEndpoint: cfg.Monitoring.Tracing.ExportEndpoint,
		Insecure:       cfg.Monitoring.Tracing.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 tracing 失败: %w", err)
	}
	b.closers = append(b.closers, shutdown)

	if err := b.init(ctx); err != nil {
		_ = b.Close(ctx)
		return nil, err
	}
	return b, nil
}

func (b *Bootstrap) init(ctx context.Context) error {
	cfg, logger := b.Config, b.Logger

	store, err := secrets.NewStore(secrets.Config{
		Provider:  cfg.Secrets.Type,
		EnvPrefix: cfg.Secrets.EnvPrefix,
		Values:    cfg.Secrets.Values,
		Vault:     secrets.VaultConfig{Address: cfg.Secrets.VaultAddr, Token: cfg.Secrets.VaultToken, PathPrefix: cfg.Secrets.VaultPath},
	})
	if err != nil {
		return fmt.Errorf("初始化密钥存储失败: %w", err)
	}
	b.Secrets = store

	b.Cache, err = cache.NewCache(ctx, cfg.Cache, cfg.Federation)
	if err != nil {
		return fmt.Errorf("初始化缓存失败: %w", err)
	}
	b.Controller = ratecache.NewController(
		ratecache.WithStore(b.Cache),
		ratecache.WithMaxWait(cfg.Federation.MaxWait),
		ratecache.WithLogger(logger),
	)
	b.closers = append(b.closers, func(context.Context) error { return b.Controller.Close() })

	b.Federation = federation.New(b.Controller, federation.Config{
		Timeout:      cfg.Federation.Timeout,
		DefaultLimit: cfg.Federation.DefaultLimit,
		Dedup:        federation.DedupPolicy{Threshold: cfg.Federation.DedupThreshold, SourcePriority: cfg.Federation.SourcePriority},
	}, logger)
	adapters, err := sources.Build(ctx, cfg, store, logger)
	if err != nil {
		return fmt.Errorf("构建数据源失败: %w", err)
	}
	for _, a := range adapters {
		if err := b.Federation.Register(a); err != nil {
			return err
		}
	}
	// 数据源注册后才能恢复其配额
	if qf := cfg.Federation.QuotaFile; qf != "" {
		if err := loadQuotas(qf, b.Controller); err != nil {
			logger.Warn("读取配额快照失败，从零计数", "file", qf, "error", err)
		}
		b.closers = append(b.closers, func(context.Context) error { return saveQuotas(qf, b.Controller) })
	}

	reg := tool.NewRegistry()
	b.Watchlist = builtin.NewWatchlist()
	builtin.RegisterBuiltin(reg, builtin.Deps{Search: b.Federation, Watchlist: b.Watchlist, Logger: logger})
	b.Executor = tool.NewExecutor(reg, logger)

	b.Models, b.Oracle, err = NewOracleFromConfig(ctx, cfg, store, logger)
	if err != nil {
		return err
	}

	b.Policy, err = safety.PolicyFromConfig(cfg.Safety)
	if err != nil {
		return err
	}

	sessStore, err := session.NewStore(ctx, cfg.Storage.Session)
	if err != nil {
		return fmt.Errorf("初始化会话存储失败: %w", err)
	}
	switch c := sessStore.(type) {
	case io.Closer:
		b.closers = append(b.closers, func(context.Context) error { return c.Close() })
	case interface{ Close() }:
		b.closers = append(b.closers, func(context.Context) error { c.Close(); return nil })
	}
	b.Sessions = session.NewManager(sessStore, session.Budget{Turns: cfg.Agent.MaxTurns, CostUSD: cfg.Agent.CostBudgetUSD})

	b.Agent = agent.New(b.Executor,
		agent.WithOracle(b.Oracle),
		agent.WithHarnessFactory(b.HarnessFactory()),
		agent.WithManager(b.Sessions),
		agent.WithLogger(logger),
		agent.WithConfig(cfg.Agent),
	)
	logger.Info("初始化完成", "sources", b.Federation.Sources(), "oracle", b.Oracle.Name(), "session_store", cfg.Storage.Session.Type)
	return nil
}

// HarnessFactory 每个会话一个安全闸，共享同一策略
func (b *Bootstrap) HarnessFactory() agent.HarnessFactory {
	policy, logger := b.Policy, b.Logger
	return func() *safety.Harness {
		return safety.New(policy, safety.WithLogger(logger))
	}
}

// Close 按创建的逆序释放资源；配置了 metrics_file 时先写出指标
func (b *Bootstrap) Close(ctx context.Context) error {
	var errs []error
	if b.Config != nil && b.Config.Monitoring.MetricsFile != "" {
		if err := metrics.WriteFile(b.Config.Monitoring.MetricsFile); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

func loadQuotas(path string, c *ratecache.Controller) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var snap ratecache.QuotaSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	c.RestoreQuotas(snap)
	return nil
}

func saveQuotas(path string, c *ratecache.Controller) error {
	data, err := json.MarshalIndent(c.SnapshotQuotas(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入配额快照失败: %w", err)
	}
	return nil
}
