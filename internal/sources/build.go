package sources

import (
	"context"
	"fmt"
	"sort"

	"osint-platform/internal/federation"
	"osint-platform/internal/ratecache"
	"osint-platform/pkg/config"
	"osint-platform/pkg/log"
	"osint-platform/pkg/secrets"
)

// Build 按配置构造所有启用的数据源，按名称排序返回
func Build(ctx context.Context, cfg *config.Config, store secrets.Store, logger *log.Logger) ([]federation.Adapter, error) {
	logger = log.OrNop(logger)
	names := make([]string, 0, len(cfg.Sources))
	for name := range cfg.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []federation.Adapter
	for _, name := range names {
		sc := cfg.Sources[name]
		if !sc.Enabled {
			continue
		}
		policy := ratecache.Policy{
			Rate:         sc.Rate,
			Burst:        sc.Burst,
			MonthlyLimit: sc.MonthlyLimit,
			CacheTTL:     sc.CacheTTL,
			MaxWait:      cfg.Federation.MaxWait,
		}
		if policy.CacheTTL <= 0 {
			policy.CacheTTL = cfg.Federation.CacheTTL
		}
		var extra []string
		if sc.Sanctions {
			extra = append(extra, federation.TagSanctions)
		}
		if sc.News {
			extra = append(extra, federation.TagNews)
		}

		switch sc.Kind {
		case "static":
			if sc.Fixture == "" {
				return nil, fmt.Errorf("source %s: static source requires fixture", name)
			}
			fx, err := LoadFixture(sc.Fixture)
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", name, err)
			}
			out = append(out, NewStaticSource(name, fx, policy, sc.Timeout, extra...))
		case "", "http":
			m, ok := Builtin[name]
			if !ok {
				return nil, fmt.Errorf("source %s: 未知数据源，无内置映射", name)
			}
			key, err := secrets.Resolve(ctx, store, sc.APIKey)
			if err != nil {
				return nil, fmt.Errorf("source %s: 解析 api key 失败: %w", name, err)
			}
			out = append(out, NewHTTPSource(name, m, HTTPOptions{
				BaseURL:    sc.BaseURL,
				APIKey:     key,
				Timeout:    sc.Timeout,
				Policy:     policy,
				ExtraTags:  extra,
				RetryCount: 1,
			}))
		default:
			return nil, fmt.Errorf("source %s: unsupported kind %q", name, sc.Kind)
		}
		logger.Debug("数据源已构建", "source", name, "kind", sc.Kind, "monthly_limit", sc.MonthlyLimit)
	}
	return out, nil
}
