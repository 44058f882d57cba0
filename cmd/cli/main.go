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

// osint 命令行：发起调查、恢复会话、查看会话与数据源状态
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"osint-platform/internal/app"
	"osint-platform/pkg/config"
)

// envConfig 未指定 --config 时读取的环境变量
const envConfig = "OSINT_CONFIG"

// rootOptions 全局参数
type rootOptions struct {
	configPath string
	format     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	root := &cobra.Command{
		Use:           "osint",
		Short:         "Autonomous OSINT investigation agent",
		Long:          "Federated search over sanctions, registry, leak and news sources, driven by an investigation loop with safety controls.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if o.format != "json" && o.format != "text" {
				return fmt.Errorf("--format must be json or text, got %q", o.format)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "Config file (default: $"+envConfig+")")
	root.PersistentFlags().StringVarP(&o.format, "format", "f", "text", "Output format: json or text")

	root.AddCommand(
		newInvestigateCmd(o),
		newResumeCmd(o),
		newSessionsCmd(o),
		newSourcesCmd(o),
	)
	return root
}

// loadConfig 读取配置；fixture 等相对路径相对于配置文件所在目录
func (o *rootOptions) loadConfig() (*config.Config, error) {
	path := o.configPath
	if path == "" {
		path = os.Getenv(envConfig)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if path != "" {
		resolvePaths(cfg, filepath.Dir(path))
	}
	return cfg, nil
}

func resolvePaths(cfg *config.Config, base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	for name, sc := range cfg.Sources {
		sc.Fixture = abs(sc.Fixture)
		cfg.Sources[name] = sc
	}
	cfg.Safety.PolicyFile = abs(cfg.Safety.PolicyFile)
	cfg.Federation.QuotaFile = abs(cfg.Federation.QuotaFile)
	cfg.Monitoring.MetricsFile = abs(cfg.Monitoring.MetricsFile)
	if cfg.Storage.Session.Type == "file" || cfg.Storage.Session.Type == "sqlite" {
		cfg.Storage.Session.Dir = abs(cfg.Storage.Session.Dir)
	}
}

// bootstrap 装配全部依赖；调用方负责 Close
func (o *rootOptions) bootstrap(ctx context.Context) (*app.Bootstrap, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return app.NewBootstrap(ctx, cfg)
}

// withBootstrap 装配依赖、执行 fn 并释放；释放错误只在 fn 成功时返回
func (o *rootOptions) withBootstrap(ctx context.Context, fn func(*app.Bootstrap) error) (err error) {
	b, err := o.bootstrap(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := b.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = fmt.Errorf("释放资源失败: %w", cerr)
		}
	}()
	return fn(b)
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
