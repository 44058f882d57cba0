package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"osint-platform/internal/app"
	"osint-platform/internal/runtime/session"
)

func newInvestigateCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "investigate <goal>",
		Short: "Run a new investigation",
		Long:  "Run an investigation for a natural-language goal. The session is saved to the configured store and the report is printed.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			maxTurns, _ := cmd.Flags().GetInt("max-turns")
			out, _ := cmd.Flags().GetString("out")
			goal := strings.TrimSpace(strings.Join(args, " "))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return o.withBootstrap(ctx, func(b *app.Bootstrap) error {
				s, err := b.Agent.NewSession(goal, maxTurns)
				if err != nil {
					return err
				}
				s, err = b.Agent.Run(ctx, s)
				if err != nil {
					return err
				}
				return o.finishSession(ctx, cmd.OutOrStdout(), b, s, out)
			})
		},
	}
	cmd.Flags().IntP("max-turns", "t", 0, "Turn budget (default: agent.max_turns)")
	cmd.Flags().StringP("out", "o", "", "Write the redacted session export to this file")
	return cmd
}

func newResumeCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume <session-id>",
		Short: "Continue a saved running session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return o.withBootstrap(ctx, func(b *app.Bootstrap) error {
				s, err := b.Sessions.Load(ctx, args[0])
				if err != nil {
					return err
				}
				s, err = b.Agent.Resume(ctx, s)
				if err != nil {
					return err
				}
				return o.finishSession(ctx, cmd.OutOrStdout(), b, s, out)
			})
		},
	}
	cmd.Flags().StringP("out", "o", "", "Write the redacted session export to this file")
	return cmd
}

// finishSession 保存会话、按需写出脱敏导出并打印结果
func (o *rootOptions) finishSession(ctx context.Context, w io.Writer, b *app.Bootstrap, s *session.Session, out string) error {
	ctx = context.WithoutCancel(ctx)
	if err := b.Sessions.Save(ctx, s); err != nil {
		return fmt.Errorf("保存会话失败: %w", err)
	}
	if out != "" {
		data, err := publishExport(ctx, b, s)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("写入导出文件失败: %w", err)
		}
	}
	if o.format == "json" {
		return printJSON(w, s.Summary())
	}
	fmt.Fprintln(w, s.Report)
	sum := s.Summary()
	fmt.Fprintf(w, "\nsession %s: %s after %d turns, %d entities, %d findings, %d open leads, $%.4f\n",
		sum.ID, sum.Status, sum.Turns, sum.EntityCount, sum.FindingCount, sum.LeadsOpen, sum.CostUSD)
	return nil
}

// publishExport 会话导出跨越发布边界，经一个独立的安全闸脱敏
func publishExport(ctx context.Context, b *app.Bootstrap, s *session.Session) ([]byte, error) {
	raw, err := s.Export()
	if err != nil {
		return nil, err
	}
	h := b.HarnessFactory()()
	for _, e := range s.EntityList() {
		if e.IsPerson() {
			h.AddKnownNames(e.Name)
		}
	}
	data, err := h.PublishJSON(ctx, "session_export", json.RawMessage(raw))
	if err != nil {
		return nil, fmt.Errorf("导出脱敏失败: %w", err)
	}
	return data, nil
}
