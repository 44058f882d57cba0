package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"osint-platform/internal/app"
	"osint-platform/internal/runtime/session"
	"osint-platform/internal/safety"
	"osint-platform/pkg/retention"
)

func newSessionsCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect saved sessions",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List saved sessions",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.withBootstrap(cmd.Context(), func(b *app.Bootstrap) error {
					list, err := b.Sessions.List(cmd.Context())
					if err != nil {
						return err
					}
					if o.format == "json" {
						return printJSON(cmd.OutOrStdout(), list)
					}
					tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tSTATUS\tTURNS\tENTITIES\tCOST\tGOAL")
					for _, s := range list {
						status := string(s.Status)
						if s.Limited {
							status += "*"
						}
						fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t$%.4f\t%s\n", s.ID, status, s.Turns, s.EntityCount, s.CostUSD, s.Goal)
					}
					return tw.Flush()
				})
			},
		},
		&cobra.Command{
			Use:   "show <session-id>",
			Short: "Show a session summary and its report",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.withBootstrap(cmd.Context(), func(b *app.Bootstrap) error {
					s, err := b.Sessions.Load(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					if o.format == "json" {
						return printJSON(cmd.OutOrStdout(), s.Summary())
					}
					printSession(cmd, s)
					return nil
				})
			},
		},
		newSessionsExportCmd(o),
		newSessionsPruneCmd(o),
		&cobra.Command{
			Use:   "verify <session-id>",
			Short: "Verify the hash chain of a session's safety audit trail",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.withBootstrap(cmd.Context(), func(b *app.Bootstrap) error {
					s, err := b.Sessions.Load(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					if err := safety.VerifyTrail(s.Audit); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "audit trail ok: %d entries\n", len(s.Audit))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "import <file>",
			Short: "Import a raw session export into the store",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				s, err := session.Import(data)
				if err != nil {
					return err
				}
				return o.withBootstrap(cmd.Context(), func(b *app.Bootstrap) error {
					if err := b.Sessions.Save(cmd.Context(), s); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), s.ID)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "rm <session-id>",
			Short: "Delete a saved session",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.withBootstrap(cmd.Context(), func(b *app.Bootstrap) error {
					return b.Sessions.Delete(cmd.Context(), args[0])
				})
			},
		},
	)
	return cmd
}

func newSessionsExportCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Print a session export",
		Long:  "Print a session export. By default the export is redacted for publication; --raw keeps every field so the file can be imported and resumed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetBool("raw")
			return o.withBootstrap(cmd.Context(), func(b *app.Bootstrap) error {
				s, err := b.Sessions.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				var data []byte
				if raw {
					data, err = s.Export()
				} else {
					data, err = publishExport(cmd.Context(), b, s)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			})
		},
	}
	cmd.Flags().Bool("raw", false, "Skip redaction (for import and resume)")
	return cmd
}

func printSession(cmd *cobra.Command, s *session.Session) {
	w := cmd.OutOrStdout()
	sum := s.Summary()
	fmt.Fprintf(w, "id:       %s\n", sum.ID)
	fmt.Fprintf(w, "goal:     %s\n", sum.Goal)
	fmt.Fprintf(w, "status:   %s\n", sum.Status)
	if sum.Reason != "" {
		fmt.Fprintf(w, "reason:   %s\n", sum.Reason)
	}
	fmt.Fprintf(w, "turns:    %d/%d\n", sum.Turns, s.TurnBudget)
	fmt.Fprintf(w, "cost:     $%.4f/$%.4f\n", sum.CostUSD, s.CostBudgetUSD)
	fmt.Fprintf(w, "entities: %d  findings: %d  leads: %d open / %d\n", sum.EntityCount, sum.FindingCount, sum.LeadsOpen, sum.LeadsTotal)
	fmt.Fprintf(w, "tools:    %s\n", strings.Join(sum.UniqueTools, ", "))
	if s.Report != "" {
		fmt.Fprintf(w, "\n%s\n", s.Report)
	}
}

func newSessionsPruneCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete sessions past storage.session.retention",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			days, _ := cmd.Flags().GetInt("days")
			return o.withBootstrap(cmd.Context(), func(b *app.Bootstrap) error {
				cfg := b.Config.Storage.Session.Retention
				if days > 0 {
					cfg.RetentionDays = days
				}
				engine := retention.NewEngine(cfg, b.Sessions, b.Sessions)
				var ids []string
				if dryRun {
					expired, err := engine.Expired(cmd.Context())
					if err != nil {
						return err
					}
					for _, c := range expired {
						ids = append(ids, c.ID)
					}
				} else {
					deleted, err := engine.RunRetentionScan(cmd.Context())
					ids = deleted
					if err != nil {
						return err
					}
				}
				if o.format == "json" {
					return printJSON(cmd.OutOrStdout(), ids)
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	}
	cmd.Flags().Bool("dry-run", false, "List expired sessions without deleting")
	cmd.Flags().Int("days", 0, "Override retention_days for this run")
	return cmd
}
