package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"osint-platform/internal/app"
	"osint-platform/internal/ratecache"
)

// sourceView sources 命令的输出行
type sourceView struct {
	Name  string                `json:"name"`
	Tags  []string              `json:"tags"`
	Stats ratecache.SourceStats `json:"stats"`
}

func newSourcesCmd(o *rootOptions) *cobra.Command {
	var flush []string
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List configured sources with their tags, quota and cache counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withBootstrap(cmd.Context(), func(b *app.Bootstrap) error {
				for _, name := range flush {
					n, err := b.Controller.InvalidateCache(cmd.Context(), name)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "flushed %d cached responses for %s\n", n, name)
				}
				stats := b.Controller.Stats()
				var views []sourceView
				for _, name := range b.Federation.Sources() {
					views = append(views, sourceView{Name: name, Tags: b.Federation.Tags(name), Stats: stats[name]})
				}
				if o.format == "json" {
					return printJSON(cmd.OutOrStdout(), views)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SOURCE\tTAGS\tQUOTA\tCACHE HIT/MISS")
				for _, v := range views {
					quota := "unlimited"
					if v.Stats.QuotaLimit > 0 {
						quota = fmt.Sprintf("%d/%d", v.Stats.QuotaUsed, v.Stats.QuotaLimit)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\n", v.Name, strings.Join(v.Tags, ","), quota, v.Stats.CacheHits, v.Stats.CacheMisses)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringSliceVar(&flush, "flush", nil, "drop cached responses of these sources before listing")
	return cmd
}
