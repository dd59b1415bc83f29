package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"suggestd/internal/audit"
)

func newAuditCmd(g *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query and manage the suggestion audit log",
	}
	cmd.AddCommand(newAuditListCmd(g), newAuditStatsCmd(g), newAuditCleanupCmd(g))
	return cmd
}

func openAuditLog(g *globalOpts) (*audit.Log, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	return openAudit(cfg, zerolog.Nop())
}

func newAuditListCmd(g *globalOpts) *cobra.Command {
	var (
		source string
		since  string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent audit records, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := audit.QueryOpts{Source: source, Limit: limit}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				opts.Since = t
			}
			l, err := openAuditLog(g)
			if err != nil {
				return err
			}
			defer l.Close()
			recs, err := l.Query(context.Background(), opts)
			if err != nil {
				return err
			}
			writeRecords(cmd.OutOrStdout(), recs)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Filter by source: cache|provider|fallback")
	cmd.Flags().StringVar(&since, "since", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Max records to return")
	return cmd
}

func writeRecords(w io.Writer, recs []audit.Record) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No audit records found.")
		return
	}
	fmt.Fprintf(w, "%-20s  %-8s  %-14s  %-16s  %6s  %s\n", "TIME", "SOURCE", "ERROR", "STRUCTURE", "MS", "KEY")
	for _, r := range recs {
		fmt.Fprintf(w, "%-20s  %-8s  %-14s  %-16s  %6d  %s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Source, dash(r.ErrorKind), dash(r.Structure), r.LatencyMs, shortKey(r.KeyDigest))
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortKey(k string) string {
	if len(k) > 12 {
		return k[:12]
	}
	return k
}

func newAuditStatsCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show record counts per source",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openAuditLog(g)
			if err != nil {
				return err
			}
			defer l.Close()
			by, err := l.Summary(context.Background())
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(by))
			var total int64
			for k, n := range by {
				keys = append(keys, k)
				total += n
			}
			sort.Strings(keys)
			var b strings.Builder
			for _, k := range keys {
				fmt.Fprintf(&b, "%-10s %d\n", k+":", by[k])
			}
			fmt.Fprintf(&b, "%-10s %d\n", "total:", total)
			fmt.Fprint(cmd.OutOrStdout(), b.String())
			return nil
		},
	}
}

func newAuditCleanupCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete records older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openAuditLog(g)
			if err != nil {
				return err
			}
			defer l.Close()
			n, err := l.Cleanup(context.Background())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d records.\n", n)
			return nil
		},
	}
}
