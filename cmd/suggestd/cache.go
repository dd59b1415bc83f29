package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"suggestd/internal/cache"
	"suggestd/internal/common/fsutil"
	"suggestd/internal/httpapi"
	"suggestd/pkg/types"
)

func newCacheCmd(g *globalOpts) *cobra.Command {
	var server string
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the suggestion cache",
	}
	cmd.PersistentFlags().StringVar(&server, "server", "http://localhost:8080", "Base URL of a running server")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics of a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			var st types.CacheStats
			if err := adminCall(http.MethodGet, server, "/admin/cache/stats", "", &st); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Size:      %d/%d\nHits:      %d\nMisses:    %d\nHit rate:  %.2f\nEvictions: %d\nTTL:       %ds\n",
				st.Size, st.MaxSize, st.Hits, st.Misses, st.HitRate, st.Evictions, st.TTL)
			if st.LastCleared > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared:   %s\n", time.Unix(st.LastCleared, 0).Format(time.RFC3339))
			}
			return nil
		},
	}

	var secret string
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the cache of a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				cfg, err := g.loadConfig()
				if err != nil {
					return err
				}
				secret = cfg.AdminSecret
			}
			var out types.ClearCacheResponse
			if err := adminCall(http.MethodPost, server, "/admin/cache/clear", secret, &out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared at %s\n", time.Unix(out.LastCleared, 0).Format(time.RFC3339))
			return nil
		},
	}
	clearCmd.Flags().StringVar(&secret, "admin-secret", "", "Admin secret (defaults to the configured admin_secret)")

	inspectCmd := &cobra.Command{
		Use:   "inspect <snapshot>",
		Short: "Load a cache snapshot file and report what it holds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := fsutil.ExpandHome(args[0])
			if err != nil {
				return err
			}
			c := cache.New(cache.Config{MaxSize: 1 << 20})
			n, err := c.LoadFile(p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Live entries: %d\n", n)
			return nil
		},
	}

	cmd.AddCommand(statsCmd, clearCmd, inspectCmd)
	return cmd
}

// adminCall performs one admin request and decodes the JSON reply into out.
func adminCall(method, base, path, secret string, out any) error {
	req, err := http.NewRequest(method, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return err
	}
	if secret != "" {
		req.Header.Set(httpapi.AdminSecretHeader, secret)
	}
	cli := &http.Client{Timeout: 10 * time.Second}
	resp, err := cli.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var er types.ErrorResponse
		if json.Unmarshal(body, &er) == nil && er.Error != "" {
			return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, er.Error)
		}
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	return json.Unmarshal(body, out)
}
