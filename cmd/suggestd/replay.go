package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"suggestd/internal/suggest"
)

func newReplayCmd(g *globalOpts) *cobra.Command {
	var f reqFlags
	cmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "Run every line of a file through the suggestion pipeline",
		Long: "Replay reads one context per line (blank lines and lines starting with # are skipped),\n" +
			"requests a suggestion for each and prints source and suggestion tab-separated.\n" +
			"In-process runs share one cache, so repeated or similar lines show cache hits;\n" +
			"the cache snapshot is saved when cache.snapshot_path is configured.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fh, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer fh.Close()
			s, cleanup, err := f.open(g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer runCleanup(cmd.ErrOrStderr(), cleanup)

			out := cmd.OutOrStdout()
			counts := map[string]int{}
			sc := bufio.NewScanner(fh)
			sc.Buffer(make([]byte, 64*1024), 1<<20)
			for sc.Scan() {
				line := sc.Text()
				if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
					continue
				}
				resp, err := s.Suggest(cmd.Context(), f.request(line))
				if err != nil {
					fmt.Fprintf(out, "error\t%v\n", err)
					counts["error"]++
					continue
				}
				counts[resp.Source]++
				fmt.Fprintf(out, "%s\t%q\n", resp.Source, resp.Suggestion)
			}
			if err := sc.Err(); err != nil {
				return err
			}
			fmt.Fprintf(out, "# cache=%d provider=%d fallback=%d error=%d\n",
				counts[suggest.SourceCache], counts[suggest.SourceProvider], counts[suggest.SourceFallback], counts["error"])
			if svc, ok := s.(*suggest.Service); ok {
				st := svc.CacheStats()
				fmt.Fprintf(out, "# cache hits=%d misses=%d size=%d hitRate=%.2f\n", st.Hits, st.Misses, st.Size, st.HitRate)
			}
			return nil
		},
	}
	f.register(cmd)
	return cmd
}
