package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"suggestd/internal/client"
	"suggestd/pkg/types"
)

// suggester is satisfied by both the in-process service and the HTTP client.
type suggester interface {
	Suggest(ctx context.Context, req types.SuggestRequest) (types.SuggestResponse, error)
}

// reqFlags are the request parameters shared by suggest and replay.
type reqFlags struct {
	server      string
	maxTokens   int
	temperature float64
	markdown    bool
}

func (f *reqFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.server, "server", "", "Query a running server at this base URL instead of an in-process pipeline")
	cmd.Flags().IntVar(&f.maxTokens, "max-tokens", 0, "Max tokens (0 = server default)")
	cmd.Flags().Float64Var(&f.temperature, "temperature", -1, "Sampling temperature (negative = server default)")
	cmd.Flags().BoolVar(&f.markdown, "markdown", false, "Treat the context as Markdown")
}

func (f *reqFlags) request(text string) types.SuggestRequest {
	req := types.SuggestRequest{Text: text, MaxTokens: f.maxTokens, IsMarkdown: f.markdown}
	if f.temperature >= 0 {
		t := f.temperature
		req.Temperature = &t
	}
	return req
}

// open returns a suggester plus its cleanup. In-process pipelines never
// record to the audit log.
func (f *reqFlags) open(g *globalOpts, stderr io.Writer) (suggester, func() error, error) {
	if f.server != "" {
		return client.NewHTTPRequester(f.server), func() error { return nil }, nil
	}
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log := zerolog.Nop()
	if g.logLevel != "" {
		if log, err = newLogger(stderr, cfg.LogLevel, "console"); err != nil {
			return nil, nil, err
		}
	}
	a, err := buildApp(cfg, log, false)
	if err != nil {
		return nil, nil, err
	}
	return a.svc, a.Close, nil
}

// runCleanup reports a failed snapshot save or audit flush without changing
// the command's exit status.
func runCleanup(stderr io.Writer, cleanup func() error) {
	if err := cleanup(); err != nil {
		fmt.Fprintf(stderr, "suggestd: cleanup: %v\n", err)
	}
}

func newSuggestCmd(g *globalOpts) *cobra.Command {
	var (
		f       reqFlags
		asJSON  bool
		noSplit bool
	)
	cmd := &cobra.Command{
		Use:   "suggest [text...]",
		Short: "Request one suggestion for the given context (stdin when no args)",
		Example: "  suggestd suggest \"The quick brown fox\"\n" +
			"  echo '# Notes' | suggestd suggest --markdown --server http://localhost:8080",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				b, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 1<<20))
				if err != nil {
					return err
				}
				text = strings.TrimRight(string(b), "\r\n")
			}
			s, cleanup, err := f.open(g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer runCleanup(cmd.ErrOrStderr(), cleanup)
			resp, err := s.Suggest(cmd.Context(), f.request(text))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			if noSplit {
				fmt.Fprintln(out, resp.Suggestion)
				return nil
			}
			fmt.Fprintf(out, "%s%s\n", text, resp.Suggestion)
			fmt.Fprintf(out, "source=%s fallback=%v timing=%dms", resp.Source, resp.Fallback, resp.Timing)
			if resp.Error != "" {
				fmt.Fprintf(out, " error=%s", resp.Error)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON response")
	cmd.Flags().BoolVar(&noSplit, "only", false, "Print only the suggestion")
	return cmd
}
