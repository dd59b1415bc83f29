// Package provider talks to an OpenAI-compatible chat completion endpoint and
// turns its output into short inline suggestions.
package provider

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultTimeout          = 5 * time.Second
	DefaultConnectTimeout   = 2 * time.Second
	DefaultTopP             = 0.9
	DefaultPresencePenalty  = 0.1
	DefaultFrequencyPenalty = 0.1
	// MaxTokensCeiling bounds max_tokens; suggestions are a handful of words.
	MaxTokensCeiling = 20
)

// Config holds upstream endpoint settings.
type Config struct {
	BaseURL          string
	APIKey           string
	Model            string
	Timeout          time.Duration
	ConnectTimeout   time.Duration
	MaxRetries       int
	TopP             float64
	PresencePenalty  float64
	FrequencyPenalty float64
	Stream           bool
	// AllowAnonymous permits calls without an API key (local servers).
	AllowAnonymous bool
	Logger         zerolog.Logger
	// HTTPClient overrides the default transport; tests only.
	HTTPClient *http.Client
}

// Request is one completion ask.
type Request struct {
	Text        string
	MaxTokens   int
	Temperature float64
	IsMarkdown  bool
}

// Completer is what the orchestrator needs from a provider.
type Completer interface {
	Configured() bool
	Complete(ctx context.Context, req Request) Result
}

// Provider implements Completer over HTTP.
type Provider struct {
	cfg        Config
	httpClient *http.Client
	log        zerolog.Logger
}

// New constructs a Provider. MaxRetries is clamped to [0,1].
func New(cfg Config) *Provider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxRetries > 1 {
		cfg.MaxRetries = 1
	}
	if cfg.TopP <= 0 || cfg.TopP > 1 {
		cfg.TopP = DefaultTopP
	}
	if cfg.PresencePenalty == 0 {
		cfg.PresencePenalty = DefaultPresencePenalty
	}
	if cfg.FrequencyPenalty == 0 {
		cfg.FrequencyPenalty = DefaultFrequencyPenalty
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cli := cfg.HTTPClient
	if cli == nil {
		tr := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   cfg.ConnectTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   cfg.ConnectTimeout,
			ExpectContinueTimeout: 1 * time.Second,
		}
		// Timeout stays 0: every call carries its own context deadline.
		cli = &http.Client{Transport: tr, Timeout: 0}
	}
	return &Provider{cfg: cfg, httpClient: cli, log: cfg.Logger}
}

// Configured reports whether calls can be attempted at all.
func (p *Provider) Configured() bool {
	if p == nil || p.cfg.BaseURL == "" || p.cfg.Model == "" {
		return false
	}
	return p.cfg.APIKey != "" || p.cfg.AllowAnonymous
}

// Model returns the configured upstream model name.
func (p *Provider) Model() string { return p.cfg.Model }

// Timeout returns the hard per-call budget.
func (p *Provider) Timeout() time.Duration { return p.cfg.Timeout }

// Complete runs one completion under the provider timeout with at most one
// retry for upstream errors. It never panics and always returns a tagged
// Result.
func (p *Provider) Complete(ctx context.Context, req Request) Result {
	start := time.Now()
	st := Analyze(req.Text, req.IsMarkdown)
	if !p.Configured() {
		return Result{
			Kind:      KindNotConfigured,
			Structure: st.Kind,
			Err:       &Error{Kind: KindNotConfigured, Msg: "provider credentials missing"},
		}
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	payload := chatRequest{
		Model:            p.cfg.Model,
		Messages:         BuildMessages(req, st),
		MaxTokens:        clampTokens(req.MaxTokens),
		Temperature:      clampTemperature(req.Temperature),
		TopP:             p.cfg.TopP,
		PresencePenalty:  p.cfg.PresencePenalty,
		FrequencyPenalty: p.cfg.FrequencyPenalty,
		Stream:           p.cfg.Stream,
	}

	var (
		raw      string
		err      error
		attempts int
	)
	for attempts < 1+p.cfg.MaxRetries {
		attempts++
		raw, err = p.call(ctx, payload)
		if err == nil || KindOf(err) != KindUpstreamError || ctx.Err() != nil {
			break
		}
		p.log.Debug().Err(err).Int("attempt", attempts).Msg("provider retry")
	}
	res := Result{Structure: st.Kind, Attempts: attempts, Duration: time.Since(start)}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = &Error{Kind: KindTimeout, Msg: "provider call exceeded " + p.cfg.Timeout.String(), Err: err}
		}
		res.Kind = KindOf(err)
		res.Err = err
		p.log.Info().Str("kind", string(res.Kind)).Dur("dur", res.Duration).Err(err).Msg("provider call failed")
		return res
	}
	res.Kind = KindSuccess
	res.Text = Clean(raw, req.Text, req.IsMarkdown)
	return res
}

func clampTokens(n int) int {
	if n <= 0 || n > MaxTokensCeiling {
		return MaxTokensCeiling
	}
	return n
}

func clampTemperature(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
