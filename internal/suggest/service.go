package suggest

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"suggestd/internal/audit"
	"suggestd/internal/cache"
	"suggestd/internal/fallback"
	"suggestd/internal/provider"
	"suggestd/pkg/types"
)

// Source values reported in SuggestResponse.Source.
const (
	SourceCache    = "cache"
	SourceProvider = "provider"
	SourceFallback = "fallback"
)

type requestIDKey struct{}

// WithRequestID attaches a request id that is copied into audit records.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id attached by WithRequestID, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Service answers suggestion requests. It holds no per-request state; the
// cache, limiter and audit log are shared and safe for concurrent use.
type Service struct {
	cfg       Config
	cache     *cache.Cache
	provider  provider.Completer
	audit     *audit.Log
	events    EventPublisher
	admit     *limiter
	log       zerolog.Logger
	startTime time.Time
}

// New constructs a Service from cfg, applying defaults for unset fields.
func New(cfg Config) *Service {
	cfg.applyDefaults()
	return &Service{
		cfg:       cfg,
		cache:     cfg.Cache,
		provider:  cfg.Provider,
		audit:     cfg.Audit,
		events:    cfg.Events,
		admit:     newLimiter(cfg.MaxInflight),
		log:       cfg.Logger,
		startTime: cfg.Now(),
	}
}

// Cache returns the shared cache.
func (s *Service) Cache() *cache.Cache { return s.cache }

// outcome carries what Suggest learned for observability.
type outcome struct {
	source    string
	kind      ErrorKind
	structure provider.StructureKind
}

// Suggest produces a suggestion for req. The only error it returns is an
// invalid input error; every provider failure degrades to the fallback.
func (s *Service) Suggest(ctx context.Context, req types.SuggestRequest) (types.SuggestResponse, error) {
	start := s.cfg.Now()
	if strings.TrimSpace(req.Text) == "" {
		return types.SuggestResponse{}, ErrInvalidInput("text is required")
	}
	text := trailingRunes(req.Text, s.cfg.ContextChars)
	preq := provider.Request{
		Text:        text,
		MaxTokens:   clampMaxTokens(req.MaxTokens),
		Temperature: clampTemperature(req.Temperature),
		IsMarkdown:  req.IsMarkdown,
	}

	resp, out := s.resolve(ctx, preq)
	resp.Timing = s.cfg.Now().Sub(start).Milliseconds()
	resp.Source = out.source
	s.observe(ctx, text, resp, out)
	return resp, nil
}

func (s *Service) resolve(ctx context.Context, req provider.Request) (types.SuggestResponse, outcome) {
	if v, ok := s.cache.Get(req.Text); ok {
		cacheLookupsTotal.WithLabelValues("hit").Inc()
		return types.SuggestResponse{Suggestion: provider.JoinSpacing(req.Text, v)}, outcome{source: SourceCache}
	}
	cacheLookupsTotal.WithLabelValues("miss").Inc()

	if s.provider == nil || !s.provider.Configured() {
		return s.fallback(req.Text, KindNotConfigured, "")
	}
	release, ok := s.admit.tryAcquire()
	if !ok {
		s.events.Publish(Event{Name: EventAdmissionRejects, Kind: KindBusy})
		return s.fallback(req.Text, KindBusy, "")
	}
	res := s.race(ctx, req, release)
	if !res.OK() {
		return s.fallback(req.Text, ErrorKind(res.Kind), res.Structure)
	}
	if v := strings.TrimSpace(res.Text); v != "" {
		s.cache.Set(req.Text, v)
	}
	return types.SuggestResponse{Suggestion: res.Text}, outcome{source: SourceProvider, structure: res.Structure}
}

// race runs the provider call on its own goroutine and waits at most the
// handler budget for it. The admission slot is released when the call
// itself returns, so abandoned calls still count against MaxInflight.
func (s *Service) race(ctx context.Context, req provider.Request, release func()) provider.Result {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Budget)
	done := make(chan provider.Result, 1)
	go func() {
		defer release()
		start := time.Now()
		res := s.provider.Complete(ctx, req)
		upstreamDuration.Observe(time.Since(start).Seconds())
		done <- res
	}()
	defer cancel()
	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return provider.Result{Kind: provider.KindTimeout, Err: ctx.Err()}
	}
}

func (s *Service) fallback(text string, kind ErrorKind, st provider.StructureKind) (types.SuggestResponse, outcome) {
	providerErrorsTotal.WithLabelValues(string(kind)).Inc()
	return types.SuggestResponse{
		Suggestion: provider.JoinSpacing(text, fallback.Generate(text)),
		Fallback:   true,
		Error:      string(kind),
	}, outcome{source: SourceFallback, kind: kind, structure: st}
}

func (s *Service) observe(ctx context.Context, text string, resp types.SuggestResponse, out outcome) {
	suggestRequestsTotal.WithLabelValues(out.source).Inc()
	name := EventProviderSuccess
	switch out.source {
	case SourceCache:
		name = EventCacheHit
	case SourceFallback:
		name = EventFallback
	}
	s.events.Publish(Event{
		Name:   name,
		Source: out.source,
		Kind:   out.kind,
		Fields: map[string]any{"timing_ms": resp.Timing, "empty": resp.Suggestion == ""},
	})
	ev := s.log.Debug()
	if out.kind != "" && out.kind != KindNotConfigured {
		ev = s.log.Info()
	}
	ev.Str("source", out.source).Str("error", string(out.kind)).Int64("timing_ms", resp.Timing).Msg("suggest")
	if s.audit != nil {
		s.audit.Record(audit.Record{
			RequestID:  RequestID(ctx),
			KeyDigest:  audit.Digest(cache.NormalizeKey(text, s.cache.KeyChars())),
			Source:     out.source,
			ErrorKind:  string(out.kind),
			Structure:  string(out.structure),
			Suggestion: resp.Suggestion,
			LatencyMs:  resp.Timing,
		})
	}
}

// trailingRunes keeps the last n runes of s.
func trailingRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[len(r)-n:])
}

func clampMaxTokens(n int) int {
	if n <= 0 || n > DefaultMaxTokens {
		return DefaultMaxTokens
	}
	return n
}

func clampTemperature(t *float64) float64 {
	if t == nil {
		return DefaultTemperature
	}
	switch {
	case *t < 0:
		return 0
	case *t > 1:
		return 1
	}
	return *t
}
