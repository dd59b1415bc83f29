package types

// SuggestRequest is the payload for POST /v1/suggest.
type SuggestRequest struct {
	// Document text up to the cursor. Only the trailing context window is used.
	// example: The quick brown fox
	Text string `json:"text" example:"The quick brown fox"`
	// Upper bound on generated tokens, clamped to [1,20]. 0 or omitted means 20.
	// example: 20
	MaxTokens int `json:"maxTokens,omitempty" example:"20"`
	// Sampling temperature, clamped to [0,1]. Omitted means 0.3.
	// example: 0.3
	Temperature *float64 `json:"temperature,omitempty" example:"0.3"`
	// Whether the document is Markdown.
	// example: false
	IsMarkdown bool `json:"isMarkdown,omitempty" example:"false"`
}

// SuggestResponse is returned by POST /v1/suggest.
type SuggestResponse struct {
	// Continuation to show after the cursor. Empty means nothing to show.
	// example:  jumps over the lazy dog
	Suggestion string `json:"suggestion" example:" jumps over the lazy dog"`
	// True when the suggestion came from the local heuristic generator.
	// example: false
	Fallback bool `json:"fallback,omitempty" example:"false"`
	// Error kind when the provider path failed (timeout, auth, upstream_error, not_configured, busy).
	// example: timeout
	Error string `json:"error,omitempty" example:"timeout"`
	// Server-side handling time in milliseconds.
	// example: 42
	Timing int64 `json:"timing,omitempty" example:"42"`
	// Where the suggestion came from: cache, provider or fallback.
	// example: provider
	Source string `json:"source,omitempty" example:"provider"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// CacheStats is returned by GET /admin/cache/stats.
type CacheStats struct {
	// Lookups answered from the cache since the last reset.
	// example: 120
	Hits uint64 `json:"hits" example:"120"`
	// Lookups that missed since the last reset.
	// example: 30
	Misses uint64 `json:"misses" example:"30"`
	// Live entries.
	// example: 87
	Size int `json:"size" example:"87"`
	// Capacity.
	// example: 500
	MaxSize int `json:"maxSize" example:"500"`
	// Entry time-to-live in seconds.
	// example: 600
	TTL int64 `json:"ttl" example:"600"`
	// Last clear time in unix seconds, 0 if never cleared.
	// example: 1700000000
	LastCleared int64 `json:"lastCleared" example:"1700000000"`
	// Entries evicted to stay within capacity.
	// example: 4
	Evictions uint64 `json:"evictions" example:"4"`
	// hits/(hits+misses), 0 when there were no lookups.
	// example: 0.8
	HitRate float64 `json:"hitRate" example:"0.8"`
}

// ClearCacheResponse is returned by POST /admin/cache/clear.
type ClearCacheResponse struct {
	// example: true
	Cleared bool `json:"cleared" example:"true"`
	// Clear time in unix seconds.
	// example: 1700000000
	LastCleared int64 `json:"lastCleared" example:"1700000000"`
}

// ProviderStatus describes the upstream completion provider.
type ProviderStatus struct {
	// Whether credentials, base URL and model are all present.
	// example: true
	Configured bool `json:"configured" example:"true"`
	// Upstream model name.
	// example: gpt-4o-mini
	Model string `json:"model,omitempty" example:"gpt-4o-mini"`
	// Per-call timeout in milliseconds.
	// example: 5000
	TimeoutMS int64 `json:"timeout_ms" example:"5000"`
}

// AuditSummary aggregates the suggestion audit log.
type AuditSummary struct {
	// Whether the audit log is enabled.
	// example: true
	Enabled bool `json:"enabled" example:"true"`
	// Recorded suggestions per source.
	BySource map[string]int64 `json:"by_source,omitempty"`
	// Records dropped because the writer queue was full.
	// example: 0
	Dropped uint64 `json:"dropped" example:"0"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Provider ProviderStatus `json:"provider"`
	Cache    CacheStats     `json:"cache"`
	Audit    AuditSummary   `json:"audit"`
	// Upstream calls currently in flight.
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Maximum concurrent upstream calls.
	// example: 16
	MaxInflight int `json:"max_inflight" example:"16"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
