// Package suggest orchestrates one inline suggestion request: cache lookup,
// provider call under a time budget, and heuristic fallback. It is
// structured into small files by concern:
//
//   - service.go: Service type, constructor, Suggest entry point.
//   - config.go: Config and package defaults.
//   - errors.go: error kinds and typed errors (IsInvalidInput).
//   - admission.go: bounded in-flight upstream calls.
//   - events.go / eventpub_memory.go: outcome events.
//   - metrics.go: prometheus counters for sources, errors and cache lookups.
//   - status.go: Status, CacheStats and ClearCache for the admin surface.
//
// External packages should use public methods only (New, Suggest, Status,
// CacheStats, ClearCache, Ready).
package suggest
