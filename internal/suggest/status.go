package suggest

import (
	"context"
	"time"

	"suggestd/internal/cache"
	"suggestd/pkg/types"
)

// Ready reports whether the service can answer requests. Fallback covers
// an unconfigured provider, so a constructed service is always ready.
func (s *Service) Ready() bool { return s != nil && s.cache != nil }

// CacheStats maps cache counters to the wire shape.
func (s *Service) CacheStats() types.CacheStats {
	return toCacheStats(s.cache.Stats())
}

// ClearCache empties the cache and reports the clear time.
func (s *Service) ClearCache() types.ClearCacheResponse {
	s.cache.Clear()
	st := s.cache.Stats()
	s.events.Publish(Event{Name: EventCacheCleared})
	s.log.Info().Msg("cache cleared")
	return types.ClearCacheResponse{Cleared: true, LastCleared: st.LastCleared.Unix()}
}

// Status builds a detailed status response for /status.
func (s *Service) Status() types.StatusResponse {
	now := s.cfg.Now()
	resp := types.StatusResponse{
		Cache:          s.CacheStats(),
		Inflight:       s.admit.inflight(),
		MaxInflight:    s.admit.capacity(),
		UptimeSeconds:  int64(now.Sub(s.startTime) / time.Second),
		ServerTimeUnix: now.Unix(),
	}
	if s.provider != nil {
		resp.Provider.Configured = s.provider.Configured()
		if d, ok := s.provider.(interface {
			Model() string
			Timeout() time.Duration
		}); ok {
			resp.Provider.Model = d.Model()
			resp.Provider.TimeoutMS = d.Timeout().Milliseconds()
		}
	}
	if s.audit != nil {
		resp.Audit.Enabled = true
		resp.Audit.Dropped = s.audit.Dropped()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if sum, err := s.audit.Summary(ctx); err == nil {
			resp.Audit.BySource = sum
		} else {
			s.log.Warn().Err(err).Msg("audit summary failed")
		}
	}
	return resp
}

func toCacheStats(st cache.Stats) types.CacheStats {
	out := types.CacheStats{
		Hits:      st.Hits,
		Misses:    st.Misses,
		Size:      st.Size,
		MaxSize:   st.MaxSize,
		TTL:       int64(st.TTL / time.Second),
		Evictions: st.Evictions,
		HitRate:   st.HitRate(),
	}
	if !st.LastCleared.IsZero() {
		out.LastCleared = st.LastCleared.Unix()
	}
	return out
}
