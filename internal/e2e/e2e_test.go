package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"suggestd/internal/client"
	"suggestd/internal/httpapi"
	"suggestd/pkg/types"
)

func suggestOnce(t *testing.T, base, text string) types.SuggestResponse {
	t.Helper()
	b, _ := json.Marshal(types.SuggestRequest{Text: text})
	resp, body := httpPostJSON(t, base+"/v1/suggest", b, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	var out types.SuggestResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

// Provider answer is served, cached, and replayed without a second upstream call.
func TestE2E_ProviderThenCache(t *testing.T) {
	up := newUpstream(t, "the lazy dog", 0)
	st := newStack(t, up, 2*time.Second, 3*time.Second)
	text := "The quick brown fox jumps over"

	first := suggestOnce(t, st.srv.URL, text)
	if first.Suggestion != " the lazy dog" || first.Fallback || first.Source != "provider" {
		t.Fatalf("first response %+v", first)
	}
	second := suggestOnce(t, st.srv.URL, text)
	if second.Suggestion != first.Suggestion || second.Fallback || second.Source != "cache" {
		t.Fatalf("second response %+v", second)
	}
	if n := up.calls.Load(); n != 1 {
		t.Fatalf("upstream calls=%d want 1", n)
	}

	resp, body := httpGet(t, st.srv.URL+"/admin/cache/stats")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status=%d", resp.StatusCode)
	}
	var stats types.CacheStats
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Hits != 1 || stats.Misses != 1 || stats.Size != 1 || stats.HitRate != 0.5 {
		t.Fatalf("stats %+v", stats)
	}
}

// Without credentials every non-empty input still gets a fallback.
func TestE2E_UnconfiguredProviderFallsBack(t *testing.T) {
	st := newStack(t, nil, time.Second, 2*time.Second)
	for _, text := range []string{"a", "Hello,", "The end.", "We need to", "x y z 1 2 3", "Ünïcödé téxt"} {
		got := suggestOnce(t, st.srv.URL, text)
		if !got.Fallback || strings.TrimSpace(got.Suggestion) == "" || got.Error != "not_configured" {
			t.Fatalf("%q: %+v", text, got)
		}
	}
	if st.cache.Len() != 0 {
		t.Fatalf("fallback output must not be cached, size=%d", st.cache.Len())
	}
}

// A hung upstream is cut off by the provider timeout and answered by fallback.
func TestE2E_SlowProviderTimesOut(t *testing.T) {
	up := newUpstream(t, "too late", 5*time.Second)
	timeout := 150 * time.Millisecond
	st := newStack(t, up, timeout, 400*time.Millisecond)

	start := time.Now()
	got := suggestOnce(t, st.srv.URL, "Waiting for the provider")
	elapsed := time.Since(start)
	if !got.Fallback || got.Error != "timeout" || got.Source != "fallback" {
		t.Fatalf("response %+v", got)
	}
	if elapsed > timeout+time.Second {
		t.Fatalf("response took %v", elapsed)
	}
	if st.cache.Len() != 0 {
		t.Fatalf("timeout fallback must not be cached")
	}
}

func TestE2E_AdminClear(t *testing.T) {
	up := newUpstream(t, "continues here", 0)
	st := newStack(t, up, 2*time.Second, 3*time.Second)
	httpapi.SetAdminSecret("e2e-secret")
	t.Cleanup(func() { httpapi.SetAdminSecret("") })

	suggestOnce(t, st.srv.URL, "Some context that")
	if st.cache.Len() != 1 {
		t.Fatalf("expected one cached entry")
	}
	resp, _ := httpPostJSON(t, st.srv.URL+"/admin/cache/clear", nil, map[string]string{httpapi.AdminSecretHeader: "nope"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong secret status=%d", resp.StatusCode)
	}
	resp, body := httpPostJSON(t, st.srv.URL+"/admin/cache/clear", nil, map[string]string{httpapi.AdminSecretHeader: "e2e-secret"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("clear status=%d body=%s", resp.StatusCode, body)
	}
	var cr types.ClearCacheResponse
	if err := json.Unmarshal(body, &cr); err != nil || !cr.Cleared || cr.LastCleared == 0 {
		t.Fatalf("clear response %s err=%v", body, err)
	}
	if st.cache.Len() != 0 {
		t.Fatalf("cache not cleared")
	}
	suggestOnce(t, st.srv.URL, "Some context that")
	if n := up.calls.Load(); n != 2 {
		t.Fatalf("cleared entry should be fetched again, upstream calls=%d", n)
	}
}

func TestE2E_StatusReportsPipeline(t *testing.T) {
	up := newUpstream(t, "ok", 0)
	st := newStack(t, up, time.Second, 2*time.Second)
	suggestOnce(t, st.srv.URL, "check the status")
	resp, body := httpGet(t, st.srv.URL+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var sr types.StatusResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !sr.Provider.Configured || sr.Provider.Model != "test-model" || sr.Cache.Size != 1 {
		t.Fatalf("status %+v", sr)
	}
}

// The editor controller drives the real server: debounce, request, reveal,
// accept, and the follow-up cycle.
func TestE2E_ControllerAgainstServer(t *testing.T) {
	up := newUpstream(t, "over the lazy dog", 0)
	st := newStack(t, up, 2*time.Second, 3*time.Second)

	clock := client.NewManualClock(time.Now())
	buf := client.NewBuffer("The quick brown fox jumps")
	ctl := client.New(buf, client.NewHTTPRequester(st.srv.URL), client.Options{Clock: clock})
	defer ctl.Close()

	ctl.Input()
	clock.Advance(client.DefaultDebounceBase)
	state := waitState(t, ctl, func(s client.State) bool { return s.Phase == client.PhaseDisplaying })
	if state.CurrentSuggestion != " over the lazy dog" {
		t.Fatalf("suggestion %q", state.CurrentSuggestion)
	}
	clock.Advance(time.Second)
	if got := ctl.State().DisplayedSuggestion; got != state.CurrentSuggestion {
		t.Fatalf("reveal incomplete: %q", got)
	}
	if !ctl.HandleKey(client.KeyTab) {
		t.Fatalf("tab not consumed")
	}
	if got := buf.Text(); got != "The quick brown fox jumps over the lazy dog" {
		t.Fatalf("document %q", got)
	}

	clock.Advance(client.DefaultMinIntervalBase)
	waitState(t, ctl, func(s client.State) bool { return s.Phase == client.PhaseDisplaying })
	if n := up.calls.Load(); n != 2 {
		t.Fatalf("upstream calls=%d want 2", n)
	}
}

// Concurrent identical requests all succeed; the cache ends with one entry.
func TestE2E_ConcurrentRequests(t *testing.T) {
	up := newUpstream(t, "and more", 20*time.Millisecond)
	st := newStack(t, up, 2*time.Second, 3*time.Second)
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			b, _ := json.Marshal(types.SuggestRequest{Text: "parallel writers add"})
			resp, err := http.Post(st.srv.URL+"/v1/suggest", "application/json", strings.NewReader(string(b)))
			if err != nil {
				errs <- err
				return
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				errs <- fmt.Errorf("status %d", resp.StatusCode)
				return
			}
			errs <- nil
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if st.cache.Len() != 1 {
		t.Fatalf("cache size=%d want 1", st.cache.Len())
	}
}

func waitState(t *testing.T, ctl *client.Controller, cond func(client.State) bool) client.State {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		s := ctl.State()
		if cond(s) {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out; state=%+v", s)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
