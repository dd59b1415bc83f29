package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"suggestd/internal/cache"
	"suggestd/internal/httpapi"
	"suggestd/internal/provider"
	"suggestd/internal/suggest"
)

// upstream is a fake OpenAI-compatible endpoint.
type upstream struct {
	srv     *httptest.Server
	calls   atomic.Int32
	content string
	delay   time.Duration
}

func newUpstream(t *testing.T, content string, delay time.Duration) *upstream {
	t.Helper()
	u := &upstream{content: content, delay: delay}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		if u.delay > 0 {
			select {
			case <-time.After(u.delay):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": u.content}, "finish_reason": "stop"}},
		})
	}))
	t.Cleanup(u.srv.Close)
	return u
}

type stack struct {
	srv   *httptest.Server
	svc   *suggest.Service
	cache *cache.Cache
}

// newStack serves the full pipeline. A nil upstream leaves the provider
// unconfigured.
func newStack(t *testing.T, up *upstream, timeout, budget time.Duration) *stack {
	t.Helper()
	pcfg := provider.Config{Model: "test-model", Timeout: timeout}
	if up != nil {
		pcfg.BaseURL = up.srv.URL
		pcfg.APIKey = "test-key"
	}
	c := cache.NewDefault()
	svc := suggest.New(suggest.Config{
		Cache:    c,
		Provider: provider.New(pcfg),
		Budget:   budget,
	})
	srv := httptest.NewServer(httpapi.NewMux(svc))
	t.Cleanup(srv.Close)
	return &stack{srv: srv, svc: svc, cache: c}
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte, hdr map[string]string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
