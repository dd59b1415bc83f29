package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"suggestd/internal/suggest"
	"suggestd/pkg/types"
)

type mockService struct {
	resp    types.SuggestResponse
	err     error
	stats   types.CacheStats
	status  types.StatusResponse
	ready   bool
	cleared int
	lastReq types.SuggestRequest
	reqID   bool
}

func (m *mockService) Suggest(ctx context.Context, req types.SuggestRequest) (types.SuggestResponse, error) {
	m.lastReq = req
	if strings.TrimSpace(req.Text) == "" {
		return types.SuggestResponse{}, suggest.ErrInvalidInput("text is required")
	}
	if m.err != nil {
		return types.SuggestResponse{}, m.err
	}
	return m.resp, nil
}
func (m *mockService) CacheStats() types.CacheStats { return m.stats }
func (m *mockService) ClearCache() types.ClearCacheResponse {
	m.cleared++
	return types.ClearCacheResponse{Cleared: true, LastCleared: 1700000000}
}
func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Ready() bool                  { return m.ready }

func postSuggest(h http.Handler, body, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/suggest", bytes.NewBufferString(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSuggestHandler_OK(t *testing.T) {
	svc := &mockService{resp: types.SuggestResponse{Suggestion: " jumps", Source: "provider", Timing: 12}}
	h := NewMux(svc)
	rec := postSuggest(h, `{"text":"The fox","maxTokens":5,"temperature":0.5,"isMarkdown":true}`, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var body types.SuggestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Suggestion != " jumps" || body.Source != "provider" {
		t.Fatalf("unexpected body %+v", body)
	}
	if svc.lastReq.MaxTokens != 5 || svc.lastReq.Temperature == nil || *svc.lastReq.Temperature != 0.5 || !svc.lastReq.IsMarkdown {
		t.Fatalf("request not decoded: %+v", svc.lastReq)
	}
}

func TestSuggestHandler_FallbackIs200(t *testing.T) {
	svc := &mockService{resp: types.SuggestResponse{Suggestion: " and", Fallback: true, Error: "timeout", Source: "fallback"}}
	rec := postSuggest(NewMux(svc), `{"text":"Hello,"}`, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("fallback must be 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"error":"timeout"`) || !strings.Contains(rec.Body.String(), `"fallback":true`) {
		t.Fatalf("body=%s", rec.Body.String())
	}
}

func TestSuggestHandler_BadRequests(t *testing.T) {
	h := NewMux(&mockService{})
	cases := map[string]string{
		"malformed":  `{"text":`,
		"missing":    `{}`,
		"non-string": `{"text":42}`,
		"null":       `{"text":null}`,
		"blank":      `{"text":"   "}`,
	}
	for name, body := range cases {
		rec := postSuggest(h, body, "application/json")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, rec.Code)
		}
		var e types.ErrorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil || e.Code != 400 || e.Error == "" {
			t.Fatalf("%s: bad error payload %s", name, rec.Body.String())
		}
	}
	rec := postSuggest(h, `{"text":42}`, "application/json")
	if !strings.Contains(rec.Body.String(), "text must be a string") {
		t.Fatalf("body=%s", rec.Body.String())
	}
}

func TestSuggestHandler_ContentType(t *testing.T) {
	h := NewMux(&mockService{})
	if rec := postSuggest(h, `{"text":"hi there"}`, "text/plain"); rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rec.Code)
	}
	if rec := postSuggest(h, `{"text":"hi there"}`, ""); rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415 without content type, got %d", rec.Code)
	}
	if rec := postSuggest(h, `{"text":"hi there"}`, "Application/JSON; charset=utf-8"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with mixed-case content-type, got %d", rec.Code)
	}
}

func TestSuggestHandler_BodyLimit(t *testing.T) {
	SetMaxBodyBytes(32)
	defer SetMaxBodyBytes(0)
	big := `{"text":"` + strings.Repeat("a", 100) + `"}`
	if rec := postSuggest(NewMux(&mockService{}), big, "application/json"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized body, got %d", rec.Code)
	}
}

func TestSuggestHandler_ServiceErrors(t *testing.T) {
	rec := postSuggest(NewMux(&mockService{err: errors.New("boom")}), `{"text":"hi there"}`, "application/json")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	rec = postSuggest(NewMux(&mockService{err: mockHTTPError{msg: "nope", code: http.StatusTeapot}}), `{"text":"hi there"}`, "application/json")
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected HTTPError status, got %d", rec.Code)
	}
}

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func TestSuggestHandler_LogsWithZerolog(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	defer func() { zlog = nil }()
	req := httptest.NewRequest(http.MethodPost, "/v1/suggest?log=debug", bytes.NewBufferString(`{"text":"hi there"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	NewMux(&mockService{resp: types.SuggestResponse{Suggestion: "x", Source: "cache"}}).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if !strings.Contains(buf.String(), "suggest result") || !strings.Contains(buf.String(), `"request_id"`) {
		t.Fatalf("expected debug and end lines, got %q", buf.String())
	}
}

func TestStatusHandler(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{MaxInflight: 10, Provider: types.ProviderStatus{Configured: true}}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.MaxInflight != 10 || !body.Provider.Configured {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestReadyz(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyz_NotReady(t *testing.T) {
	r := NewMux(&mockService{ready: false})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "loading") {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	b, _ := io.ReadAll(w.Body)
	if w.Code != http.StatusOK || string(b) != "ok" {
		t.Fatalf("status=%d body=%q", w.Code, b)
	}
}

func TestCORSAndSecurityHeaders(t *testing.T) {
	SetCORSOptions(true, []string{"*"}, []string{"GET", "POST", "OPTIONS"}, []string{"Content-Type"})
	defer SetCORSOptions(false, nil, nil, nil)

	h := NewMux(&mockService{ready: true})
	req := httptest.NewRequest(http.MethodGet, "/admin/cache/stats", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options=nosniff, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatalf("expected CORS header Access-Control-Allow-Origin to be set, got empty")
	}
}

func TestRequestIDPropagates(t *testing.T) {
	var seen string
	svc := &ctxService{mockService: &mockService{}, fn: func(ctx context.Context) {
		seen = suggest.RequestID(ctx)
	}}
	postSuggest(NewMux(svc), `{"text":"hi there"}`, "application/json")
	if seen == "" {
		t.Fatalf("request id not attached to service context")
	}
}

// ctxService inspects the context handed to Suggest.
type ctxService struct {
	*mockService
	fn func(ctx context.Context)
}

func (c *ctxService) Suggest(ctx context.Context, req types.SuggestRequest) (types.SuggestResponse, error) {
	c.fn(ctx)
	return c.mockService.Suggest(ctx, req)
}
