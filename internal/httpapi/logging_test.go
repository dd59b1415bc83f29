package httpapi

import (
	"bytes"
	"errors"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"":      LevelOff,
		"off":   LevelOff,
		"error": LevelError,
		"info":  LevelInfo,
		"debug": LevelDebug,
		"weird": LevelInfo, // default
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRequestLogLevel_Overrides(t *testing.T) {
	// query param ?log=debug
	r := httptest.NewRequest("GET", "/x?log=debug", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("query override failed: %v", got)
	}
	// shorthand ?log=1
	r = httptest.NewRequest("GET", "/x?log=1", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("shorthand override failed: %v", got)
	}
	// header X-Log-Level
	r = httptest.NewRequest("GET", "/x", nil)
	r.Header.Set("X-Log-Level", "error")
	if got := requestLogLevel(r); got != LevelError {
		t.Fatalf("header override failed: %v", got)
	}
	// query wins over header
	r = httptest.NewRequest("GET", "/x?log=off", nil)
	r.Header.Set("X-Log-Level", "debug")
	if got := requestLogLevel(r); got != LevelOff {
		t.Fatalf("query precedence failed: %v", got)
	}
}

func TestLogEnd_FallsBackToStdLogger(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Writer()
	defer log.SetOutput(orig)
	log.SetOutput(&buf)
	zlog = nil

	r := httptest.NewRequest("POST", "/v1/suggest", nil)
	logEnd(r, LevelOff, "suggest", 200, time.Now(), nil)
	if buf.Len() != 0 {
		t.Fatalf("level off must not log: %q", buf.String())
	}
	logEnd(r, LevelError, "suggest", 500, time.Now(), errors.New("boom"))
	if !strings.Contains(buf.String(), "suggest status=500") || !strings.Contains(buf.String(), "err=boom") {
		t.Fatalf("expected 500 line at error level: %q", buf.String())
	}
	buf.Reset()
	logEnd(r, LevelInfo, "suggest", 200, time.Now(), nil)
	if !strings.Contains(buf.String(), "suggest status=200") {
		t.Fatalf("expected info line: %q", buf.String())
	}
}
