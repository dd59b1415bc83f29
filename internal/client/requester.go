package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"suggestd/pkg/types"
)

// Requester fetches one suggestion.
type Requester interface {
	Suggest(ctx context.Context, req types.SuggestRequest) (types.SuggestResponse, error)
}

// StatusError is returned by HTTPRequester for non-200 replies.
type StatusError struct {
	Code int
	Msg  string
}

func (e *StatusError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("suggest: http %d", e.Code)
	}
	return fmt.Sprintf("suggest: http %d: %s", e.Code, e.Msg)
}

// IsAuth reports whether the status means the credentials were refused.
func (e *StatusError) IsAuth() bool {
	return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
}

// HTTPRequester posts to <BaseURL>/v1/suggest.
type HTTPRequester struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPRequester returns a requester for the server at baseURL.
func NewHTTPRequester(baseURL string) *HTTPRequester {
	return &HTTPRequester{BaseURL: strings.TrimRight(baseURL, "/"), Client: http.DefaultClient}
}

func (h *HTTPRequester) Suggest(ctx context.Context, req types.SuggestRequest) (types.SuggestResponse, error) {
	var out types.SuggestResponse
	body, err := json.Marshal(req)
	if err != nil {
		return out, err
	}
	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/v1/suggest", bytes.NewReader(body))
	if err != nil {
		return out, err
	}
	hr.Header.Set("Content-Type", "application/json")
	cli := h.Client
	if cli == nil {
		cli = http.DefaultClient
	}
	resp, err := cli.Do(hr)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var er types.ErrorResponse
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(b))
		if json.Unmarshal(b, &er) == nil && er.Error != "" {
			msg = er.Error
		}
		return out, &StatusError{Code: resp.StatusCode, Msg: msg}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return out, fmt.Errorf("suggest: decode response: %w", err)
	}
	return out, nil
}
