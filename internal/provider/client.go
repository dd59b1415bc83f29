package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// chatRequest is the payload for /v1/chat/completions.
type chatRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	TopP             float64   `json:"top_p"`
	PresencePenalty  float64   `json:"presence_penalty"`
	FrequencyPenalty float64   `json:"frequency_penalty"`
	Stream           bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// chatStreamChunk is the minimal subset of a streamed chat delta.
type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// call performs a single HTTP round trip and returns the raw completion text.
func (p *Provider) call(ctx context.Context, payload chatRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &Error{Kind: KindUpstreamError, Msg: "encode request", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: KindUpstreamError, Msg: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &Error{
			Kind:   classifyStatus(resp.StatusCode),
			Status: resp.StatusCode,
			Msg:    "upstream http " + resp.Status + ": " + strings.TrimSpace(string(b)),
		}
	}
	if p.cfg.Stream || strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		return p.readStream(ctx, resp.Body)
	}
	var out chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &Error{Kind: KindUpstreamError, Msg: "malformed response", Err: err}
	}
	if len(out.Choices) == 0 {
		return "", &Error{Kind: KindUpstreamError, Msg: "response has no choices"}
	}
	return out.Choices[0].Message.Content, nil
}

// readStream accumulates an SSE token stream until [DONE] or EOF.
func (p *Provider) readStream(ctx context.Context, body io.Reader) (string, error) {
	r := bufio.NewReader(body)
	var b strings.Builder
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(strings.ToLower(line), "data:") {
				data := strings.TrimSpace(line[len("data:"):])
				if data == "[DONE]" {
					return b.String(), nil
				}
				var chunk chatStreamChunk
				if jerr := json.Unmarshal([]byte(data), &chunk); jerr == nil && len(chunk.Choices) > 0 {
					b.WriteString(chunk.Choices[0].Delta.Content)
				} else if jerr != nil {
					p.log.Debug().Str("line", line).Msg("provider unknown stream line")
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return b.String(), nil
			}
			if ctx.Err() != nil {
				return b.String(), ctx.Err()
			}
			return b.String(), &Error{Kind: KindUpstreamError, Msg: "stream read", Err: err}
		}
	}
}
