// Package anthropic adapts the Anthropic Messages API to the neutral
// LLMClient port, including schema translation, rate limiting and retries.
package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cleitonmarx/symbiont-llm-engine/internal/domain"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
)

// APIClient is a thin client for the Anthropic Messages API.
type APIClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewAPIClient creates a new client.
func NewAPIClient(baseURL, apiKey string, httpClient *http.Client) APIClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return APIClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    httpClient,
	}
}

// EventCallback is called for each streaming SSE event.
type EventCallback func(event StreamEvent) error

// Messages sends a non-streaming request.
func (c APIClient) Messages(ctx context.Context, req MessagesRequest) (*MessagesResponse, error) {
	httpReq, err := c.newPostRequest(ctx, "/v1/messages", req)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, wrapStatusError(resp, respBody)
	}

	var out MessagesResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &out, nil
}

// MessagesStream streams the response, calling onEvent for each SSE data packet.
func (c APIClient) MessagesStream(ctx context.Context, req MessagesRequest, onEvent EventCallback) error {
	req.Stream = true

	httpReq, err := c.newPostRequest(ctx, "/v1/messages", req)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return wrapStatusError(resp, b)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()

		if !strings.HasPrefix(line, "data:") {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}

		var event StreamEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			continue // Skip malformed events
		}

		if event.Type == "message_stop" {
			break
		}

		if err := onEvent(event); err != nil {
			return err
		}
	}

	return scanner.Err()
}

func (c APIClient) newPostRequest(ctx context.Context, path string, body any) (*http.Request, error) {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	return req, nil
}

// wrapStatusError converts a non-2xx response into the domain error
// taxonomy. A 429 yields a rate-limit error carrying any Retry-After hint.
func wrapStatusError(resp *http.Response, body []byte) error {
	message := string(body)
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.NewRateLimitErr(message, parseRetryAfter(resp.Header.Get("Retry-After")))
	}
	return domain.NewAPIErr(message, resp.StatusCode, ProviderName)
}

func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
