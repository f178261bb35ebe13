// Package gemini adapts the Google Generative Language API to the neutral
// LLMClient port, including schema translation, rate limiting and retries.
package gemini

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

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// APIClient is a thin client for the Generative Language API.
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

// ChunkCallback is called for each streaming response chunk.
type ChunkCallback func(chunk GenerateResponse) error

// GenerateContent sends a non-streaming request for the given model.
func (c APIClient) GenerateContent(ctx context.Context, model string, req GenerateRequest) (*GenerateResponse, error) {
	httpReq, err := c.newPostRequest(ctx, fmt.Sprintf("/v1beta/models/%s:generateContent", model), req)
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

	var out GenerateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &out, nil
}

// StreamGenerateContent streams the response, calling onChunk for each SSE
// data packet.
func (c APIClient) StreamGenerateContent(ctx context.Context, model string, req GenerateRequest, onChunk ChunkCallback) error {
	httpReq, err := c.newPostRequest(ctx, fmt.Sprintf("/v1beta/models/%s:streamGenerateContent?alt=sse", model), req)
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

		var chunk GenerateResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue // Skip malformed chunks
		}

		if err := onChunk(chunk); err != nil {
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
	// JoinPath escapes the query separator of the streaming path.
	endpoint = strings.Replace(endpoint, "%3Falt=sse", "?alt=sse", 1)

	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)
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
