package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cleitonmarx/symbiont-llm-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createMessagesServer returns a server replying with resp and capturing the
// last decoded request.
func createMessagesServer(t *testing.T, resp MessagesResponse, captured *MessagesRequest) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
}

func createErrorServer(status int, message string, headers map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error":{"type":"api_error","message":%q}}`, message) //nolint:errcheck
	}))
}

func newTestAdapter(t *testing.T, baseURL string) *LLMClientAdapter {
	adapter, err := NewLLMClientAdapter(Config{
		APIKey:  "test-key",
		BaseURL: baseURL,
	})
	require.NoError(t, err)
	return adapter
}

func TestNewLLMClientAdapter_MissingAPIKey(t *testing.T) {
	_, err := NewLLMClientAdapter(Config{})

	var cfgErr *domain.ConfigurationErr
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLLMClientAdapter_Chat(t *testing.T) {
	var captured MessagesRequest
	server := createMessagesServer(t, MessagesResponse{
		Content:    []ContentBlock{{Type: "text", Text: "Hello there."}},
		StopReason: "end_turn",
		Usage:      Usage{InputTokens: 12, OutputTokens: 4},
	}, &captured)
	defer server.Close()

	adapter := newTestAdapter(t, server.URL)
	resp, err := adapter.Chat(context.Background(), domain.ChatRequest{
		SystemPrompt: "Be brief.",
		Messages: []domain.Message{
			{Role: domain.MessageRole_User, Content: "Hi"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello there.", resp.Content)
	assert.Equal(t, domain.FinishReason_Stop, resp.FinishReason)
	assert.Equal(t, domain.Usage{InputTokens: 12, OutputTokens: 4}, resp.Usage)

	assert.Equal(t, DefaultModel, captured.Model)
	assert.Equal(t, "Be brief.", captured.System)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
}

func TestLLMClientAdapter_ChatWithTools(t *testing.T) {
	toolInput := json.RawMessage(`{"type":"weight"}`)

	tests := map[string]struct {
		resp          MessagesResponse
		req           domain.ChatWithToolsRequest
		assertRequest func(t *testing.T, captured MessagesRequest)
		assertResp    func(t *testing.T, resp domain.ChatWithToolsResponse)
		expectErr     bool
	}{
		"tool-use-blocks-become-tool-calls": {
			resp: MessagesResponse{
				Content: []ContentBlock{
					{Type: "text", Text: "Let me check."},
					{Type: "tool_use", ID: "toolu_1", Name: "fetch_metrics", Input: toolInput},
				},
				StopReason: "tool_use",
				Usage:      Usage{InputTokens: 20, OutputTokens: 15},
			},
			req: domain.ChatWithToolsRequest{
				Messages: []domain.Message{{Role: domain.MessageRole_User, Content: "weight?"}},
				Tools: []domain.ToolDefinition{{
					Name:        "fetch_metrics",
					Description: "Fetch metrics",
					Parameters:  domain.Object("", map[string]*domain.SchemaNode{"type": domain.String("")}),
					Examples:    []map[string]any{{"type": "weight"}},
				}},
			},
			assertRequest: func(t *testing.T, captured MessagesRequest) {
				require.Len(t, captured.Tools, 1)
				assert.Equal(t, "fetch_metrics", captured.Tools[0].Name)
				assert.Equal(t, []map[string]any{{"type": "weight"}}, captured.Tools[0].InputExamples)
				require.NotNil(t, captured.ToolChoice)
				assert.Equal(t, "auto", captured.ToolChoice.Type)
			},
			assertResp: func(t *testing.T, resp domain.ChatWithToolsResponse) {
				assert.Equal(t, "Let me check.", resp.Content)
				assert.Equal(t, domain.FinishReason_ToolCalls, resp.FinishReason)
				require.Len(t, resp.ToolCalls, 1)
				assert.Equal(t, "toolu_1", resp.ToolCalls[0].ID)
				assert.Equal(t, "fetch_metrics", resp.ToolCalls[0].Name)
				assert.Equal(t, map[string]any{"type": "weight"}, resp.ToolCalls[0].Arguments)
			},
		},
		"forced-tool-choice-maps-to-named-tool": {
			resp: MessagesResponse{
				Content: []ContentBlock{
					{Type: "tool_use", ID: "toolu_2", Name: "classify_confirmation", Input: json.RawMessage(`{"intent":"confirm"}`)},
				},
				StopReason: "tool_use",
			},
			req: domain.ChatWithToolsRequest{
				Messages:   []domain.Message{{Role: domain.MessageRole_User, Content: "yes"}},
				Tools:      []domain.ToolDefinition{{Name: "classify_confirmation"}},
				ToolChoice: domain.ForcedToolChoice("classify_confirmation"),
			},
			assertRequest: func(t *testing.T, captured MessagesRequest) {
				require.NotNil(t, captured.ToolChoice)
				assert.Equal(t, "tool", captured.ToolChoice.Type)
				assert.Equal(t, "classify_confirmation", captured.ToolChoice.Name)
			},
			assertResp: func(t *testing.T, resp domain.ChatWithToolsResponse) {
				require.Len(t, resp.ToolCalls, 1)
			},
		},
		"none-tool-choice-disables-tool-use": {
			resp: MessagesResponse{
				Content:    []ContentBlock{{Type: "text", Text: "ok"}},
				StopReason: "end_turn",
			},
			req: domain.ChatWithToolsRequest{
				Messages:   []domain.Message{{Role: domain.MessageRole_User, Content: "just answer"}},
				Tools:      []domain.ToolDefinition{{Name: "fetch_metrics"}},
				ToolChoice: domain.ToolChoice{Mode: domain.ToolChoiceMode_None},
			},
			assertRequest: func(t *testing.T, captured MessagesRequest) {
				require.NotNil(t, captured.ToolChoice)
				assert.Equal(t, "none", captured.ToolChoice.Type)
			},
			assertResp: func(t *testing.T, resp domain.ChatWithToolsResponse) {
				assert.Empty(t, resp.ToolCalls)
			},
		},
		"history-round-trips-tool-results": {
			resp: MessagesResponse{
				Content:    []ContentBlock{{Type: "text", Text: "done"}},
				StopReason: "end_turn",
			},
			req: domain.ChatWithToolsRequest{
				SystemPrompt: "sys",
				Messages: []domain.Message{
					{Role: domain.MessageRole_User, Content: "weight?"},
					{
						Role:      domain.MessageRole_Assistant,
						ToolCalls: []domain.ToolCall{{ID: "toolu_1", Name: "fetch_metrics", Arguments: map[string]any{"type": "weight"}}},
					},
					domain.ToolMessage("toolu_1", "70kg"),
				},
			},
			assertRequest: func(t *testing.T, captured MessagesRequest) {
				require.Len(t, captured.Messages, 3)
				assert.Equal(t, "assistant", captured.Messages[1].Role)
				require.Len(t, captured.Messages[1].Content, 1)
				assert.Equal(t, "tool_use", captured.Messages[1].Content[0].Type)

				assert.Equal(t, "user", captured.Messages[2].Role)
				require.Len(t, captured.Messages[2].Content, 1)
				assert.Equal(t, "tool_result", captured.Messages[2].Content[0].Type)
				assert.Equal(t, "toolu_1", captured.Messages[2].Content[0].ToolUseID)
				assert.Equal(t, "70kg", captured.Messages[2].Content[0].Content)
			},
			assertResp: func(t *testing.T, resp domain.ChatWithToolsResponse) {
				assert.Equal(t, "done", resp.Content)
			},
		},
		"consecutive-tool-results-share-one-user-turn": {
			resp: MessagesResponse{
				Content:    []ContentBlock{{Type: "text", Text: "done"}},
				StopReason: "end_turn",
			},
			req: domain.ChatWithToolsRequest{
				Messages: []domain.Message{
					{Role: domain.MessageRole_User, Content: "record and fetch"},
					{
						Role: domain.MessageRole_Assistant,
						ToolCalls: []domain.ToolCall{
							{ID: "toolu_1", Name: "record_metric", Arguments: map[string]any{"type": "weight", "value": 70.0}},
							{ID: "toolu_2", Name: "fetch_metrics", Arguments: map[string]any{"type": "weight"}},
						},
					},
					domain.ToolMessage("toolu_1", "recorded"),
					domain.ToolMessage("toolu_2", "weight: 70kg"),
				},
			},
			assertRequest: func(t *testing.T, captured MessagesRequest) {
				require.Len(t, captured.Messages, 3)

				// Both results answer the same assistant turn, so they must
				// arrive as blocks of a single user message.
				results := captured.Messages[2]
				assert.Equal(t, "user", results.Role)
				require.Len(t, results.Content, 2)
				assert.Equal(t, "toolu_1", results.Content[0].ToolUseID)
				assert.Equal(t, "toolu_2", results.Content[1].ToolUseID)
			},
			assertResp: func(t *testing.T, resp domain.ChatWithToolsResponse) {
				assert.Equal(t, "done", resp.Content)
			},
		},
		"malformed-tool-arguments-fail": {
			resp: MessagesResponse{
				Content: []ContentBlock{
					{Type: "tool_use", ID: "toolu_3", Name: "fetch_metrics", Input: json.RawMessage(`{not json`)},
				},
				StopReason: "tool_use",
			},
			req: domain.ChatWithToolsRequest{
				Messages: []domain.Message{{Role: domain.MessageRole_User, Content: "weight?"}},
			},
			expectErr: true,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var captured MessagesRequest
			server := createMessagesServer(t, tt.resp, &captured)
			defer server.Close()

			adapter := newTestAdapter(t, server.URL)
			resp, err := adapter.ChatWithTools(context.Background(), tt.req)

			if tt.expectErr {
				var valErr *domain.ToolValidationErr
				assert.ErrorAs(t, err, &valErr)
				return
			}
			require.NoError(t, err)
			if tt.assertRequest != nil {
				tt.assertRequest(t, captured)
			}
			tt.assertResp(t, resp)
		})
	}
}

func TestLLMClientAdapter_ErrorWrapping(t *testing.T) {
	tests := map[string]struct {
		status    int
		headers   map[string]string
		assertErr func(t *testing.T, err error)
	}{
		"429-with-retry-after": {
			status:  http.StatusTooManyRequests,
			headers: map[string]string{"Retry-After": "7"},
			assertErr: func(t *testing.T, err error) {
				var rlErr *domain.RateLimitErr
				require.ErrorAs(t, err, &rlErr)
				assert.Equal(t, float64(7), rlErr.RetryAfter.Seconds())
			},
		},
		"500-is-retryable-api-error": {
			status: http.StatusInternalServerError,
			assertErr: func(t *testing.T, err error) {
				var apiErr *domain.APIErr
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
				assert.True(t, apiErr.Retryable())
			},
		},
		"401-is-fatal-api-error": {
			status: http.StatusUnauthorized,
			assertErr: func(t *testing.T, err error) {
				var apiErr *domain.APIErr
				require.ErrorAs(t, err, &apiErr)
				assert.False(t, apiErr.Retryable())
			},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			server := createErrorServer(tt.status, "upstream failure", tt.headers)
			defer server.Close()

			adapter := newTestAdapter(t, server.URL)
			_, err := adapter.Chat(context.Background(), domain.ChatRequest{
				Messages: []domain.Message{{Role: domain.MessageRole_User, Content: "hi"}},
			})
			tt.assertErr(t, err)
		})
	}
}

func TestLLMClientAdapter_Stream(t *testing.T) {
	events := []string{
		`{"type":"message_start"}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hel"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"lo"}}`,
		`{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_1","name":"fetch_metrics"}}`,
		`{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"type\":"}}`,
		`{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"\"weight\"}"}}`,
		`{"type":"message_delta","usage":{"output_tokens":9}}`,
		`{"type":"message_stop"}`,
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req MessagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, event := range events {
			fmt.Fprintf(w, "data: %s\n\n", event) //nolint:errcheck
			flusher.Flush()
		}
	}))
	defer server.Close()

	adapter := newTestAdapter(t, server.URL)
	stream, err := adapter.Stream(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.MessageRole_User, Content: "hi"}},
	})
	require.NoError(t, err)

	content := ""
	var final domain.StreamChunk
	for chunk := range stream {
		if chunk.Done {
			final = chunk
			continue
		}
		content += chunk.Content
	}

	assert.Equal(t, "Hello", content)
	assert.NoError(t, final.Err)
	require.Len(t, final.ToolCalls, 1)
	assert.Equal(t, "toolu_1", final.ToolCalls[0].ID)
	assert.Equal(t, map[string]any{"type": "weight"}, final.ToolCalls[0].Arguments)
}

func TestLLMClientAdapter_Stream_ErrorSurfacesOnFinalChunk(t *testing.T) {
	server := createErrorServer(http.StatusServiceUnavailable, "upstream failure", nil)
	defer server.Close()

	adapter := newTestAdapter(t, server.URL)
	stream, err := adapter.Stream(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.MessageRole_User, Content: "hi"}},
	})
	require.NoError(t, err)

	var chunks []domain.StreamChunk
	for chunk := range stream {
		chunks = append(chunks, chunk)
	}

	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].Done)
	require.Error(t, chunks[0].Err)
}
