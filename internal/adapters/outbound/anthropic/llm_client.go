package anthropic

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/cleitonmarx/symbiont-llm-engine/internal/domain"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/ratelimit"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/retry"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/telemetry"
)

const (
	// ProviderName identifies this adapter in errors, limiter keys and metrics.
	ProviderName = "claude"

	// DefaultModel is used when no model override is configured.
	DefaultModel = "claude-sonnet-4-5-20250929"

	defaultMaxTokens = 4096
)

// Config holds the construction parameters of the adapter. Limiter and
// Retry are optional; leaving them nil disables the respective layer.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxTokens  int
	Limiter    *ratelimit.Limiter
	Retry      *retry.Config
	HTTPClient *http.Client
	Logger     *log.Logger
}

// LLMClientAdapter implements domain.LLMClient on top of the Anthropic
// Messages API.
type LLMClientAdapter struct {
	client    APIClient
	model     string
	maxTokens int
	limiter   *ratelimit.Limiter
	retryCfg  *retry.Config
	logger    *log.Logger
}

// NewLLMClientAdapter creates the adapter. A missing API key is a fatal
// configuration error.
func NewLLMClientAdapter(cfg Config) (*LLMClientAdapter, error) {
	if cfg.APIKey == "" {
		return nil, domain.NewConfigurationErr("anthropic api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	return &LLMClientAdapter{
		client:    NewAPIClient(cfg.BaseURL, cfg.APIKey, cfg.HTTPClient),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		limiter:   cfg.Limiter,
		retryCfg:  cfg.Retry,
		logger:    cfg.Logger,
	}, nil
}

// Info implements domain.LLMClient.
func (a *LLMClientAdapter) Info() domain.ProviderInfo {
	return domain.ProviderInfo{
		Name:              ProviderName,
		Model:             a.model,
		Version:           apiVersion,
		SupportsToolUse:   true,
		SupportsStreaming: true,
	}
}

// Chat implements domain.LLMClient.
func (a *LLMClientAdapter) Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	spanCtx, span := telemetry.Start(ctx)
	defer span.End()

	wireReq := a.toMessagesRequest(domain.ChatWithToolsRequest{
		Messages:     req.Messages,
		SystemPrompt: req.SystemPrompt,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
	})

	resp, err := a.send(spanCtx, wireReq)
	if telemetry.RecordErrorAndStatus(span, err) {
		return domain.ChatResponse{}, err
	}

	return domain.ChatResponse{
		Content:      textContent(resp.Content),
		FinishReason: mapStopReason(resp.StopReason),
		Usage:        domain.Usage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens},
	}, nil
}

// ChatWithTools implements domain.LLMClient.
func (a *LLMClientAdapter) ChatWithTools(ctx context.Context, req domain.ChatWithToolsRequest) (domain.ChatWithToolsResponse, error) {
	spanCtx, span := telemetry.Start(ctx)
	defer span.End()

	wireReq := a.toMessagesRequest(req)

	resp, err := a.send(spanCtx, wireReq)
	if telemetry.RecordErrorAndStatus(span, err) {
		return domain.ChatWithToolsResponse{}, err
	}

	toolCalls, err := a.normalizeToolCalls(resp.Content)
	if telemetry.RecordErrorAndStatus(span, err) {
		return domain.ChatWithToolsResponse{}, err
	}

	return domain.ChatWithToolsResponse{
		Content:      textContent(resp.Content),
		ToolCalls:    toolCalls,
		FinishReason: mapStopReason(resp.StopReason),
		Usage:        domain.Usage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens},
	}, nil
}

// send runs admission control, the retry-wrapped vendor call, and the
// post-hoc usage correction.
func (a *LLMClientAdapter) send(ctx context.Context, wireReq MessagesRequest) (*MessagesResponse, error) {
	if a.limiter != nil {
		if err := a.limiter.CheckAndWait(ctx, a.estimateTokens(wireReq)); err != nil {
			return nil, err
		}
	}

	call := func(ctx context.Context) (*MessagesResponse, error) {
		return a.client.Messages(ctx, wireReq)
	}

	var resp *MessagesResponse
	var err error
	if a.retryCfg != nil {
		resp, err = retry.Do(ctx, *a.retryCfg, call)
	} else {
		resp, err = call(ctx)
	}
	if err != nil {
		return nil, err
	}

	if a.limiter != nil {
		a.limiter.RecordActualUsage(resp.Usage.InputTokens + resp.Usage.OutputTokens)
	}
	return resp, nil
}

// Stream implements domain.LLMClient.
func (a *LLMClientAdapter) Stream(ctx context.Context, req domain.ChatRequest) (<-chan domain.StreamChunk, error) {
	return a.stream(ctx, a.toMessagesRequest(domain.ChatWithToolsRequest{
		Messages:     req.Messages,
		SystemPrompt: req.SystemPrompt,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
	}))
}

// StreamWithTools implements domain.LLMClient.
func (a *LLMClientAdapter) StreamWithTools(ctx context.Context, req domain.ChatWithToolsRequest) (<-chan domain.StreamChunk, error) {
	return a.stream(ctx, a.toMessagesRequest(req))
}

// toolCallBuilder accumulates one tool_use block from streaming fragments.
type toolCallBuilder struct {
	id   string
	name string
	json string
}

func (a *LLMClientAdapter) stream(ctx context.Context, wireReq MessagesRequest) (<-chan domain.StreamChunk, error) {
	if a.limiter != nil {
		if err := a.limiter.CheckAndWait(ctx, a.estimateTokens(wireReq)); err != nil {
			return nil, err
		}
	}

	out := make(chan domain.StreamChunk)

	go func() {
		defer close(out)

		builders := map[int]*toolCallBuilder{}
		var order []int
		outputTokens := 0

		err := a.client.MessagesStream(ctx, wireReq, func(event StreamEvent) error {
			switch event.Type {
			case "content_block_start":
				if event.ContentBlock != nil && event.ContentBlock.Type == "tool_use" {
					builders[event.Index] = &toolCallBuilder{
						id:   event.ContentBlock.ID,
						name: event.ContentBlock.Name,
					}
					order = append(order, event.Index)
				}
			case "content_block_delta":
				if event.Delta == nil {
					return nil
				}
				if event.Delta.Text != "" {
					select {
					case out <- domain.StreamChunk{Content: event.Delta.Text}:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
				if event.Delta.PartialJSON != "" {
					if b, ok := builders[event.Index]; ok {
						b.json += event.Delta.PartialJSON
					}
				}
			case "message_delta":
				if event.Usage != nil {
					outputTokens = event.Usage.OutputTokens
				}
			}
			return nil
		})
		if err != nil {
			a.logger.Printf("anthropic stream aborted: %v", err)
			select {
			case out <- domain.StreamChunk{Done: true, Err: err}:
			case <-ctx.Done():
			}
			return
		}

		if a.limiter != nil && outputTokens > 0 {
			a.limiter.RecordActualUsage(a.estimateTokens(wireReq) + outputTokens)
		}

		final := domain.StreamChunk{Done: true}
		for _, idx := range order {
			b := builders[idx]
			args := map[string]any{}
			if b.json != "" {
				if err := json.Unmarshal([]byte(b.json), &args); err != nil {
					a.logger.Printf("anthropic stream: dropping tool call %s with malformed arguments: %v", b.name, err)
					continue
				}
			}
			final.ToolCalls = append(final.ToolCalls, domain.ToolCall{ID: b.id, Name: b.name, Arguments: args})
		}

		select {
		case out <- final:
		case <-ctx.Done():
		}
	}()

	return out, nil
}

// toMessagesRequest converts a neutral request into the vendor wire shape.
// System messages are lifted out of the history into the top-level system
// field; tool results travel as user tool_result blocks.
func (a *LLMClientAdapter) toMessagesRequest(req domain.ChatWithToolsRequest) MessagesRequest {
	maxTokens := a.maxTokens
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = *req.MaxTokens
	}

	wireReq := MessagesRequest{
		Model:       a.model,
		MaxTokens:   maxTokens,
		System:      req.SystemPrompt,
		Temperature: req.Temperature,
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case domain.MessageRole_System:
			if wireReq.System == "" {
				wireReq.System = msg.Content
			}
		case domain.MessageRole_Tool:
			toolUseID := ""
			if msg.ToolCallID != nil {
				toolUseID = *msg.ToolCallID
			}
			block := ContentBlock{
				Type:      "tool_result",
				ToolUseID: toolUseID,
				Content:   msg.Content,
			}
			// All results for one assistant turn must share the next user
			// message, so consecutive tool messages fold into one turn.
			if n := len(wireReq.Messages); n > 0 {
				last := &wireReq.Messages[n-1]
				if last.Role == "user" && len(last.Content) > 0 && last.Content[0].Type == "tool_result" {
					last.Content = append(last.Content, block)
					continue
				}
			}
			wireReq.Messages = append(wireReq.Messages, ChatMessage{
				Role:    "user",
				Content: []ContentBlock{block},
			})
		case domain.MessageRole_Assistant:
			var blocks []ContentBlock
			if msg.Content != "" {
				blocks = append(blocks, ContentBlock{Type: "text", Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				input, err := json.Marshal(call.Arguments)
				if err != nil {
					input = []byte("{}")
				}
				blocks = append(blocks, ContentBlock{
					Type:  "tool_use",
					ID:    call.ID,
					Name:  call.Name,
					Input: input,
				})
			}
			wireReq.Messages = append(wireReq.Messages, ChatMessage{Role: "assistant", Content: blocks})
		default:
			wireReq.Messages = append(wireReq.Messages, ChatMessage{
				Role:    "user",
				Content: []ContentBlock{{Type: "text", Text: msg.Content}},
			})
		}
	}

	for _, tool := range req.Tools {
		wireReq.Tools = append(wireReq.Tools, Tool{
			Name:          tool.Name,
			Description:   tool.Description,
			InputSchema:   translateSchema(tool.Parameters, a.logger.Printf),
			InputExamples: tool.Examples,
		})
	}

	wireReq.ToolChoice = mapToolChoice(req.ToolChoice, len(req.Tools) > 0)

	return wireReq
}

func mapToolChoice(choice domain.ToolChoice, hasTools bool) *ToolChoice {
	if !hasTools {
		return nil
	}
	switch choice.Mode {
	case domain.ToolChoiceMode_Required:
		return &ToolChoice{Type: "any"}
	case domain.ToolChoiceMode_Forced:
		return &ToolChoice{Type: "tool", Name: choice.ToolName}
	case domain.ToolChoiceMode_None:
		return &ToolChoice{Type: "none"}
	default:
		return &ToolChoice{Type: "auto"}
	}
}

// normalizeToolCalls extracts tool_use blocks into the neutral shape.
func (a *LLMClientAdapter) normalizeToolCalls(blocks []ContentBlock) ([]domain.ToolCall, error) {
	var calls []domain.ToolCall
	for _, block := range blocks {
		if block.Type != "tool_use" {
			continue
		}
		args := map[string]any{}
		if len(block.Input) > 0 {
			if err := json.Unmarshal(block.Input, &args); err != nil {
				return nil, domain.NewToolValidationErr(block.Name, "malformed tool call arguments: "+err.Error())
			}
		}
		calls = append(calls, domain.ToolCall{ID: block.ID, Name: block.Name, Arguments: args})
	}
	return calls, nil
}

func textContent(blocks []ContentBlock) string {
	content := ""
	for _, block := range blocks {
		if block.Type == "text" {
			content += block.Text
		}
	}
	return content
}

func mapStopReason(reason string) domain.FinishReason {
	switch reason {
	case "end_turn", "stop_sequence":
		return domain.FinishReason_Stop
	case "max_tokens":
		return domain.FinishReason_Length
	case "tool_use":
		return domain.FinishReason_ToolCalls
	default:
		return domain.FinishReason_Other
	}
}

// estimateTokens applies the chars/4 heuristic plus the response budget so
// admission control can run before the call.
func (a *LLMClientAdapter) estimateTokens(req MessagesRequest) int {
	chars := len(req.System)
	for _, msg := range req.Messages {
		for _, block := range msg.Content {
			chars += len(block.Text) + len(block.Content) + len(block.Input)
		}
	}
	return (chars+3)/4 + req.MaxTokens
}

var _ domain.LLMClient = (*LLMClientAdapter)(nil)
