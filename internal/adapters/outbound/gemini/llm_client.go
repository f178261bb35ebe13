package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/cleitonmarx/symbiont-llm-engine/internal/domain"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/ratelimit"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/retry"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/telemetry"
)

const (
	// ProviderName identifies this adapter in errors, limiter keys and metrics.
	ProviderName = "gemini"

	// DefaultModel is used when no model override is configured.
	DefaultModel = "gemini-2.5-flash"

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

// LLMClientAdapter implements domain.LLMClient on top of the Generative
// Language API. The API has no native input-example support, so examples
// are folded into tool descriptions before translation. Function calls
// arrive without IDs; the adapter synthesizes stable call_<n> identifiers.
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
		return nil, domain.NewConfigurationErr("gemini api key is required")
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
		Version:           "v1beta",
		SupportsToolUse:   true,
		SupportsStreaming: true,
	}
}

// Chat implements domain.LLMClient.
func (a *LLMClientAdapter) Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	spanCtx, span := telemetry.Start(ctx)
	defer span.End()

	wireReq := a.toGenerateRequest(domain.ChatWithToolsRequest{
		Messages:     req.Messages,
		SystemPrompt: req.SystemPrompt,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
	})

	resp, err := a.send(spanCtx, wireReq)
	if telemetry.RecordErrorAndStatus(span, err) {
		return domain.ChatResponse{}, err
	}

	candidate, err := firstCandidate(resp)
	if telemetry.RecordErrorAndStatus(span, err) {
		return domain.ChatResponse{}, err
	}

	return domain.ChatResponse{
		Content:      textContent(candidate.Content),
		FinishReason: mapFinishReason(candidate, nil),
		Usage:        usage(resp),
	}, nil
}

// ChatWithTools implements domain.LLMClient.
func (a *LLMClientAdapter) ChatWithTools(ctx context.Context, req domain.ChatWithToolsRequest) (domain.ChatWithToolsResponse, error) {
	spanCtx, span := telemetry.Start(ctx)
	defer span.End()

	wireReq := a.toGenerateRequest(req)

	resp, err := a.send(spanCtx, wireReq)
	if telemetry.RecordErrorAndStatus(span, err) {
		return domain.ChatWithToolsResponse{}, err
	}

	candidate, err := firstCandidate(resp)
	if telemetry.RecordErrorAndStatus(span, err) {
		return domain.ChatWithToolsResponse{}, err
	}

	toolCalls := normalizeToolCalls(candidate.Content)

	return domain.ChatWithToolsResponse{
		Content:      textContent(candidate.Content),
		ToolCalls:    toolCalls,
		FinishReason: mapFinishReason(candidate, toolCalls),
		Usage:        usage(resp),
	}, nil
}

// send runs admission control, the retry-wrapped vendor call, and the
// post-hoc usage correction.
func (a *LLMClientAdapter) send(ctx context.Context, wireReq GenerateRequest) (*GenerateResponse, error) {
	if a.limiter != nil {
		if err := a.limiter.CheckAndWait(ctx, a.estimateTokens(wireReq)); err != nil {
			return nil, err
		}
	}

	call := func(ctx context.Context) (*GenerateResponse, error) {
		return a.client.GenerateContent(ctx, a.model, wireReq)
	}

	var resp *GenerateResponse
	var err error
	if a.retryCfg != nil {
		resp, err = retry.Do(ctx, *a.retryCfg, call)
	} else {
		resp, err = call(ctx)
	}
	if err != nil {
		return nil, err
	}

	if a.limiter != nil && resp.UsageMetadata != nil {
		a.limiter.RecordActualUsage(resp.UsageMetadata.PromptTokenCount + resp.UsageMetadata.CandidatesTokenCount)
	}
	return resp, nil
}

// Stream implements domain.LLMClient.
func (a *LLMClientAdapter) Stream(ctx context.Context, req domain.ChatRequest) (<-chan domain.StreamChunk, error) {
	return a.stream(ctx, a.toGenerateRequest(domain.ChatWithToolsRequest{
		Messages:     req.Messages,
		SystemPrompt: req.SystemPrompt,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
	}))
}

// StreamWithTools implements domain.LLMClient.
func (a *LLMClientAdapter) StreamWithTools(ctx context.Context, req domain.ChatWithToolsRequest) (<-chan domain.StreamChunk, error) {
	return a.stream(ctx, a.toGenerateRequest(req))
}

func (a *LLMClientAdapter) stream(ctx context.Context, wireReq GenerateRequest) (<-chan domain.StreamChunk, error) {
	if a.limiter != nil {
		if err := a.limiter.CheckAndWait(ctx, a.estimateTokens(wireReq)); err != nil {
			return nil, err
		}
	}

	out := make(chan domain.StreamChunk)

	go func() {
		defer close(out)

		var functionCalls []FunctionCall
		totalTokens := 0

		err := a.client.StreamGenerateContent(ctx, a.model, wireReq, func(chunk GenerateResponse) error {
			if chunk.UsageMetadata != nil {
				totalTokens = chunk.UsageMetadata.PromptTokenCount + chunk.UsageMetadata.CandidatesTokenCount
			}
			for _, candidate := range chunk.Candidates {
				for _, part := range candidate.Content.Parts {
					if part.Text != "" {
						select {
						case out <- domain.StreamChunk{Content: part.Text}:
						case <-ctx.Done():
							return ctx.Err()
						}
					}
					if part.FunctionCall != nil {
						functionCalls = append(functionCalls, *part.FunctionCall)
					}
				}
			}
			return nil
		})
		if err != nil {
			a.logger.Printf("gemini stream aborted: %v", err)
			select {
			case out <- domain.StreamChunk{Done: true, Err: err}:
			case <-ctx.Done():
			}
			return
		}

		if a.limiter != nil && totalTokens > 0 {
			a.limiter.RecordActualUsage(totalTokens)
		}

		final := domain.StreamChunk{Done: true}
		for i, call := range functionCalls {
			final.ToolCalls = append(final.ToolCalls, domain.ToolCall{
				ID:        fmt.Sprintf("call_%d", i),
				Name:      call.Name,
				Arguments: call.Args,
			})
		}

		select {
		case out <- final:
		case <-ctx.Done():
		}
	}()

	return out, nil
}

// toGenerateRequest converts a neutral request into the vendor wire shape.
// System messages never enter contents; the first one becomes the system
// instruction. Tool results travel as functionResponse parts and need the
// original function name, recovered from the assistant call that produced
// the matching tool call ID.
func (a *LLMClientAdapter) toGenerateRequest(req domain.ChatWithToolsRequest) GenerateRequest {
	maxTokens := a.maxTokens
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		maxTokens = *req.MaxTokens
	}

	wireReq := GenerateRequest{
		GenerationConfig: &GenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: &maxTokens,
		},
	}

	systemPrompt := req.SystemPrompt
	callNames := map[string]string{}

	for _, msg := range req.Messages {
		switch msg.Role {
		case domain.MessageRole_System:
			if systemPrompt == "" {
				systemPrompt = msg.Content
			}
		case domain.MessageRole_Tool:
			name := ""
			if msg.ToolCallID != nil {
				name = callNames[*msg.ToolCallID]
			}
			response := map[string]any{}
			if err := json.Unmarshal([]byte(msg.Content), &response); err != nil {
				response = map[string]any{"result": msg.Content}
			}
			wireReq.Contents = append(wireReq.Contents, Content{
				Role: "user",
				Parts: []Part{{
					FunctionResponse: &FunctionResponse{Name: name, Response: response},
				}},
			})
		case domain.MessageRole_Assistant:
			var parts []Part
			if msg.Content != "" {
				parts = append(parts, Part{Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				callNames[call.ID] = call.Name
				parts = append(parts, Part{
					FunctionCall: &FunctionCall{Name: call.Name, Args: call.Arguments},
				})
			}
			wireReq.Contents = append(wireReq.Contents, Content{Role: "model", Parts: parts})
		default:
			wireReq.Contents = append(wireReq.Contents, Content{
				Role:  "user",
				Parts: []Part{{Text: msg.Content}},
			})
		}
	}

	if systemPrompt != "" {
		wireReq.SystemInstruction = &Content{Parts: []Part{{Text: systemPrompt}}}
	}

	if len(req.Tools) > 0 {
		declarations := make([]FunctionDeclaration, 0, len(req.Tools))
		for _, tool := range req.Tools {
			declarations = append(declarations, FunctionDeclaration{
				Name:        tool.Name,
				Description: domain.EnrichDescriptionWithExamples(tool.Description, tool.Examples),
				Parameters:  translateSchema(tool.Parameters, a.logger.Printf),
			})
		}
		wireReq.Tools = []ToolDeclaration{{FunctionDeclarations: declarations}}
		wireReq.ToolConfig = mapToolChoice(req.ToolChoice)
	}

	return wireReq
}

func mapToolChoice(choice domain.ToolChoice) *ToolConfig {
	cfg := &FunctionCallingConfig{}
	switch choice.Mode {
	case domain.ToolChoiceMode_Required:
		cfg.Mode = "ANY"
	case domain.ToolChoiceMode_None:
		cfg.Mode = "NONE"
	case domain.ToolChoiceMode_Forced:
		cfg.Mode = "ANY"
		cfg.AllowedFunctionNames = []string{choice.ToolName}
	default:
		cfg.Mode = "AUTO"
	}
	return &ToolConfig{FunctionCallingConfig: cfg}
}

// normalizeToolCalls extracts functionCall parts into the neutral shape,
// synthesizing call_<n> IDs in part order.
func normalizeToolCalls(content Content) []domain.ToolCall {
	var calls []domain.ToolCall
	for _, part := range content.Parts {
		if part.FunctionCall == nil {
			continue
		}
		args := part.FunctionCall.Args
		if args == nil {
			args = map[string]any{}
		}
		calls = append(calls, domain.ToolCall{
			ID:        fmt.Sprintf("call_%d", len(calls)),
			Name:      part.FunctionCall.Name,
			Arguments: args,
		})
	}
	return calls
}

func firstCandidate(resp *GenerateResponse) (Candidate, error) {
	if len(resp.Candidates) == 0 {
		return Candidate{}, domain.NewAPIErr("no candidates in response", 0, ProviderName)
	}
	return resp.Candidates[0], nil
}

func textContent(content Content) string {
	text := ""
	for _, part := range content.Parts {
		text += part.Text
	}
	return text
}

func usage(resp *GenerateResponse) domain.Usage {
	if resp.UsageMetadata == nil {
		return domain.Usage{}
	}
	return domain.Usage{
		InputTokens:  resp.UsageMetadata.PromptTokenCount,
		OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
	}
}

func mapFinishReason(candidate Candidate, toolCalls []domain.ToolCall) domain.FinishReason {
	if len(toolCalls) > 0 {
		return domain.FinishReason_ToolCalls
	}
	switch candidate.FinishReason {
	case "STOP", "":
		return domain.FinishReason_Stop
	case "MAX_TOKENS":
		return domain.FinishReason_Length
	default:
		return domain.FinishReason_Other
	}
}

// estimateTokens applies the chars/4 heuristic plus the response budget so
// admission control can run before the call.
func (a *LLMClientAdapter) estimateTokens(req GenerateRequest) int {
	chars := 0
	if req.SystemInstruction != nil {
		for _, part := range req.SystemInstruction.Parts {
			chars += len(part.Text)
		}
	}
	for _, content := range req.Contents {
		for _, part := range content.Parts {
			chars += len(part.Text)
		}
	}
	maxTokens := defaultMaxTokens
	if req.GenerationConfig != nil && req.GenerationConfig.MaxOutputTokens != nil {
		maxTokens = *req.GenerationConfig.MaxOutputTokens
	}
	return (chars+3)/4 + maxTokens
}

var _ domain.LLMClient = (*LLMClientAdapter)(nil)
