package usecases

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cleitonmarx/symbiont-llm-engine/internal/domain"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/telemetry"
	"github.com/cleitonmarx/symbiont/depend"
	"github.com/google/uuid"
)

// ToolLoop drives the iterative exchange between the model and the tool
// executor: it sends the running history plus the tool catalog, executes
// requested calls, feeds results back, and repeats until the model answers
// in plain text or the iteration ceiling is hit.
type ToolLoop interface {
	Run(ctx context.Context, req ToolLoopRequest, opts ...ToolLoopOption) (*ToolLoopResult, error)
}

// ToolLoopRequest carries the caller-owned inputs of one loop invocation.
// Messages must not be mutated by the caller while the loop runs.
type ToolLoopRequest struct {
	Messages []domain.Message
	Tools    []domain.ToolDefinition
	ExecCtx  domain.ToolExecutionContext
}

// ToolLoopResult is the outcome of one loop invocation. Pending is non-nil
// when a mutating tool suspended the turn awaiting user confirmation.
type ToolLoopResult struct {
	Content     string
	Iterations  int
	ToolCalls   []domain.ToolCall
	ToolResults []domain.ToolExecutionResult
	Messages    []domain.Message
	Pending     *domain.PendingToolConfirmation
}

// ToolLoopParams are the per-invocation knobs, set through options.
type ToolLoopParams struct {
	MaxIterations       int
	SystemPrompt        string
	Temperature         *float64
	MaxTokens           *int
	OnIteration         func(iteration int, resp domain.ChatWithToolsResponse)
	SkipConfirmationFor map[string]bool
}

// ToolLoopOption customizes one loop invocation.
type ToolLoopOption func(*ToolLoopParams)

// WithMaxIterations overrides the iteration ceiling for this invocation.
func WithMaxIterations(n int) ToolLoopOption {
	return func(p *ToolLoopParams) {
		p.MaxIterations = n
	}
}

// WithSystemPrompt sets the system prompt for every model call of the loop.
func WithSystemPrompt(prompt string) ToolLoopOption {
	return func(p *ToolLoopParams) {
		p.SystemPrompt = prompt
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) ToolLoopOption {
	return func(p *ToolLoopParams) {
		p.Temperature = &temperature
	}
}

// WithMaxTokens sets the per-call response token budget.
func WithMaxTokens(maxTokens int) ToolLoopOption {
	return func(p *ToolLoopParams) {
		p.MaxTokens = &maxTokens
	}
}

// WithOnIteration installs a telemetry-only observer invoked after each
// model round-trip. It must not affect control flow.
func WithOnIteration(fn func(iteration int, resp domain.ChatWithToolsResponse)) ToolLoopOption {
	return func(p *ToolLoopParams) {
		p.OnIteration = fn
	}
}

// WithSkipConfirmationFor executes the named mutating tools directly,
// bypassing the confirmation gate. Used when resuming an already-confirmed
// call.
func WithSkipConfirmationFor(toolNames ...string) ToolLoopOption {
	return func(p *ToolLoopParams) {
		for _, name := range toolNames {
			p.SkipConfirmationFor[name] = true
		}
	}
}

// ToolLoopImpl is the implementation of the ToolLoop use case.
type ToolLoopImpl struct {
	llmClient       domain.LLMClient
	executor        domain.ToolExecutor
	prompts         ConfirmationPrompts
	logger          *log.Logger
	maxIterations   int
	confirmationTTL time.Duration
}

// NewToolLoopImpl creates a new instance of ToolLoopImpl.
func NewToolLoopImpl(
	llmClient domain.LLMClient,
	executor domain.ToolExecutor,
	prompts ConfirmationPrompts,
	logger *log.Logger,
	maxIterations int,
	confirmationTTL time.Duration,
) ToolLoopImpl {
	return ToolLoopImpl{
		llmClient:       llmClient,
		executor:        executor,
		prompts:         prompts,
		logger:          logger,
		maxIterations:   maxIterations,
		confirmationTTL: confirmationTTL,
	}
}

// Run executes the tool loop. The input history is extended by appending
// only; on a confirmation suspension the result carries the extended
// history so the caller can resume the turn later.
func (tl ToolLoopImpl) Run(ctx context.Context, req ToolLoopRequest, opts ...ToolLoopOption) (*ToolLoopResult, error) {
	spanCtx, span := telemetry.Start(ctx)
	defer span.End()

	params := ToolLoopParams{
		MaxIterations:       tl.maxIterations,
		SkipConfirmationFor: map[string]bool{},
	}
	for _, opt := range opts {
		opt(&params)
	}

	messages := append([]domain.Message(nil), req.Messages...)
	var toolCalls []domain.ToolCall
	var toolResults []domain.ToolExecutionResult

	for iteration := 1; ; iteration++ {
		if iteration > params.MaxIterations {
			err := domain.NewMaxIterationsErr(params.MaxIterations)
			telemetry.RecordErrorAndStatus(span, err)
			return nil, err
		}

		resp, err := tl.llmClient.ChatWithTools(spanCtx, domain.ChatWithToolsRequest{
			Messages:     messages,
			Tools:        req.Tools,
			SystemPrompt: params.SystemPrompt,
			Temperature:  params.Temperature,
			MaxTokens:    params.MaxTokens,
		})
		if telemetry.RecordErrorAndStatus(span, err) {
			return nil, err
		}

		RecordLLMTokensUsed(spanCtx, resp.Usage.InputTokens, resp.Usage.OutputTokens)
		RecordToolLoopIteration(spanCtx)

		if params.OnIteration != nil {
			params.OnIteration(iteration, resp)
		}

		if len(resp.ToolCalls) == 0 {
			messages = append(messages, domain.Message{
				Role:    domain.MessageRole_Assistant,
				Content: resp.Content,
			})
			return &ToolLoopResult{
				Content:     resp.Content,
				Iterations:  iteration,
				ToolCalls:   toolCalls,
				ToolResults: toolResults,
				Messages:    messages,
			}, nil
		}

		messages = append(messages, domain.Message{
			Role:      domain.MessageRole_Assistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for idx, call := range resp.ToolCalls {
			if tl.executor.RequiresConfirmation(call.Name) && !params.SkipConfirmationFor[call.Name] {
				// Sibling calls after the suspended one never run. Each
				// still needs a tool message so no tool call id in the
				// history is left without a result when the turn resumes.
				for _, sibling := range resp.ToolCalls[idx+1:] {
					result := domain.ErrorResult(sibling, "not executed: awaiting confirmation of "+call.Name)
					toolResults = append(toolResults, result)
					messages = append(messages, domain.ToolMessage(sibling.ID, "Error: "+result.Error))
				}
				return &ToolLoopResult{
					Content:     resp.Content,
					Iterations:  iteration,
					ToolCalls:   toolCalls,
					ToolResults: toolResults,
					Messages:    messages,
					Pending:     tl.newPendingConfirmation(call, req.ExecCtx),
				}, nil
			}

			toolCalls = append(toolCalls, call)

			result, err := tl.execute(spanCtx, call, req.ExecCtx)
			if err != nil {
				// Cancellation: preserve completed results, fabricate nothing.
				telemetry.RecordErrorAndStatus(span, err)
				return &ToolLoopResult{
					Iterations:  iteration,
					ToolCalls:   toolCalls,
					ToolResults: toolResults,
					Messages:    messages,
				}, err
			}

			toolResults = append(toolResults, result)
			RecordToolCall(spanCtx, call.Name, result.Success)

			content := result.Content
			if !result.Success {
				content = "Error: " + result.Error
			}
			messages = append(messages, domain.ToolMessage(call.ID, content))
		}
	}
}

// execute runs one tool call, converting executor panics and failures into
// failed results so a single broken tool never crashes the turn. The only
// error returned is context cancellation.
func (tl ToolLoopImpl) execute(ctx context.Context, call domain.ToolCall, execCtx domain.ToolExecutionContext) (result domain.ToolExecutionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			tl.logger.Printf("tool %s panicked: %v", call.Name, r)
			result = domain.ErrorResult(call, fmt.Sprintf("panic: %v", r))
			err = nil
		}
	}()

	result, execErr := tl.executor.Execute(ctx, call, execCtx)
	if execErr != nil {
		if ctx.Err() != nil {
			return domain.ToolExecutionResult{}, ctx.Err()
		}
		return domain.ErrorResult(call, execErr.Error()), nil
	}
	return result, nil
}

// newPendingConfirmation represents a suspended mutating call. Confirm
// resumes it through the executor; Reject declines it with a failed result
// that can be fed back to the model.
func (tl ToolLoopImpl) newPendingConfirmation(call domain.ToolCall, execCtx domain.ToolExecutionContext) *domain.PendingToolConfirmation {
	return &domain.PendingToolConfirmation{
		ID:          uuid.New().String(),
		ToolCall:    call,
		Description: tl.prompts.Describe(call),
		ExpiresAt:   time.Now().Add(tl.confirmationTTL),
		ConfirmFn: func(ctx context.Context) (domain.ToolExecutionResult, error) {
			return tl.execute(ctx, call, execCtx)
		},
		RejectFn: func(reason string) domain.ToolExecutionResult {
			return domain.ErrorResult(call, reason)
		},
	}
}

// InitToolLoop is the initializer for the ToolLoop use case.
type InitToolLoop struct {
	LLMClient domain.LLMClient    `resolve:""`
	Executor  domain.ToolExecutor `resolve:""`
	Logger    *log.Logger         `resolve:""`
	// Maximum number of model round-trips per turn, the safety valve
	// against runaway tool-calling loops.
	MaxIterations int `config:"TOOL_LOOP_MAX_ITERATIONS" default:"5"`
	// Pending confirmations older than this are treated as abandoned and
	// resolve to a rejection.
	ConfirmationTTLHours int `config:"CONFIRMATION_TTL_HOURS" default:"24"`
}

// Initialize registers the ToolLoop use case in the dependency container.
func (i InitToolLoop) Initialize(ctx context.Context) (context.Context, error) {
	prompts, err := LoadConfirmationPrompts()
	if err != nil {
		return ctx, err
	}

	depend.Register[ToolLoop](NewToolLoopImpl(
		i.LLMClient,
		i.Executor,
		prompts,
		i.Logger,
		i.MaxIterations,
		time.Duration(i.ConfirmationTTLHours)*time.Hour,
	))
	return ctx, nil
}
