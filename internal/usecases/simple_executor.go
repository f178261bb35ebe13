package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cleitonmarx/symbiont-llm-engine/internal/domain"
)

// ToolHandler is the domain logic behind one tool name.
type ToolHandler func(ctx context.Context, args map[string]any, execCtx domain.ToolExecutionContext) (any, error)

// SimpleExecutor implements domain.ToolExecutor over a handler map. String
// handler results pass through unchanged; any other value is serialized as
// JSON for model consumption.
type SimpleExecutor struct {
	handlers             map[string]ToolHandler
	requiresConfirmation func(toolName string) bool
}

// NewSimpleExecutor creates an executor from a handler map. The
// requiresConfirmation predicate usually consults the tool registry; nil
// means no tool needs confirmation.
func NewSimpleExecutor(handlers map[string]ToolHandler, requiresConfirmation func(toolName string) bool) SimpleExecutor {
	if requiresConfirmation == nil {
		requiresConfirmation = func(string) bool { return false }
	}
	return SimpleExecutor{
		handlers:             handlers,
		requiresConfirmation: requiresConfirmation,
	}
}

// Execute implements domain.ToolExecutor. Unknown tools and handler
// failures surface as failed results, never as errors, so the model can be
// told and self-correct.
func (e SimpleExecutor) Execute(ctx context.Context, call domain.ToolCall, execCtx domain.ToolExecutionContext) (domain.ToolExecutionResult, error) {
	handler, ok := e.handlers[call.Name]
	if !ok {
		return domain.ErrorResult(call, domain.NewToolNotFoundErr(call.Name).Error()), nil
	}

	value, err := handler(ctx, call.Arguments, execCtx)
	if err != nil {
		if ctx.Err() != nil {
			return domain.ToolExecutionResult{}, ctx.Err()
		}
		return domain.ErrorResult(call, err.Error()), nil
	}

	content, err := serializeResult(value)
	if err != nil {
		return domain.ErrorResult(call, err.Error()), nil
	}
	return domain.SuccessResult(call, content), nil
}

// RequiresConfirmation implements domain.ToolExecutor.
func (e SimpleExecutor) RequiresConfirmation(toolName string) bool {
	return e.requiresConfirmation(toolName)
}

func serializeResult(value any) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("serialize tool result: %w", err)
	}
	return string(b), nil
}

var _ domain.ToolExecutor = (*SimpleExecutor)(nil)
