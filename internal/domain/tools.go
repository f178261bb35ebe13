package domain

import "context"

// ToolDefinition describes one capability the model may request. Definitions
// are immutable and registered at process start.
type ToolDefinition struct {
	Name                 string
	Description          string
	Parameters           *SchemaNode
	RequiresConfirmation bool
	Examples             []map[string]any
}

// ToolExecutionContext carries identifying data through every tool
// execution. The engine treats it as opaque.
type ToolExecutionContext struct {
	UserID         string
	ConversationID string
}

// ToolExecutionResult is the outcome of executing one tool call. Content is
// serialized for model consumption; Error is set when Success is false.
type ToolExecutionResult struct {
	ToolCallID string
	ToolName   string
	Content    string
	Success    bool
	Error      string
}

// SuccessResult builds a successful execution result for the given call.
func SuccessResult(call ToolCall, content string) ToolExecutionResult {
	return ToolExecutionResult{
		ToolCallID: call.ID,
		ToolName:   call.Name,
		Content:    content,
		Success:    true,
	}
}

// ErrorResult builds a failed execution result for the given call.
func ErrorResult(call ToolCall, errMsg string) ToolExecutionResult {
	return ToolExecutionResult{
		ToolCallID: call.ID,
		ToolName:   call.Name,
		Content:    "",
		Success:    false,
		Error:      errMsg,
	}
}

// ToolExecutor executes resolved tool calls against domain logic. It is
// implemented by the host application and consumed by the tool loop.
type ToolExecutor interface {
	// Execute runs one tool call. Failures are reported through the result;
	// a non-nil error is reserved for context cancellation.
	Execute(ctx context.Context, call ToolCall, execCtx ToolExecutionContext) (ToolExecutionResult, error)

	// RequiresConfirmation reports whether the named tool mutates state and
	// must be confirmed by the user before execution.
	RequiresConfirmation(toolName string) bool
}
