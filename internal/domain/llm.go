package domain

import "context"

// MessageRole identifies who produced a conversation message.
type MessageRole string

const (
	MessageRole_User      MessageRole = "user"
	MessageRole_Assistant MessageRole = "assistant"
	MessageRole_System    MessageRole = "system"
	MessageRole_Tool      MessageRole = "tool"
)

// Message is one entry in a conversation history. Histories are append-only;
// a tool message always immediately follows the assistant message that
// produced the matching ToolCallID.
type Message struct {
	Role       MessageRole
	Content    string
	ToolCalls  []ToolCall
	ToolCallID *string
}

// ToolMessage builds the tool-role message carrying one execution result.
func ToolMessage(toolCallID, content string) Message {
	return Message{
		Role:       MessageRole_Tool,
		Content:    content,
		ToolCallID: &toolCallID,
	}
}

// ToolCall is one concrete invocation request emitted by the model.
// Arguments are already parsed from the provider's JSON payload.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Usage contains token usage information for one model round-trip.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// FinishReason is the normalized reason a model stopped generating.
type FinishReason string

const (
	FinishReason_Stop      FinishReason = "stop"
	FinishReason_ToolCalls FinishReason = "tool_calls"
	FinishReason_Length    FinishReason = "length"
	FinishReason_Other     FinishReason = "other"
)

// ChatRequest represents a plain chat request without tools.
type ChatRequest struct {
	Messages     []Message
	SystemPrompt string
	// Optional parameters
	Temperature *float64
	MaxTokens   *int
}

// ChatResponse represents the response to a plain chat request.
type ChatResponse struct {
	Content      string
	FinishReason FinishReason
	Usage        Usage
}

// ChatWithToolsRequest represents a tool-enabled chat request.
type ChatWithToolsRequest struct {
	Messages     []Message
	Tools        []ToolDefinition
	ToolChoice   ToolChoice
	SystemPrompt string
	// Optional parameters
	Temperature *float64
	MaxTokens   *int
}

// ChatWithToolsResponse is the result of one tool-enabled round-trip.
// ToolCalls is empty when the model answered with plain text.
type ChatWithToolsResponse struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason FinishReason
	Usage        Usage
}

// ToolChoiceMode controls how the model may answer a tool-enabled call.
type ToolChoiceMode string

const (
	// ToolChoiceMode_Auto lets the model decide between text and tool calls.
	ToolChoiceMode_Auto ToolChoiceMode = "auto"
	// ToolChoiceMode_Required forces the model to call some tool.
	ToolChoiceMode_Required ToolChoiceMode = "required"
	// ToolChoiceMode_None disables tool calling for this turn.
	ToolChoiceMode_None ToolChoiceMode = "none"
	// ToolChoiceMode_Forced forces the model to call one named tool.
	ToolChoiceMode_Forced ToolChoiceMode = "forced"
)

// ToolChoice selects a tool-choice mode. ToolName is set only for the
// forced mode. The zero value means auto.
type ToolChoice struct {
	Mode     ToolChoiceMode
	ToolName string
}

// ForcedToolChoice returns a choice that compels the model to call name.
func ForcedToolChoice(name string) ToolChoice {
	return ToolChoice{Mode: ToolChoiceMode_Forced, ToolName: name}
}

// StreamChunk is one increment of a streaming response. Done is true on the
// final chunk, which also carries any accumulated tool calls. A non-nil Err
// on the final chunk means the stream failed mid-flight and the content
// received so far is incomplete.
type StreamChunk struct {
	Content   string
	Done      bool
	ToolCalls []ToolCall
	Err       error
}

// ProviderInfo describes a concrete model provider.
type ProviderInfo struct {
	Name              string
	Model             string
	Version           string
	SupportsToolUse   bool
	SupportsStreaming bool
}

// LLMClient defines the interface for interacting with an LLM provider.
// Implementations own rate limiting, retries and schema translation;
// callers only see neutral types.
type LLMClient interface {
	// Chat sends a plain chat request and returns the full assistant response.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)

	// ChatWithTools sends a tool-enabled chat request. The response may carry
	// tool calls instead of (or in addition to) text content.
	ChatWithTools(ctx context.Context, req ChatWithToolsRequest) (ChatWithToolsResponse, error)

	// Stream streams the assistant response as incremental chunks.
	Stream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error)

	// StreamWithTools streams a tool-enabled response; tool calls are
	// delivered on the final chunk once fully accumulated.
	StreamWithTools(ctx context.Context, req ChatWithToolsRequest) (<-chan StreamChunk, error)

	// Info returns static provider metadata and capability flags.
	Info() ProviderInfo
}
