package usecases

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter              = otel.Meter("usecases")
	LLMTokensUsed      metric.Int64Counter
	ToolLoopIterations metric.Int64Counter
	ToolCallsExecuted  metric.Int64Counter
	LLMRetries         metric.Int64Counter
)

func init() {
	var err error
	// Tokens consumed by LLM (input + output)
	LLMTokensUsed, err = meter.Int64Counter(
		"llm_tokens_used_total",
		metric.WithDescription("Total LLM tokens consumed"),
	)
	if err != nil {
		panic(err)
	}

	ToolLoopIterations, err = meter.Int64Counter(
		"tool_loop_iterations_total",
		metric.WithDescription("Total tool loop iterations executed"),
	)
	if err != nil {
		panic(err)
	}

	ToolCallsExecuted, err = meter.Int64Counter(
		"tool_calls_total",
		metric.WithDescription("Total tool calls executed"),
	)
	if err != nil {
		panic(err)
	}

	LLMRetries, err = meter.Int64Counter(
		"llm_retries_total",
		metric.WithDescription("Total LLM call retries"),
	)
	if err != nil {
		panic(err)
	}
}

// RecordLLMTokensUsed records the number of tokens used in an LLM chat operation.
func RecordLLMTokensUsed(ctx context.Context, inputTokens, outputTokens int) {
	LLMTokensUsed.Add(ctx, int64(inputTokens), metric.WithAttributes(
		attribute.String("token_type", "prompt"),
	))
	LLMTokensUsed.Add(ctx, int64(outputTokens), metric.WithAttributes(
		attribute.String("token_type", "completion"),
	))
}

// RecordToolLoopIteration records one completed loop iteration.
func RecordToolLoopIteration(ctx context.Context) {
	ToolLoopIterations.Add(ctx, 1)
}

// RecordToolCall records one executed tool call and its outcome.
func RecordToolCall(ctx context.Context, toolName string, success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	ToolCallsExecuted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", toolName),
		attribute.String("outcome", outcome),
	))
}

// RecordLLMRetry records one retried LLM call for the given provider.
func RecordLLMRetry(ctx context.Context, provider string) {
	LLMRetries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
	))
}
