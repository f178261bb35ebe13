package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cleitonmarx/symbiont-llm-engine/internal/domain"
	domain_mocks "github.com/cleitonmarx/symbiont-llm-engine/internal/domain/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestConfirmationPrompts_Describe(t *testing.T) {
	prompts, err := LoadConfirmationPrompts()
	require.NoError(t, err)

	tests := map[string]struct {
		call     domain.ToolCall
		expected string
	}{
		"known-tool-uses-template": {
			call: domain.ToolCall{
				Name: "record_metric",
				Arguments: map[string]any{
					"type":  "weight",
					"value": 70.5,
					"unit":  "kg",
				},
			},
			expected: "Record weight of 70.5 kg?",
		},
		"unknown-tool-uses-fallback": {
			call: domain.ToolCall{
				Name:      "custom_tool",
				Arguments: map[string]any{"x": 1},
			},
			expected: "Run custom_tool with the provided arguments?",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.expected, prompts.Describe(tt.call))
		})
	}
}

func TestConfirmationClassifierImpl_Classify(t *testing.T) {
	tests := map[string]struct {
		setExpectations func(llm *domain_mocks.MockLLMClient)
		expectedIntent  domain.ConfirmationIntent
		expectedErr     string
	}{
		"confirm": {
			setExpectations: func(llm *domain_mocks.MockLLMClient) {
				llm.EXPECT().ChatWithTools(mock.Anything, mock.MatchedBy(func(req domain.ChatWithToolsRequest) bool {
					return req.ToolChoice.Mode == domain.ToolChoiceMode_Forced &&
						req.ToolChoice.ToolName == "classify_confirmation"
				})).Return(domain.ChatWithToolsResponse{
					ToolCalls: []domain.ToolCall{{
						ID:   "call_1",
						Name: "classify_confirmation",
						Arguments: map[string]any{
							"intent":     "confirm",
							"confidence": 0.97,
						},
					}},
				}, nil)
			},
			expectedIntent: domain.ConfirmationIntent{
				Intent:     domain.ConfirmationIntent_Confirm,
				Confidence: 0.97,
			},
		},
		"correct-with-adjusted-value": {
			setExpectations: func(llm *domain_mocks.MockLLMClient) {
				llm.EXPECT().ChatWithTools(mock.Anything, mock.Anything).
					Return(domain.ChatWithToolsResponse{
						ToolCalls: []domain.ToolCall{{
							ID:   "call_1",
							Name: "classify_confirmation",
							Arguments: map[string]any{
								"intent":         "correct",
								"correctedValue": "72",
								"correctedUnit":  "kg",
								"confidence":     0.9,
								"reasoning":      "user adjusted the value",
							},
						}},
					}, nil)
			},
			expectedIntent: domain.ConfirmationIntent{
				Intent:         domain.ConfirmationIntent_Correct,
				CorrectedValue: "72",
				CorrectedUnit:  "kg",
				Confidence:     0.9,
				Reasoning:      "user adjusted the value",
			},
		},
		"llm-error": {
			setExpectations: func(llm *domain_mocks.MockLLMClient) {
				llm.EXPECT().ChatWithTools(mock.Anything, mock.Anything).
					Return(domain.ChatWithToolsResponse{}, errors.New("provider unavailable"))
			},
			expectedErr: "provider unavailable",
		},
		"missing-tool-call": {
			setExpectations: func(llm *domain_mocks.MockLLMClient) {
				llm.EXPECT().ChatWithTools(mock.Anything, mock.Anything).
					Return(domain.ChatWithToolsResponse{Content: "sure"}, nil)
			},
			expectedErr: "no classify_confirmation tool call in classification response",
		},
		"unexpected-intent": {
			setExpectations: func(llm *domain_mocks.MockLLMClient) {
				llm.EXPECT().ChatWithTools(mock.Anything, mock.Anything).
					Return(domain.ChatWithToolsResponse{
						ToolCalls: []domain.ToolCall{{
							ID:        "call_1",
							Name:      "classify_confirmation",
							Arguments: map[string]any{"intent": "maybe"},
						}},
					}, nil)
			},
			expectedErr: `unexpected confirmation intent "maybe"`,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			llm := domain_mocks.NewMockLLMClient(t)
			tt.setExpectations(llm)

			classifier := NewConfirmationClassifierImpl(llm)
			intent, err := classifier.Classify(context.Background(), "Record weight of 70.5 kg?", "yes please")

			if tt.expectedErr != "" {
				assert.EqualError(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedIntent, intent)
		})
	}
}

func TestResolvePending(t *testing.T) {
	call := domain.ToolCall{ID: "call_1", Name: "delete_metric"}

	newPending := func(confirmed *bool) *domain.PendingToolConfirmation {
		return &domain.PendingToolConfirmation{
			ID:        "p1",
			ToolCall:  call,
			ExpiresAt: time.Now().Add(time.Hour),
			ConfirmFn: func(ctx context.Context) (domain.ToolExecutionResult, error) {
				*confirmed = true
				return domain.SuccessResult(call, "deleted"), nil
			},
			RejectFn: func(reason string) domain.ToolExecutionResult {
				return domain.ErrorResult(call, reason)
			},
		}
	}

	t.Run("confirm-executes", func(t *testing.T) {
		confirmed := false
		result, resolved, err := ResolvePending(context.Background(), newPending(&confirmed), domain.ConfirmationIntent{
			Intent: domain.ConfirmationIntent_Confirm,
		})
		require.NoError(t, err)
		assert.True(t, resolved)
		assert.True(t, confirmed)
		assert.True(t, result.Success)
	})

	t.Run("reject-declines", func(t *testing.T) {
		confirmed := false
		result, resolved, err := ResolvePending(context.Background(), newPending(&confirmed), domain.ConfirmationIntent{
			Intent:    domain.ConfirmationIntent_Reject,
			Reasoning: "changed my mind",
		})
		require.NoError(t, err)
		assert.True(t, resolved)
		assert.False(t, confirmed)
		assert.False(t, result.Success)
		assert.Equal(t, "changed my mind", result.Error)
	})

	t.Run("correct-leaves-unresolved", func(t *testing.T) {
		confirmed := false
		_, resolved, err := ResolvePending(context.Background(), newPending(&confirmed), domain.ConfirmationIntent{
			Intent: domain.ConfirmationIntent_Correct,
		})
		require.NoError(t, err)
		assert.False(t, resolved)
		assert.False(t, confirmed)
	})

	t.Run("expired-confirm-resolves-to-rejection", func(t *testing.T) {
		confirmed := false
		pending := newPending(&confirmed)
		pending.ExpiresAt = time.Now().Add(-time.Minute)

		result, resolved, err := ResolvePending(context.Background(), pending, domain.ConfirmationIntent{
			Intent: domain.ConfirmationIntent_Confirm,
		})
		require.NoError(t, err)
		assert.True(t, resolved)
		assert.False(t, confirmed)
		assert.False(t, result.Success)
		assert.Equal(t, "confirmation expired", result.Error)
	})
}
