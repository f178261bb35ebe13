package domain

import (
	"context"
	"time"
)

// PendingToolConfirmation represents a mutating tool call that is waiting
// for explicit user approval. It is ephemeral, scoped to a single turn, and
// never persisted by the engine.
//
// A pending confirmation expires at ExpiresAt; resolving it after the
// deadline yields a rejection so a changed topic never triggers a stale
// mutation.
type PendingToolConfirmation struct {
	ID          string
	ToolCall    ToolCall
	Description string
	ExpiresAt   time.Time

	ConfirmFn func(ctx context.Context) (ToolExecutionResult, error)
	RejectFn  func(reason string) ToolExecutionResult
}

// Expired reports whether the confirmation window has closed.
func (p *PendingToolConfirmation) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// Confirm executes the suspended tool call.
func (p *PendingToolConfirmation) Confirm(ctx context.Context) (ToolExecutionResult, error) {
	if p.Expired(time.Now()) {
		return p.RejectFn("confirmation expired"), nil
	}
	return p.ConfirmFn(ctx)
}

// Reject declines the suspended tool call with an optional reason.
func (p *PendingToolConfirmation) Reject(reason string) ToolExecutionResult {
	if reason == "" {
		reason = "rejected by user"
	}
	return p.RejectFn(reason)
}

// ConfirmationIntentKind is the classification of a user's reply to a
// pending confirmation prompt.
type ConfirmationIntentKind string

const (
	ConfirmationIntent_Confirm ConfirmationIntentKind = "confirm"
	ConfirmationIntent_Reject  ConfirmationIntentKind = "reject"
	ConfirmationIntent_Correct ConfirmationIntentKind = "correct"
)

// ConfirmationIntent is the structured result of classifying a free-text
// reply to a pending confirmation.
type ConfirmationIntent struct {
	Intent         ConfirmationIntentKind
	CorrectedValue string
	CorrectedUnit  string
	Confidence     float64
	Reasoning      string
}
