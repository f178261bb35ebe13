package domain

import (
	"fmt"
	"time"
)

// errors.go defines domain-specific error types.
type domainErr struct {
	message string
}

// Error returns the error message.
func (e domainErr) Error() string {
	return e.message
}

// ConfigurationErr represents a fatal setup error, such as a missing
// credential or an unsupported provider selection. Never retried.
type ConfigurationErr struct {
	domainErr
}

// NewConfigurationErr creates a new ConfigurationErr with the given message.
func NewConfigurationErr(message string) *ConfigurationErr {
	return &ConfigurationErr{
		domainErr: domainErr{message: message},
	}
}

// APIErr represents a failed provider call. StatusCode is zero when the
// failure happened before an HTTP status was received.
type APIErr struct {
	domainErr
	StatusCode int
	Provider   string
}

// NewAPIErr creates a new APIErr with the given message, status and provider.
func NewAPIErr(message string, statusCode int, provider string) *APIErr {
	return &APIErr{
		domainErr:  domainErr{message: message},
		StatusCode: statusCode,
		Provider:   provider,
	}
}

// Retryable reports whether the call is worth repeating: HTTP 429 and
// every 5xx status qualify.
func (e *APIErr) Retryable() bool {
	return e.StatusCode == 429 || (e.StatusCode >= 500 && e.StatusCode < 600)
}

// RateLimitErr represents explicit provider throttling. RetryAfter is zero
// when the provider supplied no hint.
type RateLimitErr struct {
	domainErr
	RetryAfter time.Duration
}

// NewRateLimitErr creates a new RateLimitErr with an optional retry hint.
func NewRateLimitErr(message string, retryAfter time.Duration) *RateLimitErr {
	return &RateLimitErr{
		domainErr:  domainErr{message: message},
		RetryAfter: retryAfter,
	}
}

// ToolNotFoundErr represents a call to an unregistered tool name.
type ToolNotFoundErr struct {
	domainErr
	ToolName string
}

// NewToolNotFoundErr creates a new ToolNotFoundErr for the given tool name.
func NewToolNotFoundErr(toolName string) *ToolNotFoundErr {
	return &ToolNotFoundErr{
		domainErr: domainErr{message: fmt.Sprintf("tool %q is not registered", toolName)},
		ToolName:  toolName,
	}
}

// ToolExecutionErr represents a failure inside a tool's domain logic.
type ToolExecutionErr struct {
	domainErr
	ToolName string
}

// NewToolExecutionErr creates a new ToolExecutionErr with the given message.
func NewToolExecutionErr(toolName, message string) *ToolExecutionErr {
	return &ToolExecutionErr{
		domainErr: domainErr{message: message},
		ToolName:  toolName,
	}
}

// ToolValidationErr represents tool arguments that failed schema validation
// before execution.
type ToolValidationErr struct {
	domainErr
	ToolName string
}

// NewToolValidationErr creates a new ToolValidationErr with the given message.
func NewToolValidationErr(toolName, message string) *ToolValidationErr {
	return &ToolValidationErr{
		domainErr: domainErr{message: message},
		ToolName:  toolName,
	}
}

// MaxIterationsErr is raised when the tool loop hits its iteration ceiling
// without the model producing a final answer. Fatal to the current turn.
type MaxIterationsErr struct {
	domainErr
	Limit int
}

// NewMaxIterationsErr creates a new MaxIterationsErr for the given limit.
func NewMaxIterationsErr(limit int) *MaxIterationsErr {
	return &MaxIterationsErr{
		domainErr: domainErr{message: fmt.Sprintf("max tool loop iterations (%d) exceeded", limit)},
		Limit:     limit,
	}
}
