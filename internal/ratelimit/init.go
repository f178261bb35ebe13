package ratelimit

import (
	"context"

	"github.com/cleitonmarx/symbiont/depend"
)

// InitRegistry is the initializer for the process-wide limiter registry.
// The registry is created here, at the composition root, and injected into
// adapters; nothing reaches it through package-level state.
type InitRegistry struct {
	MaxRequestsPerMinute int `config:"LLM_MAX_REQUESTS_PER_MINUTE" default:"60"`
	MaxTokensPerMinute   int `config:"LLM_MAX_TOKENS_PER_MINUTE" default:"100000"`
}

// Initialize registers the Registry in the dependency container.
func (i InitRegistry) Initialize(ctx context.Context) (context.Context, error) {
	depend.Register(NewRegistry(Config{
		MaxRequestsPerMinute: i.MaxRequestsPerMinute,
		MaxTokensPerMinute:   i.MaxTokensPerMinute,
	}))
	return ctx, nil
}
