// Package llm selects and constructs the configured provider adapter. The
// provider set is closed: adding a vendor means adding an adapter package
// and a case here.
package llm

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/cleitonmarx/symbiont-llm-engine/internal/adapters/outbound/anthropic"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/adapters/outbound/gemini"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/domain"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/ratelimit"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/retry"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/usecases"
	"github.com/cleitonmarx/symbiont/depend"
)

// FactoryConfig carries the cross-provider construction inputs. Limiters
// being nil disables rate limiting; Retry being nil disables retries.
type FactoryConfig struct {
	AnthropicAPIKey string
	GeminiAPIKey    string
	Model           string
	MaxTokens       int
	HTTPClient      *http.Client
	Logger          *log.Logger
	Limiters        *ratelimit.Registry
	Retry           *retry.Config
}

// NewLLMClient constructs the adapter for the selected provider. Unknown
// providers and missing credentials are fatal configuration errors.
func NewLLMClient(provider string, cfg FactoryConfig) (domain.LLMClient, error) {
	var limiter *ratelimit.Limiter
	if cfg.Limiters != nil {
		limiter = cfg.Limiters.Get(provider)
	}

	switch provider {
	case anthropic.ProviderName:
		return anthropic.NewLLMClientAdapter(anthropic.Config{
			APIKey:     cfg.AnthropicAPIKey,
			Model:      cfg.Model,
			MaxTokens:  cfg.MaxTokens,
			Limiter:    limiter,
			Retry:      cfg.Retry,
			HTTPClient: cfg.HTTPClient,
			Logger:     cfg.Logger,
		})
	case gemini.ProviderName:
		return gemini.NewLLMClientAdapter(gemini.Config{
			APIKey:     cfg.GeminiAPIKey,
			Model:      cfg.Model,
			MaxTokens:  cfg.MaxTokens,
			Limiter:    limiter,
			Retry:      cfg.Retry,
			HTTPClient: cfg.HTTPClient,
			Logger:     cfg.Logger,
		})
	default:
		return nil, domain.NewConfigurationErr(fmt.Sprintf("unsupported LLM provider %q", provider))
	}
}

// InitLLMClient is the initializer for the configured LLM client.
type InitLLMClient struct {
	HttpClient      *http.Client        `resolve:""`
	Logger          *log.Logger         `resolve:""`
	Limiters        *ratelimit.Registry `resolve:""`
	Provider        string              `config:"LLM_PROVIDER" default:"gemini"`
	AnthropicAPIKey string              `config:"ANTHROPIC_API_KEY" default:""`
	GeminiAPIKey    string              `config:"GEMINI_API_KEY" default:""`
	Model           string              `config:"LLM_MODEL" default:""`
	MaxTokens       int                 `config:"LLM_MAX_TOKENS" default:"4096"`
	DisableLimiter  string              `config:"LLM_DISABLE_RATE_LIMITING" default:"false"`
	DisableRetries  string              `config:"LLM_DISABLE_RETRIES" default:"false"`
	RetryAttempts   int                 `config:"LLM_RETRY_MAX_ATTEMPTS" default:"3"`
}

// Initialize constructs the configured adapter and registers it in the
// dependency container under the domain.LLMClient port.
func (i InitLLMClient) Initialize(ctx context.Context) (context.Context, error) {
	cfg := FactoryConfig{
		AnthropicAPIKey: i.AnthropicAPIKey,
		GeminiAPIKey:    i.GeminiAPIKey,
		Model:           i.Model,
		MaxTokens:       i.MaxTokens,
		HTTPClient:      i.HttpClient,
		Logger:          i.Logger,
	}

	limiterOff, err := strconv.ParseBool(i.DisableLimiter)
	if err != nil {
		return ctx, domain.NewConfigurationErr(fmt.Sprintf("invalid LLM_DISABLE_RATE_LIMITING value %q", i.DisableLimiter))
	}
	retriesOff, err := strconv.ParseBool(i.DisableRetries)
	if err != nil {
		return ctx, domain.NewConfigurationErr(fmt.Sprintf("invalid LLM_DISABLE_RETRIES value %q", i.DisableRetries))
	}

	if !limiterOff {
		cfg.Limiters = i.Limiters
	}
	if !retriesOff {
		retryCfg := retry.DefaultConfig()
		retryCfg.MaxAttempts = i.RetryAttempts
		retryCfg.OnRetry = func(err error, attempt int, delay time.Duration) {
			i.Logger.Printf("retrying %s call in %v (attempt %d): %v", i.Provider, delay, attempt, err)
			usecases.RecordLLMRetry(ctx, i.Provider)
		}
		cfg.Retry = &retryCfg
	}

	client, err := NewLLMClient(i.Provider, cfg)
	if err != nil {
		return ctx, err
	}

	depend.Register[domain.LLMClient](client)
	return ctx, nil
}
