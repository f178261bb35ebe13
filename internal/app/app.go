package app

import (
	"github.com/cleitonmarx/symbiont"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/adapters/inbound/console"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/adapters/outbound/config"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/adapters/outbound/llm"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/adapters/outbound/log"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/ratelimit"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/telemetry"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/tools"
	"github.com/cleitonmarx/symbiont-llm-engine/internal/usecases"
)

// NewLLMEngineApp creates and returns a new instance of the LLM engine application.
func NewLLMEngineApp(initializers ...symbiont.Initializer) *symbiont.App {
	return symbiont.NewApp().
		Initialize(initializers...).
		Initialize(
			&log.InitLogger{},
			&telemetry.InitOpenTelemetry{},
			&telemetry.InitHttpClient{},
			&config.InitVaultProvider{},
			&ratelimit.InitRegistry{},
			&llm.InitLLMClient{},
			&tools.InitToolExecutor{},

			&usecases.InitToolLoop{},
			&usecases.InitConfirmationClassifier{},
		).
		Host(
			&console.ChatSession{},
		).
		Introspect(&MermaidGraphIntrospector{})
}
