package app

import (
	"context"
	"log"

	"github.com/cleitonmarx/symbiont/depend"
	"github.com/cleitonmarx/symbiont/introspection"
	"github.com/cleitonmarx/symbiont/introspection/mermaid"
)

// MermaidGraphIntrospector is an implementation of the Introspector interface that generates a Mermaid graph
// representation of the application's configuration and dependencies, and registers it in the dependency container.
type MermaidGraphIntrospector struct {
}

// Introspect generates a Mermaid graph from the provided introspection report and registers it as a named dependency.
func (i MermaidGraphIntrospector) Introspect(_ context.Context, r introspection.Report) error {
	mermaidGraph := mermaid.GenerateIntrospectionGraph(r)
	depend.RegisterNamed(mermaidGraph, "introspection-graph-mermaid")
	return nil
}

// ReportLoggerIntrospector logs the configuration keys the application read
// during initialization, flagging the ones that fell back to their defaults.
type ReportLoggerIntrospector struct {
}

// Introspect writes one line per accessed configuration key.
func (i ReportLoggerIntrospector) Introspect(_ context.Context, r introspection.Report) error {
	logger, err := depend.Resolve[*log.Logger]()
	if err != nil {
		return err
	}
	for _, cfg := range r.Configs {
		i.logConfig(logger, cfg)
	}
	return nil
}

func (i ReportLoggerIntrospector) logConfig(logger *log.Logger, cfg introspection.ConfigAccess) {
	if cfg.UsedDefault {
		logger.Printf("config %s: using default", cfg.Key)
		return
	}
	logger.Printf("config %s: set", cfg.Key)
}
