package app

import (
	"context"
	"log"
	"strings"
	"testing"

	"github.com/cleitonmarx/symbiont/depend"
	"github.com/cleitonmarx/symbiont/introspection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMermaidGraphIntrospector_Introspect(t *testing.T) {
	introspector := MermaidGraphIntrospector{}

	report := introspection.Report{
		Configs: []introspection.ConfigAccess{
			{
				Key:         "LLM_PROVIDER",
				UsedDefault: true,
			},
		},
	}
	ctx := context.Background()

	err := introspector.Introspect(ctx, report)
	require.NoError(t, err)
	mermaidGraph, err := depend.ResolveNamed[string]("introspection-graph-mermaid")
	require.NoError(t, err)
	require.NotEmpty(t, mermaidGraph, "Mermaid graph should be registered as a named dependency")
}

func TestReportLoggerIntrospector_Introspect(t *testing.T) {
	var buf strings.Builder
	depend.Register(log.New(&buf, "", 0))

	introspector := ReportLoggerIntrospector{}
	report := introspection.Report{
		Configs: []introspection.ConfigAccess{
			{Key: "LLM_PROVIDER", UsedDefault: true},
			{Key: "GEMINI_API_KEY", UsedDefault: false},
		},
	}

	err := introspector.Introspect(context.Background(), report)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "config LLM_PROVIDER: using default")
	assert.Contains(t, out, "config GEMINI_API_KEY: set")
}
