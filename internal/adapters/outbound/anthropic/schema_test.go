package anthropic

import (
	"fmt"
	"testing"

	"github.com/cleitonmarx/symbiont-llm-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateSchema(t *testing.T) {
	noWarn := func(t *testing.T) func(string, ...any) {
		return func(format string, args ...any) {
			t.Errorf("unexpected warning: "+format, args...)
		}
	}

	tests := map[string]struct {
		node     *domain.SchemaNode
		expected *Schema
	}{
		"nil-becomes-empty-object": {
			node:     nil,
			expected: &Schema{Type: "object"},
		},
		"primitives-and-required-derivation": {
			node: domain.Object("Metric entry", map[string]*domain.SchemaNode{
				"type":  domain.String("Metric type"),
				"value": domain.Number("Metric value"),
				"unit":  domain.String("Unit of measure").AsOptional(),
				"note":  domain.String("Free-form note").AsNullable(),
				"date":  domain.String("Entry date").WithDefault("today"),
			}),
			expected: &Schema{
				Type:        "object",
				Description: "Metric entry",
				Properties: map[string]*Schema{
					"type":  {Type: "string", Description: "Metric type"},
					"value": {Type: "number", Description: "Metric value"},
					"unit":  {Type: "string", Description: "Unit of measure"},
					"note":  {Type: "string", Description: "Free-form note"},
					"date":  {Type: "string", Description: "Entry date"},
				},
				Required: []string{"type", "value"},
			},
		},
		"enum-becomes-string-with-values": {
			node: domain.Enum("Metric type", "weight", "sleep", "steps"),
			expected: &Schema{
				Type:        "string",
				Description: "Metric type",
				Enum:        []string{"weight", "sleep", "steps"},
			},
		},
		"array-of-integers": {
			node: domain.Array("Recent values", domain.Integer("One value")),
			expected: &Schema{
				Type:        "array",
				Description: "Recent values",
				Items:       &Schema{Type: "integer", Description: "One value"},
			},
		},
		"string-literal-pins-value": {
			node: domain.Literal("metric"),
			expected: &Schema{
				Type: "string",
				Enum: []string{"metric"},
			},
		},
		"boolean-literal": {
			node: domain.Literal(true),
			expected: &Schema{
				Type: "boolean",
			},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.expected, translateSchema(tt.node, noWarn(t)))
		})
	}
}

func TestTranslateSchema_UnknownKindFallsBackToString(t *testing.T) {
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	out := translateSchema(&domain.SchemaNode{Kind: "tuple", Description: "odd"}, warn)

	assert.Equal(t, &Schema{Type: "string", Description: "odd"}, out)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "tuple")
}

func TestTranslateSchema_Deterministic(t *testing.T) {
	node := domain.Object("", map[string]*domain.SchemaNode{
		"b": domain.String(""),
		"a": domain.String(""),
		"c": domain.String(""),
	})

	first := translateSchema(node, nil)
	second := translateSchema(node, nil)

	assert.Equal(t, []string{"a", "b", "c"}, first.Required)
	assert.Equal(t, first, second)
}
