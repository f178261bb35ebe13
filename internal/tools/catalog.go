// Package tools holds the static tool catalog and a reference executor the
// engine is wired against. Definitions are immutable and partitioned into
// read-only and mutating subsets; only the mutating ones require user
// confirmation.
package tools

import "github.com/cleitonmarx/symbiont-llm-engine/internal/domain"

// ReadTools returns the read-only tool definitions.
func ReadTools() []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Name:        "fetch_metrics",
			Description: "Fetch recorded body metrics, optionally filtered by type and date range.",
			Parameters: domain.Object("", map[string]*domain.SchemaNode{
				"type": domain.Enum("Metric type to filter by", "weight", "height", "steps").AsOptional(),
				"from": domain.String("Start of the date range, any common date format").AsOptional(),
				"to":   domain.String("End of the date range, any common date format").AsOptional(),
			}),
			Examples: []map[string]any{
				{"type": "weight"},
				{"type": "steps", "from": "2026-01-01", "to": "2026-01-31"},
			},
		},
		{
			Name:        "analyze_context",
			Description: "Summarize the stored metrics so the assistant can ground its answer.",
			Parameters: domain.Object("", map[string]*domain.SchemaNode{
				"focus": domain.String("Optional aspect to focus the summary on").AsOptional(),
			}),
			Examples: []map[string]any{
				{"focus": "weight trend"},
				{},
			},
		},
	}
}

// WriteTools returns the mutating tool definitions. All of them require
// user confirmation before execution.
func WriteTools() []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Name:        "record_metric",
			Description: "Record one body metric measurement.",
			Parameters: domain.Object("", map[string]*domain.SchemaNode{
				"type":  domain.Enum("Metric type", "weight", "height", "steps"),
				"value": domain.Number("Measured value"),
				"unit":  domain.String("Unit of the value, such as kg or cm").AsOptional(),
				"date":  domain.String("Measurement date, any common date format").WithDefault("today"),
			}),
			RequiresConfirmation: true,
			Examples: []map[string]any{
				{"type": "weight", "value": 82.5, "unit": "kg"},
				{"type": "steps", "value": 10250, "date": "yesterday"},
			},
		},
		{
			Name:        "delete_metric",
			Description: "Delete a previously recorded metric entry.",
			Parameters: domain.Object("", map[string]*domain.SchemaNode{
				"type": domain.Enum("Metric type", "weight", "height", "steps"),
				"date": domain.String("Date of the entry to delete, any common date format"),
			}),
			RequiresConfirmation: true,
			Examples: []map[string]any{
				{"type": "weight", "date": "2026-02-01"},
				{"type": "steps", "date": "last monday"},
			},
		},
	}
}

// All returns the full catalog, reads first.
func All() []domain.ToolDefinition {
	return append(ReadTools(), WriteTools()...)
}

// Lookup finds a definition by name.
func Lookup(name string) (domain.ToolDefinition, bool) {
	for _, def := range All() {
		if def.Name == name {
			return def, true
		}
	}
	return domain.ToolDefinition{}, false
}

// RequiresConfirmation consults the catalog's confirmation flag. Unknown
// tools report false; the executor rejects them anyway.
func RequiresConfirmation(name string) bool {
	def, ok := Lookup(name)
	return ok && def.RequiresConfirmation
}
