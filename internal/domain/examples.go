package domain

import (
	"encoding/json"
	"fmt"
)

// EnrichDescriptionWithExamples appends a normalized "Input examples:" block
// to a tool description, one compact JSON object per example. Used for
// providers without native input-example support. Returns the description
// unchanged when there are no examples.
func EnrichDescriptionWithExamples(description string, examples []map[string]any) string {
	if len(examples) == 0 {
		return description
	}

	enriched := description + "\n\nInput examples:"
	for i, example := range examples {
		b, err := json.Marshal(example)
		if err != nil {
			continue
		}
		enriched += fmt.Sprintf("\nExample %d: %s", i+1, string(b))
	}
	return enriched
}

// ValidateExamples flags non-fatal issues with a tool's example set: counts
// outside the recommended [2,4] range and examples missing a required field.
// Meant for tool-definition tests, not for runtime use.
func ValidateExamples(examples []map[string]any, requiredFields []string) []string {
	var issues []string

	if len(examples) < 2 {
		issues = append(issues, "At least 2 examples are recommended")
	}
	if len(examples) > 4 {
		issues = append(issues, "At most 4 examples are recommended")
	}

	for i, example := range examples {
		for _, field := range requiredFields {
			if _, ok := example[field]; !ok {
				issues = append(issues, fmt.Sprintf("Example %d is missing required field: %s", i+1, field))
			}
		}
	}

	return issues
}
