package gemini

import (
	"fmt"
	"sort"

	"github.com/cleitonmarx/symbiont-llm-engine/internal/domain"
)

// translateSchema converts a neutral schema tree into the function
// declaration schema vocabulary. Wrapper flags never change a node's own
// type; they only decide membership in the parent object's required list.
// Unknown kinds degrade to STRING so tool registration never fails
// outright; warn receives a diagnostic when that happens.
func translateSchema(node *domain.SchemaNode, warn func(format string, args ...any)) *Schema {
	if node == nil {
		return &Schema{Type: "OBJECT"}
	}

	out := &Schema{Description: node.Description}

	switch node.Kind {
	case domain.SchemaKind_String:
		out.Type = "STRING"
	case domain.SchemaKind_Number:
		out.Type = "NUMBER"
	case domain.SchemaKind_Integer:
		out.Type = "INTEGER"
	case domain.SchemaKind_Boolean:
		out.Type = "BOOLEAN"
	case domain.SchemaKind_Array:
		out.Type = "ARRAY"
		out.Items = translateSchema(node.Items, warn)
	case domain.SchemaKind_Object:
		out.Type = "OBJECT"
		out.Properties = make(map[string]*Schema, len(node.Properties))
		for _, name := range sortedPropertyNames(node.Properties) {
			prop := node.Properties[name]
			out.Properties[name] = translateSchema(prop, warn)
			if prop.IsRequired() {
				out.Required = append(out.Required, name)
			}
		}
	case domain.SchemaKind_Enum:
		out.Type = "STRING"
		out.Format = "enum"
		out.Enum = append([]string(nil), node.EnumValues...)
	case domain.SchemaKind_Literal:
		out.Type, out.Enum = literalSchema(node.LiteralValue)
		if len(out.Enum) > 0 {
			out.Format = "enum"
		}
	default:
		warn("unsupported schema kind %q, falling back to STRING", node.Kind)
		out.Type = "STRING"
	}

	return out
}

// literalSchema maps a literal value to the primitive type it implies.
// String literals additionally pin the value with a single-entry enum.
func literalSchema(value any) (string, []string) {
	switch v := value.(type) {
	case string:
		return "STRING", []string{v}
	case bool:
		return "BOOLEAN", nil
	case int, int32, int64:
		return "INTEGER", nil
	case float32, float64:
		return "NUMBER", nil
	default:
		return "STRING", []string{fmt.Sprintf("%v", v)}
	}
}

// sortedPropertyNames keeps required lists and property iteration stable so
// translating the same tree twice yields identical output.
func sortedPropertyNames(properties map[string]*domain.SchemaNode) []string {
	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
