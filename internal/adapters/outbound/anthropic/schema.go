package anthropic

import (
	"fmt"
	"sort"

	"github.com/cleitonmarx/symbiont-llm-engine/internal/domain"
)

// translateSchema converts a neutral schema tree into the JSON-Schema shape
// of input_schema. Wrapper flags never change a node's own type; they only
// decide membership in the parent object's required list. Unknown kinds
// degrade to a plain string so tool registration never fails outright; warn
// receives a diagnostic when that happens.
func translateSchema(node *domain.SchemaNode, warn func(format string, args ...any)) *Schema {
	if node == nil {
		return &Schema{Type: "object"}
	}

	out := &Schema{Description: node.Description}

	switch node.Kind {
	case domain.SchemaKind_String:
		out.Type = "string"
	case domain.SchemaKind_Number:
		out.Type = "number"
	case domain.SchemaKind_Integer:
		out.Type = "integer"
	case domain.SchemaKind_Boolean:
		out.Type = "boolean"
	case domain.SchemaKind_Array:
		out.Type = "array"
		out.Items = translateSchema(node.Items, warn)
	case domain.SchemaKind_Object:
		out.Type = "object"
		out.Properties = make(map[string]*Schema, len(node.Properties))
		for _, name := range sortedPropertyNames(node.Properties) {
			prop := node.Properties[name]
			out.Properties[name] = translateSchema(prop, warn)
			if prop.IsRequired() {
				out.Required = append(out.Required, name)
			}
		}
	case domain.SchemaKind_Enum:
		out.Type = "string"
		out.Enum = append([]string(nil), node.EnumValues...)
	case domain.SchemaKind_Literal:
		out.Type, out.Enum = literalSchema(node.LiteralValue)
	default:
		warn("unsupported schema kind %q, falling back to string", node.Kind)
		out.Type = "string"
	}

	return out
}

// literalSchema maps a literal value to the primitive type it implies.
// String literals additionally pin the value with a single-entry enum.
func literalSchema(value any) (string, []string) {
	switch v := value.(type) {
	case string:
		return "string", []string{v}
	case bool:
		return "boolean", nil
	case int, int32, int64:
		return "integer", nil
	case float32, float64:
		return "number", nil
	default:
		return "string", []string{fmt.Sprintf("%v", v)}
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
