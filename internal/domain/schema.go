package domain

// SchemaKind enumerates the node kinds of the provider-neutral
// parameter-schema tree.
type SchemaKind string

const (
	SchemaKind_String  SchemaKind = "string"
	SchemaKind_Number  SchemaKind = "number"
	SchemaKind_Integer SchemaKind = "integer"
	SchemaKind_Boolean SchemaKind = "boolean"
	SchemaKind_Array   SchemaKind = "array"
	SchemaKind_Object  SchemaKind = "object"
	SchemaKind_Enum    SchemaKind = "enum"
	SchemaKind_Literal SchemaKind = "literal"
)

// SchemaNode is one node of the neutral parameter-schema tree. Provider
// adapters translate it into their native function-declaration format.
//
// Optional, Nullable and HasDefault are wrapper flags: they never change the
// node's own type, only whether the parent object lists the property as
// required.
type SchemaNode struct {
	Kind        SchemaKind
	Description string

	// Array element schema, set when Kind is array.
	Items *SchemaNode

	// Object property map, set when Kind is object.
	Properties map[string]*SchemaNode

	// Allowed values, set when Kind is enum.
	EnumValues []string

	// Literal value, set when Kind is literal.
	LiteralValue any

	Optional   bool
	Nullable   bool
	HasDefault bool
	Default    any
}

// IsRequired reports whether a parent object must list this property as
// required. A property is required iff it carries no wrapper flag.
func (n *SchemaNode) IsRequired() bool {
	return !n.Optional && !n.Nullable && !n.HasDefault
}

// String creates a string schema node.
func String(description string) *SchemaNode {
	return &SchemaNode{Kind: SchemaKind_String, Description: description}
}

// Number creates a number schema node.
func Number(description string) *SchemaNode {
	return &SchemaNode{Kind: SchemaKind_Number, Description: description}
}

// Integer creates an integer schema node.
func Integer(description string) *SchemaNode {
	return &SchemaNode{Kind: SchemaKind_Integer, Description: description}
}

// Boolean creates a boolean schema node.
func Boolean(description string) *SchemaNode {
	return &SchemaNode{Kind: SchemaKind_Boolean, Description: description}
}

// Array creates an array schema node with the given element schema.
func Array(description string, items *SchemaNode) *SchemaNode {
	return &SchemaNode{Kind: SchemaKind_Array, Description: description, Items: items}
}

// Object creates an object schema node with the given property map.
func Object(description string, properties map[string]*SchemaNode) *SchemaNode {
	return &SchemaNode{Kind: SchemaKind_Object, Description: description, Properties: properties}
}

// Enum creates an enum schema node with the given allowed values.
func Enum(description string, values ...string) *SchemaNode {
	return &SchemaNode{Kind: SchemaKind_Enum, Description: description, EnumValues: values}
}

// Literal creates a literal schema node pinned to a single value.
func Literal(value any) *SchemaNode {
	return &SchemaNode{Kind: SchemaKind_Literal, LiteralValue: value}
}

// AsOptional marks the node optional and returns it.
func (n *SchemaNode) AsOptional() *SchemaNode {
	n.Optional = true
	return n
}

// AsNullable marks the node nullable and returns it.
func (n *SchemaNode) AsNullable() *SchemaNode {
	n.Nullable = true
	return n
}

// WithDefault attaches a default value and returns the node.
func (n *SchemaNode) WithDefault(value any) *SchemaNode {
	n.HasDefault = true
	n.Default = value
	return n
}
