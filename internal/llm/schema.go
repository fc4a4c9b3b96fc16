package llm

// SchemaType is a JSON value type in a structured output declaration
type SchemaType string

const (
	TypeString  SchemaType = "string"
	TypeInteger SchemaType = "integer"
	TypeNumber  SchemaType = "number"
	TypeBoolean SchemaType = "boolean"
	TypeArray   SchemaType = "array"
	TypeObject  SchemaType = "object"
)

// Schema declares the exact shape of a structured response.
// Objects built with Object list every property as required; there is no way
// to declare an optional field.
type Schema struct {
	Name       string // identifier sent to backends that need one
	Type       SchemaType
	Properties map[string]*Schema
	// PropertyOrder keeps the declaration order of object properties
	PropertyOrder []string
	Required      []string
	Items         *Schema
	MinItems      int // 0 means unbounded
	MaxItems      int // 0 means unbounded
}

// Property is a named object member
type Property struct {
	Name   string
	Schema *Schema
}

// Field declares an object property
func Field(name string, s *Schema) Property {
	return Property{Name: name, Schema: s}
}

// String declares a string value
func String() *Schema {
	return &Schema{Type: TypeString}
}

// Integer declares an integer value
func Integer() *Schema {
	return &Schema{Type: TypeInteger}
}

// Object declares an object whose properties are all required
func Object(props ...Property) *Schema {
	s := &Schema{
		Type:       TypeObject,
		Properties: make(map[string]*Schema, len(props)),
	}
	for _, p := range props {
		s.Properties[p.Name] = p.Schema
		s.PropertyOrder = append(s.PropertyOrder, p.Name)
		s.Required = append(s.Required, p.Name)
	}
	return s
}

// ArrayOf declares an array. minItems and maxItems of 0 leave that bound open.
func ArrayOf(items *Schema, minItems, maxItems int) *Schema {
	return &Schema{
		Type:     TypeArray,
		Items:    items,
		MinItems: minItems,
		MaxItems: maxItems,
	}
}

// Named sets the schema identifier and returns the schema
func (s *Schema) Named(name string) *Schema {
	s.Name = name
	return s
}

// JSONSchema renders the declaration as a JSON Schema document
func (s *Schema) JSONSchema() map[string]any {
	if s == nil {
		return nil
	}
	out := map[string]any{"type": string(s.Type)}
	switch s.Type {
	case TypeObject:
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.JSONSchema()
		}
		out["properties"] = props
		required := make([]string, len(s.Required))
		copy(required, s.Required)
		out["required"] = required
		out["additionalProperties"] = false
	case TypeArray:
		out["items"] = s.Items.JSONSchema()
		if s.MinItems > 0 {
			out["minItems"] = s.MinItems
		}
		if s.MaxItems > 0 {
			out["maxItems"] = s.MaxItems
		}
	}
	return out
}
