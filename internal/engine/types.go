package engine

import (
	"encoding/json"
	"slices"
)

// Message roles understood by every backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Schema describes the expected JSON output structure for structured chat
// responses. It is a recursive subset of JSON Schema that every backend can
// express: objects, arrays, scalars, enums and nullable values.
type Schema struct {
	Type        string
	Description string
	Properties  map[string]*Schema
	Required    []string
	Items       *Schema
	Enum        []string
	Nullable    bool
}

// Schema types.
const (
	TypeObject  = "object"
	TypeArray   = "array"
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
)

// Object returns an object schema that requires every listed property.
func Object(props map[string]*Schema) *Schema {
	required := make([]string, 0, len(props))
	for k := range props {
		required = append(required, k)
	}
	slices.Sort(required)
	return &Schema{Type: TypeObject, Properties: props, Required: required}
}

// ArrayOf returns an array schema with the given item schema.
func ArrayOf(items *Schema) *Schema {
	return &Schema{Type: TypeArray, Items: items}
}

// String returns a string schema with an optional description.
func String(desc string) *Schema {
	return &Schema{Type: TypeString, Description: desc}
}

// Boolean returns a boolean schema with an optional description.
func Boolean(desc string) *Schema {
	return &Schema{Type: TypeBoolean, Description: desc}
}

// Integer returns an integer schema with an optional description.
func Integer(desc string) *Schema {
	return &Schema{Type: TypeInteger, Description: desc}
}

// OrNull returns a copy of s that also accepts null.
func (s *Schema) OrNull() *Schema {
	c := *s
	c.Nullable = true
	return &c
}

// MarshalJSON renders the schema as JSON Schema. Nullable types become a
// ["type","null"] union and objects are closed with additionalProperties.
func (s Schema) MarshalJSON() ([]byte, error) {
	m := make(map[string]any)
	if s.Nullable {
		m["type"] = []string{s.Type, "null"}
	} else {
		m["type"] = s.Type
	}
	if s.Description != "" {
		m["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		m["enum"] = s.Enum
	}
	if s.Type == TypeObject {
		props := s.Properties
		if props == nil {
			props = map[string]*Schema{}
		}
		m["properties"] = props
		m["additionalProperties"] = false
		if len(s.Required) > 0 {
			m["required"] = s.Required
		}
	}
	if s.Type == TypeArray && s.Items != nil {
		m["items"] = s.Items
	}
	return json.Marshal(m)
}

// PullProgress reports download progress for a model pull operation.
type PullProgress struct {
	Status    string `json:"status"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}
