package textgen

import (
	"fmt"
	"math"
	"slices"

	"github.com/kalambet/labeler/internal/engine"
)

// Validate checks a decoded JSON document against schema: types match,
// required properties are present and enum values are respected. Extra
// properties are ignored.
func Validate(doc any, schema *engine.Schema) error {
	return validate(doc, schema, "$")
}

func validate(v any, s *engine.Schema, path string) error {
	if s == nil {
		return nil
	}
	if v == nil {
		if s.Nullable {
			return nil
		}
		return fmt.Errorf("%w: %s is null", ErrSchemaViolation, path)
	}

	switch s.Type {
	case engine.TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return typeErr(path, s.Type, v)
		}
		for _, name := range s.Required {
			if _, ok := obj[name]; !ok {
				// A missing nullable field decodes as nil.
				if p := s.Properties[name]; p != nil && p.Nullable {
					continue
				}
				return fmt.Errorf("%w: %s.%s is required", ErrSchemaViolation, path, name)
			}
		}
		for name, prop := range s.Properties {
			if val, ok := obj[name]; ok {
				if err := validate(val, prop, path+"."+name); err != nil {
					return err
				}
			}
		}
	case engine.TypeArray:
		arr, ok := v.([]any)
		if !ok {
			return typeErr(path, s.Type, v)
		}
		for i, item := range arr {
			if err := validate(item, s.Items, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case engine.TypeString:
		str, ok := v.(string)
		if !ok {
			return typeErr(path, s.Type, v)
		}
		if len(s.Enum) > 0 && !slices.Contains(s.Enum, str) {
			return fmt.Errorf("%w: %s = %q is not one of %v", ErrSchemaViolation, path, str, s.Enum)
		}
	case engine.TypeBoolean:
		if _, ok := v.(bool); !ok {
			return typeErr(path, s.Type, v)
		}
	case engine.TypeInteger:
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			return typeErr(path, s.Type, v)
		}
	case engine.TypeNumber:
		if _, ok := v.(float64); !ok {
			return typeErr(path, s.Type, v)
		}
	}
	return nil
}

func typeErr(path, want string, got any) error {
	return fmt.Errorf("%w: %s should be %s, got %T", ErrSchemaViolation, path, want, got)
}
