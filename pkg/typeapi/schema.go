package typeapi

import (
	"fmt"

	"domaincore/pkg/object"
)

// SchemaPurpose selects which validation pass a schema is asked for.
type SchemaPurpose string

const (
	// SchemaLoad validates the full field map at create/load time.
	SchemaLoad SchemaPurpose = "load"
	// SchemaUpdate validates inbound update patches.
	SchemaUpdate SchemaPurpose = "update"
)

// FieldKind names the accepted value shape for a schema field.
type FieldKind string

const (
	KindString FieldKind = "string"
	KindBool   FieldKind = "bool"
	KindNumber FieldKind = "number"
	KindMap    FieldKind = "map"
	KindAny    FieldKind = "any"
)

// FieldRule constrains a single field of the entity field map.
type FieldRule struct {
	Kind FieldKind
	// Required fields must be present on load validation.
	Required bool
	// Immutable fields are rejected when they appear in an update patch.
	Immutable bool
	// Enum, when non-empty, restricts a string field to the listed values.
	Enum []string
}

// Schema maps field names to their rules. Fields not listed are accepted
// as-is: entity field maps are open by design.
type Schema map[string]FieldRule

// Validate checks fields against the schema for the given purpose and
// returns an object.ValidationError on the first violation.
func (s Schema) Validate(purpose SchemaPurpose, fields map[string]any) error {
	if purpose == SchemaLoad {
		for name, rule := range s {
			if rule.Required {
				if _, ok := fields[name]; !ok {
					return object.ValidationError{Field: name, Reason: "required field missing"}
				}
			}
		}
	}
	for name, value := range fields {
		rule, ok := s[name]
		if !ok {
			continue
		}
		if purpose == SchemaUpdate && rule.Immutable {
			return object.ValidationError{Field: name, Reason: "field is immutable"}
		}
		if err := rule.check(name, value); err != nil {
			return err
		}
	}
	return nil
}

func (r FieldRule) check(name string, value any) error {
	switch r.Kind {
	case KindString, "":
		str, ok := value.(string)
		if r.Kind == KindString && !ok {
			return object.ValidationError{Field: name, Reason: "expected string"}
		}
		if ok && len(r.Enum) > 0 {
			for _, allowed := range r.Enum {
				if str == allowed {
					return nil
				}
			}
			return object.ValidationError{Field: name, Reason: fmt.Sprintf("value %q not in %v", str, r.Enum)}
		}
	case KindBool:
		if _, ok := value.(bool); !ok {
			return object.ValidationError{Field: name, Reason: "expected bool"}
		}
	case KindNumber:
		switch value.(type) {
		case int, int32, int64, float32, float64:
		default:
			return object.ValidationError{Field: name, Reason: "expected number"}
		}
	case KindMap:
		if _, ok := value.(map[string]any); !ok {
			return object.ValidationError{Field: name, Reason: "expected map"}
		}
	case KindAny:
	default:
		return object.ValidationError{Field: name, Reason: fmt.Sprintf("unknown field kind %q", r.Kind)}
	}
	return nil
}
