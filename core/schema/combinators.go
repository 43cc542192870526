package schema

import (
	"encoding/json"
	"fmt"

	"github.com/manifold-ai/manifold/internal/jsonschema"
)

// The combinators build small schemas without writing JSON Schema by hand:
//
//	schema.Object(map[string]schema.Validator{
//	    "city": schema.String(),
//	    "days": schema.Number(),
//	}, "city")
//
// They validate structurally: type checks, required properties and item
// schemas. For full JSON Schema semantics use [FromMap].

// String returns a validator accepting any JSON string.
func String() Validator {
	return &combinator{node: &jsonschema.Schema{Type: "string"}}
}

// Number returns a validator accepting any JSON number.
func Number() Validator {
	return &combinator{node: &jsonschema.Schema{Type: "number"}}
}

// Boolean returns a validator accepting a JSON boolean.
func Boolean() Validator {
	return &combinator{node: &jsonschema.Schema{Type: "boolean"}}
}

// Object returns a validator for a JSON object with the given property
// schemas. Properties listed in required must be present; properties not
// declared are allowed and pass through unvalidated.
func Object(properties map[string]Validator, required ...string) Validator {
	node := &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{},
		Required:   required,
	}
	for name, validator := range properties {
		node.Properties[name] = nodeFor(validator)
	}
	return &combinator{node: node}
}

// Array returns a validator for a JSON array whose elements all match item.
func Array(item Validator) Validator {
	return &combinator{node: &jsonschema.Schema{Type: "array", Items: nodeFor(item)}}
}

type combinator struct {
	node *jsonschema.Schema
}

func (c *combinator) JSONSchema() map[string]any {
	out, err := toMap(c.node)
	if err != nil {
		return map[string]any{"type": c.node.Type}
	}
	return out
}

func (c *combinator) Validate(data any) Result {
	value, err := normalise(data)
	if err != nil {
		return Result{Err: err}
	}
	if err := validateNode(c.node, value, "$"); err != nil {
		return Result{Err: err}
	}
	return Result{OK: true, Value: value}
}

// nodeFor extracts the schema node from a validator: combinators share their
// node directly, any other validator is converted through its JSON form.
func nodeFor(v Validator) *jsonschema.Schema {
	if c, ok := v.(*combinator); ok {
		return c.node
	}

	encoded, err := json.Marshal(v.JSONSchema())
	if err != nil {
		return &jsonschema.Schema{}
	}
	var node jsonschema.Schema
	if err := json.Unmarshal(encoded, &node); err != nil {
		return &jsonschema.Schema{}
	}
	return &node
}

func validateNode(node *jsonschema.Schema, value any, path string) error {
	switch node.Type {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%s: expected string, got %T", path, value)
		}

	case "number":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("%s: expected number, got %T", path, value)
		}

	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%s: expected boolean, got %T", path, value)
		}

	case "object":
		object, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: expected object, got %T", path, value)
		}
		for _, name := range node.Required {
			if _, present := object[name]; !present {
				return fmt.Errorf("%s: missing required property %q", path, name)
			}
		}
		for name, property := range node.Properties {
			child, present := object[name]
			if !present {
				continue
			}
			if err := validateNode(property, child, path+"."+name); err != nil {
				return err
			}
		}

	case "array":
		array, ok := value.([]any)
		if !ok {
			return fmt.Errorf("%s: expected array, got %T", path, value)
		}
		if node.Items != nil {
			for i, element := range array {
				if err := validateNode(node.Items, element, fmt.Sprintf("%s[%d]", path, i)); err != nil {
					return err
				}
			}
		}
	}

	return nil
}
