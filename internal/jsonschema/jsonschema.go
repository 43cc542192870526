// Package jsonschema derives JSON Schema documents from Go types by
// reflection. It backs the parameter schemas tools advertise to models.
// Validation of model output lives in core/schema; this package only
// describes shapes.
package jsonschema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Schema is a JSON Schema node. Only the keywords the tool layer and the
// provider wire formats need are modelled; unknown keywords are never
// emitted.
type Schema struct {
	Type                 string             `json:"type,omitempty"`
	Description          string             `json:"description,omitempty"`
	Required             []string           `json:"required,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	AdditionalProperties any                `json:"additionalProperties,omitempty"`
	Default              any                `json:"default,omitempty"`
	Enum                 []any              `json:"enum,omitempty"`
	Ref                  string             `json:"$ref,omitempty"`
	Defs                 map[string]*Schema `json:"$defs,omitempty"`
}

// String renders the schema as indented JSON.
func (s *Schema) String() string {
	encoded, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(encoded)
}

// GenerateJSONSchema reflects T into a schema. Struct fields follow their
// json tags; fields tagged json:"-" and unexported fields are skipped. A
// field is required unless it is a pointer or carries omitempty, and a
// jsonschema tag can add a description, enum values, or force required:
//
//	Query string `json:"query" jsonschema:"description=Search query,required"`
//	Unit  string `json:"unit,omitempty" jsonschema:"enum=celsius,enum=fahrenheit"`
//
// Recursive struct types become $defs entries referenced by $ref.
func GenerateJSONSchema[T any]() (*Schema, error) {
	walker := &walker{
		names: map[reflect.Type]string{},
		defs:  map[string]*Schema{},
	}

	root, err := walker.walk(reflect.TypeFor[T](), true)
	if err != nil {
		return nil, err
	}
	if len(walker.defs) > 0 {
		root.Defs = walker.defs
	}
	return root, nil
}

// walker carries the state of one reflection pass: names assigns a $defs
// key to each recursive struct type the first time it is entered, so a
// second visit yields a $ref instead of recursing forever.
type walker struct {
	names map[reflect.Type]string
	defs  map[string]*Schema
}

func (w *walker) walk(t reflect.Type, isRoot bool) (*Schema, error) {
	switch t.Kind() {
	case reflect.Ptr:
		return w.walk(t.Elem(), isRoot)

	case reflect.String:
		return &Schema{Type: "string"}, nil
	case reflect.Bool:
		return &Schema{Type: "boolean"}, nil
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}, nil

	case reflect.Slice, reflect.Array:
		items, err := w.walk(t.Elem(), false)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "array", Items: items}, nil

	case reflect.Map:
		values, err := w.walk(t.Elem(), false)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "object", AdditionalProperties: values}, nil

	case reflect.Struct:
		return w.structSchema(t, isRoot)

	default:
		// interface{}, json.RawMessage and friends accept any object.
		return &Schema{Type: "object"}, nil
	}
}

func (w *walker) structSchema(t reflect.Type, isRoot bool) (*Schema, error) {
	if name, seen := w.names[t]; seen {
		return &Schema{Ref: "#/$defs/" + name}, nil
	}

	recursive := refersToItself(t)
	if recursive {
		w.names[t] = defName(t)
	}

	node := &Schema{Type: "object", Properties: map[string]*Schema{}}
	var required []string

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, omitEmpty, skip := jsonName(field)
		if skip {
			continue
		}

		property, err := w.walk(field.Type, false)
		if err != nil {
			return nil, err
		}

		requiredByTag := false
		if property.Ref == "" {
			requiredByTag, err = applyFieldTag(field, property)
			if err != nil {
				return nil, fmt.Errorf("field %s.%s: %w", t.Name(), field.Name, err)
			}
		}
		if requiredByTag || (field.Type.Kind() != reflect.Ptr && !omitEmpty) {
			required = append(required, name)
		}

		node.Properties[name] = property
	}
	node.Required = required

	if recursive {
		// The def shares the property map but not the Defs slot, keeping
		// the marshalled root from containing itself.
		w.defs[w.names[t]] = &Schema{
			Type:       node.Type,
			Properties: node.Properties,
			Required:   node.Required,
		}
		if !isRoot {
			return &Schema{Ref: "#/$defs/" + w.names[t]}, nil
		}
	}
	return node, nil
}

// jsonName resolves the property name for a struct field from its json tag.
func jsonName(field reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name = field.Name
	if tag != "" {
		if comma := strings.Index(tag, ","); comma >= 0 {
			if tag[:comma] != "" {
				name = tag[:comma]
			}
			omitEmpty = strings.Contains(tag[comma:], "omitempty")
		} else {
			name = tag
		}
	}
	return name, omitEmpty, false
}

// applyFieldTag folds the jsonschema struct tag into the property schema.
// Supported items: description=…, enum=… (repeatable, parsed to the field's
// Go type) and the bare word required.
func applyFieldTag(field reflect.StructField, property *Schema) (requiredByTag bool, err error) {
	tag := field.Tag.Get("jsonschema")
	if tag == "" {
		return false, nil
	}

	for _, item := range strings.Split(tag, ",") {
		key, value, hasValue := strings.Cut(item, "=")
		switch {
		case key == "required" && !hasValue:
			requiredByTag = true
		case key == "description" && hasValue:
			property.Description = value
		case key == "enum" && hasValue:
			parsed, err := enumValue(field.Type, value)
			if err != nil {
				return false, err
			}
			property.Enum = append(property.Enum, parsed)
		}
	}
	return requiredByTag, nil
}

func enumValue(t reflect.Type, value string) (any, error) {
	switch t.Kind() {
	case reflect.String:
		return value, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("enum value %q is not an integer: %w", value, err)
		}
		return parsed, nil
	case reflect.Float32, reflect.Float64:
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("enum value %q is not a number: %w", value, err)
		}
		return parsed, nil
	case reflect.Bool:
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("enum value %q is not a bool: %w", value, err)
		}
		return parsed, nil
	default:
		return nil, fmt.Errorf("enum tag unsupported for type %s", t)
	}
}

// refersToItself reports whether t can reach itself through its fields,
// following pointers, slices, arrays and nested structs.
func refersToItself(t reflect.Type) bool {
	return reaches(t, t, map[reflect.Type]bool{})
}

func reaches(target, current reflect.Type, visited map[reflect.Type]bool) bool {
	for current.Kind() == reflect.Ptr || current.Kind() == reflect.Slice || current.Kind() == reflect.Array {
		current = current.Elem()
	}
	if visited[current] {
		return false
	}
	visited[current] = true

	if current.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < current.NumField(); i++ {
		field := current.Field(i)
		if !field.IsExported() {
			continue
		}
		fieldType := field.Type
		for fieldType.Kind() == reflect.Ptr || fieldType.Kind() == reflect.Slice || fieldType.Kind() == reflect.Array {
			fieldType = fieldType.Elem()
		}
		if fieldType == target {
			return true
		}
		if fieldType.Kind() == reflect.Struct && reaches(target, fieldType, visited) {
			return true
		}
	}
	return false
}

func defName(t reflect.Type) string {
	if t.Name() != "" {
		return strings.ToLower(t.Name())
	}
	return "anonymous"
}
