// Package schema bridges structured-output callers and JSON Schema. A
// Validator accepts a schema in any supported form (Go struct reflection,
// a raw JSON Schema map, or the small combinator set in this package) and
// exposes the two operations adapters need: validating a decoded value and
// rendering the schema for services with server-side JSON mode.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/kaptinlin/jsonrepair"
)

// Result is the outcome of a validation. On success OK is true and Value
// holds the validated (and, for struct validators, typed) value.
type Result struct {
	OK    bool
	Value any
	Err   error
}

// Validator validates decoded JSON values against a schema.
type Validator interface {
	// Validate checks data against the schema. data may be a decoded JSON
	// value or any Go value with an equivalent JSON representation.
	Validate(data any) Result

	// JSONSchema renders the schema as a JSON Schema object, for adapters
	// that support server-side schema enforcement.
	JSONSchema() map[string]any
}

// ForStruct builds a validator from a Go struct type via reflection. The
// generated schema inlines definitions so it can be sent to providers
// as-is; Validate returns the value decoded into T.
func ForStruct[T any]() (Validator, error) {
	reflector := jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}
	var zero T
	reflected := reflector.Reflect(&zero)
	reflected.Version = "" // providers reject $schema in response_format

	schemaMap, err := toMap(reflected)
	if err != nil {
		return nil, fmt.Errorf("reflecting schema: %w", err)
	}

	compiled, err := compile(schemaMap)
	if err != nil {
		return nil, err
	}

	return &structValidator[T]{schema: schemaMap, compiled: compiled}, nil
}

type structValidator[T any] struct {
	schema   map[string]any
	compiled *sjsonschema.Schema
}

func (v *structValidator[T]) JSONSchema() map[string]any { return v.schema }

func (v *structValidator[T]) Validate(data any) Result {
	normalised, err := normalise(data)
	if err != nil {
		return Result{Err: err}
	}
	if err := v.compiled.Validate(normalised); err != nil {
		return Result{Err: err}
	}

	encoded, err := json.Marshal(normalised)
	if err != nil {
		return Result{Err: err}
	}
	var typed T
	if err := json.Unmarshal(encoded, &typed); err != nil {
		return Result{Err: fmt.Errorf("decoding into target type: %w", err)}
	}
	return Result{OK: true, Value: typed}
}

// FromMap builds a validator from a raw JSON Schema object.
func FromMap(schema map[string]any) (Validator, error) {
	compiled, err := compile(schema)
	if err != nil {
		return nil, err
	}
	return &mapValidator{schema: schema, compiled: compiled}, nil
}

type mapValidator struct {
	schema   map[string]any
	compiled *sjsonschema.Schema
}

func (v *mapValidator) JSONSchema() map[string]any { return v.schema }

func (v *mapValidator) Validate(data any) Result {
	normalised, err := normalise(data)
	if err != nil {
		return Result{Err: err}
	}
	if err := v.compiled.Validate(normalised); err != nil {
		return Result{Err: err}
	}
	return Result{OK: true, Value: normalised}
}

// ValidateText decodes text as JSON and validates it. Malformed JSON (the
// single-quoted, trailing-comma, fenced output models actually produce) is
// repaired before giving up.
func ValidateText(validator Validator, text string) Result {
	value, err := decodeText(text)
	if err != nil {
		return Result{Err: err}
	}
	return validator.Validate(value)
}

// decodeText parses text as JSON, falling back to jsonrepair when strict
// parsing fails.
func decodeText(text string) (any, error) {
	var value any
	if err := json.Unmarshal([]byte(text), &value); err == nil {
		return value, nil
	}

	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return nil, fmt.Errorf("text is not valid JSON and could not be repaired: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &value); err != nil {
		return nil, fmt.Errorf("repaired text is still not valid JSON: %w", err)
	}
	return value, nil
}

// compile turns a schema map into a compiled schema using a throwaway
// in-memory resource.
func compile(schema map[string]any) (*sjsonschema.Schema, error) {
	normalised, err := normalise(schema)
	if err != nil {
		return nil, err
	}

	compiler := sjsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", normalised); err != nil {
		return nil, fmt.Errorf("adding schema resource: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	return compiled, nil
}

// normalise round-trips a value through JSON so validation always sees
// decoded JSON types (map[string]any, []any, float64).
func normalise(data any) (any, error) {
	switch data.(type) {
	case nil, bool, float64, string:
		return data, nil
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("value is not JSON-representable: %w", err)
	}
	var normalised any
	if err := json.Unmarshal(encoded, &normalised); err != nil {
		return nil, err
	}
	return normalised, nil
}

func toMap(v any) (map[string]any, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, err
	}
	return out, nil
}
