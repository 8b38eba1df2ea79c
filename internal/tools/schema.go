package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	jsv "github.com/santhosh-tekuri/jsonschema/v6"
)

// SchemaFor reflects a JSON Schema from an argument struct. The result is a
// plain inline object schema suitable for the provider's input_schema field:
// no $ref indirection, no $id, no $schema header.
func SchemaFor(v any) map[string]any {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := r.Reflect(v)

	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{"type": "object"}
	}
	delete(m, "$schema")
	delete(m, "$id")
	return m
}

// WithValidation wraps a handler so arguments are checked against the
// descriptor's schema before the handler runs. Violations surface as
// ordinary per-call errors, so a bad argument never aborts the round.
// The schema compiles once, on the first call.
func WithValidation(desc Descriptor, handler Handler) Handler {
	if len(desc.InputSchema) == 0 {
		return handler
	}

	var (
		once       sync.Once
		schema     *jsv.Schema
		compileErr error
	)

	return func(ctx context.Context, args map[string]any) (any, error) {
		once.Do(func() {
			schema, compileErr = compileSchema(desc.Name, desc.InputSchema)
		})
		if compileErr != nil {
			return nil, compileErr
		}

		value, err := normalizeJSON(args)
		if err != nil {
			return nil, fmt.Errorf("invalid arguments for tool %s: %w", desc.Name, err)
		}
		if err := schema.Validate(value); err != nil {
			return nil, fmt.Errorf("invalid arguments for tool %s: %w", desc.Name, err)
		}

		return handler(ctx, args)
	}
}

func compileSchema(name string, raw map[string]any) (*jsv.Schema, error) {
	doc, err := normalizeJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid input schema for tool %s: %w", name, err)
	}

	compiler := jsv.NewCompiler()
	url := name + ".schema.json"
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("invalid input schema for tool %s: %w", name, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("invalid input schema for tool %s: %w", name, err)
	}
	return schema, nil
}

// normalizeJSON round-trips a value through JSON so the validator sees the
// decoded-JSON shape it expects, whatever Go types the caller handed us.
func normalizeJSON(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsv.UnmarshalJSON(bytes.NewReader(data))
}
