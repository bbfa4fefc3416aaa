package connectors

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/ignitergo/connectors/pkg/apperror"
)

// Validator checks an arbitrary decoded JSON value against a schema and
// reports a human-readable error describing the first violation.
type Validator interface {
	Validate(value any) error
}

// JSONSchema is a Validator backed by a JSON Schema document, used for
// connector configSchema, metadataSchema, action input/output schemas and
// webhook payload schemas.
type JSONSchema struct {
	resolved *jsonschema.Schema
}

// NewJSONSchema compiles raw (a JSON Schema document, typically built with
// map[string]any literals in a connector definition) into a Validator.
func NewJSONSchema(raw map[string]any) (*JSONSchema, error) {
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("connectors: marshal schema: %w", err)
	}

	var schema jsonschema.Schema
	if err := json.Unmarshal(buf, &schema); err != nil {
		return nil, fmt.Errorf("connectors: decode schema: %w", err)
	}

	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("connectors: resolve schema: %w", err)
	}

	return &JSONSchema{resolved: resolved}, nil
}

// MustJSONSchema is NewJSONSchema for use in package-level connector
// definitions, where a malformed schema is a programmer error.
func MustJSONSchema(raw map[string]any) *JSONSchema {
	s, err := NewJSONSchema(raw)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *JSONSchema) Validate(value any) error {
	if s == nil || s.resolved == nil {
		return nil
	}
	if err := s.resolved.Validate(value); err != nil {
		return apperror.ErrValidationFailed.WithInternal(err)
	}
	return nil
}

// noopValidator accepts every value; used where a connector omits an
// optional schema.
type noopValidator struct{}

func (noopValidator) Validate(any) error { return nil }

var AnySchema Validator = noopValidator{}
