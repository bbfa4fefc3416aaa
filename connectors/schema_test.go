package connectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONSchema_ValidatesConformingValue(t *testing.T) {
	s, err := NewJSONSchema(map[string]any{
		"type":     "object",
		"required": []any{"botToken"},
		"properties": map[string]any{
			"botToken": map[string]any{"type": "string"},
		},
	})
	require.NoError(t, err)

	assert.NoError(t, s.Validate(map[string]any{"botToken": "123:ABC"}))
}

func TestNewJSONSchema_RejectsNonConformingValue(t *testing.T) {
	s, err := NewJSONSchema(map[string]any{
		"type":     "object",
		"required": []any{"botToken"},
		"properties": map[string]any{
			"botToken": map[string]any{"type": "string"},
		},
	})
	require.NoError(t, err)

	err = s.Validate(map[string]any{})
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestNewJSONSchema_InvalidSchemaDocument(t *testing.T) {
	_, err := NewJSONSchema(map[string]any{"type": "not-a-real-type"})
	assert.Error(t, err)
}

func TestMustJSONSchema_PanicsOnInvalidSchema(t *testing.T) {
	assert.Panics(t, func() {
		MustJSONSchema(map[string]any{"type": "not-a-real-type"})
	})
}

func TestJSONSchema_NilReceiverIsNoop(t *testing.T) {
	var s *JSONSchema
	assert.NoError(t, s.Validate(map[string]any{"anything": true}))
}

func TestNoopValidator_AcceptsEverything(t *testing.T) {
	assert.NoError(t, AnySchema.Validate(nil))
	assert.NoError(t, AnySchema.Validate(map[string]any{"a": 1}))
	assert.NoError(t, AnySchema.Validate("a string"))
}
