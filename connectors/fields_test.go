package connectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeFields(t *testing.T) {
	schema := map[string]any{
		"properties": map[string]any{
			"botToken": map[string]any{
				"type":        "string",
				"title":       "Bot token",
				"description": "Telegram bot API token",
			},
			"channel": map[string]any{
				"type":    "string",
				"default": "#general",
			},
		},
		"required": []any{"botToken"},
	}

	fields := DescribeFields(schema)
	require.Len(t, fields, 2)

	byKey := map[string]FieldDescriptor{}
	for _, f := range fields {
		byKey[f.Key] = f
	}

	assert.True(t, byKey["botToken"].Required)
	assert.True(t, byKey["botToken"].Sensitive)
	assert.Equal(t, "Bot token", byKey["botToken"].Title)

	assert.False(t, byKey["channel"].Required)
	assert.Equal(t, "#general", byKey["channel"].Default)
}

func TestDescribeFields_NonObjectSchema(t *testing.T) {
	assert.Nil(t, DescribeFields(map[string]any{"type": "string"}))
}

func TestMaskSensitiveSettings(t *testing.T) {
	def := ConnectorDefinition{EncryptedFields: []string{"botToken"}}
	out := maskSensitiveSettings(def, map[string]any{
		"botToken": "123:ABC",
		"channel":  "#general",
	})
	assert.Equal(t, "••••••••", out["botToken"])
	assert.Equal(t, "#general", out["channel"])
}

func TestMaskSensitiveSettings_DefaultPolicy(t *testing.T) {
	def := ConnectorDefinition{}
	out := maskSensitiveSettings(def, map[string]any{"apiSecret": "xyz"})
	assert.Equal(t, "••••••••", out["apiSecret"])
}
