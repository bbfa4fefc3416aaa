package connectors

// FieldDescriptor is a UI-facing description of one configSchema property,
// derived for hosts that render a generic "connect this integration" form
// without knowing the connector ahead of time.
type FieldDescriptor struct {
	Key         string
	Type        string
	Title       string
	Description string
	Required    bool
	Sensitive   bool
	Default     any
	Enum        []any
}

// DescribeFields derives the field list a host can render from a
// connector's JSON-Schema-shaped configSchema. Only object schemas with a
// "properties" map are introspectable; anything else yields an empty list.
func DescribeFields(schemaDoc map[string]any) []FieldDescriptor {
	props, _ := schemaDoc["properties"].(map[string]any)
	if props == nil {
		return nil
	}

	required := map[string]bool{}
	if list, ok := schemaDoc["required"].([]any); ok {
		for _, r := range list {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	fields := make([]FieldDescriptor, 0, len(props))
	for key, raw := range props {
		prop, _ := raw.(map[string]any)
		if prop == nil {
			continue
		}
		fd := FieldDescriptor{
			Key:       key,
			Required:  required[key],
			Sensitive: looksSensitive(key),
		}
		if t, ok := prop["type"].(string); ok {
			fd.Type = t
		}
		if t, ok := prop["title"].(string); ok {
			fd.Title = t
		}
		if d, ok := prop["description"].(string); ok {
			fd.Description = d
		}
		if d, ok := prop["default"]; ok {
			fd.Default = d
		}
		if e, ok := prop["enum"].([]any); ok {
			fd.Enum = e
		}
		fields = append(fields, fd)
	}
	return fields
}

// maskSensitiveSettings returns a copy of config with every sensitive-named
// (or explicitly declared) field's value replaced by a fixed redaction
// marker, for safe display or logging.
func maskSensitiveSettings(def ConnectorDefinition, config map[string]any) map[string]any {
	out := make(map[string]any, len(config))
	for k, v := range config {
		sensitive := false
		if len(def.EncryptedFields) > 0 {
			sensitive = containsField(def.EncryptedFields, k)
		} else {
			sensitive = looksSensitive(k)
		}
		if sensitive {
			out[k] = "••••••••"
			continue
		}
		out[k] = v
	}
	return out
}
