package operation

// ToolDefinition describes one operation tool for the model request.
// Schema is a JSON-schema object in map form, ready for any provider's
// tool-definition encoding.
type ToolDefinition struct {
	Name        string
	Description string
	Schema      map[string]any
}

// blockSchema is the JSON schema for a wire block.
// Declared once; children reference it by name via $ref-free nesting
// kept one level deep, which is as far as the models follow anyway.
func blockSchema() map[string]any {
	inline := map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text":   map[string]any{"type": "string"},
				"styles": map[string]any{"type": "object"},
				"href":   map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
	}

	base := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":      map[string]any{"type": "string", "description": "Stable block identity. Omit to have one generated."},
			"type":    map[string]any{"type": "string", "description": "Block type tag, e.g. paragraph, heading, bulletListItem, table."},
			"text":    map[string]any{"type": "string", "description": "Plain text shorthand for content."},
			"content": inline,
			"props":   map[string]any{"type": "object"},
		},
		"required": []string{"type"},
	}

	// One nesting level for children; deeper trees arrive as separate adds.
	child := make(map[string]any, len(base))
	for k, v := range base {
		child[k] = v
	}
	props := base["properties"].(map[string]any)
	props["children"] = map[string]any{"type": "array", "items": child}
	return base
}

// Definitions returns the tool definitions for all operation variants,
// in the order they are offered to the model.
func Definitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        ToolAdd,
			Description: "Insert new blocks into the document at a position relative to an existing block or the document boundary.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"position": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"anchor":    map[string]any{"type": "string", "description": "ID of the reference block. Omit for doc-start/doc-end."},
							"placement": map[string]any{"type": "string", "enum": []string{"before", "after", "first-child", "doc-start", "doc-end"}},
						},
						"required": []string{"placement"},
					},
					"blocks": map[string]any{"type": "array", "items": blockSchema()},
				},
				"required": []string{"position", "blocks"},
			},
		},
		{
			Name:        ToolUpdate,
			Description: "Replace the content, properties, or type of an existing block.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":   map[string]any{"type": "string", "description": "ID of the block to update."},
					"text": map[string]any{"type": "string", "description": "Plain replacement text."},
					"content": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "object"},
					},
					"props":     map[string]any{"type": "object"},
					"blockType": map[string]any{"type": "string"},
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        ToolDelete,
			Description: "Remove blocks from the document.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"ids": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
				},
				"required": []string{"ids"},
			},
		},
	}
}

// RequiredFields maps each tool to the top-level fields that must be
// present before a streamed payload can be considered complete. The
// stream parser gates on these before attempting a full decode.
func RequiredFields(toolName string) []string {
	switch toolName {
	case ToolAdd:
		return []string{"position", "blocks"}
	case ToolUpdate:
		return []string{"id"}
	case ToolDelete:
		return []string{"ids"}
	default:
		return nil
	}
}
