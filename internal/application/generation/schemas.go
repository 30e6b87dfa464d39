package generation

func str() map[string]any { return map[string]any{"type": "string"} }

func integer() map[string]any { return map[string]any{"type": "integer"} }

func strList() map[string]any {
	return map[string]any{"type": "array", "items": str()}
}

func object(required []any, props map[string]any) map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             required,
		"properties":           props,
	}
}

func arrayOf(item map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": item}
}

// 各操作的响应 schema 以最小可用为目标，字段缺失由解码后的默认值补齐

func novelAnalysisSchema() map[string]any {
	return object([]any{"worldView", "mainPlot", "characterCards"}, map[string]any{
		"worldView": str(),
		"mainPlot":  str(),
		"characterCards": arrayOf(object([]any{"name"}, map[string]any{
			"name":        str(),
			"identity":    str(),
			"personality": str(),
			"arc":         str(),
			"keyScenes":   strList(),
		})),
	})
}

func adaptationPlanSchema() map[string]any {
	return object([]any{"episodes"}, map[string]any{
		"episodes": arrayOf(object([]any{"episodeNumber", "title", "summary", "events"}, map[string]any{
			"episodeNumber": integer(),
			"title":         str(),
			"summary":       str(),
			"characters":    strList(),
			"events":        strList(),
			"emotions":      strList(),
			"beats":         strList(),
		})),
	})
}

func charactersSchema() map[string]any {
	return object([]any{"characters"}, map[string]any{
		"characters": arrayOf(object([]any{"name", "role", "description"}, map[string]any{
			"name":        str(),
			"role":        map[string]any{"type": "string", "enum": []any{"protagonist", "antagonist", "supporting", "minor"}},
			"age":         str(),
			"description": str(),
			"motivation":  str(),
			"arc":         str(),
		})),
		"relationships": arrayOf(object([]any{"source", "target", "type"}, map[string]any{
			"source":      str(),
			"target":      str(),
			"type":        str(),
			"description": str(),
		})),
	})
}

func outlineSchema() map[string]any {
	return object([]any{"sections"}, map[string]any{
		"sections": arrayOf(object([]any{"title", "content"}, map[string]any{
			"title":        str(),
			"content":      str(),
			"scenes":       strList(),
			"emotionalArc": str(),
		})),
	})
}

func scriptSchema() map[string]any {
	return object([]any{"blocks"}, map[string]any{
		"blocks": arrayOf(object([]any{"type", "content"}, map[string]any{
			"type": map[string]any{
				"type": "string",
				"enum": []any{"scene_heading", "action", "character", "parenthetical", "dialogue", "transition"},
			},
			"content": str(),
		})),
	})
}

func storyboardSchema() map[string]any {
	return object([]any{"shots", "rows"}, map[string]any{
		"shots": arrayOf(object([]any{"blockId", "shotType"}, map[string]any{
			"blockId":     str(),
			"shotType":    str(),
			"cameraAngle": str(),
			"description": str(),
			"imagePrompt": str(),
		})),
		"rows": arrayOf(object([]any{"shotType", "visual"}, map[string]any{
			"sceneNumber":     integer(),
			"shotNumber":      integer(),
			"shotType":        str(),
			"cameraMovement":  str(),
			"visual":          str(),
			"dialogue":        str(),
			"sound":           str(),
			"durationSeconds": integer(),
		})),
	})
}

func marketSchema() map[string]any {
	return object([]any{"targetAudience", "positioning", "commercialScore"}, map[string]any{
		"targetAudience":  str(),
		"positioning":     str(),
		"comparables":     strList(),
		"sellingPoints":   strList(),
		"risks":           strList(),
		"commercialScore": integer(),
	})
}

func copilotSchema() map[string]any {
	return object([]any{"reply", "actions"}, map[string]any{
		"reply": str(),
		"actions": arrayOf(object([]any{"label", "ops"}, map[string]any{
			"label": str(),
			"ops": arrayOf(map[string]any{
				"type":     "object",
				"required": []any{"op", "path", "value"},
				"properties": map[string]any{
					"op":    map[string]any{"type": "string", "enum": []any{"add", "replace"}},
					"path":  str(),
					"value": map[string]any{},
				},
			}),
		})),
	})
}
