package llm

// JSON-Schema (draft 2020-12 subset) documents for each operation. We pass
// them to the provider as a structured output hint and also validate locally.

func ExtractionSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"extractedText": map[string]any{"type": "string"},
		},
		"required": []string{"extractedText"},
	}
}

func GradeSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"preliminaryScore": map[string]any{"type": "string", "minLength": 1},
			"feedback":         map[string]any{"type": "string", "minLength": 1},
		},
		"required": []string{"preliminaryScore", "feedback"},
	}
}

func IdentificationSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"identifiedStudentId":   map[string]any{"type": []string{"string", "null"}},
			"identifiedStudentName": map[string]any{"type": []string{"string", "null"}},
			"confidenceScore":       map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"confidenceReason":      map[string]any{"type": "string"},
		},
		"required": []string{"identifiedStudentId", "identifiedStudentName", "confidenceScore", "confidenceReason"},
	}
}

func GrammarSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"correctedHtml": map[string]any{"type": "string"},
		},
		"required": []string{"correctedHtml"},
	}
}
