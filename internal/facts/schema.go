package facts

import "quizforge/internal/llm"

// FactsSchema defines the JSON schema for LLM fact extraction responses.
var FactsSchema = &llm.Schema{
	Name:        "extracted-facts",
	Description: "Atomic facts extracted from source text",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"facts": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"fact": map[string]any{
							"type":        "string",
							"description": "One atomic, self-contained factual statement",
						},
						"subject": map[string]any{
							"type":        "string",
							"description": "Short topic label for the fact, e.g. 'endocrinology'",
						},
					},
					"required":             []any{"fact", "subject"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"facts"},
		"additionalProperties": false,
	},
}

const extractSystemPrompt = `You are an expert at distilling source text into atomic facts for exam preparation.

Rules:
- Extract every distinct, verifiable factual statement from the text.
- Each fact must be a single self-contained sentence that makes sense without the surrounding text.
- Do not merge unrelated claims into one fact. Do not invent facts not supported by the text.
- Tag each fact with a short subject label describing its topic.
- Skip rhetorical filler, opinions, and meta-commentary.
- If the text contains no extractable facts, return an empty facts array.`
