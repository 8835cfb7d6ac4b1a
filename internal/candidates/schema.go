package candidates

import "quizforge/internal/llm"

// MCQSchema defines the JSON schema for LLM question generation responses.
var MCQSchema = &llm.Schema{
	Name:        "mcq-candidate",
	Description: "A single multiple-choice question testing one fact",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{
				"type":        "string",
				"description": "The question stem, self-contained and unambiguous",
			},
			"options": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "string",
				},
				"minItems":    4,
				"maxItems":    4,
				"description": "Exactly 4 answer options in plain text without letter prefixes",
			},
			"correct_answer": map[string]any{
				"type":        "string",
				"description": "The text of the correct option, matching one of the options exactly",
			},
			"rationale": map[string]any{
				"type":        "string",
				"description": "Why the correct answer is right and the distractors are wrong",
			},
			"difficulty": map[string]any{
				"type":        "integer",
				"minimum":     1,
				"maximum":     5,
				"description": "Self-assessed difficulty from 1 (recall) to 5 (synthesis)",
			},
		},
		"required":             []any{"question", "options", "correct_answer", "rationale", "difficulty"},
		"additionalProperties": false,
	},
}

const mcqSystemPrompt = `You are an expert exam item writer creating board-style multiple-choice questions.

Rules:
- Write exactly one question testing the given fact. The question must be answerable from the fact alone.
- Provide exactly 4 options where exactly one is correct. Distractors must be plausible and reflect common misconceptions, not random values.
- Options are plain text without letter designations (A, B, C, D).
- The correct_answer field must repeat the text of the correct option exactly.
- The rationale explains the correct answer and briefly dismisses each distractor.
- Do not reference "the fact", "the text", or "the passage" in the question.`
