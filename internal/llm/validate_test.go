package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func mcqTestSchema() *Schema {
	return &Schema{
		Name:        "test-mcq",
		Description: "A test MCQ shape",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"stem": map[string]any{"type": "string"},
				"options": map[string]any{
					"type":     "array",
					"items":    map[string]any{"type": "string"},
					"minItems": 4,
					"maxItems": 4,
				},
				"correct_index": map[string]any{"type": "integer", "minimum": 0, "maximum": 3},
			},
			"required": []any{"stem", "options", "correct_index"},
		},
	}
}

func TestValidateResponse_Valid(t *testing.T) {
	raw := json.RawMessage(`{"stem":"Which organ produces insulin?","options":["Pancreas","Liver","Spleen","Kidney"],"correct_index":0}`)
	if err := validateResponse(mcqTestSchema(), raw); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidateResponse_MissingRequired(t *testing.T) {
	raw := json.RawMessage(`{"stem":"Which organ produces insulin?"}`)
	err := validateResponse(mcqTestSchema(), raw)
	if err == nil {
		t.Fatal("expected error for missing required field")
	}
	var invErr *ErrInvalidResponse
	if !errors.As(err, &invErr) {
		t.Fatalf("expected ErrInvalidResponse, got: %T", err)
	}
}

func TestValidateResponse_WrongOptionCount(t *testing.T) {
	raw := json.RawMessage(`{"stem":"Pick one","options":["a","b","c"],"correct_index":0}`)
	err := validateResponse(mcqTestSchema(), raw)
	if err == nil {
		t.Fatal("expected error for wrong option count")
	}
	var invErr *ErrInvalidResponse
	if !errors.As(err, &invErr) {
		t.Fatalf("expected ErrInvalidResponse, got: %T", err)
	}
}

func TestValidateResponse_WrongType(t *testing.T) {
	raw := json.RawMessage(`{"stem":"Pick one","options":["a","b","c","d"],"correct_index":"zero"}`)
	err := validateResponse(mcqTestSchema(), raw)
	if err == nil {
		t.Fatal("expected error for wrong type")
	}
}

func TestValidateResponse_MalformedJSON(t *testing.T) {
	raw := json.RawMessage(`{not json}`)
	err := validateResponse(mcqTestSchema(), raw)
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
	var invErr *ErrInvalidResponse
	if !errors.As(err, &invErr) {
		t.Fatalf("expected ErrInvalidResponse, got: %T", err)
	}
}

func TestValidateResponse_NilSchema(t *testing.T) {
	raw := json.RawMessage(`anything goes`)
	if err := validateResponse(nil, raw); err != nil {
		t.Fatalf("expected no error with nil schema, got: %v", err)
	}
}
