package llm

import (
	"math"
	"testing"
)

func TestModelCost_Cost(t *testing.T) {
	c := ModelCost{InputPerMTok: 3, OutputPerMTok: 15}
	got := c.Cost(1_000_000, 200_000)
	if math.Abs(got-6.0) > 1e-9 {
		t.Fatalf("cost = %f, want 6.0", got)
	}
}

func TestLookupCost_UnknownModel(t *testing.T) {
	if c := LookupCost("not-a-model"); c != nil {
		t.Fatalf("expected nil for unknown model, got %+v", c)
	}
}

func TestEstimatedCost(t *testing.T) {
	u := Usage{InputTokens: 500_000, OutputTokens: 100_000}

	got := EstimatedCost("gpt-4o-mini", u)
	want := 0.5*0.15 + 0.1*0.6
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("cost = %f, want %f", got, want)
	}

	if got := EstimatedCost("mock", u); got != 0 {
		t.Fatalf("unknown model cost = %f, want 0", got)
	}
}
