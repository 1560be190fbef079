package anthropicclaude

import (
	"errors"
	"testing"
)

func TestResolveModelVariants(t *testing.T) {
	tests := []struct {
		id           string
		wantBase     string
		wantTier     string
		want1M       bool
	}{
		{id: "sonnet-4-5", wantBase: "sonnet-4-5"},
		{id: "claude-sonnet-4-5-20250929", wantBase: "sonnet-4-5"},
		{id: "sonnet-4-5-1m", wantBase: "sonnet-4-5", want1M: true},
		{id: "sonnet-4-5-reasoning-low", wantBase: "sonnet-4-5", wantTier: "low"},
		{id: "sonnet-4-5-reasoning-medium", wantBase: "sonnet-4-5", wantTier: "medium"},
		{id: "sonnet-4-5-1m-reasoning-high", wantBase: "sonnet-4-5", wantTier: "high", want1M: true},
		{id: "opus-4-1-reasoning-high", wantBase: "opus-4-1", wantTier: "high"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			resolved, err := resolveModel(tt.id)
			if err != nil {
				t.Fatalf("resolveModel(%q) failed: %v", tt.id, err)
			}
			if resolved.Spec.OpenAIID != tt.wantBase {
				t.Errorf("base = %q, want %q", resolved.Spec.OpenAIID, tt.wantBase)
			}
			if resolved.ReasoningTier != tt.wantTier {
				t.Errorf("tier = %q, want %q", resolved.ReasoningTier, tt.wantTier)
			}
			if resolved.Use1MContext != tt.want1M {
				t.Errorf("use1M = %v, want %v", resolved.Use1MContext, tt.want1M)
			}
		})
	}
}

func TestResolveModelUnknown(t *testing.T) {
	for _, id := range []string{
		"gpt-4o",
		"sonnet-9-9",
		// Misordered variants must not be reinterpreted: the reasoning
		// token has to come last.
		"sonnet-4-5-reasoning-high-1m",
		"sonnet-4-5-reasoning-extreme",
	} {
		t.Run(id, func(t *testing.T) {
			_, err := resolveModel(id)
			var notFound *NotFoundError
			if !errors.As(err, &notFound) {
				t.Fatalf("resolveModel(%q) = %v, want NotFoundError", id, err)
			}
		})
	}
}

func TestResolveModelUnsupportedVariantsCleared(t *testing.T) {
	// opus-4-1 has no 1M context; the suffix is tolerated but has no effect.
	resolved, err := resolveModel("opus-4-1-1m")
	if err != nil {
		t.Fatalf("resolveModel failed: %v", err)
	}
	if resolved.Use1MContext {
		t.Error("expected 1M context flag to be cleared for unsupported model")
	}
}

func TestModelsListing(t *testing.T) {
	listing := Models()

	ids := make(map[string]bool, len(listing))
	for _, model := range listing {
		if ids[model.ID] {
			t.Errorf("duplicate model id %q", model.ID)
		}
		ids[model.ID] = true
		if model.Object != "model" {
			t.Errorf("model %q object = %q, want \"model\"", model.ID, model.Object)
		}
	}

	for _, want := range []string{"sonnet-4-5", "sonnet-4-5-reasoning-high", "haiku-4-5-reasoning-low"} {
		if !ids[want] {
			t.Errorf("listing missing %q", want)
		}
	}
}
