package resilience

import (
	"context"
	"testing"

	"github.com/voice2vital/voice2vital/pkg/provider/llm"
	"github.com/voice2vital/voice2vital/pkg/provider/llm/mock"
)

func TestLLMFallback_PrimarySuccess(t *testing.T) {
	primary := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "from-primary"},
	}
	secondary := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "from-secondary"},
	}

	f := NewLLMFallback(primary, "primary", FallbackConfig{})
	f.AddFallback("secondary", secondary)

	resp, err := f.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "from-primary" {
		t.Fatalf("Content = %q, want from-primary", resp.Content)
	}
	if len(secondary.CompleteCalls) != 0 {
		t.Error("secondary was called although primary succeeded")
	}
}

func TestLLMFallback_FailoverToSecondary(t *testing.T) {
	primary := &mock.Provider{CompleteErr: errProviderDown}
	secondary := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "from-secondary"},
	}

	f := NewLLMFallback(primary, "primary", FallbackConfig{})
	f.AddFallback("secondary", secondary)

	resp, err := f.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "from-secondary" {
		t.Fatalf("Content = %q, want from-secondary", resp.Content)
	}
}

func TestLLMFallback_AllFail(t *testing.T) {
	primary := &mock.Provider{CompleteErr: errProviderDown}
	f := NewLLMFallback(primary, "primary", FallbackConfig{})

	_, err := f.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error when all backends fail")
	}
}

func TestLLMFallback_CapabilitiesIntersection(t *testing.T) {
	primary := &mock.Provider{
		ModelCapabilities: llm.ModelCapabilities{
			ContextWindow:      128000,
			MaxOutputTokens:    16384,
			SupportsToolCalling: true,
			SupportsJSONSchema: true,
		},
	}
	secondary := &mock.Provider{
		ModelCapabilities: llm.ModelCapabilities{
			ContextWindow:      32000,
			MaxOutputTokens:    8192,
			SupportsToolCalling: true,
			SupportsJSONSchema: false,
		},
	}

	f := NewLLMFallback(primary, "primary", FallbackConfig{})
	f.AddFallback("secondary", secondary)

	caps := f.Capabilities()
	if caps.SupportsJSONSchema {
		t.Error("SupportsJSONSchema = true, want false (secondary cannot enforce schemas)")
	}
	if !caps.SupportsToolCalling {
		t.Error("SupportsToolCalling = false, want true (both support it)")
	}
	if caps.ContextWindow != 32000 {
		t.Errorf("ContextWindow = %d, want 32000", caps.ContextWindow)
	}
	if caps.MaxOutputTokens != 8192 {
		t.Errorf("MaxOutputTokens = %d, want 8192", caps.MaxOutputTokens)
	}
}
