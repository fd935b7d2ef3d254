package resilience

import (
	"context"

	"github.com/voice2vital/voice2vital/pkg/provider/llm"
)

// LLMFallback implements [llm.Provider] with automatic failover across
// multiple LLM backends — typically the configured extraction model as
// primary and a different vendor's model as fallback, so a quota exhaustion
// or outage at one vendor does not stall note extraction. Each backend has
// its own circuit breaker; when the primary fails or its breaker is open, the
// next healthy fallback is tried.
//
// Note that only provider-call failures participate in failover. A response
// that arrives but cannot be parsed into a clinical note is a content
// problem, surfaced by the extractor, and retrying it against a weaker
// fallback model would usually make things worse.
type LLMFallback struct {
	group *FallbackGroup[llm.Provider]
}

// Compile-time interface assertion.
var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback creates an [LLMFallback] with primary as the preferred
// backend.
func NewLLMFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *LLMFallback {
	return &LLMFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional LLM provider as a fallback.
func (f *LLMFallback) AddFallback(name string, provider llm.Provider) {
	f.group.AddFallback(name, provider)
}

// Complete sends the request to the first healthy provider and returns its
// response. If the primary fails, subsequent fallbacks are tried.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return ExecuteWithResult(f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// Capabilities reports the intersection of all backends' capabilities, so a
// caller that embeds the note schema in the prompt when a backend cannot
// enforce it server-side stays correct whichever backend ends up answering.
func (f *LLMFallback) Capabilities() llm.ModelCapabilities {
	if len(f.group.entries) == 0 {
		return llm.ModelCapabilities{}
	}
	caps := f.group.entries[0].value.Capabilities()
	for _, e := range f.group.entries[1:] {
		c := e.value.Capabilities()
		caps.SupportsToolCalling = caps.SupportsToolCalling && c.SupportsToolCalling
		caps.SupportsJSONSchema = caps.SupportsJSONSchema && c.SupportsJSONSchema
		if c.ContextWindow > 0 && (caps.ContextWindow == 0 || c.ContextWindow < caps.ContextWindow) {
			caps.ContextWindow = c.ContextWindow
		}
		if c.MaxOutputTokens > 0 && (caps.MaxOutputTokens == 0 || c.MaxOutputTokens < caps.MaxOutputTokens) {
			caps.MaxOutputTokens = c.MaxOutputTokens
		}
	}
	return caps
}
