// Package llm defines the Provider interface for Large Language Model backends.
//
// An LLM provider wraps a remote or local model API (e.g., OpenAI GPT-4o,
// Google Gemini via any-llm, or a local Ollama instance) and exposes a uniform
// interface for clinical-note extraction and records question answering
// without coupling to any specific SDK.
//
// Implementations must be safe for concurrent use from multiple goroutines.
// Each method should propagate context cancellation promptly.
package llm

import "context"

// Usage holds token accounting information returned by the LLM backend.
// All counts are in the model's native token unit and may differ between
// providers for the same textual content.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the input messages and
	// system prompt.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens.
	TotalTokens int
}

// ResponseSchema asks the model to constrain its output to a JSON document
// matching the given JSON Schema. Providers with native structured-output
// support (OpenAI json_schema response format, Gemini response_schema) enforce
// it server-side; others receive the schema embedded in the prompt and the
// caller must parse defensively either way — the schema is a request, not a
// guarantee.
type ResponseSchema struct {
	// Name is a short identifier for the schema (e.g., "clinical_note").
	Name string

	// Schema is the JSON Schema document as a generic map, typically produced
	// by reflecting a Go struct.
	Schema map[string]any

	// Strict requests provider-side strict adherence where supported.
	Strict bool
}

// CompletionRequest carries everything the LLM needs to produce a response.
// A zero-value request is invalid; at minimum Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation history. The last message is
	// typically from the "user" role and drives the response.
	Messages []Message

	// SystemPrompt is an optional high-priority instruction injected before
	// the conversation history.
	SystemPrompt string

	// Tools is the set of function/tool definitions offered to the model.
	// Providers that do not support tool calling should return an error;
	// callers should check Capabilities().SupportsToolCalling first.
	Tools []ToolDefinition

	// ResponseSchema, when non-nil, requests schema-constrained JSON output.
	ResponseSchema *ResponseSchema

	// Temperature controls output randomness in the range [0.0, 2.0].
	// 0.0 typically requests greedy decoding.
	Temperature float64

	// MaxTokens caps the number of completion tokens the model may generate.
	// Zero means use the provider default.
	MaxTokens int
}

// CompletionResponse is returned by Complete.
type CompletionResponse struct {
	// Content is the full text of the assistant's reply. Empty when the model
	// responds exclusively with tool calls.
	Content string

	// ToolCalls lists all tool invocations requested by the model. The caller
	// is responsible for executing them and appending the results to the
	// conversation.
	ToolCalls []ToolCall

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any LLM backend.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	//
	// Returns an error if the request fails or if ctx is cancelled before the
	// completion arrives. A nil error implies a non-nil response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Capabilities returns static metadata describing what this provider's
	// underlying model supports. The result is assumed to be constant for the
	// lifetime of the Provider instance.
	Capabilities() ModelCapabilities
}
