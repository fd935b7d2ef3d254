// Package extract turns a normalized consultation dialogue into a structured
// [note.ClinicalNote] using an LLM provider.
//
// The extractor builds a single scribe prompt (instructions + schema + the
// literal dialogue), requests schema-constrained output from the provider,
// and defensively parses whatever comes back. Structured-output support is
// treated as a request, not a guarantee: even providers that claim to enforce
// the schema occasionally wrap JSON in markdown fences or prose, so parsing
// runs through an explicit fallback chain (strict → fence-stripped →
// brace-extracted) before giving up.
//
// The extractor never retries. Retry and fallback policy belongs to the
// caller, which knows whether re-prompting is worth the cost.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/voice2vital/voice2vital/internal/note"
	"github.com/voice2vital/voice2vital/pkg/provider/llm"
)

const defaultTemperature = 0.1

// ProviderError reports that the LLM call itself failed — network, auth, or
// quota. The extraction may succeed if retried by the caller.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("extract: llm provider: %v", e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ParseError reports that the provider responded but no valid clinical-note
// structure could be recovered from the response text, even after fence
// stripping and brace extraction.
type ParseError struct {
	// Content is a truncated copy of the unparseable response, for logging.
	Content string

	// Err is the final decode error from the last fallback step.
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("extract: unparseable llm response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// instructions is the fixed scribe briefing. The dialogue (and, for providers
// without native structured output, the schema) is appended at call time.
const instructions = `You are a medical scribe. Extract structured data from the consultation transcript and return valid JSON strictly following the ClinicalNote schema.

Instructions:
1. Patient Information: Always include the patient's sex in patient_info.
   - If stated, record exactly as given.
   - If not stated, infer logically if possible (e.g., from pronouns or names). Otherwise, set to "Not stated".
2. Plan Section: The plan field must contain clear, actionable medical suggestions, not generic text.
   - Include medications with names and dosages (if mentioned).
   - Record diagnostic tests, referrals, or imaging orders.
   - Add lifestyle or home-care recommendations if stated.
   - Always include follow-up instructions if given.
3. Accuracy:
   - Preserve all clinical details exactly as stated in the transcript.
   - Do not paraphrase or omit diagnoses, medications, or plans.
4. Completeness:
   - Every field in the schema must be present, even if it requires inference from other fields (e.g., calculate age from date of birth and visit date).
   - Use "Not stated" for missing string fields and [] for missing list fields.
5. Vital signs: output the exact units given in the transcript.
6. ICD-10 codes: include them if explicitly stated or clearly identifiable from the diagnosis.
7. Output: return only valid JSON that conforms to the schema. Do not include explanations, notes, or extra text outside the JSON.`

// maxErrContent bounds how much of an unparseable response is kept on the
// error for logging.
const maxErrContent = 512

// Option is a functional option for configuring an [Extractor].
type Option func(*Extractor)

// WithTemperature sets the LLM sampling temperature. Lower values produce
// more faithful extraction. Default: 0.1.
func WithTemperature(temp float64) Option {
	return func(e *Extractor) {
		e.temperature = temp
	}
}

// WithMaxTokens caps the completion length. Zero uses the provider default.
func WithMaxTokens(n int) Option {
	return func(e *Extractor) {
		e.maxTokens = n
	}
}

// Extractor extracts clinical notes from dialogue text via an
// [llm.Provider]. It is safe for concurrent use.
//
// Model selection follows the one-provider-per-model pattern: to extract with
// a specific model, construct the [llm.Provider] with that model configured.
type Extractor struct {
	llm         llm.Provider
	temperature float64
	maxTokens   int
}

// New returns a new [Extractor] backed by the given [llm.Provider].
func New(provider llm.Provider, opts ...Option) *Extractor {
	e := &Extractor{
		llm:         provider,
		temperature: defaultTemperature,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract sends the dialogue to the LLM and returns the parsed, normalized
// clinical note.
//
// Provider failures surface as [*ProviderError]; responses from which no
// valid structure can be recovered surface as [*ParseError]. The returned
// note is always normalized: every string field populated (placeholder
// "Not stated" where absent) and every list non-nil.
func (e *Extractor) Extract(ctx context.Context, dialogue string) (*note.ClinicalNote, error) {
	schema, err := note.Schema()
	if err != nil {
		return nil, fmt.Errorf("extract: build schema: %w", err)
	}

	prompt, err := e.buildPrompt(dialogue)
	if err != nil {
		return nil, fmt.Errorf("extract: build prompt: %w", err)
	}

	req := llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "user", Content: prompt},
		},
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
		ResponseSchema: &llm.ResponseSchema{
			Name:   note.SchemaName,
			Schema: schema,
			Strict: true,
		},
	}

	resp, err := e.llm.Complete(ctx, req)
	if err != nil {
		return nil, &ProviderError{Err: err}
	}

	n, err := parseNote(resp.Content)
	if err != nil {
		return nil, err
	}

	// The completeness contract is prompt-enforced only; coerce rather than
	// trust.
	n.Normalize()
	return n, nil
}

// buildPrompt assembles instructions, schema (for providers that cannot
// enforce it server-side), and the literal dialogue.
func (e *Extractor) buildPrompt(dialogue string) (string, error) {
	var b strings.Builder
	b.WriteString(instructions)

	if !e.llm.Capabilities().SupportsJSONSchema {
		schemaJSON, err := note.SchemaJSON()
		if err != nil {
			return "", err
		}
		b.WriteString("\n\nSchema:\n")
		b.WriteString(schemaJSON)
	}

	b.WriteString("\n\nTranscript:\n")
	b.WriteString(dialogue)
	return b.String(), nil
}
