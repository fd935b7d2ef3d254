package extract_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/voice2vital/voice2vital/internal/extract"
	"github.com/voice2vital/voice2vital/internal/note"
	"github.com/voice2vital/voice2vital/pkg/provider/llm"
	"github.com/voice2vital/voice2vital/pkg/provider/llm/mock"
)

const dialogue = "Person 1: What brings you in today?\nPerson 2: I've had a pounding headache for three days."

func TestExtract_ReturnsNormalizedNote(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"assessment": "Tension headache", "plan": ["Ibuprofen 400 mg as needed"]}`,
		},
	}
	e := extract.New(p)

	n, err := e.Extract(context.Background(), dialogue)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if n.Assessment != "Tension headache" {
		t.Errorf("Assessment = %q", n.Assessment)
	}
	// Fields the model omitted must come back normalized, not empty.
	if n.PatientInfo.Name != note.NotStated {
		t.Errorf("PatientInfo.Name = %q, want %q", n.PatientInfo.Name, note.NotStated)
	}
	if n.Allergies == nil {
		t.Error("Allergies is nil after extraction")
	}
}

func TestExtract_PromptCarriesDialogueAndRules(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `{}`},
	}
	e := extract.New(p, extract.WithTemperature(0.3), extract.WithMaxTokens(2048))

	if _, err := e.Extract(context.Background(), dialogue); err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(p.CompleteCalls) != 1 {
		t.Fatalf("Complete called %d times, want 1", len(p.CompleteCalls))
	}

	req := p.CompleteCalls[0].Req
	if req.Temperature != 0.3 {
		t.Errorf("Temperature = %v, want 0.3", req.Temperature)
	}
	if req.MaxTokens != 2048 {
		t.Errorf("MaxTokens = %d, want 2048", req.MaxTokens)
	}
	if req.ResponseSchema == nil {
		t.Fatal("ResponseSchema was not set")
	}
	if req.ResponseSchema.Name != note.SchemaName {
		t.Errorf("ResponseSchema.Name = %q, want %q", req.ResponseSchema.Name, note.SchemaName)
	}
	if len(req.Messages) != 1 {
		t.Fatalf("Messages length = %d, want 1", len(req.Messages))
	}

	prompt := req.Messages[0].Content
	for _, want := range []string{
		dialogue,
		"medical scribe",
		note.NotStated,
		"Preserve all clinical details exactly as stated",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt is missing %q", want)
		}
	}
}

func TestExtract_EmbedsSchemaWhenProviderCannotEnforceIt(t *testing.T) {
	t.Parallel()

	withSchema := &mock.Provider{
		CompleteResponse:  &llm.CompletionResponse{Content: `{}`},
		ModelCapabilities: llm.ModelCapabilities{SupportsJSONSchema: true},
	}
	withoutSchema := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `{}`},
	}

	for _, p := range []*mock.Provider{withSchema, withoutSchema} {
		if _, err := extract.New(p).Extract(context.Background(), dialogue); err != nil {
			t.Fatalf("Extract returned error: %v", err)
		}
	}

	const marker = `"patient_info"` // only appears in the reflected schema
	if prompt := withSchema.CompleteCalls[0].Req.Messages[0].Content; strings.Contains(prompt, marker) {
		t.Error("schema embedded in prompt despite native structured-output support")
	}
	if prompt := withoutSchema.CompleteCalls[0].Req.Messages[0].Content; !strings.Contains(prompt, marker) {
		t.Error("schema missing from prompt for provider without structured-output support")
	}
}

func TestExtract_RecoversFencedResponse(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: "```json\n{\"assessment\": \"Viral pharyngitis\"}\n```",
		},
	}

	n, err := extract.New(p).Extract(context.Background(), dialogue)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if n.Assessment != "Viral pharyngitis" {
		t.Errorf("Assessment = %q", n.Assessment)
	}
}

func TestExtract_ProviderError(t *testing.T) {
	t.Parallel()

	cause := errors.New("429 rate limited")
	p := &mock.Provider{CompleteErr: cause}

	_, err := extract.New(p).Extract(context.Background(), dialogue)
	var perr *extract.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("error chain does not include the provider cause: %v", err)
	}
}

func TestExtract_ParseError(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: "I'm sorry, I can't produce a note for this recording.",
		},
	}

	_, err := extract.New(p).Extract(context.Background(), dialogue)
	var perr *extract.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if perr.Content == "" {
		t.Error("ParseError.Content is empty; expected the offending response text")
	}
}
