// Package transcript converts raw diarized transcripts into the flat dialogue
// form consumed by the clinical-note extractor.
//
// The transcription provider delivers a JSON document of per-speaker
// monologues, each a list of text fragments (words, punctuation) whose
// concatenation order is the only reconstruction rule. The normalizer turns
// that into an ordered list of
//
//	Person 1: Hello
//	Person 2: Hi there
//
// lines, one per monologue, joined by single newlines. Speakers stay ordinal —
// resolving "Person 1" to a real identity is deliberately out of scope.
//
// Normalization is a pure function of its input: no I/O, deterministic,
// restartable.
package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Element is a single text fragment within a monologue. The provider tags
// fragments with a type ("text", "punct", …) but only the value and its
// position matter for reconstruction.
type Element struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Monologue is one contiguous diarized segment attributed to a single
// speaker. Speaker indices are zero-based and stable within one transcript;
// they are ordinal labels, not identities.
type Monologue struct {
	Speaker  int       `json:"speaker"`
	Elements []Element `json:"elements"`
}

// RawTranscript is the provider's diarized transcript document.
type RawTranscript struct {
	Monologues []Monologue `json:"monologues"`
}

// MalformedTranscriptError reports a shape violation in the provider's
// transcript JSON: the document is not valid JSON, the top-level monologues
// field is absent, or it is not a sequence.
type MalformedTranscriptError struct {
	// Reason describes what was wrong with the document.
	Reason string

	// Err is the underlying decode error, if any.
	Err error
}

func (e *MalformedTranscriptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcript: malformed transcript: %s: %v", e.Reason, e.Err)
	}
	return "transcript: malformed transcript: " + e.Reason
}

func (e *MalformedTranscriptError) Unwrap() error { return e.Err }

// Parse decodes and shape-checks a raw transcript document. The monologues
// field must be present and must be a sequence; anything else is a
// [MalformedTranscriptError]. Monologues with zero elements are preserved —
// dropping them would silently reorder the conversation.
func Parse(raw json.RawMessage) (*RawTranscript, error) {
	// Decode with a pointer field so that an absent monologues key is
	// distinguishable from an empty list.
	var doc struct {
		Monologues *[]Monologue `json:"monologues"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &MalformedTranscriptError{Reason: "document does not match the monologue shape", Err: err}
	}
	if doc.Monologues == nil {
		return nil, &MalformedTranscriptError{Reason: "top-level monologues field is absent or null"}
	}
	return &RawTranscript{Monologues: *doc.Monologues}, nil
}

// Dialogue renders the transcript as newline-joined "Person N: text" lines in
// source (chronological) order. Element values are concatenated without
// inserted separators, then trimmed of leading and trailing whitespace.
// Every monologue produces exactly one line, even when empty.
func (t *RawTranscript) Dialogue() string {
	lines := make([]string, 0, len(t.Monologues))
	for _, mono := range t.Monologues {
		var sb strings.Builder
		for _, el := range mono.Elements {
			sb.WriteString(el.Value)
		}
		// Speaker 0 is shown as Person 1.
		lines = append(lines, fmt.Sprintf("Person %d: %s", mono.Speaker+1, strings.TrimSpace(sb.String())))
	}
	return strings.Join(lines, "\n")
}

// Dialogue parses raw and renders it in one step. It is the form the
// orchestrator uses between transcript fetch and extraction.
func Dialogue(raw json.RawMessage) (string, error) {
	t, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return t.Dialogue(), nil
}
