package transcript_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/voice2vital/voice2vital/internal/transcript"
)

func TestDialogue_TwoSpeakers(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`{
		"monologues": [
			{"speaker": 0, "elements": [{"type": "text", "value": "Hello"}]},
			{"speaker": 1, "elements": [{"type": "text", "value": "Hi there"}]}
		]
	}`)

	got, err := transcript.Dialogue(raw)
	if err != nil {
		t.Fatalf("Dialogue returned error: %v", err)
	}
	want := "Person 1: Hello\nPerson 2: Hi there"
	if got != want {
		t.Errorf("Dialogue = %q, want %q", got, want)
	}
}

func TestDialogue_ConcatenatesAndTrims(t *testing.T) {
	t.Parallel()

	// Fragments concatenate without separators; only outer whitespace is trimmed.
	raw := json.RawMessage(`{
		"monologues": [
			{"speaker": 0, "elements": [
				{"type": "text", "value": "Hel"},
				{"type": "text", "value": "lo"},
				{"type": "text", "value": " there "}
			]}
		]
	}`)

	got, err := transcript.Dialogue(raw)
	if err != nil {
		t.Fatalf("Dialogue returned error: %v", err)
	}
	if got != "Person 1: Hello there" {
		t.Errorf("Dialogue = %q, want %q", got, "Person 1: Hello there")
	}
}

func TestDialogue_PreservesEmptyMonologues(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`{
		"monologues": [
			{"speaker": 0, "elements": [{"type": "text", "value": "Before"}]},
			{"speaker": 1, "elements": []},
			{"speaker": 0, "elements": [{"type": "text", "value": "After"}]}
		]
	}`)

	got, err := transcript.Dialogue(raw)
	if err != nil {
		t.Fatalf("Dialogue returned error: %v", err)
	}

	lines := strings.Split(got, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), got)
	}
	if lines[1] != "Person 2: " {
		t.Errorf("empty monologue line = %q, want %q", lines[1], "Person 2: ")
	}
}

func TestDialogue_LineCountAndLabels(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`{
		"monologues": [
			{"speaker": 3, "elements": [{"type": "text", "value": "a"}]},
			{"speaker": 0, "elements": [{"type": "text", "value": "b"}]},
			{"speaker": 3, "elements": [{"type": "text", "value": "c"}]}
		]
	}`)

	parsed, err := transcript.Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	lines := strings.Split(parsed.Dialogue(), "\n")
	if len(lines) != len(parsed.Monologues) {
		t.Fatalf("got %d lines for %d monologues", len(lines), len(parsed.Monologues))
	}
	wantPrefixes := []string{"Person 4: ", "Person 1: ", "Person 4: "}
	for i, line := range lines {
		if !strings.HasPrefix(line, wantPrefixes[i]) {
			t.Errorf("line %d = %q, want prefix %q", i, line, wantPrefixes[i])
		}
	}
}

func TestDialogue_Deterministic(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`{
		"monologues": [
			{"speaker": 0, "elements": [{"type": "text", "value": "Take"}, {"type": "punct", "value": " "}, {"type": "text", "value": "Timolol"}]},
			{"speaker": 1, "elements": [{"type": "text", "value": "Okay"}]}
		]
	}`)

	first, err := transcript.Dialogue(raw)
	if err != nil {
		t.Fatalf("Dialogue returned error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := transcript.Dialogue(raw)
		if err != nil {
			t.Fatalf("Dialogue returned error on run %d: %v", i, err)
		}
		if again != first {
			t.Fatalf("run %d produced %q, first run produced %q", i, again, first)
		}
	}
}

func TestParse_MalformedDocuments(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
	}{
		{"not JSON", `this is not json`},
		{"missing monologues", `{"speakers": []}`},
		{"null monologues", `{"monologues": null}`},
		{"monologues not a sequence", `{"monologues": {"speaker": 0}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := transcript.Parse(json.RawMessage(tc.raw))
			if err == nil {
				t.Fatal("Parse succeeded, want MalformedTranscriptError")
			}
			var malformed *transcript.MalformedTranscriptError
			if !errors.As(err, &malformed) {
				t.Errorf("error type = %T, want *MalformedTranscriptError", err)
			}
		})
	}
}

func TestParse_EmptySequenceIsValid(t *testing.T) {
	t.Parallel()

	parsed, err := transcript.Parse(json.RawMessage(`{"monologues": []}`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got := parsed.Dialogue(); got != "" {
		t.Errorf("Dialogue of empty transcript = %q, want empty string", got)
	}
}
