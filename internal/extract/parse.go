package extract

import (
	"encoding/json"
	"strings"

	"github.com/voice2vital/voice2vital/internal/note"
)

// parseNote recovers a [note.ClinicalNote] from raw LLM output. Steps, in
// order: decode the text as-is, strip a markdown code fence, extract the
// outermost brace-delimited object. The first step that yields valid JSON
// wins; if none does, the error is a [*ParseError] carrying the final decode
// failure.
func parseNote(content string) (*note.ClinicalNote, error) {
	var lastErr error
	for _, candidate := range []string{
		content,
		stripFences(content),
		extractObject(content),
	} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		var n note.ClinicalNote
		if err := json.Unmarshal([]byte(candidate), &n); err != nil {
			lastErr = err
			continue
		}
		return &n, nil
	}
	return nil, &ParseError{Content: truncate(content, maxErrContent), Err: lastErr}
}

// stripFences removes a surrounding markdown code fence (``` or ```json) if
// present. Returns the input unchanged otherwise.
func stripFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	// Drop a language tag like "json" on the opening fence line.
	if i := strings.IndexByte(trimmed, '\n'); i >= 0 {
		first := strings.TrimSpace(trimmed[:i])
		if first != "" && !strings.ContainsAny(first, "{}") {
			trimmed = trimmed[i+1:]
		}
	}
	trimmed = strings.TrimSpace(trimmed)
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

// extractObject returns the substring from the first '{' to the last '}',
// or "" when no such pair exists. Good enough for prose-wrapped JSON; nested
// objects are handled because the outermost braces bound them.
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
