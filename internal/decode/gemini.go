// File: internal/decode/gemini.go
package decode

import (
	"strings"

	"github.com/tidwall/gjson"
)

// antiHijackPrefix is the fixed leading byte sequence Google prepends to
// JSON responses to defeat direct script-tag inclusion.
const antiHijackPrefix = ")]}'"

// Fixed structural locations inside the Gemini chunked-stream envelope.
// The outer line is a JSON array whose first element wraps a nested JSON
// string at index 2; inside that string, index 4 is the response-content
// array, whose first entry carries the answer text at index 1 (either as a
// one-element array or as a bare string, depending on format revision).
const (
	geminiEnvelopeIndex = "0.2"
	geminiTextPath      = "4.0.1"
)

// extractGeminiChunks decodes Gemini's chunked-stream body. Every chunk in
// this protocol carries the full accumulated answer rather than a delta, so
// the longest valid extraction across all chunks wins regardless of the
// order the chunks arrived in. A line that fails to parse at any stage is
// skipped without aborting the scan of later lines.
func extractGeminiChunks(body string) string {
	body = strings.TrimPrefix(body, antiHijackPrefix)

	longest := ""
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isDecimal(line) {
			// Byte-count framing lines separate the chunks.
			continue
		}
		if !gjson.Valid(line) {
			continue
		}
		outer := gjson.Parse(line)
		if !outer.IsArray() {
			continue
		}
		nested := outer.Get(geminiEnvelopeIndex)
		if nested.Type != gjson.String {
			continue
		}
		if text := extractGeminiNested(nested.String()); len(text) > len(longest) {
			longest = text
		}
	}
	return longest
}

// extractGeminiNested parses the nested JSON string of one chunk and pulls
// the answer text from its fixed structural path.
func extractGeminiNested(raw string) string {
	if !gjson.Valid(raw) {
		return ""
	}
	field := gjson.Parse(raw).Get(geminiTextPath)
	switch {
	case field.IsArray():
		arr := field.Array()
		if len(arr) > 0 && arr[0].Type == gjson.String {
			return arr[0].String()
		}
	case field.Type == gjson.String:
		return field.String()
	}
	return ""
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
