// File: internal/decode/shapes.go
package decode

import (
	"strings"

	"github.com/tidwall/gjson"
)

// shapeProbe is one entry in an ordered dispatch over the undocumented JSON
// shapes the providers emit. Each probe either recognises the document and
// extracts its text, or declines. Probes are tried in order; the first match
// wins. Keeping them as independent pairs (instead of nested field probing)
// keeps each one unit-testable on its own.
type shapeProbe struct {
	name    string
	extract func(doc gjson.Result) (string, bool)
}

// messagePartsShape matches the legacy ChatGPT message snapshot: an object
// exposing the string parts of the assistant message built so far.
var messagePartsShape = shapeProbe{
	name: "message-parts",
	extract: func(doc gjson.Result) (string, bool) {
		parts := doc.Get("message.content.parts")
		if !parts.Exists() {
			parts = doc.Get("parts")
		}
		if !parts.IsArray() {
			return "", false
		}
		var sb strings.Builder
		found := false
		for _, p := range parts.Array() {
			if p.Type == gjson.String {
				sb.WriteString(p.String())
				found = true
			}
		}
		if !found {
			return "", false
		}
		return sb.String(), true
	},
}

// tokenShape matches a genuinely incremental single-token message.
var tokenShape = shapeProbe{
	name: "token",
	extract: func(doc gjson.Result) (string, bool) {
		tok := doc.Get("token")
		if tok.Type != gjson.String {
			return "", false
		}
		return tok.String(), true
	},
}

// candidatesShape matches the Gemini-style candidate list: each candidate
// generation carries a list of {text} parts.
var candidatesShape = shapeProbe{
	name: "candidates",
	extract: func(doc gjson.Result) (string, bool) {
		cands := doc.Get("candidates")
		if !cands.IsArray() || len(cands.Array()) == 0 {
			return "", false
		}
		var sb strings.Builder
		found := false
		for _, part := range cands.Array()[0].Get("content.parts").Array() {
			if t := part.Get("text"); t.Type == gjson.String {
				sb.WriteString(t.String())
				found = true
			}
		}
		if !found {
			return "", false
		}
		return sb.String(), true
	},
}

// fetchBodyShapes is the terminal step of the fetch-body cascade: a plain
// JSON body is checked against the two known whole-document shapes.
var fetchBodyShapes = []shapeProbe{messagePartsShape, candidatesShape}

// streamShapes covers the websocket and eventsource channels. Those channels
// empirically carry mostly control and presence signalling, but the probes
// are applied unconditionally rather than assuming that.
var streamShapes = []shapeProbe{messagePartsShape, tokenShape, candidatesShape}

// probeShapes parses payload once and runs it through the given probes.
// Parse failure or no matching shape contributes nothing.
func probeShapes(payload string, probes []shapeProbe) string {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" || !gjson.Valid(trimmed) {
		return ""
	}
	doc := gjson.Parse(trimmed)
	if !doc.IsObject() {
		return ""
	}
	for _, probe := range probes {
		if text, ok := probe.extract(doc); ok {
			return text
		}
	}
	return ""
}
