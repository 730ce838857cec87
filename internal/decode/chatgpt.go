// File: internal/decode/chatgpt.go
package decode

import (
	"strings"

	"github.com/tidwall/gjson"
)

const (
	sseDataPrefix      = "data: "
	sseDeltaEncoding   = "event: delta_encoding"
	sseDoneMarker      = "[DONE]"
	contentPartsPrefix = "/message/content/parts"
)

// extractSSE walks a ChatGPT server-sent-event body line by line.
//
// A body starts in legacy mode, where every data line carries the entire
// message built so far; later lines are supersets of earlier ones, so the
// longest parts-based text seen wins (concatenating would duplicate content).
// An "event: delta_encoding" line switches all subsequent lines to delta
// mode, where each data line describes an incremental change. The single
// incremental token shape is concatenated in either mode since it is
// genuinely incremental regardless.
func extractSSE(body string) string {
	var appended strings.Builder
	snapshot := ""
	delta := false

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == sseDeltaEncoding {
			delta = true
			continue
		}
		if !strings.HasPrefix(line, sseDataPrefix) {
			continue
		}
		data := strings.TrimSpace(line[len(sseDataPrefix):])
		if data == "" || data == sseDoneMarker {
			continue
		}
		// A bare JSON string is the stream version header ("v1"). Consumed,
		// produces no text.
		if strings.HasPrefix(data, `"`) {
			continue
		}
		if !gjson.Valid(data) {
			continue
		}
		doc := gjson.Parse(data)
		if !doc.IsObject() {
			continue
		}

		if delta {
			appended.WriteString(applyDelta(doc))
			continue
		}
		if text, ok := messagePartsShape.extract(doc); ok {
			if len(text) > len(snapshot) {
				snapshot = text
			}
			continue
		}
		if tok, ok := tokenShape.extract(doc); ok {
			appended.WriteString(tok)
		}
	}

	return snapshot + appended.String()
}

// applyDelta interprets one delta-mode data object. Patterns, in priority
// order:
//
//	(a) {"v": "..."} with no path or operation: shorthand append.
//	(b) {"p": ".../parts/N", "o": "append", "v": "..."}: targeted append.
//	(c) {"o": "patch", "v": [...]}: batch; rule (b) applied to each element.
//	(d) anything else, including explicitly typed non-delta messages,
//	    contributes nothing.
func applyDelta(doc gjson.Result) string {
	v := doc.Get("v")
	p := doc.Get("p")
	o := doc.Get("o")

	if v.Type == gjson.String && !p.Exists() && !o.Exists() {
		return v.String()
	}
	if o.String() == "append" && isContentPartsPath(p.String()) && v.Type == gjson.String {
		return v.String()
	}
	if o.String() == "patch" && v.IsArray() {
		var sb strings.Builder
		for _, el := range v.Array() {
			ev := el.Get("v")
			if el.Get("o").String() == "append" && isContentPartsPath(el.Get("p").String()) && ev.Type == gjson.String {
				sb.WriteString(ev.String())
			}
		}
		return sb.String()
	}
	return ""
}

func isContentPartsPath(path string) bool {
	return strings.Contains(path, contentPartsPrefix)
}
