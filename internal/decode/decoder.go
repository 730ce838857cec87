// File: internal/decode/decoder.go
// Package decode turns an unordered bag of captured wire frames into the
// single authoritative answer string. It is pure and synchronous: the same
// frame list always yields the same output, nothing here ever blocks, and a
// malformed payload at any stage contributes the empty string instead of an
// error.
package decode

import (
	"strings"

	"github.com/xkilldash9x/promptrelay/api/schemas"
	"github.com/xkilldash9x/promptrelay/internal/provider"
)

// Output is the assembled answer text, with markup (RawText) and without
// (Text).
type Output struct {
	RawText string
	Text    string
}

// Decode runs every frame through its per-kind extractor in arrival order
// and concatenates the fragments.
func Decode(frames []schemas.CapturedFrame) Output {
	var sb strings.Builder
	for _, f := range frames {
		switch f.Kind {
		case schemas.FrameFetchBody:
			sb.WriteString(extractFetchBody(f))
		case schemas.FrameWebSocket, schemas.FrameEventSource:
			// These channels usually carry presence/control signalling, but
			// the shape probes run unconditionally rather than assuming so.
			sb.WriteString(probeShapes(f.Payload, streamShapes))
		}
	}
	raw := sb.String()
	return Output{RawText: raw, Text: StripFormatting(raw)}
}

// extractFetchBody classifies a full response body. First match wins:
//
//  1. Anti-hijacking prefix: Gemini chunked-stream grammar.
//  2. "data: " substring: ChatGPT SSE grammar.
//  3. Gemini endpoint URL: Gemini grammar without the prefix check, for
//     format variants that drop the prefix.
//  4. Direct JSON parse against the known whole-document shapes.
func extractFetchBody(f schemas.CapturedFrame) string {
	switch {
	case strings.HasPrefix(f.Payload, antiHijackPrefix):
		return extractGeminiChunks(f.Payload)
	case strings.Contains(f.Payload, sseDataPrefix):
		return extractSSE(f.Payload)
	case provider.IsGeminiEndpoint(f.URL):
		return extractGeminiChunks(f.Payload)
	default:
		return probeShapes(f.Payload, fetchBodyShapes)
	}
}
