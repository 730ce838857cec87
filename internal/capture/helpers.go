// File: internal/capture/helpers.go
package capture

import (
	"encoding/base64"
	"strings"

	"github.com/chromedp/cdproto/network"
)

const wsOpcodeBinary = 2

// decodeWebSocketPayload returns the textual payload of a websocket frame.
// Binary frames arrive base64 encoded over the protocol; they are decoded so
// the stored frame always holds plain text.
func decodeWebSocketPayload(frame *network.WebSocketFrame) string {
	if frame.Opcode == wsOpcodeBinary {
		decoded, err := base64.StdEncoding.DecodeString(frame.PayloadData)
		if err != nil {
			// Not actually base64; keep the raw payload.
			return frame.PayloadData
		}
		return string(decoded)
	}
	return frame.PayloadData
}

// responseContentType extracts the content type from a response, preferring
// the browser's sniffed mime type and falling back to the raw header.
func responseContentType(resp *network.Response) string {
	if resp.MimeType != "" {
		return resp.MimeType
	}
	return getHeader(resp.Headers, "Content-Type")
}

// getHeader performs a case insensitive header lookup.
func getHeader(headers network.Headers, key string) string {
	for h, v := range headers {
		if strings.EqualFold(h, key) {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}
