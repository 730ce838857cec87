// File: api/schemas/frames.go
package schemas

import "time"

// FrameKind identifies the transport channel a captured payload arrived on.
type FrameKind string

const (
	FrameWebSocket   FrameKind = "websocket"
	FrameEventSource FrameKind = "eventsource"
	FrameFetchBody   FrameKind = "fetch-body"
	FrameOther       FrameKind = "other"
)

// CapturedFrame is one discrete unit of captured streaming payload. The
// Payload field is always plain text; any base64 or binary transport encoding
// has been decoded by the capture layer before the frame is stored.
//
// Frames are append-only: once stored they are never reordered or mutated.
// Arrival order is the only ordering guarantee and may not equal true network
// chronological order across the different event sources.
type CapturedFrame struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      FrameKind `json:"kind"`
	RequestID string    `json:"request_id"`
	// URL is best effort. Early frames can arrive before the request metadata
	// that names their source, in which case it is empty.
	URL     string `json:"url,omitempty"`
	Payload string `json:"payload"`
}

// CaptureResult is an immutable snapshot of a capture session, computed on
// demand. Text and RawText are pure functions of Frames: decoding the same
// frame list twice always yields identical output.
type CaptureResult struct {
	Frames []CapturedFrame `json:"frames"`
	// RawText keeps the provider's Markdown/LaTeX markup intact.
	RawText string `json:"raw_text"`
	// Text is RawText with formatting markers stripped.
	Text        string        `json:"text"`
	RawByteSize int           `json:"raw_byte_size"`
	Elapsed     time.Duration `json:"elapsed"`
}
