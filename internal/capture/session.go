// File: internal/capture/session.go
package capture

import (
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/xkilldash9x/promptrelay/api/schemas"
)

// session is the mutable state of one capture run: the append-only frame
// buffer plus the per-request metadata that accumulates as protocol events
// arrive. A request's URL may be known before its resource type, or vice
// versa, so the three maps fill in independently.
//
// The session value is owned exclusively by its Controller and only ever
// touched under the controller's mutex. Nothing here is a process-wide
// singleton; every Controller carries its own session.
type session struct {
	active bool
	// gen distinguishes this run from earlier ones so that a body fetch
	// spawned by a previous run can never append into a restarted session.
	gen int

	frames []schemas.CapturedFrame

	requestURL          map[network.RequestID]string
	requestResourceType map[network.RequestID]network.ResourceType
	responseContentType map[network.RequestID]string
	pendingBodyFetches  map[network.RequestID]struct{}

	startedAt time.Time
}

func newSession(gen int) *session {
	return &session{
		active:              true,
		gen:                 gen,
		frames:              make([]schemas.CapturedFrame, 0, 16),
		requestURL:          make(map[network.RequestID]string),
		requestResourceType: make(map[network.RequestID]network.ResourceType),
		responseContentType: make(map[network.RequestID]string),
		pendingBodyFetches:  make(map[network.RequestID]struct{}),
		startedAt:           time.Now(),
	}
}

// append stores one frame. Frames are never reordered or mutated afterwards.
func (s *session) append(kind schemas.FrameKind, id network.RequestID, payload string) {
	s.frames = append(s.frames, schemas.CapturedFrame{
		Timestamp: time.Now(),
		Kind:      kind,
		RequestID: string(id),
		URL:       s.requestURL[id],
		Payload:   payload,
	})
}

// snapshotFrames returns a defensive copy of the frame list.
func (s *session) snapshotFrames() []schemas.CapturedFrame {
	out := make([]schemas.CapturedFrame, len(s.frames))
	copy(out, s.frames)
	return out
}
