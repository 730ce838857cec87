// File: internal/capture/controller.go
// Package capture taps Chrome DevTools Protocol events to collect the raw
// wire frames of a provider's streaming answer without disturbing the page.
package capture

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/promptrelay/api/schemas"
	"github.com/xkilldash9x/promptrelay/internal/decode"
	"github.com/xkilldash9x/promptrelay/internal/provider"
)

const (
	// DefaultDrainTimeout bounds StopAndWait when the caller passes zero.
	DefaultDrainTimeout = 3 * time.Second
	// drainPollInterval is how often StopAndWait re-checks the pending set.
	drainPollInterval = 50 * time.Millisecond
	// bodyFetchTimeout bounds one background body retrieval.
	bodyFetchTimeout = 30 * time.Second
)

// Body fetch failures for resources that were redirected or cancelled are
// routine; the browser simply no longer holds a body for them. Matched by
// substring and dropped without logging.
var benignFetchErrors = []string{
	"No resource with given identifier",
	"No data found for resource",
}

// BodyFetcher is the transport's body-retrieval primitive: given the opaque
// per-exchange identifier, it returns the response body already decoded from
// any base64 transport encoding. The production implementation runs a
// detached CDP action against the page; tests substitute a fake.
type BodyFetcher interface {
	FetchResponseBody(ctx context.Context, id network.RequestID) ([]byte, error)
}

// listenFunc subscribes a handler to protocol events on a target context.
// Swappable for tests; production uses chromedp.ListenTarget.
type listenFunc func(ctx context.Context, fn func(ev interface{}))

// Controller subscribes to the protocol-level network events of a single
// page, buffers every frame that could carry answer text, and retrieves
// response bodies for the provider endpoints asynchronously. Its only
// externally observable side effect is the event subscription itself.
//
// A Controller never raises: the worst outcome of any failure is a shorter
// reconstructed answer.
type Controller struct {
	logger  *zap.Logger
	fetcher BodyFetcher
	listen  listenFunc

	mu      sync.Mutex
	sess    *session
	nextGen int
	detach  context.CancelFunc
	wg      sync.WaitGroup
}

// NewController builds a controller bound to one page's body fetcher.
func NewController(logger *zap.Logger, fetcher BodyFetcher) *Controller {
	return &Controller{
		logger:  logger.Named("capture"),
		fetcher: fetcher,
		listen:  chromedp.ListenTarget,
	}
}

// Start resets the session and attaches the protocol handlers. Calling it
// while a capture is already active is a no-op. ctx must be the page's
// target context; detaching is done by cancelling a child of it.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess != nil && c.sess.active {
		return
	}
	c.nextGen++
	c.sess = newSession(c.nextGen)

	listenCtx, cancel := context.WithCancel(ctx)
	c.detach = cancel
	c.listen(listenCtx, c.dispatch)
	c.logger.Debug("Capture started.", zap.Int("gen", c.nextGen))
}

// Stop immediately deactivates the session and detaches the handlers. Body
// fetches still in flight are discarded, frames and all, so an answer can be
// truncated if this is called too early. Callers that need completeness use
// StopAndWait.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deactivateLocked()
}

// StopAndWait deactivates the session so no new frames are queued, then
// polls the pending body-fetch set until it drains or timeout elapses, and
// finally detaches the handlers. The last meaningful body fetch is
// frequently still in flight at the exact moment the page looks finished,
// which is why this is the correct path after completion is detected. The
// wait is best effort and upper-bounded, not a zero-truncation guarantee.
func (c *Controller) StopAndWait(ctx context.Context, timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultDrainTimeout
	}

	c.mu.Lock()
	if c.sess == nil {
		c.mu.Unlock()
		return
	}
	c.sess.active = false
	c.mu.Unlock()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for {
		c.mu.Lock()
		pending := len(c.sess.pendingBodyFetches)
		c.mu.Unlock()
		if pending == 0 {
			break
		}
		if time.Now().After(deadline) {
			c.logger.Warn("Stopped capture with body fetches still pending; answer may be truncated.",
				zap.Int("pending", pending), zap.Duration("timeout", timeout))
			break
		}
		select {
		case <-ctx.Done():
			c.logger.Warn("Capture drain interrupted.", zap.Error(ctx.Err()))
			c.mu.Lock()
			c.deactivateLocked()
			c.mu.Unlock()
			return
		case <-ticker.C:
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.deactivateLocked()
}

// deactivateLocked ends the session outright: handlers come off and the
// generation is invalidated so any body fetch still in flight fails its
// check and its frame is discarded. StopAndWait only comes here after the
// drain, which is what lets drained fetches land first.
func (c *Controller) deactivateLocked() {
	if c.sess != nil {
		c.sess.active = false
		c.nextGen++
		c.sess.gen = c.nextGen
	}
	c.detachHandlersLocked()
}

func (c *Controller) detachHandlersLocked() {
	if c.detach != nil {
		c.detach()
		c.detach = nil
	}
}

// Result computes a fresh snapshot from the current frame list. It may be
// called at any time, active or not, and never caches across mutation.
func (c *Controller) Result() schemas.CaptureResult {
	c.mu.Lock()
	if c.sess == nil {
		c.mu.Unlock()
		return schemas.CaptureResult{Frames: []schemas.CapturedFrame{}}
	}
	frames := c.sess.snapshotFrames()
	startedAt := c.sess.startedAt
	c.mu.Unlock()

	out := decode.Decode(frames)
	size := 0
	for _, f := range frames {
		size += len(f.Payload)
	}
	return schemas.CaptureResult{
		Frames:      frames,
		RawText:     out.RawText,
		Text:        out.Text,
		RawByteSize: size,
		Elapsed:     time.Since(startedAt),
	}
}

// -- Event dispatch --

func (c *Controller) dispatch(ev interface{}) {
	switch ev := ev.(type) {
	case *network.EventRequestWillBeSent:
		c.onRequestWillBeSent(ev)
	case *network.EventWebSocketFrameReceived:
		c.onWebSocketFrame(ev)
	case *network.EventResponseReceived:
		c.onResponseReceived(ev)
	case *network.EventEventSourceMessageReceived:
		c.onServerEvent(ev)
	case *network.EventLoadingFinished:
		c.onLoadingFinished(ev)
	}
}

// activeSession returns the session if it is accepting events. Every handler
// goes through this, which makes callbacks delivered after Stop guaranteed
// no-ops.
func (c *Controller) activeSession() *session {
	if c.sess == nil || !c.sess.active {
		return nil
	}
	return c.sess
}

func (c *Controller) onRequestWillBeSent(ev *network.EventRequestWillBeSent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.activeSession()
	if s == nil {
		return
	}
	if _, ok := s.requestURL[ev.RequestID]; !ok {
		s.requestURL[ev.RequestID] = ev.Request.URL
	}
	if _, ok := s.requestResourceType[ev.RequestID]; !ok {
		s.requestResourceType[ev.RequestID] = ev.Type
	}
}

func (c *Controller) onWebSocketFrame(ev *network.EventWebSocketFrameReceived) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.activeSession()
	if s == nil || ev.Response == nil {
		return
	}
	payload := decodeWebSocketPayload(ev.Response)
	if payload == "" {
		return
	}
	s.append(schemas.FrameWebSocket, ev.RequestID, payload)
}

func (c *Controller) onResponseReceived(ev *network.EventResponseReceived) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.activeSession()
	if s == nil || ev.Response == nil {
		return
	}
	// Response headers are authoritative for the URL.
	s.requestURL[ev.RequestID] = ev.Response.URL
	s.responseContentType[ev.RequestID] = responseContentType(ev.Response)

	// Retag event streams so the loading-finished decision recognises them
	// even when the URL matches no known endpoint pattern.
	if provider.IsEventStream(s.responseContentType[ev.RequestID]) {
		s.requestResourceType[ev.RequestID] = network.ResourceTypeEventSource
	}
}

func (c *Controller) onServerEvent(ev *network.EventEventSourceMessageReceived) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.activeSession()
	if s == nil || ev.Data == "" {
		return
	}
	s.append(schemas.FrameEventSource, ev.RequestID, ev.Data)
}

func (c *Controller) onLoadingFinished(ev *network.EventLoadingFinished) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.activeSession()
	if s == nil {
		return
	}
	if !c.shouldFetchBody(s, ev.RequestID) {
		return
	}
	s.pendingBodyFetches[ev.RequestID] = struct{}{}
	c.fetchBody(s.gen, ev.RequestID)
}

// shouldFetchBody is the capture decision: the tracked URL matches a
// provider conversation endpoint, or the exchange is an event stream
// (declared type or retagged from content type).
func (c *Controller) shouldFetchBody(s *session, id network.RequestID) bool {
	if provider.MatchesEndpoint(s.requestURL[id]) {
		return true
	}
	if provider.IsEventStream(s.responseContentType[id]) {
		return true
	}
	return s.requestResourceType[id] == network.ResourceTypeEventSource
}

// -- Body fetching --

// fetchBody retrieves one response body in the background. The pending entry
// is always cleared, success or failure, so the set never leaks. The frame
// append deliberately does not require the session to still be active:
// StopAndWait exists precisely so that fetches in flight during the drain
// can land. The generation check covers the other two exits — a fast-path
// Stop invalidates the generation so in-flight frames are dropped, and a
// fetch from a previous run can never append into a restarted session.
func (c *Controller) fetchBody(gen int, id network.RequestID) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		fetchCtx, cancel := context.WithTimeout(context.Background(), bodyFetchTimeout)
		defer cancel()

		body, err := c.fetcher.FetchResponseBody(fetchCtx, id)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.sess == nil || c.sess.gen != gen {
			return
		}
		delete(c.sess.pendingBodyFetches, id)

		if err != nil {
			if !isBenignFetchError(err.Error()) {
				c.logger.Debug("Failed to fetch response body.",
					zap.String("request_id", string(id)), zap.Error(err))
			}
			return
		}
		if len(body) > 0 {
			c.sess.append(schemas.FrameFetchBody, id, string(body))
		}
	}()
}

func isBenignFetchError(msg string) bool {
	for _, sub := range benignFetchErrors {
		if strings.Contains(msg, sub) {
			return true
		}
	}
	return false
}
