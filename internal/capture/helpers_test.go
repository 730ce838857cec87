// File: internal/capture/helpers_test.go
package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"go.uber.org/zap"
)

// fakeFetcher is a BodyFetcher backed by a canned body map. Unknown request
// IDs fail the way the browser does for evicted resources.
type fakeFetcher struct {
	mu     sync.Mutex
	delay  time.Duration
	bodies map[network.RequestID]string
	errs   map[network.RequestID]error
	calls  []network.RequestID
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		bodies: make(map[network.RequestID]string),
		errs:   make(map[network.RequestID]error),
	}
}

func (f *fakeFetcher) FetchResponseBody(ctx context.Context, id network.RequestID) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	delay := f.delay
	body, hasBody := f.bodies[id]
	err := f.errs[id]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !hasBody {
		return nil, errors.New("No resource with given identifier was found")
	}
	return []byte(body), nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// newTestController wires a controller to the fake fetcher with event
// subscription stubbed out; tests feed events straight into dispatch.
func newTestController(fetcher *fakeFetcher) *Controller {
	c := NewController(zap.NewNop(), fetcher)
	c.listen = func(ctx context.Context, fn func(ev interface{})) {}
	return c
}

// -- Synthetic protocol events --

func requestEvent(id network.RequestID, url string, typ network.ResourceType) *network.EventRequestWillBeSent {
	return &network.EventRequestWillBeSent{
		RequestID: id,
		Request:   &network.Request{URL: url},
		Type:      typ,
	}
}

func responseEvent(id network.RequestID, url, mimeType string) *network.EventResponseReceived {
	return &network.EventResponseReceived{
		RequestID: id,
		Response:  &network.Response{URL: url, MimeType: mimeType},
	}
}

func wsFrameEvent(id network.RequestID, opcode int64, payload string) *network.EventWebSocketFrameReceived {
	return &network.EventWebSocketFrameReceived{
		RequestID: id,
		Response:  &network.WebSocketFrame{Opcode: float64(opcode), PayloadData: payload},
	}
}

func sseMessageEvent(id network.RequestID, data string) *network.EventEventSourceMessageReceived {
	return &network.EventEventSourceMessageReceived{
		RequestID: id,
		EventName: "message",
		Data:      data,
	}
}

func finishedEvent(id network.RequestID) *network.EventLoadingFinished {
	return &network.EventLoadingFinished{RequestID: id}
}
