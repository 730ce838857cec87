// File: internal/relay/cdp_executor.go
package relay

import (
	"context"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/promptrelay/internal/capture"
)

// cdpExecutor adapts a chromedp page context to the capture controller's
// body-retrieval seam. Background actions run against the long-lived page
// context so they survive the operation that spawned them, while the
// caller's context still bounds how long we are willing to wait.
type cdpExecutor struct {
	pageCtx context.Context
}

var _ capture.BodyFetcher = (*cdpExecutor)(nil)

// FetchResponseBody retrieves one response body over CDP. The protocol
// returns base64 for binary bodies; GetResponseBody decodes it before
// handing the bytes back.
func (e *cdpExecutor) FetchResponseBody(ctx context.Context, id network.RequestID) ([]byte, error) {
	var body []byte
	err := e.runBackgroundActions(ctx, chromedp.ActionFunc(func(actionCtx context.Context) error {
		var actionErr error
		body, actionErr = network.GetResponseBody(id).Do(actionCtx)
		return actionErr
	}))
	return body, err
}

func (e *cdpExecutor) runBackgroundActions(ctx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(e.pageCtx, actions...)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
