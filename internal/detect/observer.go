// File: internal/detect/observer.go
package detect

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// mutationBinding is the page-side function name the injected observer
// script reports through.
const mutationBinding = "__promptrelayMutation"

// observerScript installs a MutationObserver on the first element matching
// the selector and forwards the size of each mutation batch through the
// binding. Child-list, attribute, and character-data changes are all
// observed, across the whole subtree.
const observerScript = `(() => {
	const target = document.querySelector(%q) || document.body;
	const observer = new MutationObserver((records) => {
		window.%s(String(records.length));
	});
	observer.observe(target, {
		childList: true,
		subtree: true,
		attributes: true,
		characterData: true,
	});
	return true;
})()`

// ObserveDOM injects a mutation observer for selector into the page behind
// ctx (a chromedp target context) and returns the resulting batch channel.
// The channel is buffered and lossy under pressure: dropping a batch only
// means one fewer debounce restart, which is harmless since any drop implies
// more batches are arriving anyway. Observation ends when ctx is cancelled.
func ObserveDOM(ctx context.Context, selector string) (<-chan MutationBatch, error) {
	ch := make(chan MutationBatch, 64)

	if err := chromedp.Run(ctx, runtime.AddBinding(mutationBinding)); err != nil {
		return nil, fmt.Errorf("failed to add mutation binding: %w", err)
	}

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		call, ok := ev.(*runtime.EventBindingCalled)
		if !ok || call.Name != mutationBinding {
			return
		}
		records, _ := strconv.ParseInt(strings.TrimSpace(call.Payload), 10, 64)
		select {
		case ch <- MutationBatch{Records: records}:
		default:
		}
	})

	script := fmt.Sprintf(observerScript, selector, mutationBinding)
	var installed bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &installed)); err != nil {
		return nil, fmt.Errorf("failed to install mutation observer: %w", err)
	}
	return ch, nil
}

// EvalPredicate builds a readiness Predicate from a JS boolean expression
// evaluated against the page. Evaluation errors surface to the detector,
// which fails open.
func EvalPredicate(pageCtx context.Context, expr string) Predicate {
	return func(ctx context.Context) (bool, error) {
		var ready bool
		done := make(chan error, 1)
		go func() {
			done <- chromedp.Run(pageCtx, chromedp.Evaluate(expr, &ready))
		}()
		select {
		case err := <-done:
			return ready, err
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}
