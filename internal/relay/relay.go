// File: internal/relay/relay.go
// Package relay composes a browser tab, the network capture controller, and
// the completion detector into a single ask/answer flow against one
// provider. It is deliberately thin plumbing: the algorithmic weight lives
// in capture, decode, and detect.
package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/promptrelay/api/schemas"
	"github.com/xkilldash9x/promptrelay/internal/capture"
	"github.com/xkilldash9x/promptrelay/internal/config"
	"github.com/xkilldash9x/promptrelay/internal/detect"
	"github.com/xkilldash9x/promptrelay/internal/provider"
)

// Relay owns one provider tab. Multiple relays are fully independent and may
// run concurrently; there is no cross-session state.
type Relay struct {
	id      string
	logger  *zap.Logger
	cfg     *config.Config
	profile provider.Profile

	allocCancel context.CancelFunc
	pageCancel  context.CancelFunc
	pageCtx     context.Context

	controller *capture.Controller
}

// New launches (or attaches to) a browser, opens the provider's front end,
// and wires a capture controller to the tab.
func New(ctx context.Context, cfg *config.Config, profile provider.Profile, logger *zap.Logger) (*Relay, error) {
	relayID := uuid.New().String()
	log := logger.Named("relay").With(
		zap.String("relay_id", relayID),
		zap.String("provider", string(profile.ID)),
	)

	opts := allocatorOptions(cfg.Browser)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	pageCtx, pageCancel := chromedp.NewContext(allocCtx)

	r := &Relay{
		id:          relayID,
		logger:      log,
		cfg:         cfg,
		profile:     profile,
		allocCancel: allocCancel,
		pageCancel:  pageCancel,
		pageCtx:     pageCtx,
	}
	r.controller = capture.NewController(log, &cdpExecutor{pageCtx: pageCtx})

	navTimeout := cfg.Browser.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 90 * time.Second
	}
	navCtx, cancel := context.WithTimeout(pageCtx, navTimeout)
	defer cancel()

	if err := chromedp.Run(navCtx,
		chromedp.Navigate(profile.URL),
		chromedp.WaitVisible(profile.PromptSelector, chromedp.ByQuery),
	); err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to open %s front end: %w", profile.ID, err)
	}

	log.Info("Provider front end ready.", zap.String("url", profile.URL))
	return r, nil
}

// Ask submits a prompt and blocks until the answer is reconstructed:
// capture starts before the prompt is sent, the completion detector watches
// the response subtree, and once it reports done the controller drains its
// pending body fetches before the frames are decoded.
func (r *Relay) Ask(ctx context.Context, prompt string) (schemas.CaptureResult, error) {
	mutations, err := detect.ObserveDOM(r.pageCtx, r.profile.ResponseSelector)
	if err != nil {
		return schemas.CaptureResult{}, err
	}

	r.controller.Start(r.pageCtx)

	if err := r.submit(ctx, prompt); err != nil {
		// Abandoned interaction: fast-path stop, no completeness needed.
		r.controller.Stop()
		return schemas.CaptureResult{}, err
	}

	detector := detect.New(r.logger, mutations,
		detect.EvalPredicate(r.pageCtx, r.profile.ReadyExpr),
		detect.Options{
			Silence:  r.cfg.Detector.Silence,
			Deadline: r.cfg.Detector.Deadline,
		})
	outcome := detector.Wait(ctx)

	r.controller.StopAndWait(ctx, r.cfg.Capture.DrainTimeout)
	result := r.controller.Result()

	r.logger.Info("Answer reconstructed.",
		zap.Bool("completed", outcome.Completed),
		zap.Bool("timed_out", outcome.TimedOut),
		zap.Duration("elapsed", outcome.Elapsed),
		zap.Int("frames", len(result.Frames)),
		zap.Int("raw_bytes", result.RawByteSize),
	)
	return result, nil
}

// submit types the prompt into the provider's input box and sends it.
func (r *Relay) submit(ctx context.Context, prompt string) error {
	subCtx, cancel := context.WithTimeout(r.pageCtx, 30*time.Second)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-subCtx.Done():
		}
	}()

	err := chromedp.Run(subCtx,
		chromedp.Click(r.profile.PromptSelector, chromedp.ByQuery),
		chromedp.SendKeys(r.profile.PromptSelector, prompt, chromedp.ByQuery),
		chromedp.SendKeys(r.profile.PromptSelector, kb.Enter, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to submit prompt: %w", err)
	}
	return nil
}

// Close tears the tab and browser down.
func (r *Relay) Close() {
	if r.pageCancel != nil {
		r.pageCancel()
	}
	if r.allocCancel != nil {
		r.allocCancel()
	}
}

func allocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.DisableGPU {
		opts = append(opts, chromedp.DisableGPU)
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	return opts
}
