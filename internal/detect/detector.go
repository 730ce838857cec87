// File: internal/detect/detector.go
// Package detect decides, from DOM activity alone, when a provider has
// actually finished generating an answer. It knows nothing about network
// frames; callers compose it with the capture controller.
package detect

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultSilence is the quiet period after the last observed mutation.
	DefaultSilence = 2 * time.Second
	// DefaultDeadline caps one detection session.
	DefaultDeadline = 5 * time.Minute
)

// MutationBatch is one delivery from a DOM mutation source: a batch of
// child-list, attribute, or character-data changes under the observed
// subtree.
type MutationBatch struct {
	Records int64
}

// Predicate is an optional readiness check evaluated after the DOM has gone
// quiet, e.g. "no generation-stop control is currently visible". An error is
// treated as ready (fail-open) rather than blocking completion forever.
type Predicate func(ctx context.Context) (bool, error)

// Options tune one detection session. Zero values fall back to the defaults.
type Options struct {
	Silence  time.Duration
	Deadline time.Duration
}

// Outcome is the terminal state of a detection session. Exactly one of
// Completed and TimedOut is set.
type Outcome struct {
	Completed bool
	TimedOut  bool
	Elapsed   time.Duration
}

// Detector is a single-use state machine over one mutation observation
// session: observing -> (silent -> resolved) | (deadline -> resolved-timeout).
type Detector struct {
	logger    *zap.Logger
	mutations <-chan MutationBatch
	predicate Predicate
	silence   time.Duration
	deadline  time.Duration
}

// New builds a detector over a mutation source. predicate may be nil, in
// which case DOM silence alone resolves the session.
func New(logger *zap.Logger, mutations <-chan MutationBatch, predicate Predicate, opts Options) *Detector {
	if opts.Silence <= 0 {
		opts.Silence = DefaultSilence
	}
	if opts.Deadline <= 0 {
		opts.Deadline = DefaultDeadline
	}
	return &Detector{
		logger:    logger.Named("detect"),
		mutations: mutations,
		predicate: predicate,
		silence:   opts.Silence,
		deadline:  opts.Deadline,
	}
}

// Wait blocks until the session resolves. Every mutation restarts the
// silence timer; when the timer fires with no intervening mutation, the
// predicate decides. A false predicate does not re-arm the timer: the
// session must observe at least one further mutation before it retries the
// check. A generation that stops mutating the DOM while the predicate is
// still false therefore only ends when the deadline fires. That is the
// intended conservative behaviour, not an oversight; an automatic retry loop
// would trade it for false-positive completions.
//
// Context cancellation resolves the session as timed out.
func (d *Detector) Wait(ctx context.Context) Outcome {
	start := time.Now()

	silence := time.NewTimer(d.silence)
	defer silence.Stop()
	deadline := time.NewTimer(d.deadline)
	defer deadline.Stop()

	// armed tracks whether the silence timer is currently running.
	armed := true
	mutations := d.mutations

	for {
		select {
		case <-ctx.Done():
			d.logger.Debug("Detection cancelled.", zap.Error(ctx.Err()))
			return Outcome{TimedOut: true, Elapsed: time.Since(start)}

		case <-deadline.C:
			d.logger.Warn("Completion detection hit its deadline.",
				zap.Duration("deadline", d.deadline))
			return Outcome{TimedOut: true, Elapsed: time.Since(start)}

		case batch, ok := <-mutations:
			if !ok {
				// Source gone; keep waiting on the timers only.
				mutations = nil
				continue
			}
			d.logger.Debug("DOM mutated.", zap.Int64("records", batch.Records))
			if armed && !silence.Stop() {
				<-silence.C
			}
			silence.Reset(d.silence)
			armed = true

		case <-silence.C:
			armed = false
			if d.ready(ctx) {
				return Outcome{Completed: true, Elapsed: time.Since(start)}
			}
			// Not ready: stay in observing state without re-arming.
		}
	}
}

// ready evaluates the predicate. Absent or failing predicates count as ready.
func (d *Detector) ready(ctx context.Context) bool {
	if d.predicate == nil {
		return true
	}
	ok, err := d.predicate(ctx)
	if err != nil {
		d.logger.Debug("Readiness predicate failed; treating as ready.", zap.Error(err))
		return true
	}
	return ok
}
