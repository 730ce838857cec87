// File: internal/detect/detector_test.go
package detect

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestDetector(mutations <-chan MutationBatch, pred Predicate, opts Options) *Detector {
	return New(zap.NewNop(), mutations, pred, opts)
}

func TestDetector_ResolvesAfterSilence(t *testing.T) {
	mutations := make(chan MutationBatch, 8)
	d := newTestDetector(mutations, nil, Options{Silence: 50 * time.Millisecond, Deadline: 5 * time.Second})

	// A few mutations, then quiet.
	go func() {
		for i := 0; i < 3; i++ {
			mutations <- MutationBatch{Records: 1}
			time.Sleep(10 * time.Millisecond)
		}
	}()

	outcome := d.Wait(context.Background())
	assert.True(t, outcome.Completed)
	assert.False(t, outcome.TimedOut)
	assert.GreaterOrEqual(t, outcome.Elapsed, 50*time.Millisecond)
}

func TestDetector_MutationsDebounceTheSilenceTimer(t *testing.T) {
	mutations := make(chan MutationBatch, 8)
	d := newTestDetector(mutations, nil, Options{Silence: 80 * time.Millisecond, Deadline: 5 * time.Second})

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; i < 10; i++ {
			<-ticker.C
			mutations <- MutationBatch{Records: 1}
		}
		close(stop)
	}()

	start := time.Now()
	outcome := d.Wait(context.Background())
	<-stop

	// Ten mutations 20ms apart keep resetting an 80ms timer, so resolution
	// cannot happen before the stream ends.
	assert.True(t, outcome.Completed)
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}

func TestDetector_DeadlineResolvesAsTimeout(t *testing.T) {
	mutations := make(chan MutationBatch)
	neverReady := func(ctx context.Context) (bool, error) { return false, nil }
	d := newTestDetector(mutations, neverReady, Options{Silence: 20 * time.Millisecond, Deadline: 150 * time.Millisecond})

	outcome := d.Wait(context.Background())
	assert.True(t, outcome.TimedOut)
	assert.False(t, outcome.Completed)
	assert.GreaterOrEqual(t, outcome.Elapsed, 150*time.Millisecond)
}

func TestDetector_FalsePredicateNeedsAnotherMutation(t *testing.T) {
	mutations := make(chan MutationBatch, 8)
	var calls atomic.Int32
	pred := func(ctx context.Context) (bool, error) {
		return calls.Add(1) >= 2, nil
	}
	d := newTestDetector(mutations, pred, Options{Silence: 40 * time.Millisecond, Deadline: 5 * time.Second})

	done := make(chan Outcome, 1)
	go func() { done <- d.Wait(context.Background()) }()

	// First silence window fires, predicate says not ready. Without a
	// further mutation the detector must stay unresolved.
	time.Sleep(120 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("detector resolved without a re-arming mutation")
	default:
	}
	assert.EqualValues(t, 1, calls.Load())

	// One more mutation re-arms the silence timer; the retry succeeds.
	mutations <- MutationBatch{Records: 1}
	outcome := <-done
	assert.True(t, outcome.Completed)
	assert.EqualValues(t, 2, calls.Load())
}

func TestDetector_PredicateErrorFailsOpen(t *testing.T) {
	mutations := make(chan MutationBatch)
	pred := func(ctx context.Context) (bool, error) {
		return false, errors.New("evaluation blew up")
	}
	d := newTestDetector(mutations, pred, Options{Silence: 30 * time.Millisecond, Deadline: 5 * time.Second})

	outcome := d.Wait(context.Background())
	assert.True(t, outcome.Completed)
}

func TestDetector_ContextCancellation(t *testing.T) {
	mutations := make(chan MutationBatch)
	neverReady := func(ctx context.Context) (bool, error) { return false, nil }
	d := newTestDetector(mutations, neverReady, Options{Silence: 10 * time.Millisecond, Deadline: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	outcome := d.Wait(ctx)
	assert.True(t, outcome.TimedOut)
}

func TestDetector_ClosedSourceStillResolves(t *testing.T) {
	mutations := make(chan MutationBatch)
	close(mutations)
	d := newTestDetector(mutations, nil, Options{Silence: 30 * time.Millisecond, Deadline: 5 * time.Second})

	outcome := d.Wait(context.Background())
	assert.True(t, outcome.Completed)
}

func TestDetector_DefaultsApplied(t *testing.T) {
	d := newTestDetector(nil, nil, Options{})
	assert.Equal(t, DefaultSilence, d.silence)
	assert.Equal(t, DefaultDeadline, d.deadline)
}
