// Package reveal drives the timed presentation states of a page: the staged
// reveal after a collection loads and the per-item entrance animations.
// Every timer goes through an injected clock.Clock so the cascades can be
// stepped deterministically in tests.
package reveal

import (
	"context"
	"time"

	"k8s.io/utils/clock"
)

// Step is one entry of a timed cascade. State is applied Delay after the
// previous step.
type Step[S any] struct {
	State S
	Delay time.Duration
}

// runCascade applies steps in order, each after its delay, until ctx is done or
// apply returns false.
func runCascade[S any](ctx context.Context, clk clock.Clock, steps []Step[S], apply func(S) bool) {
	for _, step := range steps {
		if step.Delay > 0 {
			timer := clk.NewTimer(step.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C():
			}
		} else if ctx.Err() != nil {
			return
		}

		if !apply(step.State) {
			return
		}
	}
}
