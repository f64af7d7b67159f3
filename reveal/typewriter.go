package reveal

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"
	"time"

	"k8s.io/utils/clock"
)

var ErrAlreadyStarted = errors.New("typewriter already started")

// Prefixes yields the growing rune prefixes of s, ending with s itself.
func Prefixes(s string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for i := range s {
			if i == 0 {
				continue
			}
			if !yield(s[:i]) {
				return
			}
		}
		if s != "" {
			yield(s)
		}
	}
}

// Typewriter reveals a text one character per interval.
type Typewriter struct {
	clock      clock.Clock
	text       string
	interval   time.Duration
	onComplete func()
	started    atomic.Bool
}

func NewTypewriter(clk clock.Clock, text string, interval time.Duration, onComplete func()) *Typewriter {
	return &Typewriter{
		clock:      clk,
		text:       text,
		interval:   interval,
		onComplete: onComplete,
	}
}

func (t *Typewriter) Text() string {
	return t.text
}

// Start emits one prefix per interval on the returned channel, which is closed
// when the text is complete or ctx is done. onComplete runs once, after the
// full text was received, and never when ctx ends the reveal early.
func (t *Typewriter) Start(ctx context.Context) (<-chan string, error) {
	if t.interval <= 0 {
		return nil, fmt.Errorf("typewriter interval must be positive, got %s", t.interval)
	}
	if !t.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyStarted
	}

	out := make(chan string)
	go func() {
		defer close(out)

		for prefix := range Prefixes(t.text) {
			timer := t.clock.NewTimer(t.interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C():
			}

			select {
			case out <- prefix:
			case <-ctx.Done():
				return
			}
		}

		if t.onComplete != nil {
			t.onComplete()
		}
	}()
	return out, nil
}
