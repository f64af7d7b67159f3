package reveal

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"k8s.io/utils/clock"
)

type Phase int

const (
	PhaseHidden Phase = iota
	PhaseContainer
	PhaseHeading
	PhaseDetails
)

func (p Phase) String() string {
	switch p {
	case PhaseHidden:
		return "hidden"
	case PhaseContainer:
		return "container"
	case PhaseHeading:
		return "heading"
	case PhaseDetails:
		return "details"
	default:
		return "unknown"
	}
}

const (
	DefaultThreshold      = 0.2
	DefaultTypingInterval = 60 * time.Millisecond
)

// DefaultEntrance follows the container phase, which is applied on entry.
var DefaultEntrance = []Step[Phase]{
	{State: PhaseHeading, Delay: 500 * time.Millisecond},
	{State: PhaseDetails, Delay: 300 * time.Millisecond},
}

// Intersection reports how much of an item is inside the viewport.
type Intersection struct {
	Ratio float64
}

// Observer streams intersection changes for one item. The returned func
// disposes the subscription.
type Observer interface {
	Observe(ctx context.Context) (<-chan Intersection, func())
}

// Entrance animates one rendered record the first time it scrolls into view.
// Once entered it never resets.
type Entrance struct {
	clock     clock.Clock
	threshold float64
	steps     []Step[Phase]
	onPhase   func(Phase)

	heading        string
	typingInterval time.Duration
	onHeading      func(string)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	phase   Phase
	entered bool
	closed  bool
	typed   string
}

type EntranceOption func(*Entrance)

func WithThreshold(threshold float64) EntranceOption {
	return func(e *Entrance) {
		e.threshold = threshold
	}
}

// WithEntrance replaces the phases that follow container.
func WithEntrance(steps ...Step[Phase]) EntranceOption {
	return func(e *Entrance) {
		e.steps = steps
	}
}

// OnPhaseChange runs with the entrance locked and must not call back into it.
func OnPhaseChange(fn func(Phase)) EntranceOption {
	return func(e *Entrance) {
		e.onPhase = fn
	}
}

// WithHeading types text out once the heading phase is reached. onText may be
// nil and receives every revealed prefix.
func WithHeading(text string, interval time.Duration, onText func(string)) EntranceOption {
	return func(e *Entrance) {
		e.heading = text
		e.typingInterval = interval
		e.onHeading = onText
	}
}

func NewEntrance(clk clock.Clock, opts ...EntranceOption) *Entrance {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Entrance{
		clock:          clk,
		threshold:      DefaultThreshold,
		steps:          DefaultEntrance,
		typingInterval: DefaultTypingInterval,
		ctx:            ctx,
		cancel:         cancel,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Entrance) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

func (e *Entrance) Entered() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.entered
}

// Heading returns the part of the heading revealed so far.
func (e *Entrance) Heading() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.typed
}

// Intersect triggers the entrance when ratio reaches the threshold. It reports
// whether this call was the trigger; later calls are ignored.
func (e *Entrance) Intersect(ratio float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.entered || ratio < e.threshold {
		return false
	}
	e.entered = true
	e.setLocked(PhaseContainer)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		runCascade(e.ctx, e.clock, e.steps, func(phase Phase) bool {
			e.mu.Lock()
			defer e.mu.Unlock()
			if e.closed {
				return false
			}
			e.setLocked(phase)
			if phase == PhaseHeading && e.heading != "" {
				e.startTypingLocked()
			}
			return true
		})
	}()
	return true
}

// Watch feeds observer events into Intersect until the entrance triggers, ctx
// is done or the entrance is closed. The subscription is always disposed.
func (e *Entrance) Watch(ctx context.Context, observer Observer) bool {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, dispose := observer.Observe(ctx)
	defer dispose()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-e.ctx.Done():
			return false
		case event, ok := <-events:
			if !ok {
				return false
			}
			if e.Intersect(event.Ratio) {
				return true
			}
			if e.Entered() {
				return false
			}
		}
	}
}

// Close stops every pending timer and the heading reveal.
func (e *Entrance) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.cancel()
	e.mu.Unlock()

	e.wg.Wait()
}

func (e *Entrance) startTypingLocked() {
	typewriter := NewTypewriter(e.clock, e.heading, e.typingInterval, nil)
	prefixes, err := typewriter.Start(e.ctx)
	if err != nil {
		log.Warn().Err(err).Str("heading", e.heading).Msg("heading reveal skipped")
		e.typed = e.heading
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for prefix := range prefixes {
			e.mu.Lock()
			if !e.closed {
				e.typed = prefix
			}
			e.mu.Unlock()

			if e.onHeading != nil {
				e.onHeading(prefix)
			}
		}
	}()
}

func (e *Entrance) setLocked(phase Phase) {
	e.phase = phase
	if e.onPhase != nil {
		e.onPhase(phase)
	}
}
