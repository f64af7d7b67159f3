package reveal

import (
	"context"
	"sync"
	"time"

	"k8s.io/utils/clock"
)

type Stage int

const (
	StageIdle Stage = iota
	StageLoading
	StageContentReady
	StageTextRevealed
	StageInteractiveReady
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageLoading:
		return "loading"
	case StageContentReady:
		return "content-ready"
	case StageTextRevealed:
		return "text-revealed"
	case StageInteractiveReady:
		return "interactive-ready"
	default:
		return "unknown"
	}
}

// DefaultSequence is what follows content-ready on every listing page.
var DefaultSequence = []Step[Stage]{
	{State: StageTextRevealed, Delay: 200 * time.Millisecond},
	{State: StageInteractiveReady, Delay: 800 * time.Millisecond},
}

// Sequencer walks a page through idle, loading, content-ready and the timed
// stages after it. It is safe for concurrent use.
type Sequencer struct {
	clock    clock.Clock
	steps    []Step[Stage]
	onChange func(Stage)

	mu         sync.Mutex
	stage      Stage
	generation uint64
	cancel     context.CancelFunc
	closed     bool
	wg         sync.WaitGroup
}

type SequencerOption func(*Sequencer)

// WithSequence replaces the stages that follow content-ready.
func WithSequence(steps ...Step[Stage]) SequencerOption {
	return func(s *Sequencer) {
		s.steps = steps
	}
}

// OnStageChange registers fn for every transition. It runs with the sequencer
// locked and must not call back into it.
func OnStageChange(fn func(Stage)) SequencerOption {
	return func(s *Sequencer) {
		s.onChange = fn
	}
}

func NewSequencer(clk clock.Clock, opts ...SequencerOption) *Sequencer {
	s := &Sequencer{
		clock: clk,
		steps: DefaultSequence,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sequencer) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

func (s *Sequencer) Interactive() bool {
	return s.Stage() == StageInteractiveReady
}

// Begin enters loading. Calling it again from any later stage resets to idle
// first and drops every pending timer.
func (s *Sequencer) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.stopLocked()
	if s.stage != StageIdle {
		s.setLocked(StageIdle)
	}
	s.setLocked(StageLoading)
}

// Resolve moves loading to content-ready and starts the timed stages. It
// reports false and does nothing in any other stage.
func (s *Sequencer) Resolve() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.stage != StageLoading {
		return false
	}
	s.setLocked(StageContentReady)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	generation := s.generation

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		runCascade(ctx, s.clock, s.steps, func(stage Stage) bool {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.closed || s.generation != generation {
				return false
			}
			s.setLocked(stage)
			return true
		})
	}()
	return true
}

// Close cancels pending timers. No transition is applied after it returns.
func (s *Sequencer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopLocked()
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Sequencer) stopLocked() {
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Sequencer) setLocked(stage Stage) {
	s.stage = stage
	if s.onChange != nil {
		s.onChange(stage)
	}
}
