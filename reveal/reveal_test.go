package reveal

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

const (
	waitFor = time.Second
	tick    = time.Millisecond
)

func newFakeClock() *testingclock.FakeClock {
	return testingclock.NewFakeClock(time.Date(2025, 9, 1, 18, 0, 0, 0, time.UTC))
}

// step waits for a pending timer before advancing the clock.
func step(t *testing.T, clk *testingclock.FakeClock, d time.Duration) {
	t.Helper()
	require.Eventually(t, clk.HasWaiters, waitFor, tick)
	clk.Step(d)
}

type stageRecorder struct {
	mu     sync.Mutex
	stages []Stage
}

func (r *stageRecorder) record(s Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, s)
}

func (r *stageRecorder) seen() []Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.stages)
}

func TestSequencerRunsStagesInOrder(t *testing.T) {
	clk := newFakeClock()
	rec := &stageRecorder{}
	s := NewSequencer(clk, OnStageChange(rec.record))
	t.Cleanup(s.Close)

	assert.Equal(t, StageIdle, s.Stage())
	assert.False(t, s.Resolve(), "resolve before begin")

	s.Begin()
	assert.Equal(t, StageLoading, s.Stage())

	require.True(t, s.Resolve())
	assert.Equal(t, StageContentReady, s.Stage())
	assert.False(t, s.Resolve(), "second resolve")

	step(t, clk, 199*time.Millisecond)
	assert.Equal(t, StageContentReady, s.Stage())

	clk.Step(time.Millisecond)
	require.Eventually(t, func() bool { return s.Stage() == StageTextRevealed }, waitFor, tick)
	assert.False(t, s.Interactive())

	step(t, clk, 800*time.Millisecond)
	require.Eventually(t, s.Interactive, waitFor, tick)

	assert.Equal(t, []Stage{StageLoading, StageContentReady, StageTextRevealed, StageInteractiveReady}, rec.seen())
}

func TestSequencerBeginResetsPendingCascade(t *testing.T) {
	clk := newFakeClock()
	rec := &stageRecorder{}
	s := NewSequencer(clk, OnStageChange(rec.record))
	t.Cleanup(s.Close)

	s.Begin()
	require.True(t, s.Resolve())
	require.Eventually(t, clk.HasWaiters, waitFor, tick)

	s.Begin()
	assert.Equal(t, StageLoading, s.Stage())
	require.Eventually(t, func() bool { return !clk.HasWaiters() }, waitFor, tick)

	clk.Step(2 * time.Second)
	assert.Never(t, func() bool { return s.Stage() != StageLoading }, 50*time.Millisecond, 5*time.Millisecond)

	assert.Equal(t, []Stage{StageLoading, StageContentReady, StageIdle, StageLoading}, rec.seen())

	require.True(t, s.Resolve())
	step(t, clk, 200*time.Millisecond)
	require.Eventually(t, func() bool { return s.Stage() == StageTextRevealed }, waitFor, tick)
}

func TestSequencerCloseStopsTransitions(t *testing.T) {
	clk := newFakeClock()
	s := NewSequencer(clk)

	s.Begin()
	require.True(t, s.Resolve())
	require.Eventually(t, clk.HasWaiters, waitFor, tick)

	s.Close()
	clk.Step(5 * time.Second)
	assert.Equal(t, StageContentReady, s.Stage())

	s.Begin()
	assert.Equal(t, StageContentReady, s.Stage())
	assert.False(t, s.Resolve())
	s.Close()
}

func TestSequencerCustomSequence(t *testing.T) {
	clk := newFakeClock()
	s := NewSequencer(clk, WithSequence(
		Step[Stage]{State: StageTextRevealed},
		Step[Stage]{State: StageInteractiveReady, Delay: time.Second},
	))
	t.Cleanup(s.Close)

	s.Begin()
	require.True(t, s.Resolve())
	require.Eventually(t, func() bool { return s.Stage() == StageTextRevealed }, waitFor, tick)

	step(t, clk, time.Second)
	require.Eventually(t, s.Interactive, waitFor, tick)
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "interactive-ready", StageInteractiveReady.String())
	assert.Equal(t, "unknown", Stage(42).String())
	assert.Equal(t, "details", PhaseDetails.String())
}

func TestPrefixes(t *testing.T) {
	assert.Equal(t, []string{"M", "ML", "ML4", "ML4E"}, slices.Collect(Prefixes("ML4E")))
	assert.Equal(t, []string{"é", "éa"}, slices.Collect(Prefixes("éa")))
	assert.Empty(t, slices.Collect(Prefixes("")))

	var first []string
	for p := range Prefixes("club") {
		first = append(first, p)
		if len(first) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"c", "cl"}, first)
}

func TestTypewriterEmitsOnePrefixPerInterval(t *testing.T) {
	clk := newFakeClock()
	var completed atomic.Int32
	tw := NewTypewriter(clk, "ML4E", 50*time.Millisecond, func() { completed.Add(1) })

	out, err := tw.Start(context.Background())
	require.NoError(t, err)

	for _, want := range []string{"M", "ML", "ML4", "ML4E"} {
		step(t, clk, 50*time.Millisecond)
		select {
		case got := <-out:
			assert.Equal(t, want, got)
		case <-time.After(waitFor):
			t.Fatalf("no prefix after %q", want)
		}
	}

	_, open := <-out
	assert.False(t, open)
	assert.Equal(t, int32(1), completed.Load())

	_, err = tw.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestTypewriterCancel(t *testing.T) {
	clk := newFakeClock()
	var completed atomic.Int32
	tw := NewTypewriter(clk, "Machine Learning", 10*time.Millisecond, func() { completed.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	out, err := tw.Start(ctx)
	require.NoError(t, err)

	step(t, clk, 10*time.Millisecond)
	assert.Equal(t, "M", <-out)
	cancel()

	for range out {
	}
	assert.Zero(t, completed.Load())
}

func TestTypewriterRejectsNonPositiveInterval(t *testing.T) {
	_, err := NewTypewriter(newFakeClock(), "x", 0, nil).Start(context.Background())
	assert.Error(t, err)
}

func TestEntranceTriggersOnceAboveThreshold(t *testing.T) {
	clk := newFakeClock()
	var phases []Phase
	e := NewEntrance(clk, OnPhaseChange(func(p Phase) { phases = append(phases, p) }))
	t.Cleanup(e.Close)

	assert.False(t, e.Intersect(0.1))
	assert.Equal(t, PhaseHidden, e.Phase())

	assert.True(t, e.Intersect(0.2))
	assert.Equal(t, PhaseContainer, e.Phase())
	assert.False(t, e.Intersect(1), "already entered")
	assert.False(t, e.Intersect(0), "never resets")

	step(t, clk, 500*time.Millisecond)
	require.Eventually(t, func() bool { return e.Phase() == PhaseHeading }, waitFor, tick)

	step(t, clk, 300*time.Millisecond)
	require.Eventually(t, func() bool { return e.Phase() == PhaseDetails }, waitFor, tick)

	e.mu.Lock()
	defer e.mu.Unlock()
	assert.Equal(t, []Phase{PhaseContainer, PhaseHeading, PhaseDetails}, phases)
}

func TestEntranceTypesHeading(t *testing.T) {
	clk := newFakeClock()
	var mu sync.Mutex
	var typed []string
	e := NewEntrance(clk,
		WithThreshold(0.15),
		WithHeading("ML4E", 40*time.Millisecond, func(s string) {
			mu.Lock()
			defer mu.Unlock()
			typed = append(typed, s)
		}),
	)
	t.Cleanup(e.Close)

	require.True(t, e.Intersect(0.15))
	require.Eventually(t, func() bool {
		if clk.HasWaiters() {
			clk.Step(20 * time.Millisecond)
		}
		return e.Heading() == "ML4E" && e.Phase() == PhaseDetails
	}, waitFor, tick)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"M", "ML", "ML4", "ML4E"}, typed)
}

func TestEntranceCloseCancelsCascade(t *testing.T) {
	clk := newFakeClock()
	e := NewEntrance(clk)

	require.True(t, e.Intersect(0.5))
	require.Eventually(t, clk.HasWaiters, waitFor, tick)

	e.Close()
	clk.Step(time.Second)
	assert.Equal(t, PhaseContainer, e.Phase())
	assert.False(t, e.Intersect(1))
}

type fakeObserver struct {
	events   chan Intersection
	disposed atomic.Bool
}

func (o *fakeObserver) Observe(context.Context) (<-chan Intersection, func()) {
	return o.events, func() { o.disposed.Store(true) }
}

func TestEntranceWatchStopsAfterTrigger(t *testing.T) {
	clk := newFakeClock()
	e := NewEntrance(clk)
	t.Cleanup(e.Close)

	observer := &fakeObserver{events: make(chan Intersection, 3)}
	observer.events <- Intersection{Ratio: 0.05}
	observer.events <- Intersection{Ratio: 0.6}
	observer.events <- Intersection{Ratio: 0}

	assert.True(t, e.Watch(context.Background(), observer))
	assert.True(t, observer.disposed.Load())
	assert.Equal(t, PhaseContainer, e.Phase())
	assert.Len(t, observer.events, 1, "events after the trigger are not consumed")
}

func TestEntranceWatchEndsWithContext(t *testing.T) {
	e := NewEntrance(newFakeClock())
	t.Cleanup(e.Close)

	observer := &fakeObserver{events: make(chan Intersection)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, e.Watch(ctx, observer))
	assert.True(t, observer.disposed.Load())
	assert.False(t, e.Entered())
}
