package client

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/ml4e-club/ml4e-site-backend/models"
	"github.com/ml4e-club/ml4e-site-backend/reveal"
)

// Collection endpoints and the listing pages a successful form leads to.
const (
	AchievementsEndpoint = "/api/achievements"
	ProjectsEndpoint     = "/api/projects"
	EventsEndpoint       = "/api/events"
	TeamEndpoint         = "/api/team"

	AchievementsPage = "/achievements"
	ProjectsPage     = "/projects"
	EventsPage       = "/events"
	TeamPage         = "/team"
)

// Page is one listing page: it fetches its collection on mount, runs the
// staged reveal and owns one entrance controller per record.
type Page[T any] struct {
	clock        clock.Clock
	client       *http.Client
	url          string
	emptyMessage string
	heading      func(T) string
	typing       time.Duration
	threshold    float64
	sequencer    *reveal.Sequencer

	mu         sync.Mutex
	generation uint64
	fetcher    *Fetcher[T]
	records    []T
	entrances  []*reveal.Entrance
	unmounted  bool
}

type PageOption[T any] func(*Page[T])

// WithTypedHeading types each record's heading once it scrolls into view.
func WithTypedHeading[T any](heading func(T) string, interval time.Duration) PageOption[T] {
	return func(p *Page[T]) {
		p.heading = heading
		p.typing = interval
	}
}

func WithEntranceThreshold[T any](threshold float64) PageOption[T] {
	return func(p *Page[T]) {
		p.threshold = threshold
	}
}

func NewPage[T any](clk clock.Clock, client *http.Client, url, emptyMessage string, opts ...PageOption[T]) *Page[T] {
	p := &Page[T]{
		clock:        clk,
		client:       client,
		url:          url,
		emptyMessage: emptyMessage,
		threshold:    reveal.DefaultThreshold,
		typing:       reveal.DefaultTypingInterval,
		sequencer:    reveal.NewSequencer(clk),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func NewAchievementsPage(clk clock.Clock, client *http.Client, baseURL string) *Page[models.Achievement] {
	return NewPage(clk, client, endpoint(baseURL, AchievementsEndpoint), "No achievements found",
		WithTypedHeading(func(a models.Achievement) string { return a.Title }, reveal.DefaultTypingInterval))
}

func NewProjectsPage(clk clock.Clock, client *http.Client, baseURL string) *Page[models.Project] {
	return NewPage(clk, client, endpoint(baseURL, ProjectsEndpoint), "No projects found",
		WithTypedHeading(func(p models.Project) string { return p.Name }, reveal.DefaultTypingInterval))
}

func NewEventsPage(clk clock.Clock, client *http.Client, baseURL string) *Page[models.Event] {
	return NewPage(clk, client, endpoint(baseURL, EventsEndpoint), "No events found",
		WithTypedHeading(func(e models.Event) string { return e.Name }, reveal.DefaultTypingInterval))
}

func NewTeamPage(clk clock.Clock, client *http.Client, baseURL string) *Page[models.TeamMember] {
	return NewPage(clk, client, endpoint(baseURL, TeamEndpoint), "No team members found",
		WithEntranceThreshold[models.TeamMember](0.15))
}

func endpoint(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + path
}

// Mount fetches the collection and resolves the sequencer. A failed read
// renders exactly like an empty collection.
func (p *Page[T]) Mount(ctx context.Context) {
	p.mu.Lock()
	if p.unmounted {
		p.mu.Unlock()
		return
	}
	p.generation++
	generation := p.generation
	fetcher := NewFetcher[T](p.client, p.url)
	p.fetcher = fetcher
	stale := p.entrances
	p.records, p.entrances = nil, nil
	p.mu.Unlock()

	closeAll(stale)
	p.sequencer.Begin()

	records := fetcher.Fetch(ctx)
	entrances := make([]*reveal.Entrance, 0, len(records))
	for _, record := range records {
		entrances = append(entrances, reveal.NewEntrance(p.clock, p.entranceOptions(record)...))
	}

	p.mu.Lock()
	if p.unmounted || p.generation != generation {
		p.mu.Unlock()
		closeAll(entrances)
		return
	}
	p.records = records
	p.entrances = entrances
	p.mu.Unlock()

	p.sequencer.Resolve()
}

// Refresh drops the current records and entrances and mounts again.
func (p *Page[T]) Refresh(ctx context.Context) {
	p.Mount(ctx)
}

func (p *Page[T]) entranceOptions(record T) []reveal.EntranceOption {
	opts := []reveal.EntranceOption{reveal.WithThreshold(p.threshold)}
	if p.heading != nil {
		opts = append(opts, reveal.WithHeading(p.heading(record), p.typing, nil))
	}
	return opts
}

// View is what the page renders at one instant.
type View[T any] struct {
	Stage        reveal.Stage
	Loading      bool
	Records      []T
	Empty        bool
	EmptyMessage string
}

func (p *Page[T]) View() View[T] {
	p.mu.Lock()
	defer p.mu.Unlock()

	loading := p.fetcher == nil || p.fetcher.Loading()
	view := View[T]{
		Stage:   p.sequencer.Stage(),
		Loading: loading,
		Records: append([]T(nil), p.records...),
	}
	if !loading && len(p.records) == 0 {
		view.Empty = true
		view.EmptyMessage = p.emptyMessage
	}
	return view
}

// Entrances returns the entrance controllers, in record order.
func (p *Page[T]) Entrances() []*reveal.Entrance {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*reveal.Entrance(nil), p.entrances...)
}

func (p *Page[T]) Sequencer() *reveal.Sequencer {
	return p.sequencer
}

// Unmount cancels every pending timer owned by the page.
func (p *Page[T]) Unmount() {
	p.mu.Lock()
	if p.unmounted {
		p.mu.Unlock()
		return
	}
	p.unmounted = true
	entrances := p.entrances
	p.entrances = nil
	p.mu.Unlock()

	p.sequencer.Close()
	closeAll(entrances)
}

func closeAll(entrances []*reveal.Entrance) {
	for _, e := range entrances {
		e.Close()
	}
}
