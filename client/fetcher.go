// Package client is the browser-side half of the site expressed as plain Go:
// fetching a collection once per mount, driving the page's reveal stages and
// submitting the create forms.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Fetcher loads one collection with a single GET. Failures are logged and
// reduced to the Failed flag; callers always get a slice back.
type Fetcher[T any] struct {
	client *http.Client
	url    string
	logger zerolog.Logger

	loading atomic.Bool
	failed  atomic.Bool
	settle  sync.Once
}

func NewFetcher[T any](client *http.Client, url string) *Fetcher[T] {
	if client == nil {
		client = http.DefaultClient
	}
	f := &Fetcher[T]{
		client: client,
		url:    url,
		logger: log.With().Str("component", "fetcher").Str("url", url).Logger(),
	}
	f.loading.Store(true)
	return f
}

// Loading is true until the first Fetch finishes, whatever its outcome.
func (f *Fetcher[T]) Loading() bool {
	return f.loading.Load()
}

func (f *Fetcher[T]) Failed() bool {
	return f.failed.Load()
}

// Fetch returns the records in server order, or an empty slice on any failure.
func (f *Fetcher[T]) Fetch(ctx context.Context) []T {
	defer f.settle.Do(func() { f.loading.Store(false) })

	records, err := f.get(ctx)
	if err != nil {
		f.failed.Store(true)
		f.logger.Error().Err(err).Msg("fetching collection failed")
		return []T{}
	}
	return records
}

func (f *Fetcher[T]) get(ctx context.Context) ([]T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var records []T
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding collection: %w", err)
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}
