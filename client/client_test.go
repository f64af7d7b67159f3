package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/ml4e-club/ml4e-site-backend/models"
	"github.com/ml4e-club/ml4e-site-backend/reveal"
)

const (
	waitFor = time.Second
	tick    = time.Millisecond
)

func newFakeClock() *testingclock.FakeClock {
	return testingclock.NewFakeClock(time.Date(2025, 9, 1, 18, 0, 0, 0, time.UTC))
}

func jsonServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Empty(t, r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFetcherReturnsRecordsInServerOrder(t *testing.T) {
	srv, hits := jsonServer(t, http.StatusOK, `[{"id":"2","name":"Newer"},{"id":"1","name":"Older"}]`)

	f := NewFetcher[models.Project](srv.Client(), srv.URL+ProjectsEndpoint)
	assert.True(t, f.Loading())

	records := f.Fetch(context.Background())
	require.Len(t, records, 2)
	assert.Equal(t, "Newer", records[0].Name)
	assert.Equal(t, "Older", records[1].Name)
	assert.False(t, f.Loading())
	assert.False(t, f.Failed())
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetcherFailuresYieldEmptySlice(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"boom","status":"error"}`},
		{name: "bad json", status: http.StatusOK, body: `[{"name":`},
		{name: "null body", status: http.StatusOK, body: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := jsonServer(t, tt.status, tt.body)
			f := NewFetcher[models.Event](srv.Client(), srv.URL)

			records := f.Fetch(context.Background())
			assert.NotNil(t, records)
			assert.Empty(t, records)
			assert.False(t, f.Loading())
		})
	}
}

func TestFetcherTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f := NewFetcher[models.Event](nil, url)
	records := f.Fetch(context.Background())
	assert.Empty(t, records)
	assert.True(t, f.Failed())
	assert.False(t, f.Loading())
}

func TestPageMountRevealsRecords(t *testing.T) {
	srv, _ := jsonServer(t, http.StatusOK, `[{"id":"p1","name":"Fraud detector"},{"id":"p2","name":"Chatbot"}]`)
	clk := newFakeClock()

	page := NewProjectsPage(clk, srv.Client(), srv.URL)
	t.Cleanup(page.Unmount)

	assert.True(t, page.View().Loading)

	page.Mount(context.Background())
	view := page.View()
	assert.False(t, view.Loading)
	assert.False(t, view.Empty)
	assert.Len(t, view.Records, 2)
	assert.Equal(t, reveal.StageContentReady, view.Stage)

	entrances := page.Entrances()
	require.Len(t, entrances, 2)
	assert.True(t, entrances[1].Intersect(0.5))
	assert.Equal(t, reveal.PhaseHidden, entrances[0].Phase())

	require.Eventually(t, func() bool {
		if clk.HasWaiters() {
			clk.Step(100 * time.Millisecond)
		}
		return page.Sequencer().Interactive() && entrances[1].Heading() == "Chatbot"
	}, 2*waitFor, tick)
}

func TestPageEmptyAndFailedLookTheSame(t *testing.T) {
	empty, _ := jsonServer(t, http.StatusOK, `[]`)
	failing, _ := jsonServer(t, http.StatusInternalServerError, `{"error":"db down","status":"error"}`)

	for _, url := range []string{empty.URL, failing.URL} {
		page := NewProjectsPage(newFakeClock(), nil, url)
		page.Mount(context.Background())

		view := page.View()
		assert.True(t, view.Empty)
		assert.Equal(t, "No projects found", view.EmptyMessage)
		assert.Empty(t, page.Entrances())
		page.Unmount()
	}
}

func TestPageRefreshRefetchesAndResets(t *testing.T) {
	srv, hits := jsonServer(t, http.StatusOK, `[{"id":"t1","name":"Ada","role":"Lead"}]`)
	clk := newFakeClock()
	page := NewTeamPage(clk, nil, srv.URL)
	t.Cleanup(page.Unmount)

	page.Mount(context.Background())
	first := page.Entrances()
	require.Len(t, first, 1)
	assert.True(t, first[0].Intersect(0.15))

	page.Refresh(context.Background())
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, reveal.StageContentReady, page.View().Stage)

	second := page.Entrances()
	require.Len(t, second, 1)
	assert.NotSame(t, first[0], second[0])
	assert.False(t, first[0].Intersect(1), "old controllers are closed")
}

func TestPageUnmountStopsTimers(t *testing.T) {
	srv, _ := jsonServer(t, http.StatusOK, `[{"id":"e1","name":"Kickoff","date":"Sept 3","description":"Welcome"}]`)
	clk := newFakeClock()
	page := NewEventsPage(clk, nil, srv.URL)

	page.Mount(context.Background())
	require.True(t, page.Entrances()[0].Intersect(1))
	page.Unmount()

	clk.Step(10 * time.Second)
	assert.Equal(t, reveal.StageContentReady, page.View().Stage)

	page.Mount(context.Background())
	assert.Equal(t, reveal.StageContentReady, page.View().Stage)
}

type submittedForm struct {
	fields  map[string]string
	members []models.Member
	file    string
	name    string
	auth    string
}

func formServer(t *testing.T, status int) (*httptest.Server, chan submittedForm) {
	t.Helper()
	got := make(chan submittedForm, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		form := submittedForm{fields: map[string]string{}, auth: r.Header.Get("Authorization")}
		for key, vals := range r.MultipartForm.Value {
			if key == "members" {
				assert.NoError(t, json.Unmarshal([]byte(vals[0]), &form.members))
				continue
			}
			form.fields[key] = vals[0]
		}
		if headers := r.MultipartForm.File["image"]; len(headers) > 0 {
			if file, err := headers[0].Open(); assert.NoError(t, err) {
				data, err := io.ReadAll(file)
				assert.NoError(t, err)
				form.file = string(data)
			}
			form.name = headers[0].Filename
		}
		got <- form
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"error":"nope","status":"error"}`)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

type navigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *navigator) navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *navigator) visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

func TestFormSubmitSuccessClearsAndRedirects(t *testing.T) {
	srv, got := formServer(t, http.StatusCreated)
	clk := newFakeClock()
	nav := &navigator{}

	form := NewFormController(srv.Client(), clk, srv.URL+AchievementsEndpoint, AchievementsPage, nav.navigate,
		WithBearerToken("token"))
	t.Cleanup(form.Close)

	form.Set("title", "Hack Day")
	require.NoError(t, form.AddMember(models.Member{Name: "Ada", Profile: "https://github.com/ada"}))
	form.Attach("image", "cert.png", "image/png", []byte("png"))

	require.NoError(t, form.Submit(context.Background()))

	sent := <-got
	assert.Equal(t, "Hack Day", sent.fields["title"])
	assert.Equal(t, []models.Member{{Name: "Ada", Profile: "https://github.com/ada"}}, sent.members)
	assert.Equal(t, "png", sent.file)
	assert.Equal(t, "cert.png", sent.name)
	assert.Equal(t, "Bearer token", sent.auth)

	assert.Equal(t, FormSucceeded, form.State())
	assert.Equal(t, DefaultSuccessMessage, form.Message())
	assert.Empty(t, form.Value("title"))
	assert.Empty(t, form.Members())

	require.Eventually(t, clk.HasWaiters, waitFor, tick)
	clk.Step(1999 * time.Millisecond)
	assert.Empty(t, nav.visited())

	clk.Step(time.Millisecond)
	require.Eventually(t, func() bool { return len(nav.visited()) == 1 }, waitFor, tick)
	assert.Equal(t, []string{AchievementsPage}, nav.visited())
	assert.Equal(t, FormEditing, form.State())
}

func TestFormSubmitFailureKeepsContents(t *testing.T) {
	srv, got := formServer(t, http.StatusInternalServerError)
	clk := newFakeClock()
	nav := &navigator{}

	form := NewFormController(srv.Client(), clk, srv.URL+EventsEndpoint, EventsPage, nav.navigate)
	t.Cleanup(form.Close)

	form.Set("name", "Paper reading")
	err := form.Submit(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
	<-got

	assert.Equal(t, FormFailed, form.State())
	assert.Equal(t, DefaultFailureMessage, form.Message())
	assert.Equal(t, "Paper reading", form.Value("name"))
	assert.False(t, clk.HasWaiters())

	form.Set("description", "Attention is all you need")
	assert.Equal(t, FormEditing, form.State())
	assert.Empty(t, form.Message())
}

func TestFormSubmitTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	form := NewFormController(nil, newFakeClock(), url, TeamPage, nil, WithMessages("ok", "failed"))
	form.Set("name", "Grace")

	assert.Error(t, form.Submit(context.Background()))
	assert.Equal(t, FormFailed, form.State())
	assert.Equal(t, "failed", form.Message())
	assert.Equal(t, "Grace", form.Value("name"))
}

func TestFormRejectsConcurrentSubmit(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)

	form := NewFormController(srv.Client(), newFakeClock(), srv.URL, ProjectsPage, nil)
	t.Cleanup(form.Close)

	done := make(chan error, 1)
	go func() { done <- form.Submit(context.Background()) }()

	<-entered
	assert.Equal(t, FormSubmitting, form.State())
	assert.ErrorIs(t, form.Submit(context.Background()), ErrSubmitInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, FormSucceeded, form.State())
}

func TestFormMemberLimit(t *testing.T) {
	form := NewFormController(nil, newFakeClock(), "http://unused", AchievementsPage, nil)

	for i := 0; i < models.MaxMembers; i++ {
		require.NoError(t, form.AddMember(models.Member{Name: "m"}))
	}
	assert.ErrorIs(t, form.AddMember(models.Member{Name: "seventh"}), ErrTooManyMembers)

	form.RemoveMember(0)
	assert.Len(t, form.Members(), models.MaxMembers-1)
	assert.NoError(t, form.AddMember(models.Member{Name: "seventh"}))
}

func TestFormCloseCancelsRedirect(t *testing.T) {
	srv, got := formServer(t, http.StatusCreated)
	clk := newFakeClock()
	nav := &navigator{}

	form := NewFormController(srv.Client(), clk, srv.URL, TeamPage, nav.navigate)
	form.Set("name", "Linus")
	require.NoError(t, form.Submit(context.Background()))
	<-got

	require.Eventually(t, clk.HasWaiters, waitFor, tick)
	form.Close()
	clk.Step(time.Minute)

	assert.Empty(t, nav.visited())
	assert.ErrorIs(t, form.Submit(context.Background()), ErrFormClosed)
}

func TestFormStateString(t *testing.T) {
	assert.Equal(t, "submitting", FormSubmitting.String())
	assert.Equal(t, "unknown", FormState(9).String())
}
