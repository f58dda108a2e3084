package search

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoProvider answers with one listing titled after the keyword.
// Keywords listed in delay are answered late.
type echoProvider struct {
	hits  atomic.Int32
	delay map[string]time.Duration
	gate  chan struct{} // when set, "blocked" waits for it
}

func (p *echoProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.hits.Add(1)
	kw := r.URL.Query().Get("keyword")
	if d := p.delay[kw]; d > 0 {
		time.Sleep(d)
	}
	if kw == "blocked" && p.gate != nil {
		select {
		case <-p.gate:
		case <-r.Context().Done():
			return
		}
	}
	fmt.Fprintf(w, `{"message":"ok","statuscode":"1","data":[{"Jobid":"1","jobTitle":%q,"companyName":"c"}],"common":{"total_records_found":1}}`, kw)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestSessionCachesWithinTTL(t *testing.T) {
	p := &echoProvider{}
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewSession(newTestClient(t, p), time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	first, err := s.Search(ctx, Filter{Keyword: "go"})
	require.NoError(t, err)
	second, err := s.Search(ctx, Filter{Keyword: " go ", Page: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 1, p.hits.Load(), "equivalent filters share a cache entry")
	assert.Equal(t, first, second)

	_, err = s.Search(ctx, Filter{Keyword: "go", Page: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 2, p.hits.Load())

	clock.Advance(time.Minute)
	_, err = s.Search(ctx, Filter{Keyword: "go"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, p.hits.Load(), "expired entries are refetched")
}

func TestSessionPurgeAndReset(t *testing.T) {
	p := &echoProvider{}
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewSession(newTestClient(t, p), time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	_, err := s.Search(ctx, Filter{Keyword: "a"})
	require.NoError(t, err)
	clock.Advance(30 * time.Second)
	_, err = s.Search(ctx, Filter{Keyword: "b"})
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())

	clock.Advance(45 * time.Second)
	assert.Equal(t, 1, s.Purge())
	assert.Equal(t, 1, s.Len())

	s.Reset()
	assert.Zero(t, s.Len())
}

func TestSessionDoesNotCacheErrors(t *testing.T) {
	p := &fakeProvider{body: `{"statuscode":"0","message":"down"}`}
	s := NewSession(newTestClient(t, p), time.Minute)

	_, err := s.Search(context.Background(), Filter{})
	require.Error(t, err)
	_, err = s.Search(context.Background(), Filter{})
	require.Error(t, err)
	assert.Equal(t, 2, p.hits())
	assert.Zero(t, s.Len())
}

func TestSessionValidationSkipsNetwork(t *testing.T) {
	p := &echoProvider{}
	s := NewSession(newTestClient(t, p), time.Minute)

	_, err := s.Search(context.Background(), Filter{SalaryMin: 10, SalaryMax: 5})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Zero(t, p.hits.Load())
}

func TestSubmitDeliversInSubmissionOrder(t *testing.T) {
	p := &echoProvider{delay: map[string]time.Duration{"slow": 150 * time.Millisecond}}
	s := NewSession(newTestClient(t, p), 0)

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(pg Page, err error) {
		assert.NoError(t, err)
		mu.Lock()
		order = append(order, pg.Listings[0].Title)
		mu.Unlock()
	}

	ctx := context.Background()
	a := s.Submit(ctx, Filter{Keyword: "slow"}, record)
	b := s.Submit(ctx, Filter{Keyword: "fast"}, record)
	c := s.Submit(ctx, Filter{Keyword: "faster"}, record)
	a.Wait()
	b.Wait()
	c.Wait()

	assert.Equal(t, []string{"slow", "fast", "faster"}, order)
}

func TestSubmitCancelSuppressesDelivery(t *testing.T) {
	p := &echoProvider{gate: make(chan struct{})}
	s := NewSession(newTestClient(t, p), 0)

	var delivered atomic.Int32
	pending := s.Submit(context.Background(), Filter{Keyword: "blocked"}, func(Page, error) {
		delivered.Add(1)
	})

	require.Eventually(t, func() bool { return p.hits.Load() == 1 }, time.Second, 5*time.Millisecond)
	pending.Cancel()
	close(p.gate)
	pending.Wait()

	assert.Zero(t, delivered.Load())

	// later submissions are unaffected
	var got string
	next := s.Submit(context.Background(), Filter{Keyword: "after"}, func(pg Page, err error) {
		assert.NoError(t, err)
		got = pg.Listings[0].Title
	})
	next.Wait()
	assert.Equal(t, "after", got)
}

func TestDeliverMayCancelItsOwnPending(t *testing.T) {
	p := &echoProvider{}
	s := NewSession(newTestClient(t, p), 0)

	own := make(chan *Pending, 1)
	var calls atomic.Int32
	pending := s.Submit(context.Background(), Filter{Keyword: "self"}, func(Page, error) {
		(<-own).Cancel()
		calls.Add(1)
	})
	own <- pending

	done := make(chan struct{})
	go func() {
		pending.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("deliver blocked on its own Pending")
	}
	assert.Equal(t, int32(1), calls.Load())
}
