package search

import (
	"context"
	"sync"
	"time"

	"jobpulse-engine/internal/domain"
	"jobpulse-engine/internal/logging"
)

// Session is the UI's view onto the client: a short-lived result cache plus
// asynchronous searches delivered in the order they were submitted.
type Session struct {
	client *Client
	ttl    time.Duration
	now    func() time.Time
	log    *logging.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
	tail  chan struct{} // done channel of the latest Submit
}

type cacheEntry struct {
	page    Page
	expires time.Time
}

type SessionOption func(*Session)

func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

func WithSessionLogger(l *logging.Logger) SessionOption {
	return func(s *Session) { s.log = l.Named("session") }
}

// NewSession caches pages for ttl. A ttl <= 0 disables caching.
func NewSession(c *Client, ttl time.Duration, opts ...SessionOption) *Session {
	s := &Session{
		client: c,
		ttl:    ttl,
		now:    time.Now,
		log:    logging.NewNop(),
		cache:  make(map[string]cacheEntry),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Search answers from the cache when it can, else asks the provider.
func (s *Session) Search(ctx context.Context, f Filter) (Page, error) {
	f, key, err := s.client.Prepare(f)
	if err != nil {
		return Page{}, err
	}

	if p, ok := s.lookup(key); ok {
		return p, nil
	}

	p, err := s.client.fetch(ctx, f, key)
	if err != nil {
		return Page{}, err
	}
	s.store(key, p)
	return clonePage(p), nil
}

func (s *Session) lookup(key string) (Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cache[key]
	if !ok {
		return Page{}, false
	}
	if !s.now().Before(e.expires) {
		delete(s.cache, key)
		return Page{}, false
	}
	return clonePage(e.page), true
}

func (s *Session) store(key string, p Page) {
	if s.ttl <= 0 {
		return
	}
	s.mu.Lock()
	s.cache[key] = cacheEntry{page: p, expires: s.now().Add(s.ttl)}
	s.mu.Unlock()
}

// Purge drops expired entries and reports how many were removed.
func (s *Session) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for k, e := range s.cache {
		if !now.Before(e.expires) {
			delete(s.cache, k)
			n++
		}
	}
	return n
}

// Reset empties the cache.
func (s *Session) Reset() {
	s.mu.Lock()
	s.cache = make(map[string]cacheEntry)
	s.mu.Unlock()
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

// Pending is an in-flight Submit.
type Pending struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	cancelled bool
}

// Cancel stops the search. If delivery has not begun when Cancel returns,
// deliver will not be called. It is safe to call from inside deliver.
func (p *Pending) Cancel() {
	p.mu.Lock()
	p.cancelled = true
	p.mu.Unlock()
	p.cancel()
}

// Wait blocks until the result was delivered or suppressed.
func (p *Pending) Wait() { <-p.done }

// Submit runs the search in the background and calls deliver with the
// outcome. Results reach deliver in submission order even when a later
// search finishes first.
func (s *Session) Submit(ctx context.Context, f Filter, deliver func(Page, error)) *Pending {
	ctx, cancel := context.WithCancel(ctx)
	p := &Pending{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	prev := s.tail
	s.tail = p.done
	s.mu.Unlock()

	go func() {
		defer close(p.done)
		defer cancel()

		page, err := s.Search(ctx, f)
		if prev != nil {
			<-prev
		}

		p.mu.Lock()
		if p.cancelled || ctx.Err() != nil {
			p.mu.Unlock()
			s.log.Debug("search result suppressed", "keyword", f.Keyword, "page", f.Page)
			return
		}
		p.mu.Unlock()

		deliver(page, err)
	}()
	return p
}

func clonePage(p Page) Page {
	out := p
	out.Listings = append([]domain.JobListing(nil), p.Listings...)
	return out
}
