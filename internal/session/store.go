// Package session keeps per-conversation memory between turns. Records expire
// after a period of inactivity and are purged lazily on every read.
package session

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultTTL is how long an idle conversation is kept.
const DefaultTTL = 30 * time.Minute

type conversation struct {
	mu          sync.Mutex
	lastUpdated time.Time
	data        map[string]any
	removed     bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for expiry. Defaults to the real clock.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithExpiredHook registers fn to be called once for every conversation
// removed because it expired.
func WithExpiredHook(fn func(id string)) Option {
	return func(s *Store) { s.onExpired = fn }
}

// Store is a concurrency-safe map of conversation records. Each record has
// its own lock, so independent conversations never contend.
type Store struct {
	ttl       time.Duration
	clock     clockwork.Clock
	onExpired func(id string)

	conversations sync.Map // string -> *conversation
	count         atomic.Int64
}

// NewStore creates a store. A non-positive ttl uses DefaultTTL.
func NewStore(ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{ttl: ttl, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the configured inactivity timeout.
func (s *Store) TTL() time.Duration { return s.ttl }

// Add sets key to value, creating the record if needed, and refreshes it.
func (s *Store) Add(id, key string, value any) {
	for {
		c := s.load(id, true)
		c.mu.Lock()
		if c.removed {
			// Lost a race with Clear or Sweep; start over with a fresh record.
			c.mu.Unlock()
			continue
		}
		c.data[key] = value
		c.lastUpdated = s.clock.Now()
		c.mu.Unlock()
		return
	}
}

// Get returns the value stored under key, or def when the record or key is
// absent or holds nil. Expired records are purged first.
func (s *Store) Get(id, key string, def any) any {
	s.Sweep()
	c := s.load(id, false)
	if c == nil {
		return def
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.removed {
		return def
	}
	c.lastUpdated = s.clock.Now()
	if v, ok := c.data[key]; ok && v != nil {
		return v
	}
	return def
}

// GetAll returns a copy of every value in the record, or an empty map.
// Expired records are purged first.
func (s *Store) GetAll(id string) map[string]any {
	s.Sweep()
	c := s.load(id, false)
	if c == nil {
		return map[string]any{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.removed {
		return map[string]any{}
	}
	c.lastUpdated = s.clock.Now()
	return maps.Clone(c.data)
}

// Clear removes the record unconditionally.
func (s *Store) Clear(id string) {
	v, ok := s.conversations.Load(id)
	if !ok {
		return
	}
	c := v.(*conversation)
	c.mu.Lock()
	defer c.mu.Unlock()
	s.remove(id, c)
}

// Sweep removes every record idle for longer than the TTL and returns how
// many were removed. Safe to call from any goroutine.
func (s *Store) Sweep() int {
	now := s.clock.Now()
	var expired []string
	s.conversations.Range(func(k, v any) bool {
		c := v.(*conversation)
		c.mu.Lock()
		if !c.removed && c.lastUpdated.Add(s.ttl).Before(now) {
			s.remove(k.(string), c)
			expired = append(expired, k.(string))
		}
		c.mu.Unlock()
		return true
	})
	if s.onExpired != nil {
		for _, id := range expired {
			s.onExpired(id)
		}
	}
	return len(expired)
}

// Len returns the number of stored records, including expired ones that
// have not been swept yet.
func (s *Store) Len() int { return int(s.count.Load()) }

// RunSweeper calls Sweep every interval until ctx is cancelled. Reads purge
// lazily anyway; the sweeper bounds memory held by abandoned conversations.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.Sweep()
		}
	}
}

func (s *Store) load(id string, create bool) *conversation {
	if v, ok := s.conversations.Load(id); ok {
		return v.(*conversation)
	}
	if !create {
		return nil
	}
	fresh := &conversation{data: make(map[string]any)}
	v, loaded := s.conversations.LoadOrStore(id, fresh)
	if !loaded {
		s.count.Add(1)
	}
	return v.(*conversation)
}

// remove must be called with c.mu held.
func (s *Store) remove(id string, c *conversation) {
	if c.removed {
		return
	}
	c.removed = true
	s.conversations.CompareAndDelete(id, c)
	s.count.Add(-1)
}
