package forecastapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/golang/groupcache/lru"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-chat-service/internal/domain"
	"github.com/couchcryptid/weather-chat-service/internal/observability"
)

// CachedProvider wraps a ForecastProvider with an in-memory LRU cache whose
// entries expire after a TTL.
type CachedProvider struct {
	inner   domain.ForecastProvider
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics

	mu    sync.Mutex
	cache *lru.Cache
}

type cached struct {
	forecast domain.Forecast
	storedAt time.Time
}

// NewCachedProvider creates a cache decorator around a forecast provider.
func NewCachedProvider(inner domain.ForecastProvider, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedProvider {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CachedProvider{
		inner:   inner,
		ttl:     ttl,
		clock:   clock,
		metrics: metrics,
		cache:   lru.New(maxEntries),
	}
}

// Predict serves anonymous requests from cache when a fresh entry exists.
// Requests carrying a user id always reach the wrapped provider, which keeps
// a per-user forecast history.
func (c *CachedProvider) Predict(ctx context.Context, city string, days int, userID string) (domain.Forecast, error) {
	if userID != "" {
		c.metrics.ForecastCache.WithLabelValues("bypass").Inc()
		return c.inner.Predict(ctx, city, days, userID)
	}

	key := fmt.Sprintf("%s|%d", city, days)
	if f, ok := c.get(key); ok {
		c.metrics.ForecastCache.WithLabelValues("hit").Inc()
		return f, nil
	}
	c.metrics.ForecastCache.WithLabelValues("miss").Inc()

	f, err := c.inner.Predict(ctx, city, days, userID)
	if err != nil {
		return f, err
	}
	// Only cache forecasts with data so empty answers can be retried.
	if len(f.Records) > 0 {
		c.put(key, f)
	}
	return f, nil
}

// CheckReadiness delegates to the wrapped provider when it supports it.
func (c *CachedProvider) CheckReadiness(ctx context.Context) error {
	if rc, ok := c.inner.(sharedobs.ReadinessChecker); ok {
		return rc.CheckReadiness(ctx)
	}
	return nil
}

// Len returns the number of cached entries, fresh or stale.
func (c *CachedProvider) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}

func (c *CachedProvider) get(key string) (domain.Forecast, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.cache.Get(key)
	if !ok {
		return domain.Forecast{}, false
	}
	entry := v.(cached)
	if c.ttl > 0 && c.clock.Since(entry.storedAt) > c.ttl {
		c.cache.Remove(key)
		return domain.Forecast{}, false
	}
	return entry.forecast, true
}

func (c *CachedProvider) put(key string, f domain.Forecast) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(key, cached{forecast: f, storedAt: c.clock.Now()})
}
