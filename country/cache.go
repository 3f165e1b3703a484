package country

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"rationsmart/backend"
)

// DefaultTTL is how long a fetched catalog is served before the next lookup
// refreshes it.
const DefaultTTL = time.Hour

// Source fetches the full country catalog.
type Source interface {
	Countries(ctx context.Context) ([]backend.Country, error)
}

// Cache holds the active countries and refreshes them lazily. It is created
// once at startup and shared; concurrent refreshes are not deduplicated.
type Cache struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	mu        sync.RWMutex
	countries []backend.Country
	fetchedAt time.Time
}

type CacheOpts struct {
	TTL time.Duration
	Now func() time.Time
}

func NewCache(source Source, opts CacheOpts) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{source: source, ttl: opts.TTL, now: opts.Now}
}

// Active returns the active countries in catalog order, refreshing first when
// the snapshot is missing or stale. Fetch failures are returned as is.
func (c *Cache) Active(ctx context.Context) ([]backend.Country, error) {
	c.mu.RLock()
	fresh := !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) < c.ttl
	countries := c.countries
	c.mu.RUnlock()
	if fresh {
		return countries, nil
	}

	all, err := c.source.Countries(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]backend.Country, 0, len(all))
	for _, country := range all {
		if country.Active {
			active = append(active, country)
		}
	}

	c.mu.Lock()
	c.countries = active
	c.fetchedAt = c.now()
	c.mu.Unlock()

	slog.Debug("COUNTRY: Refreshed country catalog", "active", len(active), "total", len(all))
	return active, nil
}

// Invalidate forces the next lookup to refetch.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}
