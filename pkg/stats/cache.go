package stats

import (
	"context"
	"sync"
	"time"

	"github.com/osmcz/mapcampaign/pkg/osm"
	"go.uber.org/zap"
)

// FetchFunc retrieves raw changeset records for the campaign window.
type FetchFunc func(ctx context.Context) ([]osm.Changeset, error)

// Cache holds the most recent Snapshot and recomputes it when the TTL lapses.
// A failed fetch never evicts a previously good snapshot: the cache keeps
// serving stale-but-valid data until a refresh succeeds.
type Cache struct {
	ttl     time.Duration
	fetch   FetchFunc
	onFresh func(*Snapshot) // invoked after a successful refresh
	now     func() time.Time
	logger  *zap.Logger

	mu        sync.Mutex
	snap      *Snapshot
	expiresAt time.Time
}

// NewCache creates a Cache. onFresh may be nil; it receives every successfully
// recomputed snapshot (used to broadcast stats updates).
func NewCache(ttl time.Duration, fetch FetchFunc, onFresh func(*Snapshot), logger *zap.Logger) *Cache {
	return &Cache{
		ttl:     ttl,
		fetch:   fetch,
		onFresh: onFresh,
		now:     time.Now,
		logger:  logger,
	}
}

// Get returns the cached snapshot when fresh, otherwise recomputes.
// Within one TTL window repeated calls return the identical snapshot.
func (c *Cache) Get(ctx context.Context) *Snapshot {
	c.mu.Lock()
	if c.snap != nil && c.now().Before(c.expiresAt) {
		snap := c.snap
		c.mu.Unlock()
		return snap
	}
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// Refresh recomputes the snapshot. On fetch failure the previous snapshot
// survives and is returned; with no prior snapshot a zeroed aggregate is
// returned but not cached, so the next call retries immediately.
func (c *Cache) Refresh(ctx context.Context) *Snapshot {
	records, err := c.fetch(ctx)
	if err != nil {
		c.logger.Warn("Stats refresh failed, keeping previous snapshot", zap.Error(err))
		c.mu.Lock()
		snap := c.snap
		c.mu.Unlock()
		if snap != nil {
			return snap
		}
		return Aggregate(nil, c.now())
	}

	snap := Aggregate(records, c.now())

	c.mu.Lock()
	c.snap = snap
	c.expiresAt = c.now().Add(c.ttl)
	c.mu.Unlock()

	c.logger.Info("Stats snapshot recomputed",
		zap.Int("total_changesets", snap.TotalChangesets),
		zap.Int("total_contributors", snap.TotalContributors),
		zap.Int("changesets_today", snap.ChangesetsToday))

	if c.onFresh != nil {
		c.onFresh(snap)
	}
	return snap
}
