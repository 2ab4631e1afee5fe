package boost

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/talgya/harvest-boost/internal/clock"
	"github.com/talgya/harvest-boost/internal/config"
	"github.com/talgya/harvest-boost/internal/world"
)

// Entry is one cached boost computation. Count is the raw qualifying count;
// Multiplier already reflects the curve's clamping.
type Entry struct {
	Count      int       `json:"count"`
	Multiplier float64   `json:"multiplier"`
	ComputedAt time.Time `json:"computed_at"`

	gen uint64
}

// Percentage returns the entry's bonus as a whole percentage.
func (e Entry) Percentage() int { return Percentage(e.Multiplier) }

// Cache memoizes boost results per block for the configured TTL. In async
// mode an expired entry is served while a single background refresh per
// block recomputes it.
type Cache struct {
	counter NeighborCounter
	live    *config.Live
	clock   clock.Clock

	entries  sync.Map // world.AreaKey → Entry
	inflight sync.Map // world.AreaKey → struct{}
	// gen is bumped by Clear; entries from an older generation are absent.
	gen atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCache creates an empty cache that computes misses with counter.
func NewCache(counter NeighborCounter, live *config.Live, clk clock.Clock) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		counter: counter,
		live:    live,
		clock:   clk,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (c *Cache) expired(e Entry, now time.Time, ttl time.Duration) bool {
	return e.gen != c.gen.Load() || now.Sub(e.ComputedAt) > ttl
}

// Lookup returns the boost for loc, computing it on a miss. A failed
// computation keeps the previous entry if there is one and otherwise
// reports no boost without caching it.
func (c *Cache) Lookup(ctx context.Context, loc world.Location) Entry {
	key := loc.Key()
	cfg := c.live.Load()
	now := c.clock.Now()

	v, ok := c.entries.Load(key)
	if !ok {
		return c.recompute(ctx, key, loc, nil)
	}
	e := v.(Entry)
	if e.gen != c.gen.Load() {
		c.entries.CompareAndDelete(key, v)
		return c.recompute(ctx, key, loc, nil)
	}
	if !c.expired(e, now, cfg.CacheTTL()) {
		return e
	}
	if cfg.Performance.AsyncRefresh {
		c.refreshAsync(key, loc, e)
		return e
	}
	return c.recompute(ctx, key, loc, &e)
}

func (c *Cache) recompute(ctx context.Context, key world.AreaKey, loc world.Location, prev *Entry) Entry {
	// Read the generation before the config: a Clear that follows a config
	// swap then marks this result stale.
	gen := c.gen.Load()
	cfg := c.live.Load()
	now := c.clock.Now()

	count, err := c.counter.CountQualifying(ctx, loc)
	if err != nil {
		slog.Warn("boost computation failed", "area", key, "error", err, "kept_previous", prev != nil)
		if prev != nil {
			return *prev
		}
		return Entry{Multiplier: 1.0, ComputedAt: now}
	}

	e := Entry{Count: count, Multiplier: CurveFor(cfg).MultiplierFor(count), ComputedAt: now, gen: gen}
	c.entries.Store(key, e)
	return e
}

func (c *Cache) refreshAsync(key world.AreaKey, loc world.Location, stale Entry) {
	if _, busy := c.inflight.LoadOrStore(key, struct{}{}); busy {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.inflight.Delete(key)
		c.recompute(c.ctx, key, loc, &stale)
	}()
}

// MultiplierAt returns the growth multiplier at loc.
func (c *Cache) MultiplierAt(ctx context.Context, loc world.Location) float64 {
	return c.Lookup(ctx, loc).Multiplier
}

// QualifyingCountAt returns the raw qualifying farmer count at loc.
func (c *Cache) QualifyingCountAt(ctx context.Context, loc world.Location) int {
	return c.Lookup(ctx, loc).Count
}

// PercentageAt returns the bonus at loc as a whole percentage.
func (c *Cache) PercentageAt(ctx context.Context, loc world.Location) int {
	return c.Lookup(ctx, loc).Percentage()
}

// HasBoost reports whether loc currently grows faster than normal.
func (c *Cache) HasBoost(ctx context.Context, loc world.Location) bool {
	return c.MultiplierAt(ctx, loc) > 1.0
}

// Invalidate drops the entry for loc's block.
func (c *Cache) Invalidate(loc world.Location) {
	c.entries.Delete(loc.Key())
}

// SweepExpired removes entries older than the TTL, or left over from before
// a Clear, and returns how many were removed. An entry replaced mid-sweep is left alone.
func (c *Cache) SweepExpired() int {
	now := c.clock.Now()
	ttl := c.live.Load().CacheTTL()
	removed := 0
	c.entries.Range(func(k, v any) bool {
		if c.expired(v.(Entry), now, ttl) && c.entries.CompareAndDelete(k, v) {
			removed++
		}
		return true
	})
	return removed
}

// Clear drops every entry. Refreshes still running store results that
// lookups ignore.
func (c *Cache) Clear() {
	c.gen.Add(1)
	c.entries.Clear()
}

// Len returns the number of cached blocks of the current generation.
func (c *Cache) Len() int {
	gen := c.gen.Load()
	n := 0
	c.entries.Range(func(_, v any) bool {
		if v.(Entry).gen == gen {
			n++
		}
		return true
	})
	return n
}

// Close cancels background refreshes and waits for them to finish.
func (c *Cache) Close() {
	c.cancel()
	c.wg.Wait()
}
