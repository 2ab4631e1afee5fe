// Package boost computes the cooperative farming multiplier: who is present
// in a farming area and for how long, how many qualifying farmers surround a
// location, and the cached multiplier that count maps to.
package boost

import (
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/harvest-boost/internal/clock"
	"github.com/talgya/harvest-boost/internal/config"
	"github.com/talgya/harvest-boost/internal/world"
)

// Presence records the farming area an agent currently occupies.
// Values are immutable; an update stores a new Presence.
type Presence struct {
	Anchor    world.Location // where the current area was entered
	Latest    world.Location // most recent activity inside the area
	EnteredAt time.Time
}

// PresenceTracker owns every agent's Presence.
type PresenceTracker struct {
	live  *config.Live
	clock clock.Clock

	records sync.Map // world.AgentID → Presence
}

// NewPresenceTracker creates an empty tracker.
func NewPresenceTracker(live *config.Live, clk clock.Clock) *PresenceTracker {
	return &PresenceTracker{live: live, clock: clk}
}

func (t *PresenceTracker) areaRadius(cfg *config.Config) float64 {
	return float64(cfg.Advanced.FarmingDetectionRadius)
}

// RecordActivity notes farming activity at loc. Activity farther than the
// area radius from the anchor (or in another world) starts a new area and
// resets dwell time; anything closer keeps the entry time.
func (t *PresenceTracker) RecordActivity(id world.AgentID, loc world.Location) {
	now := t.clock.Now()
	radius := t.areaRadius(t.live.Load())

	prev, ok := t.Lookup(id)
	if !ok || !prev.Anchor.Within(loc, radius) {
		t.records.Store(id, Presence{Anchor: loc, Latest: loc, EnteredAt: now})
		slog.Debug("agent entered farming area", "agent", id, "area", loc.Key())
		return
	}
	t.records.Store(id, Presence{Anchor: prev.Anchor, Latest: loc, EnteredAt: prev.EnteredAt})
}

// Lookup returns the agent's current Presence.
func (t *PresenceTracker) Lookup(id world.AgentID) (Presence, bool) {
	v, ok := t.records.Load(id)
	if !ok {
		return Presence{}, false
	}
	return v.(Presence), true
}

// IsQualified reports whether the agent has farmed within the area radius of
// loc for at least the minimum presence time. loc is expected to be in the
// agent's current world: a record left behind in another world is stale and
// is dropped here.
func (t *PresenceTracker) IsQualified(id world.AgentID, loc world.Location) bool {
	p, ok := t.Lookup(id)
	if !ok {
		return false
	}
	if p.Latest.World != loc.World {
		t.records.CompareAndDelete(id, p)
		slog.Debug("dropped stale presence from another world", "agent", id, "was", p.Latest.World, "now", loc.World)
		return false
	}

	cfg := t.live.Load()
	if !p.Latest.Within(loc, t.areaRadius(cfg)) {
		return false
	}
	return t.clock.Now().Sub(p.EnteredAt) >= cfg.MinimumPresence()
}

// TimeInArea returns how long the agent has been in its current area, or
// zero if untracked.
func (t *PresenceTracker) TimeInArea(id world.AgentID) time.Duration {
	p, ok := t.Lookup(id)
	if !ok {
		return 0
	}
	return t.clock.Now().Sub(p.EnteredAt)
}

// Remove forgets an agent.
func (t *PresenceTracker) Remove(id world.AgentID) {
	t.records.Delete(id)
}

// SweepStale removes every record whose agent is no longer online and
// returns how many were removed.
func (t *PresenceTracker) SweepStale(isOnline func(world.AgentID) bool) int {
	removed := 0
	t.records.Range(func(k, _ any) bool {
		id := k.(world.AgentID)
		if !isOnline(id) {
			if _, loaded := t.records.LoadAndDelete(id); loaded {
				removed++
			}
		}
		return true
	})
	return removed
}

// Clear forgets every agent.
func (t *PresenceTracker) Clear() {
	t.records.Clear()
}

// Len returns the number of tracked agents.
func (t *PresenceTracker) Len() int {
	n := 0
	t.records.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
