package boost

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/harvest-boost/internal/clock"
	"github.com/talgya/harvest-boost/internal/config"
	"github.com/talgya/harvest-boost/internal/world"
)

// Host is what the boost engine needs from the running server.
type Host interface {
	Roster
	Terrain
}

// Service wires the tracker, scan and cache together over one host.
type Service struct {
	Tracker *PresenceTracker
	Probe   *FarmlandProbe
	Scan    *ProximityScan
	Cache   *Cache

	live *config.Live
}

// NewService builds the boost engine for host.
func NewService(host Host, live *config.Live, clk clock.Clock) *Service {
	tracker := NewPresenceTracker(live, clk)
	probe := NewFarmlandProbe(host, live)
	scan := NewProximityScan(host, tracker, probe, live)
	return &Service{
		Tracker: tracker,
		Probe:   probe,
		Scan:    scan,
		Cache:   NewCache(scan, live, clk),
		live:    live,
	}
}

// Config returns the active configuration snapshot.
func (s *Service) Config() *config.Config { return s.live.Load() }

// Curve returns the curve of the active configuration.
func (s *Service) Curve() Curve { return CurveFor(s.live.Load()) }

// Reload swaps in a new configuration and drops cached results computed
// under the old one.
func (s *Service) Reload(cfg *config.Config) {
	s.live.Store(cfg)
	s.Cache.Clear()
}

// Forget drops everything known about an agent.
func (s *Service) Forget(id world.AgentID) {
	s.Tracker.Remove(id)
}

// Close stops background work.
func (s *Service) Close() {
	s.Cache.Close()
}

// AgentStatus is an administrative view of one agent's boost state.
type AgentStatus struct {
	Agent      world.Agent     `json:"agent"`
	Tracked    bool            `json:"tracked"`
	Area       *world.BlockPos `json:"area,omitempty"`
	Dwell      time.Duration   `json:"dwell_ns"`
	Qualifies  bool            `json:"qualifies"`
	Count      int             `json:"count"`
	Multiplier float64         `json:"multiplier"`
	Percentage int             `json:"percentage"`
}

// Inspect reports the boost state of agent at its current location.
func (s *Service) Inspect(ctx context.Context, agent world.Agent) AgentStatus {
	st := AgentStatus{Agent: agent, Multiplier: 1.0}
	p, ok := s.Tracker.Lookup(agent.ID)
	if !ok {
		return st
	}
	area := p.Latest.Block()
	st.Tracked = true
	st.Area = &area
	st.Dwell = s.Tracker.TimeInArea(agent.ID)
	st.Qualifies = s.Tracker.IsQualified(agent.ID, p.Latest)

	e := s.Cache.Lookup(ctx, agent.Location)
	st.Count = e.Count
	st.Multiplier = e.Multiplier
	st.Percentage = e.Percentage()
	return st
}

func (st AgentStatus) String() string {
	if !st.Tracked {
		return "Not in farming area"
	}
	return fmt.Sprintf("Area: %d,%d,%d | Time: %sms | Qualifies: %t | Boost: %dx",
		st.Area.X, st.Area.Y, st.Area.Z,
		humanize.Comma(st.Dwell.Milliseconds()),
		st.Qualifies, st.Count)
}
