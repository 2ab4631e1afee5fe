// Package feedback detects changes in an agent's boost level and renders
// them as sounds, action-bar text and particles.
package feedback

import (
	"context"
	"sync"
	"time"

	"github.com/talgya/harvest-boost/internal/boost"
	"github.com/talgya/harvest-boost/internal/clock"
	"github.com/talgya/harvest-boost/internal/config"
	"github.com/talgya/harvest-boost/internal/world"
)

// Kind classifies a feedback event.
type Kind uint8

const (
	KindNone Kind = iota
	KindEntered
	KindIncreased
	KindEnded
	KindInfo
)

func (k Kind) String() string {
	switch k {
	case KindEntered:
		return "entered"
	case KindIncreased:
		return "increased"
	case KindEnded:
		return "ended"
	case KindInfo:
		return "info"
	default:
		return "none"
	}
}

// Event is delivered to every subscribed Sink.
type Event struct {
	Kind    Kind
	Agent   world.Agent
	Count   int
	Percent int
	At      time.Time
}

// Sink receives feedback events. Handle is called synchronously from the
// notifier and must not block.
type Sink interface {
	Handle(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Handle(e Event) { f(e) }

// Boosts is the boost lookup the notifier reads counts from.
type Boosts interface {
	Lookup(ctx context.Context, loc world.Location) boost.Entry
}

// Notifier remembers each agent's last observed farmer count and when its
// info channel was last refreshed.
type Notifier struct {
	boosts Boosts
	live   *config.Live
	clock  clock.Clock

	lastCount sync.Map // world.AgentID → int
	lastInfo  sync.Map // world.AgentID → time.Time

	mu    sync.RWMutex
	sinks []Sink
}

func NewNotifier(boosts Boosts, live *config.Live, clk clock.Clock) *Notifier {
	return &Notifier{boosts: boosts, live: live, clock: clk}
}

// Subscribe adds a sink for every future event.
func (n *Notifier) Subscribe(s Sink) {
	n.mu.Lock()
	n.sinks = append(n.sinks, s)
	n.mu.Unlock()
}

func (n *Notifier) publish(e Event) {
	n.mu.RLock()
	sinks := n.sinks
	n.mu.RUnlock()
	for _, s := range sinks {
		s.Handle(e)
	}
}

// Transition decides which event, if any, a count change produces. A
// decrease that stays above one farmer is not notable.
func Transition(prev int, observed bool, count int) Kind {
	switch {
	case !observed:
		if count > 1 {
			return KindEntered
		}
	case count > prev:
		return KindIncreased
	case count < prev && count <= 1:
		return KindEnded
	}
	return KindNone
}

// OnTick compares the agent's current count with the last one seen,
// publishes the resulting transition and stores the new count.
func (n *Notifier) OnTick(ctx context.Context, agent world.Agent) Kind {
	e := n.boosts.Lookup(ctx, agent.Location)

	prev, observed := n.LastCount(agent.ID)
	kind := Transition(prev, observed, e.Count)
	n.lastCount.Store(agent.ID, e.Count)

	if kind != KindNone {
		n.publish(Event{Kind: kind, Agent: agent, Count: e.Count, Percent: e.Percentage(), At: n.clock.Now()})
	}
	return kind
}

// MaybeRefreshInfoChannel publishes an info event when the agent is boosted
// and the info interval has passed since its last one.
func (n *Notifier) MaybeRefreshInfoChannel(ctx context.Context, agent world.Agent) bool {
	e := n.boosts.Lookup(ctx, agent.Location)
	if e.Count <= 1 {
		return false
	}
	now := n.clock.Now()
	if v, ok := n.lastInfo.Load(agent.ID); ok && now.Sub(v.(time.Time)) < n.live.Load().InfoInterval() {
		return false
	}
	n.lastInfo.Store(agent.ID, now)
	n.publish(Event{Kind: KindInfo, Agent: agent, Count: e.Count, Percent: e.Percentage(), At: now})
	return true
}

// ShowAll refreshes the info channel and checks for a level change.
func (n *Notifier) ShowAll(ctx context.Context, agent world.Agent) {
	n.MaybeRefreshInfoChannel(ctx, agent)
	n.OnTick(ctx, agent)
}

// LastCount returns the last count observed for the agent.
func (n *Notifier) LastCount(id world.AgentID) (int, bool) {
	v, ok := n.lastCount.Load(id)
	if !ok {
		return 0, false
	}
	return v.(int), true
}

// Remove forgets an agent.
func (n *Notifier) Remove(id world.AgentID) {
	n.lastCount.Delete(id)
	n.lastInfo.Delete(id)
}

// SweepStale forgets agents that are no longer online and returns how many
// entries were removed.
func (n *Notifier) SweepStale(isOnline func(world.AgentID) bool) int {
	removed := 0
	sweep := func(m *sync.Map) {
		m.Range(func(k, _ any) bool {
			if !isOnline(k.(world.AgentID)) {
				if _, loaded := m.LoadAndDelete(k); loaded {
					removed++
				}
			}
			return true
		})
	}
	sweep(&n.lastCount)
	sweep(&n.lastInfo)
	return removed
}

// Clear forgets every agent.
func (n *Notifier) Clear() {
	n.lastCount.Clear()
	n.lastInfo.Clear()
}

// Len returns the number of agents with an observed count.
func (n *Notifier) Len() int {
	c := 0
	n.lastCount.Range(func(_, _ any) bool {
		c++
		return true
	})
	return c
}
