package sim

import (
	"log/slog"
	"sync"

	"github.com/talgya/harvest-boost/internal/world"
)

// EffectCounts tallies what has been rendered to farmhands.
type EffectCounts struct {
	Sounds     int            `json:"sounds"`
	ActionBars int            `json:"action_bars"`
	Particles  int            `json:"particles"`
	ByName     map[string]int `json:"by_name"`
}

// Surface stands in for the game client: it counts rendered effects,
// remembers the last action bar each farmhand saw, and keeps the XP ledger.
type Surface struct {
	mu     sync.Mutex
	counts EffectCounts
	bars   map[world.AgentID]string
	xp     map[world.AgentID]int
}

func NewSurface() *Surface {
	return &Surface{
		counts: EffectCounts{ByName: make(map[string]int)},
		bars:   make(map[world.AgentID]string),
		xp:     make(map[world.AgentID]int),
	}
}

func (s *Surface) PlaySound(agent world.Agent, sound string, volume, pitch float64) {
	s.mu.Lock()
	s.counts.Sounds++
	s.counts.ByName[sound]++
	s.mu.Unlock()
	slog.Debug("sound", "agent", agent.Name, "sound", sound, "volume", volume, "pitch", pitch)
}

func (s *Surface) SendActionBar(agent world.Agent, text string) {
	s.mu.Lock()
	s.counts.ActionBars++
	s.bars[agent.ID] = text
	s.mu.Unlock()
	slog.Debug("action bar", "agent", agent.Name, "text", text)
}

func (s *Surface) SpawnParticles(at world.Location, particle string, amount int) {
	s.mu.Lock()
	s.counts.Particles += amount
	s.counts.ByName[particle] += amount
	s.mu.Unlock()
}

// GiveXP credits bonus experience to an agent.
func (s *Surface) GiveXP(agent world.Agent, amount int) {
	s.mu.Lock()
	s.xp[agent.ID] += amount
	s.mu.Unlock()
}

// XP returns the bonus experience credited to an agent.
func (s *Surface) XP(id world.AgentID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.xp[id]
}

// ActionBar returns the last action bar text shown to an agent.
func (s *Surface) ActionBar(id world.AgentID) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.bars[id]
	return text, ok
}

// Counts returns a copy of the effect tallies.
func (s *Surface) Counts() EffectCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.counts
	c.ByName = make(map[string]int, len(s.counts.ByName))
	for k, v := range s.counts.ByName {
		c.ByName[k] = v
	}
	return c
}
