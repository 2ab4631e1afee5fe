package world

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrWorldNotLoaded is returned for block lookups in a world the host does
// not have loaded.
var ErrWorldNotLoaded = errors.New("world not loaded")

// Host is the running server: loaded worlds plus the online-agent roster.
type Host struct {
	mu     sync.RWMutex
	grids  map[string]*Grid
	agents map[AgentID]Agent
}

// NewHost creates a host with the given worlds loaded.
func NewHost(grids ...*Grid) *Host {
	h := &Host{
		grids:  make(map[string]*Grid, len(grids)),
		agents: make(map[AgentID]Agent),
	}
	for _, g := range grids {
		h.grids[g.Name] = g
	}
	return h
}

// LoadWorld adds or replaces a world.
func (h *Host) LoadWorld(g *Grid) {
	h.mu.Lock()
	h.grids[g.Name] = g
	h.mu.Unlock()
}

// UnloadWorld removes a world. Agents inside it stay online.
func (h *Host) UnloadWorld(name string) {
	h.mu.Lock()
	delete(h.grids, name)
	h.mu.Unlock()
}

// Grid returns a loaded world by name.
func (h *Host) Grid(name string) (*Grid, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	g, ok := h.grids[name]
	return g, ok
}

// Worlds returns the names of loaded worlds in sorted order.
func (h *Host) Worlds() []string {
	h.mu.RLock()
	names := make([]string, 0, len(h.grids))
	for n := range h.grids {
		names = append(names, n)
	}
	h.mu.RUnlock()
	sort.Strings(names)
	return names
}

// BlockAt returns the block at p in the named world.
func (h *Host) BlockAt(world string, p BlockPos) (Material, error) {
	g, ok := h.Grid(world)
	if !ok {
		return Air, fmt.Errorf("block at %v: %w: %s", p, ErrWorldNotLoaded, world)
	}
	return g.Get(p), nil
}

// SetBlock places a block in the named world.
func (h *Host) SetBlock(world string, p BlockPos, m Material) error {
	g, ok := h.Grid(world)
	if !ok {
		return fmt.Errorf("set block at %v: %w: %s", p, ErrWorldNotLoaded, world)
	}
	g.Set(p, m)
	return nil
}

// Join brings an agent online (or updates its snapshot).
func (h *Host) Join(a Agent) {
	h.mu.Lock()
	h.agents[a.ID] = a
	h.mu.Unlock()
}

// Leave takes an agent offline.
func (h *Host) Leave(id AgentID) {
	h.mu.Lock()
	delete(h.agents, id)
	h.mu.Unlock()
}

// Move updates an online agent's position. Returns false if offline.
func (h *Host) Move(id AgentID, loc Location) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	a, ok := h.agents[id]
	if !ok {
		return false
	}
	a.Location = loc
	h.agents[id] = a
	return true
}

// Lookup returns the current snapshot of an online agent.
func (h *Host) Lookup(id AgentID) (Agent, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	a, ok := h.agents[id]
	return a, ok
}

// Online reports whether the agent is connected.
func (h *Host) Online(id AgentID) bool {
	_, ok := h.Lookup(id)
	return ok
}

// OnlineAgents returns every online agent, ordered by name then ID.
func (h *Host) OnlineAgents() []Agent {
	return h.collect(func(Agent) bool { return true })
}

// AgentsIn returns the online agents currently in the named world.
func (h *Host) AgentsIn(world string) []Agent {
	return h.collect(func(a Agent) bool { return a.Location.World == world })
}

func (h *Host) collect(keep func(Agent) bool) []Agent {
	h.mu.RLock()
	out := make([]Agent, 0, len(h.agents))
	for _, a := range h.agents {
		if keep(a) {
			out = append(out, a)
		}
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
