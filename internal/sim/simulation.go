package sim

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"math/rand"
	"slices"
	"sync"

	"github.com/talgya/harvest-boost/internal/config"
	"github.com/talgya/harvest-boost/internal/engine"
	"github.com/talgya/harvest-boost/internal/farm"
	"github.com/talgya/harvest-boost/internal/hooks"
	"github.com/talgya/harvest-boost/internal/world"
)

// Cadences, in ticks.
const (
	FarmhandEvery   = 10  // half a second between farmhand decisions
	GrowthEvery     = 20  // one random growth pass per second
	PlantIndexEvery = 400 // plants rescanned every 20 seconds
)

// Stats counts what the simulation has done since it started.
type Stats struct {
	Steps       int `json:"steps"`
	Actions     int `json:"actions"`
	Counted     int `json:"counted"` // actions that registered as farming
	BlockEdits  int `json:"block_edits"`
	Disconnects int `json:"disconnects"`
	Reconnects  int `json:"reconnects"`
	GrowthTicks int `json:"growth_ticks"`
	Boosted     int `json:"boosted"`
	ExtraHeight int `json:"extra_height"`
	Errors      int `json:"errors"`
}

// Simulation drives farmhands and random growth on a host.
type Simulation struct {
	host     *world.Host
	activity *hooks.Activity
	growth   *hooks.Growth
	live     *config.Live

	mu     sync.Mutex
	rng    *rand.Rand
	hands  []*Farmhand
	plants map[string][]world.BlockPos
	stats  Stats
}

// New creates a simulation for hands and joins them to the host.
func New(host *world.Host, activity *hooks.Activity, growth *hooks.Growth, live *config.Live,
	hands []*Farmhand, seed int64) *Simulation {
	s := &Simulation{
		host:     host,
		activity: activity,
		growth:   growth,
		live:     live,
		rng:      rand.New(rand.NewSource(seed + 500)),
		hands:    hands,
		plants:   make(map[string][]world.BlockPos),
	}
	for _, f := range hands {
		if f.Online {
			host.Join(f.Agent())
		}
	}
	s.IndexPlants()
	return s
}

// Register wires the simulation's cadences into the engine.
func (s *Simulation) Register(e *engine.Engine) {
	e.Every(FarmhandEvery, "farmhands", func(uint64) { s.StepFarmhands(context.Background()) })
	e.Every(GrowthEvery, "growth", func(uint64) { s.StepGrowth(context.Background()) })
	e.Every(PlantIndexEvery, "plant-index", func(uint64) { s.IndexPlants() })
}

// StepFarmhands lets every farmhand move and act once. Online farmhands may
// log off; offline ones may come back.
func (s *Simulation) StepFarmhands(ctx context.Context) {
	cfg := s.live.Load().Simulation
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Steps++

	for _, f := range s.hands {
		if !f.Online {
			if s.rng.Float64() < cfg.DisconnectChance*20 {
				f.Online = true
				f.pos = f.Home
				s.host.Join(f.Agent())
				s.stats.Reconnects++
				slog.Debug("farmhand reconnected", "name", f.Name)
			}
			continue
		}
		if s.rng.Float64() < cfg.DisconnectChance {
			f.Online = false
			s.host.Leave(f.ID)
			s.activity.ReportDisconnect(f.ID)
			s.stats.Disconnects++
			slog.Debug("farmhand disconnected", "name", f.Name)
			continue
		}

		s.host.Move(f.ID, Wander(f, s.rng))
		if s.rng.Float64() >= cfg.ActionChance {
			continue
		}
		s.act(ctx, f)
	}
}

func (s *Simulation) act(ctx context.Context, f *Farmhand) {
	worldName := f.pos.World
	look := func(p world.BlockPos) world.Material {
		m, err := s.host.BlockAt(worldName, p)
		if err != nil {
			return world.Air
		}
		return m
	}
	plan, ok := Decide(f, s.rng, look)
	if !ok {
		return
	}
	s.stats.Actions++
	if s.activity.ReportActivity(ctx, plan.Action) {
		s.stats.Counted++
	}
	if !plan.Changes() {
		return
	}
	if err := s.host.SetBlock(worldName, plan.Target, plan.Result); err != nil {
		s.stats.Errors++
		slog.Warn("farmhand block change failed", "name", f.Name, "pos", plan.Target, "error", err)
		return
	}
	s.stats.BlockEdits++
}

// IndexPlants rebuilds the per-world list of growable blocks.
func (s *Simulation) IndexPlants() {
	growable := func(m world.Material) bool { return farm.CategoryOf(m) != farm.CategoryNone }
	index := make(map[string][]world.BlockPos)
	for _, name := range s.host.Worlds() {
		if g, ok := s.host.Grid(name); ok {
			index[name] = g.Find(growable)
		}
	}
	s.mu.Lock()
	s.plants = index
	s.mu.Unlock()
}

// StepGrowth runs a random growth tick on up to performance.max-crops-per-tick
// indexed plants per world.
func (s *Simulation) StepGrowth(ctx context.Context) {
	limit := s.live.Load().Performance.MaxCropsPerTick

	s.mu.Lock()
	defer s.mu.Unlock()
	// Sorted so the draws follow the seed.
	for _, name := range slices.Sorted(maps.Keys(s.plants)) {
		plants := s.plants[name]
		n := min(limit, len(plants))
		for _, i := range s.rng.Perm(len(plants))[:n] {
			s.growOne(ctx, name, plants[i])
		}
	}
}

func (s *Simulation) growOne(ctx context.Context, worldName string, pos world.BlockPos) {
	s.stats.GrowthTicks++
	m, err := s.host.BlockAt(worldName, pos)
	if err != nil {
		s.stats.Errors++
		return
	}

	var out hooks.Outcome
	if farm.FormOf(m) == farm.FormStructure {
		out, err = s.growth.OnStructureGrowth(ctx, worldName, pos)
	} else {
		out, err = s.growth.OnGrowth(ctx, worldName, pos)
	}
	if err != nil {
		s.stats.Errors++
		if !errors.Is(err, world.ErrWorldNotLoaded) {
			slog.Warn("growth tick failed", "world", worldName, "pos", pos, "error", err)
		}
		return
	}
	if out.Applied {
		s.stats.Boosted++
	}
	if out.Extra {
		s.stats.ExtraHeight++
	}
}

// Stats returns a snapshot of the counters.
func (s *Simulation) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Farmhands returns copies of the farmhands.
func (s *Simulation) Farmhands() []Farmhand {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Farmhand, len(s.hands))
	for i, f := range s.hands {
		out[i] = *f
	}
	return out
}

// PlantCount returns how many plants are indexed across worlds.
func (s *Simulation) PlantCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.plants {
		n += len(p)
	}
	return n
}
