package boost

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc/pool"

	"github.com/talgya/harvest-boost/internal/config"
	"github.com/talgya/harvest-boost/internal/farm"
	"github.com/talgya/harvest-boost/internal/world"
)

// probeHeight is how far above and below an agent the farmland probe looks.
const probeHeight = 2

// Roster lists the online agents of a world.
type Roster interface {
	AgentsIn(world string) []world.Agent
}

// Terrain answers block lookups.
type Terrain interface {
	BlockAt(world string, p world.BlockPos) (world.Material, error)
}

// NeighborCounter counts qualifying farmers around a location.
type NeighborCounter interface {
	CountQualifying(ctx context.Context, target world.Location) (int, error)
}

// FarmlandProbe checks the blocks around a position for farmable terrain.
type FarmlandProbe struct {
	terrain Terrain
	live    *config.Live
}

func NewFarmlandProbe(terrain Terrain, live *config.Live) *FarmlandProbe {
	return &FarmlandProbe{terrain: terrain, live: live}
}

// Near reports whether any farmable block lies within the farming radius
// horizontally and probeHeight vertically of loc.
func (p *FarmlandProbe) Near(loc world.Location) (bool, error) {
	cfg := p.live.Load()
	catalog := farm.NewCatalog(cfg.Enable)
	r := cfg.Advanced.FarmingDetectionRadius
	base := loc.Block()

	for x := -r; x <= r; x++ {
		for y := -probeHeight; y <= probeHeight; y++ {
			for z := -r; z <= r; z++ {
				m, err := p.terrain.BlockAt(loc.World, base.Add(x, y, z))
				if err != nil {
					return false, err
				}
				if catalog.IsFarmableBlock(m) {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

// Sample walks the farmable blocks within radius of loc and keeps each with
// probability chance, stopping after limit picks. draw returns values in
// [0, 1).
func (p *FarmlandProbe) Sample(loc world.Location, radius int, chance float64, limit int, draw func() float64) ([]world.BlockPos, error) {
	catalog := farm.NewCatalog(p.live.Load().Enable)
	base := loc.Block()

	var picked []world.BlockPos
	for x := -radius; x <= radius; x++ {
		for z := -radius; z <= radius; z++ {
			for y := -probeHeight; y <= probeHeight; y++ {
				pos := base.Add(x, y, z)
				m, err := p.terrain.BlockAt(loc.World, pos)
				if err != nil {
					return picked, err
				}
				if !catalog.IsFarmableBlock(m) || draw() >= chance {
					continue
				}
				picked = append(picked, pos)
				if len(picked) >= limit {
					return picked, nil
				}
			}
		}
	}
	return picked, nil
}

// ProximityScan is the NeighborCounter backed by the live roster: an agent
// counts when it is within the detection radius of the target, has dwelt in
// its farming area long enough, and is standing near farmable terrain.
type ProximityScan struct {
	roster  Roster
	tracker *PresenceTracker
	probe   *FarmlandProbe
	live    *config.Live
}

func NewProximityScan(roster Roster, tracker *PresenceTracker, probe *FarmlandProbe, live *config.Live) *ProximityScan {
	return &ProximityScan{roster: roster, tracker: tracker, probe: probe, live: live}
}

// CountQualifying implements NeighborCounter. The cheap distance and dwell
// checks run inline; the terrain probes run on a bounded worker pool.
func (s *ProximityScan) CountQualifying(ctx context.Context, target world.Location) (int, error) {
	cfg := s.live.Load()
	if cfg.WorldDisabled(target.World) {
		return 0, nil
	}
	radius := float64(cfg.Detection.Radius)

	var candidates []world.Agent
	for _, a := range s.roster.AgentsIn(target.World) {
		if !a.Location.Within(target, radius) {
			continue
		}
		if !s.tracker.IsQualified(a.ID, target) {
			continue
		}
		candidates = append(candidates, a)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	p := pool.NewWithResults[bool]().
		WithContext(ctx).
		WithMaxGoroutines(cfg.Performance.ScanWorkers)
	for _, a := range candidates {
		p.Go(func(ctx context.Context) (near bool, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("farmland probe for %s panicked: %v", a.ID, r)
				}
			}()
			if err := ctx.Err(); err != nil {
				return false, err
			}
			return s.probe.Near(a.Location)
		})
	}
	results, err := p.Wait()
	if err != nil {
		return 0, fmt.Errorf("count qualifying at %s: %w", target.Key(), err)
	}

	count := 0
	for _, near := range results {
		if near {
			count++
		}
	}
	slog.Debug("neighbor scan", "area", target.Key(), "candidates", len(candidates), "qualifying", count)
	return count, nil
}
