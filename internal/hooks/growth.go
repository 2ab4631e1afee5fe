package hooks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/talgya/harvest-boost/internal/boost"
	"github.com/talgya/harvest-boost/internal/config"
	"github.com/talgya/harvest-boost/internal/entropy"
	"github.com/talgya/harvest-boost/internal/farm"
	"github.com/talgya/harvest-boost/internal/feedback"
	"github.com/talgya/harvest-boost/internal/persistence"
	"github.com/talgya/harvest-boost/internal/world"
)

const (
	// heightGrowthShare scales the boost bonus into the chance of an extra
	// block of height.
	heightGrowthShare = 0.3
	// maxPlantScan bounds the column walk when measuring a plant.
	maxPlantScan = 20
)

// Terrain is the block access growth needs.
type Terrain interface {
	BlockAt(world string, p world.BlockPos) (world.Material, error)
	SetBlock(world string, p world.BlockPos, m world.Material) error
}

// GrowthRecorder journals applied boosts.
type GrowthRecorder interface {
	RecordGrowth(persistence.GrowthRecord)
}

// Outcome reports what a growth tick did.
type Outcome struct {
	Block      world.Material
	Multiplier float64
	Applied    bool // the boost draw succeeded
	Extra      bool // an extra block of height was added
}

// Growth applies the cooperation boost to growth ticks.
type Growth struct {
	boosts   *boost.Service
	renderer *feedback.Renderer
	terrain  Terrain
	random   entropy.Source
	journal  GrowthRecorder
	live     *config.Live
}

func NewGrowth(boosts *boost.Service, renderer *feedback.Renderer, terrain Terrain,
	random entropy.Source, journal GrowthRecorder, live *config.Live) *Growth {
	return &Growth{
		boosts:   boosts,
		renderer: renderer,
		terrain:  terrain,
		random:   random,
		journal:  journal,
		live:     live,
	}
}

// OnGrowth handles a growth tick of the block at pos. The boost applies
// with probability multiplier-1.
func (g *Growth) OnGrowth(ctx context.Context, worldName string, pos world.BlockPos) (Outcome, error) {
	cfg := g.live.Load()
	if cfg.WorldDisabled(worldName) {
		return Outcome{Multiplier: 1.0}, nil
	}
	m, err := g.terrain.BlockAt(worldName, pos)
	if err != nil {
		return Outcome{}, fmt.Errorf("growth tick: %w", err)
	}
	out := Outcome{Block: m, Multiplier: 1.0}
	if !farm.NewCatalog(cfg.Enable).IsBoostable(m) {
		return out, nil
	}

	if !g.draw(ctx, worldName, pos, &out) {
		return out, nil
	}
	if farm.FormOf(m) == farm.FormHeight {
		out.Extra, err = g.growTaller(worldName, pos, m, out.Multiplier)
		if err != nil {
			return out, err
		}
	}
	g.record(worldName, pos, out)
	return out, nil
}

// OnStructureGrowth handles a sapling turning into a tree. Only the draw
// and its particles apply; the structure itself is the host's business.
func (g *Growth) OnStructureGrowth(ctx context.Context, worldName string, pos world.BlockPos) (Outcome, error) {
	cfg := g.live.Load()
	out := Outcome{Multiplier: 1.0}
	if !cfg.Enable.Saplings || cfg.WorldDisabled(worldName) {
		return out, nil
	}
	m, err := g.terrain.BlockAt(worldName, pos)
	if err != nil {
		return out, fmt.Errorf("structure growth: %w", err)
	}
	out.Block = m
	if g.draw(ctx, worldName, pos, &out) {
		g.record(worldName, pos, out)
	}
	return out, nil
}

func (g *Growth) draw(ctx context.Context, worldName string, pos world.BlockPos, out *Outcome) bool {
	out.Multiplier = g.boosts.Cache.MultiplierAt(ctx, pos.Corner(worldName))
	if out.Multiplier <= 1.0 || !entropy.Chance(g.random, out.Multiplier-1.0) {
		return false
	}
	out.Applied = true
	g.renderer.CropParticles(worldName, pos)
	return true
}

func (g *Growth) growTaller(worldName string, pos world.BlockPos, m world.Material, multiplier float64) (bool, error) {
	above := pos.Add(0, 1, 0)
	top, err := g.terrain.BlockAt(worldName, above)
	if err != nil || top != world.Air {
		return false, err
	}
	if !entropy.Chance(g.random, (multiplier-1.0)*heightGrowthShare) {
		return false, nil
	}
	height, err := g.plantHeight(worldName, pos, m)
	if err != nil || height >= farm.MaxHeight(m) {
		return false, err
	}
	if err := g.terrain.SetBlock(worldName, above, m); err != nil {
		return false, fmt.Errorf("grow %s upward: %w", m, err)
	}
	g.renderer.CropParticles(worldName, above)
	return true, nil
}

// plantHeight measures the column of m that pos belongs to.
func (g *Growth) plantHeight(worldName string, pos world.BlockPos, m world.Material) (int, error) {
	height := 1
	for _, dir := range []int{-1, 1} {
		p := pos.Add(0, dir, 0)
		for height <= maxPlantScan {
			got, err := g.terrain.BlockAt(worldName, p)
			if err != nil {
				return height, err
			}
			if got != m {
				break
			}
			height++
			p = p.Add(0, dir, 0)
		}
	}
	return height, nil
}

func (g *Growth) record(worldName string, pos world.BlockPos, out Outcome) {
	slog.Debug("applied growth boost", "block", out.Block, "world", worldName, "pos", pos,
		"multiplier", out.Multiplier, "extra", out.Extra)
	if g.journal == nil {
		return
	}
	g.journal.RecordGrowth(persistence.GrowthRecord{
		World:      worldName,
		X:          pos.X,
		Y:          pos.Y,
		Z:          pos.Z,
		Block:      string(out.Block),
		Multiplier: out.Multiplier,
		Extra:      out.Extra,
	})
}
