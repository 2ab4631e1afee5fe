package sim

import (
	"math/rand"

	"github.com/talgya/harvest-boost/internal/farm"
	"github.com/talgya/harvest-boost/internal/hooks"
	"github.com/talgya/harvest-boost/internal/world"
)

// leash is how far a farmhand strays from home, per axis.
const leash = 5

// Plan is what a farmhand does this tick: the action it reports and the
// block change it makes.
type Plan struct {
	Action hooks.Action
	Target world.BlockPos
	Result world.Material // block left at Target; empty leaves it unchanged
}

// Changes reports whether the plan modifies the world.
func (p Plan) Changes() bool { return p.Result != "" }

var plantable = [...]world.Material{world.Wheat, world.Carrots, world.Potatoes, world.Beetroots}

// Decide picks an action for a farmhand standing at its current position.
// look reads blocks from the farmhand's world. Role-specific work comes
// first; any other applicable job is the fallback.
func Decide(f *Farmhand, rng *rand.Rand, look func(world.BlockPos) world.Material) (Plan, bool) {
	feet := f.pos.Block()
	ground := feet.Add(0, -1, 0)
	standing, under := look(feet), look(ground)
	agent := f.Agent()

	jobs := []func() (Plan, bool){
		func() (Plan, bool) { return till(agent, ground, under, rng) },
		func() (Plan, bool) { return plant(agent, feet, standing, under, rng) },
		func() (Plan, bool) { return harvest(agent, feet, standing) },
		func() (Plan, bool) { return forage(agent, feet, standing, rng) },
	}
	if p, ok := jobs[f.Role](); ok {
		return p, true
	}
	for i, job := range jobs {
		if Role(i) == f.Role {
			continue
		}
		if p, ok := job(); ok {
			return p, true
		}
	}
	return Plan{}, false
}

func till(a world.Agent, ground world.BlockPos, under world.Material, rng *rand.Rand) (Plan, bool) {
	if under != world.Dirt && under != world.GrassBlock {
		return Plan{}, false
	}
	hoe := world.WoodenHoe
	if rng.Intn(3) == 0 {
		hoe = world.IronHoe
	}
	return Plan{
		Action: hooks.Action{Kind: hooks.ActionInteract, Agent: a, Block: under, Item: hoe, At: ground.Corner(a.Location.World)},
		Target: ground,
		Result: world.Farmland,
	}, true
}

func plant(a world.Agent, feet world.BlockPos, standing, under world.Material, rng *rand.Rand) (Plan, bool) {
	if under != world.Farmland || standing != world.Air {
		return Plan{}, false
	}
	crop := plantable[rng.Intn(len(plantable))]
	return Plan{
		Action: hooks.Action{Kind: hooks.ActionPlace, Agent: a, Block: crop, At: feet.Corner(a.Location.World)},
		Target: feet,
		Result: crop,
	}, true
}

func harvest(a world.Agent, feet world.BlockPos, standing world.Material) (Plan, bool) {
	if farm.FormOf(standing) != farm.FormAgeable {
		return Plan{}, false
	}
	return Plan{
		Action: hooks.Action{Kind: hooks.ActionHarvest, Agent: a, Block: standing, At: feet.Corner(a.Location.World)},
		Target: feet,
		Result: world.Air,
	}, true
}

func forage(a world.Agent, feet world.BlockPos, standing world.Material, rng *rand.Rand) (Plan, bool) {
	if standing == world.Composter {
		return Plan{Action: hooks.Action{Kind: hooks.ActionInteract, Agent: a, Block: world.Composter, At: feet.Corner(a.Location.World)}}, true
	}
	items := [...]world.Material{world.WheatSeeds, world.BeetrootSeeds, world.Carrot, world.Potato, world.SweetBerries}
	return Plan{
		Action: hooks.Action{Kind: hooks.ActionPickup, Agent: a, Item: items[rng.Intn(len(items))], At: a.Location},
	}, true
}

// Wander moves a farmhand one step in a random direction, staying within
// the leash of home.
func Wander(f *Farmhand, rng *rand.Rand) world.Location {
	dx := float64(rng.Intn(3) - 1)
	dz := float64(rng.Intn(3) - 1)
	next := f.pos.Add(dx, 0, dz)
	if next.X < f.Home.X-leash || next.X > f.Home.X+leash {
		next.X = f.pos.X - dx
	}
	if next.Z < f.Home.Z-leash || next.Z > f.Home.Z+leash {
		next.Z = f.pos.Z - dz
	}
	f.pos = next
	return next
}
